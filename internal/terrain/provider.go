package terrain

import (
	"context"

	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
)

// Availability is a provider's knowledge of whether a tile has data.
type Availability int

const (
	AvailabilityUnknown Availability = iota
	Available
	Unavailable
)

func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Provider supplies height grids for a tiling scheme.
type Provider interface {
	Ready() bool
	Scheme() tiling.Scheme
	TileDataAvailable(address tiling.Address) Availability
	// RequestTileGeometry blocks until the grid is fetched. Errors wrapping
	// tiling.ErrTileUnavailable are permanent; anything else is transient.
	RequestTileGeometry(ctx context.Context, address tiling.Address) (*HeightGrid, error)
	LevelMaximumGeometricError(level uint32) float64
}

const (
	heightmapTileImageWidth = 64
	ellipsoidGridSize       = 16
)

// LevelZeroGeometricError is the heightmap error estimate shared by providers.
func LevelZeroGeometricError(s tiling.Scheme) float64 {
	return tiling.LevelZeroMaximumGeometricError(s, heightmapTileImageWidth)
}

// EllipsoidProvider serves flat grids on the ellipsoid surface.
type EllipsoidProvider struct {
	scheme         tiling.Scheme
	levelZeroError float64
}

var _ Provider = (*EllipsoidProvider)(nil)

func NewEllipsoidProvider(scheme tiling.Scheme) *EllipsoidProvider {
	return &EllipsoidProvider{
		scheme:         scheme,
		levelZeroError: LevelZeroGeometricError(scheme),
	}
}

func (p *EllipsoidProvider) Ready() bool           { return true }
func (p *EllipsoidProvider) Scheme() tiling.Scheme { return p.scheme }

func (p *EllipsoidProvider) TileDataAvailable(tiling.Address) Availability {
	return AvailabilityUnknown
}

func (p *EllipsoidProvider) RequestTileGeometry(ctx context.Context, _ tiling.Address) (*HeightGrid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewHeightGrid(ellipsoidGridSize, ellipsoidGridSize, make([]float64, ellipsoidGridSize*ellipsoidGridSize))
}

func (p *EllipsoidProvider) LevelMaximumGeometricError(level uint32) float64 {
	return p.levelZeroError / float64(uint64(1)<<level)
}
