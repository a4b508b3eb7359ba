package provider

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
	"github.com/jaennil/guide_helper/backend/globe/internal/terrain"
	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
)

// TerrariumGridSize is the number of samples per side taken from each elevation tile.
const TerrariumGridSize = 65

// TerrariumTerrain decodes Mapzen Terrarium elevation PNGs, where
// height = R*256 + G + B/256 - 32768 meters.
type TerrariumTerrain struct {
	name           string
	template       Template
	scheme         tiling.Scheme
	maximumLevel   uint32
	levelZeroError float64
	fetcher        Fetcher
}

var _ terrain.Provider = (*TerrariumTerrain)(nil)

func NewTerrariumTerrain(name string, template Template, maximumLevel uint32, fetcher Fetcher) *TerrariumTerrain {
	scheme := tiling.NewWebMercatorScheme(geodesy.WGS84)
	return &TerrariumTerrain{
		name:           name,
		template:       template,
		scheme:         scheme,
		maximumLevel:   maximumLevel,
		levelZeroError: terrain.LevelZeroGeometricError(scheme),
		fetcher:        fetcher,
	}
}

func (p *TerrariumTerrain) Name() string          { return p.name }
func (p *TerrariumTerrain) Ready() bool           { return true }
func (p *TerrariumTerrain) Scheme() tiling.Scheme { return p.scheme }

func (p *TerrariumTerrain) TileDataAvailable(a tiling.Address) terrain.Availability {
	if a.Level > p.maximumLevel {
		return terrain.Unavailable
	}
	return terrain.Available
}

func (p *TerrariumTerrain) LevelMaximumGeometricError(level uint32) float64 {
	return p.levelZeroError / float64(uint64(1)<<level)
}

func (p *TerrariumTerrain) RequestTileGeometry(ctx context.Context, a tiling.Address) (*terrain.HeightGrid, error) {
	if a.Level > p.maximumLevel {
		return nil, fmt.Errorf("%w: level %d above %d", tiling.ErrTileUnavailable, a.Level, p.maximumLevel)
	}
	data, _, err := p.fetcher.Fetch(ctx, p.name, int(a.Level), int(a.X), int(a.Y), p.template.Expand(a))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s tile %s: %w", p.name, a, err)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode terrarium tile %s: %w", a, err)
	}

	grid, err := DecodeTerrarium(img, TerrariumGridSize)
	if err != nil {
		return nil, err
	}
	if a.Level >= p.maximumLevel {
		grid.ChildTileMask = 0
	}
	return grid, nil
}

// DecodeTerrarium samples img on a size×size grid, corners included.
func DecodeTerrarium(img image.Image, size int) (*terrain.HeightGrid, error) {
	bounds := img.Bounds()
	if bounds.Dx() < 2 || bounds.Dy() < 2 {
		return nil, fmt.Errorf("terrarium image too small: %dx%d", bounds.Dx(), bounds.Dy())
	}
	nrgba := imaging.Clone(img)

	heights := make([]float64, 0, size*size)
	for row := 0; row < size; row++ {
		py := row * (bounds.Dy() - 1) / (size - 1)
		for column := 0; column < size; column++ {
			px := column * (bounds.Dx() - 1) / (size - 1)
			c := nrgba.NRGBAAt(px, py)
			heights = append(heights, TerrariumHeight(c.R, c.G, c.B))
		}
	}
	return terrain.NewHeightGrid(size, size, heights)
}

func TerrariumHeight(r, g, b uint8) float64 {
	return float64(r)*256 + float64(g) + float64(b)/256 - 32768
}
