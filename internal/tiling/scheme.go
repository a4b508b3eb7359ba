package tiling

import (
	"math"

	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
)

type Kind int

const (
	KindGeographic Kind = iota
	KindWebMercator
)

func (k Kind) String() string {
	if k == KindWebMercator {
		return "web-mercator"
	}
	return "geographic"
}

// Scheme maps tile addresses to geographic and native (projected) rectangles.
type Scheme interface {
	Kind() Kind
	Ellipsoid() geodesy.Ellipsoid
	Projection() geodesy.Projection
	Rectangle() geodesy.Rectangle
	NumberOfXTilesAtLevel(level uint32) uint32
	NumberOfYTilesAtLevel(level uint32) uint32
	RectangleToNativeRectangle(r geodesy.Rectangle) geodesy.Rectangle
	TileXYToNativeRectangle(x, y, level uint32) geodesy.Rectangle
	TileXYToRectangle(x, y, level uint32) geodesy.Rectangle
	PositionToTileXY(position geodesy.Cartographic, level uint32) (x, y uint32, ok bool)
}

// RootAddresses lists the level zero tiles of s in row-major order.
func RootAddresses(s Scheme) []Address {
	nx := s.NumberOfXTilesAtLevel(0)
	ny := s.NumberOfYTilesAtLevel(0)
	out := make([]Address, 0, nx*ny)
	for y := uint32(0); y < ny; y++ {
		for x := uint32(0); x < nx; x++ {
			out = append(out, Address{X: x, Y: y, Level: 0})
		}
	}
	return out
}

// LevelZeroMaximumGeometricError estimates the geometric error of a level zero tile
// rendered as a heightmap of the given width.
func LevelZeroMaximumGeometricError(s Scheme, tileImageWidth int) float64 {
	return s.Ellipsoid().MaximumRadius() * 2 * math.Pi * 0.25 /
		(float64(tileImageWidth) * float64(s.NumberOfXTilesAtLevel(0)))
}

func clampTile(v float64, count uint32) uint32 {
	if v < 0 {
		return 0
	}
	t := uint32(v)
	if t >= count {
		return count - 1
	}
	return t
}
