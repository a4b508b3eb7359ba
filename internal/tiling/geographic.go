package tiling

import (
	"math"

	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
)

// GeographicScheme tiles the globe in equal-angle tiles with two root tiles. Native
// rectangles are expressed in degrees.
type GeographicScheme struct {
	ellipsoid               geodesy.Ellipsoid
	rectangle               geodesy.Rectangle
	projection              geodesy.GeographicProjection
	numberOfLevelZeroTilesX uint32
	numberOfLevelZeroTilesY uint32
}

var _ Scheme = (*GeographicScheme)(nil)

func NewGeographicScheme(e geodesy.Ellipsoid) *GeographicScheme {
	return &GeographicScheme{
		ellipsoid:               e,
		rectangle:               geodesy.MaxRectangle,
		projection:              geodesy.NewGeographicProjection(e),
		numberOfLevelZeroTilesX: 2,
		numberOfLevelZeroTilesY: 1,
	}
}

func (s *GeographicScheme) Kind() Kind                     { return KindGeographic }
func (s *GeographicScheme) Ellipsoid() geodesy.Ellipsoid   { return s.ellipsoid }
func (s *GeographicScheme) Projection() geodesy.Projection { return s.projection }
func (s *GeographicScheme) Rectangle() geodesy.Rectangle   { return s.rectangle }

func (s *GeographicScheme) NumberOfXTilesAtLevel(level uint32) uint32 {
	return s.numberOfLevelZeroTilesX << level
}

func (s *GeographicScheme) NumberOfYTilesAtLevel(level uint32) uint32 {
	return s.numberOfLevelZeroTilesY << level
}

func (s *GeographicScheme) RectangleToNativeRectangle(r geodesy.Rectangle) geodesy.Rectangle {
	return geodesy.Rectangle{
		West:  geodesy.ToDegrees(r.West),
		South: geodesy.ToDegrees(r.South),
		East:  geodesy.ToDegrees(r.East),
		North: geodesy.ToDegrees(r.North),
	}
}

func (s *GeographicScheme) TileXYToNativeRectangle(x, y, level uint32) geodesy.Rectangle {
	return s.RectangleToNativeRectangle(s.TileXYToRectangle(x, y, level))
}

func (s *GeographicScheme) TileXYToRectangle(x, y, level uint32) geodesy.Rectangle {
	xTiles := s.NumberOfXTilesAtLevel(level)
	yTiles := s.NumberOfYTilesAtLevel(level)

	xTileWidth := s.rectangle.Width() / float64(xTiles)
	west := float64(x)*xTileWidth + s.rectangle.West
	east := float64(x+1)*xTileWidth + s.rectangle.West

	yTileHeight := s.rectangle.Height() / float64(yTiles)
	north := s.rectangle.North - float64(y)*yTileHeight
	south := s.rectangle.North - float64(y+1)*yTileHeight

	return geodesy.Rectangle{West: west, South: south, East: east, North: north}
}

func (s *GeographicScheme) PositionToTileXY(position geodesy.Cartographic, level uint32) (uint32, uint32, bool) {
	if !s.rectangle.Contains(position) {
		return 0, 0, false
	}

	xTiles := s.NumberOfXTilesAtLevel(level)
	yTiles := s.NumberOfYTilesAtLevel(level)

	xTileWidth := s.rectangle.Width() / float64(xTiles)
	yTileHeight := s.rectangle.Height() / float64(yTiles)

	longitude := position.Longitude
	if s.rectangle.East < s.rectangle.West {
		longitude += geodesy.TwoPi
	}

	x := clampTile(math.Floor((longitude-s.rectangle.West)/xTileWidth), xTiles)
	y := clampTile(math.Floor((s.rectangle.North-position.Latitude)/yTileHeight), yTiles)
	return x, y, true
}
