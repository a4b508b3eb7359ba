package tiling

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
)

// WebMercatorScheme tiles the globe in the square Web Mercator plane with one root tile.
// Native rectangles are expressed in projected meters.
type WebMercatorScheme struct {
	ellipsoid                  geodesy.Ellipsoid
	rectangle                  geodesy.Rectangle
	projection                 geodesy.WebMercatorProjection
	numberOfLevelZeroTilesX    uint32
	numberOfLevelZeroTilesY    uint32
	rectangleSouthwestInMeters r3.Vector
	rectangleNortheastInMeters r3.Vector
}

var _ Scheme = (*WebMercatorScheme)(nil)

func NewWebMercatorScheme(e geodesy.Ellipsoid) *WebMercatorScheme {
	semimajorAxisTimesPi := e.MaximumRadius() * math.Pi
	return &WebMercatorScheme{
		ellipsoid:                  e,
		projection:                 geodesy.NewWebMercatorProjection(e),
		numberOfLevelZeroTilesX:    1,
		numberOfLevelZeroTilesY:    1,
		rectangleSouthwestInMeters: r3.Vector{X: -semimajorAxisTimesPi, Y: -semimajorAxisTimesPi},
		rectangleNortheastInMeters: r3.Vector{X: semimajorAxisTimesPi, Y: semimajorAxisTimesPi},
		rectangle: geodesy.Rectangle{
			West:  -math.Pi,
			South: -geodesy.MaximumLatitude,
			East:  math.Pi,
			North: geodesy.MaximumLatitude,
		},
	}
}

func (s *WebMercatorScheme) Kind() Kind                     { return KindWebMercator }
func (s *WebMercatorScheme) Ellipsoid() geodesy.Ellipsoid   { return s.ellipsoid }
func (s *WebMercatorScheme) Projection() geodesy.Projection { return s.projection }
func (s *WebMercatorScheme) Rectangle() geodesy.Rectangle   { return s.rectangle }

func (s *WebMercatorScheme) NumberOfXTilesAtLevel(level uint32) uint32 {
	return s.numberOfLevelZeroTilesX << level
}

func (s *WebMercatorScheme) NumberOfYTilesAtLevel(level uint32) uint32 {
	return s.numberOfLevelZeroTilesY << level
}

func (s *WebMercatorScheme) RectangleToNativeRectangle(r geodesy.Rectangle) geodesy.Rectangle {
	southwest := s.projection.Project(r.Southwest())
	northeast := s.projection.Project(r.Northeast())
	return geodesy.Rectangle{West: southwest.X, South: southwest.Y, East: northeast.X, North: northeast.Y}
}

func (s *WebMercatorScheme) TileXYToNativeRectangle(x, y, level uint32) geodesy.Rectangle {
	xTiles := s.NumberOfXTilesAtLevel(level)
	yTiles := s.NumberOfYTilesAtLevel(level)

	xTileWidth := (s.rectangleNortheastInMeters.X - s.rectangleSouthwestInMeters.X) / float64(xTiles)
	west := s.rectangleSouthwestInMeters.X + float64(x)*xTileWidth
	east := s.rectangleSouthwestInMeters.X + float64(x+1)*xTileWidth

	yTileHeight := (s.rectangleNortheastInMeters.Y - s.rectangleSouthwestInMeters.Y) / float64(yTiles)
	north := s.rectangleNortheastInMeters.Y - float64(y)*yTileHeight
	south := s.rectangleNortheastInMeters.Y - float64(y+1)*yTileHeight

	return geodesy.Rectangle{West: west, South: south, East: east, North: north}
}

func (s *WebMercatorScheme) TileXYToRectangle(x, y, level uint32) geodesy.Rectangle {
	native := s.TileXYToNativeRectangle(x, y, level)
	southwest := s.projection.Unproject(r3.Vector{X: native.West, Y: native.South})
	northeast := s.projection.Unproject(r3.Vector{X: native.East, Y: native.North})
	return geodesy.Rectangle{
		West:  southwest.Longitude,
		South: southwest.Latitude,
		East:  northeast.Longitude,
		North: northeast.Latitude,
	}
}

func (s *WebMercatorScheme) PositionToTileXY(position geodesy.Cartographic, level uint32) (uint32, uint32, bool) {
	if !s.rectangle.Contains(position) {
		return 0, 0, false
	}

	xTiles := s.NumberOfXTilesAtLevel(level)
	yTiles := s.NumberOfYTilesAtLevel(level)

	overallWidth := s.rectangleNortheastInMeters.X - s.rectangleSouthwestInMeters.X
	xTileWidth := overallWidth / float64(xTiles)
	overallHeight := s.rectangleNortheastInMeters.Y - s.rectangleSouthwestInMeters.Y
	yTileHeight := overallHeight / float64(yTiles)

	meters := s.projection.Project(position)
	distanceFromWest := meters.X - s.rectangleSouthwestInMeters.X
	distanceFromNorth := s.rectangleNortheastInMeters.Y - meters.Y

	x := clampTile(math.Floor(distanceFromWest/xTileWidth), xTiles)
	y := clampTile(math.Floor(distanceFromNorth/yTileHeight), yTiles)
	return x, y, true
}
