package geodesy

import (
	"math"

	"github.com/golang/geo/r3"
)

// MaximumLatitude is the latitude at which the Web Mercator projection is cut off,
// making the projected world square.
var MaximumLatitude = MercatorAngleToGeodeticLatitude(math.Pi)

func MercatorAngleToGeodeticLatitude(mercatorAngle float64) float64 {
	return PiOver2 - 2*math.Atan(math.Exp(-mercatorAngle))
}

func GeodeticLatitudeToMercatorAngle(latitude float64) float64 {
	latitude = Clamp(latitude, -MaximumLatitude, MaximumLatitude)
	sinLatitude := math.Sin(latitude)
	return 0.5 * math.Log((1+sinLatitude)/(1-sinLatitude))
}

// Projection maps cartographic positions to a planar native coordinate system.
type Projection interface {
	Ellipsoid() Ellipsoid
	Project(c Cartographic) r3.Vector
	Unproject(v r3.Vector) Cartographic
}

type WebMercatorProjection struct {
	ellipsoid     Ellipsoid
	semimajorAxis float64
}

var _ Projection = WebMercatorProjection{}

func NewWebMercatorProjection(e Ellipsoid) WebMercatorProjection {
	return WebMercatorProjection{ellipsoid: e, semimajorAxis: e.MaximumRadius()}
}

func (p WebMercatorProjection) Ellipsoid() Ellipsoid { return p.ellipsoid }

func (p WebMercatorProjection) Project(c Cartographic) r3.Vector {
	return r3.Vector{
		X: c.Longitude * p.semimajorAxis,
		Y: GeodeticLatitudeToMercatorAngle(c.Latitude) * p.semimajorAxis,
		Z: c.Height,
	}
}

func (p WebMercatorProjection) Unproject(v r3.Vector) Cartographic {
	oneOverEarthSemimajorAxis := 1 / p.semimajorAxis
	return Cartographic{
		Longitude: v.X * oneOverEarthSemimajorAxis,
		Latitude:  MercatorAngleToGeodeticLatitude(v.Y * oneOverEarthSemimajorAxis),
		Height:    v.Z,
	}
}

// GeographicProjection is the equirectangular projection scaled by the semimajor axis.
type GeographicProjection struct {
	ellipsoid     Ellipsoid
	semimajorAxis float64
}

var _ Projection = GeographicProjection{}

func NewGeographicProjection(e Ellipsoid) GeographicProjection {
	return GeographicProjection{ellipsoid: e, semimajorAxis: e.MaximumRadius()}
}

func (p GeographicProjection) Ellipsoid() Ellipsoid { return p.ellipsoid }

func (p GeographicProjection) Project(c Cartographic) r3.Vector {
	return r3.Vector{X: c.Longitude * p.semimajorAxis, Y: c.Latitude * p.semimajorAxis, Z: c.Height}
}

func (p GeographicProjection) Unproject(v r3.Vector) Cartographic {
	oneOverEarthSemimajorAxis := 1 / p.semimajorAxis
	return Cartographic{
		Longitude: v.X * oneOverEarthSemimajorAxis,
		Latitude:  v.Y * oneOverEarthSemimajorAxis,
		Height:    v.Z,
	}
}
