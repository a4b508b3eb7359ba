package geodesy

import (
	"math"

	"github.com/golang/geo/r3"
)

// Ellipsoid is a triaxial ellipsoid centered at the origin.
type Ellipsoid struct {
	Radii r3.Vector

	radiiSquared        r3.Vector
	oneOverRadii        r3.Vector
	oneOverRadiiSquared r3.Vector
	minimumRadius       float64
	maximumRadius       float64
}

var (
	WGS84      = NewEllipsoid(6378137.0, 6378137.0, 6356752.3142451793)
	UnitSphere = NewEllipsoid(1, 1, 1)
)

func NewEllipsoid(x, y, z float64) Ellipsoid {
	return Ellipsoid{
		Radii:               r3.Vector{X: x, Y: y, Z: z},
		radiiSquared:        r3.Vector{X: x * x, Y: y * y, Z: z * z},
		oneOverRadii:        r3.Vector{X: 1 / x, Y: 1 / y, Z: 1 / z},
		oneOverRadiiSquared: r3.Vector{X: 1 / (x * x), Y: 1 / (y * y), Z: 1 / (z * z)},
		minimumRadius:       math.Min(x, math.Min(y, z)),
		maximumRadius:       math.Max(x, math.Max(y, z)),
	}
}

func (e Ellipsoid) MinimumRadius() float64 { return e.minimumRadius }
func (e Ellipsoid) MaximumRadius() float64 { return e.maximumRadius }

func (e Ellipsoid) OneOverRadii() r3.Vector { return e.oneOverRadii }

// MulComponents multiplies a and b component-wise.
func MulComponents(a, b r3.Vector) r3.Vector {
	return r3.Vector{X: a.X * b.X, Y: a.Y * b.Y, Z: a.Z * b.Z}
}

func (e Ellipsoid) GeodeticSurfaceNormalCartographic(c Cartographic) r3.Vector {
	cosLatitude := math.Cos(c.Latitude)
	return r3.Vector{
		X: cosLatitude * math.Cos(c.Longitude),
		Y: cosLatitude * math.Sin(c.Longitude),
		Z: math.Sin(c.Latitude),
	}.Normalize()
}

func (e Ellipsoid) GeodeticSurfaceNormal(p r3.Vector) r3.Vector {
	return MulComponents(p, e.oneOverRadiiSquared).Normalize()
}

func (e Ellipsoid) CartographicToCartesian(c Cartographic) r3.Vector {
	n := e.GeodeticSurfaceNormalCartographic(c)
	k := MulComponents(e.radiiSquared, n)
	gamma := math.Sqrt(n.Dot(k))
	k = k.Mul(1 / gamma)
	return k.Add(n.Mul(c.Height))
}

// CartesianToCartographic returns false for points too close to the center to have a
// well defined geodetic position.
func (e Ellipsoid) CartesianToCartographic(p r3.Vector) (Cartographic, bool) {
	surface, ok := e.ScaleToGeodeticSurface(p)
	if !ok {
		return Cartographic{}, false
	}
	n := e.GeodeticSurfaceNormal(surface)
	h := p.Sub(surface)

	height := h.Norm()
	if h.Dot(p) < 0 {
		height = -height
	}

	return Cartographic{
		Longitude: math.Atan2(n.Y, n.X),
		Latitude:  math.Asin(n.Z),
		Height:    height,
	}, true
}

// ScaleToGeodeticSurface projects p along the geodetic normal onto the surface using
// Newton iteration.
func (e Ellipsoid) ScaleToGeodeticSurface(p r3.Vector) (r3.Vector, bool) {
	x2 := p.X * p.X * e.oneOverRadii.X * e.oneOverRadii.X
	y2 := p.Y * p.Y * e.oneOverRadii.Y * e.oneOverRadii.Y
	z2 := p.Z * p.Z * e.oneOverRadii.Z * e.oneOverRadii.Z

	squaredNorm := x2 + y2 + z2
	ratio := math.Sqrt(1 / squaredNorm)
	intersection := p.Mul(ratio)

	if squaredNorm < Epsilon1 {
		if math.IsInf(ratio, 0) || math.IsNaN(ratio) {
			return r3.Vector{}, false
		}
		return intersection, true
	}

	gradient := r3.Vector{
		X: intersection.X * e.oneOverRadiiSquared.X * 2,
		Y: intersection.Y * e.oneOverRadiiSquared.Y * 2,
		Z: intersection.Z * e.oneOverRadiiSquared.Z * 2,
	}

	lambda := ((1 - ratio) * p.Norm()) / (0.5 * gradient.Norm())
	correction := 0.0

	var xMultiplier, yMultiplier, zMultiplier float64
	for range 64 {
		lambda -= correction

		xMultiplier = 1 / (1 + lambda*e.oneOverRadiiSquared.X)
		yMultiplier = 1 / (1 + lambda*e.oneOverRadiiSquared.Y)
		zMultiplier = 1 / (1 + lambda*e.oneOverRadiiSquared.Z)

		xMultiplier2 := xMultiplier * xMultiplier
		yMultiplier2 := yMultiplier * yMultiplier
		zMultiplier2 := zMultiplier * zMultiplier

		fn := x2*xMultiplier2 + y2*yMultiplier2 + z2*zMultiplier2 - 1
		if math.Abs(fn) <= Epsilon12 {
			break
		}

		denominator := x2*xMultiplier2*xMultiplier*e.oneOverRadiiSquared.X +
			y2*yMultiplier2*yMultiplier*e.oneOverRadiiSquared.Y +
			z2*zMultiplier2*zMultiplier*e.oneOverRadiiSquared.Z

		correction = fn / (-2 * denominator)
	}

	return r3.Vector{X: p.X * xMultiplier, Y: p.Y * yMultiplier, Z: p.Z * zMultiplier}, true
}

func (e Ellipsoid) TransformPositionToScaledSpace(p r3.Vector) r3.Vector {
	return MulComponents(p, e.oneOverRadii)
}
