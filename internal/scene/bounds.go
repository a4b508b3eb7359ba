// Package scene contains the camera model and the bounding-volume, culling and horizon
// occlusion math used to decide which tiles are visible.
package scene

import (
	"math"

	"github.com/golang/geo/r3"
)

type Intersect int

const (
	Outside Intersect = iota
	Intersecting
	Inside
)

type BoundingSphere struct {
	Center r3.Vector
	Radius float64
}

// BoundingSphereFromPoints encloses points with a sphere centered on their axis-aligned
// bounding box.
func BoundingSphereFromPoints(points []r3.Vector) BoundingSphere {
	if len(points) == 0 {
		return BoundingSphere{}
	}

	lo := points[0]
	hi := points[0]
	for _, p := range points[1:] {
		lo = r3.Vector{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vector{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}

	center := lo.Add(hi).Mul(0.5)
	radiusSquared := 0.0
	for _, p := range points {
		radiusSquared = math.Max(radiusSquared, p.Sub(center).Norm2())
	}

	return BoundingSphere{Center: center, Radius: math.Sqrt(radiusSquared)}
}

func (s BoundingSphere) DistanceTo(p r3.Vector) float64 {
	return math.Max(0, s.Center.Distance(p)-s.Radius)
}

// Plane is the set of points p with Normal·p + Distance == 0. Normal is unit length and
// points toward the inside of a culling volume.
type Plane struct {
	Normal   r3.Vector
	Distance float64
}

func (p Plane) SignedDistance(point r3.Vector) float64 {
	return p.Normal.Dot(point) + p.Distance
}

type CullingVolume struct {
	Planes []Plane
}

func (v CullingVolume) ComputeVisibility(s BoundingSphere) Intersect {
	intersecting := false
	for _, plane := range v.Planes {
		d := plane.SignedDistance(s.Center)
		if d < -s.Radius {
			return Outside
		}
		if d < s.Radius {
			intersecting = true
		}
	}
	if intersecting {
		return Intersecting
	}
	return Inside
}
