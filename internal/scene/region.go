package scene

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
)

const regionSampleSteps = 5

// TileBoundingRegion bounds a tile's rectangle between a minimum and maximum height and
// answers distance and visibility queries for it.
type TileBoundingRegion struct {
	Rectangle     geodesy.Rectangle
	MinimumHeight float64
	MaximumHeight float64

	BoundingSphere   BoundingSphere
	OccludeePoint    r3.Vector
	HasOccludeePoint bool

	southwestCornerCartesian r3.Vector
	northeastCornerCartesian r3.Vector
	westNormal               r3.Vector
	southNormal              r3.Vector
	eastNormal               r3.Vector
	northNormal              r3.Vector
}

func NewTileBoundingRegion(e geodesy.Ellipsoid, rectangle geodesy.Rectangle, minimumHeight, maximumHeight float64) TileBoundingRegion {
	r := TileBoundingRegion{Rectangle: rectangle}
	r.computeBox(e)
	r.SetHeights(e, minimumHeight, maximumHeight)
	return r
}

// SetHeights updates the height range and recomputes the bounding sphere and occludee
// point when it changed.
func (r *TileBoundingRegion) SetHeights(e geodesy.Ellipsoid, minimumHeight, maximumHeight float64) {
	if r.BoundingSphere.Radius > 0 && r.MinimumHeight == minimumHeight && r.MaximumHeight == maximumHeight {
		return
	}
	r.MinimumHeight = minimumHeight
	r.MaximumHeight = maximumHeight
	r.computeBoundingVolumes(e)
}

func (r *TileBoundingRegion) computeBox(e geodesy.Ellipsoid) {
	rect := r.Rectangle
	r.southwestCornerCartesian = e.CartographicToCartesian(rect.Southwest())
	r.northeastCornerCartesian = e.CartographicToCartesian(rect.Northeast())

	midLatitude := (rect.South + rect.North) * 0.5
	westernMidpoint := e.CartographicToCartesian(geodesy.Cartographic{Longitude: rect.West, Latitude: midLatitude})
	r.westNormal = westernMidpoint.Cross(r3.Vector{Z: 1}).Normalize()

	easternMidpoint := e.CartographicToCartesian(geodesy.Cartographic{Longitude: rect.East, Latitude: midLatitude})
	r.eastNormal = r3.Vector{Z: 1}.Cross(easternMidpoint).Normalize()

	westVector := westernMidpoint.Sub(easternMidpoint)
	if westVector.Norm2() < geodesy.Epsilon12 {
		// Full-width rectangles have coincident east and west midpoints.
		westVector = r.westNormal
	}

	southSurfaceNormal := e.GeodeticSurfaceNormalCartographic(rect.Southeast())
	r.southNormal = southSurfaceNormal.Cross(westVector).Normalize()

	northSurfaceNormal := e.GeodeticSurfaceNormalCartographic(rect.Northwest())
	r.northNormal = westVector.Cross(northSurfaceNormal).Normalize()
}

func (r *TileBoundingRegion) computeBoundingVolumes(e geodesy.Ellipsoid) {
	samples := append(
		r.Rectangle.Subsample(r.MinimumHeight, regionSampleSteps),
		r.Rectangle.Subsample(r.MaximumHeight, regionSampleSteps)...,
	)
	points := make([]r3.Vector, len(samples))
	for i, s := range samples {
		points[i] = e.CartographicToCartesian(s)
	}
	r.BoundingSphere = BoundingSphereFromPoints(points)

	rect := r.Rectangle
	corners := []r3.Vector{
		e.CartographicToCartesian(geodesy.Cartographic{Longitude: rect.West, Latitude: rect.South, Height: r.MaximumHeight}),
		e.CartographicToCartesian(geodesy.Cartographic{Longitude: rect.East, Latitude: rect.South, Height: r.MaximumHeight}),
		e.CartographicToCartesian(geodesy.Cartographic{Longitude: rect.West, Latitude: rect.North, Height: r.MaximumHeight}),
		e.CartographicToCartesian(geodesy.Cartographic{Longitude: rect.East, Latitude: rect.North, Height: r.MaximumHeight}),
	}
	r.OccludeePoint, r.HasOccludeePoint = HorizonCullingPoint(e, r.BoundingSphere.Center, corners, r.MinimumHeight)
}

// DistanceToCamera returns the distance from the camera to the closest point of the
// region, zero when the camera is inside it.
func (r TileBoundingRegion) DistanceToCamera(c Camera) float64 {
	result := 0.0

	if !r.Rectangle.Contains(c.PositionCartographic) {
		fromSouthwest := c.Position.Sub(r.southwestCornerCartesian)
		distanceToWestPlane := fromSouthwest.Dot(r.westNormal)
		distanceToSouthPlane := fromSouthwest.Dot(r.southNormal)

		fromNortheast := c.Position.Sub(r.northeastCornerCartesian)
		distanceToEastPlane := fromNortheast.Dot(r.eastNormal)
		distanceToNorthPlane := fromNortheast.Dot(r.northNormal)

		if distanceToWestPlane > 0 {
			result += distanceToWestPlane * distanceToWestPlane
		} else if distanceToEastPlane > 0 {
			result += distanceToEastPlane * distanceToEastPlane
		}

		if distanceToSouthPlane > 0 {
			result += distanceToSouthPlane * distanceToSouthPlane
		} else if distanceToNorthPlane > 0 {
			result += distanceToNorthPlane * distanceToNorthPlane
		}
	}

	cameraHeight := c.PositionCartographic.Height
	if cameraHeight > r.MaximumHeight {
		d := cameraHeight - r.MaximumHeight
		result += d * d
	} else if cameraHeight < r.MinimumHeight {
		d := r.MinimumHeight - cameraHeight
		result += d * d
	}

	return math.Sqrt(result)
}
