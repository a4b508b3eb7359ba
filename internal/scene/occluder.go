package scene

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
)

// EllipsoidalOccluder tests whether points are hidden behind the horizon of an ellipsoid
// as seen from the camera. See https://cesium.com/blog/2013/04/25/Horizon-culling/.
type EllipsoidalOccluder struct {
	ellipsoid                          geodesy.Ellipsoid
	cameraPosition                     r3.Vector
	cameraPositionInScaledSpace        r3.Vector
	distanceToLimbInScaledSpaceSquared float64
}

func NewEllipsoidalOccluder(e geodesy.Ellipsoid) *EllipsoidalOccluder {
	return &EllipsoidalOccluder{ellipsoid: e}
}

func (o *EllipsoidalOccluder) Ellipsoid() geodesy.Ellipsoid {
	return o.ellipsoid
}

func (o *EllipsoidalOccluder) SetCameraPosition(p r3.Vector) {
	cv := o.ellipsoid.TransformPositionToScaledSpace(p)
	o.cameraPosition = p
	o.cameraPositionInScaledSpace = cv
	o.distanceToLimbInScaledSpaceSquared = cv.Norm2() - 1
}

func (o *EllipsoidalOccluder) IsScaledSpacePointVisible(occludee r3.Vector) bool {
	return isScaledSpacePointVisible(occludee, o.cameraPositionInScaledSpace, o.distanceToLimbInScaledSpaceSquared)
}

// IsScaledSpacePointVisiblePossiblyUnderEllipsoid accounts for terrain below the
// ellipsoid surface by shrinking the ellipsoid by minimumHeight.
func (o *EllipsoidalOccluder) IsScaledSpacePointVisiblePossiblyUnderEllipsoid(occludee r3.Vector, minimumHeight float64) bool {
	e := o.ellipsoid
	if minimumHeight < 0 && e.MinimumRadius() > -minimumHeight {
		cv := r3.Vector{
			X: o.cameraPosition.X / (e.Radii.X + minimumHeight),
			Y: o.cameraPosition.Y / (e.Radii.Y + minimumHeight),
			Z: o.cameraPosition.Z / (e.Radii.Z + minimumHeight),
		}
		return isScaledSpacePointVisible(occludee, cv, cv.Norm2()-1)
	}
	return o.IsScaledSpacePointVisible(occludee)
}

func isScaledSpacePointVisible(occludee, cv r3.Vector, vhMagnitudeSquared float64) bool {
	vt := occludee.Sub(cv)
	vtDotVc := -vt.Dot(cv)

	var occluded bool
	if vhMagnitudeSquared < 0 {
		occluded = vtDotVc > 0
	} else {
		occluded = vtDotVc > vhMagnitudeSquared && (vtDotVc*vtDotVc)/vt.Norm2() > vhMagnitudeSquared
	}
	return !occluded
}

// HorizonCullingPoint computes a scaled-space point along directionToPoint that is
// occluded only when every one of positions is occluded. ok is false when no such point
// exists, e.g. for tiles spanning more than a hemisphere.
func HorizonCullingPoint(e geodesy.Ellipsoid, directionToPoint r3.Vector, positions []r3.Vector, minimumHeight float64) (r3.Vector, bool) {
	e = possiblyShrunkEllipsoid(e, minimumHeight)

	scaledDirection := directionToPoint
	if directionToPoint.Norm2() != 0 {
		scaledDirection = e.TransformPositionToScaledSpace(directionToPoint).Normalize()
	}

	resultMagnitude := 0.0
	for _, p := range positions {
		candidate := computeMagnitude(e, p, scaledDirection)
		if candidate < 0 {
			return r3.Vector{}, false
		}
		resultMagnitude = math.Max(resultMagnitude, candidate)
	}

	if resultMagnitude <= 0 || math.IsInf(resultMagnitude, 0) || math.IsNaN(resultMagnitude) {
		return r3.Vector{}, false
	}
	return scaledDirection.Mul(resultMagnitude), true
}

func possiblyShrunkEllipsoid(e geodesy.Ellipsoid, minimumHeight float64) geodesy.Ellipsoid {
	if minimumHeight < 0 && e.MinimumRadius() > -minimumHeight {
		return geodesy.NewEllipsoid(e.Radii.X+minimumHeight, e.Radii.Y+minimumHeight, e.Radii.Z+minimumHeight)
	}
	return e
}

func computeMagnitude(e geodesy.Ellipsoid, position, scaledDirection r3.Vector) float64 {
	scaled := e.TransformPositionToScaledSpace(position)
	magnitudeSquared := scaled.Norm2()
	magnitude := math.Sqrt(magnitudeSquared)
	direction := scaled.Mul(1 / magnitude)

	// Points below the ellipsoid are treated as lying on it.
	magnitudeSquared = math.Max(1, magnitudeSquared)
	magnitude = math.Max(1, magnitude)

	cosAlpha := direction.Dot(scaledDirection)
	sinAlpha := direction.Cross(scaledDirection).Norm()
	cosBeta := 1 / magnitude
	sinBeta := math.Sqrt(magnitudeSquared-1) * cosBeta

	return 1 / (cosAlpha*cosBeta - sinAlpha*sinBeta)
}
