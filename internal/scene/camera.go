package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
)

const (
	DefaultFovY = math.Pi / 3
	DefaultNear = 1.0
	DefaultFar  = 500000000.0
)

// Camera is a perspective camera in Earth-fixed cartesian coordinates.
type Camera struct {
	Position  r3.Vector
	Direction r3.Vector
	Up        r3.Vector
	Right     r3.Vector

	FovY float64
	Near float64
	Far  float64

	ViewportWidth  int
	ViewportHeight int
	PixelRatio     float64

	PositionCartographic geodesy.Cartographic
}

// NewCamera orthonormalizes direction and up and derives the cartographic position.
func NewCamera(e geodesy.Ellipsoid, position, direction, up r3.Vector, viewportWidth, viewportHeight int) Camera {
	direction = direction.Normalize()
	right := direction.Cross(up).Normalize()
	up = right.Cross(direction).Normalize()

	cartographic, _ := e.CartesianToCartographic(position)

	return Camera{
		Position:             position,
		Direction:            direction,
		Up:                   up,
		Right:                right,
		FovY:                 DefaultFovY,
		Near:                 DefaultNear,
		Far:                  DefaultFar,
		ViewportWidth:        viewportWidth,
		ViewportHeight:       viewportHeight,
		PixelRatio:           1,
		PositionCartographic: cartographic,
	}
}

// NewCameraAt places the camera above position. Pitch tilts the view away from straight
// down toward heading, both in radians; heading zero is north.
func NewCameraAt(e geodesy.Ellipsoid, position geodesy.Cartographic, heading, pitch float64, viewportWidth, viewportHeight int) Camera {
	eye := e.CartographicToCartesian(position)
	normal := e.GeodeticSurfaceNormalCartographic(position)

	east := r3.Vector{Z: 1}.Cross(normal)
	if east.Norm2() < geodesy.Epsilon12 {
		east = r3.Vector{Y: 1}
	}
	east = east.Normalize()
	north := normal.Cross(east).Normalize()

	forward := north.Mul(math.Cos(heading)).Add(east.Mul(math.Sin(heading)))
	direction := normal.Mul(-math.Cos(pitch)).Add(forward.Mul(math.Sin(pitch)))
	up := normal.Mul(math.Sin(pitch)).Add(forward.Mul(math.Cos(pitch)))

	return NewCamera(e, eye, direction, up, viewportWidth, viewportHeight)
}

func (c Camera) AspectRatio() float64 {
	if c.ViewportHeight == 0 {
		return 1
	}
	return float64(c.ViewportWidth) / float64(c.ViewportHeight)
}

// SSEDenominator is 2·tan(fovy/2), the height of the view frustum at unit distance.
func (c Camera) SSEDenominator() float64 {
	return 2 * math.Tan(0.5*c.FovY)
}

func toVec3(v r3.Vector) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// CullingVolume extracts the six frustum planes from the view-projection matrix.
func (c Camera) CullingVolume() CullingVolume {
	eye := toVec3(c.Position)
	view := mgl64.LookAtV(eye, eye.Add(toVec3(c.Direction)), toVec3(c.Up))
	projection := mgl64.Perspective(c.FovY, c.AspectRatio(), c.Near, c.Far)
	m := projection.Mul4(view)

	r0, r1, r2, r3Row := m.Row(0), m.Row(1), m.Row(2), m.Row(3)
	rows := []mgl64.Vec4{
		r3Row.Add(r0),
		r3Row.Sub(r0),
		r3Row.Add(r1),
		r3Row.Sub(r1),
		r3Row.Add(r2),
		r3Row.Sub(r2),
	}

	planes := make([]Plane, 0, len(rows))
	for _, row := range rows {
		normal := r3.Vector{X: row.X(), Y: row.Y(), Z: row.Z()}
		length := normal.Norm()
		planes = append(planes, Plane{Normal: normal.Mul(1 / length), Distance: row.W() / length})
	}
	return CullingVolume{Planes: planes}
}

// ScreenSpaceError estimates how many pixels of error rendering a tile with the given
// geometric error at distance produces.
func (c Camera) ScreenSpaceError(geometricError, distance float64) float64 {
	pixelRatio := c.PixelRatio
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	return (geometricError * float64(c.ViewportHeight)) / (distance * c.SSEDenominator() * pixelRatio)
}
