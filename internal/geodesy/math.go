// Package geodesy holds the ellipsoid, cartographic and projection math shared by the tiling,
// visibility and imagery packages. Angles are radians unless a name says otherwise.
package geodesy

import "math"

const (
	TwoPi   = 2 * math.Pi
	PiOver2 = math.Pi / 2
	PiOver4 = math.Pi / 4

	Epsilon1  = 0.1
	Epsilon5  = 1e-5
	Epsilon7  = 1e-7
	Epsilon10 = 1e-10
	Epsilon12 = 1e-12
	Epsilon14 = 1e-14
)

func ToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func ToDegrees(radians float64) float64 {
	return radians * 180 / math.Pi
}

// ZeroToTwoPi wraps angle into [0, 2π].
func ZeroToTwoPi(angle float64) float64 {
	if angle >= 0 && angle <= TwoPi {
		return angle
	}
	m := math.Mod(math.Mod(angle, TwoPi)+TwoPi, TwoPi)
	if math.Abs(m) < Epsilon14 && math.Abs(angle) > Epsilon14 {
		return TwoPi
	}
	return m
}

// NegativePiToPi wraps angle into [-π, π].
func NegativePiToPi(angle float64) float64 {
	if angle >= -math.Pi && angle <= math.Pi {
		return angle
	}
	return ZeroToTwoPi(angle+math.Pi) - math.Pi
}

func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func EqualsEpsilon(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
