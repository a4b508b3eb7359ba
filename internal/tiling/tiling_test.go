package tiling

import (
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
)

func TestChildrenOrder(t *testing.T) {
	a := Address{X: 3, Y: 5, Level: 4}
	children := a.Children()

	test.That(t, children[0], test.ShouldResemble, Address{X: 6, Y: 11, Level: 5})
	test.That(t, children[1], test.ShouldResemble, Address{X: 7, Y: 11, Level: 5})
	test.That(t, children[2], test.ShouldResemble, Address{X: 6, Y: 10, Level: 5})
	test.That(t, children[3], test.ShouldResemble, Address{X: 7, Y: 10, Level: 5})

	for i, q := range []Quadrant{Southwest, Southeast, Northwest, Northeast} {
		test.That(t, children[i].Quadrant(), test.ShouldEqual, q)
		parent, ok := children[i].Parent()
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, parent, test.ShouldResemble, a)
		test.That(t, a.IsAncestorOf(children[i]), test.ShouldBeTrue)
	}

	_, ok := Address{}.Parent()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, a.String(), test.ShouldEqual, "4/3/5")
}

func TestGeographicScheme(t *testing.T) {
	s := NewGeographicScheme(geodesy.WGS84)
	test.That(t, s.NumberOfXTilesAtLevel(0), test.ShouldEqual, 2)
	test.That(t, s.NumberOfYTilesAtLevel(0), test.ShouldEqual, 1)
	test.That(t, RootAddresses(s), test.ShouldHaveLength, 2)

	west := s.TileXYToRectangle(0, 0, 0)
	test.That(t, west.West, test.ShouldAlmostEqual, -math.Pi, 1e-12)
	test.That(t, west.East, test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, west.North, test.ShouldAlmostEqual, math.Pi/2, 1e-12)

	native := s.TileXYToNativeRectangle(1, 0, 0)
	test.That(t, native.West, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, native.East, test.ShouldAlmostEqual, 180, 1e-9)
}

func TestSchemePositionRoundTrip(t *testing.T) {
	for _, s := range []Scheme{NewGeographicScheme(geodesy.WGS84), NewWebMercatorScheme(geodesy.WGS84)} {
		t.Run(s.Kind().String(), func(t *testing.T) {
			for level := uint32(0); level < 8; level++ {
				for _, p := range []geodesy.Cartographic{
					geodesy.CartographicFromDegrees(37.6, 55.75, 0),
					geodesy.CartographicFromDegrees(-70.1, -20.3, 0),
					geodesy.CartographicFromDegrees(0.01, 0.01, 0),
				} {
					x, y, ok := s.PositionToTileXY(p, level)
					test.That(t, ok, test.ShouldBeTrue)
					test.That(t, s.TileXYToRectangle(x, y, level).Contains(p), test.ShouldBeTrue)
				}
			}
		})
	}
}

func TestWebMercatorScheme(t *testing.T) {
	s := NewWebMercatorScheme(geodesy.WGS84)
	test.That(t, RootAddresses(s), test.ShouldResemble, []Address{{}})

	root := s.TileXYToRectangle(0, 0, 0)
	test.That(t, root.North, test.ShouldAlmostEqual, geodesy.MaximumLatitude, 1e-12)
	test.That(t, root.South, test.ShouldAlmostEqual, -geodesy.MaximumLatitude, 1e-12)

	// Row zero is the northern half.
	north := s.TileXYToRectangle(0, 0, 1)
	test.That(t, north.South, test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, north.North, test.ShouldAlmostEqual, geodesy.MaximumLatitude, 1e-12)

	_, _, ok := s.PositionToTileXY(geodesy.CartographicFromDegrees(0, 89, 0), 3)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestLevelZeroMaximumGeometricError(t *testing.T) {
	geographic := LevelZeroMaximumGeometricError(NewGeographicScheme(geodesy.WGS84), 64)
	mercator := LevelZeroMaximumGeometricError(NewWebMercatorScheme(geodesy.WGS84), 64)
	test.That(t, mercator, test.ShouldAlmostEqual, 2*geographic, 1e-6)
	test.That(t, geographic, test.ShouldAlmostEqual, geodesy.WGS84.MaximumRadius()*2*math.Pi*0.25/128, 1e-6)
}
