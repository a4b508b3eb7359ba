package imagery

import (
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
	"github.com/jaennil/guide_helper/backend/globe/pkg/logger"
)

func TestCacheReferenceCounting(t *testing.T) {
	cache := NewCache(tiling.NewGeographicScheme(geodesy.WGS84), logger.NewNop())
	leaf := tiling.Address{X: 1, Y: 1, Level: 2}

	im := cache.Acquire(leaf)
	test.That(t, cache.Len(), test.ShouldEqual, 3)
	test.That(t, im.RefCount(), test.ShouldEqual, 1)
	test.That(t, im.Parent().Address, test.ShouldResemble, tiling.Address{X: 0, Y: 0, Level: 1})
	test.That(t, im.Parent().Parent().Parent(), test.ShouldBeNil)

	again := cache.Acquire(leaf)
	test.That(t, again, test.ShouldEqual, im)
	test.That(t, im.RefCount(), test.ShouldEqual, 2)

	test.That(t, cache.Release(im), test.ShouldEqual, 1)
	test.That(t, cache.Len(), test.ShouldEqual, 3)
	test.That(t, cache.Release(im), test.ShouldEqual, 0)
	test.That(t, cache.Len(), test.ShouldEqual, 0)

	increments, decrements := cache.References()
	test.That(t, increments, test.ShouldEqual, 4)
	test.That(t, decrements, test.ShouldEqual, 4)
}

func TestCacheSiblingsShareParent(t *testing.T) {
	cache := NewCache(tiling.NewGeographicScheme(geodesy.WGS84), logger.NewNop())

	a := cache.Acquire(tiling.Address{X: 0, Y: 0, Level: 1})
	b := cache.Acquire(tiling.Address{X: 1, Y: 0, Level: 1})
	test.That(t, a.Parent(), test.ShouldEqual, b.Parent())
	test.That(t, a.Parent().RefCount(), test.ShouldEqual, 2)

	cache.Release(a)
	root, ok := cache.Lookup(tiling.Address{})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, root.RefCount(), test.ShouldEqual, 1)

	cache.Release(b)
	_, ok = cache.Lookup(tiling.Address{})
	test.That(t, ok, test.ShouldBeFalse)
}

func TestTileImageryLoadsToReady(t *testing.T) {
	f := newFixture(tiling.NewGeographicScheme(geodesy.WGS84))
	rect := f.provider.scheme.TileXYToRectangle(0, 0, 0)

	skeletons, ok := f.layer.CreateSkeletons(rect, f.levelZeroSpacing())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, skeletons, test.ShouldHaveLength, 1)
	ti := skeletons[0]
	test.That(t, ti.Loading.Address, test.ShouldResemble, tiling.Address{})
	test.That(t, ti.TextureCoordinateRectangle, test.ShouldResemble, UVRect{MinU: 0, MinV: 0, MaxU: 1, MaxV: 1})

	f.settle(t, ti, rect)

	test.That(t, ti.Loading, test.ShouldBeNil)
	test.That(t, ti.Ready, test.ShouldNotBeNil)
	test.That(t, ti.Ready.State, test.ShouldEqual, StateReady)
	test.That(t, ti.TranslationAndScale, test.ShouldResemble, TranslationAndScale{0, 0, 1, 1})
	test.That(t, ti.Texture().Bounds().Dx(), test.ShouldEqual, fakeTileSize)
	test.That(t, ti.Texture().Bounds().Dy(), test.ShouldEqual, fakeTileSize)
	test.That(t, f.provider.requestCount(tiling.Address{}), test.ShouldEqual, 1)

	ti.Free()
	test.That(t, f.layer.Cache().Len(), test.ShouldEqual, 0)
	increments, decrements := f.layer.Cache().References()
	test.That(t, increments, test.ShouldEqual, decrements)
}

func TestTileImageryFailureFinishesWithoutImagery(t *testing.T) {
	f := newFixture(tiling.NewGeographicScheme(geodesy.WGS84))
	f.provider.failAll = true
	rect := f.provider.scheme.TileXYToRectangle(0, 0, 0)

	skeletons, ok := f.layer.CreateSkeletons(rect, f.levelZeroSpacing())
	test.That(t, ok, test.ShouldBeTrue)
	ti := skeletons[0]

	f.settle(t, ti, rect)
	test.That(t, ti.Ready, test.ShouldBeNil)
	test.That(t, ti.Loading.State, test.ShouldEqual, StateFailed)
	test.That(t, ti.Texture(), test.ShouldBeNil)

	ti.Free()
	test.That(t, f.layer.Cache().Len(), test.ShouldEqual, 0)
}

func TestTileImageryFallsBackToAncestor(t *testing.T) {
	f := newFixture(tiling.NewGeographicScheme(geodesy.WGS84))
	scheme := f.provider.scheme
	address := tiling.Address{X: 0, Y: 0, Level: 1}
	f.provider.unavailable[address] = true
	rect := scheme.TileXYToRectangle(0, 0, 1)

	skeletons, ok := f.layer.CreateSkeletons(rect, f.levelZeroSpacing()/2)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, skeletons, test.ShouldHaveLength, 1)
	ti := skeletons[0]
	test.That(t, ti.Loading.Address, test.ShouldResemble, address)
	test.That(t, f.layer.Cache().Len(), test.ShouldEqual, 2)

	f.settle(t, ti, rect)

	test.That(t, ti.Loading.State, test.ShouldEqual, StateInvalid)
	test.That(t, ti.Ready, test.ShouldEqual, ti.Loading.Parent())
	test.That(t, ti.Ready.Address, test.ShouldResemble, tiling.Address{})
	test.That(t, ti.Ready.RefCount(), test.ShouldEqual, 2)
	for i, want := range []float64{0, 0.5, 0.5, 0.5} {
		test.That(t, ti.TranslationAndScale[i], test.ShouldAlmostEqual, want, 1e-12)
	}
	test.That(t, f.provider.requestCount(tiling.Address{}), test.ShouldEqual, 1)

	ti.Free()
	test.That(t, f.layer.Cache().Len(), test.ShouldEqual, 0)
	increments, decrements := f.layer.Cache().References()
	test.That(t, increments, test.ShouldEqual, decrements)
}

func TestTileImageryReprojectsWebMercator(t *testing.T) {
	f := newFixture(tiling.NewWebMercatorScheme(geodesy.WGS84))
	// Reaching the poles keeps the terrain tile in geographic texture coordinates.
	rect := geodesy.Rectangle{West: -math.Pi, South: -geodesy.PiOver2, East: 0, North: geodesy.PiOver2}

	skeletons, ok := f.layer.CreateSkeletons(rect, f.levelZeroSpacing())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, skeletons, test.ShouldHaveLength, 1)
	ti := skeletons[0]
	test.That(t, ti.UseWebMercatorT, test.ShouldBeFalse)
	im := ti.Loading

	// fetch, then decode
	for range 2 {
		test.That(t, ti.Advance(rect, false), test.ShouldBeFalse)
		f.registry.Apply(f.jobs.Poll())
	}
	test.That(t, im.State, test.ShouldEqual, StateTextureLoaded)
	test.That(t, im.TextureWebMercator, test.ShouldNotBeNil)
	test.That(t, im.Texture, test.ShouldBeNil)

	test.That(t, ti.Advance(rect, false), test.ShouldBeFalse)
	test.That(t, im.State, test.ShouldEqual, StateTransitioning)
	test.That(t, im.RefCount(), test.ShouldEqual, 2)

	test.That(t, f.registry.Apply(f.jobs.Poll()), test.ShouldEqual, 0)
	test.That(t, im.State, test.ShouldEqual, StateReady)
	test.That(t, im.RefCount(), test.ShouldEqual, 1)

	test.That(t, ti.Advance(rect, false), test.ShouldBeTrue)
	test.That(t, ti.Texture(), test.ShouldEqual, im.Texture)
	test.That(t, ti.Texture(), test.ShouldNotEqual, im.TextureWebMercator)

	ti.Free()
	test.That(t, f.layer.Cache().Len(), test.ShouldEqual, 0)
}

func TestTileImageryUsesWebMercatorTexture(t *testing.T) {
	f := newFixture(tiling.NewWebMercatorScheme(geodesy.WGS84))
	rect := geodesy.RectangleFromDegrees(-180, -60, 0, 60)

	skeletons, ok := f.layer.CreateSkeletons(rect, f.levelZeroSpacing())
	test.That(t, ok, test.ShouldBeTrue)
	ti := skeletons[0]
	test.That(t, ti.UseWebMercatorT, test.ShouldBeTrue)

	f.settle(t, ti, rect)
	test.That(t, ti.Ready.Texture, test.ShouldBeNil)
	test.That(t, ti.Texture(), test.ShouldEqual, ti.Ready.TextureWebMercator)
	ti.Free()
}

func TestPlaceholderUntilProviderReady(t *testing.T) {
	f := newFixture(tiling.NewGeographicScheme(geodesy.WGS84))
	f.provider.ready = false
	rect := f.provider.scheme.TileXYToRectangle(0, 0, 0)

	skeletons, ok := f.layer.CreateSkeletons(rect, f.levelZeroSpacing())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, skeletons, test.ShouldHaveLength, 1)
	ti := skeletons[0]
	test.That(t, ti.IsPlaceholder(), test.ShouldBeTrue)
	test.That(t, f.layer.Cache().Len(), test.ShouldEqual, 0)

	test.That(t, ti.Advance(rect, false), test.ShouldBeFalse)
	test.That(t, f.jobs.Submitted(), test.ShouldEqual, 0)

	placeholder := ti.Loading
	ti.Free()
	test.That(t, placeholder.State, test.ShouldEqual, StatePlaceholder)
	test.That(t, placeholder.RefCount(), test.ShouldEqual, 0)

	f.provider.ready = true
	skeletons, ok = f.layer.CreateSkeletons(rect, f.levelZeroSpacing())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, skeletons[0].IsPlaceholder(), test.ShouldBeFalse)
	skeletons[0].Free()
}

func TestSkipLoadingDefersFetch(t *testing.T) {
	f := newFixture(tiling.NewGeographicScheme(geodesy.WGS84))
	rect := f.provider.scheme.TileXYToRectangle(0, 0, 0)
	skeletons, _ := f.layer.CreateSkeletons(rect, f.levelZeroSpacing())
	ti := skeletons[0]

	test.That(t, ti.Advance(rect, true), test.ShouldBeFalse)
	test.That(t, ti.Loading.State, test.ShouldEqual, StateUnloaded)
	test.That(t, f.jobs.Submitted(), test.ShouldEqual, 0)
	ti.Free()
}

func TestStaleResultIsDiscarded(t *testing.T) {
	f := newFixture(tiling.NewGeographicScheme(geodesy.WGS84))
	rect := f.provider.scheme.TileXYToRectangle(0, 0, 0)
	skeletons, _ := f.layer.CreateSkeletons(rect, f.levelZeroSpacing())
	ti := skeletons[0]

	test.That(t, ti.Advance(rect, false), test.ShouldBeFalse)
	test.That(t, ti.Transitioning(), test.ShouldBeTrue)
	ti.Free()

	// The same address comes back as a new incarnation before the old result lands.
	again, _ := f.layer.CreateSkeletons(rect, f.levelZeroSpacing())
	test.That(t, f.registry.Apply(f.jobs.Poll()), test.ShouldEqual, 1)
	test.That(t, again[0].Loading.State, test.ShouldEqual, StateUnloaded)
	again[0].Free()
}

func TestLayerOutsideRectangleHasNoSkeletons(t *testing.T) {
	f := newFixture(tiling.NewGeographicScheme(geodesy.WGS84))
	east := geodesy.RectangleFromDegrees(10, 10, 20, 20)
	overlay := f.registry.NewLayer("overlay", f.provider, LayerOptions{Rectangle: &east})
	test.That(t, overlay.IsBaseLayer(), test.ShouldBeFalse)

	rect := f.provider.scheme.TileXYToRectangle(0, 0, 0)
	skeletons, ok := overlay.CreateSkeletons(rect, f.levelZeroSpacing())
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, skeletons, test.ShouldBeEmpty)

	// The base layer stretches its edge over tiles it does not cover.
	test.That(t, f.registry.Remove(f.layer), test.ShouldBeNil)
	test.That(t, overlay.IsBaseLayer(), test.ShouldBeTrue)
	skeletons, ok = overlay.CreateSkeletons(rect, f.levelZeroSpacing())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, skeletons, test.ShouldNotBeEmpty)
	for _, ti := range skeletons {
		ti.Free()
	}
}
