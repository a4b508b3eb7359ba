package quadtree

import (
	"bytes"
	"context"
	"image/color"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/disintegration/imaging"
	"go.viam.com/test"

	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
	"github.com/jaennil/guide_helper/backend/globe/internal/imagery"
	"github.com/jaennil/guide_helper/backend/globe/internal/scene"
	"github.com/jaennil/guide_helper/backend/globe/internal/terrain"
	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
	"github.com/jaennil/guide_helper/backend/globe/internal/worker"
	"github.com/jaennil/guide_helper/backend/globe/pkg/logger"
)

const (
	imageryTileSize = 256
	// farHeight is high enough for the roots alone to meet the screen space error.
	farHeight = 40_000_000
)

// solidImagery serves one solid tile for every address.
type solidImagery struct {
	scheme tiling.Scheme
	png    []byte
}

func newSolidImagery(scheme tiling.Scheme) *solidImagery {
	var buf bytes.Buffer
	img := imaging.New(imageryTileSize, imageryTileSize, color.NRGBA{G: 128, A: 255})
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		panic(err)
	}
	return &solidImagery{scheme: scheme, png: buf.Bytes()}
}

func (p *solidImagery) Ready() bool                  { return true }
func (p *solidImagery) Scheme() tiling.Scheme        { return p.scheme }
func (p *solidImagery) Rectangle() geodesy.Rectangle { return p.scheme.Rectangle() }
func (p *solidImagery) TileWidth() int               { return imageryTileSize }
func (p *solidImagery) TileHeight() int              { return imageryTileSize }
func (p *solidImagery) MinimumLevel() uint32         { return 0 }
func (p *solidImagery) MaximumLevel() uint32         { return 18 }

func (p *solidImagery) RequestImage(context.Context, tiling.Address) (imagery.RawImage, error) {
	return imagery.RawImage{Data: p.png, ContentType: "image/png"}, nil
}

type harness struct {
	engine   *Engine
	registry *imagery.Registry
	scheme   tiling.Scheme
}

func newHarness(opts Options) *harness {
	scheme := tiling.NewGeographicScheme(geodesy.WGS84)
	provider := terrain.NewEllipsoidProvider(scheme)
	builder := terrain.NewHeightmapMeshBuilder(terrain.NewIndexCache(), provider.LevelMaximumGeometricError)
	pipeline := terrain.NewPipeline(provider, builder, worker.NewInline[terrain.Result](), logger.NewNop())
	registry := imagery.NewRegistry(worker.NewInline[imagery.Result](), logger.NewNop())
	return &harness{
		engine:   New(opts, pipeline, registry, clock.NewMock(), logger.NewNop()),
		registry: registry,
		scheme:   scheme,
	}
}

func cameraAbove(longitude, latitude, height float64) scene.Camera {
	position := geodesy.Cartographic{
		Longitude: geodesy.ToRadians(longitude),
		Latitude:  geodesy.ToRadians(latitude),
		Height:    height,
	}
	return scene.NewCameraAt(geodesy.WGS84, position, 0, 0, 1280, 720)
}

func (h *harness) frames(n int, camera scene.Camera) {
	for range n {
		h.engine.Frame(context.Background(), camera)
	}
}

func (h *harness) root(x uint32) *Tile {
	t, _ := h.engine.Store().Get(tiling.Address{X: x})
	return t
}

func TestStoreChildren(t *testing.T) {
	s := NewStore(tiling.NewGeographicScheme(geodesy.WGS84))
	roots := s.CreateRootTiles()
	test.That(t, roots, test.ShouldHaveLength, 2)
	test.That(t, s.CreateRootTiles(), test.ShouldResemble, roots)
	test.That(t, roots[0].Children(), test.ShouldBeNil)

	children := s.GetOrCreateChildren(roots[0])
	test.That(t, children, test.ShouldHaveLength, 4)
	test.That(t, children[0].Address, test.ShouldResemble, roots[0].Address.Southwest())
	test.That(t, children[1].Address, test.ShouldResemble, roots[0].Address.Southeast())
	test.That(t, children[2].Address, test.ShouldResemble, roots[0].Address.Northwest())
	test.That(t, children[3].Address, test.ShouldResemble, roots[0].Address.Northeast())
	for _, c := range children {
		test.That(t, c.Parent(), test.ShouldEqual, roots[0])
		test.That(t, c.State, test.ShouldEqual, LoadStart)
	}
	test.That(t, s.GetOrCreateChildren(roots[0])[0], test.ShouldEqual, children[0])

	s.GetOrCreateChildren(children[2])
	test.That(t, s.Len(), test.ShouldEqual, 10)
	test.That(t, s.Descendants(roots[0]), test.ShouldHaveLength, 8)

	serial := children[2].Serial()
	removed := s.RemoveChildren(roots[0])
	test.That(t, removed, test.ShouldHaveLength, 8)
	test.That(t, roots[0].Children(), test.ShouldBeNil)
	test.That(t, s.Len(), test.ShouldEqual, 2)

	again := s.GetOrCreateChildren(roots[0])
	test.That(t, again[2].Serial(), test.ShouldBeGreaterThan, serial)
}

func TestTileEligibleForUnloading(t *testing.T) {
	tile := newTile(tiling.Address{}, geodesy.MaxRectangle, nil, 1)
	test.That(t, tile.EligibleForUnloading(), test.ShouldBeTrue)

	tile.Surface.State = terrain.StateReceiving
	test.That(t, tile.EligibleForUnloading(), test.ShouldBeFalse)
	tile.Surface.State = terrain.StateTransforming
	test.That(t, tile.EligibleForUnloading(), test.ShouldBeFalse)
	tile.Surface.State = terrain.StateReady
	test.That(t, tile.EligibleForUnloading(), test.ShouldBeTrue)
}

func TestRootsLoadAndRender(t *testing.T) {
	h := newHarness(DefaultOptions())
	camera := cameraAbove(0, 0, farHeight)

	h.frames(1, camera)
	test.That(t, h.engine.Store().Len(), test.ShouldEqual, 2)
	test.That(t, h.engine.Stats().TilesSelected, test.ShouldBeGreaterThan, 0)
	test.That(t, h.engine.Stats().TilesRendered, test.ShouldEqual, 0)
	test.That(t, h.engine.RenderSet(), test.ShouldBeEmpty)

	h.frames(5, camera)
	stats := h.engine.Stats()
	test.That(t, stats.Frame, test.ShouldEqual, 6)
	test.That(t, stats.TilesRendered, test.ShouldEqual, 2)
	test.That(t, stats.TilesResident, test.ShouldEqual, 2)
	test.That(t, stats.MaxDepth, test.ShouldEqual, 0)

	for _, x := range []uint32{0, 1} {
		root := h.root(x)
		test.That(t, root.State, test.ShouldEqual, LoadDone)
		test.That(t, root.Renderable, test.ShouldBeTrue)
		test.That(t, root.UpsampledFromParent, test.ShouldBeFalse)
		selection, frame := root.LastSelection()
		test.That(t, selection, test.ShouldEqual, SelectionRendered)
		test.That(t, frame, test.ShouldEqual, 6)
	}

	renderSet := h.engine.RenderSet()
	test.That(t, renderSet, test.ShouldHaveLength, 2)
	for _, rt := range renderSet {
		test.That(t, rt.Mesh, test.ShouldNotBeNil)
		test.That(t, rt.Imagery, test.ShouldBeEmpty)
	}
}

func TestRefinementNeverLeavesHoles(t *testing.T) {
	h := newHarness(DefaultOptions())
	far := cameraAbove(10, 10, farHeight)
	near := cameraAbove(10, 10, 300_000)

	h.frames(5, far)
	test.That(t, h.engine.Stats().TilesRendered, test.ShouldEqual, 2)

	for range 40 {
		h.frames(1, near)
		test.That(t, h.engine.RenderSet(), test.ShouldNotBeEmpty)
		for _, tile := range h.engine.Selected() {
			test.That(t, tile.Renderable, test.ShouldBeTrue)
		}
	}

	stats := h.engine.Stats()
	test.That(t, stats.MaxDepth, test.ShouldBeGreaterThan, 2)
	test.That(t, stats.TilesCulled, test.ShouldBeGreaterThan, 0)

	// Every selected tile is a leaf of this frame's traversal.
	for _, tile := range h.engine.Selected() {
		for ancestor := tile.Parent(); ancestor != nil; ancestor = ancestor.Parent() {
			selection, frame := ancestor.LastSelection()
			test.That(t, frame, test.ShouldEqual, stats.Frame)
			test.That(t, selection, test.ShouldEqual, SelectionRefined)
		}
	}
}

func TestRefinedParentStandsInForChildren(t *testing.T) {
	h := newHarness(DefaultOptions())
	near := cameraAbove(10, 10, 300_000)

	// Roots load first, and become refinable once their grids arrive.
	for h.root(0) == nil || !h.root(0).Renderable {
		h.frames(1, near)
	}
	h.frames(1, near)

	children := h.root(1).Children()
	test.That(t, children, test.ShouldHaveLength, 4)
	test.That(t, h.root(1).Renderable, test.ShouldBeTrue)
	selection, _ := h.root(1).LastSelection()
	test.That(t, selection, test.ShouldEqual, SelectionRendered)
	test.That(t, h.engine.Stats().TilesWaitingForChildren, test.ShouldBeGreaterThan, 0)

	kicked := 0
	for _, c := range children {
		if s, frame := c.LastSelection(); s == SelectionKicked && frame == h.engine.FrameNumber() {
			kicked++
		}
	}
	test.That(t, kicked, test.ShouldBeGreaterThan, 0)
}

func TestEvictionTrimsUnvisitedTiles(t *testing.T) {
	opts := DefaultOptions()
	opts.TileCacheSize = 4
	h := newHarness(opts)

	h.frames(40, cameraAbove(10, 10, 300_000))
	live := h.engine.Store().Len()
	test.That(t, live, test.ShouldBeGreaterThan, 10)

	evicted := 0
	far := cameraAbove(10, 10, farHeight)
	for range 5 {
		h.frames(1, far)
		evicted += h.engine.Stats().TilesEvicted
	}
	test.That(t, evicted, test.ShouldBeGreaterThan, 0)
	test.That(t, h.engine.Queue().Count(), test.ShouldBeLessThanOrEqualTo, opts.TileCacheSize)
	test.That(t, h.engine.Stats().TilesRendered, test.ShouldEqual, 2)

	// Roots are rendered every frame and never trimmed.
	test.That(t, h.engine.Queue().Contains(tiling.Address{X: 0}), test.ShouldBeTrue)
	test.That(t, h.engine.Queue().Contains(tiling.Address{X: 1}), test.ShouldBeTrue)
	test.That(t, h.engine.Store().Len(), test.ShouldBeLessThan, live)
}

func TestVisitedTilesAreNotEvicted(t *testing.T) {
	h := newHarness(DefaultOptions())
	camera := cameraAbove(0, 0, farHeight)
	h.frames(6, camera)

	h.engine.BeginFrame(context.Background())
	h.engine.Select(context.Background(), camera)
	ok, _ := h.engine.evict(tiling.Address{X: 0})
	test.That(t, ok, test.ShouldBeFalse)
	h.engine.EndFrame(context.Background())

	// Not visited in the frame that is now running.
	h.engine.BeginFrame(context.Background())
	ok, dropped := h.engine.evict(tiling.Address{X: 0})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, dropped, test.ShouldBeEmpty)
	test.That(t, h.root(0).State, test.ShouldEqual, LoadStart)
	test.That(t, h.root(0).Renderable, test.ShouldBeFalse)
}

func TestLayerEvents(t *testing.T) {
	h := newHarness(DefaultOptions())
	camera := cameraAbove(0, 0, farHeight)
	h.frames(6, camera)

	base := h.registry.NewLayer("base", newSolidImagery(h.scheme), imagery.LayerOptions{})
	for _, x := range []uint32{0, 1} {
		root := h.root(x)
		test.That(t, root.Imagery, test.ShouldHaveLength, 1)
		test.That(t, root.State, test.ShouldEqual, LoadLoading)
		// Roots keep rendering while the new layer loads.
		test.That(t, root.Renderable, test.ShouldBeTrue)
	}

	h.frames(6, camera)
	renderSet := h.engine.RenderSet()
	test.That(t, renderSet, test.ShouldHaveLength, 2)
	for _, rt := range renderSet {
		test.That(t, rt.Imagery, test.ShouldHaveLength, 1)
		test.That(t, rt.Imagery[0].Layer, test.ShouldEqual, base.ID())
		test.That(t, rt.Imagery[0].Texture.Bounds().Dx(), test.ShouldEqual, imageryTileSize)
	}
	test.That(t, h.root(0).State, test.ShouldEqual, LoadDone)

	top := h.registry.NewLayer("top", newSolidImagery(h.scheme), imagery.LayerOptions{})
	test.That(t, h.root(0).Imagery, test.ShouldHaveLength, 2)
	test.That(t, h.root(0).Imagery[1].Layer(), test.ShouldEqual, top)

	test.That(t, h.registry.LowerToBottom(top), test.ShouldBeNil)
	test.That(t, h.root(0).Imagery[0].Layer(), test.ShouldEqual, top)
	test.That(t, h.root(0).Imagery[1].Layer(), test.ShouldEqual, base)

	test.That(t, h.registry.SetShow(base, false), test.ShouldBeNil)
	for _, x := range []uint32{0, 1} {
		test.That(t, h.root(x).Imagery, test.ShouldHaveLength, 1)
		test.That(t, h.root(x).Imagery[0].Layer(), test.ShouldEqual, top)
	}
	test.That(t, base.Cache().Len(), test.ShouldEqual, 0)

	test.That(t, h.registry.Remove(top), test.ShouldBeNil)
	test.That(t, h.root(0).Imagery, test.ShouldBeEmpty)

	h.engine.Close()
	increments, decrements := top.Cache().References()
	test.That(t, increments, test.ShouldEqual, decrements)
}

func TestHiddenLayerIsNotRendered(t *testing.T) {
	h := newHarness(DefaultOptions())
	camera := cameraAbove(0, 0, farHeight)
	layer := h.registry.NewLayer("base", newSolidImagery(h.scheme), imagery.LayerOptions{})
	h.frames(8, camera)
	test.That(t, h.engine.RenderSet()[0].Imagery, test.ShouldHaveLength, 1)

	params := layer.Params()
	params.Alpha = 0
	layer.SetParams(params)
	test.That(t, h.engine.RenderSet()[0].Imagery, test.ShouldBeEmpty)
}
