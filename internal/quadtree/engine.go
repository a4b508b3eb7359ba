package quadtree

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
	"github.com/jaennil/guide_helper/backend/globe/internal/imagery"
	"github.com/jaennil/guide_helper/backend/globe/internal/scene"
	"github.com/jaennil/guide_helper/backend/globe/internal/terrain"
	"github.com/jaennil/guide_helper/backend/globe/pkg/logger"
	"github.com/jaennil/guide_helper/backend/globe/pkg/metrics"
)

type Options struct {
	// MaximumScreenSpaceError is the pixel error above which a tile is refined.
	MaximumScreenSpaceError float64
	// TileCacheSize is the soft limit on tiles kept in the replacement queue.
	TileCacheSize int
	// LoadingDescendantLimit is how many not yet renderable descendants a fallback tile
	// may wait on before it loads alone.
	LoadingDescendantLimit int
	LoadQueueTimeSlice     time.Duration
	MaximumLevel           uint32
}

func DefaultOptions() Options {
	return Options{
		MaximumScreenSpaceError: 2,
		TileCacheSize:           100,
		LoadingDescendantLimit:  20,
		LoadQueueTimeSlice:      5 * time.Millisecond,
		MaximumLevel:            22,
	}
}

// Stats describes the last frame.
type Stats struct {
	Frame                   uint64 `json:"frame"`
	TilesVisited            int    `json:"tiles_visited"`
	TilesCulled             int    `json:"tiles_culled"`
	TilesSelected           int    `json:"tiles_selected"`
	TilesRendered           int    `json:"tiles_rendered"`
	TilesWaitingForChildren int    `json:"tiles_waiting_for_children"`
	MaxDepth                uint32 `json:"max_depth"`
	LoadQueueHigh           int    `json:"load_queue_high"`
	LoadQueueMedium         int    `json:"load_queue_medium"`
	LoadQueueLow            int    `json:"load_queue_low"`
	TilesLoaded             int    `json:"tiles_loaded"`
	TilesResident           int    `json:"tiles_resident"`
	TilesLive               int    `json:"tiles_live"`
	TilesEvicted            int    `json:"tiles_evicted"`
	DiscardedTerrain        int    `json:"discarded_terrain"`
	DiscardedImagery        int    `json:"discarded_imagery"`
}

// Engine owns the quadtree and every resource shared by its tiles. All methods must be
// called from the frame loop goroutine.
type Engine struct {
	opts      Options
	ellipsoid geodesy.Ellipsoid
	terrain   *terrain.Pipeline
	registry  *imagery.Registry
	store     *Store
	queue     *ReplacementQueue
	occluder  *scene.EllipsoidalOccluder
	clock     clock.Clock
	tracer    trace.Tracer
	logger    logger.Logger

	frame         uint64
	camera        scene.Camera
	cullingVolume scene.CullingVolume
	selected      []*Tile
	loadHigh      []*Tile
	loadMedium    []*Tile
	loadLow       []*Tile
	stats         Stats
}

func New(opts Options, pipeline *terrain.Pipeline, registry *imagery.Registry, clk clock.Clock, l logger.Logger) *Engine {
	scheme := pipeline.Provider().Scheme()
	e := &Engine{
		opts:      opts,
		ellipsoid: scheme.Ellipsoid(),
		terrain:   pipeline,
		registry:  registry,
		store:     NewStore(scheme),
		queue:     NewReplacementQueue(),
		occluder:  scene.NewEllipsoidalOccluder(scheme.Ellipsoid()),
		clock:     clk,
		tracer:    otel.Tracer("globe/quadtree"),
		logger:    l,
	}
	registry.Subscribe(e.onLayerEvent)
	return e
}

func (e *Engine) Store() *Store                { return e.store }
func (e *Engine) Queue() *ReplacementQueue     { return e.queue }
func (e *Engine) Registry() *imagery.Registry  { return e.registry }
func (e *Engine) Terrain() *terrain.Pipeline   { return e.terrain }
func (e *Engine) Ellipsoid() geodesy.Ellipsoid { return e.ellipsoid }
func (e *Engine) Stats() Stats                 { return e.stats }
func (e *Engine) FrameNumber() uint64          { return e.frame }

// Selected is the selection of the last Select call, including fallback tiles that are
// not renderable yet.
func (e *Engine) Selected() []*Tile {
	return e.selected
}

// Frame runs one begin/select/end cycle.
func (e *Engine) Frame(ctx context.Context, camera scene.Camera) {
	start := e.clock.Now()
	ctx, span := e.tracer.Start(ctx, "quadtree.frame")
	defer span.End()

	e.BeginFrame(ctx)
	e.Select(ctx, camera)
	e.EndFrame(ctx)

	span.SetAttributes(
		attribute.Int64("frame", int64(e.frame)),
		attribute.Int("tiles.rendered", e.stats.TilesRendered),
		attribute.Int("tiles.resident", e.stats.TilesResident),
	)
	metrics.FrameDuration.Observe(e.clock.Since(start).Seconds())
}

// BeginFrame applies every completed job result, discarding those whose tile or imagery
// is gone, and resets the per frame lists.
func (e *Engine) BeginFrame(_ context.Context) {
	e.frame++
	e.stats = Stats{Frame: e.frame}

	discarded := 0
	for _, r := range e.terrain.Jobs().Poll() {
		t, ok := e.store.Get(r.Address)
		if !ok || t.serial != r.Serial || !e.terrain.Apply(&t.Surface, r) {
			discarded++
		}
	}
	if discarded > 0 {
		metrics.CompletionsDiscarded.WithLabelValues("terrain").Add(float64(discarded))
		e.logger.Debug("discarded terrain completions", "count", discarded, "frame", e.frame)
	}
	e.stats.DiscardedTerrain = discarded
	e.stats.DiscardedImagery = e.registry.Apply(e.registry.Jobs().Poll())

	e.selected = e.selected[:0]
	e.loadHigh = e.loadHigh[:0]
	e.loadMedium = e.loadMedium[:0]
	e.loadLow = e.loadLow[:0]

	e.queue.MarkStartOfFrame()
}

// Select chooses the tiles to render from camera and queues the loads they need.
func (e *Engine) Select(ctx context.Context, camera scene.Camera) {
	_, span := e.tracer.Start(ctx, "quadtree.select")
	defer span.End()

	e.camera = camera
	e.cullingVolume = camera.CullingVolume()
	e.occluder.SetCameraPosition(camera.Position)

	if !e.terrain.Provider().Ready() {
		return
	}
	e.store.CreateRootTiles()
	e.selectTiles()

	for _, t := range e.selected {
		if t.Renderable {
			e.queue.MarkTileRendered(t.Address)
			e.stats.TilesRendered++
		}
	}
	e.stats.TilesSelected = len(e.selected)
	e.stats.LoadQueueHigh = len(e.loadHigh)
	e.stats.LoadQueueMedium = len(e.loadMedium)
	e.stats.LoadQueueLow = len(e.loadLow)

	span.SetAttributes(
		attribute.Int("tiles.visited", e.stats.TilesVisited),
		attribute.Int("tiles.selected", e.stats.TilesSelected),
	)
}

// EndFrame advances queued loads within the time slice and trims the resident set.
func (e *Engine) EndFrame(_ context.Context) {
	e.processLoadQueues()
	e.stats.TilesEvicted = e.queue.Trim(e.opts.TileCacheSize, e.evict)

	e.stats.TilesResident = e.queue.Count()
	e.stats.TilesLive = e.store.Len()
	metrics.TilesResident.Set(float64(e.stats.TilesResident))
	metrics.TilesRendered.Set(float64(e.stats.TilesRendered))
	e.registry.UpdateMetrics()
}

// Close releases every imagery reference held by tiles.
func (e *Engine) Close() {
	e.store.Walk(func(t *Tile) {
		for _, ti := range t.Imagery {
			ti.Free()
		}
		t.Imagery = nil
	})
}
