package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
	"github.com/jaennil/guide_helper/backend/globe/internal/imagery"
	"github.com/jaennil/guide_helper/backend/globe/internal/quadtree"
	"github.com/jaennil/guide_helper/backend/globe/internal/scene"
	"github.com/jaennil/guide_helper/backend/globe/pkg/logger"
	"github.com/jaennil/guide_helper/backend/globe/pkg/metrics"
)

var ErrLoopStopped = errors.New("frame loop is not running")

// CameraView places the camera in degrees and meters above the ellipsoid.
type CameraView struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Height    float64 `json:"height"`
	Heading   float64 `json:"heading"`
	Pitch     float64 `json:"pitch"`
}

func DefaultCameraView() CameraView {
	return CameraView{Height: 20_000_000}
}

func (v CameraView) cartographic() geodesy.Cartographic {
	return geodesy.Cartographic{
		Longitude: geodesy.ToRadians(v.Longitude),
		Latitude:  geodesy.ToRadians(v.Latitude),
		Height:    v.Height,
	}
}

func (v CameraView) toScene(e geodesy.Ellipsoid, viewportWidth, viewportHeight int) scene.Camera {
	return scene.NewCameraAt(e, v.cartographic(), geodesy.ToRadians(v.Heading), geodesy.ToRadians(v.Pitch), viewportWidth, viewportHeight)
}

type LayerView struct {
	ID        uuid.UUID            `json:"id"`
	Name      string               `json:"name"`
	Index     int                  `json:"index"`
	Show      bool                 `json:"show"`
	BaseLayer bool                 `json:"base_layer"`
	Ready     bool                 `json:"ready"`
	Resident  int                  `json:"resident_imagery"`
	Params    imagery.VisualParams `json:"params"`
}

// LayerUpdate changes only the fields that are set.
type LayerUpdate struct {
	Show  *bool
	Alpha *float64
}

type TileImageryView struct {
	Layer                      uuid.UUID                   `json:"layer"`
	Width                      int                         `json:"width"`
	Height                     int                         `json:"height"`
	TranslationAndScale        imagery.TranslationAndScale `json:"translation_and_scale"`
	TextureCoordinateRectangle imagery.UVRect              `json:"texture_coordinate_rectangle"`
	UseWebMercatorT            bool                        `json:"use_web_mercator_t"`
	Alpha                      float64                     `json:"alpha"`
}

type TileView struct {
	Address       string            `json:"address"`
	Level         uint32            `json:"level"`
	X             uint32            `json:"x"`
	Y             uint32            `json:"y"`
	Vertices      int               `json:"vertices"`
	MinimumHeight float64           `json:"minimum_height"`
	MaximumHeight float64           `json:"maximum_height"`
	Imagery       []TileImageryView `json:"imagery"`
}

// Snapshot is what the frame loop publishes after each frame.
type Snapshot struct {
	Frame  uint64         `json:"frame"`
	Time   time.Time      `json:"time"`
	Camera CameraView     `json:"camera"`
	Stats  quadtree.Stats `json:"stats"`
	Tiles  []TileView     `json:"tiles"`
}

type command struct {
	name  string
	apply func() error
	reply chan error
}

// GlobeUseCase drives the engine from a single goroutine. Camera and layer changes are
// handed to that goroutine as commands; readers see the last published snapshot.
type GlobeUseCase struct {
	engine         *quadtree.Engine
	registry       *imagery.Registry
	clock          clock.Clock
	interval       time.Duration
	viewportWidth  int
	viewportHeight int
	commands       chan command
	stopped        chan struct{}
	logger         logger.Logger

	// camera is owned by the loop goroutine.
	camera CameraView

	mu          sync.RWMutex
	snapshot    Snapshot
	layers      []LayerView
	subscribers map[chan Snapshot]struct{}
}

func NewGlobeUseCase(engine *quadtree.Engine, clk clock.Clock, interval time.Duration, viewportWidth, viewportHeight int, l logger.Logger) *GlobeUseCase {
	uc := &GlobeUseCase{
		engine:         engine,
		registry:       engine.Registry(),
		clock:          clk,
		interval:       interval,
		viewportWidth:  viewportWidth,
		viewportHeight: viewportHeight,
		commands:       make(chan command),
		stopped:        make(chan struct{}),
		logger:         l,
		camera:         DefaultCameraView(),
		subscribers:    make(map[chan Snapshot]struct{}),
	}
	uc.snapshot.Camera = uc.camera
	uc.publishLayers()
	return uc
}

// Run renders a frame every interval until ctx is done. It must be called once.
func (uc *GlobeUseCase) Run(ctx context.Context) error {
	defer close(uc.stopped)
	defer uc.closeSubscribers()

	ticker := uc.clock.Ticker(uc.interval)
	defer ticker.Stop()

	uc.logger.Info("frame loop started", "interval", uc.interval)
	for {
		select {
		case <-ctx.Done():
			uc.logger.Info("frame loop stopped", "frame", uc.engine.FrameNumber())
			return nil
		case cmd := <-uc.commands:
			metrics.FrameCommands.WithLabelValues(cmd.name).Inc()
			cmd.reply <- cmd.apply()
		case <-ticker.C:
			uc.Step(ctx)
		}
	}
}

// Step renders one frame and publishes its snapshot. Only the goroutine running Run,
// or a caller that never starts Run, may call it.
func (uc *GlobeUseCase) Step(ctx context.Context) Snapshot {
	camera := uc.camera
	uc.engine.Frame(ctx, camera.toScene(uc.engine.Ellipsoid(), uc.viewportWidth, uc.viewportHeight))

	snapshot := Snapshot{
		Frame:  uc.engine.FrameNumber(),
		Time:   uc.clock.Now(),
		Camera: camera,
		Stats:  uc.engine.Stats(),
		Tiles:  lo.Map(uc.engine.RenderSet(), func(rt quadtree.RenderTile, _ int) TileView { return tileView(rt) }),
	}
	uc.publish(snapshot)
	uc.publishLayers()
	return snapshot
}

func (uc *GlobeUseCase) do(ctx context.Context, name string, apply func() error) error {
	cmd := command{name: name, apply: apply, reply: make(chan error, 1)}
	select {
	case uc.commands <- cmd:
	case <-uc.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetCamera moves the camera before the next frame.
func (uc *GlobeUseCase) SetCamera(ctx context.Context, view CameraView) error {
	return uc.do(ctx, "camera", func() error {
		uc.camera = view
		return nil
	})
}

// UpdateLayer applies u to the layer with id and returns its new state.
func (uc *GlobeUseCase) UpdateLayer(ctx context.Context, id uuid.UUID, u LayerUpdate) (LayerView, error) {
	var view LayerView
	err := uc.do(ctx, "layer", func() error {
		layer, err := uc.registry.ByID(id)
		if err != nil {
			return err
		}
		if u.Show != nil {
			if err := uc.registry.SetShow(layer, *u.Show); err != nil {
				return fmt.Errorf("failed to set layer visibility: %w", err)
			}
		}
		if u.Alpha != nil {
			params := layer.Params()
			params.Alpha = geodesy.Clamp(*u.Alpha, 0, 1)
			layer.SetParams(params)
		}
		uc.publishLayers()
		view = uc.layerView(layer, uc.registry.IndexOf(layer))
		uc.logger.Info("layer updated", "layer", id, "show", view.Show, "alpha", view.Params.Alpha)
		return nil
	})
	if err != nil {
		return LayerView{}, err
	}
	return view, nil
}

// Frame returns the last published snapshot.
func (uc *GlobeUseCase) Frame() Snapshot {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.snapshot
}

func (uc *GlobeUseCase) Stats() quadtree.Stats {
	return uc.Frame().Stats
}

// Layers returns the layer list as of the last frame or layer command.
func (uc *GlobeUseCase) Layers() []LayerView {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return append([]LayerView(nil), uc.layers...)
}

// Subscribe delivers every published snapshot to the returned channel, dropping stale
// ones for slow readers. The channel is closed by cancel or when the loop stops.
func (uc *GlobeUseCase) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	uc.mu.Lock()
	uc.subscribers[ch] = struct{}{}
	metrics.StreamSubscribers.Set(float64(len(uc.subscribers)))
	uc.mu.Unlock()

	cancel := func() {
		uc.mu.Lock()
		defer uc.mu.Unlock()
		if _, ok := uc.subscribers[ch]; ok {
			delete(uc.subscribers, ch)
			close(ch)
			metrics.StreamSubscribers.Set(float64(len(uc.subscribers)))
		}
	}
	return ch, cancel
}

func (uc *GlobeUseCase) publish(s Snapshot) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.snapshot = s
	for ch := range uc.subscribers {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

func (uc *GlobeUseCase) closeSubscribers() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	for ch := range uc.subscribers {
		close(ch)
	}
	clear(uc.subscribers)
	metrics.StreamSubscribers.Set(0)
}

func (uc *GlobeUseCase) publishLayers() {
	layers := lo.Map(uc.registry.Layers(), func(l *imagery.Layer, i int) LayerView {
		return uc.layerView(l, i)
	})
	uc.mu.Lock()
	uc.layers = layers
	uc.mu.Unlock()
}

func (uc *GlobeUseCase) layerView(l *imagery.Layer, index int) LayerView {
	return LayerView{
		ID:        l.ID(),
		Name:      l.Name(),
		Index:     index,
		Show:      l.Show(),
		BaseLayer: l.IsBaseLayer(),
		Ready:     l.Ready(),
		Resident:  l.Cache().Len(),
		Params:    l.Params(),
	}
}

func tileView(rt quadtree.RenderTile) TileView {
	return TileView{
		Address:       rt.Address.String(),
		Level:         rt.Address.Level,
		X:             rt.Address.X,
		Y:             rt.Address.Y,
		Vertices:      rt.Mesh.VertexCount(),
		MinimumHeight: rt.Mesh.MinimumHeight,
		MaximumHeight: rt.Mesh.MaximumHeight,
		Imagery: lo.Map(rt.Imagery, func(ri quadtree.RenderImagery, _ int) TileImageryView {
			bounds := ri.Texture.Bounds()
			return TileImageryView{
				Layer:                      ri.Layer,
				Width:                      bounds.Dx(),
				Height:                     bounds.Dy(),
				TranslationAndScale:        ri.TranslationAndScale,
				TextureCoordinateRectangle: ri.TextureCoordinateRectangle,
				UseWebMercatorT:            ri.UseWebMercatorT,
				Alpha:                      ri.Params.Alpha,
			}
		}),
	}
}
