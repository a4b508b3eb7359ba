package imagery

import (
	"errors"

	"github.com/samber/lo"

	"github.com/jaennil/guide_helper/backend/globe/internal/worker"
	"github.com/jaennil/guide_helper/backend/globe/pkg/logger"
	"github.com/jaennil/guide_helper/backend/globe/pkg/metrics"
)

var (
	ErrLayerNotFound   = errors.New("imagery layer not found")
	ErrIndexOutOfRange = errors.New("layer index out of range")
)

type EventKind int

const (
	EventAdded EventKind = iota
	EventRemoved
	EventMoved
	EventShown
)

func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	case EventMoved:
		return "moved"
	default:
		return "shown"
	}
}

// Event describes a change to the registry. Index is the layer's position after the
// change, or its old position for EventRemoved.
type Event struct {
	Kind  EventKind
	Layer *Layer
	Index int
	Show  bool
}

// Registry is the ordered list of imagery layers, bottom first. The first layer is the
// base layer. It is owned by the frame loop.
type Registry struct {
	layers      []*Layer
	jobs        worker.Executor[Result]
	subscribers []func(Event)
	logger      logger.Logger
}

func NewRegistry(jobs worker.Executor[Result], l logger.Logger) *Registry {
	return &Registry{jobs: jobs, logger: l}
}

func (r *Registry) Jobs() worker.Executor[Result] {
	return r.jobs
}

// Subscribe registers fn to receive every later event in order.
func (r *Registry) Subscribe(fn func(Event)) {
	r.subscribers = append(r.subscribers, fn)
}

func (r *Registry) emit(e Event) {
	for _, fn := range r.subscribers {
		fn(e)
	}
}

// NewLayer creates a layer that submits its jobs to the registry's executor and appends it.
func (r *Registry) NewLayer(name string, provider Provider, opts LayerOptions) *Layer {
	layer := NewLayer(name, provider, r.jobs, opts, r.logger)
	r.Add(layer)
	return layer
}

func (r *Registry) Add(layer *Layer) {
	_ = r.AddAt(layer, len(r.layers))
}

func (r *Registry) AddAt(layer *Layer, index int) error {
	if index < 0 || index > len(r.layers) {
		return ErrIndexOutOfRange
	}
	r.layers = append(r.layers, nil)
	copy(r.layers[index+1:], r.layers[index:])
	r.layers[index] = layer
	r.updateBaseLayer()

	r.logger.Info("imagery layer added", "layer", layer.name, "id", layer.id.String(), "index", index)
	r.emit(Event{Kind: EventAdded, Layer: layer, Index: index, Show: layer.show})
	return nil
}

func (r *Registry) Remove(layer *Layer) error {
	index := r.IndexOf(layer)
	if index < 0 {
		return ErrLayerNotFound
	}
	r.layers = append(r.layers[:index], r.layers[index+1:]...)
	r.updateBaseLayer()

	r.logger.Info("imagery layer removed", "layer", layer.name, "id", layer.id.String())
	r.emit(Event{Kind: EventRemoved, Layer: layer, Index: index})
	metrics.ImageryResident.DeleteLabelValues(layer.name)
	return nil
}

func (r *Registry) Raise(layer *Layer) error {
	return r.move(layer, func(i int) int { return i + 1 })
}

func (r *Registry) Lower(layer *Layer) error {
	return r.move(layer, func(i int) int { return i - 1 })
}

func (r *Registry) RaiseToTop(layer *Layer) error {
	return r.move(layer, func(int) int { return len(r.layers) - 1 })
}

func (r *Registry) LowerToBottom(layer *Layer) error {
	return r.move(layer, func(int) int { return 0 })
}

func (r *Registry) move(layer *Layer, target func(int) int) error {
	index := r.IndexOf(layer)
	if index < 0 {
		return ErrLayerNotFound
	}
	to := min(max(target(index), 0), len(r.layers)-1)
	if to == index {
		return nil
	}

	r.layers = append(r.layers[:index], r.layers[index+1:]...)
	r.layers = append(r.layers, nil)
	copy(r.layers[to+1:], r.layers[to:])
	r.layers[to] = layer
	r.updateBaseLayer()

	r.emit(Event{Kind: EventMoved, Layer: layer, Index: to})
	return nil
}

// SetShow toggles a layer and emits EventShown when the value changes.
func (r *Registry) SetShow(layer *Layer, show bool) error {
	index := r.IndexOf(layer)
	if index < 0 {
		return ErrLayerNotFound
	}
	if layer.show == show {
		return nil
	}
	layer.show = show
	r.emit(Event{Kind: EventShown, Layer: layer, Index: index, Show: show})
	return nil
}

func (r *Registry) updateBaseLayer() {
	for i, layer := range r.layers {
		layer.baseLayer = i == 0
	}
}

func (r *Registry) Get(index int) (*Layer, error) {
	if index < 0 || index >= len(r.layers) {
		return nil, ErrIndexOutOfRange
	}
	return r.layers[index], nil
}

func (r *Registry) ByID(id LayerID) (*Layer, error) {
	layer, ok := lo.Find(r.layers, func(l *Layer) bool { return l.id == id })
	if !ok {
		return nil, ErrLayerNotFound
	}
	return layer, nil
}

func (r *Registry) IndexOf(layer *Layer) int {
	return lo.IndexOf(r.layers, layer)
}

func (r *Registry) Len() int {
	return len(r.layers)
}

// Layers returns the layers bottom first. The slice must not be modified.
func (r *Registry) Layers() []*Layer {
	return r.layers
}

func (r *Registry) ShownLayers() []*Layer {
	return lo.Filter(r.layers, func(l *Layer, _ int) bool { return l.show })
}

// Apply routes job results to their layers. It returns the number discarded because
// their layer or imagery no longer exists.
func (r *Registry) Apply(results []Result) int {
	discarded := 0
	for _, result := range results {
		layer, err := r.ByID(result.Layer)
		if err != nil || !layer.Apply(result) {
			discarded++
		}
	}
	if discarded > 0 {
		metrics.CompletionsDiscarded.WithLabelValues("imagery").Add(float64(discarded))
	}
	return discarded
}

// UpdateMetrics publishes per layer resident imagery counts.
func (r *Registry) UpdateMetrics() {
	for _, layer := range r.layers {
		metrics.ImageryResident.WithLabelValues(layer.name).Set(float64(layer.cache.Len()))
	}
}
