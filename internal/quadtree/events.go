package quadtree

import (
	"sort"

	"github.com/jaennil/guide_helper/backend/globe/internal/imagery"
)

func (e *Engine) onLayerEvent(ev imagery.Event) {
	switch ev.Kind {
	case imagery.EventAdded:
		if ev.Layer.Show() {
			e.attachLayer(ev.Layer)
		}
	case imagery.EventRemoved:
		e.detachLayer(ev.Layer)
	case imagery.EventMoved:
		e.sortTileImagery()
	case imagery.EventShown:
		if ev.Show {
			e.attachLayer(ev.Layer)
		} else {
			e.detachLayer(ev.Layer)
		}
	}
}

// attachLayer gives every prepared tile the layer's skeletons. Tiles in the current
// selection stay renderable so the globe does not flicker while the layer loads.
func (e *Engine) attachLayer(layer *imagery.Layer) {
	e.store.Walk(func(t *Tile) {
		if t.State == LoadStart {
			return
		}
		if !e.addSkeletons(t, layer, len(t.Imagery)) {
			return
		}
		t.State = LoadLoading
		if t.parent != nil && (t.lastSelectionFrame != e.frame || t.lastSelection != SelectionRendered) {
			t.Renderable = false
		}
	})
	e.sortTileImagery()
}

func (e *Engine) detachLayer(layer *imagery.Layer) {
	e.store.Walk(func(t *Tile) {
		kept := t.Imagery[:0]
		for _, ti := range t.Imagery {
			if ti.Layer() == layer {
				ti.Free()
				continue
			}
			kept = append(kept, ti)
		}
		clear(t.Imagery[len(kept):])
		t.Imagery = kept
	})
}

func (e *Engine) sortTileImagery() {
	order := make(map[*imagery.Layer]int, e.registry.Len())
	for i, layer := range e.registry.Layers() {
		order[layer] = i
	}
	e.store.Walk(func(t *Tile) {
		sort.SliceStable(t.Imagery, func(i, j int) bool {
			return order[t.Imagery[i].Layer()] < order[t.Imagery[j].Layer()]
		})
	})
}
