package quadtree

import (
	"slices"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/jaennil/guide_helper/backend/globe/internal/imagery"
	"github.com/jaennil/guide_helper/backend/globe/internal/invariant"
	"github.com/jaennil/guide_helper/backend/globe/internal/terrain"
	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
	"github.com/jaennil/guide_helper/backend/globe/pkg/metrics"
)

func (e *Engine) queueLoad(queue *[]*Tile, t *Tile) {
	if !t.needsLoading() {
		return
	}
	t.LoadPriority = e.loadPriority(t)
	*queue = append(*queue, t)
}

// loadPriority favors tiles near the center of the view, then near the camera. Lower
// loads first.
func (e *Engine) loadPriority(t *Tile) float64 {
	if t.region == nil {
		return t.Distance
	}
	direction := t.region.BoundingSphere.Center.Sub(e.camera.Position)
	magnitude := direction.Norm()
	if magnitude < 1e-5 {
		return 0
	}
	return (1 - direction.Mul(1/magnitude).Dot(e.camera.Direction)) * t.Distance
}

func (e *Engine) processLoadQueues() {
	deadline := e.clock.Now().Add(e.opts.LoadQueueTimeSlice)
	didSomeLoading := e.processLoadQueue(e.loadHigh, deadline, false)
	didSomeLoading = e.processLoadQueue(e.loadMedium, deadline, didSomeLoading)
	e.processLoadQueue(e.loadLow, deadline, didSomeLoading)
}

// processLoadQueue loads at least one tile per frame even when the slice is spent.
func (e *Engine) processLoadQueue(queue []*Tile, deadline time.Time, didSomeLoading bool) bool {
	sort.SliceStable(queue, func(i, j int) bool { return queue[i].LoadPriority < queue[j].LoadPriority })
	for _, t := range queue {
		if didSomeLoading && !e.clock.Now().Before(deadline) {
			break
		}
		if t.needsLoading() {
			e.loadTile(t, false)
			e.stats.TilesLoaded++
		}
		didSomeLoading = true
	}
	return didSomeLoading
}

// loadTile runs the tile's state machines as far as they go without waiting. With
// terrainOnly set imagery is left alone, which is used to push a parent along so its
// child can upsample from it.
func (e *Engine) loadTile(t *Tile, terrainOnly bool) {
	if t.State == LoadStart {
		e.prepareNewTile(t)
		t.State = LoadLoading
	}
	if t.State == LoadLoading {
		e.processTerrain(t)
	}
	if terrainOnly || t.State != LoadLoading {
		return
	}

	wasRenderable := t.Renderable
	t.Renderable = t.Surface.Mesh != nil
	terrainDone := t.Surface.State == terrain.StateReady

	imageryDone, anyImageryLoaded, imageryUpsampledOnly := e.processImagery(t)
	if t.Surface.Grid != nil {
		t.UpsampledFromParent = t.Surface.Grid.CreatedByUpsampling && imageryUpsampledOnly
	}

	if terrainDone && imageryDone {
		t.State = LoadDone
	}
	t.Renderable = t.Renderable && (anyImageryLoaded || imageryDone)
	// A tile never stops being renderable once it was.
	if wasRenderable {
		t.Renderable = true
	}
}

func (e *Engine) prepareNewTile(t *Tile) {
	provider := e.terrain.Provider()
	available := provider.TileDataAvailable(t.Address)
	if available == terrain.AvailabilityUnknown && t.parent != nil && t.parent.Surface.Grid != nil {
		p := t.parent.Address
		if t.parent.Surface.Grid.IsChildAvailable(p.X, p.Y, t.Address.X, t.Address.Y) {
			available = terrain.Available
		} else {
			available = terrain.Unavailable
		}
	}
	if available == terrain.Unavailable {
		t.Surface.State = terrain.StateFailed
	}

	for _, layer := range e.registry.Layers() {
		if layer.Show() {
			e.addSkeletons(t, layer, len(t.Imagery))
		}
	}
}

func (e *Engine) addSkeletons(t *Tile, layer *imagery.Layer, at int) bool {
	skeletons, ok := layer.CreateSkeletons(t.Rectangle, e.terrain.Provider().LevelMaximumGeometricError(t.Address.Level))
	if !ok {
		return false
	}
	t.Imagery = slices.Insert(t.Imagery, at, skeletons...)
	return true
}

func (e *Engine) processTerrain(t *Tile) {
	s := &t.Surface
	parent := t.parent

	// A failed tile upsamples from its parent, so the parent has to load first.
	if s.State == terrain.StateFailed && parent != nil && !parent.Surface.CanUpsample() {
		e.loadTile(parent, true)
	}

	if s.State == terrain.StateFailed {
		if parent == nil {
			if t.Address.Level > 0 {
				_ = invariant.Violated(e.logger, "failed tile has no parent to upsample from",
					"level", t.Address.Level, "x", t.Address.X, "y", t.Address.Y)
			}
			t.State = LoadFailed
			return
		}
		if s.UpsampleFailed() {
			t.State = LoadFailed
			return
		}
	}

	var parentSurface *terrain.Surface
	if parent != nil {
		parentSurface = &parent.Surface
	}
	e.terrain.Advance(t.Address, t.serial, s, parentSurface)
}

// processImagery advances every TileImagery of t. done is true when nothing more will
// load, anyLoaded when something can be drawn for every layer region that has finished,
// upsampledOnly when every layer settled on ancestor imagery after a failure.
func (e *Engine) processImagery(t *Tile) (done, anyLoaded, upsampledOnly bool) {
	done = true
	upsampledOnly = true

	for i := 0; i < len(t.Imagery); i++ {
		ti := t.Imagery[i]
		if ti.Loading == nil {
			upsampledOnly = false
			continue
		}

		if ti.IsPlaceholder() {
			layer := ti.Layer()
			if layer.Ready() {
				ti.Free()
				t.Imagery = slices.Delete(t.Imagery, i, i+1)
				e.addSkeletons(t, layer, i)
				i--
				continue
			}
			upsampledOnly = false
		}

		tileDone := ti.Advance(t.Rectangle, false)
		done = done && tileDone
		anyLoaded = anyLoaded || tileDone || ti.Ready != nil
		upsampledOnly = upsampledOnly && ti.Loading != nil &&
			(ti.Loading.State == imagery.StateFailed || ti.Loading.State == imagery.StateInvalid)
	}
	return done, anyLoaded, upsampledOnly
}

// evict unloads the tile at address and drops its subtree when none of it was visited
// this frame and none of it waits on a job.
func (e *Engine) evict(address tiling.Address) (bool, []tiling.Address) {
	t, ok := e.store.Get(address)
	if !ok {
		return true, nil
	}
	if !e.unloadable(t) {
		return false, nil
	}
	descendants := e.store.Descendants(t)
	for _, d := range descendants {
		if !e.unloadable(d) {
			return false, nil
		}
	}

	removed := e.store.RemoveChildren(t)
	t.freeResources()
	e.store.Reincarnate(t)
	metrics.TilesEvicted.Inc()

	return true, lo.Map(removed, func(r *Tile, _ int) tiling.Address { return r.Address })
}

func (e *Engine) unloadable(t *Tile) bool {
	return t.lastVisitedFrame != e.frame && t.EligibleForUnloading()
}
