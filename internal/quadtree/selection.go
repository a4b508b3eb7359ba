package quadtree

import (
	"sort"

	"github.com/samber/lo"

	"github.com/jaennil/guide_helper/backend/globe/internal/scene"
	"github.com/jaennil/guide_helper/backend/globe/internal/terrain"
)

type visit struct {
	tile *Tile

	// Set on the entry that runs after all of tile's children were visited.
	postChildren         bool
	selectionStart       int
	loadHighStart        int
	loadMediumStart      int
	loadLowStart         int
	wasRenderedLastFrame bool
}

// selectTiles walks the quadtree with an explicit stack. Roots and children are visited
// nearest first.
func (e *Engine) selectTiles() {
	roots := append([]*Tile(nil), e.store.Roots()...)
	distances := make(map[*Tile]float64, len(roots))
	for _, root := range roots {
		center := e.ellipsoid.CartographicToCartesian(root.Rectangle.Center())
		distances[root] = center.Sub(e.camera.Position).Norm2()
	}
	sort.SliceStable(roots, func(i, j int) bool { return distances[roots[i]] < distances[roots[j]] })

	stack := make([]visit, 0, 64)
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, visit{tile: roots[i]})
	}

	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if v.postChildren {
			e.finishRefinement(v)
			continue
		}
		stack = e.visitIfVisible(v.tile, stack)
	}
}

func (e *Engine) visitIfVisible(t *Tile, stack []visit) []visit {
	wasRenderedLastFrame := t.lastSelection == SelectionRendered && t.lastSelectionFrame+1 == e.frame

	t.lastVisitedFrame = e.frame
	t.lastSelectionFrame = e.frame
	e.stats.TilesVisited++
	e.stats.MaxDepth = max(e.stats.MaxDepth, t.Address.Level)

	t.Distance = e.computeDistance(t)
	if e.computeVisibility(t) == scene.Outside {
		t.lastSelection = SelectionCulled
		e.stats.TilesCulled++
		// Roots load even when culled so turning the camera never shows a hole.
		if t.parent == nil {
			e.queueLoad(&e.loadLow, t)
		}
		return stack
	}

	if e.meetsScreenSpaceError(t) || !e.canRefine(t) {
		e.renderTile(t)
		return stack
	}

	children := e.store.GetOrCreateChildren(t)
	if allUpsampled(children) {
		// The children would only show this tile's data at a finer mesh.
		e.renderTile(t)
		for _, c := range children {
			c.lastVisitedFrame = e.frame
		}
		return stack
	}

	t.lastSelection = SelectionRefined
	e.queueLoad(&e.loadLow, t)

	stack = append(stack, visit{
		tile:                 t,
		postChildren:         true,
		selectionStart:       len(e.selected),
		loadHighStart:        len(e.loadHigh),
		loadMediumStart:      len(e.loadMedium),
		loadLowStart:         len(e.loadLow),
		wasRenderedLastFrame: wasRenderedLastFrame,
	})
	ordered := e.nearToFar(children)
	for i := len(ordered) - 1; i >= 0; i-- {
		stack = append(stack, visit{tile: ordered[i]})
	}
	return stack
}

func (e *Engine) renderTile(t *Tile) {
	t.lastSelection = SelectionRendered
	e.selected = append(e.selected, t)
	if t.Renderable {
		e.queueLoad(&e.loadMedium, t)
	} else {
		e.queueLoad(&e.loadHigh, t)
	}
}

// finishRefinement keeps the children's selection when all of it is renderable and
// otherwise replaces it with the refined tile, which then bubbles up the same way if it
// is not renderable either.
func (e *Engine) finishRefinement(v visit) {
	t := v.tile
	descendants := e.selected[v.selectionStart:]
	if len(descendants) == 0 {
		return
	}

	notYetRenderable := lo.CountBy(descendants, func(d *Tile) bool { return !d.Renderable })
	if notYetRenderable == 0 {
		return
	}

	for _, d := range descendants {
		d.lastSelection = SelectionKicked
	}
	e.selected = append(e.selected[:v.selectionStart], t)
	t.lastSelection = SelectionRendered
	e.stats.TilesWaitingForChildren++

	// Too many descendants to wait for: load this tile alone until it can render.
	if !v.wasRenderedLastFrame && notYetRenderable > e.opts.LoadingDescendantLimit {
		e.loadHigh = e.loadHigh[:v.loadHighStart]
		e.loadMedium = e.loadMedium[:v.loadMediumStart]
		e.loadLow = e.loadLow[:v.loadLowStart]
	}
	e.queueLoad(&e.loadMedium, t)
}

func (e *Engine) meetsScreenSpaceError(t *Tile) bool {
	geometricError := e.terrain.Provider().LevelMaximumGeometricError(t.Address.Level)
	return e.camera.ScreenSpaceError(geometricError, t.Distance) < e.opts.MaximumScreenSpaceError
}

// canRefine requires knowing whether the children have data, either from this tile's
// own grid or from the provider.
func (e *Engine) canRefine(t *Tile) bool {
	if t.Address.Level >= e.opts.MaximumLevel {
		return false
	}
	if t.Surface.Grid != nil {
		return true
	}
	return e.terrain.Provider().TileDataAvailable(t.Address.Northwest()) != terrain.AvailabilityUnknown
}

func allUpsampled(children []*Tile) bool {
	return lo.EveryBy(children, func(c *Tile) bool {
		return (c.State == LoadDone || c.State == LoadFailed) && c.UpsampledFromParent
	})
}

// nearToFar orders the children starting with the quadrant containing the camera.
func (e *Engine) nearToFar(children []*Tile) []*Tile {
	southwest, southeast, northwest, northeast := children[0], children[1], children[2], children[3]
	position := e.camera.PositionCartographic

	west := position.Longitude < southwest.Rectangle.East
	south := position.Latitude < southwest.Rectangle.North
	switch {
	case west && south:
		return []*Tile{southwest, southeast, northwest, northeast}
	case west:
		return []*Tile{northwest, southwest, northeast, southeast}
	case south:
		return []*Tile{southeast, southwest, northeast, northwest}
	default:
		return []*Tile{northeast, northwest, southeast, southwest}
	}
}
