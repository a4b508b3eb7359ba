// Package quadtree selects the terrain tiles to render each frame, drives their terrain
// and imagery loading and bounds the resident set with an LRU replacement queue.
package quadtree

import (
	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
	"github.com/jaennil/guide_helper/backend/globe/internal/imagery"
	"github.com/jaennil/guide_helper/backend/globe/internal/scene"
	"github.com/jaennil/guide_helper/backend/globe/internal/terrain"
	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
)

type LoadState int

const (
	LoadStart LoadState = iota
	LoadLoading
	LoadDone
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadStart:
		return "start"
	case LoadLoading:
		return "loading"
	case LoadDone:
		return "done"
	default:
		return "failed"
	}
}

type SelectionResult int

const (
	SelectionNone SelectionResult = iota
	SelectionCulled
	SelectionRendered
	SelectionRefined
	// SelectionKicked marks tiles dropped from the selection because a sibling was not
	// renderable yet.
	SelectionKicked
)

func (r SelectionResult) String() string {
	switch r {
	case SelectionCulled:
		return "culled"
	case SelectionRendered:
		return "rendered"
	case SelectionRefined:
		return "refined"
	case SelectionKicked:
		return "kicked"
	default:
		return "none"
	}
}

// Tile is one node of the quadtree. Tiles are owned by the Store and mutated only by the
// frame loop.
type Tile struct {
	Address   tiling.Address
	Rectangle geodesy.Rectangle

	parent   *Tile
	children []*Tile

	State               LoadState
	Renderable          bool
	UpsampledFromParent bool

	// Distance and LoadPriority are recomputed whenever the tile is visited.
	Distance     float64
	LoadPriority float64

	Surface terrain.Surface
	Imagery []*imagery.TileImagery

	region             *scene.TileBoundingRegion
	boundingSource     *Tile
	boundingFromMesh   bool
	lastSelection      SelectionResult
	lastSelectionFrame uint64
	lastVisitedFrame   uint64
	serial             uint64
}

func newTile(address tiling.Address, rectangle geodesy.Rectangle, parent *Tile, serial uint64) *Tile {
	return &Tile{
		Address:             address,
		Rectangle:           rectangle,
		parent:              parent,
		UpsampledFromParent: true,
		serial:              serial,
	}
}

func (t *Tile) Parent() *Tile {
	return t.parent
}

// Children returns nil or the four children in southwest, southeast, northwest, northeast
// order.
func (t *Tile) Children() []*Tile {
	return t.children
}

func (t *Tile) Serial() uint64 {
	return t.serial
}

func (t *Tile) LastSelection() (SelectionResult, uint64) {
	return t.lastSelection, t.lastSelectionFrame
}

func (t *Tile) needsLoading() bool {
	return t.State == LoadStart || t.State == LoadLoading
}

// EligibleForUnloading is false while a terrain or imagery job for this tile may still
// deliver a result.
func (t *Tile) EligibleForUnloading() bool {
	if t.Surface.InFlight() {
		return false
	}
	for _, ti := range t.Imagery {
		if ti.Transitioning() {
			return false
		}
	}
	return true
}

// freeResources returns the tile to LoadStart, dropping its terrain payload and imagery
// references. Children are left to the caller.
func (t *Tile) freeResources() {
	t.State = LoadStart
	t.Renderable = false
	t.UpsampledFromParent = true
	t.Surface.Free()
	for _, ti := range t.Imagery {
		ti.Free()
	}
	t.Imagery = nil
	t.region = nil
	t.boundingSource = nil
	t.boundingFromMesh = false
}
