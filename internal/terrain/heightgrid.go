// Package terrain holds heightmap data, the mesh builder and the per-tile terrain state
// machine that fetches, upsamples and triangulates it.
package terrain

import (
	"fmt"
	"math"

	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
)

// AllChildren is the child tile mask with all four children present.
const AllChildren uint8 = 15

// HeightGrid is a regular grid of heights in meters above the ellipsoid, stored row by
// row from north to south and west to east within a row. A grid is immutable once it
// has been handed to the state machine.
type HeightGrid struct {
	Width   int
	Height  int
	Heights []float64

	// ChildTileMask has bit 0 southwest, 1 southeast, 2 northwest, 3 northeast.
	ChildTileMask       uint8
	CreatedByUpsampling bool
}

func NewHeightGrid(width, height int, heights []float64) (*HeightGrid, error) {
	if width < 2 || height < 2 {
		return nil, fmt.Errorf("height grid must be at least 2x2, got %dx%d", width, height)
	}
	if len(heights) != width*height {
		return nil, fmt.Errorf("height grid %dx%d needs %d samples, got %d", width, height, width*height, len(heights))
	}
	return &HeightGrid{
		Width:         width,
		Height:        height,
		Heights:       heights,
		ChildTileMask: AllChildren,
	}, nil
}

func (g *HeightGrid) At(column, row int) float64 {
	return g.Heights[row*g.Width+column]
}

func (g *HeightGrid) MinMax() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, h := range g.Heights {
		lo = math.Min(lo, h)
		hi = math.Max(hi, h)
	}
	return lo, hi
}

// IsChildAvailable reports whether the child (childX, childY) of tile (thisX, thisY) has
// data of its own according to the child mask.
func (g *HeightGrid) IsChildAvailable(thisX, thisY, childX, childY uint32) bool {
	bit := 2
	if childX != thisX*2 {
		bit++
	}
	if childY != thisY*2 {
		bit -= 2
	}
	return g.ChildTileMask&(1<<bit) != 0
}

// Upsample synthesizes the grid of child from this grid, which belongs to parent, by
// bilinear interpolation over the child's quadrant.
func (g *HeightGrid) Upsample(parent, child tiling.Address) (*HeightGrid, error) {
	p, ok := child.Parent()
	if !ok || p != parent {
		return nil, fmt.Errorf("%w: %s is not a child of %s", ErrNotAChild, child, parent)
	}

	offsetX := float64(child.X - parent.X*2)
	offsetY := float64(child.Y - parent.Y*2)

	heights := make([]float64, g.Width*g.Height)
	for row := 0; row < g.Height; row++ {
		v := (offsetY + float64(row)/float64(g.Height-1)) * 0.5
		for column := 0; column < g.Width; column++ {
			u := (offsetX + float64(column)/float64(g.Width-1)) * 0.5
			heights[row*g.Width+column] = g.sample(u, v)
		}
	}

	return &HeightGrid{
		Width:               g.Width,
		Height:              g.Height,
		Heights:             heights,
		ChildTileMask:       AllChildren,
		CreatedByUpsampling: true,
	}, nil
}

// sample interpolates at u (west to east) and v (north to south), both in [0,1].
func (g *HeightGrid) sample(u, v float64) float64 {
	fx := u * float64(g.Width-1)
	fy := v * float64(g.Height-1)

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	x1 := min(x0+1, g.Width-1)
	y1 := min(y0+1, g.Height-1)
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	top := g.At(x0, y0)*(1-tx) + g.At(x1, y0)*tx
	bottom := g.At(x0, y1)*(1-tx) + g.At(x1, y1)*tx
	return top*(1-ty) + bottom*ty
}
