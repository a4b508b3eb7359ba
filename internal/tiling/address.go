// Package tiling defines quadtree tile addresses and the tiling schemes that map them to
// geographic rectangles.
package tiling

import "fmt"

// Address identifies one quadtree node. Y grows southward.
type Address struct {
	X     uint32
	Y     uint32
	Level uint32
}

type Quadrant int

const (
	Southwest Quadrant = iota
	Southeast
	Northwest
	Northeast
)

func (q Quadrant) String() string {
	switch q {
	case Southwest:
		return "southwest"
	case Southeast:
		return "southeast"
	case Northwest:
		return "northwest"
	case Northeast:
		return "northeast"
	default:
		return "unknown"
	}
}

func (a Address) Southwest() Address {
	return Address{X: a.X * 2, Y: a.Y*2 + 1, Level: a.Level + 1}
}

func (a Address) Southeast() Address {
	return Address{X: a.X*2 + 1, Y: a.Y*2 + 1, Level: a.Level + 1}
}

func (a Address) Northwest() Address {
	return Address{X: a.X * 2, Y: a.Y * 2, Level: a.Level + 1}
}

func (a Address) Northeast() Address {
	return Address{X: a.X*2 + 1, Y: a.Y * 2, Level: a.Level + 1}
}

// Children returns the four subdivisions in southwest, southeast, northwest, northeast order.
func (a Address) Children() [4]Address {
	return [4]Address{a.Southwest(), a.Southeast(), a.Northwest(), a.Northeast()}
}

// Parent returns false for root tiles.
func (a Address) Parent() (Address, bool) {
	if a.Level == 0 {
		return Address{}, false
	}
	return Address{X: a.X / 2, Y: a.Y / 2, Level: a.Level - 1}, true
}

// Quadrant reports which child of its parent a is. Root tiles report Northwest.
func (a Address) Quadrant() Quadrant {
	east := a.X%2 == 1
	south := a.Y%2 == 1
	switch {
	case south && !east:
		return Southwest
	case south && east:
		return Southeast
	case !south && east:
		return Northeast
	default:
		return Northwest
	}
}

// IsAncestorOf reports whether a is a strict ancestor of other.
func (a Address) IsAncestorOf(other Address) bool {
	if other.Level <= a.Level {
		return false
	}
	shift := other.Level - a.Level
	return other.X>>shift == a.X && other.Y>>shift == a.Y
}

func (a Address) String() string {
	return fmt.Sprintf("%d/%d/%d", a.Level, a.X, a.Y)
}
