package quadtree

import (
	"testing"

	"go.viam.com/test"

	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
)

func addr(x uint32) tiling.Address {
	return tiling.Address{X: x, Level: 5}
}

// order lists the queue from head to tail.
func order(q *ReplacementQueue) []tiling.Address {
	var out []tiling.Address
	current, ok := q.Head()
	for ok {
		out = append(out, current)
		l := q.links[current]
		current, ok = l.next, l.next != noTile
	}
	return out
}

func evictAll(tiling.Address) (bool, []tiling.Address) { return true, nil }

func TestQueueMarkTileRendered(t *testing.T) {
	q := NewReplacementQueue()
	_, ok := q.Head()
	test.That(t, ok, test.ShouldBeFalse)

	q.MarkTileRendered(addr(1))
	q.MarkTileRendered(addr(2))
	q.MarkTileRendered(addr(3))
	test.That(t, order(q), test.ShouldResemble, []tiling.Address{addr(3), addr(2), addr(1)})

	q.MarkTileRendered(addr(1))
	test.That(t, order(q), test.ShouldResemble, []tiling.Address{addr(1), addr(3), addr(2)})
	test.That(t, q.Count(), test.ShouldEqual, 3)

	tail, ok := q.Tail()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, tail, test.ShouldResemble, addr(2))

	prev, ok := q.Previous(addr(2))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, prev, test.ShouldResemble, addr(3))
	_, ok = q.Previous(addr(1))
	test.That(t, ok, test.ShouldBeFalse)
}

func TestQueueRemove(t *testing.T) {
	q := NewReplacementQueue()
	for i := uint32(1); i <= 4; i++ {
		q.MarkTileRendered(addr(i))
	}

	q.Remove(addr(3))
	test.That(t, order(q), test.ShouldResemble, []tiling.Address{addr(4), addr(2), addr(1)})
	q.Remove(addr(4))
	q.Remove(addr(1))
	test.That(t, order(q), test.ShouldResemble, []tiling.Address{addr(2)})
	q.Remove(addr(9))
	test.That(t, q.Count(), test.ShouldEqual, 1)

	q.Remove(addr(2))
	test.That(t, q.Count(), test.ShouldEqual, 0)
	_, ok := q.Tail()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestQueueTrimStopsAtSentinel(t *testing.T) {
	q := NewReplacementQueue()
	q.MarkTileRendered(addr(1))
	q.MarkTileRendered(addr(2))
	q.MarkTileRendered(addr(3))

	q.MarkStartOfFrame()
	q.MarkTileRendered(addr(4))

	evicted := q.Trim(0, evictAll)
	test.That(t, evicted, test.ShouldEqual, 2)
	test.That(t, order(q), test.ShouldResemble, []tiling.Address{addr(4), addr(3)})
}

func TestQueueTrimWithoutSentinel(t *testing.T) {
	q := NewReplacementQueue()
	q.MarkStartOfFrame()
	q.MarkTileRendered(addr(1))
	q.MarkTileRendered(addr(2))

	test.That(t, q.Trim(0, evictAll), test.ShouldEqual, 0)
	test.That(t, q.Count(), test.ShouldEqual, 2)
}

func TestQueueRenderingSentinelKeepsIt(t *testing.T) {
	q := NewReplacementQueue()
	q.MarkTileRendered(addr(1))
	q.MarkTileRendered(addr(2))
	q.MarkTileRendered(addr(3))

	q.MarkStartOfFrame()
	q.MarkTileRendered(addr(3))

	test.That(t, q.Trim(0, evictAll), test.ShouldEqual, 1)
	test.That(t, order(q), test.ShouldResemble, []tiling.Address{addr(3), addr(2)})
}

func TestQueueTrimSkipsRefused(t *testing.T) {
	q := NewReplacementQueue()
	for i := uint32(1); i <= 4; i++ {
		q.MarkTileRendered(addr(i))
	}
	q.MarkStartOfFrame()
	q.MarkTileRendered(addr(5))

	var visited []tiling.Address
	evicted := q.Trim(2, func(a tiling.Address) (bool, []tiling.Address) {
		visited = append(visited, a)
		return a != addr(1), nil
	})
	test.That(t, evicted, test.ShouldEqual, 2)
	test.That(t, visited, test.ShouldResemble, []tiling.Address{addr(1), addr(2), addr(3)})
	test.That(t, order(q), test.ShouldResemble, []tiling.Address{addr(5), addr(4), addr(1)})
}

func TestQueueTrimUnlinksDropped(t *testing.T) {
	q := NewReplacementQueue()
	for i := uint32(1); i <= 4; i++ {
		q.MarkTileRendered(addr(i))
	}
	q.MarkStartOfFrame()
	q.MarkTileRendered(addr(5))

	// Evicting 1 drops its descendant 2 from the tree as well.
	var visited []tiling.Address
	evicted := q.Trim(0, func(a tiling.Address) (bool, []tiling.Address) {
		visited = append(visited, a)
		if a == addr(1) {
			return true, []tiling.Address{addr(2), addr(7)}
		}
		return true, nil
	})
	test.That(t, visited, test.ShouldResemble, []tiling.Address{addr(1), addr(3)})
	test.That(t, evicted, test.ShouldEqual, 2)
	test.That(t, order(q), test.ShouldResemble, []tiling.Address{addr(5), addr(4)})
}
