package quadtree

import (
	"math"

	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
)

// noTile terminates links. No scheme has a level this deep.
var noTile = tiling.Address{Level: math.MaxUint32}

type link struct {
	prev tiling.Address
	next tiling.Address
}

// ReplacementQueue orders resident tiles from most recently rendered (head) to least
// (tail). Links are kept in a table indexed by address.
type ReplacementQueue struct {
	links map[tiling.Address]link
	head  tiling.Address
	tail  tiling.Address
	// sentinel is the head at the start of the frame. It and everything rendered after it
	// are never trimmed in that frame.
	sentinel tiling.Address
}

func NewReplacementQueue() *ReplacementQueue {
	return &ReplacementQueue{
		links:    make(map[tiling.Address]link),
		head:     noTile,
		tail:     noTile,
		sentinel: noTile,
	}
}

func (q *ReplacementQueue) Count() int {
	return len(q.links)
}

func (q *ReplacementQueue) Head() (tiling.Address, bool) {
	return q.head, q.head != noTile
}

func (q *ReplacementQueue) Tail() (tiling.Address, bool) {
	return q.tail, q.tail != noTile
}

func (q *ReplacementQueue) Contains(address tiling.Address) bool {
	_, ok := q.links[address]
	return ok
}

// MarkStartOfFrame remembers the current head as the trimming sentinel.
func (q *ReplacementQueue) MarkStartOfFrame() {
	q.sentinel = q.head
}

// MarkTileRendered moves address to the head, inserting it if needed.
func (q *ReplacementQueue) MarkTileRendered(address tiling.Address) {
	if q.head == address {
		if address == q.sentinel {
			q.sentinel = q.links[address].next
		}
		return
	}

	if _, ok := q.links[address]; ok {
		q.Remove(address)
	}

	l := link{prev: noTile, next: q.head}
	if q.head != noTile {
		h := q.links[q.head]
		h.prev = address
		q.links[q.head] = h
	} else {
		q.tail = address
	}
	q.links[address] = l
	q.head = address
}

// Remove unlinks address. Unknown addresses are ignored.
func (q *ReplacementQueue) Remove(address tiling.Address) {
	l, ok := q.links[address]
	if !ok {
		return
	}
	if address == q.sentinel {
		q.sentinel = l.next
	}

	if address == q.head {
		q.head = l.next
	} else {
		p := q.links[l.prev]
		p.next = l.next
		q.links[l.prev] = p
	}

	if address == q.tail {
		q.tail = l.prev
	} else {
		n := q.links[l.next]
		n.prev = l.prev
		q.links[l.next] = n
	}

	delete(q.links, address)
}

// Previous returns the entry closer to the head than address.
func (q *ReplacementQueue) Previous(address tiling.Address) (tiling.Address, bool) {
	l, ok := q.links[address]
	if !ok || l.prev == noTile {
		return noTile, false
	}
	return l.prev, true
}

// Trim walks from the tail toward the sentinel while more than maximum tiles are
// resident, calling evict for each. evict reports whether it unloaded the tile and
// returns any other addresses it dropped from the tree, which are unlinked too. Tiles
// evict refuses stay where they are; maximum is a soft limit.
func (q *ReplacementQueue) Trim(maximum int, evict func(tiling.Address) (bool, []tiling.Address)) int {
	if q.sentinel == noTile {
		return 0
	}

	evicted := 0
	current := q.tail
	for current != noTile && current != q.sentinel && q.Count() > maximum {
		ok, dropped := evict(current)
		if !ok {
			current = q.links[current].prev
			continue
		}

		gone := make(map[tiling.Address]struct{}, len(dropped)+1)
		gone[current] = struct{}{}
		for _, d := range dropped {
			gone[d] = struct{}{}
		}
		// The next candidate is the nearest entry toward the head that survives.
		previous := q.links[current].prev
		for previous != noTile {
			if _, ok := gone[previous]; !ok {
				break
			}
			previous = q.links[previous].prev
		}

		for address := range gone {
			q.Remove(address)
		}
		evicted++
		current = previous
	}
	return evicted
}
