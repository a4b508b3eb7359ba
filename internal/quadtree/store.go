package quadtree

import (
	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
)

// Store owns every live tile, keyed by address.
type Store struct {
	scheme     tiling.Scheme
	tiles      map[tiling.Address]*Tile
	roots      []*Tile
	nextSerial uint64
}

func NewStore(scheme tiling.Scheme) *Store {
	return &Store{
		scheme: scheme,
		tiles:  make(map[tiling.Address]*Tile),
	}
}

func (s *Store) Scheme() tiling.Scheme {
	return s.scheme
}

// CreateRootTiles creates one tile per level zero tile of the scheme. Calling it again
// returns the existing roots.
func (s *Store) CreateRootTiles() []*Tile {
	if s.roots != nil {
		return s.roots
	}
	for _, address := range tiling.RootAddresses(s.scheme) {
		s.roots = append(s.roots, s.create(address, nil))
	}
	return s.roots
}

func (s *Store) Roots() []*Tile {
	return s.roots
}

func (s *Store) Get(address tiling.Address) (*Tile, bool) {
	t, ok := s.tiles[address]
	return t, ok
}

func (s *Store) Len() int {
	return len(s.tiles)
}

// GetOrCreateChildren returns the four children of tile, creating them in LoadStart on
// first use.
func (s *Store) GetOrCreateChildren(tile *Tile) []*Tile {
	if tile.children != nil {
		return tile.children
	}
	addresses := tile.Address.Children()
	tile.children = make([]*Tile, len(addresses))
	for i, address := range addresses {
		tile.children[i] = s.create(address, tile)
	}
	return tile.children
}

func (s *Store) create(address tiling.Address, parent *Tile) *Tile {
	s.nextSerial++
	t := newTile(address, s.scheme.TileXYToRectangle(address.X, address.Y, address.Level), parent, s.nextSerial)
	s.tiles[address] = t
	return t
}

// Descendants lists every tile below tile, depth first.
func (s *Store) Descendants(tile *Tile) []*Tile {
	var out []*Tile
	stack := append([]*Tile(nil), tile.children...)
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, t)
		stack = append(stack, t.children...)
	}
	return out
}

// RemoveChildren frees and forgets every descendant of tile. Results still in flight
// for them are discarded by the address lookup.
func (s *Store) RemoveChildren(tile *Tile) []*Tile {
	removed := s.Descendants(tile)
	for _, t := range removed {
		t.freeResources()
		t.children = nil
		t.parent = nil
		delete(s.tiles, t.Address)
	}
	tile.children = nil
	return removed
}

// Reincarnate gives tile a fresh serial so results submitted before it was freed are
// discarded.
func (s *Store) Reincarnate(tile *Tile) {
	s.nextSerial++
	tile.serial = s.nextSerial
}

// Walk visits every live tile.
func (s *Store) Walk(fn func(*Tile)) {
	for _, t := range s.tiles {
		fn(t)
	}
}
