package imagery

import (
	"github.com/jaennil/guide_helper/backend/globe/internal/invariant"
	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
	"github.com/jaennil/guide_helper/backend/globe/pkg/logger"
)

// Cache is a layer's arena of imagery keyed by address. It is owned by the frame loop.
type Cache struct {
	scheme     tiling.Scheme
	entries    map[tiling.Address]*Imagery
	nextSerial uint64
	logger     logger.Logger

	increments int
	decrements int
}

func NewCache(scheme tiling.Scheme, l logger.Logger) *Cache {
	return &Cache{
		scheme:  scheme,
		entries: make(map[tiling.Address]*Imagery),
		logger:  l,
	}
}

// Acquire returns the imagery at address with one more reference, creating it and its
// ancestor chain on first use. Every imagery holds one reference on its parent.
func (c *Cache) Acquire(address tiling.Address) *Imagery {
	im, ok := c.entries[address]
	if !ok {
		c.nextSerial++
		im = &Imagery{
			Address:   address,
			Rectangle: c.scheme.TileXYToRectangle(address.X, address.Y, address.Level),
			State:     StateUnloaded,
			serial:    c.nextSerial,
		}
		c.entries[address] = im
		if parent, ok := address.Parent(); ok {
			im.parent = c.Acquire(parent)
		}
	}
	c.AddReference(im)
	return im
}

func (c *Cache) AddReference(im *Imagery) {
	im.refCount++
	c.increments++
}

// Release drops one reference and frees im, releasing its parent, when none remain.
func (c *Cache) Release(im *Imagery) int {
	if im == nil {
		return 0
	}
	if im.refCount <= 0 {
		_ = invariant.Violated(c.logger, "imagery released with no references",
			"level", im.Address.Level, "x", im.Address.X, "y", im.Address.Y)
		return 0
	}

	im.refCount--
	c.decrements++
	if im.refCount > 0 || im.State == StatePlaceholder {
		return im.refCount
	}

	if c.entries[im.Address] == im {
		delete(c.entries, im.Address)
	}
	parent := im.parent
	im.free()
	if parent != nil {
		c.Release(parent)
	}
	return 0
}

// Lookup finds a live imagery by address.
func (c *Cache) Lookup(address tiling.Address) (*Imagery, bool) {
	im, ok := c.entries[address]
	return im, ok
}

func (c *Cache) Len() int {
	return len(c.entries)
}

// References reports the total reference increments and decrements so far. They are equal
// once nothing references any imagery of this cache.
func (c *Cache) References() (increments, decrements int) {
	return c.increments, c.decrements
}
