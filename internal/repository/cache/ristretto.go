package cache

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// RistrettoCache keeps tiles in memory up to a byte budget, evicting by TinyLFU.
type RistrettoCache struct {
	cache *ristretto.Cache[string, []byte]
}

func NewRistrettoCache(maxCostBytes int64) (*RistrettoCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		// About ten counters per expected entry at ~16KB per tile.
		NumCounters: max(maxCostBytes/16384*10, 1000),
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	return &RistrettoCache{cache: c}, nil
}

var _ TileCache = (*RistrettoCache)(nil)

func (c *RistrettoCache) Get(_ context.Context, k TileCacheKey) (TileCacheValue, bool, error) {
	v, ok := c.cache.Get(k.String())
	if !ok {
		return nil, false, nil
	}
	return v, true, nil
}

func (c *RistrettoCache) Set(_ context.Context, k TileCacheKey, v TileCacheValue) error {
	c.cache.Set(k.String(), v, int64(len(v)))
	return nil
}

// Wait blocks until buffered writes are applied.
func (c *RistrettoCache) Wait() {
	c.cache.Wait()
}

func (c *RistrettoCache) Close() error {
	c.cache.Close()
	return nil
}
