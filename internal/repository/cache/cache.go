package cache

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnknownBackend = errors.New("unknown cache backend")

// TileCacheKey identifies raw tile bytes of one upstream source.
type TileCacheKey struct {
	Source string
	X      int
	Y      int
	Z      int
}

func (k TileCacheKey) String() string {
	return fmt.Sprintf("%s/%d/%d/%d", k.Source, k.Z, k.X, k.Y)
}

type TileCacheValue []byte

// TileCache stores raw tile bytes for the lifetime of the process or the backend.
type TileCache interface {
	Get(ctx context.Context, key TileCacheKey) (TileCacheValue, bool, error)
	Set(ctx context.Context, key TileCacheKey, value TileCacheValue) error
	Close() error
}
