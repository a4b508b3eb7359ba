package cache

import (
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/multierr"
)

// Compressed stores zstd compressed values in another cache.
type Compressed struct {
	next    TileCache
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewCompressed(next TileCache) (*Compressed, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Compressed{next: next, encoder: encoder, decoder: decoder}, nil
}

var _ TileCache = (*Compressed)(nil)

func (c *Compressed) Get(ctx context.Context, k TileCacheKey) (TileCacheValue, bool, error) {
	v, ok, err := c.next.Get(ctx, k)
	if err != nil || !ok {
		return nil, ok, err
	}
	data, err := c.decoder.DecodeAll(v, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decompress %s: %w", k, err)
	}
	return data, true, nil
}

func (c *Compressed) Set(ctx context.Context, k TileCacheKey, v TileCacheValue) error {
	return c.next.Set(ctx, k, c.encoder.EncodeAll(v, make([]byte, 0, len(v))))
}

func (c *Compressed) Close() error {
	c.decoder.Close()
	return multierr.Combine(c.encoder.Close(), c.next.Close())
}
