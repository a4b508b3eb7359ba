package imagery

import (
	"context"

	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
)

// RawImage is an encoded image as fetched from a provider.
type RawImage struct {
	Data        []byte
	ContentType string
}

// Provider supplies imagery tiles for one layer.
type Provider interface {
	Ready() bool
	Scheme() tiling.Scheme
	Rectangle() geodesy.Rectangle
	TileWidth() int
	TileHeight() int
	MinimumLevel() uint32
	MaximumLevel() uint32
	// RequestImage blocks until the tile is fetched. Errors wrapping
	// tiling.ErrTileUnavailable mark the imagery invalid; anything else marks it failed.
	RequestImage(ctx context.Context, address tiling.Address) (RawImage, error)
}
