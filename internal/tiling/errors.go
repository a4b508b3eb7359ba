package tiling

import "errors"

var (
	// ErrTileUnavailable is returned by providers for tiles outside their coverage. It is
	// permanent: the tile is never requested again.
	ErrTileUnavailable = errors.New("tile unavailable")

	// ErrProviderNotReady is returned when a provider is asked for data before it is ready.
	ErrProviderNotReady = errors.New("provider not ready")
)
