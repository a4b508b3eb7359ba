// Package imagery loads imagery tiles per layer, shares them between terrain tiles with
// reference counting and substitutes coarser ancestors while finer imagery loads.
package imagery

import (
	"image"

	"github.com/google/uuid"
	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
)

type LayerID = uuid.UUID

type State int

const (
	StateUnloaded State = iota
	StateTransitioning
	StateReceived
	StateTextureLoaded
	StateReady
	StateFailed
	StateInvalid
	StatePlaceholder
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateTransitioning:
		return "transitioning"
	case StateReceived:
		return "received"
	case StateTextureLoaded:
		return "texture-loaded"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateInvalid:
		return "invalid"
	case StatePlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// Key identifies an imagery tile across layers.
type Key struct {
	Layer   LayerID
	Address tiling.Address
}

// Imagery is one tile of one layer. It lives in its layer's Cache and is freed when its
// reference count drops to zero.
type Imagery struct {
	Address   tiling.Address
	Rectangle geodesy.Rectangle
	State     State

	// Raw holds fetched bytes between RECEIVED and decoding.
	Raw *RawImage
	// Texture is in geographic projection. TextureWebMercator is the decoded texture of a
	// Web Mercator provider before reprojection.
	Texture            *image.NRGBA
	TextureWebMercator *image.NRGBA

	parent   *Imagery
	refCount int
	serial   uint64
}

// Parent is the imagery one level coarser in the same layer, nil at level zero.
func (im *Imagery) Parent() *Imagery {
	return im.parent
}

func (im *Imagery) RefCount() int {
	return im.refCount
}

func (im *Imagery) free() {
	im.Raw = nil
	im.Texture = nil
	im.TextureWebMercator = nil
	im.parent = nil
}
