package imagery

import (
	"image"

	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
)

// UVRect is the part of a terrain tile, in texture coordinates, covered by one imagery tile.
type UVRect struct {
	MinU float64 `json:"min_u"`
	MinV float64 `json:"min_v"`
	MaxU float64 `json:"max_u"`
	MaxV float64 `json:"max_v"`
}

// TileImagery attaches one imagery tile of one layer to a terrain tile. Loading is the
// imagery at the resolution the tile wants; Ready is what is shown meanwhile, possibly
// a coarser ancestor. Each non-nil reference holds one count on its imagery.
type TileImagery struct {
	Loading                    *Imagery
	Ready                      *Imagery
	TextureCoordinateRectangle UVRect
	TranslationAndScale        TranslationAndScale
	UseWebMercatorT            bool

	layer *Layer
}

func newTileImagery(layer *Layer, loading *Imagery, uv UVRect, useWebMercatorT bool) *TileImagery {
	return &TileImagery{
		Loading:                    loading,
		TextureCoordinateRectangle: uv,
		UseWebMercatorT:            useWebMercatorT,
		layer:                      layer,
	}
}

func (t *TileImagery) Layer() *Layer {
	return t.layer
}

// IsPlaceholder reports whether this entry only reserves a slot until the layer's
// provider becomes ready.
func (t *TileImagery) IsPlaceholder() bool {
	return t.Loading != nil && t.Loading.State == StatePlaceholder
}

// Advance steps the loading imagery and settles Ready on the best imagery available. It
// returns true once nothing more will load: the target imagery is ready, or it failed
// and no ancestor is still loading.
func (t *TileImagery) Advance(tileRectangle geodesy.Rectangle, skipLoading bool) bool {
	loading := t.Loading
	if loading == nil {
		return true
	}
	layer := t.layer
	needGeographic := !t.UseWebMercatorT

	layer.processImagery(loading, needGeographic, skipLoading)

	if loading.State == StateReady {
		if t.Ready != nil {
			layer.cache.Release(t.Ready)
		}
		t.Ready = loading
		t.Loading = nil
		t.TranslationAndScale = layer.textureTranslationAndScale(tileRectangle, loading, t.UseWebMercatorT)
		return true
	}

	ancestor := loading.parent
	var closestAncestorThatNeedsLoading *Imagery
	for ancestor != nil && (ancestor.State != StateReady || (needGeographic && ancestor.Texture == nil)) {
		if ancestor.State != StateFailed && ancestor.State != StateInvalid && closestAncestorThatNeedsLoading == nil {
			closestAncestorThatNeedsLoading = ancestor
		}
		ancestor = ancestor.parent
	}

	if t.Ready != ancestor {
		if t.Ready != nil {
			layer.cache.Release(t.Ready)
		}
		t.Ready = ancestor
		if ancestor != nil {
			layer.cache.AddReference(ancestor)
			t.TranslationAndScale = layer.textureTranslationAndScale(tileRectangle, ancestor, t.UseWebMercatorT)
		}
	}

	if loading.State == StateFailed || loading.State == StateInvalid {
		if closestAncestorThatNeedsLoading != nil {
			// Ancestors not attached to any terrain tile only load through this path.
			layer.processImagery(closestAncestorThatNeedsLoading, needGeographic, skipLoading)
			return false
		}
		return true
	}
	return false
}

// Texture returns the ready imagery's texture in the projection this association samples.
func (t *TileImagery) Texture() *image.NRGBA {
	if t.Ready == nil {
		return nil
	}
	if t.UseWebMercatorT {
		if t.Ready.TextureWebMercator != nil {
			return t.Ready.TextureWebMercator
		}
	}
	return t.Ready.Texture
}

// Free releases both references.
func (t *TileImagery) Free() {
	if t.Loading != nil {
		t.layer.cache.Release(t.Loading)
		t.Loading = nil
	}
	if t.Ready != nil {
		t.layer.cache.Release(t.Ready)
		t.Ready = nil
	}
}

// Transitioning reports whether a job for the loading imagery may still deliver a result.
func (t *TileImagery) Transitioning() bool {
	return t.Loading != nil && t.Loading.State == StateTransitioning
}
