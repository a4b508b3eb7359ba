package quadtree

import (
	"image"

	"github.com/jaennil/guide_helper/backend/globe/internal/imagery"
	"github.com/jaennil/guide_helper/backend/globe/internal/terrain"
	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
)

// RenderImagery is one layer's texture on a rendered tile.
type RenderImagery struct {
	Layer                      imagery.LayerID
	LayerName                  string
	Texture                    *image.NRGBA
	TranslationAndScale        imagery.TranslationAndScale
	TextureCoordinateRectangle imagery.UVRect
	UseWebMercatorT            bool
	Params                     imagery.VisualParams
}

// RenderTile is what the renderer draws for one tile.
type RenderTile struct {
	Address tiling.Address
	Mesh    *terrain.Mesh
	Imagery []RenderImagery
}

// RenderSet lists the renderable tiles of the last selection with their ready imagery,
// bottom layer first.
func (e *Engine) RenderSet() []RenderTile {
	out := make([]RenderTile, 0, len(e.selected))
	for _, t := range e.selected {
		if !t.Renderable || t.Surface.Mesh == nil {
			continue
		}
		rt := RenderTile{Address: t.Address, Mesh: t.Surface.Mesh}
		for _, ti := range t.Imagery {
			layer := ti.Layer()
			texture := ti.Texture()
			if texture == nil || !layer.Show() || layer.Params().Alpha == 0 {
				continue
			}
			rt.Imagery = append(rt.Imagery, RenderImagery{
				Layer:                      layer.ID(),
				LayerName:                  layer.Name(),
				Texture:                    texture,
				TranslationAndScale:        ti.TranslationAndScale,
				TextureCoordinateRectangle: ti.TextureCoordinateRectangle,
				UseWebMercatorT:            ti.UseWebMercatorT,
				Params:                     layer.Params(),
			})
		}
		out = append(out, rt)
	}
	return out
}
