package provider

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
	"github.com/jaennil/guide_helper/backend/globe/internal/imagery"
	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
)

const debugTileSize = 256

var levelTints = []color.NRGBA{
	{R: 230, G: 80, B: 80, A: 96},
	{R: 80, G: 200, B: 90, A: 96},
	{R: 80, G: 120, B: 230, A: 96},
	{R: 230, G: 200, B: 60, A: 96},
}

// TileCoordinatesImagery renders tile outlines tinted by level. It needs no network.
type TileCoordinatesImagery struct {
	scheme       tiling.Scheme
	maximumLevel uint32
}

var _ imagery.Provider = (*TileCoordinatesImagery)(nil)

func NewTileCoordinatesImagery(scheme tiling.Scheme, maximumLevel uint32) *TileCoordinatesImagery {
	if scheme == nil {
		scheme = tiling.NewGeographicScheme(geodesy.WGS84)
	}
	return &TileCoordinatesImagery{scheme: scheme, maximumLevel: maximumLevel}
}

func (p *TileCoordinatesImagery) Ready() bool                  { return true }
func (p *TileCoordinatesImagery) Scheme() tiling.Scheme        { return p.scheme }
func (p *TileCoordinatesImagery) Rectangle() geodesy.Rectangle { return p.scheme.Rectangle() }
func (p *TileCoordinatesImagery) TileWidth() int               { return debugTileSize }
func (p *TileCoordinatesImagery) TileHeight() int              { return debugTileSize }
func (p *TileCoordinatesImagery) MinimumLevel() uint32         { return 0 }
func (p *TileCoordinatesImagery) MaximumLevel() uint32         { return p.maximumLevel }

func (p *TileCoordinatesImagery) RequestImage(ctx context.Context, a tiling.Address) (imagery.RawImage, error) {
	if err := ctx.Err(); err != nil {
		return imagery.RawImage{}, err
	}
	img := DrawTileOutline(a, debugTileSize)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return imagery.RawImage{}, fmt.Errorf("failed to encode debug tile %s: %w", a, err)
	}
	return imagery.RawImage{Data: buf.Bytes(), ContentType: "image/png"}, nil
}

// DrawTileOutline draws a two pixel border over a level tint.
func DrawTileOutline(a tiling.Address, size int) *image.NRGBA {
	img := imaging.New(size, size, levelTints[int(a.Level)%len(levelTints)])
	border := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	for i := 0; i < size; i++ {
		for w := 0; w < 2; w++ {
			img.SetNRGBA(i, w, border)
			img.SetNRGBA(i, size-1-w, border)
			img.SetNRGBA(w, i, border)
			img.SetNRGBA(size-1-w, i, border)
		}
	}
	return img
}
