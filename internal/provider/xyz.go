package provider

import (
	"context"
	"fmt"

	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
	"github.com/jaennil/guide_helper/backend/globe/internal/imagery"
	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
)

const xyzTileSize = 256

// XYZImagery serves Web Mercator imagery from a slippy map tile server.
type XYZImagery struct {
	name         string
	template     Template
	scheme       tiling.Scheme
	minimumLevel uint32
	maximumLevel uint32
	fetcher      Fetcher
}

var _ imagery.Provider = (*XYZImagery)(nil)

func NewXYZImagery(name string, template Template, maximumLevel uint32, fetcher Fetcher) *XYZImagery {
	return &XYZImagery{
		name:         name,
		template:     template,
		scheme:       tiling.NewWebMercatorScheme(geodesy.WGS84),
		maximumLevel: maximumLevel,
		fetcher:      fetcher,
	}
}

func (p *XYZImagery) Name() string                 { return p.name }
func (p *XYZImagery) Ready() bool                  { return true }
func (p *XYZImagery) Scheme() tiling.Scheme        { return p.scheme }
func (p *XYZImagery) Rectangle() geodesy.Rectangle { return p.scheme.Rectangle() }
func (p *XYZImagery) TileWidth() int               { return xyzTileSize }
func (p *XYZImagery) TileHeight() int              { return xyzTileSize }
func (p *XYZImagery) MinimumLevel() uint32         { return p.minimumLevel }
func (p *XYZImagery) MaximumLevel() uint32         { return p.maximumLevel }

func (p *XYZImagery) RequestImage(ctx context.Context, a tiling.Address) (imagery.RawImage, error) {
	if a.Level > p.maximumLevel {
		return imagery.RawImage{}, fmt.Errorf("%w: level %d above %d", tiling.ErrTileUnavailable, a.Level, p.maximumLevel)
	}
	data, contentType, err := p.fetcher.Fetch(ctx, p.name, int(a.Level), int(a.X), int(a.Y), p.template.Expand(a))
	if err != nil {
		return imagery.RawImage{}, fmt.Errorf("failed to fetch %s tile %s: %w", p.name, a, err)
	}
	return imagery.RawImage{Data: data, ContentType: contentType}, nil
}
