package app

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
	"github.com/jaennil/guide_helper/backend/globe/internal/imagery"
	"github.com/jaennil/guide_helper/backend/globe/internal/provider"
	"github.com/jaennil/guide_helper/backend/globe/internal/terrain"
	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
	"github.com/jaennil/guide_helper/backend/globe/internal/usecase"
	"github.com/jaennil/guide_helper/backend/globe/pkg/config"
	"github.com/jaennil/guide_helper/backend/globe/pkg/logger"
)

const terrariumSource = "terrarium"

func newTerrainProvider(cfg config.Terrain, fetch *usecase.FetchUseCase, l logger.Logger) terrain.Provider {
	switch cfg.Provider {
	case "terrarium":
		tmpl := provider.NewTemplate(cfg.URLTemplate, nil)
		fetch.RegisterSource(terrariumSource, tmpl.URL)
		l.Info("terrain provider", "kind", cfg.Provider, "max_level", cfg.MaxLevel)
		return provider.NewTerrariumTerrain(terrariumSource, tmpl, cfg.MaxLevel, fetch)
	default:
		l.Info("terrain provider", "kind", "ellipsoid")
		return terrain.NewEllipsoidProvider(tiling.NewGeographicScheme(geodesy.WGS84))
	}
}

// addImageryLayers adds the configured XYZ layers bottom first, then the debug layer.
func addImageryLayers(registry *imagery.Registry, cfg config.Imagery, fetch *usecase.FetchUseCase) {
	for i, pattern := range cfg.URLTemplates {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		var subdomains []string
		if strings.Contains(pattern, "{s}") {
			subdomains = cfg.Subdomains
		}
		name := sourceName(pattern, i)
		tmpl := provider.NewTemplate(pattern, subdomains)
		fetch.RegisterSource(name, tmpl.URL)
		registry.NewLayer(name, provider.NewXYZImagery(name, tmpl, cfg.MaxLevel, fetch), imagery.LayerOptions{})
	}

	if cfg.TileCoordinates {
		registry.NewLayer("tile-coordinates", provider.NewTileCoordinatesImagery(nil, cfg.MaxLevel), imagery.LayerOptions{})
	}
}

// sourceName derives a cache-safe name from the template host.
func sourceName(pattern string, index int) string {
	host := "xyz"
	if u, err := url.Parse(strings.NewReplacer("{", "", "}", "").Replace(pattern)); err == nil && u.Hostname() != "" {
		host = strings.ReplaceAll(u.Hostname(), ".", "-")
	}
	return fmt.Sprintf("%s-%d", host, index)
}
