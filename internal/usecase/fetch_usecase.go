package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"github.com/jaennil/guide_helper/backend/globe/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
	"github.com/jaennil/guide_helper/backend/globe/pkg/config"
	"github.com/jaennil/guide_helper/backend/globe/pkg/logger"
	"github.com/jaennil/guide_helper/backend/globe/pkg/metrics"
)

var (
	ErrUpstreamStatus = errors.New("unexpected upstream status")
	ErrUnknownSource  = errors.New("unknown tile source")
)

// SourceURL builds the upstream URL of one tile of a registered source.
type SourceURL func(z, x, y int) string

// FetchUseCase fetches raw tile bytes from upstream servers, reading through the tile
// cache and pacing upstream requests.
type FetchUseCase struct {
	cache      cache.TileCache
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	referer    string
	logger     logger.Logger

	mu      sync.RWMutex
	sources map[string]SourceURL

	stores sync.WaitGroup
}

func NewFetchUseCase(c cache.TileCache, cfg config.Upstream, l logger.Logger) *FetchUseCase {
	return &FetchUseCase{
		cache: c,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		userAgent: cfg.UserAgent,
		referer:   cfg.Referer,
		logger:    l,
		sources:   make(map[string]SourceURL),
	}
}

// RegisterSource makes source available to FetchTile.
func (uc *FetchUseCase) RegisterSource(source string, url SourceURL) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.sources[source] = url
}

func (uc *FetchUseCase) Sources() []string {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	names := lo.Keys(uc.sources)
	slices.Sort(names)
	return names
}

// FetchTile fetches a tile of a registered source.
func (uc *FetchUseCase) FetchTile(ctx context.Context, source string, z, x, y int) ([]byte, string, error) {
	uc.mu.RLock()
	url, ok := uc.sources[source]
	uc.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	return uc.Fetch(ctx, source, z, x, y, url(z, x, y))
}

// Fetch returns the tile at url, cached under source/z/x/y. A 404 or 204 from upstream
// is reported as tiling.ErrTileUnavailable.
func (uc *FetchUseCase) Fetch(ctx context.Context, source string, z, x, y int, url string) ([]byte, string, error) {
	metrics.ProviderRequests.WithLabelValues(source).Inc()
	key := cache.TileCacheKey{Source: source, Z: z, X: x, Y: y}

	data, exists, err := uc.cache.Get(ctx, key)
	if err != nil {
		uc.logger.Warn("failed to check cache, will fetch from upstream", "source", source, "z", z, "x", x, "y", y, "error", err)
	} else if exists && len(data) > 0 {
		metrics.CacheHits.WithLabelValues(source).Inc()
		uc.logger.Debug("cache hit", "source", source, "z", z, "x", x, "y", y, "size", len(data))
		return data, http.DetectContentType(data), nil
	}
	metrics.CacheMisses.WithLabelValues(source).Inc()

	if err := uc.limiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("rate limiter: %w", err)
	}

	data, contentType, err := uc.fetchUpstream(ctx, source, url)
	if err != nil {
		return nil, "", err
	}

	// Store in cache (fire and forget)
	uc.stores.Add(1)
	go func() {
		defer uc.stores.Done()
		storeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := uc.cache.Set(storeCtx, key, data); err != nil {
			uc.logger.Warn("failed to store tile in cache", "source", source, "z", z, "x", x, "y", y, "error", err)
			return
		}
		metrics.CacheStores.Inc()
	}()

	return data, contentType, nil
}

func (uc *FetchUseCase) fetchUpstream(ctx context.Context, source, url string) ([]byte, string, error) {
	uc.logger.Debug("fetching from upstream", "source", source, "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	// Tile servers such as OpenStreetMap require an identifying user agent.
	req.Header.Set("User-Agent", uc.userAgent)
	if uc.referer != "" {
		req.Header.Set("Referer", uc.referer)
	}

	start := time.Now()
	resp, err := uc.httpClient.Do(req)
	metrics.UpstreamLatency.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch tile from upstream: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		return nil, "", fmt.Errorf("%w: upstream returned status %d", tiling.ErrTileUnavailable, resp.StatusCode)
	default:
		return nil, "", fmt.Errorf("%w %d", ErrUpstreamStatus, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read tile data: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty body", tiling.ErrTileUnavailable)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// Wait blocks until pending cache stores finish.
func (uc *FetchUseCase) Wait() {
	uc.stores.Wait()
}
