package cache

import (
	"fmt"

	"github.com/jaennil/guide_helper/backend/globe/pkg/config"
	"github.com/jaennil/guide_helper/backend/globe/pkg/logger"
)

// New builds the configured backend, wrapped in zstd compression when enabled.
func New(cfg config.Cache, redisCfg config.Redis, l logger.Logger) (TileCache, error) {
	var (
		backend TileCache
		err     error
	)

	switch cfg.Backend {
	case "map":
		backend = NewMapCache()
	case "ristretto":
		backend, err = NewRistrettoCache(cfg.MaxCostMB << 20)
	case "sqlite":
		backend, err = NewSQLiteCache(cfg.SQLitePath, l)
	case "redis":
		backend, err = NewRedisCache(RedisConfig{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
			TTL:      redisCfg.TTL,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	l.Info("tile cache initialized", "backend", cfg.Backend, "compress", cfg.Compress)

	if !cfg.Compress {
		return backend, nil
	}
	compressed, err := NewCompressed(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return compressed, nil
}
