package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"

	"github.com/jaennil/guide_helper/backend/globe/internal/imagery"
	v1 "github.com/jaennil/guide_helper/backend/globe/internal/infrastructure/http/v1"
	"github.com/jaennil/guide_helper/backend/globe/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/guide_helper/backend/globe/internal/quadtree"
	"github.com/jaennil/guide_helper/backend/globe/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/globe/internal/terrain"
	"github.com/jaennil/guide_helper/backend/globe/internal/usecase"
	"github.com/jaennil/guide_helper/backend/globe/internal/worker"
	"github.com/jaennil/guide_helper/backend/globe/pkg/config"
	"github.com/jaennil/guide_helper/backend/globe/pkg/http_server"
	"github.com/jaennil/guide_helper/backend/globe/pkg/logger"
	"github.com/jaennil/guide_helper/backend/globe/pkg/telemetry"
)

func Run(cfg *config.Config) {
	l := logger.NewZapLogger(cfg.Logger)
	defer func() { _ = l.Sync() }()

	l.Info("app config", "cfg", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = logger.WithLogger(ctx, l)

	// Initialize OpenTelemetry if enabled
	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.InitTracer(telemetry.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Telemetry.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		}, l)
		if err != nil {
			l.Fatal("failed to initialize telemetry", "error", err)
		}
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				l.Error("failed to shutdown telemetry", "error", err)
			}
		}()
		l.Info("telemetry initialized", "service", cfg.Telemetry.ServiceName)
	}

	// Raw tile cache and upstream fetching
	tileCache, err := cache.New(cfg.Cache, cfg.Redis, l)
	if err != nil {
		l.Fatal("failed to initialize tile cache", "backend", cfg.Cache.Backend, "error", err)
	}
	fetchUseCase := usecase.NewFetchUseCase(tileCache, cfg.Upstream, l)

	// Engine
	terrainJobs := worker.NewPool[terrain.Result](ctx, "terrain", cfg.Engine.ComputeWorkers, cfg.Engine.QueueSize, l)
	imageryJobs := worker.NewPool[imagery.Result](ctx, "imagery", cfg.Engine.FetchWorkers, cfg.Engine.QueueSize, l)

	terrainProvider := newTerrainProvider(cfg.Terrain, fetchUseCase, l)
	builder := terrain.NewHeightmapMeshBuilder(terrain.NewIndexCache(), terrainProvider.LevelMaximumGeometricError)
	pipeline := terrain.NewPipeline(terrainProvider, builder, terrainJobs, l)

	registry := imagery.NewRegistry(imageryJobs, l)
	addImageryLayers(registry, cfg.Imagery, fetchUseCase)

	engine := quadtree.New(quadtree.Options{
		MaximumScreenSpaceError: cfg.Engine.MaximumScreenSpaceError,
		TileCacheSize:           cfg.Engine.TileCacheSize,
		LoadingDescendantLimit:  cfg.Engine.LoadingDescendantLimit,
		LoadQueueTimeSlice:      cfg.Engine.LoadQueueTimeSlice,
		MaximumLevel:            cfg.Engine.MaximumLevel,
	}, pipeline, registry, clock.New(), l)

	globeUseCase := usecase.NewGlobeUseCase(engine, clock.New(), cfg.Engine.FrameInterval,
		cfg.Engine.ViewportWidth, cfg.Engine.ViewportHeight, l)

	loopCtx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()
	loopDone := make(chan error, 1)
	go func() {
		loopDone <- globeUseCase.Run(loopCtx)
	}()

	// HTTP
	validate := validator.New()
	h := handler.NewHandler(validate, globeUseCase, fetchUseCase)
	router := v1.NewRouter(h, l, cfg.Telemetry.Enabled)

	httpServer := http_server.NewServer(ctx, cfg.HTTP.Server, router)

	go func() {
		l.Info("starting http server...", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("http server failed", "error", err)
		}
		l.Info("http server stopped", "address", httpServer.Addr)
	}()

	<-ctx.Done()
	l.Info("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	l.Info("shutting down http server...", "address", httpServer.Addr)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Error("http server shutdown failed", "error", err)
	} else {
		l.Info("http_server shutdown completed")
	}

	cancelLoop()
	if err := <-loopDone; err != nil {
		l.Error("frame loop failed", "error", err)
	}
	engine.Close()

	fetchUseCase.Wait()
	if err := multierr.Combine(
		terrainJobs.Close(),
		imageryJobs.Close(),
		tileCache.Close(),
	); err != nil {
		l.Error("failed to release resources", "error", err)
	}

	l.Info("application shutdown completed")
}
