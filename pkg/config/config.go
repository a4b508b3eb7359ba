package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type (
	Config struct {
		HTTP      HTTP      `envPrefix:"HTTP_"`
		Logger    Logger    `envPrefix:"LOGGER_"`
		Telemetry Telemetry `envPrefix:"TELEMETRY_"`
		Cache     Cache     `envPrefix:"CACHE_"`
		Redis     Redis     `envPrefix:"REDIS_"`
		Upstream  Upstream  `envPrefix:"UPSTREAM_"`
		Terrain   Terrain   `envPrefix:"TERRAIN_"`
		Imagery   Imagery   `envPrefix:"IMAGERY_"`
		Engine    Engine    `envPrefix:"ENGINE_"`
	}

	HTTP struct {
		Server  Server        `envPrefix:"SERVER_"`
		Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
	}

	Server struct {
		Port         string        `env:"PORT" envDefault:"8080" validate:"required,numeric"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
		IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	}

	Logger struct {
		Level          string `env:"LEVEL" envDefault:"info"`
		File           string `env:"FILE" envDefault:""`
		FileMaxSizeMB  int    `env:"FILE_MAX_SIZE_MB" envDefault:"100"`
		FileMaxBackups int    `env:"FILE_MAX_BACKUPS" envDefault:"3"`
		FileMaxAgeDays int    `env:"FILE_MAX_AGE_DAYS" envDefault:"28"`
	}

	Telemetry struct {
		Enabled        bool   `env:"ENABLED" envDefault:"false"`
		ServiceName    string `env:"SERVICE_NAME" envDefault:"guide-helper-globe"`
		ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
		Environment    string `env:"ENVIRONMENT" envDefault:"production"`
		OTLPEndpoint   string `env:"OTLP_ENDPOINT" envDefault:"otel-collector.observability.svc.cluster.local:4317"`
	}

	Cache struct {
		// Backend selects where raw tile bytes are cached: map, ristretto, sqlite or redis.
		Backend    string `env:"BACKEND" envDefault:"ristretto" validate:"oneof=map ristretto sqlite redis"`
		Compress   bool   `env:"COMPRESS" envDefault:"false"`
		MaxCostMB  int64  `env:"MAX_COST_MB" envDefault:"256" validate:"gt=0"`
		SQLitePath string `env:"SQLITE_PATH" envDefault:"file:globe.db?cache=shared&mode=memory"`
	}

	Redis struct {
		Addr     string        `env:"ADDR" envDefault:"localhost:6379"`
		Password string        `env:"PASSWORD" envDefault:""`
		DB       int           `env:"DB" envDefault:"0"`
		TTL      time.Duration `env:"TTL" envDefault:"24h"`
	}

	Upstream struct {
		UserAgent      string        `env:"USER_AGENT" envDefault:"GuideHelperGlobe/1.0 (https://github.com/jaennil/guide_helper)"`
		Referer        string        `env:"REFERER" envDefault:""`
		Timeout        time.Duration `env:"TIMEOUT" envDefault:"30s"`
		RequestsPerSec float64       `env:"REQUESTS_PER_SEC" envDefault:"20" validate:"gt=0"`
		Burst          int           `env:"BURST" envDefault:"8" validate:"gt=0"`
	}

	Terrain struct {
		// Provider is ellipsoid (flat, offline) or terrarium (PNG-encoded heights over HTTP).
		Provider    string `env:"PROVIDER" envDefault:"ellipsoid" validate:"oneof=ellipsoid terrarium"`
		URLTemplate string `env:"URL_TEMPLATE" envDefault:"https://s3.amazonaws.com/elevation-tiles-prod/terrarium/{z}/{x}/{y}.png"`
		MaxLevel    uint32 `env:"MAX_LEVEL" envDefault:"15"`
	}

	Imagery struct {
		// URLTemplates are XYZ layers, bottom first.
		URLTemplates    []string `env:"URL_TEMPLATES" envSeparator:"," envDefault:"https://tile.openstreetmap.org/{z}/{x}/{y}.png"`
		Subdomains      []string `env:"SUBDOMAINS" envSeparator:"," envDefault:"a,b,c"`
		MaxLevel        uint32   `env:"MAX_LEVEL" envDefault:"19"`
		TileCoordinates bool     `env:"TILE_COORDINATES" envDefault:"false"`
	}

	Engine struct {
		MaximumScreenSpaceError float64       `env:"MAXIMUM_SCREEN_SPACE_ERROR" envDefault:"2.0" validate:"gt=0"`
		TileCacheSize           int           `env:"TILE_CACHE_SIZE" envDefault:"100" validate:"gte=0"`
		LoadingDescendantLimit  int           `env:"LOADING_DESCENDANT_LIMIT" envDefault:"20" validate:"gte=0"`
		LoadQueueTimeSlice      time.Duration `env:"LOAD_QUEUE_TIME_SLICE" envDefault:"5ms"`
		MaximumLevel            uint32        `env:"MAXIMUM_LEVEL" envDefault:"22"`
		FetchWorkers            int           `env:"FETCH_WORKERS" envDefault:"8" validate:"gt=0"`
		ComputeWorkers          int           `env:"COMPUTE_WORKERS" envDefault:"4" validate:"gt=0"`
		QueueSize               int           `env:"QUEUE_SIZE" envDefault:"256" validate:"gt=0"`
		FrameInterval           time.Duration `env:"FRAME_INTERVAL" envDefault:"33ms"`
		ViewportWidth           int           `env:"VIEWPORT_WIDTH" envDefault:"1280" validate:"gt=0"`
		ViewportHeight          int           `env:"VIEWPORT_HEIGHT" envDefault:"720" validate:"gt=0"`
	}
)

func New() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Printf("NOTICE: .env file not found or cannot be loaded: %v\n", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
