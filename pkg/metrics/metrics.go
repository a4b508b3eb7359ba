package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FrameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "globe_frame_duration_seconds",
		Help:    "Duration of one begin/select/end frame cycle in seconds",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
	})

	TilesResident = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "globe_tiles_resident",
		Help: "Number of tiles tracked by the replacement queue",
	})

	TilesRendered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "globe_tiles_rendered",
		Help: "Number of tiles in the last render set",
	})

	TilesEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "globe_tiles_evicted_total",
		Help: "Total number of tiles whose resources were freed by trimming",
	})

	TerrainLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "globe_terrain_loads_total",
		Help: "Terrain pipeline results by stage and outcome",
	}, []string{"stage", "result"})

	ImageryResident = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "globe_imagery_resident",
		Help: "Number of imagery entries alive per layer",
	}, []string{"layer"})

	ImageryLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "globe_imagery_loads_total",
		Help: "Imagery pipeline results by stage and outcome",
	}, []string{"stage", "result"})

	CompletionsDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "globe_completions_discarded_total",
		Help: "Job results dropped because their tile or imagery no longer exists",
	}, []string{"pipeline"})

	WorkerQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "globe_worker_queue_depth",
		Help: "Jobs submitted but not yet completed per worker pool",
	}, []string{"pool"})

	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "globe_provider_requests_total",
		Help: "Total number of raw tile requests per source",
	}, []string{"source"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "globe_cache_hits_total",
		Help: "Total number of raw tile cache hits",
	}, []string{"source"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "globe_cache_misses_total",
		Help: "Total number of raw tile cache misses",
	}, []string{"source"})

	CacheStores = promauto.NewCounter(prometheus.CounterOpts{
		Name: "globe_cache_stores_total",
		Help: "Total number of raw tile cache store operations",
	})

	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "globe_upstream_latency_seconds",
		Help:    "Latency of upstream tile fetches in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	RedisOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "globe_redis_operation_duration_seconds",
		Help:    "Duration of Redis operations in seconds",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"operation"})

	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "globe_redis_errors_total",
		Help: "Total number of Redis errors",
	}, []string{"operation"})

	StreamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "globe_stream_subscribers",
		Help: "Number of clients receiving frame snapshots",
	})

	FrameCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "globe_frame_commands_total",
		Help: "Commands handed to the frame loop by kind",
	}, []string{"command"})
)
