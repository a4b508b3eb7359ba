package terrain

import (
	"context"
	"errors"

	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
	"github.com/jaennil/guide_helper/backend/globe/internal/worker"
	"github.com/jaennil/guide_helper/backend/globe/pkg/logger"
	"github.com/jaennil/guide_helper/backend/globe/pkg/metrics"
)

type State int

const (
	StateUnloaded State = iota
	StateReceiving
	StateReceived
	StateTransforming
	StateTransformed
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateReceiving:
		return "receiving"
	case StateReceived:
		return "received"
	case StateTransforming:
		return "transforming"
	case StateTransformed:
		return "transformed"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type Stage int

const (
	StageFetch Stage = iota
	StageUpsample
	StageTransform
)

func (s Stage) String() string {
	switch s {
	case StageFetch:
		return "fetch"
	case StageUpsample:
		return "upsample"
	default:
		return "transform"
	}
}

// Surface is the terrain payload of one tile.
type Surface struct {
	State State
	Grid  *HeightGrid
	Mesh  *Mesh

	upsampleFailed bool
}

// InFlight reports whether a job for this surface may still deliver a result.
func (s *Surface) InFlight() bool {
	return s.State == StateReceiving || s.State == StateTransforming
}

// CanUpsample reports whether children can synthesize their grids from this one.
func (s *Surface) CanUpsample() bool {
	return s.Grid != nil
}

// UpsampleFailed reports whether synthesizing this surface from its parent failed, which
// leaves StateFailed terminal.
func (s *Surface) UpsampleFailed() bool {
	return s.upsampleFailed
}

// Free drops the payload and returns the surface to StateUnloaded.
func (s *Surface) Free() {
	*s = Surface{}
}

// Result is delivered by the worker pool for one submitted job. Serial identifies the
// tile incarnation that submitted it.
type Result struct {
	Address tiling.Address
	Serial  uint64
	Stage   Stage
	Grid    *HeightGrid
	Mesh    *Mesh
	Err     error
}

// Pipeline drives the terrain state machine of every tile. Advance and Apply must be
// called from the frame loop only.
type Pipeline struct {
	provider Provider
	builder  MeshBuilder
	jobs     worker.Executor[Result]
	logger   logger.Logger
}

func NewPipeline(provider Provider, builder MeshBuilder, jobs worker.Executor[Result], l logger.Logger) *Pipeline {
	return &Pipeline{
		provider: provider,
		builder:  builder,
		jobs:     jobs,
		logger:   l,
	}
}

func (p *Pipeline) Provider() Provider {
	return p.provider
}

func (p *Pipeline) Jobs() worker.Executor[Result] {
	return p.jobs
}

// Advance performs every transition of s that can happen without waiting. It is
// idempotent: a surface with a job in flight is left alone. parent is nil for root tiles.
func (p *Pipeline) Advance(address tiling.Address, serial uint64, s *Surface, parent *Surface) {
	if s.State == StateFailed && parent != nil && parent.CanUpsample() && !s.upsampleFailed {
		parentAddress, _ := address.Parent()
		parentGrid := parent.Grid
		if p.jobs.Submit(func(context.Context) Result {
			grid, err := parentGrid.Upsample(parentAddress, address)
			return Result{Address: address, Serial: serial, Stage: StageUpsample, Grid: grid, Err: err}
		}) {
			s.State = StateReceiving
		}
	}

	if s.State == StateUnloaded {
		if p.jobs.Submit(func(ctx context.Context) Result {
			grid, err := p.provider.RequestTileGeometry(ctx, address)
			return Result{Address: address, Serial: serial, Stage: StageFetch, Grid: grid, Err: err}
		}) {
			s.State = StateReceiving
		}
	}

	if s.State == StateReceived {
		grid := s.Grid
		scheme := p.provider.Scheme()
		if p.jobs.Submit(func(context.Context) Result {
			mesh, err := p.builder.Build(grid, scheme, address)
			return Result{Address: address, Serial: serial, Stage: StageTransform, Mesh: mesh, Err: err}
		}) {
			s.State = StateTransforming
		}
	}

	if s.State == StateTransformed {
		s.State = StateReady
	}
}

// Apply folds a job result into s. It returns false when s was not waiting for that
// stage, which happens when the tile was freed and reloaded after the job was submitted.
func (p *Pipeline) Apply(s *Surface, r Result) bool {
	switch r.Stage {
	case StageFetch, StageUpsample:
		if s.State != StateReceiving {
			return false
		}
		if r.Err != nil {
			s.State = StateFailed
			if r.Stage == StageUpsample {
				s.upsampleFailed = true
			}
			p.logFailure(r)
			return true
		}
		s.Grid = r.Grid
		s.State = StateReceived
	case StageTransform:
		if s.State != StateTransforming {
			return false
		}
		if r.Err != nil {
			s.State = StateFailed
			p.logFailure(r)
			return true
		}
		s.Mesh = r.Mesh
		s.State = StateTransformed
	}

	metrics.TerrainLoads.WithLabelValues(r.Stage.String(), "ok").Inc()
	return true
}

func (p *Pipeline) logFailure(r Result) {
	a := r.Address
	switch {
	case errors.Is(r.Err, tiling.ErrTileUnavailable):
		metrics.TerrainLoads.WithLabelValues(r.Stage.String(), "unavailable").Inc()
		p.logger.Debug("terrain tile unavailable", "level", a.Level, "x", a.X, "y", a.Y)
	case errors.Is(r.Err, context.Canceled):
		metrics.TerrainLoads.WithLabelValues(r.Stage.String(), "canceled").Inc()
		p.logger.Debug("terrain job canceled", "stage", r.Stage.String(), "level", a.Level, "x", a.X, "y", a.Y)
	default:
		metrics.TerrainLoads.WithLabelValues(r.Stage.String(), "error").Inc()
		p.logger.Warn("terrain job failed", "stage", r.Stage.String(), "level", a.Level, "x", a.X, "y", a.Y, "error", r.Err)
	}
}
