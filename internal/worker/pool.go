package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jaennil/guide_helper/backend/globe/pkg/logger"
	"github.com/jaennil/guide_helper/backend/globe/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Pool is a fixed set of goroutines consuming a bounded task queue.
type Pool[R any] struct {
	name    string
	tasks   chan Task[R]
	group   *errgroup.Group
	cancel  context.CancelFunc
	closed  atomic.Bool
	pending atomic.Int64
	logger  logger.Logger

	mu      sync.Mutex
	results []R
}

var _ Executor[int] = (*Pool[int])(nil)

func NewPool[R any](ctx context.Context, name string, workers, queueSize int, l logger.Logger) *Pool[R] {
	if workers < 1 {
		workers = 1
	}
	if queueSize < workers {
		queueSize = workers
	}

	ctx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(ctx)

	p := &Pool[R]{
		name:   name,
		tasks:  make(chan Task[R], queueSize),
		group:  group,
		cancel: cancel,
		logger: l,
	}

	for range workers {
		group.Go(func() error {
			p.work(groupCtx)
			return nil
		})
	}

	l.Debug("worker pool started", "pool", name, "workers", workers, "queue", queueSize)

	return p
}

func (p *Pool[R]) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.tasks:
			result := task(ctx)

			p.mu.Lock()
			p.results = append(p.results, result)
			p.mu.Unlock()
		}
	}
}

func (p *Pool[R]) Submit(task Task[R]) bool {
	if p.closed.Load() {
		return false
	}

	p.pending.Add(1)
	select {
	case p.tasks <- task:
		metrics.WorkerQueueDepth.WithLabelValues(p.name).Inc()
		return true
	default:
		p.pending.Add(-1)
		return false
	}
}

func (p *Pool[R]) Poll() []R {
	p.mu.Lock()
	out := p.results
	p.results = nil
	p.mu.Unlock()

	if n := len(out); n > 0 {
		p.pending.Add(-int64(n))
		metrics.WorkerQueueDepth.WithLabelValues(p.name).Sub(float64(n))
	}
	return out
}

func (p *Pool[R]) Pending() int {
	return int(p.pending.Load())
}

// Close stops accepting tasks, cancels the context passed to running tasks and waits for
// the workers to exit. Queued tasks that never started are dropped.
func (p *Pool[R]) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.cancel()
	err := p.group.Wait()
	p.logger.Debug("worker pool stopped", "pool", p.name)
	return err
}
