package worker

import (
	"context"
	"sync"
)

// Manual runs tasks on the caller's goroutine, either immediately on Submit or when Run
// is called. Results are still only visible through Poll.
type Manual[R any] struct {
	ctx  context.Context
	auto bool

	mu        sync.Mutex
	queued    []Task[R]
	results   []R
	submitted int
	reject    bool
}

var _ Executor[int] = (*Manual[int])(nil)

// NewInline returns an executor that runs each task as it is submitted.
func NewInline[R any]() *Manual[R] {
	return &Manual[R]{ctx: context.Background(), auto: true}
}

// NewManual returns an executor that holds tasks until Run.
func NewManual[R any]() *Manual[R] {
	return &Manual[R]{ctx: context.Background()}
}

func (m *Manual[R]) Submit(task Task[R]) bool {
	m.mu.Lock()
	if m.reject {
		m.mu.Unlock()
		return false
	}
	m.submitted++
	if !m.auto {
		m.queued = append(m.queued, task)
		m.mu.Unlock()
		return true
	}
	m.mu.Unlock()

	result := task(m.ctx)

	m.mu.Lock()
	m.results = append(m.results, result)
	m.mu.Unlock()
	return true
}

// Run executes every queued task.
func (m *Manual[R]) Run() {
	m.mu.Lock()
	queued := m.queued
	m.queued = nil
	m.mu.Unlock()

	for _, task := range queued {
		result := task(m.ctx)
		m.mu.Lock()
		m.results = append(m.results, result)
		m.mu.Unlock()
	}
}

func (m *Manual[R]) Poll() []R {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.results
	m.results = nil
	return out
}

func (m *Manual[R]) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queued) + len(m.results)
}

// Submitted counts accepted tasks.
func (m *Manual[R]) Submitted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitted
}

// Reject makes Submit refuse tasks, simulating a full queue.
func (m *Manual[R]) Reject(reject bool) {
	m.mu.Lock()
	m.reject = reject
	m.mu.Unlock()
}
