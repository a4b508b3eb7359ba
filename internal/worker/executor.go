// Package worker runs blocking jobs off the frame loop and hands their results back
// through a completion queue that the frame loop drains without blocking.
package worker

import "context"

// Task is one unit of background work producing a result of type R.
type Task[R any] func(ctx context.Context) R

// Executor accepts tasks and buffers their results until polled.
type Executor[R any] interface {
	// Submit never blocks. It returns false when the task was not accepted, in which case
	// the caller keeps its state and retries on a later frame.
	Submit(task Task[R]) bool
	// Poll returns every result completed since the previous call.
	Poll() []R
	// Pending reports tasks accepted but not yet polled.
	Pending() int
}
