package discount

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool runs evaluation tasks with fixed parallelism and a bounded backlog.
// Submissions beyond workers+queue are rejected rather than buffered.
type Pool struct {
	workers int
	queue   int
	admit   *semaphore.Weighted
	run     *semaphore.Weighted
}

// NewPool builds a pool. Non-positive workers default to 4; a negative queue is treated as zero.
func NewPool(workers, queue int) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queue < 0 {
		queue = 0
	}
	return &Pool{
		workers: workers,
		queue:   queue,
		admit:   semaphore.NewWeighted(int64(workers + queue)),
		run:     semaphore.NewWeighted(int64(workers)),
	}
}

// Submit schedules task or returns ErrEvaluationRejected when the pool is full.
// Accepted tasks always run to completion; there is no cancellation.
func (p *Pool) Submit(task func()) error {
	if !p.admit.TryAcquire(1) {
		return ErrEvaluationRejected
	}
	go func() {
		defer p.admit.Release(1)
		// Acquire with a background context cannot fail.
		_ = p.run.Acquire(context.Background(), 1)
		defer p.run.Release(1)
		task()
	}()
	return nil
}

// Capacity is the number of tasks the pool accepts before rejecting.
func (p *Pool) Capacity() int { return p.workers + p.queue }
