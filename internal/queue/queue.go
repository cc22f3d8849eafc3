// Package queue serializes provider invocations through a fixed pool of
// execution slots. Waiters are served strictly in arrival order, so a burst
// of requests drains fairly instead of racing for capacity.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/notapi/notapi/internal/observability"
)

// ErrTimedOut is returned when the invocation deadline fires while the job
// is queued or still running. The slot is released once the job actually
// returns, never early.
var ErrTimedOut = errors.New("queue: invocation timed out")

// Executor runs jobs with bounded concurrency. semaphore.Weighted hands out
// slots in FIFO order, which is the property the whole pipeline leans on.
type Executor struct {
	sem     *semaphore.Weighted
	metrics *observability.Metrics
}

// New creates an Executor with the given slot count. metrics may be nil.
func New(capacity int64, metrics *observability.Metrics) *Executor {
	return &Executor{
		sem:     semaphore.NewWeighted(capacity),
		metrics: metrics,
	}
}

// Do waits for a slot, runs fn, and releases the slot when fn returns.
// Waiting is aborted when ctx is done. If ctx expires after the slot is
// acquired, Do returns ErrTimedOut immediately but the slot stays held until
// fn actually finishes; a runaway job therefore costs capacity, not
// correctness. A panicking fn is converted into an error and its slot is
// still released.
func (e *Executor) Do(ctx context.Context, fn func(context.Context) error) error {
	waitStart := time.Now()
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("queue: waiting for slot: %w", err)
	}
	if e.metrics != nil {
		e.metrics.PromQueueWait.Observe(time.Since(waitStart).Seconds())
		e.metrics.PromQueueDepth.Inc()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("queue: invocation panicked: %v", r)
			}
			e.sem.Release(1)
			if e.metrics != nil {
				e.metrics.PromQueueDepth.Dec()
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrTimedOut, ctx.Err())
	}
}

// TryDo runs fn only if a slot is free, returning false without running
// when the pool is saturated. Used by the keep-alive probe, which must not
// pile up behind real traffic.
func (e *Executor) TryDo(ctx context.Context, fn func(context.Context) error) (bool, error) {
	if !e.sem.TryAcquire(1) {
		return false, nil
	}
	if e.metrics != nil {
		e.metrics.PromQueueDepth.Inc()
	}
	defer func() {
		e.sem.Release(1)
		if e.metrics != nil {
			e.metrics.PromQueueDepth.Dec()
		}
	}()
	return true, fn(ctx)
}
