package shared

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// WorkerPool runs independent per-store computations in parallel.
// Each task writes only to its own output slot, so no locking is needed.
type WorkerPool struct {
	workers int
}

// NewWorkerPool creates a pool sized to the available cores
func NewWorkerPool() *WorkerPool {
	return NewWorkerPoolWithSize(runtime.NumCPU())
}

// NewWorkerPoolWithSize creates a pool with a fixed number of workers
func NewWorkerPoolWithSize(workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{workers: workers}
}

// Workers returns the pool size
func (p *WorkerPool) Workers() int {
	return p.workers
}

// ForEach calls fn for every index in [0, n).
// Cancellation is cooperative: a started task always runs to completion, tasks not yet
// started are skipped once ctx is done, and ForEach returns only after every started task
// has drained. Callers must discard all outputs when an error is returned.
func (p *WorkerPool) ForEach(ctx context.Context, n int, fn func(i int) error) error {
	if n == 0 {
		return ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
