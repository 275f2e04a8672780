package concurrency

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type WorkerFn func(ctx context.Context, index int) error

// ForEach calls fn for every index in [0, tasks) using at most workers
// goroutines. The first error cancels ctx for the remaining calls and is
// returned. Results should be written by index so callers keep input order.
func ForEach(ctx context.Context, workers, tasks int, fn WorkerFn) error {
	if tasks == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > tasks {
		workers = tasks
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < tasks; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, i)
		})
	}
	return g.Wait()
}
