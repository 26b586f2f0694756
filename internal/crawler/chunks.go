package crawler

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// runChunked calls fn for every index in [0, n), size at a time. Calls inside
// a chunk run concurrently; a chunk starts only after the previous one has
// fully finished. Chunks not yet started when ctx is done are skipped, and the
// number of indices that were processed is returned.
func runChunked(ctx context.Context, n, size int, fn func(ctx context.Context, i int)) int {
	if size < 1 {
		size = 1
	}
	done := 0
	for start := 0; start < n; start += size {
		if ctx.Err() != nil {
			break
		}
		end := min(start+size, n)

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				fn(ctx, i)
				return nil
			})
		}
		_ = g.Wait()
		done = end
	}
	return done
}
