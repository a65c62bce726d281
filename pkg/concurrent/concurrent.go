package concurrent

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// MapOrdered applies fn to each element on its own goroutine and returns the
// results in input order. At most limit calls run at once; limit <= 0 means
// no bound. The first error cancels ctx for the remaining calls and is
// returned; results are nil in that case.
func MapOrdered[T any, R any](ctx context.Context, in []T, limit int, fn func(context.Context, int, T) (R, error)) ([]R, error) {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	out := make([]R, len(in))
	for idx, val := range in {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := fn(gctx, idx, val)
			if err != nil {
				return err
			}
			out[idx] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Collector gathers values from concurrent producers.
type Collector[T any] struct {
	mu    sync.Mutex
	items []T
}

// Add appends v. Safe for concurrent use.
func (c *Collector[T]) Add(v T) {
	c.mu.Lock()
	c.items = append(c.items, v)
	c.mu.Unlock()
}

// Items returns a copy of everything added so far.
func (c *Collector[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of collected values.
func (c *Collector[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
