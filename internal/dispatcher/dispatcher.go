// Package dispatcher fans a fixed list of work items out to a bounded pool
// of goroutines.
package dispatcher

import (
	"context"
	"sync"
	"sync/atomic"
)

// Handler processes the item at index.
type Handler func(ctx context.Context, index int)

// Dispatcher runs handlers with bounded concurrency.
type Dispatcher struct {
	concurrency int
}

// New creates a Dispatcher. Concurrency below one is treated as one.
func New(concurrency int) *Dispatcher {
	return &Dispatcher{concurrency: max(concurrency, 1)}
}

// Run starts min(concurrency, total) workers that claim indices in order from
// a shared counter until all total items are claimed or ctx is done. Each
// index is handled at most once. Run blocks until every worker has returned
// and reports how many indices were claimed.
func (d *Dispatcher) Run(ctx context.Context, total int, handle Handler) int {
	if total <= 0 {
		return 0
	}
	var (
		next    atomic.Int64
		claimed atomic.Int64
		wg      sync.WaitGroup
	)
	workers := min(d.concurrency, total)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if ctx.Err() != nil {
					return
				}
				index := int(next.Add(1) - 1)
				if index >= total {
					return
				}
				claimed.Add(1)
				handle(ctx, index)
			}
		}()
	}
	wg.Wait()
	return int(claimed.Load())
}
