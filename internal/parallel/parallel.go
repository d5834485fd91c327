// Package parallel provides bounded fan-out helpers for batch operations.
package parallel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// Result holds the outcome of one processed item.
type Result[R any] struct {
	Value R
	Err   error
}

// Collect processes items in parallel with the specified number of workers,
// collecting results. It cancels remaining work on the first error and returns
// the first non-context error.
func Collect[T any, R any](
	ctx context.Context,
	items []T,
	workers int,
	process func(ctx context.Context, item T) (R, error),
) ([]Result[R], error) {
	if len(items) == 0 {
		return nil, nil
	}

	workers = normalizeWorkers(workers, len(items))

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan T, len(items))
	results := make(chan Result[R], len(items))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				if workerCtx.Err() != nil {
					return
				}
				value, err := process(workerCtx, item)
				if err != nil {
					results <- Result[R]{Err: err}
					cancel()
					continue
				}
				results <- Result[R]{Value: value}
			}
		}()
	}

	for _, item := range items {
		jobs <- item
	}
	close(jobs)
	wg.Wait()
	close(results)

	out := make([]Result[R], 0, len(items))
	var firstErr error
	var firstNonCancelErr error
	for res := range results {
		out = append(out, res)
		if res.Err != nil {
			if firstErr == nil {
				firstErr = res.Err
			}
			if firstNonCancelErr == nil && !errors.Is(res.Err, context.Canceled) {
				firstNonCancelErr = res.Err
			}
		}
	}

	// Prefer non-cancel errors for reporting
	if firstNonCancelErr != nil {
		return out, firstNonCancelErr
	}
	return out, firstErr
}

// ItemResult pairs an input item with its outcome, preserving input order.
type ItemResult[T any, R any] struct {
	Item  T
	Value R
	Err   error
}

// Settle processes every item in parallel with the specified number of
// workers. Unlike Collect, one item's failure never cancels the others: each
// item is attempted exactly once and its outcome reported in input order. Only
// context cancellation stops the batch, and skipped items carry ctx.Err().
func Settle[T any, R any](
	ctx context.Context,
	items []T,
	workers int,
	process func(ctx context.Context, item T) (R, error),
) []ItemResult[T, R] {
	if len(items) == 0 {
		return nil
	}

	workers = normalizeWorkers(workers, len(items))
	out := make([]ItemResult[T, R], len(items))
	var next int64 = -1

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				idx := int(atomic.AddInt64(&next, 1))
				if idx >= len(items) {
					return
				}
				item := items[idx]
				if err := ctx.Err(); err != nil {
					out[idx] = ItemResult[T, R]{Item: item, Err: err}
					continue
				}
				value, err := process(ctx, item)
				out[idx] = ItemResult[T, R]{Item: item, Value: value, Err: err}
			}
		}()
	}
	wg.Wait()

	return out
}

// normalizeWorkers ensures worker count is between 1 and item count.
func normalizeWorkers(workers, itemCount int) int {
	if workers < 1 {
		workers = 1
	}
	if workers > itemCount {
		workers = itemCount
	}
	return workers
}
