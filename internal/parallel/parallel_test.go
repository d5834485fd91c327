package parallel

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
)

func TestSettle_ReportsOutcomesInInputOrder(t *testing.T) {
	t.Parallel()

	items := []int{1, 2, 3, 4, 5}
	failOn := 3

	results := Settle(context.Background(), items, 4, func(_ context.Context, item int) (string, error) {
		if item == failOn {
			return "", fmt.Errorf("item %d failed", item)
		}
		return fmt.Sprintf("value-%d", item), nil
	})

	if len(results) != len(items) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(items))
	}
	for i, res := range results {
		if res.Item != items[i] {
			t.Fatalf("results[%d].Item = %d, want %d", i, res.Item, items[i])
		}
		if items[i] == failOn {
			if res.Err == nil {
				t.Fatalf("results[%d].Err = nil, want error", i)
			}
			continue
		}
		if res.Err != nil {
			t.Fatalf("results[%d].Err = %v, want nil", i, res.Err)
		}
		if want := fmt.Sprintf("value-%d", items[i]); res.Value != want {
			t.Fatalf("results[%d].Value = %q, want %q", i, res.Value, want)
		}
	}
}

func TestSettle_OneFailureDoesNotStopTheRest(t *testing.T) {
	t.Parallel()

	var attempts int64
	items := []int{1, 2, 3, 4, 5, 6}

	results := Settle(context.Background(), items, 2, func(_ context.Context, item int) (int, error) {
		atomic.AddInt64(&attempts, 1)
		if item%2 == 0 {
			return 0, errors.New("even items fail")
		}
		return item * 10, nil
	})

	if got := atomic.LoadInt64(&attempts); got != int64(len(items)) {
		t.Fatalf("attempts = %d, want %d", got, len(items))
	}
	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	if failed != 3 {
		t.Fatalf("failed = %d, want 3", failed)
	}
}

func TestSettle_CanceledContextSkipsRemainingItems(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := Settle(ctx, []int{1, 2, 3}, 1, func(ctx context.Context, item int) (int, error) {
		t.Fatal("process must not run on a canceled context")
		return 0, nil
	})

	for i, res := range results {
		if !errors.Is(res.Err, context.Canceled) {
			t.Fatalf("results[%d].Err = %v, want context.Canceled", i, res.Err)
		}
	}
}

func TestSettle_EmptyInputReturnsNil(t *testing.T) {
	t.Parallel()

	results := Settle(context.Background(), nil, 4, func(_ context.Context, item int) (int, error) {
		return item, nil
	})
	if results != nil {
		t.Fatalf("results = %v, want nil", results)
	}
}

func TestCollect_FirstErrorWins(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	items := []int{1, 2, 3, 4}

	_, err := Collect(context.Background(), items, 1, func(_ context.Context, item int) (int, error) {
		if item == 2 {
			return 0, boom
		}
		return item, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Collect() error = %v, want %v", err, boom)
	}
}

func TestCollect_AllSucceed(t *testing.T) {
	t.Parallel()

	items := []int{1, 2, 3}
	results, err := Collect(context.Background(), items, 8, func(_ context.Context, item int) (int, error) {
		return item * 2, nil
	})
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(results) != len(items) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(items))
	}
	for _, res := range results {
		if res.Err != nil {
			t.Fatalf("unexpected item error: %v", res.Err)
		}
	}
}

func TestNormalizeWorkers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		workers int
		items   int
		want    int
	}{
		{name: "zero becomes one", workers: 0, items: 5, want: 1},
		{name: "negative becomes one", workers: -3, items: 5, want: 1},
		{name: "capped at item count", workers: 10, items: 4, want: 4},
		{name: "in range unchanged", workers: 3, items: 5, want: 3},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := normalizeWorkers(tc.workers, tc.items); got != tc.want {
				t.Fatalf("normalizeWorkers(%d, %d) = %d, want %d", tc.workers, tc.items, got, tc.want)
			}
		})
	}
}
