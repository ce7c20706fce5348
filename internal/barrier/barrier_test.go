package barrier

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestBarrierReleasesAllAtOnce(t *testing.T) {
	const n = 5
	b := New(n)

	var wg sync.WaitGroup
	released := make([]time.Time, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			time.Sleep(time.Duration(idx) * 5 * time.Millisecond)
			if err := b.Arrive(context.Background()); err != nil {
				t.Errorf("Arrive: %v", err)
			}
			released[idx] = time.Now()
		}(i)
	}

	wg.Wait()

	earliest, latest := released[0], released[0]
	for _, ts := range released {
		if ts.Before(earliest) {
			earliest = ts
		}
		if ts.After(latest) {
			latest = ts
		}
	}
	if latest.Sub(earliest) > 50*time.Millisecond {
		t.Fatalf("expected all arrivals to release close together, spread=%v", latest.Sub(earliest))
	}
}

func TestBarrierTimesOutWithoutEnoughArrivals(t *testing.T) {
	b := New(2)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := b.Arrive(ctx); err != ErrCoordinatorTimeout {
		t.Fatalf("expected ErrCoordinatorTimeout, got %v", err)
	}
}
