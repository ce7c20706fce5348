// Package barrier implements the one-shot startup synchronization point
// shared by every worker and the DAG coordinator.
package barrier

import (
	"context"
	"errors"
	"sync"
)

// ErrCoordinatorTimeout is returned by Arrive when the barrier does not
// release before the caller's context is done — spec.md §7's
// CoordinatorTimeout, surfaced as a fatal DAG.Start failure.
var ErrCoordinatorTimeout = errors.New("barrier: coordinator timeout waiting for peers")

// Barrier releases every Arrive call only once `size` distinct arrivals
// have happened. It is one-shot: a Barrier is used only at startup and
// cannot be reset, matching spec.md §5 "one-shot".
type Barrier struct {
	mu       sync.Mutex
	size     int
	arrived  int
	released chan struct{}
}

// New creates a Barrier sized to the number of parties that must arrive
// before it releases — spec.md §4.2: `|vertices| + 1` (workers + coordinator).
func New(size int) *Barrier {
	return &Barrier{
		size:     size,
		released: make(chan struct{}),
	}
}

// Arrive registers one arrival and blocks until every party has arrived or
// ctx is done. It is safe to call concurrently from every worker goroutine
// and the coordinator.
func (b *Barrier) Arrive(ctx context.Context) error {
	b.mu.Lock()
	b.arrived++
	if b.arrived >= b.size {
		close(b.released)
	}
	released := b.released
	b.mu.Unlock()

	select {
	case <-released:
		return nil
	case <-ctx.Done():
		return ErrCoordinatorTimeout
	}
}
