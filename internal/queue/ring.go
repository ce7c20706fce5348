package queue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// RingQueue is a fixed-capacity ring buffer with drop-oldest semantics: Put
// never blocks and never fails with ErrQueueFull — when full, it evicts the
// oldest queued item to make room and records the eviction in Lost. This is
// the shared-memory-ring-buffer transport variant spec.md §9 calls out for
// large, loss-tolerant payloads (e.g. image frames).
type RingQueue struct {
	mu     sync.Mutex
	buf    []any
	head   int // next read index
	count  int
	lost   atomic.Uint64
	notify chan struct{} // closed and replaced whenever an item is pushed
}

// NewRing creates a RingQueue with the given capacity.
func NewRing(capacity int) *RingQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingQueue{
		buf:    make([]any, capacity),
		notify: make(chan struct{}),
	}
}

// Lost returns the number of items evicted by drop-oldest so far.
func (q *RingQueue) Lost() uint64 {
	return q.lost.Load()
}

func (q *RingQueue) Put(_ context.Context, item any, _ bool, _ time.Duration) error {
	// Ring semantics never block and never fail: block/timeout are accepted
	// for interface conformance only.
	return q.PutNowait(item)
}

func (q *RingQueue) PutNowait(item any) error {
	q.mu.Lock()
	if q.count == len(q.buf) {
		// Evict oldest to make room.
		q.head = (q.head + 1) % len(q.buf)
		q.count--
		q.lost.Inc()
	}
	idx := (q.head + q.count) % len(q.buf)
	q.buf[idx] = item
	q.count++
	notify := q.notify
	q.notify = make(chan struct{})
	q.mu.Unlock()

	close(notify)
	return nil
}

func (q *RingQueue) GetNowait() (any, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil, ErrQueueEmpty
	}
	item := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return item, nil
}

func (q *RingQueue) Get(ctx context.Context, block bool, timeout time.Duration) (any, error) {
	if !block {
		return q.GetNowait()
	}

	wctx, cancel := waitCtx(ctx, timeout)
	defer cancel()

	for {
		if item, err := q.GetNowait(); err == nil {
			return item, nil
		}

		q.mu.Lock()
		wake := q.notify
		q.mu.Unlock()

		select {
		case <-wake:
			continue
		case <-wctx.Done():
			return nil, ErrQueueEmpty
		}
	}
}

func (q *RingQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}
