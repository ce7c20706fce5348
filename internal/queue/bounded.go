package queue

import (
	"context"
	"time"
)

// BoundedQueue is a lossless, fixed-capacity FIFO backed by a buffered
// channel — the direct Go rendering of the kernel-FIFO multiprocess queue
// variant called out in spec.md §9 "Cross-process transport", grounded on
// the teacher's task.rawStreams / sendBuffer channel plumbing.
type BoundedQueue struct {
	items chan any
}

// NewBounded creates a BoundedQueue with the given capacity.
func NewBounded(capacity int) *BoundedQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &BoundedQueue{items: make(chan any, capacity)}
}

func (q *BoundedQueue) Put(ctx context.Context, item any, block bool, timeout time.Duration) error {
	if !block {
		return q.PutNowait(item)
	}

	wctx, cancel := waitCtx(ctx, timeout)
	defer cancel()

	select {
	case q.items <- item:
		return nil
	case <-wctx.Done():
		return ErrQueueFull
	}
}

func (q *BoundedQueue) Get(ctx context.Context, block bool, timeout time.Duration) (any, error) {
	if !block {
		return q.GetNowait()
	}

	wctx, cancel := waitCtx(ctx, timeout)
	defer cancel()

	select {
	case item := <-q.items:
		return item, nil
	case <-wctx.Done():
		return nil, ErrQueueEmpty
	}
}

func (q *BoundedQueue) PutNowait(item any) error {
	select {
	case q.items <- item:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *BoundedQueue) GetNowait() (any, error) {
	select {
	case item := <-q.items:
		return item, nil
	default:
		return nil, ErrQueueEmpty
	}
}

func (q *BoundedQueue) Size() int {
	return len(q.items)
}
