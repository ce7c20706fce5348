package queue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// lossy is implemented by queues that track dropped items (currently only
// RingQueue); Monitored type-asserts for it to populate Lost().
type lossy interface {
	Lost() uint64
}

// Monitored wraps a Queue to expose the throughput/loss reporting spec.md
// calls "monitored wrapper reporting rates/loss" — consumed by the DAG's
// shutdown report and by internal/metrics, grounded on the teacher's
// per-capturer delta tracking in statsCollectorLoop.
type Monitored struct {
	Queue

	mu       sync.Mutex
	window   []time.Time // put timestamps within the trailing sampleWindow
	putCount atomic.Uint64
}

const sampleWindow = 10 * time.Second

// NewMonitored wraps q with throughput/loss tracking.
func NewMonitored(q Queue) *Monitored {
	return &Monitored{Queue: q}
}

func (m *Monitored) Put(ctx context.Context, item any, block bool, timeout time.Duration) error {
	err := m.Queue.Put(ctx, item, block, timeout)
	if err == nil {
		m.recordPut()
	}
	return err
}

func (m *Monitored) PutNowait(item any) error {
	err := m.Queue.PutNowait(item)
	if err == nil {
		m.recordPut()
	}
	return err
}

func (m *Monitored) recordPut() {
	m.putCount.Inc()
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.window = append(m.window, now)
	cutoff := now.Add(-sampleWindow)
	i := 0
	for i < len(m.window) && m.window[i].Before(cutoff) {
		i++
	}
	m.window = m.window[i:]
}

// AverageFreq returns the average number of items put per second over the
// trailing sample window (zero until at least two samples have landed).
func (m *Monitored) AverageFreq() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.window) < 2 {
		return 0
	}
	span := m.window[len(m.window)-1].Sub(m.window[0]).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(len(m.window)-1) / span
}

// Lost returns the number of items dropped by the underlying queue, or
// zero if the underlying queue does not track loss (e.g. BoundedQueue).
func (m *Monitored) Lost() uint64 {
	if l, ok := m.Queue.(lossy); ok {
		return l.Lost()
	}
	return 0
}

// IsRing reports whether the wrapped queue is a drop-oldest RingQueue,
// which the DAG shutdown report uses to decide whether to print a "lost:"
// field (spec.md §6).
func (m *Monitored) IsRing() bool {
	_, ok := m.Queue.(*RingQueue)
	return ok
}
