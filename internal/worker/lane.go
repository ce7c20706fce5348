package worker

import "github.com/dagrun-dev/dagrun/internal/queue"

// namedQueue pairs one queue with the name it was registered under.
type namedQueue struct {
	name string
	q    queue.Queue
}

// laneSet is the ordered, deduplicated collection of queues registered for
// one direction of one lane (e.g. a worker's recv_data set). Order is
// preserved because round-robin strategies must iterate in registration
// order for the fairness guarantees of spec.md §8 invariant 4/6.
type laneSet struct {
	items []namedQueue
	seen  map[queue.Queue]bool
}

func newLaneSet() *laneSet {
	return &laneSet{seen: make(map[queue.Queue]bool)}
}

// register idempotently adds q under name. A queue instance already present
// in this set (by identity) is a silent no-op, per spec.md §4.1.
func (l *laneSet) register(q queue.Queue, name string) {
	if l.seen[q] {
		return
	}
	l.seen[q] = true
	l.items = append(l.items, namedQueue{name: name, q: q})
}

func (l *laneSet) len() int { return len(l.items) }
