// Package worker implements the per-vertex state machine: a worker is
// initialized once, synchronizes with its peers at a shared startup
// barrier, then runs a six-phase iteration loop until a stop flag is
// raised.
package worker

import "context"

// Empty is the distinguished "no input this iteration" sentinel, returned
// by a lane with no registered queues and by Poll when nothing arrived
// before the deadline (Collect instead fails with ReceiveTimeout). It is never a bare nil so a Worker can tell
// "no input" apart from "input was the zero value."
var Empty = empty{}

type empty struct{}

// Worker is the polymorphic unit of work a WorkerNode drives. Go's
// rendering of spec.md §9 "Polymorphism": the runtime loop is generic,
// behavior is supplied by these four hooks plus a name.
type Worker interface {
	// Name identifies this vertex; used for logging, metrics, and profile
	// file naming.
	Name() string

	// Initialize acquires worker-local resources. Called once, before the
	// startup barrier.
	Initialize(ctx context.Context) error

	// Cleanup releases worker-local resources. Called once, after the stop
	// flag is observed.
	Cleanup(ctx context.Context) error

	// ProcessData transforms one data-lane item. ok=false discards the
	// result instead of sending it.
	ProcessData(ctx context.Context, in any) (out any, ok bool)

	// ProcessMetadata transforms one metadata-lane item.
	ProcessMetadata(ctx context.Context, in any) (out any, ok bool)
}

// State is one step of the worker lifecycle state machine.
type State int

const (
	StateInit State = iota
	StateSynchronizing
	StateRunning
	StateCleanup
	StateExited
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateSynchronizing:
		return "synchronizing"
	case StateRunning:
		return "running"
	case StateCleanup:
		return "cleanup"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}
