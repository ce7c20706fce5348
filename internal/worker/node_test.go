package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dagrun-dev/dagrun/internal/queue"
)

var errBoom = errors.New("boom: initialize failed")

func silentLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingWorker counts ProcessData calls and echoes its input back out.
type countingWorker struct {
	name        string
	iterations  int
	initErr     error
	cleanupSeen bool
	panicOnce   bool
}

func (w *countingWorker) Name() string { return w.name }
func (w *countingWorker) Initialize(ctx context.Context) error { return w.initErr }
func (w *countingWorker) Cleanup(ctx context.Context) error {
	w.cleanupSeen = true
	return nil
}
func (w *countingWorker) ProcessData(ctx context.Context, in any) (any, bool) {
	w.iterations++
	if w.panicOnce {
		w.panicOnce = false
		panic("boom")
	}
	return in, in != Empty
}
func (w *countingWorker) ProcessMetadata(ctx context.Context, in any) (any, bool) {
	return in, in != Empty
}

func TestNodeStartRunsIterationsUntilStopped(t *testing.T) {
	w := &countingWorker{name: "n"}
	n := NewNode(w, silentLog(), "run-1")

	if err := n.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	if err := n.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if w.iterations == 0 {
		t.Fatal("expected at least one iteration to have run")
	}
	if !w.cleanupSeen {
		t.Fatal("expected Cleanup to have been called")
	}
	if n.State() != StateExited {
		t.Fatalf("expected StateExited, got %v", n.State())
	}
}

func TestNodeStartFailsFastOnInitializeError(t *testing.T) {
	w := &countingWorker{name: "n", initErr: errBoom}
	n := NewNode(w, silentLog(), "run-1")

	err := n.Start(context.Background())
	if err == nil {
		t.Fatal("expected Start to fail")
	}
	if _, ok := err.(*HookFailure); !ok {
		t.Fatalf("expected *HookFailure, got %T: %v", err, err)
	}
	if n.State() != StateExited {
		t.Fatalf("expected StateExited after failed Initialize, got %v", n.State())
	}
	if w.cleanupSeen {
		t.Fatal("Cleanup should not run when Initialize failed")
	}
}

func TestNodeStopsOnPanicInProcessData(t *testing.T) {
	w := &countingWorker{name: "n", panicOnce: true}
	n := NewNode(w, silentLog(), "run-1")

	if err := n.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-n.done:
	case <-time.After(time.Second):
		t.Fatal("expected the node to stop itself after a panicking process hook")
	}

	if w.iterations != 1 {
		t.Fatalf("expected exactly one iteration before the panic halted the loop, got %d", w.iterations)
	}
	if !w.cleanupSeen {
		t.Fatal("expected Cleanup to still run after a process-hook panic")
	}
	if n.State() != StateExited {
		t.Fatalf("expected StateExited, got %v", n.State())
	}
}

func TestNodeKillStillCleansUp(t *testing.T) {
	w := &countingWorker{name: "n"}
	n := NewNode(w, silentLog(), "run-1")

	if err := n.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := n.Kill(); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	if !w.cleanupSeen {
		t.Fatal("expected Cleanup to run even on Kill")
	}
	if n.State() != StateExited {
		t.Fatalf("expected StateExited, got %v", n.State())
	}
}

// emitWorker produces a fixed value on every ProcessData call, regardless
// of input, simulating a source vertex.
type emitWorker struct {
	name  string
	value any
}

func (w *emitWorker) Name() string                                     { return w.name }
func (w *emitWorker) Initialize(ctx context.Context) error             { return nil }
func (w *emitWorker) Cleanup(ctx context.Context) error                { return nil }
func (w *emitWorker) ProcessData(ctx context.Context, in any) (any, bool) {
	return w.value, true
}
func (w *emitWorker) ProcessMetadata(ctx context.Context, in any) (any, bool) {
	return in, in != Empty
}

// recordingWorker appends every non-empty data input it observes.
type recordingWorker struct {
	name string
	mu   sync.Mutex
	seen []any
}

func (w *recordingWorker) Name() string                         { return w.name }
func (w *recordingWorker) Initialize(ctx context.Context) error { return nil }
func (w *recordingWorker) Cleanup(ctx context.Context) error    { return nil }
func (w *recordingWorker) ProcessData(ctx context.Context, in any) (any, bool) {
	if in != Empty {
		w.mu.Lock()
		w.seen = append(w.seen, in)
		w.mu.Unlock()
	}
	return nil, false
}
func (w *recordingWorker) ProcessMetadata(ctx context.Context, in any) (any, bool) {
	return in, in != Empty
}

func TestNodeDataLaneDeliversAcrossQueue(t *testing.T) {
	producer := &emitWorker{name: "producer", value: "payload"}
	consumer := &recordingWorker{name: "consumer"}

	pNode := NewNode(producer, silentLog(), "run-1")
	cNode := NewNode(consumer, silentLog(), "run-1")

	q := queue.NewBounded(4)
	pNode.RegisterSendData(q, "edge")
	cNode.RegisterRecvData(q, "edge")
	pNode.SetSendDataStrategy(StrategyDispatch, StrategyConfig{Block: true, Timeout: 50 * time.Millisecond})
	cNode.SetRecvDataStrategy(StrategyPoll, StrategyConfig{Block: true, Timeout: 50 * time.Millisecond})

	if err := pNode.Start(context.Background()); err != nil {
		t.Fatalf("producer Start: %v", err)
	}
	if err := cNode.Start(context.Background()); err != nil {
		t.Fatalf("consumer Start: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	_ = pNode.Stop()
	_ = cNode.Stop()

	consumer.mu.Lock()
	defer consumer.mu.Unlock()
	if len(consumer.seen) == 0 {
		t.Fatal("expected consumer to observe at least one delivered item")
	}
	for _, v := range consumer.seen {
		if v != "payload" {
			t.Fatalf("unexpected delivered value: %v", v)
		}
	}
}
