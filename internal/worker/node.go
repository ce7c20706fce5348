package worker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/tevino/abool"
	uatomic "go.uber.org/atomic"

	"github.com/dagrun-dev/dagrun/internal/barrier"
	"github.com/dagrun-dev/dagrun/internal/metrics"
	"github.com/dagrun-dev/dagrun/internal/queue"
)

// Receive/send strategy names, set once at registration time via Node's
// config fields below.
const (
	StrategyPoll      = "poll"
	StrategyCollect   = "collect"
	StrategyDispatch  = "dispatch"
	StrategyBroadcast = "broadcast"
)

// Node drives one Worker through its lifecycle: Initialize, barrier sync,
// the six-phase iteration loop, and Cleanup. It owns the worker's lanes
// (sets of named queues) and their receive/send strategies.
type Node struct {
	RunID string
	Log   *slog.Logger

	worker Worker

	recvData, sendData *laneSet
	recvMeta, sendMeta *laneSet

	recvDataCfg, sendDataCfg StrategyConfig
	recvMetaCfg, sendMetaCfg StrategyConfig

	recvDataStrategy, sendDataStrategy string
	recvMetaStrategy, sendMetaStrategy string

	recvDataCursor, sendDataCursor int
	recvMetaCursor, sendMetaCursor int

	b              *barrier.Barrier
	barrierTimeout time.Duration

	profile    bool
	profileBuf bytes.Buffer

	stopping *abool.AtomicBool
	killed   *abool.AtomicBool
	state    State
	stateMu  sync.Mutex

	iteration uatomic.Int64
	done      chan struct{}
}

// NewNode builds a Node around w. Strategy defaults match spec.md §4.1:
// data lane polls/dispatches, metadata lane collects/broadcasts.
func NewNode(w Worker, log *slog.Logger, runID string) *Node {
	return &Node{
		RunID:             runID,
		Log:               log.With("worker", w.Name(), "run", runID),
		worker:            w,
		recvData:          newLaneSet(),
		sendData:          newLaneSet(),
		recvMeta:          newLaneSet(),
		sendMeta:          newLaneSet(),
		recvDataStrategy:  StrategyPoll,
		sendDataStrategy:  StrategyDispatch,
		recvMetaStrategy:  StrategyCollect,
		sendMetaStrategy:  StrategyBroadcast,
		stopping:          abool.New(),
		killed:            abool.New(),
		state:             StateInit,
		done:              make(chan struct{}),
	}
}

func (n *Node) Name() string { return n.worker.Name() }

func (n *Node) State() State {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.state
}

func (n *Node) setState(s State) {
	n.stateMu.Lock()
	prev := n.state
	n.state = s
	n.stateMu.Unlock()
	metrics.WorkerState.WithLabelValues(n.RunID, n.Name(), prev.String()).Set(0)
	metrics.WorkerState.WithLabelValues(n.RunID, n.Name(), s.String()).Set(1)
}

func (n *Node) RegisterRecvData(q queue.Queue, name string)  { n.recvData.register(q, name) }
func (n *Node) RegisterSendData(q queue.Queue, name string)  { n.sendData.register(q, name) }
func (n *Node) RegisterRecvMeta(q queue.Queue, name string)  { n.recvMeta.register(q, name) }
func (n *Node) RegisterSendMeta(q queue.Queue, name string)  { n.sendMeta.register(q, name) }

func (n *Node) SetRecvDataStrategy(strategy string, cfg StrategyConfig) {
	n.recvDataStrategy, n.recvDataCfg = strategy, cfg
}
func (n *Node) SetSendDataStrategy(strategy string, cfg StrategyConfig) {
	n.sendDataStrategy, n.sendDataCfg = strategy, cfg
}
func (n *Node) SetRecvMetaStrategy(strategy string, cfg StrategyConfig) {
	n.recvMetaStrategy, n.recvMetaCfg = strategy, cfg
}
func (n *Node) SetSendMetaStrategy(strategy string, cfg StrategyConfig) {
	n.sendMetaStrategy, n.sendMetaCfg = strategy, cfg
}

func (n *Node) SetBarrier(b *barrier.Barrier, timeout time.Duration) {
	n.b, n.barrierTimeout = b, timeout
}

func (n *Node) EnableProfile() { n.profile = true }

// Start runs Initialize, waits at the startup barrier, then launches the
// iteration loop in a new goroutine and returns. A failure in Initialize
// or at the barrier skips straight to StateExited without Cleanup, per
// spec.md's Init -> Synchronizing transition firing only on a successful
// initialize().
func (n *Node) Start(ctx context.Context) error {
	if n.State() != StateInit {
		return &LifecycleError{Worker: n.Name(), Op: "Start", Reason: "already started"}
	}

	var catcher panics.Catcher
	catcher.Try(func() {
		if err := n.worker.Initialize(ctx); err != nil {
			panic(err)
		}
	})
	if r := catcher.Recovered(); r != nil {
		n.setState(StateExited)
		return &HookFailure{Worker: n.Name(), Hook: "Initialize", Cause: r.AsError()}
	}

	n.setState(StateSynchronizing)
	if n.b != nil {
		waitStart := time.Now()
		bctx := ctx
		var cancel context.CancelFunc
		if n.barrierTimeout > 0 {
			bctx, cancel = context.WithTimeout(ctx, n.barrierTimeout)
			defer cancel()
		}
		if err := n.b.Arrive(bctx); err != nil {
			n.setState(StateExited)
			return &CoordinatorTimeout{Worker: n.Name()}
		}
		metrics.BarrierWaitSeconds.WithLabelValues(n.RunID, n.Name()).Observe(time.Since(waitStart).Seconds())
	}

	if n.profile {
		_ = pprof.StartCPUProfile(&n.profileBuf)
	}

	go n.run(ctx)
	return nil
}

// Stop requests a graceful shutdown: the loop finishes its current
// iteration, runs Cleanup, and flushes the CPU profile (if enabled).
func (n *Node) Stop() error {
	n.stopping.Set()
	<-n.done
	return nil
}

// Kill shuts the node down the same way Stop does (the loop finishes its
// current iteration and runs Cleanup, and Kill blocks until it exits),
// except the CPU profile is discarded rather than written, matching
// spec.md's "profile output is absent if kill() was used."
func (n *Node) Kill() error {
	n.killed.Set()
	n.stopping.Set()
	<-n.done
	return nil
}

func (n *Node) run(ctx context.Context) {
	defer close(n.done)
	n.setState(StateRunning)

	for !n.stopping.IsSet() {
		n.iterate(ctx)
	}

	n.setState(StateCleanup)

	var catcher panics.Catcher
	catcher.Try(func() {
		if err := n.worker.Cleanup(ctx); err != nil {
			panic(err)
		}
	})
	if r := catcher.Recovered(); r != nil {
		n.Log.Error("cleanup hook failed", "error", r.AsError())
	}

	if n.profile {
		pprof.StopCPUProfile()
		if !n.killed.IsSet() {
			if err := os.WriteFile(n.Name()+".prof", n.profileBuf.Bytes(), 0o644); err != nil {
				n.Log.Error("failed to write profile", "error", err)
			}
		}
	}

	n.setState(StateExited)
}

// iterate runs the six phases of one worker iteration, in spec.md's
// order: receive data, process data, send data, receive metadata, process
// metadata, send metadata, then emits the timing log line.
func (n *Node) iterate(ctx context.Context) {
	iter := n.iteration.Inc()
	t := Timing{Iteration: iter, TStart: time.Now()}

	recvStart := time.Now()
	dataIn, err := n.receiveData(ctx)
	t.RecvData = time.Since(recvStart)
	n.observePhase("recv_data", t.RecvData)
	if err != nil {
		n.Log.Warn("receive data failed", "error", err)
	}

	procStart := time.Now()
	dataOut, ok := n.processData(ctx, iter, dataIn)
	t.ProcData = time.Since(procStart)
	n.observePhase("proc_data", t.ProcData)

	sendStart := time.Now()
	if ok {
		if err := n.sendData(ctx, dataOut); err != nil {
			n.Log.Warn("send data failed", "error", err)
		}
	}
	t.SendData = time.Since(sendStart)
	n.observePhase("send_data", t.SendData)

	recvMetaStart := time.Now()
	metaIn, err := n.receiveMeta(ctx)
	t.RecvMeta = time.Since(recvMetaStart)
	n.observePhase("recv_meta", t.RecvMeta)
	if err != nil {
		n.Log.Warn("receive metadata failed", "error", err)
	}

	procMetaStart := time.Now()
	metaOut, ok := n.processMeta(ctx, iter, metaIn)
	t.ProcMeta = time.Since(procMetaStart)
	n.observePhase("proc_meta", t.ProcMeta)

	sendMetaStart := time.Now()
	if ok {
		if err := n.sendMeta(ctx, metaOut); err != nil {
			n.Log.Warn("send metadata failed", "error", err)
		}
	}
	t.SendMeta = time.Since(sendMetaStart)
	n.observePhase("send_meta", t.SendMeta)

	t.TStop = time.Now()
	n.Log.Info(fmt.Sprintf("iteration #%d", iter), t.LogAttrs()...)
}

func (n *Node) observePhase(phase string, d time.Duration) {
	metrics.IterationSeconds.WithLabelValues(n.RunID, n.Name(), phase).Observe(d.Seconds())
}

func (n *Node) receiveData(ctx context.Context) (any, error) {
	if n.recvDataStrategy == StrategyCollect {
		return collectReceive(ctx, n.recvData, n.recvDataCfg, n.Name(), "data")
	}
	return pollReceive(ctx, n.recvData, n.recvDataCfg, &n.recvDataCursor)
}

func (n *Node) sendData(ctx context.Context, value any) error {
	if n.sendDataStrategy == StrategyBroadcast {
		values, _ := value.(map[string]any)
		return broadcastSend(ctx, n.sendData, n.sendDataCfg, values, n.Name(), "data")
	}
	return dispatchSend(ctx, n.sendData, n.sendDataCfg, &n.sendDataCursor, value, n.Name(), "data")
}

func (n *Node) receiveMeta(ctx context.Context) (any, error) {
	if n.recvMetaStrategy == StrategyPoll {
		return pollReceive(ctx, n.recvMeta, n.recvMetaCfg, &n.recvMetaCursor)
	}
	return collectReceive(ctx, n.recvMeta, n.recvMetaCfg, n.Name(), "metadata")
}

func (n *Node) sendMeta(ctx context.Context, value any) error {
	if n.sendMetaStrategy == StrategyDispatch {
		return dispatchSend(ctx, n.sendMeta, n.sendMetaCfg, &n.sendMetaCursor, value, n.Name(), "metadata")
	}
	values, _ := value.(map[string]any)
	return broadcastSend(ctx, n.sendMeta, n.sendMetaCfg, values, n.Name(), "metadata")
}

// processData invokes the user hook, containing any panic as a
// HookFailure. An unhandled exception in a process hook is fatal to the
// worker: it sets the stop flag, so the loop exits after this iteration
// and proceeds to Cleanup instead of running forever on a broken hook.
func (n *Node) processData(ctx context.Context, iter int64, in any) (any, bool) {
	var out any
	var ok bool
	var catcher panics.Catcher
	catcher.Try(func() { out, ok = n.worker.ProcessData(ctx, in) })
	if r := catcher.Recovered(); r != nil {
		err := &HookFailure{Worker: n.Name(), Hook: "ProcessData", Iteration: iter, Cause: r.AsError()}
		n.Log.Error("process data hook failed, stopping", "error", err)
		n.stopping.Set()
		return nil, false
	}
	return out, ok
}

func (n *Node) processMeta(ctx context.Context, iter int64, in any) (any, bool) {
	var out any
	var ok bool
	var catcher panics.Catcher
	catcher.Try(func() { out, ok = n.worker.ProcessMetadata(ctx, in) })
	if r := catcher.Recovered(); r != nil {
		err := &HookFailure{Worker: n.Name(), Hook: "ProcessMetadata", Iteration: iter, Cause: r.AsError()}
		n.Log.Error("process metadata hook failed, stopping", "error", err)
		n.stopping.Set()
		return nil, false
	}
	return out, ok
}
