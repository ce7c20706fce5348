// Package dag wires Worker nodes into a graph, starts them against a
// shared startup barrier, and tears them down in dependency order.
package dag

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	uuid "github.com/satori/go.uuid"
	"go.uber.org/multierr"

	"github.com/dagrun-dev/dagrun/internal/barrier"
	"github.com/dagrun-dev/dagrun/internal/metrics"
	"github.com/dagrun-dev/dagrun/internal/queue"
	"github.com/dagrun-dev/dagrun/internal/worker"
)

type edge struct {
	name string
	from string
	to   string
	mon  *queue.Monitored
}

// DAG owns every worker.Node in a run plus the data/metadata edges
// connecting them. RunID tags every log line and metric emitted by its
// nodes so concurrent runs (e.g. in tests) don't collide on labels.
type DAG struct {
	RunID          string
	Log            *slog.Logger
	BarrierTimeout time.Duration

	mu        sync.Mutex
	order     []string
	nodes     map[string]*worker.Node
	dataEdges []edge
	metaEdges []edge
}

// New creates an empty DAG, stamping it with a fresh run ID via
// satori/go.uuid so logs and metrics from independent runs never collide.
func New(log *slog.Logger) *DAG {
	runID := uuid.NewV4().String()
	return &DAG{
		RunID: runID,
		Log:   log.With("run", runID),
		nodes: make(map[string]*worker.Node),
	}
}

// AddNode registers w as a vertex and returns its Node for strategy and
// queue configuration. Names must be unique within the DAG.
func (d *DAG) AddNode(w worker.Worker) (*worker.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	name := w.Name()
	if _, exists := d.nodes[name]; exists {
		return nil, fmt.Errorf("dag: duplicate worker name %q", name)
	}
	n := worker.NewNode(w, d.Log, d.RunID)
	d.nodes[name] = n
	d.order = append(d.order, name)
	return n, nil
}

// ConnectData wires q as from's send-data queue and to's recv-data queue,
// under edge name. The queue is wrapped in a Monitored decorator so
// frequency and loss can be reported in Stop's shutdown summary and
// exported as metrics.
func (d *DAG) ConnectData(from, to, name string, q queue.Queue) error {
	return d.connect(from, to, name, q, &d.dataEdges, (*worker.Node).RegisterSendData, (*worker.Node).RegisterRecvData)
}

// ConnectMetadata is ConnectData's metadata-lane counterpart. The
// metadata lane may legally contain cycles (spec.md §4.2). No acyclicity
// check is applied here, nor in ConnectData.
func (d *DAG) ConnectMetadata(from, to, name string, q queue.Queue) error {
	return d.connect(from, to, name, q, &d.metaEdges, (*worker.Node).RegisterSendMeta, (*worker.Node).RegisterRecvMeta)
}

func (d *DAG) connect(from, to, name string, q queue.Queue, edges *[]edge, registerSend, registerRecv func(*worker.Node, queue.Queue, string)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	fromNode, ok := d.nodes[from]
	if !ok {
		return fmt.Errorf("dag: unknown worker %q", from)
	}
	toNode, ok := d.nodes[to]
	if !ok {
		return fmt.Errorf("dag: unknown worker %q", to)
	}

	mon := queue.NewMonitored(q)
	registerSend(fromNode, mon, name)
	registerRecv(toNode, mon, name)
	*edges = append(*edges, edge{name: name, from: from, to: to, mon: mon})
	return nil
}

// Start brings every node up against a shared startup barrier sized
// |vertices|+1 (the DAG itself is the +1 coordinator), per spec.md §5.
// Each node's Initialize and barrier arrival runs concurrently; a node
// whose Initialize fails never arrives, so BarrierTimeout bounds how long
// its healthy peers wait before every Start call returns a
// CoordinatorTimeout. When Start returns an error, every node that did get
// past the barrier has been killed first.
func (d *DAG) Start(ctx context.Context) error {
	d.mu.Lock()
	nodes := make([]*worker.Node, 0, len(d.order))
	for _, name := range d.order {
		nodes = append(nodes, d.nodes[name])
	}
	size := len(nodes) + 1
	d.mu.Unlock()

	b := barrier.New(size)
	for _, n := range nodes {
		n.SetBarrier(b, d.BarrierTimeout)
	}

	startErrs := make([]error, len(nodes))
	var wg sync.WaitGroup
	for i, n := range nodes {
		wg.Add(1)
		go func(i int, n *worker.Node) {
			defer wg.Done()
			startErrs[i] = n.Start(ctx)
		}(i, n)
	}

	bctx := ctx
	if d.BarrierTimeout > 0 {
		var cancel context.CancelFunc
		bctx, cancel = context.WithTimeout(ctx, d.BarrierTimeout)
		defer cancel()
	}
	coordErr := b.Arrive(bctx)

	wg.Wait()

	var errs error
	for _, err := range startErrs {
		if err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if coordErr != nil {
		errs = multierr.Append(errs, fmt.Errorf("dag %s: coordinator never saw all workers arrive: %w", d.RunID, coordErr))
	}
	if errs != nil {
		for i, n := range nodes {
			if startErrs[i] == nil {
				_ = n.Kill()
			}
		}
	}
	return errs
}

// Stop requests a graceful shutdown of every node, in root-to-leaf order
// (sources before sinks), then logs the shutdown frequency/loss report
// for every monitored edge.
func (d *DAG) Stop() error {
	return d.shutdown(func(n *worker.Node) error { return n.Stop() })
}

// Kill shuts down every node via worker.Node.Kill, which differs from Stop
// only in discarding the CPU profile (no profile flush).
func (d *DAG) Kill() error {
	return d.shutdown(func(n *worker.Node) error { return n.Kill() })
}

func (d *DAG) shutdown(fn func(*worker.Node) error) error {
	order := d.rootToLeafOrder()

	var errs error
	for _, name := range order {
		if err := fn(d.nodes[name]); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	for _, e := range d.dataEdges {
		d.logEdgeReport(e)
	}
	for _, e := range d.metaEdges {
		d.logEdgeReport(e)
	}

	return errs
}

func (d *DAG) logEdgeReport(e edge) {
	freq := e.mon.AverageFreq()
	metrics.EdgeThroughput.WithLabelValues(d.RunID, e.name).Set(freq)

	if e.mon.IsRing() {
		lost := e.mon.Lost()
		metrics.EdgeLostTotal.WithLabelValues(d.RunID, e.name).Set(float64(lost))
		d.Log.Info(fmt.Sprintf("Name: %s, freq: %.2f, lost: %d", e.name, freq, lost))
		return
	}
	d.Log.Info(fmt.Sprintf("Name: %s, freq: %.2f", e.name, freq))
}

// rootToLeafOrder topologically sorts nodes over the data-edge graph,
// sources (no incoming data edge) first. Stable: ties break by AddNode
// registration order. A cycle in the data lane (which spec.md forbids)
// falls back to registration order for the untouched remainder rather
// than panicking.
func (d *DAG) rootToLeafOrder() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	inDeg := make(map[string]int, len(d.order))
	adj := make(map[string][]string, len(d.order))
	for _, name := range d.order {
		inDeg[name] = 0
	}
	for _, e := range d.dataEdges {
		inDeg[e.to]++
		adj[e.from] = append(adj[e.from], e.to)
	}

	done := make(map[string]bool, len(d.order))
	result := make([]string, 0, len(d.order))

	for len(result) < len(d.order) {
		progressed := false
		for _, name := range d.order {
			if done[name] || inDeg[name] > 0 {
				continue
			}
			done[name] = true
			result = append(result, name)
			for _, to := range adj[name] {
				inDeg[to]--
			}
			progressed = true
		}
		if !progressed {
			for _, name := range d.order {
				if !done[name] {
					result = append(result, name)
				}
			}
			break
		}
	}
	return result
}
