// Package metrics implements Prometheus metrics for the DAG runtime.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EdgeThroughput reports average items/sec observed on a monitored edge.
	EdgeThroughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dagrun_edge_throughput_items_per_second",
			Help: "Average items per second observed on an edge queue",
		},
		[]string{"run", "edge"},
	)

	// EdgeLostTotal reports the cumulative number of items dropped by a
	// ring-buffer-backed edge, as tracked by Monitored.Lost(). A Gauge
	// rather than a Counter: Lost() already returns a running total, and
	// it is reported at shutdown rather than incrementally, so Set
	// (idempotent) is correct where Add would double-count on a repeated
	// report.
	EdgeLostTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dagrun_edge_lost_total",
			Help: "Total number of items dropped by a drop-oldest edge queue",
		},
		[]string{"run", "edge"},
	)

	// IterationSeconds measures per-phase iteration latency for a worker.
	IterationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dagrun_iteration_seconds",
			Help:    "Latency of one worker iteration phase in seconds",
			Buckets: prometheus.ExponentialBuckets(0.000001, 2, 20), // 1µs to ~0.5s
		},
		[]string{"run", "worker", "phase"},
	)

	// WorkerState tracks the current lifecycle state of a worker.
	WorkerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dagrun_worker_state",
			Help: "Current lifecycle state of a worker (1=active for that state, 0 otherwise)",
		},
		[]string{"run", "worker", "state"},
	)

	// BarrierWaitSeconds measures how long a worker waited at the startup barrier.
	BarrierWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dagrun_barrier_wait_seconds",
			Help:    "Time a worker spent waiting at the startup barrier",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"run", "worker"},
	)
)
