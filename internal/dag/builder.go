package dag

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dagrun-dev/dagrun/internal/config"
	"github.com/dagrun-dev/dagrun/internal/queue"
	"github.com/dagrun-dev/dagrun/internal/worker"
	"github.com/dagrun-dev/dagrun/pkg/registry"
)

// BuildFromConfig constructs a fully wired DAG from a static GraphConfig:
// every worker is built via pkg/registry, every lane's strategy is set
// from its WorkerConfig, and every edge connects the queue type its
// config names. It does not call Start.
func BuildFromConfig(cfg *config.GraphConfig, log *slog.Logger) (*DAG, error) {
	d := New(log)

	barrierTimeout, err := time.ParseDuration(cfg.BarrierTimeout)
	if err != nil {
		return nil, fmt.Errorf("dag: barrier_timeout: %w", err)
	}
	d.BarrierTimeout = barrierTimeout

	for _, wc := range cfg.Workers {
		w, err := registry.Build(wc, d.Log)
		if err != nil {
			return nil, fmt.Errorf("dag: building worker %q: %w", wc.Name, err)
		}
		node, err := d.AddNode(w)
		if err != nil {
			return nil, err
		}
		if err := applyLaneStrategy(node.SetRecvDataStrategy, wc.Data.Recv); err != nil {
			return nil, fmt.Errorf("dag: worker %q data.recv: %w", wc.Name, err)
		}
		if err := applyLaneStrategy(node.SetSendDataStrategy, wc.Data.Send); err != nil {
			return nil, fmt.Errorf("dag: worker %q data.send: %w", wc.Name, err)
		}
		if err := applyLaneStrategy(node.SetRecvMetaStrategy, wc.Meta.Recv); err != nil {
			return nil, fmt.Errorf("dag: worker %q meta.recv: %w", wc.Name, err)
		}
		if err := applyLaneStrategy(node.SetSendMetaStrategy, wc.Meta.Send); err != nil {
			return nil, fmt.Errorf("dag: worker %q meta.send: %w", wc.Name, err)
		}
		if wc.Profile {
			node.EnableProfile()
		}
	}

	for _, ec := range cfg.Edges.Data {
		q, err := buildQueue(ec)
		if err != nil {
			return nil, fmt.Errorf("dag: data edge %q: %w", ec.Name, err)
		}
		if err := d.ConnectData(ec.From, ec.To, ec.Name, q); err != nil {
			return nil, err
		}
	}
	for _, ec := range cfg.Edges.Meta {
		q, err := buildQueue(ec)
		if err != nil {
			return nil, fmt.Errorf("dag: metadata edge %q: %w", ec.Name, err)
		}
		if err := d.ConnectMetadata(ec.From, ec.To, ec.Name, q); err != nil {
			return nil, err
		}
	}

	return d, nil
}

func applyLaneStrategy(set func(strategy string, cfg worker.StrategyConfig), sc config.StrategyConfig) error {
	var timeout time.Duration
	if sc.Timeout != "" {
		d, err := time.ParseDuration(sc.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", sc.Timeout, err)
		}
		timeout = d
	}
	set(sc.Strategy, worker.StrategyConfig{Block: sc.Block, Timeout: timeout})
	return nil
}

func buildQueue(ec config.EdgeConfig) (queue.Queue, error) {
	switch ec.Kind {
	case "", "bounded":
		return queue.NewBounded(ec.Capacity), nil
	case "ring":
		return queue.NewRing(ec.Capacity), nil
	default:
		return nil, fmt.Errorf("unknown queue kind %q", ec.Kind)
	}
}
