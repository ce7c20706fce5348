// Package config handles static configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RunConfig is the top-level static configuration for one DAG run.
// Maps to the `dagrun:` root key in YAML.
type RunConfig struct {
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Graph   GraphConfig   `mapstructure:"graph"`
}

// ─── Graph ───

// GraphConfig describes the vertices and edges of one DAG.
type GraphConfig struct {
	BarrierTimeout string         `mapstructure:"barrier_timeout"` // CoordinatorTimeout, e.g. "10s"
	Workers        []WorkerConfig `mapstructure:"workers"`
	Edges          EdgesConfig    `mapstructure:"edges"`
}

// WorkerConfig names a vertex and its per-lane I/O policy.
// The worker's behavior (ProcessData/ProcessMetadata) is supplied in code via
// the registry (see pkg/registry); this only configures the runtime envelope.
type WorkerConfig struct {
	Name    string     `mapstructure:"name"`
	Kind    string     `mapstructure:"kind"` // registry key, e.g. "frame_source", "kafka", "console"
	Options LaneConfig `mapstructure:"options"`
	Data    LanePair   `mapstructure:"data"`
	Meta    LanePair   `mapstructure:"meta"`
	Profile bool       `mapstructure:"profile"`
}

// LaneConfig carries opaque per-worker options forwarded to the registered
// constructor (decoded with mitchellh/mapstructure into the worker's own
// config struct, mirroring the teacher's plugin Init(cfg map[string]any)).
type LaneConfig map[string]any

// LanePair configures one lane's receive and send policy.
type LanePair struct {
	Recv StrategyConfig `mapstructure:"recv"`
	Send StrategyConfig `mapstructure:"send"`
}

// StrategyConfig configures a receive or send strategy.
type StrategyConfig struct {
	Strategy string `mapstructure:"strategy"` // "poll"|"collect" or "dispatch"|"broadcast"
	Block    bool   `mapstructure:"block"`
	Timeout  string `mapstructure:"timeout"` // e.g. "10s"; "" = infinite when Block, 0 when !Block
}

// EdgesConfig lists the data-lane and metadata-lane edges.
type EdgesConfig struct {
	Data []EdgeConfig `mapstructure:"data"`
	Meta []EdgeConfig `mapstructure:"meta"`
}

// EdgeConfig names one queue binding between two workers.
type EdgeConfig struct {
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
	Name     string `mapstructure:"name"`
	Capacity int    `mapstructure:"capacity"`
	Kind     string `mapstructure:"kind"` // "bounded" (lossless FIFO) | "ring" (drop-oldest)
}

// ─── Log ───

// LogConfig controls structured logging.
type LogConfig struct {
	Level   string           `mapstructure:"level"`  // debug|info|warn|error
	Format  string           `mapstructure:"format"` // json|text
	Outputs LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig lists structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
	Loki LokiOutputConfig `mapstructure:"loki"`
}

// FileOutputConfig configures rotating file log output (lumberjack).
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// LokiOutputConfig configures shipping logs to Grafana Loki.
type LokiOutputConfig struct {
	Enabled       bool              `mapstructure:"enabled"`
	Endpoint      string            `mapstructure:"endpoint"`
	Labels        map[string]string `mapstructure:"labels"`
	BatchSize     int               `mapstructure:"batch_size"`
	FlushInterval string            `mapstructure:"flush_interval"`
}

// ─── Metrics ───

// MetricsConfig controls the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `dagrun: ...`.
type configRoot struct {
	Dagrun RunConfig `mapstructure:"dagrun"`
}

// Load loads configuration from a YAML file. Environment variables override
// file values: "." in a key maps to "_" in the env var (e.g. key
// "dagrun.log.level" -> env "DAGRUN_LOG_LEVEL").
func Load(path string) (*RunConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Dagrun

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dagrun.log.level", "info")
	v.SetDefault("dagrun.log.format", "json")
	v.SetDefault("dagrun.log.outputs.file.enabled", false)
	v.SetDefault("dagrun.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("dagrun.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("dagrun.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("dagrun.log.outputs.file.rotation.compress", true)

	v.SetDefault("dagrun.metrics.enabled", true)
	v.SetDefault("dagrun.metrics.listen", ":9090")
	v.SetDefault("dagrun.metrics.path", "/metrics")

	v.SetDefault("dagrun.graph.barrier_timeout", "10s")
}

// ValidateAndApplyDefaults validates the loaded configuration and fills in
// per-edge/per-worker defaults that are cheaper to resolve once here than to
// re-derive at every call site (strategy defaults, queue capacity, lane
// timeouts) — mirrors the teacher's ValidateAndApplyDefaults.
func (cfg *RunConfig) ValidateAndApplyDefaults() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}

	if cfg.Graph.BarrierTimeout == "" {
		cfg.Graph.BarrierTimeout = "10s"
	}
	if _, err := time.ParseDuration(cfg.Graph.BarrierTimeout); err != nil {
		return fmt.Errorf("invalid graph.barrier_timeout: %w", err)
	}

	seen := make(map[string]bool, len(cfg.Graph.Workers))
	for _, w := range cfg.Graph.Workers {
		if w.Name == "" {
			return fmt.Errorf("graph.workers: worker with empty name")
		}
		if seen[w.Name] {
			return fmt.Errorf("graph.workers: duplicate worker name %q", w.Name)
		}
		seen[w.Name] = true
	}

	applyLaneDefaults := func(lp *LanePair, dataLane bool) {
		if lp.Recv.Strategy == "" {
			if dataLane {
				lp.Recv.Strategy = "poll"
				lp.Recv.Block = true
				if lp.Recv.Timeout == "" {
					lp.Recv.Timeout = "10s"
				}
			} else {
				lp.Recv.Strategy = "collect"
			}
		}
		if lp.Send.Strategy == "" {
			if dataLane {
				lp.Send.Strategy = "dispatch"
			} else {
				lp.Send.Strategy = "broadcast"
			}
		}
	}
	for i := range cfg.Graph.Workers {
		applyLaneDefaults(&cfg.Graph.Workers[i].Data, true)
		applyLaneDefaults(&cfg.Graph.Workers[i].Meta, false)
	}

	for _, edges := range [][]EdgeConfig{cfg.Graph.Edges.Data, cfg.Graph.Edges.Meta} {
		for i := range edges {
			if edges[i].Name == "" {
				return fmt.Errorf("graph.edges: edge with empty name between %q and %q", edges[i].From, edges[i].To)
			}
			if edges[i].Capacity <= 0 {
				edges[i].Capacity = 256
			}
			if edges[i].Kind == "" {
				edges[i].Kind = "bounded"
			}
		}
	}

	return nil
}
