// Package registry maps a WorkerConfig's Kind string to a constructor for
// the corresponding worker.Worker, grounded on the teacher's capture
// handle factory (type string -> constructor).
package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/dagrun-dev/dagrun/internal/config"
	"github.com/dagrun-dev/dagrun/internal/worker"
	"github.com/dagrun-dev/dagrun/pkg/consoleworker"
	"github.com/dagrun-dev/dagrun/pkg/frameworker"
	"github.com/dagrun-dev/dagrun/pkg/kafkaworker"
)

// Constructor builds a worker.Worker named name from its configured
// Options map.
type Constructor func(name string, options map[string]any, log *slog.Logger) (worker.Worker, error)

var (
	mu    sync.RWMutex
	kinds = make(map[string]Constructor)
)

// Register associates kind with a Constructor. Call from an init() in
// the package defining the worker kind, mirroring the teacher's
// factory.Register(componentType, name, fn) pattern.
func Register(kind string, ctor Constructor) {
	mu.Lock()
	defer mu.Unlock()
	kinds[kind] = ctor
}

// Build looks up wc.Kind and constructs the worker.
func Build(wc config.WorkerConfig, log *slog.Logger) (worker.Worker, error) {
	mu.RLock()
	ctor, ok := kinds[wc.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registry: unknown worker kind %q for worker %q", wc.Kind, wc.Name)
	}
	return ctor(wc.Name, wc.Options, log)
}

func init() {
	Register("console", func(name string, options map[string]any, log *slog.Logger) (worker.Worker, error) {
		format := consoleworker.FormatText
		if f, _ := options["format"].(string); f == "json" {
			format = consoleworker.FormatJSON
		}
		return consoleworker.New(name, format, log), nil
	})

	Register("kafka", func(name string, options map[string]any, log *slog.Logger) (worker.Worker, error) {
		return kafkaworker.New(name, options), nil
	})

	Register("frame_source", func(name string, options map[string]any, log *slog.Logger) (worker.Worker, error) {
		var cfg frameworker.Config
		if err := mapstructure.Decode(options, &cfg); err != nil {
			return nil, fmt.Errorf("registry: decode frame_source options for %q: %w", name, err)
		}
		return frameworker.New(name, cfg), nil
	})
}
