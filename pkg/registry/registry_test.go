package registry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dagrun-dev/dagrun/internal/config"
	"github.com/dagrun-dev/dagrun/internal/worker"
)

func TestBuildUnknownKindFails(t *testing.T) {
	_, err := Build(config.WorkerConfig{Kind: "does-not-exist", Name: "w"}, slog.Default())
	if err == nil {
		t.Fatal("expected an error for an unregistered kind")
	}
}

func TestBuildConsoleKind(t *testing.T) {
	w, err := Build(config.WorkerConfig{Kind: "console", Name: "sink"}, slog.Default())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if w.Name() != "sink" {
		t.Fatalf("expected worker named sink, got %q", w.Name())
	}
}

func TestBuildKafkaKind(t *testing.T) {
	w, err := Build(config.WorkerConfig{
		Kind: "kafka",
		Name: "kafka-sink",
		Options: config.LaneConfig{
			"brokers": []any{"localhost:9092"},
			"topic":   "events",
		},
	}, slog.Default())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if w.Name() != "kafka-sink" {
		t.Fatalf("expected worker named kafka-sink, got %q", w.Name())
	}
}

func TestBuildFrameSourceDecodesOptions(t *testing.T) {
	w, err := Build(config.WorkerConfig{
		Kind: "frame_source",
		Name: "capture",
		Options: config.LaneConfig{
			"device":   "eth0",
			"snap_len": 1600,
		},
	}, slog.Default())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if w.Name() != "capture" {
		t.Fatalf("expected worker named capture, got %q", w.Name())
	}
}

func TestRegisterAddsNewKind(t *testing.T) {
	called := false
	Register("test-echo", func(name string, options map[string]any, log *slog.Logger) (worker.Worker, error) {
		called = true
		return &echoWorker{name: name}, nil
	})

	w, err := Build(config.WorkerConfig{Kind: "test-echo", Name: "e"}, slog.Default())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !called {
		t.Fatal("expected the registered constructor to run")
	}
	if w.Name() != "e" {
		t.Fatalf("expected worker named e, got %q", w.Name())
	}
}

type echoWorker struct{ name string }

func (w *echoWorker) Name() string                                           { return w.name }
func (w *echoWorker) Initialize(ctx context.Context) error                   { return nil }
func (w *echoWorker) Cleanup(ctx context.Context) error                      { return nil }
func (w *echoWorker) ProcessData(ctx context.Context, in any) (any, bool)    { return in, true }
func (w *echoWorker) ProcessMetadata(ctx context.Context, in any) (any, bool) { return in, true }
