package kafkaworker

import (
	"context"
	"testing"

	"github.com/dagrun-dev/dagrun/internal/worker"
)

func TestInitializeRequiresBrokers(t *testing.T) {
	s := New("sink", map[string]any{"topic": "events"})
	if err := s.Initialize(context.Background()); err == nil {
		t.Fatal("expected an error when brokers is missing")
	}
}

func TestInitializeRequiresTopic(t *testing.T) {
	s := New("sink", map[string]any{"brokers": []string{"localhost:9092"}})
	if err := s.Initialize(context.Background()); err == nil {
		t.Fatal("expected an error when topic is missing")
	}
}

func TestInitializeRejectsBadCompression(t *testing.T) {
	s := New("sink", map[string]any{
		"brokers":     []string{"localhost:9092"},
		"topic":       "events",
		"compression": "bogus",
	})
	if err := s.Initialize(context.Background()); err == nil {
		t.Fatal("expected an error for an unrecognized compression codec")
	}
}

func TestInitializeRejectsBadBatchTimeout(t *testing.T) {
	s := New("sink", map[string]any{
		"brokers":       []string{"localhost:9092"},
		"topic":         "events",
		"batch_timeout": "not-a-duration",
	})
	if err := s.Initialize(context.Background()); err == nil {
		t.Fatal("expected an error for an unparsable batch_timeout")
	}
}

func TestInitializeAppliesDefaults(t *testing.T) {
	s := New("sink", map[string]any{
		"brokers": []string{"localhost:9092"},
		"topic":   "events",
	})
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if s.cfg.BatchSize != defaultBatchSize {
		t.Fatalf("expected default batch size %d, got %d", defaultBatchSize, s.cfg.BatchSize)
	}
	if s.cfg.MaxAttempts != defaultMaxAttempts {
		t.Fatalf("expected default max attempts %d, got %d", defaultMaxAttempts, s.cfg.MaxAttempts)
	}
	if s.writer == nil {
		t.Fatal("expected a writer to be configured")
	}
	if err := s.Cleanup(context.Background()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
}

func TestProcessDataDiscardsEmptySentinel(t *testing.T) {
	s := New("sink", nil)
	out, ok := s.ProcessData(context.Background(), worker.Empty)
	if ok || out != nil {
		t.Fatalf("expected Empty input to be a no-op, got %v, %v", out, ok)
	}
	if s.reported != 0 || s.errored != 0 {
		t.Fatalf("expected no counters to move, got reported=%d errored=%d", s.reported, s.errored)
	}
}

func TestProcessMetadataPassesThroughNonEmpty(t *testing.T) {
	s := New("sink", nil)
	out, ok := s.ProcessMetadata(context.Background(), "meta")
	if !ok || out != "meta" {
		t.Fatalf("expected passthrough, got %v, %v", out, ok)
	}
}
