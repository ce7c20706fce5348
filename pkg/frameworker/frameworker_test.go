package frameworker

import (
	"context"
	"testing"

	"github.com/dagrun-dev/dagrun/internal/worker"
)

func TestNewAppliesDefaults(t *testing.T) {
	s := New("cap", Config{Device: "eth0"})
	if s.cfg.SnapLen != 65535 {
		t.Fatalf("expected default snap_len 65535, got %d", s.cfg.SnapLen)
	}
	if s.cfg.TimeoutMs != 100 {
		t.Fatalf("expected default timeout_ms 100, got %d", s.cfg.TimeoutMs)
	}
}

func TestNewPreservesExplicitConfig(t *testing.T) {
	s := New("cap", Config{Device: "eth0", SnapLen: 1600, TimeoutMs: 50, Promisc: true, BPFFilter: "tcp"})
	if s.cfg.SnapLen != 1600 {
		t.Fatalf("expected explicit snap_len to survive defaulting, got %d", s.cfg.SnapLen)
	}
	if s.cfg.TimeoutMs != 50 {
		t.Fatalf("expected explicit timeout_ms to survive defaulting, got %d", s.cfg.TimeoutMs)
	}
	if !s.cfg.Promisc || s.cfg.BPFFilter != "tcp" {
		t.Fatalf("expected promisc/bpf_filter to be preserved, got %+v", s.cfg)
	}
}

func TestProcessMetadataDiscardsEmptySentinel(t *testing.T) {
	s := New("cap", Config{Device: "eth0"})
	out, ok := s.ProcessMetadata(context.Background(), worker.Empty)
	if ok || out != nil {
		t.Fatalf("expected Empty metadata to be discarded, got %v, %v", out, ok)
	}
}

func TestProcessMetadataPassesThroughNonEmpty(t *testing.T) {
	s := New("cap", Config{Device: "eth0"})
	out, ok := s.ProcessMetadata(context.Background(), "meta")
	if !ok || out != "meta" {
		t.Fatalf("expected passthrough, got %v, %v", out, ok)
	}
}

func TestCleanupIsSafeWithoutInitialize(t *testing.T) {
	s := New("cap", Config{Device: "eth0"})
	if err := s.Cleanup(context.Background()); err != nil {
		t.Fatalf("expected Cleanup to tolerate a nil handle, got %v", err)
	}
}
