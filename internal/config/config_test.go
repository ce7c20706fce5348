package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
dagrun:
  graph:
    workers:
      - name: source
      - name: sink
    edges:
      data:
        - {from: source, to: sink, name: frames}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("expected default log level/format, got %+v", cfg.Log)
	}
	if cfg.Graph.BarrierTimeout != "10s" {
		t.Errorf("expected default barrier timeout 10s, got %s", cfg.Graph.BarrierTimeout)
	}

	src := cfg.Graph.Workers[0]
	if src.Data.Recv.Strategy != "poll" || !src.Data.Recv.Block {
		t.Errorf("expected data recv default poll/blocking, got %+v", src.Data.Recv)
	}
	if src.Data.Send.Strategy != "dispatch" {
		t.Errorf("expected data send default dispatch, got %+v", src.Data.Send)
	}
	if src.Meta.Recv.Strategy != "collect" || src.Meta.Send.Strategy != "broadcast" {
		t.Errorf("expected meta lane defaults collect/broadcast, got %+v", src.Meta)
	}

	edge := cfg.Graph.Edges.Data[0]
	if edge.Capacity != 256 || edge.Kind != "bounded" {
		t.Errorf("expected default edge capacity/kind, got %+v", edge)
	}
}

func TestLoadRejectsDuplicateWorkerNames(t *testing.T) {
	path := writeConfig(t, `
dagrun:
  graph:
    workers:
      - name: source
      - name: source
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for duplicate worker name")
	}
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `
dagrun:
  log:
    level: verbose
  graph:
    workers:
      - name: source
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestLoadRejectsUnnamedEdge(t *testing.T) {
	path := writeConfig(t, `
dagrun:
  graph:
    workers:
      - name: source
      - name: sink
    edges:
      data:
        - {from: source, to: sink}
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for edge with empty name")
	}
}
