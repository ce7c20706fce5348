// Package consoleworker implements a trivial sink Worker that logs every
// data-lane item it receives, grounded on the teacher's console reporter
// plugin. Mainly useful as a DAG terminus for local testing.
package consoleworker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dagrun-dev/dagrun/internal/worker"
)

// Format controls how Sink renders an item.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// Sink logs every item it processes and discards it.
type Sink struct {
	name   string
	format Format
	log    *slog.Logger

	count uint64
}

// New builds a console Sink named name, logging through log (or the
// package default logger if log is nil).
func New(name string, format Format, log *slog.Logger) *Sink {
	if log == nil {
		log = slog.Default()
	}
	return &Sink{name: name, format: format, log: log.With("worker", name)}
}

func (s *Sink) Name() string { return s.name }

func (s *Sink) Initialize(ctx context.Context) error {
	s.log.Info("console sink started")
	return nil
}

func (s *Sink) Cleanup(ctx context.Context) error {
	s.log.Info("console sink stopped", "total_reported", s.count)
	return nil
}

func (s *Sink) ProcessData(ctx context.Context, in any) (any, bool) {
	if in == nil || in == worker.Empty {
		return nil, false
	}
	s.count++

	if s.format == FormatJSON {
		data, err := json.Marshal(in)
		if err != nil {
			s.log.Warn("failed to marshal item", "error", err)
			return nil, false
		}
		fmt.Println(string(data))
		return nil, false
	}

	fmt.Printf("[%s] %+v\n", s.name, in)
	return nil, false
}

func (s *Sink) ProcessMetadata(ctx context.Context, in any) (any, bool) {
	if in == nil || in == worker.Empty {
		return nil, false
	}
	return in, true
}
