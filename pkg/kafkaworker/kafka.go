// Package kafkaworker implements a Worker that ships data-lane items to a
// Kafka topic, grounded on the teacher's Kafka reporter plugin.
package kafkaworker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/segmentio/kafka-go"

	"github.com/dagrun-dev/dagrun/internal/worker"
)

const (
	defaultBatchSize    = 100
	defaultBatchTimeout = 100 * time.Millisecond
	defaultCompression  = "snappy"
	defaultMaxAttempts  = 3
)

// Config is decoded from a WorkerConfig.Options map via mapstructure.
type Config struct {
	Brokers      []string `mapstructure:"brokers"`
	Topic        string   `mapstructure:"topic"`
	BatchSize    int      `mapstructure:"batch_size"`
	BatchTimeout string   `mapstructure:"batch_timeout"`
	Compression  string   `mapstructure:"compression"`
	MaxAttempts  int      `mapstructure:"max_attempts"`
}

// Sink is a sink Worker: it has no send-data lane, and its ProcessData
// hook writes every item it receives to Kafka before discarding it (ok is
// always false, since there is nothing further downstream).
type Sink struct {
	name   string
	raw    map[string]any
	cfg    Config
	writer *kafka.Writer

	reported uint64
	errored  uint64
}

// New builds a Sink named name; options is the worker's configured
// Options map (WorkerConfig.Options in internal/config), decoded lazily
// in Initialize.
func New(name string, options map[string]any) *Sink {
	return &Sink{name: name, raw: options}
}

func (s *Sink) Name() string { return s.name }

func (s *Sink) Initialize(ctx context.Context) error {
	cfg := Config{
		BatchSize:    defaultBatchSize,
		BatchTimeout: "100ms",
		Compression:  defaultCompression,
		MaxAttempts:  defaultMaxAttempts,
	}
	if err := mapstructure.Decode(s.raw, &cfg); err != nil {
		return fmt.Errorf("kafkaworker %s: decode options: %w", s.name, err)
	}
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("kafkaworker %s: brokers is required", s.name)
	}
	if cfg.Topic == "" {
		return fmt.Errorf("kafkaworker %s: topic is required", s.name)
	}
	batchTimeout, err := time.ParseDuration(cfg.BatchTimeout)
	if err != nil {
		return fmt.Errorf("kafkaworker %s: invalid batch_timeout: %w", s.name, err)
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: batchTimeout,
		MaxAttempts:  cfg.MaxAttempts,
		Async:        false,
	}
	switch cfg.Compression {
	case "", "none":
	case "gzip":
		w.Compression = kafka.Gzip
	case "snappy":
		w.Compression = kafka.Snappy
	case "lz4":
		w.Compression = kafka.Lz4
	default:
		return fmt.Errorf("kafkaworker %s: invalid compression %q", s.name, cfg.Compression)
	}

	s.cfg = cfg
	s.writer = w
	return nil
}

func (s *Sink) Cleanup(ctx context.Context) error {
	if s.writer == nil {
		return nil
	}
	return s.writer.Close()
}

func (s *Sink) ProcessData(ctx context.Context, in any) (any, bool) {
	if in == nil || in == worker.Empty {
		return nil, false
	}

	value, err := json.Marshal(in)
	if err != nil {
		s.errored++
		return nil, false
	}

	msg := kafka.Message{Value: value, Time: time.Now()}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.errored++
		return nil, false
	}
	s.reported++
	return nil, false
}

// ProcessMetadata passes metadata through unchanged; a Kafka sink has no
// opinion about the metadata lane.
func (s *Sink) ProcessMetadata(ctx context.Context, in any) (any, bool) {
	if in == nil || in == worker.Empty {
		return nil, false
	}
	return in, true
}
