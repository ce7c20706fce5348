// Package frameworker implements a source Worker that reads raw frames
// off a live network interface, grounded on the teacher's gopacket-based
// capture sources (internal/source/afpacket, internal/source/file).
package frameworker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"github.com/dagrun-dev/dagrun/internal/worker"
)

// Frame is the data-lane item this worker emits: a captured frame plus
// the capture-time metadata gopacket attaches to it.
type Frame struct {
	Data []byte
	Info gopacket.CaptureInfo
}

// Config is decoded from a WorkerConfig.Options map.
type Config struct {
	Device    string `mapstructure:"device"`
	SnapLen   int32  `mapstructure:"snap_len"`
	Promisc   bool   `mapstructure:"promisc"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
	BPFFilter string `mapstructure:"bpf_filter"`
}

// Source is a source Worker: it has no recv-data lane, and its
// ProcessData hook ignores the (always-empty) input and instead pulls
// the next frame off the live handle.
type Source struct {
	name string
	cfg  Config

	handle *pcap.Handle
}

// New builds a Source named name from an already-decoded Config. Callers
// typically build Config via mapstructure.Decode against a
// config.WorkerConfig.Options map, the same way pkg/kafkaworker does.
func New(name string, cfg Config) *Source {
	if cfg.SnapLen == 0 {
		cfg.SnapLen = 65535
	}
	if cfg.TimeoutMs == 0 {
		cfg.TimeoutMs = 100
	}
	return &Source{name: name, cfg: cfg}
}

func (s *Source) Name() string { return s.name }

func (s *Source) Initialize(ctx context.Context) error {
	handle, err := pcap.OpenLive(s.cfg.Device, s.cfg.SnapLen, s.cfg.Promisc, time.Duration(s.cfg.TimeoutMs)*time.Millisecond)
	if err != nil {
		return fmt.Errorf("frameworker %s: open %s: %w", s.name, s.cfg.Device, err)
	}

	if s.cfg.BPFFilter != "" {
		if err := handle.SetBPFFilter(s.cfg.BPFFilter); err != nil {
			handle.Close()
			return fmt.Errorf("frameworker %s: bpf filter %q: %w", s.name, s.cfg.BPFFilter, err)
		}
	}

	s.handle = handle
	return nil
}

func (s *Source) Cleanup(ctx context.Context) error {
	if s.handle != nil {
		s.handle.Close()
	}
	return nil
}

// ProcessData reads the next frame, non-blocking relative to the
// iteration loop: ReadPacketData returns pcap.NextErrorTimeoutExpired
// when nothing arrived within the handle's own read timeout, which this
// treats as "nothing to emit this iteration" rather than an error.
func (s *Source) ProcessData(ctx context.Context, in any) (any, bool) {
	data, info, err := s.handle.ReadPacketData()
	if err == pcap.NextErrorTimeoutExpired {
		return nil, false
	}
	if err != nil {
		return nil, false
	}
	return Frame{Data: data, Info: info}, true
}

// ProcessMetadata passes non-empty metadata through unchanged and discards
// the Empty sentinel; a capture source adds nothing of its own to the
// metadata lane.
func (s *Source) ProcessMetadata(ctx context.Context, in any) (any, bool) {
	if in == nil || in == worker.Empty {
		return nil, false
	}
	return in, true
}
