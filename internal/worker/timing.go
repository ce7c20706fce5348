package worker

import "time"

// Timing is the per-iteration timestamp bundle spec.md §3/§6 describes:
// absolute wall clock at start/stop plus a monotonic duration for each of
// the six iteration phases.
type Timing struct {
	Iteration int64
	TStart    time.Time
	TStop     time.Time

	RecvData time.Duration
	ProcData time.Duration
	SendData time.Duration
	RecvMeta time.Duration
	ProcMeta time.Duration
	SendMeta time.Duration
}

// Total returns the sum of the six phase durations plus measurement slack,
// i.e. stop-start, satisfying invariant 1 of spec.md §8
// (total >= sum(phases) - epsilon).
func (t Timing) Total() time.Duration {
	return t.TStop.Sub(t.TStart)
}

// SumPhases returns the sum of the six measured phase durations, used to
// check invariant 1 against Total().
func (t Timing) SumPhases() time.Duration {
	return t.RecvData + t.ProcData + t.SendData + t.RecvMeta + t.ProcMeta + t.SendMeta
}

// LogAttrs renders the fields spec.md §6 requires, in order, as slog
// key-value pairs: iteration (#N), t_start_ms, then the six phase
// durations in ms, total_ms, t_stop_ms.
func (t Timing) LogAttrs() []any {
	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000.0 }
	return []any{
		"iteration", t.Iteration,
		"t_start_ms", t.TStart.UnixMilli(),
		"recv_data_ms", ms(t.RecvData),
		"proc_data_ms", ms(t.ProcData),
		"send_data_ms", ms(t.SendData),
		"recv_meta_ms", ms(t.RecvMeta),
		"proc_meta_ms", ms(t.ProcMeta),
		"send_meta_ms", ms(t.SendMeta),
		"total_ms", ms(t.Total()),
		"t_stop_ms", t.TStop.UnixMilli(),
	}
}
