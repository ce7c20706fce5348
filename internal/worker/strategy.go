package worker

import (
	"context"
	"time"

	"go.uber.org/multierr"
)

// StrategyConfig controls one direction (recv or send) of one lane.
type StrategyConfig struct {
	Block   bool
	Timeout time.Duration // 0 means: immediate sweep if !Block, infinite if Block
}

// deadline returns the absolute point past which a Poll/Dispatch sweep
// should give up, or the zero Time for "no deadline" (infinite wait).
// !Block always means "one immediate sweep," matching spec.md's
// "receive_timeout = 0 with Poll: behaves as single non-blocking sweep."
func (c StrategyConfig) deadline(now time.Time) (dl time.Time, immediate bool) {
	if !c.Block {
		return now, true
	}
	if c.Timeout <= 0 {
		return time.Time{}, false
	}
	return now.Add(c.Timeout), false
}

const pollTick = time.Millisecond

// pollReceive implements the Poll receive strategy: round-robin over the
// lane's queues from a persistent cursor, non-blocking reads, looping until
// either a queue yields or the deadline passes.
func pollReceive(ctx context.Context, lane *laneSet, cfg StrategyConfig, cursor *int) (any, error) {
	if lane.len() == 0 {
		return Empty, nil
	}

	dl, immediate := cfg.deadline(time.Now())
	ticker := time.NewTicker(pollTick)
	defer ticker.Stop()

	for {
		for i := 0; i < lane.len(); i++ {
			idx := (*cursor + i) % lane.len()
			item, err := lane.items[idx].q.GetNowait()
			if err == nil {
				*cursor = (idx + 1) % lane.len()
				return item, nil
			}
		}

		if immediate {
			return Empty, nil
		}
		if !dl.IsZero() && !time.Now().Before(dl) {
			return Empty, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return Empty, nil
		}
	}
}

// collectReceive implements the Collect receive strategy: read exactly one
// item from every registered queue, in registration order, using the
// configured block/timeout. A failure on any queue discards everything
// gathered so far and returns ReceiveTimeout.
func collectReceive(ctx context.Context, lane *laneSet, cfg StrategyConfig, workerName, laneName string) (any, error) {
	if lane.len() == 0 {
		return Empty, nil
	}

	out := make(map[string]any, lane.len())
	for _, nq := range lane.items {
		item, err := nq.q.Get(ctx, cfg.Block, cfg.Timeout)
		if err != nil {
			return nil, &ReceiveTimeout{Worker: workerName, Lane: laneName}
		}
		out[nq.name] = item
	}
	return out, nil
}

// dispatchSend implements the Dispatch send strategy: round-robin the
// cursor, attempt a non-blocking put on each queue, return after the first
// success or after the deadline. Guarantees at-most-once delivery per value.
func dispatchSend(ctx context.Context, lane *laneSet, cfg StrategyConfig, cursor *int, value any, workerName, laneName string) error {
	if lane.len() == 0 {
		return nil
	}

	dl, immediate := cfg.deadline(time.Now())
	ticker := time.NewTicker(pollTick)
	defer ticker.Stop()

	for {
		for i := 0; i < lane.len(); i++ {
			idx := (*cursor + i) % lane.len()
			if err := lane.items[idx].q.PutNowait(value); err == nil {
				*cursor = (idx + 1) % lane.len()
				return nil
			}
		}

		if immediate {
			return &SendTimeout{Worker: workerName, Lane: laneName, Queue: "<any>"}
		}
		if !dl.IsZero() && !time.Now().Before(dl) {
			return &SendTimeout{Worker: workerName, Lane: laneName, Queue: "<any>"}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return &SendTimeout{Worker: workerName, Lane: laneName, Queue: "<any>"}
		}
	}
}

// broadcastSend implements the Broadcast send strategy: the input is a
// mapping keyed by queue name; every registered queue whose name appears
// as a key receives the corresponding value via the configured
// block/timeout. Unmatched keys and unmatched queues are both silently
// skipped. Failures are aggregated (via go.uber.org/multierr) rather than
// aborting the remaining sends, so one slow peer cannot silently suppress
// delivery to the others.
func broadcastSend(ctx context.Context, lane *laneSet, cfg StrategyConfig, values map[string]any, workerName, laneName string) error {
	var errs error
	for _, nq := range lane.items {
		value, ok := values[nq.name]
		if !ok {
			continue
		}
		if err := nq.q.Put(ctx, value, cfg.Block, cfg.Timeout); err != nil {
			errs = multierr.Append(errs, &SendTimeout{Worker: workerName, Lane: laneName, Queue: nq.name})
		}
	}
	return errs
}
