// Package guard rejects snapshots whose miner count is implausible against the last accepted one.
package guard

import (
	"context"
	"fmt"

	"sigrank/internal/logger"
	"sigrank/internal/signal"
)

// CountStore persists the last accepted miner count.
type CountStore interface {
	Load(ctx context.Context) (count int, ok bool, err error)
	Save(ctx context.Context, count int) error
}

type Guard struct {
	store     CountStore
	enabled   bool
	minMiners int
	maxDelta  int
}

func New(store CountStore, enabled bool, minMiners, maxDelta int) *Guard {
	return &Guard{store: store, enabled: enabled, minMiners: minMiners, maxDelta: maxDelta}
}

// Check accepts n when it is above the minimum and within maxDelta of the stored count, and then
// stores n. A rejected count leaves the store untouched.
func (g *Guard) Check(ctx context.Context, n int) error {
	if g == nil || !g.enabled {
		return nil
	}
	if n <= g.minMiners {
		return &signal.AnomalyError{Current: n, Reason: fmt.Sprintf("count must exceed %d", g.minMiners)}
	}
	if g.store == nil {
		return nil
	}
	prev, ok, err := g.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load previous miner count: %w", err)
	}
	if ok {
		delta := n - prev
		if delta < 0 {
			delta = -delta
		}
		if delta > g.maxDelta {
			return &signal.AnomalyError{
				Previous: prev,
				Current:  n,
				HasPrev:  true,
				Reason:   fmt.Sprintf("delta %d exceeds %d", delta, g.maxDelta),
			}
		}
	}
	if err := g.store.Save(ctx, n); err != nil {
		return fmt.Errorf("save miner count: %w", err)
	}
	logger.Debugf("guard: accepted miner count=%d previous=%d had_previous=%v", n, prev, ok)
	return nil
}
