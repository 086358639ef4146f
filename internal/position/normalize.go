package position

import (
	"fmt"
	"math"
	"time"

	"sigrank/internal/pkg/symbol"
	"sigrank/internal/signal"
)

// Normalizer validates miner histories and applies the asset allow-list and activity filters.
type Normalizer struct {
	table           symbol.Table
	includeUnmapped bool
	staleAfter      time.Duration
}

func NewNormalizer(table symbol.Table, includeUnmapped bool, staleAfter time.Duration) *Normalizer {
	return &Normalizer{table: table, includeUnmapped: includeUnmapped, staleAfter: staleAfter}
}

// Normalize returns a copy of m whose positions have valid, chronologically sorted orders and a
// resolvable trade pair. Malformed orders reject the whole miner with an isolable InputError.
func (n *Normalizer) Normalize(m signal.Miner) (signal.Miner, error) {
	out := m
	out.Positions = make([]signal.Position, 0, len(m.Positions))
	for pi, p := range m.Positions {
		if len(p.Orders) == 0 {
			continue
		}
		if _, ok := n.table.Resolve(p.Pair.ID, n.includeUnmapped); !ok {
			continue
		}
		for oi, o := range p.Orders {
			if err := validateOrder(o); err != nil {
				return signal.Miner{}, &signal.InputError{
					MinerID: m.ID,
					Field:   fmt.Sprintf("positions[%d].orders[%d]", pi, oi),
					Reason:  err.Error(),
				}
			}
		}
		p.Orders = signal.SortOrders(p.Orders)
		out.Positions = append(out.Positions, p)
	}
	return out, nil
}

// Active reports whether m traded within the staleness window ending at asOf.
func (n *Normalizer) Active(m signal.Miner, asOf time.Time) bool {
	if n.staleAfter <= 0 {
		return true
	}
	last := m.LastActivity()
	if last == 0 {
		return false
	}
	return asOf.Sub(time.UnixMilli(last)) <= n.staleAfter
}

// Symbol resolves the canonical symbol for p under the normalizer's mapping policy.
func (n *Normalizer) Symbol(p signal.Position) (string, bool) {
	return n.table.Resolve(p.Pair.ID, n.includeUnmapped)
}

func validateOrder(o signal.Order) error {
	if math.IsNaN(o.Leverage) || math.IsInf(o.Leverage, 0) {
		return fmt.Errorf("leverage is not finite")
	}
	if math.IsNaN(o.Price) || math.IsInf(o.Price, 0) {
		return fmt.Errorf("price is not finite")
	}
	if o.Type.IsFlat() {
		if o.Price < 0 {
			return fmt.Errorf("price must be >= 0, got %v", o.Price)
		}
		return nil
	}
	if o.Price <= 0 {
		return fmt.Errorf("price must be > 0, got %v", o.Price)
	}
	return nil
}
