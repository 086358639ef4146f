// Package risk computes per-miner performance statistics and cohort normalisations.
package risk

import (
	"math"

	"sigrank/internal/signal"
)

// MaxDrawdown walks orders in sequence and returns the worst leverage-scaled adverse move of the
// fill price against the running average entry. Longs measure downside, shorts upside. The
// result is <= 0.
func MaxDrawdown(orders []signal.Order) float64 {
	var cum, avg, worst float64
	for _, o := range orders {
		if o.Leverage == 0 || o.Price == 0 {
			continue
		}
		next := cum + o.Leverage
		switch {
		case cum == 0 || sameSign(cum, o.Leverage):
			avg = (avg*cum + o.Price*o.Leverage) / next
		case math.Abs(o.Leverage) > math.Abs(cum):
			avg = o.Price
		}
		cum = next
		if math.Abs(cum) < 1e-9 {
			cum, avg = 0, 0
			continue
		}
		var move float64
		if cum > 0 {
			move = (o.Price - avg) / avg
		} else {
			move = (avg - o.Price) / avg
		}
		if dd := move * math.Abs(cum); dd < worst {
			worst = dd
		}
	}
	return worst
}

// WorstDrawdown is the minimum MaxDrawdown across positions, 0 when there are none.
func WorstDrawdown(positions []signal.Position) float64 {
	var worst float64
	for _, p := range positions {
		if dd := MaxDrawdown(p.Orders); dd < worst {
			worst = dd
		}
	}
	return worst
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
