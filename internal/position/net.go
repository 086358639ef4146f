// Package position rebuilds net exposure from raw order streams and filters miner histories.
package position

import (
	"math"

	"sigrank/internal/signal"
)

// zeroTolerance is the magnitude under which a reduced book counts as fully closed.
const zeroTolerance = 1e-9

// Net folds a chronologically sorted copy of orders into a signed net exposure and its
// volume-weighted cost basis.
//
// A FLAT order anywhere in the sequence voids the entire rollup and yields (0, 0), not just the
// exposure accumulated before it.
func Net(orders []signal.Order) (net, basis float64) {
	if len(orders) == 0 {
		return 0, 0
	}
	sorted := signal.SortOrders(orders)
	for _, o := range sorted {
		if o.Type.IsFlat() {
			return 0, 0
		}
	}
	for _, o := range sorted {
		qty := o.Leverage
		if qty == 0 {
			continue
		}
		switch {
		case net == 0 || sameSign(net, qty):
			basis = (net*basis + qty*o.Price) / (net + qty)
			net += qty
		default:
			flip := math.Abs(qty) > math.Abs(net)
			net += qty
			switch {
			case math.Abs(net) < zeroTolerance:
				net, basis = 0, 0
			case flip:
				basis = o.Price
			}
		}
	}
	return net, basis
}

// Cap limits the magnitude of net to ceiling while keeping its sign.
// A non-positive ceiling leaves net untouched.
func Cap(net, ceiling float64) float64 {
	if ceiling <= 0 {
		return net
	}
	if math.Abs(net) <= ceiling {
		return net
	}
	return math.Copysign(ceiling, net)
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
