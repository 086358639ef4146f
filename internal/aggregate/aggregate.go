// Package aggregate folds ranked miners' open exposure into one capped depth per asset.
package aggregate

import (
	"math"
	"sort"

	"sigrank/internal/pkg/symbol"
	"sigrank/internal/position"
	"sigrank/internal/signal"
)

// Ceilings returns the leverage limit of an asset class.
type Ceilings interface {
	Ceiling(class symbol.Class) float64
}

type Aggregator struct {
	table           symbol.Table
	includeUnmapped bool
	ceilings        Ceilings
	maxDepth        float64
}

func NewAggregator(table symbol.Table, includeUnmapped bool, ceilings Ceilings, maxDepth float64) *Aggregator {
	return &Aggregator{table: table, includeUnmapped: includeUnmapped, ceilings: ceilings, maxDepth: maxDepth}
}

type bucket struct {
	contributions []signal.Order
	originals     map[string]struct{}
	lastPrice     float64
	lastAt        int64
}

// Aggregate walks ranked miners in rank order. Each miner contributes at most once per asset:
// its open positions on the asset are netted, capped at the class ceiling, scaled to [-1,1] and
// weighted by the miner's allocation weight. The per-asset contribution list is then netted
// again and capped at the configured max depth. Output is sorted by symbol.
func (a *Aggregator) Aggregate(ranked []signal.MinerScoreRecord, miners map[string]signal.Miner) []signal.AssetSignal {
	buckets := make(map[string]*bucket)
	seq := 0
	for _, rec := range ranked {
		m, ok := miners[rec.MinerID]
		if !ok || rec.Weight <= 0 {
			continue
		}
		byAsset, order := a.openOrders(m)
		for _, sym := range order {
			orders := byAsset[sym]
			net, basis := position.Net(orders.orders)
			if net == 0 {
				continue
			}
			ceiling := a.ceiling(sym)
			scaled := position.Cap(net, ceiling) / ceiling * rec.Weight

			last := latest(orders.orders)
			b := buckets[sym]
			if b == nil {
				b = &bucket{originals: make(map[string]struct{})}
				buckets[sym] = b
			}
			b.contributions = append(b.contributions, signal.Order{
				Type:        direction(scaled),
				Leverage:    scaled,
				Price:       basis,
				ProcessedAt: last.ProcessedAt,
				Seq:         seq,
			})
			seq++
			for id := range orders.originals {
				b.originals[id] = struct{}{}
			}
			if last.ProcessedAt >= b.lastAt {
				b.lastAt = last.ProcessedAt
				b.lastPrice = last.Price
			}
		}
	}

	out := make([]signal.AssetSignal, 0, len(buckets))
	for sym, b := range buckets {
		net, avg := position.Net(b.contributions)
		originals := make([]string, 0, len(b.originals))
		for id := range b.originals {
			originals = append(originals, id)
		}
		sort.Strings(originals)
		out = append(out, signal.AssetSignal{
			Symbol:          sym,
			Depth:           position.Cap(net, a.maxDepth),
			AveragePrice:    avg,
			LastPrice:       b.lastPrice,
			OriginalSymbols: originals,
			Contributors:    len(b.contributions),
			Timestamp:       b.lastAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// DepthFor returns a depth per asset; tracked assets without a signal report 0.
func DepthFor(signals []signal.AssetSignal, tracked []string) map[string]float64 {
	out := make(map[string]float64, len(signals)+len(tracked))
	for _, sym := range tracked {
		out[sym] = 0
	}
	for _, s := range signals {
		out[s.Symbol] = s.Depth
	}
	return out
}

type assetOrders struct {
	orders    []signal.Order
	originals map[string]struct{}
}

// openOrders groups the orders of m's open positions with non-zero net leverage by canonical
// asset. The returned order lists assets by first appearance.
func (a *Aggregator) openOrders(m signal.Miner) (map[string]*assetOrders, []string) {
	byAsset := make(map[string]*assetOrders)
	var order []string
	for _, p := range m.Positions {
		if !p.IsOpen() || p.NetLeverage == 0 || len(p.Orders) == 0 {
			continue
		}
		sym, ok := a.table.Resolve(p.Pair.ID, a.includeUnmapped)
		if !ok {
			continue
		}
		ao := byAsset[sym]
		if ao == nil {
			ao = &assetOrders{originals: make(map[string]struct{})}
			byAsset[sym] = ao
			order = append(order, sym)
		}
		ao.orders = signal.AppendOrders(ao.orders, p.Orders...)
		ao.originals[p.Pair.ID] = struct{}{}
	}
	return byAsset, order
}

func (a *Aggregator) ceiling(sym string) float64 {
	if a.ceilings == nil {
		return 1
	}
	c := a.ceilings.Ceiling(a.table.Class(sym))
	if c <= 0 || math.IsNaN(c) {
		return 1
	}
	return c
}

func latest(orders []signal.Order) signal.Order {
	var last signal.Order
	for i, o := range orders {
		if i == 0 || o.ProcessedAt >= last.ProcessedAt {
			last = o
		}
	}
	return last
}

func direction(v float64) signal.OrderType {
	if v < 0 {
		return signal.OrderShort
	}
	return signal.OrderLong
}
