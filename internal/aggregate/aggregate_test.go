package aggregate

import (
	"math"
	"testing"

	"sigrank/internal/pkg/symbol"
	"sigrank/internal/signal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flatCeilings map[symbol.Class]float64

func (c flatCeilings) Ceiling(class symbol.Class) float64 { return c[class] }

func newTestAggregator(maxDepth float64) *Aggregator {
	table := symbol.NewTable(
		map[string]string{"BTCUSD": "BTCUSDT", "ETHUSD": "ETHUSDT", "EURUSD": "EURUSD"},
		map[string]string{"EURUSD": "forex"},
	)
	return NewAggregator(table, false, flatCeilings{symbol.ClassCrypto: 0.5, symbol.ClassForex: 5}, maxDepth)
}

func openPosition(pair string, orders ...signal.Order) signal.Position {
	var net float64
	for _, o := range orders {
		net += o.Leverage
	}
	return signal.Position{Pair: signal.TradePair{ID: pair}, Orders: orders, NetLeverage: net}
}

func long(lev, price float64, at int64) signal.Order {
	return signal.Order{Type: signal.OrderLong, Leverage: lev, Price: price, ProcessedAt: at}
}

func short(lev, price float64, at int64) signal.Order {
	return signal.Order{Type: signal.OrderShort, Leverage: -lev, Price: price, ProcessedAt: at}
}

func TestAggregateSingleMiner(t *testing.T) {
	miners := map[string]signal.Miner{
		"a": {ID: "a", Positions: []signal.Position{openPosition("BTCUSD", long(0.25, 100, 10))}},
	}
	ranked := []signal.MinerScoreRecord{{MinerID: "a", Rank: 1, Weight: 1}}

	out := newTestAggregator(1).Aggregate(ranked, miners)
	require.Len(t, out, 1)
	assert.Equal(t, "BTCUSDT", out[0].Symbol)
	assert.InDelta(t, 0.5, out[0].Depth, 1e-12)
	assert.InDelta(t, 100, out[0].AveragePrice, 1e-12)
	assert.Equal(t, 100.0, out[0].LastPrice)
	assert.Equal(t, int64(10), out[0].Timestamp)
	assert.Equal(t, []string{"BTCUSD"}, out[0].OriginalSymbols)
	assert.Equal(t, 1, out[0].Contributors)
}

func TestAggregateCapsAtCeilingAndMaxDepth(t *testing.T) {
	miners := map[string]signal.Miner{
		"a": {ID: "a", Positions: []signal.Position{openPosition("BTCUSD", long(3, 100, 1))}},
		"b": {ID: "b", Positions: []signal.Position{openPosition("BTCUSD", long(2, 110, 2))}},
	}
	ranked := []signal.MinerScoreRecord{
		{MinerID: "a", Rank: 1, Weight: 0.6},
		{MinerID: "b", Rank: 2, Weight: 0.4},
	}

	out := newTestAggregator(1).Aggregate(ranked, miners)
	require.Len(t, out, 1)
	assert.InDelta(t, 1.0, out[0].Depth, 1e-12, "both miners saturate their ceiling")
	assert.InDelta(t, 0.6*100+0.4*110, out[0].AveragePrice, 1e-9)

	out = newTestAggregator(0.8).Aggregate(ranked, miners)
	assert.InDelta(t, 0.8, out[0].Depth, 1e-12)
}

func TestAggregateFlipAcrossMiners(t *testing.T) {
	miners := map[string]signal.Miner{
		"a": {ID: "a", Positions: []signal.Position{openPosition("ETHUSD", long(0.5, 100, 10))}},
		"b": {ID: "b", Positions: []signal.Position{openPosition("ETHUSD", short(0.5, 120, 20))}},
	}
	ranked := []signal.MinerScoreRecord{
		{MinerID: "b", Rank: 1, Weight: 2.0 / 3},
		{MinerID: "a", Rank: 2, Weight: 1.0 / 3},
	}

	out := newTestAggregator(1).Aggregate(ranked, miners)
	require.Len(t, out, 1)
	assert.InDelta(t, -1.0/3, out[0].Depth, 1e-12)
	assert.InDelta(t, 120, out[0].AveragePrice, 1e-12, "the flipping contribution sets the basis")
	assert.Equal(t, 120.0, out[0].LastPrice)
	assert.Equal(t, int64(20), out[0].Timestamp)
	assert.Equal(t, 2, out[0].Contributors)
}

func TestAggregateSkipsIneligiblePositions(t *testing.T) {
	closed := openPosition("BTCUSD", long(0.5, 100, 1))
	closed.Closed = true
	zeroNet := openPosition("BTCUSD", long(0.5, 100, 1))
	zeroNet.NetLeverage = 0
	flat := openPosition("ETHUSD", long(0.5, 100, 1), signal.Order{Type: signal.OrderFlat, Price: 100, ProcessedAt: 2})
	flat.NetLeverage = 0.5

	miners := map[string]signal.Miner{
		"a": {ID: "a", Positions: []signal.Position{
			closed,
			zeroNet,
			flat,
			openPosition("DOGEUSD", long(0.5, 1, 1)),
		}},
	}
	ranked := []signal.MinerScoreRecord{{MinerID: "a", Rank: 1, Weight: 1}}

	assert.Empty(t, newTestAggregator(1).Aggregate(ranked, miners))
}

func TestAggregateOneContributionPerMinerAsset(t *testing.T) {
	miners := map[string]signal.Miner{
		"a": {ID: "a", Positions: []signal.Position{
			openPosition("BTCUSD", long(0.1, 100, 1)),
			openPosition("BTCUSD", long(0.1, 120, 2)),
			openPosition("EURUSD", short(2.5, 1.1, 3)),
		}},
	}
	ranked := []signal.MinerScoreRecord{{MinerID: "a", Rank: 1, Weight: 1}}

	out := newTestAggregator(1).Aggregate(ranked, miners)
	require.Len(t, out, 2)
	assert.Equal(t, "BTCUSDT", out[0].Symbol)
	assert.Equal(t, 1, out[0].Contributors)
	assert.InDelta(t, 0.4, out[0].Depth, 1e-12)
	assert.InDelta(t, 110, out[0].AveragePrice, 1e-9)
	assert.Equal(t, 120.0, out[0].LastPrice)

	assert.Equal(t, "EURUSD", out[1].Symbol)
	assert.InDelta(t, -0.5, out[1].Depth, 1e-12, "forex uses its own ceiling")
}

func TestAggregateDepthNeverExceedsCap(t *testing.T) {
	miners := make(map[string]signal.Miner)
	var ranked []signal.MinerScoreRecord
	n := 12
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		lev := float64(i%4+1) * 0.4
		var p signal.Position
		if i%3 == 0 {
			p = openPosition("BTCUSD", short(lev, 100+float64(i), int64(i)))
		} else {
			p = openPosition("BTCUSD", long(lev, 100-float64(i), int64(i)))
		}
		miners[id] = signal.Miner{ID: id, Positions: []signal.Position{p}}
		ranked = append(ranked, signal.MinerScoreRecord{MinerID: id, Rank: i + 1, Weight: float64(n-i) / float64(n*(n+1)/2)})
	}
	for _, maxDepth := range []float64{0.1, 0.5, 1} {
		for _, s := range newTestAggregator(maxDepth).Aggregate(ranked, miners) {
			assert.LessOrEqual(t, math.Abs(s.Depth), maxDepth+1e-12)
		}
	}
}

func TestAggregateTieBreaksAcrossPositionsByListOrder(t *testing.T) {
	// Both positions fill at t=5. Within its own list the short has Seq 0 and the long Seq 1.
	first := openPosition("BTCUSD", long(1, 100, 1), long(1, 120, 5))
	first.Orders[1].Seq = 1
	second := openPosition("BTCUSD", short(1, 130, 5))
	miners := map[string]signal.Miner{"a": {ID: "a", Positions: []signal.Position{first, second}}}
	ranked := []signal.MinerScoreRecord{{MinerID: "a", Rank: 1, Weight: 1}}

	out := newTestAggregator(1).Aggregate(ranked, miners)
	require.Len(t, out, 1)
	assert.InDelta(t, 1, out[0].Depth, 1e-12)
	assert.InDelta(t, 110, out[0].AveragePrice, 1e-9, "the later position's fill folds after the earlier one's")
}

func TestAggregatePhantomCloseEmitsNothing(t *testing.T) {
	p := openPosition("BTCUSD", long(0.3, 100, 1), short(0.1, 110, 2), short(0.2, 120, 3))
	p.NetLeverage = 1e-17
	miners := map[string]signal.Miner{"a": {ID: "a", Positions: []signal.Position{p}}}
	ranked := []signal.MinerScoreRecord{{MinerID: "a", Rank: 1, Weight: 1}}

	assert.Empty(t, newTestAggregator(1).Aggregate(ranked, miners))
}

func TestAggregateEmpty(t *testing.T) {
	out := newTestAggregator(1).Aggregate(nil, nil)
	assert.Empty(t, out)

	depths := DepthFor(out, []string{"BTCUSDT", "ETHUSDT"})
	assert.Equal(t, map[string]float64{"BTCUSDT": 0, "ETHUSDT": 0}, depths)
}

func TestDepthFor(t *testing.T) {
	signals := []signal.AssetSignal{{Symbol: "BTCUSDT", Depth: 0.3}, {Symbol: "SOLUSDT", Depth: -0.1}}
	depths := DepthFor(signals, []string{"BTCUSDT", "ETHUSDT"})
	assert.Equal(t, map[string]float64{"BTCUSDT": 0.3, "ETHUSDT": 0, "SOLUSDT": -0.1}, depths)
}
