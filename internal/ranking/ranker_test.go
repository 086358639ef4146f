package ranking

import (
	"context"
	"testing"

	"sigrank/internal/pkg/symbol"
	"sigrank/internal/position"
	"sigrank/internal/signal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

// closedMiner builds a miner with one closed BTCUSD long per return factor.
func closedMiner(id string, returns ...float64) signal.Miner {
	m := signal.Miner{ID: id}
	for i, r := range returns {
		open := int64(i * 100)
		m.Positions = append(m.Positions, signal.Position{
			ID:            id,
			MinerID:       id,
			Pair:          signal.TradePair{ID: "BTCUSD"},
			Closed:        true,
			OpenAt:        open,
			CloseAt:       i64(open + 50),
			ReturnAtClose: f64(r),
			Orders: []signal.Order{
				{Type: signal.OrderLong, Leverage: 0.1, Price: 100, ProcessedAt: open},
				{Type: signal.OrderFlat, Leverage: 0, Price: 100, ProcessedAt: open + 50},
			},
		})
	}
	return m
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MinTrades = 3
	cfg.TopN = 0
	return cfg
}

func newTestRanker(cfg Config) *Ranker {
	table := symbol.NewTable(map[string]string{"BTCUSD": "BTCUSDT", "ETHUSD": "ETHUSDT"}, nil)
	return NewRanker(cfg, position.NewNormalizer(table, false, 0))
}

func TestRankOrdersAndWeights(t *testing.T) {
	miners := []signal.Miner{
		closedMiner("high", 1.05, 1.04, 1.06, 1.05),
		closedMiner("mid", 1.02, 1.03, 1.02, 1.01),
		closedMiner("low", 1.01, 1.01, 1.01, 0.99),
	}
	out, err := newTestRanker(testConfig()).Rank(context.Background(), miners, nil)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "high", out[0].MinerID)
	assert.Equal(t, "mid", out[1].MinerID)
	assert.Equal(t, "low", out[2].MinerID)
	for i, rec := range out {
		assert.Equal(t, i+1, rec.Rank)
	}
	assert.InDelta(t, 3.0/6, out[0].Weight, 1e-12)
	assert.InDelta(t, 2.0/6, out[1].Weight, 1e-12)
	assert.InDelta(t, 1.0/6, out[2].Weight, 1e-12)
	assert.InDelta(t, 1.05*1.04*1.06*1.05-1, out[0].TotalReturn, 1e-12)
	assert.Equal(t, 4, out[0].PositionCount)
	assert.InDelta(t, 0.75, out[2].PctProfitable, 1e-12)
}

func TestRankFiltersSilently(t *testing.T) {
	undertraded := closedMiner("few", 1.5, 1.5)
	losing := closedMiner("losing", 0.99, 0.98, 1.01, 0.97)
	negative := closedMiner("negative", 1.01, 1.01, 0.5, 1.01)

	deep := closedMiner("deep", 1.01, 1.01, 1.01)
	deep.Positions[0].Orders = []signal.Order{
		{Type: signal.OrderLong, Leverage: 1, Price: 100, ProcessedAt: 1},
		{Type: signal.OrderLong, Leverage: 1, Price: 50, ProcessedAt: 2},
	}
	good := closedMiner("good", 1.01, 1.02, 1.01)

	out, err := newTestRanker(testConfig()).Rank(context.Background(),
		[]signal.Miner{undertraded, losing, negative, deep, good}, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "good", out[0].MinerID)
	assert.Equal(t, 1.0, out[0].Weight)
}

func TestRankEmptyCohort(t *testing.T) {
	out, err := newTestRanker(testConfig()).Rank(context.Background(), []signal.Miner{closedMiner("a", 1.1)}, nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = newTestRanker(testConfig()).Rank(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRankTiesKeepInputOrder(t *testing.T) {
	returns := []float64{1.02, 1.01, 1.03}
	miners := []signal.Miner{
		closedMiner("first", returns...),
		closedMiner("second", returns...),
		closedMiner("third", returns...),
	}
	out, err := newTestRanker(testConfig()).Rank(context.Background(), miners, nil)
	require.NoError(t, err)
	require.Len(t, out, 3)
	// identical histories differ only in percentile positions, which follow input order
	assert.Equal(t, "first", out[0].MinerID)
	assert.Equal(t, "second", out[1].MinerID)
	assert.Equal(t, "third", out[2].MinerID)
}

func TestRankIsIdempotent(t *testing.T) {
	var miners []signal.Miner
	for i, r := range []float64{1.01, 1.03, 1.02, 1.05, 1.04, 1.02} {
		miners = append(miners, closedMiner(string(rune('a'+i)), repeat(r, 3+i)...))
	}
	cfg := testConfig()
	cfg.Workers = 3
	ranker := newTestRanker(cfg)

	first, err := ranker.Rank(context.Background(), miners, []string{"BTCUSDT"})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := ranker.Rank(context.Background(), miners, []string{"BTCUSDT"})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRankTopN(t *testing.T) {
	miners := []signal.Miner{
		closedMiner("b", 1.05, 1.05, 1.05),
		closedMiner("c", 1.03, 1.03, 1.03),
		closedMiner("a", 1.01, 1.01, 1.01),
	}
	cfg := testConfig()
	cfg.TopN = 2
	out, err := newTestRanker(cfg).Rank(context.Background(), miners, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].MinerID)
	assert.Equal(t, "c", out[1].MinerID)
	assert.InDelta(t, 1.0, out[0].Weight+out[1].Weight, 1e-12)
	assert.InDelta(t, 2.0/3, out[0].Weight, 1e-12)
}

func TestRankWatchListAnnotations(t *testing.T) {
	m := closedMiner("a", 1.01, 1.02, 1.03)
	m.Positions = append(m.Positions, signal.Position{
		Pair:          signal.TradePair{ID: "BTCUSD"},
		CurrentReturn: 1.01,
		OpenAt:        1000,
		Orders: []signal.Order{
			{Type: signal.OrderLong, Leverage: 0.2, Price: 100, ProcessedAt: 1000},
			{Type: signal.OrderLong, Leverage: 0.2, Price: 110, ProcessedAt: 1001},
		},
	})
	out, err := newTestRanker(testConfig()).Rank(context.Background(), []signal.Miner{m}, []string{"BTCUSDT", "ETHUSDT"})
	require.NoError(t, err)
	require.Len(t, out, 1)

	btc := out[0].Assets["BTCUSDT"]
	assert.Equal(t, 4, btc.Positions)
	assert.Equal(t, 1, btc.OpenPositions)
	assert.InDelta(t, 0.4, btc.NetPosition, 1e-12)
	assert.InDelta(t, 105, btc.AveragePrice, 1e-9)

	eth, ok := out[0].Assets["ETHUSDT"]
	require.True(t, ok)
	assert.Equal(t, signal.AssetMetrics{Symbol: "ETHUSDT"}, eth)
}

func TestRankHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestRanker(testConfig()).Rank(ctx, []signal.Miner{closedMiner("a", 1.1, 1.1, 1.1)}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompositeMonotoneInTotalReturn(t *testing.T) {
	cfg := DefaultConfig()
	base := Components{
		Drawdown:              -0.1,
		SharpePercentile:      0.4,
		PctProfitable:         0.6,
		PositionCount:         12,
		PositionPercentile:    0.5,
		ConsistencyPercentile: 0.3,
	}
	prev := Composite(base, cfg)
	for _, tr := range []float64{-0.5, -0.1, 0, 0.01, 0.2, 1, 10} {
		in := base
		in.TotalReturn = tr
		got := Composite(in, cfg)
		assert.GreaterOrEqual(t, got, prev-1e-12)
		prev = got
	}
}

func TestCompositeDrawdownBeyondTotalLoss(t *testing.T) {
	cfg := DefaultConfig()
	wiped := Composite(Components{Drawdown: -1}, cfg)
	worse := Composite(Components{Drawdown: -2.5}, cfg)
	assert.Equal(t, wiped, worse)
	assert.Less(t, worse, Composite(Components{Drawdown: -0.1}, cfg))
}
