// Package ranking scores miners on their position history and orders them best first.
package ranking

import (
	"context"
	"fmt"
	"sort"

	"sigrank/internal/logger"
	"sigrank/internal/position"
	"sigrank/internal/risk"
	"sigrank/internal/signal"

	"golang.org/x/sync/errgroup"
)

// AssetResolver maps a position onto its canonical asset.
type AssetResolver interface {
	Symbol(p signal.Position) (string, bool)
}

type Ranker struct {
	cfg      Config
	resolver AssetResolver
}

func NewRanker(cfg Config, resolver AssetResolver) *Ranker {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Ranker{cfg: cfg, resolver: resolver}
}

func (r *Ranker) Config() Config { return r.cfg }

type metrics struct {
	drawdown    float64
	sharpe      float64
	totalReturn float64
	profitable  float64
	count       int
	consistency float64
}

// Rank filters, scores and orders miners. The result is best first with 1-based ranks and
// gradient weights over the returned cohort. An empty result is not an error.
func (r *Ranker) Rank(ctx context.Context, miners []signal.Miner, watch []string) ([]signal.MinerScoreRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	all := make([]metrics, len(miners))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(r.cfg.Workers)
	for i := range miners {
		i := i
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			all[i] = compute(miners[i])
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	survivors := make([]int, 0, len(miners))
	for i, m := range all {
		if reason := r.reject(m); reason != "" {
			logger.Debugf("ranking: drop miner=%s reason=%s", miners[i].ID, reason)
			continue
		}
		survivors = append(survivors, i)
	}
	if len(survivors) == 0 {
		return []signal.MinerScoreRecord{}, nil
	}

	sharpes := make([]float64, len(survivors))
	counts := make([]float64, len(survivors))
	consistency := make([]float64, len(survivors))
	for j, i := range survivors {
		sharpes[j] = all[i].sharpe
		counts[j] = float64(all[i].count)
		consistency[j] = all[i].consistency
	}
	sharpePct := risk.PercentileScores(sharpes, false)
	countPct := risk.PercentileScores(counts, false)
	consistencyPct := risk.PercentileScores(consistency, false)

	records := make([]signal.MinerScoreRecord, len(survivors))
	for j, i := range survivors {
		m := all[i]
		miner := miners[i]
		records[j] = signal.MinerScoreRecord{
			MinerID:          miner.ID,
			MaxDrawdown:      m.drawdown,
			SharpeRatio:      m.sharpe,
			TotalReturn:      m.totalReturn,
			PctProfitable:    m.profitable,
			PositionCount:    m.count,
			ConsistencyScore: m.consistency,
			AllTimeReturn:    miner.AllTimeReturn,
			ThirtyDayReturn:  miner.ThirtyDayReturn,
			CompositeScore: Composite(Components{
				Drawdown:              m.drawdown,
				SharpePercentile:      sharpePct[j],
				TotalReturn:           m.totalReturn,
				PctProfitable:         m.profitable,
				PositionCount:         m.count,
				PositionPercentile:    countPct[j],
				ConsistencyPercentile: consistencyPct[j],
			}, r.cfg),
			Assets: r.annotate(miner, watch),
		}
	}

	sort.SliceStable(records, func(a, b int) bool {
		return records[a].CompositeScore > records[b].CompositeScore
	})
	if r.cfg.TopN > 0 && len(records) > r.cfg.TopN {
		records = records[:r.cfg.TopN]
	}
	weights := risk.GradientWeights(len(records))
	for k := range records {
		records[k].Rank = k + 1
		records[k].Weight = weights[k]
	}
	return records, nil
}

func (r *Ranker) reject(m metrics) string {
	switch {
	case m.count < r.cfg.MinTrades:
		return fmt.Sprintf("trades %d < %d", m.count, r.cfg.MinTrades)
	case m.drawdown < r.cfg.DrawdownFloor:
		return fmt.Sprintf("drawdown %.4f < %.4f", m.drawdown, r.cfg.DrawdownFloor)
	case m.profitable < r.cfg.MinProfitable:
		return fmt.Sprintf("profitable %.4f < %.4f", m.profitable, r.cfg.MinProfitable)
	case m.totalReturn < r.cfg.MinTotalReturn:
		return fmt.Sprintf("total return %.4f < %.4f", m.totalReturn, r.cfg.MinTotalReturn)
	}
	return ""
}

func compute(m signal.Miner) metrics {
	out := metrics{count: len(m.Positions)}
	if out.count == 0 {
		return out
	}
	deltas := make([]float64, 0, out.count)
	growth := 1.0
	wins := 0
	for _, p := range m.Positions {
		d := p.ReturnDelta()
		deltas = append(deltas, d)
		growth *= 1 + d
		if d > 0 {
			wins++
		}
	}
	out.drawdown = risk.WorstDrawdown(m.Positions)
	out.sharpe = risk.Sharpe(deltas)
	out.totalReturn = growth - 1
	out.profitable = float64(wins) / float64(out.count)
	out.consistency = risk.Consistency(m.Positions)
	return out
}

// annotate reports the miner's exposure on each watched asset, including assets it never traded.
func (r *Ranker) annotate(m signal.Miner, watch []string) map[string]signal.AssetMetrics {
	if len(watch) == 0 || r.resolver == nil {
		return nil
	}
	out := make(map[string]signal.AssetMetrics, len(watch))
	open := make(map[string][]signal.Order, len(watch))
	for _, sym := range watch {
		out[sym] = signal.AssetMetrics{Symbol: sym}
	}
	for _, p := range m.Positions {
		sym, ok := r.resolver.Symbol(p)
		if !ok {
			continue
		}
		am, watched := out[sym]
		if !watched {
			continue
		}
		am.Positions++
		if p.IsOpen() {
			am.OpenPositions++
			open[sym] = signal.AppendOrders(open[sym], p.Orders...)
		}
		out[sym] = am
	}
	for sym, orders := range open {
		am := out[sym]
		am.NetPosition, am.AveragePrice = position.Net(orders)
		out[sym] = am
	}
	return out
}
