// Package pipeline runs one snapshot through normalisation, the miner-count guard, ranking and
// aggregation.
package pipeline

import (
	"context"
	"errors"
	"time"

	"sigrank/internal/aggregate"
	"sigrank/internal/guard"
	"sigrank/internal/logger"
	"sigrank/internal/position"
	"sigrank/internal/ranking"
	"sigrank/internal/signal"

	"github.com/google/uuid"
)

// Result is everything one run produces. Nothing in it is persisted by the engine.
type Result struct {
	RunID    string                    `json:"run_id" yaml:"run_id"`
	AsOf     time.Time                 `json:"as_of" yaml:"as_of"`
	Miners   int                       `json:"miners" yaml:"miners"`
	Ranked   []signal.MinerScoreRecord `json:"ranked" yaml:"ranked"`
	Signals  []signal.AssetSignal      `json:"signals" yaml:"signals"`
	Depths   map[string]float64        `json:"depths" yaml:"depths"`
	Rejected []string                  `json:"rejected,omitempty" yaml:"rejected,omitempty"`
	Stale    int                       `json:"stale" yaml:"stale"`
	Empty    bool                      `json:"empty" yaml:"empty"`
	Duration time.Duration             `json:"duration" yaml:"duration"`
}

type Engine struct {
	normalizer *position.Normalizer
	guard      *guard.Guard
	ranker     *ranking.Ranker
	aggregator *aggregate.Aggregator
	watch      []string
	tracked    []string
	now        func() time.Time
}

func NewEngine(normalizer *position.Normalizer, g *guard.Guard, ranker *ranking.Ranker, aggregator *aggregate.Aggregator, watch, tracked []string) *Engine {
	return &Engine{
		normalizer: normalizer,
		guard:      g,
		ranker:     ranker,
		aggregator: aggregator,
		watch:      watch,
		tracked:    tracked,
		now:        time.Now,
	}
}

// WithoutGuard returns an engine sharing every stage except the miner-count guard, for ad-hoc
// runs that must not move the stored count.
func (e *Engine) WithoutGuard() *Engine {
	cp := *e
	cp.guard = nil
	return &cp
}

// Run processes snap. Guard failures and snapshot-level input errors are returned and the
// caller should skip the cycle; per-miner input errors only drop that miner.
func (e *Engine) Run(ctx context.Context, snap signal.Snapshot) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := e.now()
	asOf := snap.FetchedAt
	if asOf.IsZero() {
		asOf = start
	}
	res := Result{
		RunID:  uuid.NewString(),
		AsOf:   asOf.UTC(),
		Miners: len(snap.Miners) + len(snap.Rejected),
	}
	log := logger.With("run_id", res.RunID)
	for _, err := range snap.Rejected {
		res.Rejected = append(res.Rejected, err.Error())
	}

	active := make([]signal.Miner, 0, len(snap.Miners))
	for _, m := range snap.Miners {
		norm, err := e.normalizer.Normalize(m)
		if err != nil {
			var input *signal.InputError
			if errors.As(err, &input) && input.Isolable() {
				res.Rejected = append(res.Rejected, err.Error())
				continue
			}
			return res, &StageError{Stage: "normalize", Err: err}
		}
		if !e.normalizer.Active(norm, asOf) {
			res.Stale++
			continue
		}
		active = append(active, norm)
	}
	if len(res.Rejected) > 0 {
		log.Warn("miners rejected", "count", len(res.Rejected))
	}

	if err := e.guard.Check(ctx, res.Miners); err != nil {
		return res, &StageError{Stage: "guard", Err: err}
	}

	ranked, err := e.ranker.Rank(ctx, active, e.watch)
	if err != nil {
		return res, &StageError{Stage: "rank", Err: err}
	}
	res.Ranked = ranked
	res.Signals = e.aggregator.Aggregate(ranked, signal.Snapshot{Miners: active}.Index())
	res.Depths = aggregate.DepthFor(res.Signals, e.tracked)
	res.Empty = len(ranked) == 0
	res.Duration = e.now().Sub(start)

	if res.Empty {
		log.Warn(signal.ErrEmptyCohort.Error(), "miners", res.Miners, "stale", res.Stale)
	} else {
		log.Info("ranking run finished",
			"miners", res.Miners,
			"ranked", len(res.Ranked),
			"signals", len(res.Signals),
			"stale", res.Stale,
			"duration", res.Duration)
	}
	return res, nil
}
