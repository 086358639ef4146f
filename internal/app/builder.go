package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"sigrank/internal/aggregate"
	"sigrank/internal/config"
	"sigrank/internal/guard"
	"sigrank/internal/logger"
	"sigrank/internal/notify"
	"sigrank/internal/pipeline"
	"sigrank/internal/pkg/circuit"
	"sigrank/internal/position"
	"sigrank/internal/ranking"
	"sigrank/internal/scheduler"
	"sigrank/internal/snapshot"
	"sigrank/internal/store"
	"sigrank/internal/store/sqlite"
	"sigrank/internal/telemetry"
	apihttp "sigrank/internal/transport/http/api"
)

const (
	inboxSettle   = 500 * time.Millisecond
	depthAccount  = "default"
	breakerSource = "snapshot-feed"
)

type AppBuilder struct {
	cfg *config.Config

	storeOverride    store.Store
	countsOverride   guard.CountStore
	fetcherOverride  Fetcher
	notifierOverride notify.TextNotifier
}

type AppBuilderOption func(*AppBuilder)

// WithStore replaces the gorm sqlite store, mostly for tests.
func WithStore(st store.Store) AppBuilderOption {
	return func(b *AppBuilder) { b.storeOverride = st }
}

// WithCountStore replaces the sqlite miner-count store.
func WithCountStore(cs guard.CountStore) AppBuilderOption {
	return func(b *AppBuilder) { b.countsOverride = cs }
}

func WithFetcher(f Fetcher) AppBuilderOption {
	return func(b *AppBuilder) { b.fetcherOverride = f }
}

func WithNotifier(n notify.TextNotifier) AppBuilderOption {
	return func(b *AppBuilder) { b.notifierOverride = n }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	var closers []io.Closer
	fail := func(err error) (*App, error) {
		closeAll(closers)
		return nil, err
	}

	st := b.storeOverride
	if st == nil {
		db, err := sqlite.NewSqliteStore(cfg.Store.Path)
		if err != nil {
			return fail(fmt.Errorf("open store %s: %w", cfg.Store.Path, err))
		}
		st = db
		closers = append(closers, db)
	}

	counts := b.countsOverride
	if counts == nil && cfg.Guard.Enabled {
		gs, err := guard.OpenSQLite(cfg.Store.GuardPath)
		if err != nil {
			return fail(fmt.Errorf("open guard store %s: %w", cfg.Store.GuardPath, err))
		}
		counts = gs
		closers = append(closers, gs)
	}

	engine := buildEngine(cfg, counts)

	fetcher := b.fetcherOverride
	if fetcher == nil && cfg.Source.Endpoint != "" {
		breaker := circuit.NewCircuitBreaker(breakerSource, cfg.Source.BreakerThreshold, cfg.Source.BreakerCooldown())
		breaker.SetStateChangeHandler(func(name string, from, to circuit.State) {
			logger.Warnf("circuit %s: %s -> %s", name, from, to)
		})
		client, err := snapshot.NewClient(cfg.Source.Endpoint, cfg.Source.APIKey, cfg.Source.Timeout(), breaker)
		if err != nil {
			return fail(err)
		}
		fetcher = client
	}

	var archive *snapshot.Archive
	if cfg.Source.Archive {
		archive = snapshot.NewArchive(cfg.Source.ArchiveDir, st)
	}

	notifier := b.notifierOverride
	if notifier == nil {
		notifier = newNotifier(cfg.Notify)
	}
	metrics := telemetry.New()
	state := apihttp.NewState()

	svc := NewRankService(RankServiceParams{
		Engine:   engine,
		Fetcher:  fetcher,
		Archive:  archive,
		Store:    st,
		Tracker:  notify.NewTracker(st, depthAccount),
		Notifier: notifier,
		Metrics:  metrics,
		State:    state,
	})

	server, err := apihttp.NewServer(apihttp.ServerConfig{
		Addr:    cfg.App.HTTPAddr,
		State:   state,
		Engine:  engine,
		Store:   st,
		Metrics: metrics,
	})
	if err != nil {
		return fail(err)
	}

	var watcher *snapshot.Watcher
	if dir := strings.TrimSpace(cfg.Source.InboxDir); dir != "" {
		watcher = snapshot.NewWatcher(dir, inboxSettle, svc.HandleInbox)
	}

	interval, _ := scheduler.ParseIntervalDuration(cfg.Schedule.Interval)
	return &App{
		cfg:      cfg,
		engine:   engine,
		service:  svc,
		archive:  archive,
		server:   server,
		watcher:  watcher,
		metrics:  metrics,
		interval: interval,
		closers:  closers,
		Summary:  newStartupSummary(cfg, fetcher != nil, watcher != nil),
	}, nil
}

// buildEngine wires the pipeline stages from configuration. A nil count store runs the guard's
// minimum check only.
func buildEngine(cfg *config.Config, counts guard.CountStore) *pipeline.Engine {
	table := cfg.Assets.Table()
	normalizer := position.NewNormalizer(table, cfg.Assets.IncludeUnmapped, cfg.Scoring.StaleAfter())
	ranker := ranking.NewRanker(rankingConfig(cfg.Scoring), normalizer)
	aggregator := aggregate.NewAggregator(table, cfg.Assets.IncludeUnmapped, cfg.Assets.Leverage, cfg.Assets.MaxDepth)
	g := guard.New(counts, cfg.Guard.Enabled, cfg.Guard.MinMiners, cfg.Guard.MaxDelta)
	return pipeline.NewEngine(normalizer, g, ranker, aggregator, cfg.Assets.Watch, cfg.Assets.TrackedSymbols())
}

func rankingConfig(s config.ScoringConfig) ranking.Config {
	return ranking.Config{
		MinTrades:       s.MinTrades,
		DrawdownFloor:   s.DrawdownFloor,
		MinProfitable:   s.MinProfitable,
		MinTotalReturn:  s.MinTotalReturn,
		DrawdownExp:     s.DrawdownExp,
		SharpeExp:       s.SharpeExp,
		ProfitExp:       s.ProfitExp,
		PositionDivisor: s.PositionDivisor,
		TopN:            s.TopN,
		Workers:         s.Workers,
	}
}

func newNotifier(cfg config.NotifyConfig) notify.TextNotifier {
	if !cfg.Telegram.Enabled {
		return notify.Nop{}
	}
	return notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
}

func closeAll(closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logger.Warnf("close resource failed: %v", err)
		}
	}
}
