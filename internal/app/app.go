package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"sigrank/internal/config"
	"sigrank/internal/logger"
	"sigrank/internal/pipeline"
	"sigrank/internal/scheduler"
	"sigrank/internal/snapshot"
	"sigrank/internal/telemetry"
	apihttp "sigrank/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// App wires configuration into the ranking service, its triggers and the HTTP server.
type App struct {
	cfg      *config.Config
	engine   *pipeline.Engine
	service  *RankService
	archive  *snapshot.Archive
	server   *apihttp.Server
	watcher  *snapshot.Watcher
	metrics  *telemetry.Metrics
	interval time.Duration
	closers  []io.Closer
	Summary  *StartupSummary
}

// NewApp builds the application without starting it.
func NewApp(cfg *config.Config, opts ...AppBuilderOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg, opts)
}

// Run starts the scheduler, the inbox watcher and the HTTP server and blocks until ctx is done
// or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	group, ctx := errgroup.WithContext(ctx)

	if a.server != nil {
		group.Go(func() error {
			if err := a.server.Start(ctx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}
	if a.watcher != nil {
		group.Go(func() error {
			if err := a.watcher.Run(ctx); err != nil {
				return fmt.Errorf("inbox watcher error: %w", err)
			}
			return nil
		})
	}
	if a.cfg.Source.Endpoint != "" && a.interval > 0 {
		group.Go(func() error {
			sched := scheduler.NewAlignedScheduler(ctx, a.interval, time.Duration(a.cfg.Schedule.OffsetSeconds)*time.Second)
			sched.RunImmediately = a.cfg.Schedule.RunImmediately
			sched.Start(a.service.Tick)
			return nil
		})
	} else {
		logger.Warnf("no source endpoint configured, ranking runs only on inbox files and POST /api/rank")
	}
	return group.Wait()
}

func (a *App) Engine() *pipeline.Engine { return a.engine }

func (a *App) Service() *RankService { return a.service }

func (a *App) Archive() *snapshot.Archive { return a.archive }

func (a *App) Metrics() *telemetry.Metrics { return a.metrics }

// Close releases the stores opened by the builder.
func (a *App) Close() {
	if a == nil {
		return
	}
	closeAll(a.closers)
	a.closers = nil
}
