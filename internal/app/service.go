package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"sigrank/internal/logger"
	"sigrank/internal/notify"
	"sigrank/internal/pipeline"
	"sigrank/internal/snapshot"
	"sigrank/internal/store"
	"sigrank/internal/store/model"
	"sigrank/internal/telemetry"
	apihttp "sigrank/internal/transport/http/api"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Fetcher returns one raw snapshot payload and the time it was taken.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, time.Time, error)
}

// RankService owns one ranking cycle: fetch, archive, rank, record, notify.
type RankService struct {
	engine   *pipeline.Engine
	fetcher  Fetcher
	archive  *snapshot.Archive
	store    store.Store
	tracker  *notify.Tracker
	notifier notify.TextNotifier
	metrics  *telemetry.Metrics
	state    *apihttp.State

	// cycles run one at a time whether triggered by the scheduler or the inbox watcher.
	mu sync.Mutex
}

type RankServiceParams struct {
	Engine   *pipeline.Engine
	Fetcher  Fetcher
	Archive  *snapshot.Archive
	Store    store.Store
	Tracker  *notify.Tracker
	Notifier notify.TextNotifier
	Metrics  *telemetry.Metrics
	State    *apihttp.State
}

func NewRankService(p RankServiceParams) *RankService {
	n := p.Notifier
	if n == nil {
		n = notify.Nop{}
	}
	state := p.State
	if state == nil {
		state = apihttp.NewState()
	}
	return &RankService{
		engine:   p.Engine,
		fetcher:  p.Fetcher,
		archive:  p.Archive,
		store:    p.Store,
		tracker:  p.Tracker,
		notifier: n,
		metrics:  p.Metrics,
		state:    state,
	}
}

func (s *RankService) State() *apihttp.State { return s.state }

// Tick fetches a snapshot from the upstream feed and processes it. Errors are logged; the next
// tick starts fresh.
func (s *RankService) Tick(ctx context.Context) {
	if s.fetcher == nil {
		logger.Warnf("rank tick skipped: no snapshot source configured")
		return
	}
	raw, fetchedAt, err := s.fetcher.Fetch(ctx)
	if err != nil {
		logger.Errorf("fetch snapshot failed: %v", err)
		return
	}
	if _, err := s.Process(ctx, raw, fetchedAt, true); err != nil {
		logger.Errorf("ranking cycle skipped: %v", err)
	}
}

// HandleInbox processes a payload dropped into the watched inbox directory.
func (s *RankService) HandleInbox(ctx context.Context, path string, raw []byte, fetchedAt time.Time) {
	logger.Infof("inbox snapshot %s", filepath.Base(path))
	if _, err := s.Process(ctx, raw, fetchedAt, true); err != nil {
		logger.Errorf("inbox snapshot %s skipped: %v", filepath.Base(path), err)
	}
}

// Process runs one payload through the engine and records the outcome. When archive is set the
// raw payload is written to the archive directory first, whatever the outcome.
func (s *RankService) Process(ctx context.Context, raw []byte, fetchedAt time.Time, archive bool) (pipeline.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := snapshot.Parse(raw, fetchedAt)
	var res pipeline.Result
	if err == nil {
		res, err = s.engine.Run(ctx, snap)
	} else {
		res = pipeline.Result{RunID: uuid.NewString(), AsOf: fetchedAt.UTC(), Miners: snapshot.MinerCount(raw)}
	}
	if archive && s.archive != nil {
		if path, aerr := s.archive.Save(ctx, raw, fetchedAt, res.RunID); aerr != nil {
			logger.Warnf("archive snapshot failed: %v", aerr)
		} else {
			logger.Debugf("snapshot archived to %s", path)
		}
	}
	s.metrics.Observe(res, err)
	s.recordRun(ctx, res, err)
	if err != nil {
		return res, err
	}

	s.state.Set(res)
	s.publish(ctx, res)
	return res, nil
}

func (s *RankService) recordRun(ctx context.Context, res pipeline.Result, runErr error) {
	if s.store == nil || res.RunID == "" {
		return
	}
	rec := &model.RunModel{
		RunID:      res.RunID,
		AsOf:       res.AsOf.UnixMilli(),
		Status:     model.RunStatus(pipeline.Outcome(res, runErr)),
		Miners:     res.Miners,
		Ranked:     len(res.Ranked),
		Rejected:   len(res.Rejected),
		DurationMs: res.Duration.Milliseconds(),
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	} else {
		ranked, err := json.Marshal(res.Ranked)
		if err != nil {
			logger.Warnf("encode ranked miners failed: %v", err)
		}
		signals, err := json.Marshal(res.Signals)
		if err != nil {
			logger.Warnf("encode asset signals failed: %v", err)
		}
		rec.RankedJSON = datatypes.JSON(ranked)
		rec.SignalsJSON = datatypes.JSON(signals)
	}
	err := store.WithTx(ctx, s.store, func(uow store.UnitOfWork) error {
		return uow.Runs().Save(ctx, rec)
	})
	if err != nil {
		logger.Warnf("record run %s failed: %v", res.RunID, err)
	}
}

// publish sends the depth changes since the last confirmed run and confirms them once delivered.
func (s *RankService) publish(ctx context.Context, res pipeline.Result) {
	if s.tracker == nil {
		return
	}
	changes, err := s.tracker.Pending(ctx, res.Depths)
	if err != nil {
		logger.Warnf("load confirmed depths failed: %v", err)
		return
	}
	if len(changes) == 0 {
		logger.Debugf("run %s: depths unchanged", res.RunID)
		return
	}
	msg := notify.Digest(res, changes).RenderMarkdown()
	if err := s.notifier.SendText(ctx, msg); err != nil {
		logger.Warnf("send depth digest failed, changes stay pending: %v", err)
		return
	}
	if err := s.tracker.Confirm(ctx, changes, res.AsOf); err != nil {
		logger.Warnf("confirm depths failed: %v", err)
	}
}

// Rank runs one payload through the engine without archiving, recording or notifying. The
// miner-count guard only applies when guarded is set, so ad-hoc runs leave the stored count alone.
func (s *RankService) Rank(ctx context.Context, raw []byte, fetchedAt time.Time, guarded bool) (pipeline.Result, error) {
	snap, err := snapshot.Parse(raw, fetchedAt)
	if err != nil {
		return pipeline.Result{}, err
	}
	engine := s.engine
	if !guarded {
		engine = engine.WithoutGuard()
	}
	return engine.Run(ctx, snap)
}

// RankLatestArchive reruns the newest archived payload through Rank.
func (s *RankService) RankLatestArchive(ctx context.Context, guarded bool) (pipeline.Result, error) {
	if s.archive == nil {
		return pipeline.Result{}, errors.New("archive is not configured")
	}
	raw, fetchedAt, err := s.archive.Latest(ctx)
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("load latest archive: %w", err)
	}
	return s.Rank(ctx, raw, fetchedAt, guarded)
}
