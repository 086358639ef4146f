package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sigrank/internal/config"
	"sigrank/internal/guard"
	"sigrank/internal/signal"
	"sigrank/internal/store"
	"sigrank/internal/store/model"
	"sigrank/internal/store/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const payload = `{
  "m1": {
    "all_time_returns": 1.1,
    "positions": [
      {"trade_pair": ["BTCUSD", "BTC/USD"], "open_ms": 1000, "close_ms": 2000, "is_closed_position": true,
       "return_at_close": 1.05,
       "orders": [{"order_type": "LONG", "leverage": 0.2, "price": 100, "processed_ms": 1000},
                  {"order_type": "FLAT", "leverage": 0, "price": 105, "processed_ms": 2000}]},
      {"trade_pair": ["BTCUSD", "BTC/USD"], "open_ms": 3000, "is_closed_position": false,
       "current_return": 1.0, "net_leverage": 0.25,
       "orders": [{"order_type": "LONG", "leverage": 0.25, "price": 110, "processed_ms": 3000}]}
    ]
  }
}`

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendText(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

type staticFetcher struct {
	raw []byte
	at  time.Time
	err error
}

func (f staticFetcher) Fetch(context.Context) ([]byte, time.Time, error) {
	return f.raw, f.at, f.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.App.HTTPAddr = "127.0.0.1:0"
	cfg.Source.InboxDir = ""
	cfg.Source.ArchiveDir = filepath.Join(dir, "archive")
	cfg.Store.Path = filepath.Join(dir, "sigrank.db")
	cfg.Store.GuardPath = filepath.Join(dir, "guard.db")
	cfg.Scoring.MinTrades = 0
	cfg.Scoring.MinProfitable = 0
	cfg.Scoring.DrawdownFloor = -1
	cfg.Guard.Enabled = false
	return cfg
}

func openStore(t *testing.T) store.Store {
	t.Helper()
	db, err := sqlite.NewSqliteStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func listRuns(t *testing.T, st store.Store) []model.RunModel {
	t.Helper()
	var runs []model.RunModel
	require.NoError(t, store.WithTx(context.Background(), st, func(uow store.UnitOfWork) error {
		list, err := uow.Runs().List(context.Background(), 10)
		runs = list
		return err
	}))
	return runs
}

func TestProcessRecordsNotifiesAndConfirms(t *testing.T) {
	st := openStore(t)
	n := new(mockNotifier)
	n.On("SendText", mock.Anything, mock.MatchedBy(func(s string) bool {
		return bytes.Contains([]byte(s), []byte("BTCUSDT"))
	})).Return(nil).Once()

	a, err := NewApp(testConfig(t), WithStore(st), WithNotifier(n))
	require.NoError(t, err)
	defer a.Close()

	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	res, err := a.Service().Process(context.Background(), []byte(payload), at, true)
	require.NoError(t, err)
	require.Len(t, res.Ranked, 1)
	assert.Greater(t, res.Depths["BTCUSDT"], 0.0)
	assert.Contains(t, res.Depths, "ETHUSDT")

	latest, ok := a.Service().State().Get()
	require.True(t, ok)
	assert.Equal(t, res.RunID, latest.RunID)

	runs := listRuns(t, st)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusOK, runs[0].Status)
	assert.Contains(t, string(runs[0].SignalsJSON), "BTCUSDT")

	files, err := os.ReadDir(a.Archive().Dir())
	require.NoError(t, err)
	assert.Len(t, files, 1)

	// the same snapshot again changes nothing, so nothing is sent
	_, err = a.Service().Process(context.Background(), []byte(payload), at.Add(time.Minute), false)
	require.NoError(t, err)
	n.AssertExpectations(t)
	assert.Len(t, listRuns(t, st), 2)
}

func TestProcessKeepsChangesPendingWhenSendFails(t *testing.T) {
	st := openStore(t)
	n := new(mockNotifier)
	n.On("SendText", mock.Anything, mock.Anything).Return(errors.New("telegram down")).Once()
	n.On("SendText", mock.Anything, mock.Anything).Return(nil).Once()

	a, err := NewApp(testConfig(t), WithStore(st), WithNotifier(n))
	require.NoError(t, err)
	defer a.Close()

	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err = a.Service().Process(context.Background(), []byte(payload), at, false)
	require.NoError(t, err)
	_, err = a.Service().Process(context.Background(), []byte(payload), at, false)
	require.NoError(t, err)
	n.AssertNumberOfCalls(t, "SendText", 2)
}

func TestProcessAnomalySkipsCycle(t *testing.T) {
	st := openStore(t)
	cfg := testConfig(t)
	cfg.Guard.Enabled = true
	n := new(mockNotifier)

	a, err := NewApp(cfg, WithStore(st), WithNotifier(n), WithCountStore(guard.NewMemoryStore()))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Service().Process(context.Background(), []byte(payload), time.Now(), false)
	var anomaly *signal.AnomalyError
	require.ErrorAs(t, err, &anomaly)

	_, ok := a.Service().State().Get()
	assert.False(t, ok)
	runs := listRuns(t, st)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusAnomaly, runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)
	n.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything)
}

func TestProcessRejectsMalformedPayload(t *testing.T) {
	st := openStore(t)
	a, err := NewApp(testConfig(t), WithStore(st), WithNotifier(new(mockNotifier)))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Service().Process(context.Background(), []byte(`[]`), time.Now(), false)
	require.Error(t, err)
	runs := listRuns(t, st)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusRejected, runs[0].Status)
}

func TestTickUsesFetcher(t *testing.T) {
	st := openStore(t)
	n := new(mockNotifier)
	n.On("SendText", mock.Anything, mock.Anything).Return(nil)
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	a, err := NewApp(testConfig(t), WithStore(st), WithNotifier(n), WithFetcher(staticFetcher{raw: []byte(payload), at: at}))
	require.NoError(t, err)
	defer a.Close()

	a.Service().Tick(context.Background())
	res, ok := a.Service().State().Get()
	require.True(t, ok)
	assert.True(t, at.Equal(res.AsOf))

	res, err = a.Service().RankLatestArchive(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, at.Equal(res.AsOf))
}

func TestRankLatestArchiveLeavesGuardCountUnlessGuarded(t *testing.T) {
	cfg := testConfig(t)
	cfg.Guard.Enabled = true
	cfg.Guard.MinMiners = 0
	counts := guard.NewMemoryStore()
	st := openStore(t)
	n := new(mockNotifier)

	a, err := NewApp(cfg, WithStore(st), WithNotifier(n), WithCountStore(counts))
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err = a.Archive().Save(ctx, []byte(payload), at, "seed")
	require.NoError(t, err)

	res, err := a.Service().RankLatestArchive(ctx, false)
	require.NoError(t, err)
	assert.Len(t, res.Ranked, 1)
	_, ok, err := counts.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "an unguarded replay must not store a count")

	_, ok = a.Service().State().Get()
	assert.False(t, ok, "a replay does not publish state")
	assert.Empty(t, listRuns(t, st))

	_, err = a.Service().RankLatestArchive(ctx, true)
	require.NoError(t, err)
	count, ok, err := counts.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, count)
	n.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything)
}

func TestTickFetchErrorLeavesState(t *testing.T) {
	a, err := NewApp(testConfig(t), WithStore(openStore(t)), WithNotifier(new(mockNotifier)),
		WithFetcher(staticFetcher{err: errors.New("boom")}))
	require.NoError(t, err)
	defer a.Close()

	a.Service().Tick(context.Background())
	_, ok := a.Service().State().Get()
	assert.False(t, ok)
}

func TestStartupSummary(t *testing.T) {
	a, err := NewApp(testConfig(t), WithStore(openStore(t)))
	require.NoError(t, err)
	defer a.Close()

	var buf bytes.Buffer
	a.Summary.Fprint(&buf)
	assert.Contains(t, buf.String(), "BTCUSD -> BTCUSDT")
	assert.Contains(t, buf.String(), "disabled")
}
