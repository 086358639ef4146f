package config

import (
	"os"
	"path/filepath"
	"testing"

	"sigrank/internal/pkg/symbol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	t.Setenv(apiKeyEnv, "")
	cfg := Default()
	require.NoError(t, validate(cfg))

	assert.Equal(t, 10, cfg.Scoring.MinTrades)
	assert.Equal(t, -0.25, cfg.Scoring.DrawdownFloor)
	assert.Equal(t, 0.5, cfg.Scoring.MinProfitable)
	assert.Equal(t, 6.0, cfg.Scoring.DrawdownExp)
	assert.Equal(t, 2.0, cfg.Scoring.SharpeExp)
	assert.Equal(t, 5.0, cfg.Scoring.ProfitExp)
	assert.Equal(t, 5.0, cfg.Scoring.PositionDivisor)
	assert.Equal(t, 10, cfg.Scoring.TopN)
	assert.Equal(t, 0.5, cfg.Assets.Leverage.Crypto)
	assert.Equal(t, 1.0, cfg.Assets.MaxDepth)
	assert.Equal(t, "BTCUSDT", cfg.Assets.Mapping["BTCUSD"])
	assert.True(t, cfg.Guard.Enabled)
	assert.Equal(t, 50, cfg.Guard.MinMiners)
	assert.Equal(t, 10, cfg.Guard.MaxDelta)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Assets.TrackedSymbols())
}

func TestLoadWithInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "assets.yaml", `
assets:
  mapping:
    btcusd: btcusdt
    EURUSD: EURUSD
  classes:
    eurusd: forex
  watch: [btcusdt, " eurusd ", BTCUSDT]
`)
	main := writeFile(t, dir, "sigrank.yaml", `
include:
  - assets.yaml
app:
  log_level: DEBUG
scoring:
  min_trades: 0
  top_n: 3
  drawdown_floor: -0.5
guard:
  enabled: false
`)

	cfg, err := Load(main)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 0, cfg.Scoring.MinTrades, "an explicit zero is kept")
	assert.Equal(t, 3, cfg.Scoring.TopN)
	assert.Equal(t, -0.5, cfg.Scoring.DrawdownFloor)
	assert.Equal(t, 6.0, cfg.Scoring.DrawdownExp)
	assert.False(t, cfg.Guard.Enabled)
	assert.Equal(t, map[string]string{"BTCUSD": "BTCUSDT", "EURUSD": "EURUSD"}, cfg.Assets.Mapping)
	assert.Equal(t, []string{"BTCUSDT", "EURUSD"}, cfg.Assets.Watch)

	table := cfg.Assets.Table()
	assert.Equal(t, symbol.ClassForex, table.Class("EURUSD"))
	assert.Equal(t, 5.0, cfg.Assets.Leverage.Ceiling(table.Class("EURUSD")))
	assert.Equal(t, 0.5, cfg.Assets.Leverage.Ceiling(table.Class("BTCUSDT")))
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")

	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad exponent":    "scoring:\n  sharpe_exp: -1\n",
		"bad profitable":  "scoring:\n  min_profitable: 1.5\n",
		"positive floor":  "scoring:\n  drawdown_floor: 0.1\n",
		"bad interval":    "schedule:\n  interval: soon\n",
		"telegram no key": "notify:\n  telegram:\n    enabled: true\n",
		"bad endpoint":    "source:\n  endpoint: ftp://example.com\n",
		"unknown class":   "assets:\n  classes:\n    XAUUSD: metals\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "sigrank.yaml", body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestAPIKeyFallsBackToEnv(t *testing.T) {
	t.Setenv(apiKeyEnv, "from-env")
	path := writeFile(t, t.TempDir(), "sigrank.yaml", "source:\n  endpoint: https://example.com/miners\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Source.APIKey)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.App.LogLevel)

	_, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
