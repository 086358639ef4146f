package config

import (
	"strings"
	"time"

	"sigrank/internal/pkg/symbol"
)

// Config is the root configuration. It is loaded once at startup and never reloaded.
type Config struct {
	App      AppConfig      `toml:"app"`
	Source   SourceConfig   `toml:"source"`
	Store    StoreConfig    `toml:"store"`
	Scoring  ScoringConfig  `toml:"scoring"`
	Assets   AssetsConfig   `toml:"assets"`
	Guard    GuardConfig    `toml:"guard"`
	Schedule ScheduleConfig `toml:"schedule"`
	Notify   NotifyConfig   `toml:"notify"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	HTTPAddr string `toml:"http_addr"`
}

// SourceConfig describes where miner snapshots come from and where raw payloads are archived.
type SourceConfig struct {
	Endpoint               string `toml:"endpoint"`
	APIKey                 string `toml:"api_key"`
	TimeoutSeconds         int    `toml:"timeout_seconds"`
	InboxDir               string `toml:"inbox_dir"`
	ArchiveDir             string `toml:"archive_dir"`
	Archive                bool   `toml:"archive"`
	BreakerThreshold       int    `toml:"breaker_threshold"`
	BreakerCooldownSeconds int    `toml:"breaker_cooldown_seconds"`
}

func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func (s SourceConfig) BreakerCooldown() time.Duration {
	return time.Duration(s.BreakerCooldownSeconds) * time.Second
}

type StoreConfig struct {
	Path      string `toml:"path"`
	GuardPath string `toml:"guard_path"`
}

// ScoringConfig holds the filtering thresholds and composite score tunables.
type ScoringConfig struct {
	MinTrades       int     `toml:"min_trades"`
	DrawdownFloor   float64 `toml:"drawdown_floor"`
	MinProfitable   float64 `toml:"min_profitable"`
	MinTotalReturn  float64 `toml:"min_total_return"`
	DrawdownExp     float64 `toml:"drawdown_exp"`
	SharpeExp       float64 `toml:"sharpe_exp"`
	ProfitExp       float64 `toml:"profit_exp"`
	PositionDivisor float64 `toml:"position_divisor"`
	TopN            int     `toml:"top_n"`
	Workers         int     `toml:"workers"`
	StaleAfterHours int     `toml:"stale_after_hours"`
}

func (s ScoringConfig) StaleAfter() time.Duration {
	return time.Duration(s.StaleAfterHours) * time.Hour
}

// AssetsConfig defines the canonical asset table and the depth normalisation limits.
type AssetsConfig struct {
	Mapping         map[string]string `toml:"mapping"`
	Classes         map[string]string `toml:"classes"`
	IncludeUnmapped bool              `toml:"include_unmapped"`
	Watch           []string          `toml:"watch"`
	Tracked         []string          `toml:"tracked"`
	MaxDepth        float64           `toml:"max_depth"`
	Leverage        LeverageConfig    `toml:"leverage"`
}

// Table builds the canonical lookup table.
func (a AssetsConfig) Table() symbol.Table {
	return symbol.NewTable(a.Mapping, a.Classes)
}

// TrackedSymbols returns the assets that always get a depth value, defaulting to every mapped target.
func (a AssetsConfig) TrackedSymbols() []string {
	if len(a.Tracked) > 0 {
		return symbol.NormalizeList(a.Tracked)
	}
	return a.Table().Targets()
}

// LeverageConfig is the per-class leverage ceiling used to normalise net exposure.
type LeverageConfig struct {
	Crypto  float64 `toml:"crypto"`
	Forex   float64 `toml:"forex"`
	Indices float64 `toml:"indices"`
}

// Ceiling returns the limit for class, falling back to the crypto limit.
func (l LeverageConfig) Ceiling(class symbol.Class) float64 {
	switch class {
	case symbol.ClassForex:
		if l.Forex > 0 {
			return l.Forex
		}
	case symbol.ClassIndex:
		if l.Indices > 0 {
			return l.Indices
		}
	}
	return l.Crypto
}

// GuardConfig configures the miner-count sanity check.
type GuardConfig struct {
	Enabled   bool `toml:"enabled"`
	MinMiners int  `toml:"min_miners"`
	MaxDelta  int  `toml:"max_delta"`
}

type ScheduleConfig struct {
	Interval       string `toml:"interval"`
	OffsetSeconds  int    `toml:"offset_seconds"`
	RunImmediately bool   `toml:"run_immediately"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// keySet tracks which dotted keys were explicitly set in the config files.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
