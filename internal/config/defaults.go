package config

import (
	"os"
	"strings"
)

const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppHTTPAddr      = ":9992"
	defaultSourceTimeout    = 30
	defaultSourceInbox      = "data/inbox"
	defaultSourceArchive    = "data/raw_signals"
	defaultBreakerThreshold = 3
	defaultBreakerCooldown  = 300
	defaultStorePath        = "data/sigrank.db"
	defaultGuardPath        = "data/guard.db"
	defaultMinTrades        = 10
	defaultDrawdownFloor    = -0.25
	defaultMinProfitable    = 0.5
	defaultMinTotalReturn   = 0.0
	defaultDrawdownExp      = 6
	defaultSharpeExp        = 2
	defaultProfitExp        = 5
	defaultPositionDivisor  = 5
	defaultTopN             = 10
	defaultWorkers          = 4
	defaultMaxDepth         = 1.0
	defaultLeverageCrypto   = 0.5
	defaultLeverageForex    = 5
	defaultLeverageIndices  = 5
	defaultGuardMinMiners   = 50
	defaultGuardMaxDelta    = 10
	defaultScheduleInterval = "5m"
	defaultScheduleOffset   = 10

	apiKeyEnv = "SIGRANK_API_KEY"
)

var defaultAssetMapping = map[string]string{
	"BTCUSD": "BTCUSDT",
	"ETHUSD": "ETHUSDT",
}

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Source.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Scoring.applyDefaults(keys)
	c.Assets.applyDefaults(keys)
	c.Guard.applyDefaults(keys)
	c.Schedule.applyDefaults(keys)
}

// Default returns a configuration with every default applied, as if loaded from an empty file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults(make(keySet))
	return &cfg
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (s *SourceConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("source.inbox_dir", &s.InboxDir, defaultSourceInbox),
		stringFieldDefault("source.archive_dir", &s.ArchiveDir, defaultSourceArchive),
		boolFieldDefault("source.archive", &s.Archive, true),
		intFieldDefault("source.timeout_seconds", &s.TimeoutSeconds, defaultSourceTimeout),
		intFieldDefault("source.breaker_threshold", &s.BreakerThreshold, defaultBreakerThreshold),
		intFieldDefault("source.breaker_cooldown_seconds", &s.BreakerCooldownSeconds, defaultBreakerCooldown),
	)
	s.Endpoint = strings.TrimSpace(s.Endpoint)
	if strings.TrimSpace(s.APIKey) == "" {
		s.APIKey = strings.TrimSpace(os.Getenv(apiKeyEnv))
	}
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.path", &s.Path, defaultStorePath),
		stringFieldDefault("store.guard_path", &s.GuardPath, defaultGuardPath),
	)
}

func (s *ScoringConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("scoring.min_trades", &s.MinTrades, defaultMinTrades),
		floatFieldDefault("scoring.drawdown_floor", &s.DrawdownFloor, defaultDrawdownFloor),
		floatFieldDefault("scoring.min_profitable", &s.MinProfitable, defaultMinProfitable),
		floatFieldDefault("scoring.min_total_return", &s.MinTotalReturn, defaultMinTotalReturn),
		floatFieldDefault("scoring.drawdown_exp", &s.DrawdownExp, defaultDrawdownExp),
		floatFieldDefault("scoring.sharpe_exp", &s.SharpeExp, defaultSharpeExp),
		floatFieldDefault("scoring.profit_exp", &s.ProfitExp, defaultProfitExp),
		floatFieldDefault("scoring.position_divisor", &s.PositionDivisor, defaultPositionDivisor),
		intFieldDefault("scoring.top_n", &s.TopN, defaultTopN),
		intFieldDefault("scoring.workers", &s.Workers, defaultWorkers),
	)
}

func (a *AssetsConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	if len(a.Mapping) == 0 && !keys.isSet("assets.mapping") {
		a.Mapping = make(map[string]string, len(defaultAssetMapping))
		for k, v := range defaultAssetMapping {
			a.Mapping[k] = v
		}
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "assets.max_depth",
			need:  func() bool { return a.MaxDepth <= 0 },
			apply: func() { a.MaxDepth = defaultMaxDepth },
		},
		fieldDefault{
			key:   "assets.leverage.crypto",
			need:  func() bool { return a.Leverage.Crypto <= 0 },
			apply: func() { a.Leverage.Crypto = defaultLeverageCrypto },
		},
		fieldDefault{
			key:   "assets.leverage.forex",
			need:  func() bool { return a.Leverage.Forex <= 0 },
			apply: func() { a.Leverage.Forex = defaultLeverageForex },
		},
		fieldDefault{
			key:   "assets.leverage.indices",
			need:  func() bool { return a.Leverage.Indices <= 0 },
			apply: func() { a.Leverage.Indices = defaultLeverageIndices },
		},
	)
}

func (g *GuardConfig) applyDefaults(keys keySet) {
	if g == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("guard.enabled", &g.Enabled, true),
		intFieldDefault("guard.min_miners", &g.MinMiners, defaultGuardMinMiners),
		intFieldDefault("guard.max_delta", &g.MaxDelta, defaultGuardMaxDelta),
	)
}

func (s *ScheduleConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("schedule.interval", &s.Interval, defaultScheduleInterval),
		intFieldDefault("schedule.offset_seconds", &s.OffsetSeconds, defaultScheduleOffset),
		boolFieldDefault("schedule.run_immediately", &s.RunImmediately, true),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

// intFieldDefault applies def whenever key was not set explicitly, so an explicit 0 survives.
func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
