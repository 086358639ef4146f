package config

import (
	"fmt"
	"math"
	"strings"

	"sigrank/internal/scheduler"
)

func validate(c *Config) error {
	if err := c.Source.validate(); err != nil {
		return err
	}
	if err := c.Scoring.validate(); err != nil {
		return err
	}
	if err := c.Assets.validate(); err != nil {
		return err
	}
	if err := c.Guard.validate(); err != nil {
		return err
	}
	if err := c.Schedule.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (s *SourceConfig) validate() error {
	if s.TimeoutSeconds <= 0 {
		return fmt.Errorf("source.timeout_seconds must be > 0")
	}
	if s.BreakerThreshold < 0 {
		return fmt.Errorf("source.breaker_threshold must be >= 0")
	}
	if s.BreakerCooldownSeconds < 0 {
		return fmt.Errorf("source.breaker_cooldown_seconds must be >= 0")
	}
	if s.Endpoint != "" && !strings.HasPrefix(s.Endpoint, "http://") && !strings.HasPrefix(s.Endpoint, "https://") {
		return fmt.Errorf("source.endpoint must be an http(s) url: %s", s.Endpoint)
	}
	return nil
}

func (s *ScoringConfig) validate() error {
	if s.MinTrades < 0 {
		return fmt.Errorf("scoring.min_trades must be >= 0")
	}
	if s.DrawdownFloor > 0 {
		return fmt.Errorf("scoring.drawdown_floor must be <= 0")
	}
	if s.MinProfitable < 0 || s.MinProfitable > 1 {
		return fmt.Errorf("scoring.min_profitable must be in [0,1]")
	}
	for name, v := range map[string]float64{
		"drawdown_exp":     s.DrawdownExp,
		"sharpe_exp":       s.SharpeExp,
		"profit_exp":       s.ProfitExp,
		"position_divisor": s.PositionDivisor,
	} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("scoring.%s must be a positive number", name)
		}
	}
	if s.TopN < 0 {
		return fmt.Errorf("scoring.top_n must be >= 0")
	}
	if s.Workers < 0 {
		return fmt.Errorf("scoring.workers must be >= 0")
	}
	if s.StaleAfterHours < 0 {
		return fmt.Errorf("scoring.stale_after_hours must be >= 0")
	}
	return nil
}

func (a *AssetsConfig) validate() error {
	if len(a.Mapping) == 0 && !a.IncludeUnmapped {
		return fmt.Errorf("assets.mapping requires at least one entry unless assets.include_unmapped is set")
	}
	if a.MaxDepth <= 0 {
		return fmt.Errorf("assets.max_depth must be > 0")
	}
	if a.Leverage.Crypto <= 0 || a.Leverage.Forex <= 0 || a.Leverage.Indices <= 0 {
		return fmt.Errorf("assets.leverage limits must be > 0")
	}
	for sym, cls := range a.Classes {
		switch cls {
		case "crypto", "forex", "fx", "indices", "index", "equities":
		default:
			return fmt.Errorf("assets.classes.%s has unknown class %q", sym, cls)
		}
	}
	return nil
}

func (g *GuardConfig) validate() error {
	if g.MinMiners < 0 {
		return fmt.Errorf("guard.min_miners must be >= 0")
	}
	if g.MaxDelta < 0 {
		return fmt.Errorf("guard.max_delta must be >= 0")
	}
	return nil
}

func (s *ScheduleConfig) validate() error {
	if _, ok := scheduler.ParseIntervalDuration(s.Interval); !ok {
		return fmt.Errorf("schedule.interval is invalid: %q", s.Interval)
	}
	if s.OffsetSeconds < 0 {
		return fmt.Errorf("schedule.offset_seconds must be >= 0")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if n.Telegram.BotToken == "" || n.Telegram.ChatID == "" {
			return fmt.Errorf("telegram notification enabled but missing bot_token or chat_id")
		}
	}
	return nil
}
