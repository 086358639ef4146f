package app

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"sigrank/internal/config"
)

type StartupSummary struct {
	Source  SourceSummary
	Scoring config.ScoringConfig
	Assets  AssetSummary
	Guard   config.GuardConfig
	HTTP    string
}

type SourceSummary struct {
	Endpoint string
	Polling  bool
	Interval string
	Inbox    string
	Archive  string
}

type AssetSummary struct {
	Mapping  map[string]string
	Tracked  []string
	Watch    []string
	MaxDepth float64
	Leverage config.LeverageConfig
}

func newStartupSummary(cfg *config.Config, polling, watching bool) *StartupSummary {
	s := &StartupSummary{
		Source: SourceSummary{
			Endpoint: cfg.Source.Endpoint,
			Polling:  polling,
			Interval: cfg.Schedule.Interval,
		},
		Scoring: cfg.Scoring,
		Assets: AssetSummary{
			Mapping:  cfg.Assets.Mapping,
			Tracked:  cfg.Assets.TrackedSymbols(),
			Watch:    cfg.Assets.Watch,
			MaxDepth: cfg.Assets.MaxDepth,
			Leverage: cfg.Assets.Leverage,
		},
		Guard: cfg.Guard,
		HTTP:  cfg.App.HTTPAddr,
	}
	if watching {
		s.Source.Inbox = cfg.Source.InboxDir
	}
	if cfg.Source.Archive {
		s.Source.Archive = cfg.Source.ArchiveDir
	}
	return s
}

func (s *StartupSummary) Print() {
	s.Fprint(os.Stdout)
}

func (s *StartupSummary) Fprint(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%*s\n", 40+len("STARTUP SUMMARY")/2, "STARTUP SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintln(w, "[SOURCE]")
	fmt.Fprintf(w, "  endpoint: %s\n", orDash(s.Source.Endpoint))
	if s.Source.Polling {
		fmt.Fprintf(w, "  polling every %s\n", s.Source.Interval)
	}
	fmt.Fprintf(w, "  inbox: %s\n", orDash(s.Source.Inbox))
	fmt.Fprintf(w, "  archive: %s\n", orDash(s.Source.Archive))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[SCORING]")
	fmt.Fprintf(w, "  min trades %d, drawdown floor %.2f, min profitable %.2f, min return %.2f\n",
		s.Scoring.MinTrades, s.Scoring.DrawdownFloor, s.Scoring.MinProfitable, s.Scoring.MinTotalReturn)
	fmt.Fprintf(w, "  exponents dd=%.1f sharpe=%.1f profit=%.1f, position divisor %.1f, top %d\n",
		s.Scoring.DrawdownExp, s.Scoring.SharpeExp, s.Scoring.ProfitExp, s.Scoring.PositionDivisor, s.Scoring.TopN)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[ASSETS]")
	keys := make([]string, 0, len(s.Assets.Mapping))
	for k := range s.Assets.Mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s -> %s\n", k, s.Assets.Mapping[k])
	}
	fmt.Fprintf(w, "  tracked: %s\n", formatList(s.Assets.Tracked))
	fmt.Fprintf(w, "  watch: %s\n", formatList(s.Assets.Watch))
	fmt.Fprintf(w, "  max depth %.2f, leverage crypto=%.2f forex=%.2f indices=%.2f\n",
		s.Assets.MaxDepth, s.Assets.Leverage.Crypto, s.Assets.Leverage.Forex, s.Assets.Leverage.Indices)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[GUARD]")
	if s.Guard.Enabled {
		fmt.Fprintf(w, "  min miners %d, max delta %d\n", s.Guard.MinMiners, s.Guard.MaxDelta)
	} else {
		fmt.Fprintln(w, "  disabled")
	}
	fmt.Fprintf(w, "\nhttp: %s\n", orDash(s.HTTP))
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
