package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"sigrank/internal/pipeline"
	"sigrank/internal/pkg/text"
	"sigrank/internal/signal"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// ParseFormat accepts json, yaml (or yml) and table, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Write prints res in the given format. Depths and scores are rounded to 6 decimal places.
func Write(w io.Writer, res pipeline.Result, format Format) error {
	out := Rounded(res)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable, "":
		return writeTable(w, out)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// Rounded returns a copy of res with every float rounded for display.
func Rounded(res pipeline.Result) pipeline.Result {
	out := res
	out.Depths = make(map[string]float64, len(res.Depths))
	for sym, d := range res.Depths {
		out.Depths[sym] = round(d, 6)
	}
	out.Signals = make([]signal.AssetSignal, len(res.Signals))
	for i, s := range res.Signals {
		s.Depth = round(s.Depth, 6)
		out.Signals[i] = s
	}
	out.Ranked = make([]signal.MinerScoreRecord, len(res.Ranked))
	for i, rec := range res.Ranked {
		rec.MaxDrawdown = round(rec.MaxDrawdown, 6)
		rec.SharpeRatio = round(rec.SharpeRatio, 6)
		rec.TotalReturn = round(rec.TotalReturn, 6)
		rec.PctProfitable = round(rec.PctProfitable, 6)
		rec.ConsistencyScore = round(rec.ConsistencyScore, 6)
		rec.CompositeScore = round(rec.CompositeScore, 6)
		rec.Weight = round(rec.Weight, 6)
		out.Ranked[i] = rec
	}
	return out
}

func writeTable(w io.Writer, res pipeline.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run %s\tas of %s\tminers %d\tranked %d\tstale %d\n",
		res.RunID, res.AsOf.Format("2006-01-02 15:04:05Z07:00"), res.Miners, len(res.Ranked), res.Stale)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "RANK\tMINER\tSCORE\tWEIGHT\tRETURN\tDRAWDOWN\tSHARPE\tPOSITIONS")
	for _, rec := range res.Ranked {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			rec.Rank, text.ShortID(rec.MinerID),
			fixed(rec.CompositeScore), fixed(rec.Weight), fixed(rec.TotalReturn),
			fixed(rec.MaxDrawdown), fixed(rec.SharpeRatio), rec.PositionCount)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "SYMBOL\tDEPTH")
	for _, sym := range depthSymbols(res) {
		fmt.Fprintf(tw, "%s\t%s\n", sym, fixed(res.Depths[sym]))
	}
	if len(res.Rejected) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "rejected %d\n", len(res.Rejected))
		for _, reason := range res.Rejected {
			fmt.Fprintf(tw, "  %s\n", reason)
		}
	}
	return tw.Flush()
}

func depthSymbols(res pipeline.Result) []string {
	out := make([]string, 0, len(res.Depths))
	for sym := range res.Depths {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func fixed(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprint(v)
	}
	return decimal.NewFromFloat(v).StringFixed(6)
}
