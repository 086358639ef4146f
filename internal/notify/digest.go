package notify

import (
	"fmt"

	"sigrank/internal/pipeline"
	"sigrank/internal/pkg/text"
)

const digestMiners = 5

// Digest summarises a run and the depth changes it caused.
func Digest(res pipeline.Result, changes []Change) StructuredMessage {
	msg := StructuredMessage{
		Icon:      "📊",
		Title:     "Miner ranking update",
		Timestamp: res.AsOf,
		Footer:    fmt.Sprintf("run %s · %d miners · %d ranked", res.RunID, res.Miners, len(res.Ranked)),
	}
	if res.Empty {
		msg.Icon = "⚠️"
		msg.Sections = append(msg.Sections, MessageSection{
			Title: "Ranking",
			Lines: []string{"no miner passed filtering, all depths are 0"},
		})
	}
	var top []string
	for i, rec := range res.Ranked {
		if i == digestMiners {
			break
		}
		top = append(top, fmt.Sprintf("#%d %s score=%.3f weight=%.3f ret=%.2f%%",
			rec.Rank, text.ShortID(rec.MinerID), rec.CompositeScore, rec.Weight, rec.TotalReturn*100))
	}
	msg.Sections = append(msg.Sections, MessageSection{Title: "Top miners", Lines: top})

	lines := make([]string, 0, len(changes))
	for _, c := range changes {
		lines = append(lines, fmt.Sprintf("%s %+.4f -> %+.4f (%+.4f)", c.Symbol, c.Previous, c.Current, c.Delta()))
	}
	msg.Sections = append(msg.Sections, MessageSection{Title: "Depth changes", Lines: lines})
	return msg
}
