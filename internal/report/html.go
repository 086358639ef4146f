// Package report renders a ranking run as an echarts page, a PNG screenshot of that page, or
// plain text for the CLI.
package report

import (
	"bytes"
	"fmt"

	"sigrank/internal/pipeline"
	"sigrank/internal/pkg/text"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorLong          = "#34d399"
	colorShort         = "#f87171"
	colorScore         = "#3b82f6"
	colorWeight        = "#fbbf24"

	chartWidthPx  = 1400
	chartHeightPx = 480
)

// RenderHTML builds a page with the composite scores of the ranked miners and the depth of every
// reported asset.
func RenderHTML(res pipeline.Result) ([]byte, error) {
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(scoreChart(res), depthChart(res))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("render report page: %w", err)
	}
	return buf.Bytes(), nil
}

func initOpts() opts.Initialization {
	return opts.Initialization{
		Theme:           types.ThemeWesteros,
		Width:           fmt.Sprintf("%dpx", chartWidthPx),
		Height:          fmt.Sprintf("%dpx", chartHeightPx),
		BackgroundColor: colorBackground,
	}
}

func axisOpts() (opts.XAxis, opts.YAxis) {
	x := opts.XAxis{
		Type:      "category",
		AxisLabel: &opts.AxisLabel{Color: colorTextSecondary, Rotate: 30},
		SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
	}
	y := opts.YAxis{
		AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
		SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
	}
	return x, y
}

func scoreChart(res pipeline.Result) *charts.Bar {
	x, y := axisOpts()
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts()),
		charts.WithTitleOpts(opts.Title{
			Title:         "Miner composite scores",
			Subtitle:      fmt.Sprintf("%d ranked of %d · %s", len(res.Ranked), res.Miners, res.AsOf.Format("2006-01-02 15:04:05 MST")),
			Left:          "left",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(x),
		charts.WithYAxisOpts(y),
	)

	labels := make([]string, 0, len(res.Ranked))
	scores := make([]opts.BarData, 0, len(res.Ranked))
	weights := make([]opts.BarData, 0, len(res.Ranked))
	for _, rec := range res.Ranked {
		labels = append(labels, fmt.Sprintf("#%d %s", rec.Rank, text.ShortID(rec.MinerID)))
		scores = append(scores, opts.BarData{Value: round(rec.CompositeScore, 6)})
		weights = append(weights, opts.BarData{Value: round(rec.Weight, 6)})
	}
	bar.SetXAxis(labels)
	bar.AddSeries("Composite", scores, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorScore}))
	bar.AddSeries("Weight", weights, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorWeight}))
	return bar
}

func depthChart(res pipeline.Result) *charts.Bar {
	x, y := axisOpts()
	y.Min = -1
	y.Max = 1
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts()),
		charts.WithTitleOpts(opts.Title{
			Title:         "Asset depth",
			Subtitle:      fmt.Sprintf("run %s", res.RunID),
			Left:          "left",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(x),
		charts.WithYAxisOpts(y),
	)

	symbols := depthSymbols(res)
	data := make([]opts.BarData, 0, len(symbols))
	for _, sym := range symbols {
		depth := res.Depths[sym]
		color := colorLong
		if depth < 0 {
			color = colorShort
		}
		data = append(data, opts.BarData{
			Value:     round(depth, 6),
			ItemStyle: &opts.ItemStyle{Color: color, Opacity: opts.Float(0.85)},
		})
	}
	bar.SetXAxis(symbols)
	bar.AddSeries("Depth", data)
	return bar
}
