package report

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/somnolab/sleepwin/pkg/summary"
)

// RenderNightChart writes an HTML bar chart of sleep and wear hours per
// night.
func RenderNightChart(path, title string, ns []summary.Night) error {
	x := make([]string, 0, len(ns))
	sleep := make([]opts.BarData, 0, len(ns))
	wear := make([]opts.BarData, 0, len(ns))
	for _, n := range ns {
		x = append(x, n.Start.Format("Jan 02"))
		sleep = append(sleep, opts.BarData{Value: round2(n.SleepHours)})
		wear = append(wear, opts.BarData{Value: round2(n.WearHours)})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     "1000px",
			Height:    "500px",
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "sleep and wear hours per night"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("sleep hours", sleep,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		).
		AddSeries("wear hours", wear)

	page := components.NewPage()
	page.AddCharts(bar)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart file: %w", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	return nil
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
