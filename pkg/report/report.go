// Package report renders training and evaluation results as standalone
// HTML pages of echarts.
package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/yourusername/td2048/pkg/engine"
)

func lineChart(title, yName string, xs []string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithInitializationOpts(opts.Initialization{Theme: "shine"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "games"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	)
	line.SetXAxis(xs)
	return line
}

// TrainingPage builds the charts for a training run: mean reward, mean
// and best max tile, and 2048 rate per session.
func TrainingPage(title string, stats []engine.SessionStats) *components.Page {
	xs := make([]string, len(stats))
	reward := make([]opts.LineData, len(stats))
	meanTile := make([]opts.LineData, len(stats))
	bestTile := make([]opts.LineData, len(stats))
	rate := make([]opts.LineData, len(stats))
	for i, s := range stats {
		xs[i] = fmt.Sprintf("%d", s.GamesPlayed)
		reward[i] = opts.LineData{Value: s.MeanReward}
		meanTile[i] = opts.LineData{Value: s.MeanMaxTile}
		bestTile[i] = opts.LineData{Value: s.BestTile}
		rate[i] = opts.LineData{Value: s.Rate2048 * 100}
	}

	rewards := lineChart(title+": mean reward", "score", xs)
	rewards.AddSeries("mean reward", reward)

	tiles := lineChart(title+": max tile", "tile", xs)
	tiles.AddSeries("mean max tile", meanTile)
	tiles.AddSeries("best max tile", bestTile)

	rates := lineChart(title+": 2048 rate", "%", xs)
	rates.AddSeries("2048 rate", rate)

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(rewards, tiles, rates)
	return page
}

// WriteTraining renders the training page to w.
func WriteTraining(w io.Writer, title string, stats []engine.SessionStats) error {
	if len(stats) == 0 {
		return fmt.Errorf("no sessions to plot")
	}
	if err := TrainingPage(title, stats).Render(w); err != nil {
		return fmt.Errorf("rendering training report: %w", err)
	}
	return nil
}

// EvaluationPage builds a bar chart of the max-tile distribution.
func EvaluationPage(title string, res *engine.EvalResult) *components.Page {
	xs := make([]string, len(res.Tiles))
	games := make([]opts.BarData, len(res.Tiles))
	for i, tc := range res.Tiles {
		xs[i] = fmt.Sprintf("%d", tc.Tile)
		games[i] = opts.BarData{Value: tc.Games}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: title,
			Subtitle: fmt.Sprintf("%d games, mean score %.0f ± %.0f, 2048 rate %.1f%%",
				res.Games, res.MeanScore, res.ScoreCI, res.Rate2048*100),
		}),
		charts.WithInitializationOpts(opts.Initialization{Theme: "shine"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "max tile"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "games"}),
	)
	bar.SetXAxis(xs).AddSeries("games", games)

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(bar)
	return page
}

// WriteEvaluation renders the evaluation page to w.
func WriteEvaluation(w io.Writer, title string, res *engine.EvalResult) error {
	if res == nil || res.Games == 0 {
		return fmt.Errorf("no games to plot")
	}
	if err := EvaluationPage(title, res).Render(w); err != nil {
		return fmt.Errorf("rendering evaluation report: %w", err)
	}
	return nil
}
