package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/logrusorgru/aurora"
	"github.com/mattn/go-runewidth"
)

var episodeColumns = []string{"episode", "steps", "reward", "scaled_reward", "return", "cum_max", "rolling_mean"}

// WriteEpisodeTable writes the episode table as aligned text. Colors only
// affect the header.
func WriteEpisodeTable(w io.Writer, rep *Report, colors bool) error {
	au := aurora.NewAurora(colors)

	rows := make([][]string, 0, len(rep.Episodes))
	for _, e := range rep.Episodes {
		rows = append(rows, []string{
			strconv.Itoa(e.Episode),
			strconv.Itoa(e.Steps),
			formatFloat(e.Reward),
			formatFloat(e.ScaledReward),
			formatFloat(e.DiscountedReturn),
			formatFloat(e.CumMaxReward),
			formatFloat(e.RollingMean),
		})
	}

	widths := make([]int, len(episodeColumns))
	for i, h := range episodeColumns {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	header := make([]string, len(episodeColumns))
	for i, h := range episodeColumns {
		header[i] = au.Cyan(runewidth.FillLeft(h, widths[i])).String()
	}
	if _, err := fmt.Fprintln(w, strings.Join(header, "  ")); err != nil {
		return err
	}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = runewidth.FillLeft(cell, widths[i])
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "  ")); err != nil {
			return err
		}
	}
	return nil
}

// WriteStats writes one line per statistic series, sorted by name.
func WriteStats(w io.Writer, rep *Report, colors bool) error {
	au := aurora.NewAurora(colors)
	names := make([]string, 0, len(rep.Stats))
	for name := range rep.Stats {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := rep.Stats[name]
		last := "-"
		if n := len(s.Values); n > 0 {
			last = formatFloat(s.Values[n-1])
		}
		if _, err := fmt.Fprintf(w, "%s n=%d last=%s\n", au.Green(name).String(), len(s.Values), last); err != nil {
			return err
		}
	}
	return nil
}

// RenderChart writes an HTML line chart of the per-episode reward, its
// running maximum and rolling mean.
func RenderChart(w io.Writer, rep *Report, title string) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("%d episodes, %d steps", len(rep.Episodes), len(rep.Steps)),
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	episodes := make([]string, 0, len(rep.Episodes))
	reward := make([]opts.LineData, 0, len(rep.Episodes))
	cumMax := make([]opts.LineData, 0, len(rep.Episodes))
	rolling := make([]opts.LineData, 0, len(rep.Episodes))
	for _, e := range rep.Episodes {
		episodes = append(episodes, strconv.Itoa(e.Episode))
		reward = append(reward, opts.LineData{Value: e.Reward})
		cumMax = append(cumMax, opts.LineData{Value: e.CumMaxReward})
		rolling = append(rolling, opts.LineData{Value: e.RollingMean})
	}

	line.SetXAxis(episodes).
		AddSeries("reward", reward).
		AddSeries("cum_max_reward", cumMax).
		AddSeries("rolling_mean", rolling)
	return line.Render(w)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
