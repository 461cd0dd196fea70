package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/blametally/pkg/ownership"
)

const (
	chartWidth  = "900px"
	chartHeight = "500px"

	// chartMaxAuthors bounds the bar count so the chart stays readable on
	// repositories with very long tails.
	chartMaxAuthors = 30
)

// renderChart writes a standalone HTML page with a bar chart of the top
// authors by owned lines.
func renderChart(w io.Writer, ranking []ownership.AuthorLines) error {
	ranking = Truncate(ranking, chartMaxAuthors)

	authors := make([]string, len(ranking))
	values := make([]opts.BarData, len(ranking))

	for i, row := range ranking {
		authors[i] = row.Author
		values[i] = opts.BarData{Value: row.Lines}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Line ownership by author",
			Subtitle: "lines still attributed at HEAD",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Width:  chartWidth,
			Height: chartHeight,
		}),
	)

	bar.SetXAxis(authors).AddSeries("lines", values)

	err := bar.Render(w)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}
