// Package render formats a completed ownership report for the terminal or
// for files: ranked table, CSV, or an HTML chart.
package render

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/blametally/pkg/ownership"
)

// Output formats.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatChart = "chart"
)

// ErrUnknownFormat indicates an output format the renderer does not know.
var ErrUnknownFormat = errors.New("unknown output format")

// roundTo is the display precision of the elapsed time in the summary.
const roundTo = time.Millisecond

// Options controls rendering.
type Options struct {
	Format  string
	Top     int // 0 means all authors
	NoColor bool
}

// Ranking writes the ranked author table in the requested format.
func Ranking(w io.Writer, ranking []ownership.AuthorLines, opts Options) error {
	ranking = Truncate(ranking, opts.Top)

	switch opts.Format {
	case FormatTable, "":
		return renderTable(w, ranking)
	case FormatCSV:
		return renderCSV(w, ranking)
	case FormatChart:
		return renderChart(w, ranking)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}

// Truncate returns the top-K prefix of the ranking; k <= 0 keeps all rows.
func Truncate(ranking []ownership.AuthorLines, k int) []ownership.AuthorLines {
	if k <= 0 || k >= len(ranking) {
		return ranking
	}

	return ranking[:k]
}

func buildWriter(ranking []ownership.AuthorLines) table.Writer {
	writer := table.NewWriter()
	writer.AppendHeader(table.Row{"Author", "Lines"})

	for _, row := range ranking {
		writer.AppendRow(table.Row{row.Author, row.Lines})
	}

	return writer
}

func renderTable(w io.Writer, ranking []ownership.AuthorLines) error {
	writer := buildWriter(ranking)
	writer.SetOutputMirror(w)
	writer.SetStyle(table.StyleLight)
	writer.Render()

	return nil
}

func renderCSV(w io.Writer, ranking []ownership.AuthorLines) error {
	writer := buildWriter(ranking)
	writer.SetOutputMirror(w)
	writer.RenderCSV()

	return nil
}

// Summary writes the one-line run summary. Skips and drops are always
// printed so fail-soft and fail-open losses stay visible.
func Summary(w io.Writer, report *ownership.Report, noColor bool) {
	sprintf := fmt.Sprintf

	if !noColor {
		sprintf = color.New(color.Faint).Sprintf
	}

	line := sprintf("%s files, %d authors, %d skipped, %d dropped, %s",
		humanize.Comma(int64(report.Files)),
		len(report.Ranking),
		report.SkippedFiles,
		report.DroppedPartials,
		report.Elapsed.Round(roundTo),
	)

	fmt.Fprintln(w, line)
}
