package loadgen

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Render writes the run summary and per-board verdicts as tables.
func Render(w io.Writer, stats *Stats, report *Report) {
	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.SetTitle("Load run")
	summary.AppendHeader(table.Row{"Generated", "Submitted", "Accepted", "Duplicates", "Failed", "Duration", "Req/s"})
	var rps float64
	if stats.Duration > 0 {
		rps = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	summary.AppendRow(table.Row{
		stats.Generated, stats.Submitted, stats.Accepted, stats.Duplicates, stats.Failed,
		stats.Duration.Round(time.Millisecond).String(), fmt.Sprintf("%.1f", rps),
	})
	summary.SetStyle(table.StyleLight)
	summary.Render()

	boards := table.NewWriter()
	boards.SetOutputMirror(w)
	boards.SetTitle("Boards")
	boards.AppendHeader(table.Row{"Board", "Served", "Expected", "Status", "Detail"})
	for _, b := range report.Boards {
		boards.AppendRow(table.Row{b.Board, b.Served, b.Expected, b.Status, b.Detail})
	}
	boards.AppendFooter(table.Row{"", "", "", "mismatches", report.Mismatches()})
	boards.SortBy([]table.SortBy{{Name: "Status", Mode: table.Asc}, {Name: "Board", Mode: table.Asc}})
	boards.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Served", Align: text.AlignRight},
		{Name: "Expected", Align: text.AlignRight},
	})
	boards.SetStyle(table.StyleLight)
	boards.Render()
}
