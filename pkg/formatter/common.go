// Package formatter renders sweep results as terminal tables.
package formatter

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// MaxNameWidth defines the maximum display width of name columns
const MaxNameWidth = 24

// PrintTimestamp prints the run timestamp and duration
func PrintTimestamp(w io.Writer, startTime time.Time, duration time.Duration) {
	timeStr := startTime.Format("2006-01-02 15:04:05")
	durationStr := fmt.Sprintf("%.2fs", duration.Seconds())

	fmt.Fprintf(w, "Completed at %s (took %s)\n", timeStr, durationStr)
}

// newTable returns a rounded table mirrored to w
func newTable(w io.Writer, title string) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	if title != "" {
		tw.SetTitle(title)
	}
	return tw
}

// rightAligned right aligns the given 1-based column numbers
func rightAligned(columns ...int) []table.ColumnConfig {
	configs := make([]table.ColumnConfig, 0, len(columns))
	for _, n := range columns {
		configs = append(configs, table.ColumnConfig{
			Number:      n,
			Align:       text.AlignRight,
			AlignFooter: text.AlignRight,
		})
	}
	return configs
}

// dollars formats a USD amount with thousands separators
func dollars(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func gigabytes(sizeGB int) string {
	if sizeGB <= 0 {
		return "-"
	}
	return humanize.Comma(int64(sizeGB)) + " GB"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// printErrors lists per-check failures below a table
func printErrors(w io.Writer, errs []string) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", text.FgHiRed.Sprintf("%d error(s):", len(errs)))
	for _, e := range errs {
		fmt.Fprintf(w, "  - %s\n", e)
	}
}
