package formatter

import (
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/younsl/idlesweep/internal/ledger"
	"github.com/younsl/idlesweep/internal/models"
)

// PrintSavings prints the cumulative savings summary of the ledger
func PrintSavings(w io.Writer, stats ledger.Stats) {
	tw := newTable(w, "Cumulative savings")
	tw.AppendRows([]table.Row{
		{"Resources deleted", humanize.Comma(int64(stats.TotalResourcesDeleted))},
		{"  EBS volumes", humanize.Comma(int64(stats.ResourceBreakdown[models.KindVolume]))},
		{"  Snapshots", humanize.Comma(int64(stats.ResourceBreakdown[models.KindSnapshot]))},
		{"  Elastic IPs", humanize.Comma(int64(stats.ResourceBreakdown[models.KindAddress]))},
	})
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"Monthly savings", dollars(stats.TotalMonthlySavings)},
		{"Annual savings", dollars(stats.TotalAnnualSavings)},
		{"Average per day", dollars(stats.AverageSavingsPerDay)},
	})
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"First deletion", stats.FirstDeletion()},
		{"Last deletion", stats.LastDeletion()},
		{"Days operating", humanize.Comma(int64(stats.DaysOperating))},
	})
	tw.SetColumnConfigs(rightAligned(2))
	tw.Render()
}
