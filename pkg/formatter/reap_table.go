package formatter

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/younsl/idlesweep/internal/models"
)

// PrintReapResult prints what a reaper run deleted (or would delete in dry
// run) and which tracked resources it skipped.
func PrintReapResult(w io.Writer, result *models.ReapResult) {
	actions := result.Deleted
	title := "Deleted resources"
	if result.DryRun {
		actions = result.Planned
		title = "Resources that would be deleted (dry run)"
	}

	if len(actions) == 0 {
		fmt.Fprintln(w, "No expired resources to delete.")
	} else {
		tw := newTable(w, title)
		tw.AppendHeader(table.Row{"KIND", "RESOURCE ID", "SIZE", "VOLUME TYPE", "SAFETY SNAPSHOT", "MONTHLY SAVINGS"})
		var total float64
		for _, a := range actions {
			snapshot := a.SnapshotID
			if a.Kind == models.KindAddress {
				snapshot = a.PublicIP
			}
			tw.AppendRow(table.Row{
				string(a.Kind),
				a.ResourceID,
				gigabytes(a.SizeGB),
				orDash(a.VolumeType),
				orDash(snapshot),
				dollars(a.MonthlySavings),
			})
			total += a.MonthlySavings
		}
		tw.AppendFooter(table.Row{"", "", "", "", "TOTAL", dollars(total)})
		tw.SetColumnConfigs(rightAligned(3, 6))
		tw.Render()
	}

	if len(result.Skipped) > 0 {
		tw := newTable(w, "Skipped")
		tw.AppendHeader(table.Row{"KIND", "RESOURCE ID", "REASON"})
		for _, s := range result.Skipped {
			tw.AppendRow(table.Row{string(s.Kind), s.ResourceID, text.FgYellow.Sprint(s.Reason)})
		}
		tw.Render()
	}

	fmt.Fprintf(w, "%d resource(s) still within their grace period\n", result.Pending)
	if result.LedgerFailures > 0 {
		fmt.Fprintln(w, text.FgHiRed.Sprintf("%d deletion(s) could not be recorded in the ledger", result.LedgerFailures))
	}
	printErrors(w, result.Errors)
}
