package formatter

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/younsl/idlesweep/internal/models"
)

// PrintFindings prints the findings of a finder run, most expensive first
// within each check, followed by the tagging summary.
func PrintFindings(w io.Writer, result *models.FindResult) {
	if result.Findings.Count() == 0 {
		fmt.Fprintln(w, "No wasteful resources found.")
		printErrors(w, result.Errors)
		return
	}

	tw := newTable(w, "Wasteful resources")
	tw.AppendHeader(table.Row{"KIND", "RESOURCE ID", "NAME", "SIZE", "VOLUME TYPE", "AGE", "MONTHLY COST", "REASON"})

	for _, group := range [][]models.Finding{
		result.Findings.UnattachedVolumes,
		result.Findings.StoppedInstances,
		result.Findings.OldSnapshots,
		result.Findings.IdleAddresses,
	} {
		for _, f := range byCost(group) {
			tw.AppendRow(findingRow(f))
		}
	}

	tw.AppendFooter(table.Row{"", "", "", "", "", "TOTAL", dollars(result.TotalMonthlyWaste), ""})
	tw.SetColumnConfigs(rightAligned(4, 6, 7))
	tw.Render()

	deadline := "-"
	if result.Deadline.IsValid() {
		deadline = result.Deadline.String()
	}
	fmt.Fprintf(w, "Tagged %d resource(s) for deletion after %s", result.Tagged, deadline)
	if result.TagFailures > 0 {
		fmt.Fprint(w, text.FgHiRed.Sprintf(" (%d failed)", result.TagFailures))
	}
	fmt.Fprintln(w)
	printErrors(w, result.Errors)
}

func byCost(findings []models.Finding) []models.Finding {
	sorted := make([]models.Finding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MonthlyCost > sorted[j].MonthlyCost
	})
	return sorted
}

func findingRow(f models.Finding) table.Row {
	size := f.SizeGB
	volumeType := f.VolumeType
	if f.Kind == models.KindStoppedInstance {
		size = 0
		for _, v := range f.Volumes {
			size += v.SizeGB
		}
		volumeType = fmt.Sprintf("%d volume(s)", len(f.Volumes))
	}

	name := f.InstanceName
	if f.Kind == models.KindAddress {
		name = f.PublicIP
	}

	age := "-"
	if f.Kind == models.KindSnapshot {
		age = fmt.Sprintf("%dd", f.AgeDays)
	}

	return table.Row{
		string(f.Kind),
		f.ResourceID,
		TruncateWidth(orDash(name), MaxNameWidth),
		gigabytes(size),
		orDash(volumeType),
		age,
		dollars(f.MonthlyCost),
		f.Reason,
	}
}
