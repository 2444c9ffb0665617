package formatter

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/younsl/idlesweep/pkg/pricing"
)

// PrintPrices prints configured volume rates next to the live Pricing API rates
func PrintPrices(w io.Writer, region string, rows []pricing.Comparison) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No volume prices configured.")
		return
	}

	location := pricing.RegionDescriptiveNames[region]
	if location == "" {
		location = region
	}

	tw := newTable(w, fmt.Sprintf("EBS prices per GB-month, %s", location))
	tw.AppendHeader(table.Row{"VOLUME TYPE", "CONFIGURED", "LIVE", "DRIFT", "SOURCE"})
	for _, row := range rows {
		if row.Err != nil {
			tw.AppendRow(table.Row{
				row.VolumeType,
				rate(row.Configured),
				"-",
				"-",
				text.FgRed.Sprint(string(row.Source)),
			})
			continue
		}

		drift := fmt.Sprintf("%+.4f", row.Drift())
		switch {
		case row.Drift() > 0:
			drift = text.FgHiRed.Sprint(drift)
		case row.Drift() < 0:
			drift = text.FgHiGreen.Sprint(drift)
		}
		tw.AppendRow(table.Row{
			row.VolumeType,
			rate(row.Configured),
			rate(row.Live),
			drift,
			string(row.Source),
		})
	}
	tw.SetColumnConfigs(rightAligned(2, 3, 4))
	tw.Render()

	for _, row := range rows {
		if row.Err != nil {
			fmt.Fprintf(w, "  %s: %v\n", row.VolumeType, row.Err)
		}
	}
}

func rate(v float64) string {
	return fmt.Sprintf("$%.4f", v)
}
