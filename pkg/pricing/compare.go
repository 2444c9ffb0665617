package pricing

import (
	"context"
	"sort"
)

// Comparison pairs the configured rate of a volume type with its live price
type Comparison struct {
	VolumeType string
	Configured float64
	Live       float64
	Source     PricingSource
	Err        error
}

// Drift returns the live price minus the configured rate
func (c Comparison) Drift() float64 {
	return c.Live - c.Configured
}

// Compare looks up the live price of every volume type in the table.
// Lookup failures are kept on the row; the remaining types are still checked.
func (c *Client) Compare(ctx context.Context, table Table, region string) []Comparison {
	types := make([]string, 0, len(table.VolumePerGBMonth))
	for volumeType := range table.VolumePerGBMonth {
		types = append(types, volumeType)
	}
	sort.Strings(types)

	rows := make([]Comparison, 0, len(types))
	for _, volumeType := range types {
		row := Comparison{
			VolumeType: volumeType,
			Configured: table.VolumePerGBMonth[volumeType],
			Source:     PricingSourceAPI,
		}
		live, err := c.VolumePrice(ctx, volumeType, region)
		if err != nil {
			row.Source = PricingSourceNA
			row.Err = err
		} else {
			row.Live = live
		}
		rows = append(rows, row)
	}
	return rows
}
