package pricing

import "math"

// PricingSource represents the source of pricing information
type PricingSource string

const (
	// PricingSourceTable indicates the rate came from the configured price table
	PricingSourceTable PricingSource = "Table"

	// PricingSourceDefault indicates the volume class was unknown and the default rate was used
	PricingSourceDefault PricingSource = "Default"

	// PricingSourceAPI indicates pricing data came from the AWS Pricing API
	PricingSourceAPI PricingSource = "API"

	// PricingSourceNA indicates pricing data is not available
	PricingSourceNA PricingSource = "N/A"
)

// Table holds the static USD rates used for every cost estimate
type Table struct {
	// Price per GB-month keyed by EBS volume type
	VolumePerGBMonth map[string]float64 `toml:"volume_per_gb_month"`

	// Rate for volume types missing from VolumePerGBMonth
	DefaultVolumePerGBMonth float64 `toml:"default_volume_per_gb_month"`

	// Flat snapshot storage rate, independent of the source volume type
	SnapshotPerGBMonth float64 `toml:"snapshot_per_gb_month"`

	// Hourly charge for an idle Elastic IP
	AddressPerHour float64 `toml:"address_per_hour"`

	// Hours billed per month for hourly resources
	HoursPerMonth float64 `toml:"hours_per_month"`
}

// DefaultTable returns the Asia Pacific (Mumbai) rates
func DefaultTable() Table {
	return Table{
		VolumePerGBMonth: map[string]float64{
			"gp2":      0.114,
			"gp3":      0.091,
			"io1":      0.143,
			"io2":      0.143,
			"sc1":      0.029,
			"st1":      0.051,
			"standard": 0.057,
		},
		DefaultVolumePerGBMonth: 0.10,
		SnapshotPerGBMonth:      0.057,
		AddressPerHour:          0.005,
		HoursPerMonth:           24 * 30,
	}
}

// VolumeRate returns the per GB-month rate for a volume type and where it came from
func (t Table) VolumeRate(volumeType string) (float64, PricingSource) {
	if rate, ok := t.VolumePerGBMonth[volumeType]; ok {
		return rate, PricingSourceTable
	}
	return t.DefaultVolumePerGBMonth, PricingSourceDefault
}

// VolumeMonthlyCost returns the unrounded monthly cost of a volume
func (t Table) VolumeMonthlyCost(volumeType string, sizeGB int) float64 {
	rate, _ := t.VolumeRate(volumeType)
	return float64(sizeGB) * rate
}

// SnapshotMonthlyCost returns the unrounded monthly cost of a snapshot
func (t Table) SnapshotMonthlyCost(sizeGB int) float64 {
	return float64(sizeGB) * t.SnapshotPerGBMonth
}

// AddressMonthlyCost returns the unrounded monthly cost of an idle Elastic IP
func (t Table) AddressMonthlyCost() float64 {
	return t.AddressPerHour * t.HoursPerMonth
}

// Round2 rounds a dollar amount to cents
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
