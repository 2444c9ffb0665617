package models

import "cloud.google.com/go/civil"

// NoSnapshot is stored when a deletion had no safety snapshot
const NoSnapshot = "none"

// LedgerEntry records one completed destructive action
type LedgerEntry struct {
	Kind           Kind
	ResourceID     string
	DeletedDate    civil.Date
	MonthlySavings float64
	SizeGB         int
	VolumeType     string
	SnapshotID     string
	PublicIP       string
}
