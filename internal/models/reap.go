package models

import "cloud.google.com/go/civil"

// Action is a destructive action the reaper performed (or would perform in dry run)
type Action struct {
	Kind           Kind       `json:"resource_type"`
	ResourceID     string     `json:"resource_id"`
	SizeGB         int        `json:"size_gb,omitempty"`
	VolumeType     string     `json:"volume_type,omitempty"`
	PublicIP       string     `json:"public_ip,omitempty"`
	SnapshotID     string     `json:"snapshot_id,omitempty"`
	MonthlySavings float64    `json:"monthly_savings"`
	Date           civil.Date `json:"deleted_date"`
}

// LedgerEntry converts the action into its ledger record
func (a Action) LedgerEntry() LedgerEntry {
	snapshotID := a.SnapshotID
	if a.Kind == KindVolume && snapshotID == "" {
		snapshotID = NoSnapshot
	}
	return LedgerEntry{
		Kind:           a.Kind,
		ResourceID:     a.ResourceID,
		DeletedDate:    a.Date,
		MonthlySavings: a.MonthlySavings,
		SizeGB:         a.SizeGB,
		VolumeType:     a.VolumeType,
		SnapshotID:     snapshotID,
		PublicIP:       a.PublicIP,
	}
}

// Skip records a tracked resource the reaper decided not to act on
type Skip struct {
	Kind       Kind   `json:"resource_type"`
	ResourceID string `json:"resource_id"`
	Reason     string `json:"reason"`
}

// ReapResult is the outcome of one reaper run
type ReapResult struct {
	Date                civil.Date
	DryRun              bool
	Deleted             []Action
	Planned             []Action
	Skipped             []Skip
	Pending             int
	TotalMonthlySavings float64
	LedgerFailures      int
	Errors              []string
}

// DeletedCount returns how many resources of the kind were removed
func (r *ReapResult) DeletedCount(kind Kind) int {
	return countActions(r.Deleted, kind)
}

// PlannedCount returns how many resources of the kind would be removed in dry run
func (r *ReapResult) PlannedCount(kind Kind) int {
	return countActions(r.Planned, kind)
}

// SkippedCount returns how many resources of the kind were skipped
func (r *ReapResult) SkippedCount(kind Kind) int {
	n := 0
	for _, s := range r.Skipped {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

func countActions(actions []Action, kind Kind) int {
	n := 0
	for _, a := range actions {
		if a.Kind == kind {
			n++
		}
	}
	return n
}
