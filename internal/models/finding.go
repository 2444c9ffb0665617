package models

import "cloud.google.com/go/civil"

// Reasons attached to findings
const (
	ReasonUnattachedVolume = "volume has no attachments"
	ReasonStoppedInstance  = "instance stopped with EBS volumes attached"
	ReasonOldSnapshot      = "snapshot older than age threshold"
	ReasonIdleAddress      = "elastic IP not associated"
)

// AttachedVolume is one volume itemized under a stopped instance finding
type AttachedVolume struct {
	VolumeID    string  `json:"volume_id"`
	SizeGB      int     `json:"size_gb"`
	VolumeType  string  `json:"type"`
	MonthlyCost float64 `json:"monthly_cost"`
}

// Finding is a single wasteful resource discovered by the finder.
// Findings live for one run only.
type Finding struct {
	Kind         Kind             `json:"resource_type"`
	ResourceID   string           `json:"resource_id"`
	MonthlyCost  float64          `json:"monthly_cost"`
	Reason       string           `json:"reason"`
	SizeGB       int              `json:"size_gb,omitempty"`
	VolumeType   string           `json:"volume_type,omitempty"`
	AgeDays      int              `json:"age_days,omitempty"`
	PublicIP     string           `json:"public_ip,omitempty"`
	InstanceName string           `json:"instance_name,omitempty"`
	Volumes      []AttachedVolume `json:"volumes,omitempty"`
}

// Findings groups a run's findings by check
type Findings struct {
	UnattachedVolumes []Finding
	StoppedInstances  []Finding
	OldSnapshots      []Finding
	IdleAddresses     []Finding
}

// Count returns the number of findings across all checks
func (f Findings) Count() int {
	return len(f.UnattachedVolumes) + len(f.StoppedInstances) + len(f.OldSnapshots) + len(f.IdleAddresses)
}

// All returns every finding in check order
func (f Findings) All() []Finding {
	all := make([]Finding, 0, f.Count())
	all = append(all, f.UnattachedVolumes...)
	all = append(all, f.StoppedInstances...)
	all = append(all, f.OldSnapshots...)
	all = append(all, f.IdleAddresses...)
	return all
}

// MonthlyWaste sums the monthly cost of every finding
func (f Findings) MonthlyWaste() float64 {
	var total float64
	for _, finding := range f.All() {
		total += finding.MonthlyCost
	}
	return total
}

// FindResult is the outcome of one finder run
type FindResult struct {
	Findings          Findings
	TotalMonthlyWaste float64
	Deadline          civil.Date
	Tagged            int
	TagFailures       int
	Errors            []string
}
