package models

import "time"

// Snapshot represents an EBS snapshot owned by the account
type Snapshot struct {
	SnapshotID  string
	VolumeID    string
	SizeGB      int
	StartTime   time.Time
	Description string
	Tags        map[string]string
}
