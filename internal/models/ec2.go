package models

import "time"

// Instance represents a stopped EC2 instance and the EBS volumes it still holds
type Instance struct {
	InstanceID            string
	Name                  string
	InstanceType          string
	StateTransitionReason string
	StoppedSince          *time.Time // parsed from StateTransitionReason when present
	VolumeIDs             []string
	Tags                  map[string]string
}
