package models

import "time"

// Volume represents an EBS volume as seen by the sweep
type Volume struct {
	VolumeID         string
	Name             string
	SizeGB           int
	VolumeType       string // price class
	State            string
	AvailabilityZone string
	CreateTime       time.Time
	AttachedTo       []string // instance IDs
	Tags             map[string]string
}

// Attached reports whether the volume currently has any attachment
func (v Volume) Attached() bool {
	return len(v.AttachedTo) > 0
}
