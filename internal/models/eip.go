package models

// Address represents an Elastic IP address lease
type Address struct {
	AllocationID       string
	PublicIP           string
	AssociationID      string
	InstanceID         string
	NetworkInterfaceID string
	Tags               map[string]string
}

// Associated reports whether the address is associated with anything
func (a Address) Associated() bool {
	return a.AssociationID != ""
}
