package models

// Kind identifies a resource kind handled by the sweep
type Kind string

const (
	KindVolume          Kind = "ebs_volume"
	KindSnapshot        Kind = "snapshot"
	KindAddress         Kind = "elastic_ip"
	KindStoppedInstance Kind = "stopped_instance"
)

// FlaggableKinds lists the kinds that carry a deadline tag and can be reaped
var FlaggableKinds = []Kind{KindVolume, KindSnapshot, KindAddress}

// KeyPrefix returns the prefix used when building ledger keys for the kind
func (k Kind) KeyPrefix() string {
	switch k {
	case KindVolume:
		return "volume"
	case KindSnapshot:
		return "snapshot"
	case KindAddress:
		return "eip"
	default:
		return string(k)
	}
}

// Flaggable reports whether resources of this kind are tagged and reaped
func (k Kind) Flaggable() bool {
	for _, f := range FlaggableKinds {
		if f == k {
			return true
		}
	}
	return false
}
