package reaper

import (
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/younsl/idlesweep/internal/lifecycle"
)

// SafetySnapshotDescription is the description of the snapshot taken before a volume is deleted
func SafetySnapshotDescription(volumeID string) string {
	return fmt.Sprintf("Pre-deletion snapshot of %s by automated cleanup", volumeID)
}

// SafetySnapshotTags are the tags written on a safety snapshot
func SafetySnapshotTags(volumeID string, today civil.Date) map[string]string {
	return map[string]string{
		"Name":                   "AutoCleanup-" + volumeID,
		"OriginalVolumeId":       volumeID,
		lifecycle.AutomatedByKey: lifecycle.ReaperMarker,
		"CreatedDate":            today.String(),
	}
}
