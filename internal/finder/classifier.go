package finder

import (
	"time"

	"github.com/younsl/idlesweep/internal/models"
	"github.com/younsl/idlesweep/pkg/pricing"
	"github.com/younsl/idlesweep/pkg/utils"
)

// Classifier applies the waste heuristics to inventory listings
type Classifier struct {
	Prices          pricing.Table
	SnapshotAgeDays int
}

// UnattachedVolumes flags every volume without an attachment
func (c Classifier) UnattachedVolumes(volumes []models.Volume) []models.Finding {
	var findings []models.Finding
	for _, v := range volumes {
		if v.Attached() {
			continue
		}
		findings = append(findings, models.Finding{
			Kind:        models.KindVolume,
			ResourceID:  v.VolumeID,
			MonthlyCost: pricing.Round2(c.Prices.VolumeMonthlyCost(v.VolumeType, v.SizeGB)),
			Reason:      models.ReasonUnattachedVolume,
			SizeGB:      v.SizeGB,
			VolumeType:  v.VolumeType,
		})
	}
	return findings
}

// StoppedInstance itemizes the volumes held by a stopped instance. It
// reports false when the volumes cost nothing.
func (c Classifier) StoppedInstance(instance models.Instance, volumes []models.Volume) (models.Finding, bool) {
	var total float64
	items := make([]models.AttachedVolume, 0, len(volumes))
	for _, v := range volumes {
		cost := c.Prices.VolumeMonthlyCost(v.VolumeType, v.SizeGB)
		total += cost
		items = append(items, models.AttachedVolume{
			VolumeID:    v.VolumeID,
			SizeGB:      v.SizeGB,
			VolumeType:  v.VolumeType,
			MonthlyCost: pricing.Round2(cost),
		})
	}
	if total <= 0 {
		return models.Finding{}, false
	}

	name := instance.Name
	if name == "" {
		name = "unnamed"
	}
	return models.Finding{
		Kind:         models.KindStoppedInstance,
		ResourceID:   instance.InstanceID,
		MonthlyCost:  pricing.Round2(total),
		Reason:       models.ReasonStoppedInstance,
		InstanceName: name,
		Volumes:      items,
	}, true
}

// OldSnapshots flags snapshots started strictly before now minus the age threshold
func (c Classifier) OldSnapshots(snapshots []models.Snapshot, now time.Time) []models.Finding {
	threshold := now.Add(-time.Duration(c.SnapshotAgeDays) * 24 * time.Hour)

	var findings []models.Finding
	for _, s := range snapshots {
		if !s.StartTime.Before(threshold) {
			continue
		}
		findings = append(findings, models.Finding{
			Kind:        models.KindSnapshot,
			ResourceID:  s.SnapshotID,
			MonthlyCost: pricing.Round2(c.Prices.SnapshotMonthlyCost(s.SizeGB)),
			Reason:      models.ReasonOldSnapshot,
			SizeGB:      s.SizeGB,
			AgeDays:     utils.ElapsedDays(s.StartTime, now),
		})
	}
	return findings
}

// IdleAddresses flags address leases with no association
func (c Classifier) IdleAddresses(addresses []models.Address) []models.Finding {
	cost := pricing.Round2(c.Prices.AddressMonthlyCost())

	var findings []models.Finding
	for _, a := range addresses {
		if a.Associated() {
			continue
		}
		findings = append(findings, models.Finding{
			Kind:        models.KindAddress,
			ResourceID:  a.AllocationID,
			MonthlyCost: cost,
			Reason:      models.ReasonIdleAddress,
			PublicIP:    a.PublicIP,
		})
	}
	return findings
}
