// Package finder inventories the account, classifies idle resources and
// flags them with a deletion deadline tag.
package finder

import (
	"context"
	"fmt"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/younsl/idlesweep/internal/lifecycle"
	"github.com/younsl/idlesweep/internal/models"
	"github.com/younsl/idlesweep/pkg/pricing"
	"github.com/younsl/idlesweep/pkg/utils"
)

// Inventory is the read side of the EC2 account plus tagging
type Inventory interface {
	TagWriter
	ListVolumes(ctx context.Context) ([]models.Volume, error)
	DescribeVolumes(ctx context.Context, ids []string) ([]models.Volume, error)
	ListStoppedInstances(ctx context.Context) ([]models.Instance, error)
	ListSnapshots(ctx context.Context) ([]models.Snapshot, error)
	ListAddresses(ctx context.Context) ([]models.Address, error)
}

// Reporter receives the result of every run
type Reporter interface {
	ReportFind(ctx context.Context, result *models.FindResult)
}

// Options configures a Finder
type Options struct {
	Tag             lifecycle.Tag
	GraceDays       int
	SnapshotAgeDays int
	Prices          pricing.Table
	// Now defaults to time.Now
	Now func() time.Time
}

// Finder runs one cost analysis pass
type Finder struct {
	inventory  Inventory
	reporter   Reporter
	classifier Classifier
	tagger     *Tagger
	opts       Options
	log        log15.Logger
}

// New creates a Finder. reporter may be nil.
func New(inventory Inventory, reporter Reporter, opts Options, log log15.Logger) *Finder {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log = log.New("component", "finder")
	return &Finder{
		inventory: inventory,
		reporter:  reporter,
		classifier: Classifier{
			Prices:          opts.Prices,
			SnapshotAgeDays: opts.SnapshotAgeDays,
		},
		tagger: NewTagger(inventory, opts.Tag, opts.GraceDays, log),
		opts:   opts,
		log:    log,
	}
}

// Run classifies waste, tags flaggable findings and reports the result.
// Enumeration and tagging failures are recorded in the result, never returned.
func (f *Finder) Run(ctx context.Context) (*models.FindResult, error) {
	now := f.opts.Now()
	f.log.Info("Starting cost analysis scan", "timestamp", now.UTC().Format(time.RFC3339))

	result := &models.FindResult{
		Deadline: lifecycle.Deadline(now, f.opts.GraceDays),
	}

	result.Findings.UnattachedVolumes = f.findUnattachedVolumes(ctx, result)
	result.Findings.StoppedInstances = f.findStoppedInstances(ctx, now, result)
	result.Findings.OldSnapshots = f.findOldSnapshots(ctx, now, result)
	result.Findings.IdleAddresses = f.findIdleAddresses(ctx, result)
	result.TotalMonthlyWaste = pricing.Round2(result.Findings.MonthlyWaste())

	outcome := f.tagger.Tag(ctx, result.Findings, now)
	result.Tagged = outcome.Tagged
	result.TagFailures = outcome.Failed
	result.Errors = append(result.Errors, outcome.Errors...)

	if f.reporter != nil {
		f.reporter.ReportFind(ctx, result)
	}

	f.log.Info("Cost analysis complete",
		"findings", result.Findings.Count(),
		"monthly_waste", result.TotalMonthlyWaste)
	return result, nil
}

func (f *Finder) findUnattachedVolumes(ctx context.Context, result *models.FindResult) []models.Finding {
	volumes, err := f.inventory.ListVolumes(ctx)
	if err != nil {
		f.enumerationFailed(result, "unattached volumes", err)
		return nil
	}
	findings := f.classifier.UnattachedVolumes(volumes)
	for _, finding := range findings {
		f.log.Info("Unattached volume",
			"volume_id", finding.ResourceID,
			"size_gb", finding.SizeGB,
			"type", finding.VolumeType,
			"monthly_cost", finding.MonthlyCost)
	}
	f.log.Info("Unattached volume check done", "count", len(findings))
	return findings
}

func (f *Finder) findStoppedInstances(ctx context.Context, now time.Time, result *models.FindResult) []models.Finding {
	instances, err := f.inventory.ListStoppedInstances(ctx)
	if err != nil {
		f.enumerationFailed(result, "stopped instances", err)
		return nil
	}

	var findings []models.Finding
	for _, instance := range instances {
		if len(instance.VolumeIDs) == 0 {
			continue
		}
		volumes, err := f.inventory.DescribeVolumes(ctx, instance.VolumeIDs)
		if err != nil {
			f.log.Warn("Failed to describe volumes of stopped instance",
				"instance_id", instance.InstanceID, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("volumes of %s: %v", instance.InstanceID, err))
			continue
		}
		finding, ok := f.classifier.StoppedInstance(instance, volumes)
		if !ok {
			continue
		}
		stoppedDays := -1
		if instance.StoppedSince != nil {
			stoppedDays = utils.ElapsedDays(*instance.StoppedSince, now)
		}
		f.log.Info("Stopped instance holding volumes",
			"instance_id", instance.InstanceID,
			"name", finding.InstanceName,
			"volumes", len(finding.Volumes),
			"stopped_days", stoppedDays,
			"monthly_cost", finding.MonthlyCost)
		findings = append(findings, finding)
	}
	f.log.Info("Stopped instance check done", "count", len(findings))
	return findings
}

func (f *Finder) findOldSnapshots(ctx context.Context, now time.Time, result *models.FindResult) []models.Finding {
	snapshots, err := f.inventory.ListSnapshots(ctx)
	if err != nil {
		f.enumerationFailed(result, "old snapshots", err)
		return nil
	}
	findings := f.classifier.OldSnapshots(snapshots, now)
	for _, finding := range findings {
		f.log.Info("Old snapshot",
			"snapshot_id", finding.ResourceID,
			"age_days", finding.AgeDays,
			"size_gb", finding.SizeGB,
			"monthly_cost", finding.MonthlyCost)
	}
	f.log.Info("Old snapshot check done", "threshold_days", f.opts.SnapshotAgeDays, "count", len(findings))
	return findings
}

func (f *Finder) findIdleAddresses(ctx context.Context, result *models.FindResult) []models.Finding {
	addresses, err := f.inventory.ListAddresses(ctx)
	if err != nil {
		f.enumerationFailed(result, "idle elastic IPs", err)
		return nil
	}
	findings := f.classifier.IdleAddresses(addresses)
	for _, finding := range findings {
		f.log.Info("Idle elastic IP",
			"allocation_id", finding.ResourceID,
			"public_ip", finding.PublicIP,
			"monthly_cost", finding.MonthlyCost)
	}
	f.log.Info("Idle elastic IP check done", "count", len(findings))
	return findings
}

func (f *Finder) enumerationFailed(result *models.FindResult, check string, err error) {
	f.log.Error("Check failed", "check", check, "error", err)
	result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", check, err))
}
