// Package reaper removes tracked resources whose grace period has expired.
// Every resource is re-validated at action time; the deadline tag alone
// never authorizes deletion.
package reaper

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/inconshreveable/log15"

	"github.com/younsl/idlesweep/internal/cloud"
	"github.com/younsl/idlesweep/internal/ledger"
	"github.com/younsl/idlesweep/internal/lifecycle"
	"github.com/younsl/idlesweep/internal/models"
	"github.com/younsl/idlesweep/pkg/pricing"
)

// Skip reasons
const (
	ReasonNowInUse       = "now in use"
	ReasonAlreadyRemoved = "already removed"
	PrefixSnapshotFailed = "snapshot_failed"
	PrefixDeletionFailed = "deletion_failed"
)

// Inventory lists tracked resources and performs the destructive actions
type Inventory interface {
	ListTaggedVolumes(ctx context.Context, key, pattern string) ([]models.Volume, error)
	ListTaggedSnapshots(ctx context.Context, key, pattern string) ([]models.Snapshot, error)
	ListTaggedAddresses(ctx context.Context, key, pattern string) ([]models.Address, error)
	CreateSnapshot(ctx context.Context, volumeID, description string, tags map[string]string) (string, error)
	DeleteVolume(ctx context.Context, volumeID string) error
	DeleteSnapshot(ctx context.Context, snapshotID string) error
	ReleaseAddress(ctx context.Context, allocationID string) error
}

// Reporter receives the result of every run
type Reporter interface {
	ReportReap(ctx context.Context, result *models.ReapResult)
}

// Options configures a Reaper
type Options struct {
	Tag    lifecycle.Tag
	DryRun bool
	Prices pricing.Table
	// Now defaults to time.Now
	Now func() time.Time
}

// Reaper runs one cleanup pass
type Reaper struct {
	inventory Inventory
	ledger    ledger.Store
	reporter  Reporter
	opts      Options
	log       log15.Logger
}

// New creates a Reaper. reporter may be nil.
func New(inventory Inventory, store ledger.Store, reporter Reporter, opts Options, log log15.Logger) *Reaper {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Reaper{
		inventory: inventory,
		ledger:    store,
		reporter:  reporter,
		opts:      opts,
		log:       log.New("component", "reaper"),
	}
}

// run carries the state of a single pass
type run struct {
	*Reaper
	result *models.ReapResult
}

// Run processes volumes, then snapshots, then address leases and reports
// the result. Per-item and per-kind failures are recorded, never returned.
func (r *Reaper) Run(ctx context.Context) (*models.ReapResult, error) {
	now := r.opts.Now()
	today := lifecycle.Today(now)
	r.log.Info("Starting resource cleanup scan",
		"timestamp", now.UTC().Format(time.RFC3339),
		"dry_run", r.opts.DryRun)

	pass := &run{
		Reaper: r,
		result: &models.ReapResult{Date: today, DryRun: r.opts.DryRun},
	}
	pass.volumes(ctx, today)
	pass.snapshots(ctx, today)
	pass.addresses(ctx, today)

	var total float64
	for _, a := range pass.result.Deleted {
		total += a.MonthlySavings
	}
	pass.result.TotalMonthlySavings = pricing.Round2(total)

	if r.reporter != nil {
		r.reporter.ReportReap(ctx, pass.result)
	}

	r.log.Info("Cleanup complete",
		"deleted", len(pass.result.Deleted),
		"skipped", len(pass.result.Skipped),
		"pending", pass.result.Pending,
		"monthly_savings", pass.result.TotalMonthlySavings)
	return pass.result, nil
}

func (p *run) volumes(ctx context.Context, today civil.Date) {
	volumes, err := p.inventory.ListTaggedVolumes(ctx, p.opts.Tag.Key, p.opts.Tag.FilterPattern())
	if err != nil {
		p.listFailed(models.KindVolume, err)
		return
	}

	for _, v := range volumes {
		state := lifecycle.Evaluate(p.opts.Tag, v.Tags, v.Attached(), today)
		if !p.actionable(models.KindVolume, v.VolumeID, state) {
			continue
		}

		action := models.Action{
			Kind:           models.KindVolume,
			ResourceID:     v.VolumeID,
			SizeGB:         v.SizeGB,
			VolumeType:     v.VolumeType,
			MonthlySavings: pricing.Round2(p.opts.Prices.VolumeMonthlyCost(v.VolumeType, v.SizeGB)),
			Date:           today,
		}
		if p.opts.DryRun {
			p.plan(action)
			continue
		}

		snapshotID, err := p.inventory.CreateSnapshot(ctx, v.VolumeID,
			SafetySnapshotDescription(v.VolumeID), SafetySnapshotTags(v.VolumeID, today))
		if err != nil {
			p.failed(models.KindVolume, v.VolumeID, PrefixSnapshotFailed, err)
			continue
		}
		p.log.Info("Created safety snapshot", "volume_id", v.VolumeID, "snapshot_id", snapshotID)
		action.SnapshotID = snapshotID

		p.act(ctx, action, p.inventory.DeleteVolume(ctx, v.VolumeID))
	}
}

func (p *run) snapshots(ctx context.Context, today civil.Date) {
	snapshots, err := p.inventory.ListTaggedSnapshots(ctx, p.opts.Tag.Key, p.opts.Tag.FilterPattern())
	if err != nil {
		p.listFailed(models.KindSnapshot, err)
		return
	}

	for _, s := range snapshots {
		state := lifecycle.Evaluate(p.opts.Tag, s.Tags, false, today)
		if !p.actionable(models.KindSnapshot, s.SnapshotID, state) {
			continue
		}

		action := models.Action{
			Kind:           models.KindSnapshot,
			ResourceID:     s.SnapshotID,
			SizeGB:         s.SizeGB,
			MonthlySavings: pricing.Round2(p.opts.Prices.SnapshotMonthlyCost(s.SizeGB)),
			Date:           today,
		}
		if p.opts.DryRun {
			p.plan(action)
			continue
		}
		p.act(ctx, action, p.inventory.DeleteSnapshot(ctx, s.SnapshotID))
	}
}

func (p *run) addresses(ctx context.Context, today civil.Date) {
	addresses, err := p.inventory.ListTaggedAddresses(ctx, p.opts.Tag.Key, p.opts.Tag.FilterPattern())
	if err != nil {
		p.listFailed(models.KindAddress, err)
		return
	}

	for _, a := range addresses {
		state := lifecycle.Evaluate(p.opts.Tag, a.Tags, a.Associated(), today)
		if !p.actionable(models.KindAddress, a.AllocationID, state) {
			continue
		}

		action := models.Action{
			Kind:           models.KindAddress,
			ResourceID:     a.AllocationID,
			PublicIP:       a.PublicIP,
			MonthlySavings: pricing.Round2(p.opts.Prices.AddressMonthlyCost()),
			Date:           today,
		}
		if p.opts.DryRun {
			p.plan(action)
			continue
		}
		p.act(ctx, action, p.inventory.ReleaseAddress(ctx, a.AllocationID))
	}
}

// actionable logs the evaluated state and reports whether it is Eligible
func (p *run) actionable(kind models.Kind, id string, state lifecycle.State) bool {
	switch state.Phase {
	case lifecycle.Eligible:
		return true
	case lifecycle.GracePeriod:
		p.log.Info("Grace period active", "kind", kind, "id", id, "days_remaining", state.DaysLeft)
		p.result.Pending++
	case lifecycle.NowInUse:
		p.log.Info("Skipped resource now in use", "kind", kind, "id", id)
		p.skip(kind, id, ReasonNowInUse)
	case lifecycle.Malformed:
		p.log.Warn("Invalid deadline tag", "kind", kind, "id", id, "value", state.Raw)
	case lifecycle.NotTracked:
		p.log.Debug("Resource carries no deadline tag", "kind", kind, "id", id)
	}
	return false
}

// act records the outcome of a destructive call and writes the ledger entry
func (p *run) act(ctx context.Context, action models.Action, err error) {
	if err != nil {
		p.failed(action.Kind, action.ResourceID, PrefixDeletionFailed, err)
		return
	}

	p.log.Info("Removed resource",
		"kind", action.Kind,
		"id", action.ResourceID,
		"monthly_savings", fmt.Sprintf("%.2f", action.MonthlySavings))
	p.result.Deleted = append(p.result.Deleted, action)

	entry := action.LedgerEntry()
	if err := p.ledger.Put(ctx, ledger.Key(entry), entry); err != nil {
		p.log.Error("Failed to write ledger entry", "key", ledger.Key(entry), "error", err)
		p.result.LedgerFailures++
		p.result.Errors = append(p.result.Errors, fmt.Sprintf("ledger %s: %v", ledger.Key(entry), err))
	}
}

// failed records a failed safety snapshot or destructive call. A resource
// another run already removed is skipped as such, not reported as a failure.
func (p *run) failed(kind models.Kind, id, prefix string, err error) {
	switch cloud.Classify(err) {
	case cloud.FailureNotFound:
		p.log.Warn("Resource already removed", "kind", kind, "id", id, "step", prefix)
		p.skip(kind, id, ReasonAlreadyRemoved)
		return
	case cloud.FailureInUse:
		p.log.Warn("Resource still referenced elsewhere", "kind", kind, "id", id, "step", prefix, "error", err)
	case cloud.FailureThrottled:
		p.log.Error("Throttled, will retry next run", "kind", kind, "id", id, "step", prefix, "error", err)
		p.result.Errors = append(p.result.Errors, fmt.Sprintf("%s %s: throttled", prefix, id))
	default:
		p.log.Error("Action failed", "kind", kind, "id", id, "step", prefix, "error", err)
	}
	p.skip(kind, id, cloud.Reason(prefix, err))
}

func (p *run) plan(action models.Action) {
	p.log.Info("Dry run, would remove resource",
		"kind", action.Kind,
		"id", action.ResourceID,
		"monthly_savings", fmt.Sprintf("%.2f", action.MonthlySavings))
	p.result.Planned = append(p.result.Planned, action)
}

func (p *run) skip(kind models.Kind, id, reason string) {
	p.result.Skipped = append(p.result.Skipped, models.Skip{Kind: kind, ResourceID: id, Reason: reason})
}

func (p *run) listFailed(kind models.Kind, err error) {
	p.log.Error("Failed to list tracked resources", "kind", kind, "error", err)
	p.result.Errors = append(p.result.Errors, fmt.Sprintf("list %s: %v", kind, err))
}
