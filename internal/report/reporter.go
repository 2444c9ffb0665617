// Package report turns run results into a verbose log, a short operator
// notification and optional run metrics. None of these can fail a run.
package report

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/inconshreveable/log15"

	"github.com/younsl/idlesweep/internal/models"
)

// Notifier delivers a short message to the operator channel
type Notifier interface {
	Publish(ctx context.Context, subject, body string) (string, error)
}

// MetricsSink receives the numeric totals of a run
type MetricsSink interface {
	PutRunMetrics(ctx context.Context, process string, values map[string]float64) error
}

// Metric names published per run
const (
	MetricMonthlyWaste     = "MonthlyWaste"
	MetricFindingsCount    = "FindingsCount"
	MetricResourcesDeleted = "ResourcesDeleted"
	MetricMonthlySavings   = "MonthlySavings"
	MetricSkipped          = "Skipped"
)

// Process names used as the metrics dimension
const (
	ProcessFinder = "finder"
	ProcessReaper = "reaper"
)

// Reporter publishes run summaries. Notifier and Metrics are optional.
type Reporter struct {
	Notifier  Notifier
	Metrics   MetricsSink
	GraceDays int

	log log15.Logger
}

// NewReporter creates a Reporter
func NewReporter(notifier Notifier, metrics MetricsSink, graceDays int, log log15.Logger) *Reporter {
	return &Reporter{
		Notifier:  notifier,
		Metrics:   metrics,
		GraceDays: graceDays,
		log:       log.New("component", "report"),
	}
}

// ReportFind logs, notifies and records metrics for a finder run
func (r *Reporter) ReportFind(ctx context.Context, result *models.FindResult) {
	f := result.Findings
	r.log.Info("Cost analysis report",
		"monthly_waste", dollars(result.TotalMonthlyWaste),
		"annual_waste", dollars(result.TotalMonthlyWaste*12),
		"unattached_volumes", len(f.UnattachedVolumes),
		"stopped_instances", len(f.StoppedInstances),
		"old_snapshots", len(f.OldSnapshots),
		"idle_addresses", len(f.IdleAddresses),
		"tagged", result.Tagged,
		"tag_failures", result.TagFailures,
		"delete_after", result.Deadline)
	for _, e := range result.Errors {
		r.log.Warn("Run error", "error", e)
	}

	r.notify(ctx, FindMessage(result, r.GraceDays))
	r.putMetrics(ctx, ProcessFinder, map[string]float64{
		MetricMonthlyWaste:  result.TotalMonthlyWaste,
		MetricFindingsCount: float64(f.Count()),
	})
}

// ReportReap logs, notifies and records metrics for a reaper run
func (r *Reporter) ReportReap(ctx context.Context, result *models.ReapResult) {
	r.log.Info("Cleanup report",
		"dry_run", result.DryRun,
		"deleted", len(result.Deleted),
		"planned", len(result.Planned),
		"monthly_savings", dollars(result.TotalMonthlySavings),
		"annual_savings", dollars(result.TotalMonthlySavings*12),
		"volumes_deleted", result.DeletedCount(models.KindVolume),
		"snapshots_deleted", result.DeletedCount(models.KindSnapshot),
		"addresses_released", result.DeletedCount(models.KindAddress),
		"skipped", len(result.Skipped),
		"pending", result.Pending,
		"ledger_failures", result.LedgerFailures)
	for _, s := range result.Skipped {
		r.log.Info("Skipped resource", "kind", s.Kind, "id", s.ResourceID, "reason", s.Reason)
	}
	for _, e := range result.Errors {
		r.log.Warn("Run error", "error", e)
	}

	r.notify(ctx, ReapMessage(result))
	r.putMetrics(ctx, ProcessReaper, map[string]float64{
		MetricResourcesDeleted: float64(len(result.Deleted)),
		MetricMonthlySavings:   result.TotalMonthlySavings,
		MetricSkipped:          float64(len(result.Skipped)),
	})
}

func (r *Reporter) notify(ctx context.Context, msg Message) {
	if r.Notifier == nil {
		r.log.Debug("No notifier configured, skipping notification")
		return
	}
	id, err := r.Notifier.Publish(ctx, msg.Subject, msg.Body)
	if err != nil {
		r.log.Error("Failed to send notification", "subject", msg.Subject, "error", err)
		return
	}
	r.log.Info("Notification sent", "message_id", id, "length", len(msg.Body))
}

func (r *Reporter) putMetrics(ctx context.Context, process string, values map[string]float64) {
	if r.Metrics == nil {
		return
	}
	if err := r.Metrics.PutRunMetrics(ctx, process, values); err != nil {
		r.log.Warn("Failed to publish run metrics", "process", process, "error", err)
	}
}

func dollars(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}
