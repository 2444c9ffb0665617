package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/inconshreveable/log15"

	"github.com/younsl/idlesweep/internal/models"
	"github.com/younsl/idlesweep/pkg/pricing"
)

// averagingDays is the fixed divisor for the per-day average. It is not the
// observed span between first and last deletion.
const averagingDays = 30

// notAvailable is reported for dates when the ledger is empty
const notAvailable = "N/A"

// Stats is the cumulative savings summary over the whole ledger
type Stats struct {
	TotalResourcesDeleted int                 `json:"total_resources_deleted"`
	TotalMonthlySavings   float64             `json:"total_monthly_savings"`
	TotalAnnualSavings    float64             `json:"total_annual_savings"`
	ResourceBreakdown     map[models.Kind]int `json:"resource_breakdown"`
	FirstDeletionDate     civil.Date          `json:"-"`
	LastDeletionDate      civil.Date          `json:"-"`
	DaysOperating         int                 `json:"days_operating"`
	AverageSavingsPerDay  float64             `json:"average_savings_per_day"`
}

// MarshalJSON renders empty dates as "N/A"
func (s Stats) MarshalJSON() ([]byte, error) {
	type plain Stats
	return json.Marshal(struct {
		plain
		FirstDeletionDate string `json:"first_deletion_date"`
		LastDeletionDate  string `json:"last_deletion_date"`
	}{
		plain:             plain(s),
		FirstDeletionDate: dateOrNA(s.FirstDeletionDate),
		LastDeletionDate:  dateOrNA(s.LastDeletionDate),
	})
}

// FirstDeletion returns the first deletion date or N/A
func (s Stats) FirstDeletion() string { return dateOrNA(s.FirstDeletionDate) }

// LastDeletion returns the last deletion date or N/A
func (s Stats) LastDeletion() string { return dateOrNA(s.LastDeletionDate) }

func dateOrNA(d civil.Date) string {
	if d.IsZero() {
		return notAvailable
	}
	return d.String()
}

func emptyBreakdown() map[models.Kind]int {
	breakdown := make(map[models.Kind]int, len(models.FlaggableKinds))
	for _, kind := range models.FlaggableKinds {
		breakdown[kind] = 0
	}
	return breakdown
}

// Aggregate computes Stats from ledger entries. Entries of unknown kind count
// toward the totals but not the breakdown.
func Aggregate(entries []models.LedgerEntry) Stats {
	stats := Stats{ResourceBreakdown: emptyBreakdown()}
	if len(entries) == 0 {
		return stats
	}

	var total float64
	for _, entry := range entries {
		total += entry.MonthlySavings
		if _, ok := stats.ResourceBreakdown[entry.Kind]; ok {
			stats.ResourceBreakdown[entry.Kind]++
		}

		if entry.DeletedDate.IsZero() {
			continue
		}
		if stats.FirstDeletionDate.IsZero() || entry.DeletedDate.Before(stats.FirstDeletionDate) {
			stats.FirstDeletionDate = entry.DeletedDate
		}
		if stats.LastDeletionDate.IsZero() || stats.LastDeletionDate.Before(entry.DeletedDate) {
			stats.LastDeletionDate = entry.DeletedDate
		}
	}

	stats.TotalResourcesDeleted = len(entries)
	stats.TotalMonthlySavings = pricing.Round2(total)
	stats.TotalAnnualSavings = pricing.Round2(total * 12)
	if !stats.FirstDeletionDate.IsZero() {
		stats.DaysOperating = stats.LastDeletionDate.DaysSince(stats.FirstDeletionDate) + 1
	}
	if total > 0 {
		stats.AverageSavingsPerDay = pricing.Round2(total / averagingDays)
	}
	return stats
}

// Aggregator answers savings queries against a ledger store
type Aggregator struct {
	store Store
	log   log15.Logger
}

// NewAggregator creates an Aggregator over store
func NewAggregator(store Store, log log15.Logger) *Aggregator {
	return &Aggregator{store: store, log: log.New("component", "ledger")}
}

// Query scans the whole ledger and aggregates it
func (a *Aggregator) Query(ctx context.Context) (Stats, error) {
	entries, err := a.store.Scan(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to scan ledger: %w", err)
	}

	stats := Aggregate(entries)
	a.log.Info("Aggregated savings ledger",
		"entries", stats.TotalResourcesDeleted,
		"monthly_savings", stats.TotalMonthlySavings,
		"annual_savings", stats.TotalAnnualSavings,
		"first_deletion", stats.FirstDeletion(),
		"last_deletion", stats.LastDeletion(),
		"days_operating", stats.DaysOperating)
	return stats, nil
}
