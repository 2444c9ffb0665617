package finder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/younsl/idlesweep/internal/lifecycle"
	"github.com/younsl/idlesweep/internal/logging"
	"github.com/younsl/idlesweep/internal/models"
	"github.com/younsl/idlesweep/internal/testutil/fakecloud"
	"github.com/younsl/idlesweep/pkg/pricing"
)

type recordingReporter struct {
	results []*models.FindResult
}

func (r *recordingReporter) ReportFind(_ context.Context, result *models.FindResult) {
	r.results = append(r.results, result)
}

var fixedNow = time.Date(2025, time.February, 2, 8, 0, 0, 0, time.UTC)

func newTestFinder(inv Inventory, reporter Reporter) *Finder {
	return New(inv, reporter, Options{
		Tag:             lifecycle.DefaultTag(),
		GraceDays:       7,
		SnapshotAgeDays: 90,
		Prices:          pricing.DefaultTable(),
		Now:             func() time.Time { return fixedNow },
	}, logging.Discard())
}

func seededInventory() *fakecloud.EC2 {
	return fakecloud.NewEC2().
		AddVolume(models.Volume{VolumeID: "vol-1", SizeGB: 100, VolumeType: "gp2"}).
		AddVolume(models.Volume{VolumeID: "vol-root", SizeGB: 8, VolumeType: "gp3", AttachedTo: []string{"i-stopped"}}).
		AddInstance(models.Instance{InstanceID: "i-stopped", Name: "batch", VolumeIDs: []string{"vol-root"}}).
		AddSnapshot(models.Snapshot{SnapshotID: "snap-old", SizeGB: 20, StartTime: fixedNow.AddDate(0, 0, -120)}).
		AddSnapshot(models.Snapshot{SnapshotID: "snap-new", SizeGB: 20, StartTime: fixedNow.AddDate(0, 0, -3)}).
		AddAddress(models.Address{AllocationID: "eipalloc-1", PublicIP: "198.51.100.7"})
}

func TestRun(t *testing.T) {
	inv := seededInventory()
	reporter := &recordingReporter{}

	result, err := newTestFinder(inv, reporter).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := result.Findings.Count(); got != 4 {
		t.Errorf("Count() = %d, want 4", got)
	}
	// 11.40 + 0.73 + 1.14 + 3.60
	if result.TotalMonthlyWaste != 16.87 {
		t.Errorf("TotalMonthlyWaste = %v, want 16.87", result.TotalMonthlyWaste)
	}
	if result.Deadline.String() != "2025-02-09" {
		t.Errorf("Deadline = %s, want 2025-02-09", result.Deadline)
	}
	if result.Tagged != 3 || result.TagFailures != 0 {
		t.Errorf("Tagged = %d, TagFailures = %d", result.Tagged, result.TagFailures)
	}
	if len(reporter.results) != 1 {
		t.Errorf("reporter called %d times, want 1", len(reporter.results))
	}

	for _, id := range []string{"vol-1"} {
		tags := inv.Volumes[id].Tags
		if tags["CostOptimization"] != "DeleteAfter-2025-02-09" {
			t.Errorf("%s deadline tag = %q", id, tags["CostOptimization"])
		}
		if tags["AutomatedBy"] != "CostAnalyzer" || tags["FoundDate"] != "2025-02-02" {
			t.Errorf("%s tags = %v", id, tags)
		}
	}
	if _, ok := inv.Volumes["vol-root"].Tags["CostOptimization"]; ok {
		t.Error("volumes of stopped instances must not be tagged")
	}
	if _, ok := inv.Snapshots["snap-new"].Tags["CostOptimization"]; ok {
		t.Error("recent snapshot must not be tagged")
	}
	if inv.Addresses["eipalloc-1"].Tags["CostOptimization"] == "" {
		t.Error("idle address should be tagged")
	}
}

func TestRunEnumerationFailureIsolated(t *testing.T) {
	inv := seededInventory().FailOn(fakecloud.OpListSnapshots, "", errors.New("UnauthorizedOperation"))

	result, err := newTestFinder(inv, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Findings.OldSnapshots) != 0 {
		t.Errorf("expected no snapshot findings")
	}
	if len(result.Findings.UnattachedVolumes) != 1 || len(result.Findings.IdleAddresses) != 1 {
		t.Errorf("other checks should still run: %+v", result.Findings)
	}
	if len(result.Errors) != 1 || !strings.HasPrefix(result.Errors[0], "old snapshots:") {
		t.Errorf("Errors = %v", result.Errors)
	}
}

func TestRunStoppedInstanceLookupFailure(t *testing.T) {
	inv := seededInventory().
		AddVolume(models.Volume{VolumeID: "vol-other", SizeGB: 10, VolumeType: "gp2", AttachedTo: []string{"i-other"}}).
		AddInstance(models.Instance{InstanceID: "i-other", VolumeIDs: []string{"vol-other"}}).
		FailOn(fakecloud.OpDescribeVolumes, "vol-root", errors.New("throttled"))

	result, _ := newTestFinder(inv, nil).Run(context.Background())

	if len(result.Findings.StoppedInstances) != 1 || result.Findings.StoppedInstances[0].ResourceID != "i-other" {
		t.Errorf("StoppedInstances = %+v", result.Findings.StoppedInstances)
	}
}

func TestRunTagFailureStillReports(t *testing.T) {
	inv := seededInventory().FailOn(fakecloud.OpCreateTags, "", errors.New("RequestLimitExceeded"))
	reporter := &recordingReporter{}

	result, err := newTestFinder(inv, reporter).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Tagged != 0 || result.TagFailures != 3 {
		t.Errorf("Tagged = %d, TagFailures = %d", result.Tagged, result.TagFailures)
	}
	if len(reporter.results) != 1 {
		t.Error("report must be sent even when tagging fails")
	}
}

func TestTaggerBatches(t *testing.T) {
	inv := fakecloud.NewEC2()
	var findings models.Findings
	for i := 0; i < 1500; i++ {
		id := fmt.Sprintf("vol-%04d", i)
		inv.AddVolume(models.Volume{VolumeID: id, SizeGB: 1, VolumeType: "gp3"})
		findings.UnattachedVolumes = append(findings.UnattachedVolumes, models.Finding{ResourceID: id})
	}
	findings.IdleAddresses = []models.Finding{{ResourceID: "eipalloc-1"}, {ResourceID: "eipalloc-2"}}

	tagger := NewTagger(inv, lifecycle.DefaultTag(), 7, logging.Discard())
	outcome := tagger.Tag(context.Background(), findings, fixedNow)

	if outcome.Tagged != 1502 {
		t.Errorf("Tagged = %d, want 1502", outcome.Tagged)
	}
	if len(inv.TagCalls) != 4 {
		t.Fatalf("CreateTags calls = %d, want 4", len(inv.TagCalls))
	}
	if len(inv.TagCalls[0]) != MaxTagBatch || len(inv.TagCalls[1]) != 500 {
		t.Errorf("batch sizes = %d, %d", len(inv.TagCalls[0]), len(inv.TagCalls[1]))
	}
	if len(inv.TagCalls[2]) != 1 || inv.TagCalls[2][0] != "eipalloc-1" {
		t.Errorf("address tag call = %v", inv.TagCalls[2])
	}
}

func TestTaggerFailedBatchTagsNone(t *testing.T) {
	inv := fakecloud.NewEC2().
		AddVolume(models.Volume{VolumeID: "vol-a", SizeGB: 1}).
		AddVolume(models.Volume{VolumeID: "vol-b", SizeGB: 1}).
		FailOn(fakecloud.OpCreateTags, "vol-b", errors.New("InvalidVolume.NotFound"))

	findings := models.Findings{UnattachedVolumes: []models.Finding{{ResourceID: "vol-a"}, {ResourceID: "vol-b"}}}
	outcome := NewTagger(inv, lifecycle.DefaultTag(), 7, logging.Discard()).Tag(context.Background(), findings, fixedNow)

	if outcome.Tagged != 0 || outcome.Failed != 2 {
		t.Errorf("outcome = %+v", outcome)
	}
	if _, ok := inv.Volumes["vol-a"].Tags["CostOptimization"]; ok {
		t.Error("vol-a must not be tagged when its batch fails")
	}
}
