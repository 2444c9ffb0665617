package reaper_test

import (
	"context"
	"errors"
	"time"

	"github.com/aws/smithy-go"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/younsl/idlesweep/internal/lifecycle"
	"github.com/younsl/idlesweep/internal/logging"
	"github.com/younsl/idlesweep/internal/models"
	"github.com/younsl/idlesweep/internal/reaper"
	"github.com/younsl/idlesweep/internal/testutil/fakecloud"
	"github.com/younsl/idlesweep/pkg/pricing"
)

type recordingReporter struct {
	results []*models.ReapResult
}

func (r *recordingReporter) ReportReap(_ context.Context, result *models.ReapResult) {
	r.results = append(r.results, result)
}

func deadlineTags(value string) map[string]string {
	return map[string]string{
		"CostOptimization": value,
		"AutomatedBy":      "CostAnalyzer",
	}
}

var _ = Describe("Reaper", func() {
	var (
		ctx      context.Context
		inv      *fakecloud.EC2
		store    *fakecloud.Ledger
		reporter *recordingReporter
		dryRun   bool
		now      time.Time
	)

	newReaper := func() *reaper.Reaper {
		return reaper.New(inv, store, reporter, reaper.Options{
			Tag:    lifecycle.DefaultTag(),
			DryRun: dryRun,
			Prices: pricing.DefaultTable(),
			Now:    func() time.Time { return now },
		}, logging.Discard())
	}

	BeforeEach(func() {
		ctx = context.Background()
		inv = fakecloud.NewEC2()
		store = fakecloud.NewLedger()
		reporter = &recordingReporter{}
		dryRun = false
		now = time.Date(2025, time.February, 9, 3, 0, 0, 0, time.UTC)
	})

	Describe("Scenario: deadline still in the future", func() {
		BeforeEach(func() {
			inv.AddVolume(models.Volume{
				VolumeID: "vol-future", SizeGB: 100, VolumeType: "gp2",
				Tags: deadlineTags("DeleteAfter-2025-02-12"),
			})
		})

		It("leaves the volume alone and counts it as pending", func() {
			result, err := newReaper().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Deleted).To(BeEmpty())
			Expect(result.Skipped).To(BeEmpty())
			Expect(result.Pending).To(Equal(1))
			Expect(inv.SnapshotRequests).To(BeEmpty())
			Expect(inv.Volumes).To(HaveKey("vol-future"))
			Expect(store.Entries).To(BeEmpty())
		})
	})

	Describe("Scenario: eligible unattached volume", func() {
		BeforeEach(func() {
			inv.AddVolume(models.Volume{
				VolumeID: "vol-123", SizeGB: 100, VolumeType: "gp2",
				Tags: deadlineTags("DeleteAfter-2025-02-09"),
			})
		})

		It("snapshots, deletes and writes exactly one ledger entry", func() {
			result, err := newReaper().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			By("taking the safety snapshot first")
			Expect(inv.SnapshotRequests).To(HaveLen(1))
			req := inv.SnapshotRequests[0]
			Expect(req.VolumeID).To(Equal("vol-123"))
			Expect(req.Description).To(Equal("Pre-deletion snapshot of vol-123 by automated cleanup"))
			Expect(req.Tags).To(HaveKeyWithValue("Name", "AutoCleanup-vol-123"))
			Expect(req.Tags).To(HaveKeyWithValue("OriginalVolumeId", "vol-123"))
			Expect(req.Tags).To(HaveKeyWithValue("AutomatedBy", "ResourceCleanup"))
			Expect(req.Tags).To(HaveKeyWithValue("CreatedDate", "2025-02-09"))

			By("deleting the volume")
			Expect(inv.Volumes).NotTo(HaveKey("vol-123"))
			Expect(result.Deleted).To(HaveLen(1))
			Expect(result.TotalMonthlySavings).To(Equal(11.40))

			By("recording the deletion in the ledger")
			Expect(store.Entries).To(HaveLen(1))
			entry, ok := store.Entries["volume-vol-123-2025-02-09"]
			Expect(ok).To(BeTrue())
			Expect(entry.Kind).To(Equal(models.KindVolume))
			Expect(entry.MonthlySavings).To(Equal(11.40))
			Expect(entry.SnapshotID).To(HavePrefix("snap-safety"))

			Expect(reporter.results).To(HaveLen(1))
		})

		It("is idempotent across a second run on the same day", func() {
			_, err := newReaper().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			second, err := newReaper().Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Deleted).To(BeEmpty())
			Expect(store.Entries).To(HaveLen(1))
		})
	})

	Describe("Scenario: volume attached again after flagging", func() {
		BeforeEach(func() {
			inv.AddVolume(models.Volume{
				VolumeID: "vol-busy", SizeGB: 20, VolumeType: "gp3",
				AttachedTo: []string{"i-0abc"},
				Tags:       deadlineTags("DeleteAfter-2025-02-01"),
			})
		})

		It("skips with reason now in use", func() {
			result, err := newReaper().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Skipped).To(ConsistOf(models.Skip{
				Kind: models.KindVolume, ResourceID: "vol-busy", Reason: reaper.ReasonNowInUse,
			}))
			Expect(inv.SnapshotRequests).To(BeEmpty())
			Expect(inv.Volumes).To(HaveKey("vol-busy"))
		})
	})

	Describe("Scenario: safety snapshot fails", func() {
		BeforeEach(func() {
			inv.AddVolume(models.Volume{
				VolumeID: "vol-nosnap", SizeGB: 20, VolumeType: "gp3",
				Tags: deadlineTags("DeleteAfter-2025-02-01"),
			}).FailOn(fakecloud.OpCreateSnapshot, "vol-nosnap",
				&smithy.GenericAPIError{Code: "SnapshotLimitExceeded", Message: "limit reached"})
		})

		It("never deletes the volume", func() {
			result, err := newReaper().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(inv.Volumes).To(HaveKey("vol-nosnap"))
			Expect(result.Skipped).To(HaveLen(1))
			Expect(result.Skipped[0].Reason).To(HavePrefix("snapshot_failed: "))
			Expect(store.Entries).To(BeEmpty())
		})
	})

	Describe("Scenario: destructive call fails", func() {
		BeforeEach(func() {
			inv.AddSnapshot(models.Snapshot{
				SnapshotID: "snap-ami", SizeGB: 8,
				Tags: deadlineTags("DeleteAfter-2025-01-20"),
			}).FailOn(fakecloud.OpDeleteSnapshot, "snap-ami",
				&smithy.GenericAPIError{Code: "InvalidSnapshot.InUse", Message: "in use by ami-1"})
		})

		It("skips with deletion_failed and writes no ledger entry", func() {
			result, err := newReaper().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Skipped).To(HaveLen(1))
			Expect(result.Skipped[0].Reason).To(HavePrefix("deletion_failed: "))
			Expect(store.Entries).To(BeEmpty())
			Expect(result.Errors).To(BeEmpty())
		})
	})

	Describe("Scenario: another reaper removed the resource first", func() {
		BeforeEach(func() {
			inv.AddAddress(models.Address{
				AllocationID: "eipalloc-race", PublicIP: "192.0.2.5",
				Tags: deadlineTags("DeleteAfter-2025-02-01"),
			}).FailOn(fakecloud.OpReleaseAddress, "eipalloc-race",
				&smithy.GenericAPIError{Code: "InvalidAllocationID.NotFound"})
		})

		It("records the resource as already removed", func() {
			result, err := newReaper().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Skipped).To(ConsistOf(models.Skip{
				Kind: models.KindAddress, ResourceID: "eipalloc-race", Reason: reaper.ReasonAlreadyRemoved,
			}))
			Expect(result.Deleted).To(BeEmpty())
		})
	})

	Describe("Scenario: another reaper removed the volume before its safety snapshot", func() {
		BeforeEach(func() {
			inv.AddVolume(models.Volume{
				VolumeID: "vol-gone", SizeGB: 30, VolumeType: "gp3",
				Tags: deadlineTags("DeleteAfter-2025-02-01"),
			}).FailOn(fakecloud.OpCreateSnapshot, "vol-gone",
				&smithy.GenericAPIError{Code: "InvalidVolume.NotFound", Message: "volume does not exist"})
		})

		It("records the volume as already removed", func() {
			result, err := newReaper().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Skipped).To(ConsistOf(models.Skip{
				Kind: models.KindVolume, ResourceID: "vol-gone", Reason: reaper.ReasonAlreadyRemoved,
			}))
			Expect(result.Errors).To(BeEmpty())
			Expect(store.Entries).To(BeEmpty())
		})
	})

	Describe("Scenario: destructive call is throttled", func() {
		BeforeEach(func() {
			inv.AddSnapshot(models.Snapshot{
				SnapshotID: "snap-slow", SizeGB: 8,
				Tags: deadlineTags("DeleteAfter-2025-01-20"),
			}).FailOn(fakecloud.OpDeleteSnapshot, "snap-slow",
				&smithy.GenericAPIError{Code: "RequestLimitExceeded", Message: "rate exceeded"})
		})

		It("skips the snapshot and surfaces the throttling as a run error", func() {
			result, err := newReaper().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Skipped).To(HaveLen(1))
			Expect(result.Skipped[0].Reason).To(HavePrefix("deletion_failed: "))
			Expect(result.Errors).To(ConsistOf("deletion_failed snap-slow: throttled"))
			Expect(inv.Snapshots).To(HaveKey("snap-slow"))
		})
	})

	Describe("Scenario: malformed deadline tag", func() {
		BeforeEach(func() {
			inv.AddSnapshot(models.Snapshot{
				SnapshotID: "snap-bad", SizeGB: 8,
				Tags: deadlineTags("DeleteAfter-next-week"),
			})
		})

		It("is ignored without being counted", func() {
			result, err := newReaper().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Skipped).To(BeEmpty())
			Expect(result.Pending).To(BeZero())
			Expect(inv.Snapshots).To(HaveKey("snap-bad"))
		})
	})

	Describe("Scenario: snapshots and address leases", func() {
		BeforeEach(func() {
			inv.AddSnapshot(models.Snapshot{
				SnapshotID: "snap-old", SizeGB: 50,
				Tags: deadlineTags("DeleteAfter-2025-02-02"),
			})
			inv.AddAddress(models.Address{
				AllocationID: "eipalloc-idle", PublicIP: "192.0.2.10",
				Tags: deadlineTags("DeleteAfter-2025-02-02"),
			})
			inv.AddAddress(models.Address{
				AllocationID: "eipalloc-used", PublicIP: "192.0.2.11", AssociationID: "eipassoc-1",
				Tags: deadlineTags("DeleteAfter-2025-02-02"),
			})
		})

		It("deletes without a safety snapshot and keys the ledger by kind", func() {
			result, err := newReaper().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(inv.SnapshotRequests).To(BeEmpty())
			Expect(result.DeletedCount(models.KindSnapshot)).To(Equal(1))
			Expect(result.DeletedCount(models.KindAddress)).To(Equal(1))
			Expect(result.SkippedCount(models.KindAddress)).To(Equal(1))
			Expect(result.TotalMonthlySavings).To(Equal(6.45))

			Expect(store.Entries).To(HaveKey("snapshot-snap-old-2025-02-09"))
			Expect(store.Entries).To(HaveKey("eip-eipalloc-idle-2025-02-09"))
			Expect(store.Entries["eip-eipalloc-idle-2025-02-09"].PublicIP).To(Equal("192.0.2.10"))
		})
	})

	Describe("Scenario: ledger unavailable", func() {
		BeforeEach(func() {
			inv.AddSnapshot(models.Snapshot{
				SnapshotID: "snap-1", SizeGB: 10,
				Tags: deadlineTags("DeleteAfter-2025-02-02"),
			})
			store.PutErr = errors.New("ResourceNotFoundException")
		})

		It("keeps the deletion and counts the ledger failure", func() {
			result, err := newReaper().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Deleted).To(HaveLen(1))
			Expect(result.LedgerFailures).To(Equal(1))
			Expect(inv.Snapshots).NotTo(HaveKey("snap-1"))
		})
	})

	Describe("Scenario: listing fails for one kind", func() {
		BeforeEach(func() {
			inv.AddAddress(models.Address{
				AllocationID: "eipalloc-idle", PublicIP: "192.0.2.10",
				Tags: deadlineTags("DeleteAfter-2025-02-02"),
			}).FailOn(fakecloud.OpListVolumes, "", errors.New("UnauthorizedOperation"))
		})

		It("still processes the other kinds", func() {
			result, err := newReaper().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Errors).To(HaveLen(1))
			Expect(result.DeletedCount(models.KindAddress)).To(Equal(1))
		})
	})

	Describe("Scenario: dry run", func() {
		BeforeEach(func() {
			dryRun = true
			inv.AddVolume(models.Volume{
				VolumeID: "vol-dry", SizeGB: 10, VolumeType: "gp2",
				Tags: deadlineTags("DeleteAfter-2025-02-01"),
			})
		})

		It("plans actions without touching anything", func() {
			result, err := newReaper().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.DryRun).To(BeTrue())
			Expect(result.Planned).To(HaveLen(1))
			Expect(result.Planned[0].MonthlySavings).To(Equal(1.14))
			Expect(result.Deleted).To(BeEmpty())
			Expect(inv.SnapshotRequests).To(BeEmpty())
			Expect(inv.Deleted).To(BeEmpty())
			Expect(store.Puts).To(BeZero())
		})
	})
})
