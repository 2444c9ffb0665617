package finder

import (
	"context"
	"fmt"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/younsl/idlesweep/internal/lifecycle"
	"github.com/younsl/idlesweep/internal/models"
)

// MaxTagBatch is the EC2 limit on resource IDs per CreateTags call
const MaxTagBatch = 1000

// TagWriter applies tags to resources by ID
type TagWriter interface {
	CreateTags(ctx context.Context, ids []string, tags map[string]string) error
}

// Tagger writes the deadline tag on flaggable findings
type Tagger struct {
	writer    TagWriter
	tag       lifecycle.Tag
	graceDays int
	log       log15.Logger
}

// TagOutcome summarizes one tagging pass
type TagOutcome struct {
	Tagged int
	Failed int
	Errors []string
}

// NewTagger creates a Tagger
func NewTagger(writer TagWriter, tag lifecycle.Tag, graceDays int, log log15.Logger) *Tagger {
	return &Tagger{writer: writer, tag: tag, graceDays: graceDays, log: log}
}

// Tag flags volumes and snapshots in batches and address leases one by one.
// Stopped instance findings are never tagged.
func (t *Tagger) Tag(ctx context.Context, findings models.Findings, now time.Time) TagOutcome {
	tags := t.tag.FlagTags(now, t.graceDays)
	deadline := lifecycle.Deadline(now, t.graceDays)
	var out TagOutcome

	var ids []string
	for _, f := range findings.UnattachedVolumes {
		ids = append(ids, f.ResourceID)
	}
	for _, f := range findings.OldSnapshots {
		ids = append(ids, f.ResourceID)
	}

	for start := 0; start < len(ids); start += MaxTagBatch {
		end := start + MaxTagBatch
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]
		if err := t.writer.CreateTags(ctx, batch, tags); err != nil {
			t.log.Error("Failed to tag resource batch", "size", len(batch), "error", err)
			out.Failed += len(batch)
			out.Errors = append(out.Errors, fmt.Sprintf("tag batch of %d: %v", len(batch), err))
			continue
		}
		out.Tagged += len(batch)
	}
	if len(ids) > 0 {
		t.log.Info("Tagged resources for deletion", "count", out.Tagged, "delete_after", deadline)
	}

	for _, f := range findings.IdleAddresses {
		if err := t.writer.CreateTags(ctx, []string{f.ResourceID}, tags); err != nil {
			t.log.Error("Failed to tag elastic IP", "allocation_id", f.ResourceID, "error", err)
			out.Failed++
			out.Errors = append(out.Errors, fmt.Sprintf("tag %s: %v", f.ResourceID, err))
			continue
		}
		out.Tagged++
	}

	return out
}
