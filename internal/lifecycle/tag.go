// Package lifecycle holds the deadline tag protocol shared by the finder and
// the reaper. The tag on a resource is the only lifecycle state; everything
// here is derived from it at read time.
package lifecycle

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

const (
	DefaultTagKey      = "CostOptimization"
	DefaultValuePrefix = "DeleteAfter-"

	AutomatedByKey = "AutomatedBy"
	FoundDateKey   = "FoundDate"
	FinderMarker   = "CostAnalyzer"
	ReaperMarker   = "ResourceCleanup"
)

// Tag describes the reserved deadline tag
type Tag struct {
	Key    string
	Prefix string
}

// DefaultTag returns the CostOptimization=DeleteAfter-YYYY-MM-DD tag
func DefaultTag() Tag {
	return Tag{Key: DefaultTagKey, Prefix: DefaultValuePrefix}
}

// Value encodes a deadline as a tag value
func (t Tag) Value(deadline civil.Date) string {
	return t.Prefix + deadline.String()
}

// FilterPattern is the tag value wildcard matching every tracked resource
func (t Tag) FilterPattern() string {
	return t.Prefix + "*"
}

// deadlineLayout accepts both zero-padded and hand-written dates (2025-2-1)
const deadlineLayout = "2006-1-2"

// Parse decodes a tag value into its deadline
func (t Tag) Parse(value string) (civil.Date, error) {
	parsed, err := time.Parse(deadlineLayout, strings.TrimPrefix(strings.TrimSpace(value), t.Prefix))
	if err != nil {
		return civil.Date{}, err
	}
	return civil.DateOf(parsed), nil
}

// Today returns the UTC calendar date of now
func Today(now time.Time) civil.Date {
	return civil.DateOf(now.UTC())
}

// Deadline returns the date a resource flagged at now becomes eligible
func Deadline(now time.Time, graceDays int) civil.Date {
	return Today(now).AddDays(graceDays)
}

// FlagTags builds the full tag set the finder writes on a flagged resource
func (t Tag) FlagTags(now time.Time, graceDays int) map[string]string {
	return map[string]string{
		t.Key:          t.Value(Deadline(now, graceDays)),
		AutomatedByKey: FinderMarker,
		FoundDateKey:   Today(now).String(),
	}
}
