package report

import (
	"fmt"
	"strings"

	"github.com/younsl/idlesweep/internal/models"
)

// SMS-sized notification limits
const (
	MaxBodyLength    = 1600
	MaxSubjectLength = 100
)

const (
	findNoWaste   = "AWS Cost Alert: No waste found. All resources optimized."
	reapNoneFound = "AWS Cleanup: No expired resources found. All tagged resources still in grace period."
	reapFooter    = "Safety snapshots created. Check CloudWatch for details."
	dryRunFooter  = "Dry run, nothing was deleted."
)

// Message is a short notification ready to publish
type Message struct {
	Subject string
	Body    string
}

// FindMessage renders the finder summary notification
func FindMessage(result *models.FindResult, graceDays int) Message {
	total := result.TotalMonthlyWaste
	msg := Message{Subject: fmt.Sprintf("Cost Alert: $%.2f/mo", total)}

	f := result.Findings
	if f.Count() == 0 {
		msg.Body = findNoWaste
		return msg.bounded()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "AWS Cost Alert: %d issues found. ", f.Count())
	fmt.Fprintf(&b, "Savings: %s. ", perMonthAndYear(total))
	countPhrase(&b, len(f.UnattachedVolumes), "unattached volumes")
	countPhrase(&b, len(f.StoppedInstances), "stopped instances")
	countPhrase(&b, len(f.OldSnapshots), "old snapshots")
	countPhrase(&b, len(f.IdleAddresses), "idle IPs")
	fmt.Fprintf(&b, "Tagged for %d-day review.", graceDays)

	msg.Body = b.String()
	return msg.bounded()
}

// ReapMessage renders the reaper summary notification. In dry run the
// planned actions are reported instead of deletions.
func ReapMessage(result *models.ReapResult) Message {
	actions := result.Deleted
	if result.DryRun {
		actions = result.Planned
	}
	total := sumSavings(actions)
	msg := Message{Subject: fmt.Sprintf("Cleanup: $%.2f/mo saved", total)}

	if len(actions) == 0 {
		msg.Body = reapNoneFound
		return msg.bounded()
	}

	var b strings.Builder
	if result.DryRun {
		fmt.Fprintf(&b, "AWS Cleanup (dry run): Would delete %d expired resources. ", len(actions))
	} else {
		fmt.Fprintf(&b, "AWS Cleanup: Deleted %d expired resources. ", len(actions))
	}
	fmt.Fprintf(&b, "Savings: %s. ", perMonthAndYear(total))
	countPhrase(&b, countKind(actions, models.KindVolume), "volumes")
	countPhrase(&b, countKind(actions, models.KindSnapshot), "snapshots")
	countPhrase(&b, countKind(actions, models.KindAddress), "IPs")
	if result.DryRun {
		b.WriteString(dryRunFooter)
	} else {
		b.WriteString(reapFooter)
	}

	msg.Body = b.String()
	return msg.bounded()
}

func perMonthAndYear(monthly float64) string {
	return fmt.Sprintf("$%.2f/mo ($%.2f/yr)", monthly, monthly*12)
}

func countPhrase(b *strings.Builder, n int, noun string) {
	if n > 0 {
		fmt.Fprintf(b, "%d %s. ", n, noun)
	}
}

func countKind(actions []models.Action, kind models.Kind) int {
	n := 0
	for _, a := range actions {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

func sumSavings(actions []models.Action) float64 {
	var total float64
	for _, a := range actions {
		total += a.MonthlySavings
	}
	return total
}

func (m Message) bounded() Message {
	return Message{
		Subject: truncate(m.Subject, MaxSubjectLength),
		Body:    truncate(m.Body, MaxBodyLength),
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
