package lifecycle

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// Phase is the lifecycle phase of a resource derived from its tags
type Phase int

const (
	// NotTracked means the resource carries no deadline tag
	NotTracked Phase = iota
	// Malformed means the deadline tag value is not a date
	Malformed
	// GracePeriod means the deadline is still in the future
	GracePeriod
	// Eligible means the deadline passed and the resource is still idle
	Eligible
	// NowInUse means the deadline passed but the resource is attached or associated again
	NowInUse
)

func (p Phase) String() string {
	switch p {
	case NotTracked:
		return "not_tracked"
	case Malformed:
		return "malformed"
	case GracePeriod:
		return "grace_period"
	case Eligible:
		return "eligible"
	case NowInUse:
		return "now_in_use"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the evaluated lifecycle state of one resource
type State struct {
	Phase    Phase
	Deadline civil.Date
	DaysLeft int
	Raw      string
}

// Evaluate derives the lifecycle state from the resource's tags, its live
// in-use status and today's date. The in-use check only matters once the
// deadline has passed; the tag alone never authorizes deletion.
func Evaluate(tag Tag, tags map[string]string, inUse bool, today civil.Date) State {
	raw, ok := tags[tag.Key]
	if !ok {
		return State{Phase: NotTracked}
	}

	deadline, err := tag.Parse(raw)
	if err != nil {
		return State{Phase: Malformed, Raw: raw}
	}

	state := State{Deadline: deadline, Raw: raw}
	if today.Before(deadline) {
		state.Phase = GracePeriod
		state.DaysLeft = deadline.DaysSince(today)
		return state
	}
	if inUse {
		state.Phase = NowInUse
		return state
	}
	state.Phase = Eligible
	return state
}
