package domain

import "fmt"

// transitions is the complete set of legal status changes. The empty status stands for
// "not yet created".
var transitions = map[Status][]Status{
	"":                {StatusPending},
	StatusPending:     {StatusUnderReview},
	StatusUnderReview: {StatusApproved, StatusRejected},
}

// CheckTransition returns nil if from -> to is legal and an error wrapping ErrInvalidTransition otherwise.
func CheckTransition(from, to Status) error {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	if from.IsTerminal() {
		return fmt.Errorf("%w: request is already %s", ErrInvalidTransition, from)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, displayStatus(from), to)
}

// NextStatuses returns the statuses reachable from s in one step.
func NextStatuses(s Status) []Status {
	out := make([]Status, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

func displayStatus(s Status) string {
	if s == "" {
		return "(new)"
	}
	return string(s)
}
