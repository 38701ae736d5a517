package queue

import "fmt"

var allowedTransitions = map[Status][]Status{
	StatusPending: {StatusSending},
	StatusSending: {StatusSent, StatusPending, StatusError},
}

// CanTransition reports whether moving an entry from one status to another
// is permitted by the delivery state machine.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition applies a status change to the entry after validating it
// against the state machine. Terminal states admit no further transitions.
func Transition(entry *Entry, to Status) error {
	if entry == nil {
		return fmt.Errorf("transition to %s: entry is nil", to)
	}
	if !CanTransition(entry.Status, to) {
		return fmt.Errorf("invalid status transition %s -> %s for entry %s", entry.Status, to, entry.ID)
	}
	entry.Status = to
	return nil
}
