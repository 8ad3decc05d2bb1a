package admission

import (
	"errors"
	"fmt"

	"github.com/northgrid/admitd/pkg/store"
)

var (
	// ErrBadTransition rejects transitions to pending, to preauthorized,
	// to an unknown status, or to the record's current status.
	ErrBadTransition = errors.New("invalid status transition")

	// ErrPreauthTransition rejects transitions out of preauthorized to
	// anything but accepted. Preauthorized records must be accepted to
	// enter normal circulation.
	ErrPreauthTransition = errors.New("preauthorized set must be accepted first")
)

func knownStatus(s string) bool {
	switch s {
	case store.StatusPending, store.StatusPreauthorized, store.StatusAccepted, store.StatusRejected:
		return true
	}
	return false
}

// EvalTransition decides whether an authorization set may move from
// current to target. It is pure: the caller applies the side effect
// only on a nil result.
//
// Legal moves: pending or rejected to accepted, pending or accepted to
// rejected, preauthorized to accepted. Everything else fails, including
// same-status transitions.
func EvalTransition(current, target string) error {
	if !knownStatus(target) {
		return fmt.Errorf("%w: unknown status %q", ErrBadTransition, target)
	}

	if current == store.StatusPreauthorized {
		if target == store.StatusAccepted {
			return nil
		}
		return fmt.Errorf("%w: cannot move to %q", ErrPreauthTransition, target)
	}

	switch {
	case target == store.StatusAccepted && (current == store.StatusPending || current == store.StatusRejected):
		return nil
	case target == store.StatusRejected && (current == store.StatusPending || current == store.StatusAccepted):
		return nil
	}
	return fmt.Errorf("%w: %q to %q", ErrBadTransition, current, target)
}
