package assignment

import "errors"

// Business-rule violations returned to callers as typed failures. They are
// always recoverable; only raw store errors should be treated as retriable
// infrastructure failures.
var (
	// ErrDuplicate means the entity already has an open assignment.
	ErrDuplicate = errors.New("duplicate assignment")

	// ErrNotFound means no assignment exists with the given ID.
	ErrNotFound = errors.New("assignment not found")

	// ErrNoOpTransfer means the target agent already owns the assignment.
	ErrNoOpTransfer = errors.New("transfer to current agent")

	// ErrInvalidTransition means the operation is not allowed in the
	// assignment's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidEscalationLevel means the requested level does not exceed
	// the current one. Escalation is one-directional.
	ErrInvalidEscalationLevel = errors.New("escalation level must increase")

	// ErrInvalidScore means the satisfaction score is outside 0–5.
	ErrInvalidScore = errors.New("satisfaction score out of range")

	// ErrNonMonotonicUpdate means a caller tried to lower a monotonic
	// counter.
	ErrNonMonotonicUpdate = errors.New("metric counters cannot decrease")
)
