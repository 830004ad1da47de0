package types

import "errors"

// Sentinel errors for FilterGate operations.
var (
	// ErrUnsupportedTrigger indicates an event trigger outside create/queue-move.
	ErrUnsupportedTrigger = errors.New("unsupported trigger type")

	// ErrUnknownConditionKind indicates a condition kind missing from the registry.
	ErrUnknownConditionKind = errors.New("unknown condition kind")

	// ErrUnknownActionKind indicates an action kind missing from the registry.
	ErrUnknownActionKind = errors.New("unknown action kind")

	// ErrGroupNotFound indicates a filter rule group ID with no stored row.
	ErrGroupNotFound = errors.New("filter rule group not found")

	// ErrRuleNotFound indicates a filter rule ID with no stored row.
	ErrRuleNotFound = errors.New("filter rule not found")

	// ErrMoveOutOfBounds indicates a reorder that would step past the first
	// or last sibling.
	ErrMoveOutOfBounds = errors.New("move would go out of bounds")

	// ErrValidation indicates a rejected create/update; wraps a caller-facing
	// message, no partial state change occurred.
	ErrValidation = errors.New("validation failed")

	// ErrQueueNotPermitted indicates a rule referencing a queue outside its
	// group's capability sets.
	ErrQueueNotPermitted = errors.New("queue not permitted for this group")

	// ErrGroupTargetNotPermitted indicates a notification target group outside
	// the owning group's capability set.
	ErrGroupTargetNotPermitted = errors.New("target group not permitted for this group")
)
