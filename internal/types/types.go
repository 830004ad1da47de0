// Package types provides domain models shared across FilterGate components.
//
// Hand-written types for concepts used on both sides of the engine boundary:
// trigger/value-type enums, the per-invocation event context, and the ticket
// interface the host tracking system implements. ID utilities in ids.go import
// uuid but are isolated for selective inclusion.
package types

import "strings"

// TriggerType is the class of ticket lifecycle event a rule may respond to.
// The empty value means "unrestricted" on a rule, and is never a valid
// trigger for an incoming event.
type TriggerType string

const (
	// TriggerAny is the unrestricted rule setting, not an event trigger.
	TriggerAny TriggerType = ""

	// TriggerCreate fires when a ticket is created.
	TriggerCreate TriggerType = "create"

	// TriggerQueueMove fires when a ticket is transferred between queues.
	TriggerQueueMove TriggerType = "queue-move"
)

// ParseTriggerType converts a wire string to a TriggerType.
// Empty input yields TriggerAny; anything else must be a known trigger.
func ParseTriggerType(s string) (TriggerType, error) {
	switch TriggerType(strings.ToLower(strings.TrimSpace(s))) {
	case TriggerAny:
		return TriggerAny, nil
	case TriggerCreate:
		return TriggerCreate, nil
	case TriggerQueueMove:
		return TriggerQueueMove, nil
	default:
		return TriggerAny, ErrUnsupportedTrigger
	}
}

// ValueType describes what a condition or action kind expects as its value.
type ValueType string

const (
	ValueNone    ValueType = "none"
	ValueString  ValueType = "string"
	ValueInteger ValueType = "integer"
	ValueEmail   ValueType = "email"
	ValueQueue   ValueType = "queue"
	ValueStatus  ValueType = "status"
)

// Ticket is the host ticketing system's view of one ticket, as seen by the
// engine. Getters feed condition matching; setters are the effect surface of
// non-notification actions. Implementations decide whether mutations apply
// immediately or are staged.
type Ticket interface {
	ID() string
	Subject() string
	Body() string
	Headers() map[string]string
	Priority() int
	Status() string
	Queue() string
	Requestors() []string
	Recipients() []string
	HasAttachment() bool
	CustomField(name string) string

	SetSubject(subject string) error
	SetPriority(priority int) error
	SetStatus(status string) error
	SetQueue(queue string) error
	SetCustomField(name, value string) error
	AddRequestor(email string) error
	RemoveRequestor(email string) error
	AddCc(email string) error
	RemoveCc(email string) error
	AddAdminCc(email string) error
	RemoveAdminCc(email string) error
}

// EventContext carries one triggering event through an evaluation pass.
// Ephemeral; never persisted. For Create events FromQueue == ToQueue ==
// the ticket's current queue. For QueueMove events FromQueue is the old
// queue and ToQueue the new one.
type EventContext struct {
	Trigger   TriggerType
	FromQueue string
	ToQueue   string
	Ticket    Ticket
}
