package filter

import (
	"context"

	"github.com/triagekit/filtergate/internal/types"
)

// Action is a single effect descriptor emitted by a matching rule.
// Embedded (encoded) inside a filter rule, same lifecycle as its owner.
type Action struct {
	Kind string `cbor:"kind" json:"kind"`

	// CustomField names the targeted custom field; set only for
	// custom-field kinds.
	CustomField string `cbor:"custom_field,omitempty" json:"custom_field,omitempty"`

	// Value is the kind-specific parameter (new subject, priority delta,
	// queue name, notification body, ...).
	Value string `cbor:"value,omitempty" json:"value,omitempty"`

	// NotifyTarget is the email address or user-group name a notification
	// or watcher-group action is aimed at.
	NotifyTarget string `cbor:"notify_target,omitempty" json:"notify_target,omitempty"`
}

// IsNotification reports whether the action's kind performs a notification.
// Used purely for execution ordering, never for matching. Unknown kinds are
// classified as non-notifications.
func (a Action) IsNotification(reg *Registry) bool {
	h, ok := reg.action(a.Kind)
	return ok && h.Notification
}

// Perform executes the action's effect against the event's ticket or the
// notification boundary. An unregistered kind is logged and treated as a
// no-op, never surfaced as an error.
func (a Action) Perform(ctx context.Context, reg *Registry, ev *types.EventContext, env Env) error {
	h, ok := reg.action(a.Kind)
	if !ok {
		env.Log.Error().Str("kind", a.Kind).Msg("unknown action kind; treating as no-op")
		return nil
	}
	return h.Perform(ctx, ev, a, env)
}
