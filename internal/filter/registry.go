// Package filter implements the filter rule evaluation core: condition and
// action kinds with registry-based dispatch, the conflict/requirement match
// algorithm, group gating and rule cascades, and the versioned blob codec for
// a rule's embedded condition/action sequences.
package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/triagekit/filtergate/internal/notify"
	"github.com/triagekit/filtergate/internal/types"
)

/*
 * Kind registry.
 *
 * Condition and action kinds resolve to behavior through an explicit registry
 * object owned by the evaluation driver, not process-wide state. The registry
 * is populated with builtin kinds at construction; collaborators extend it
 * through provider hooks before evaluation starts.
 *
 * Why function-based handlers: ~20 condition kinds and ~20 action kinds with
 * minimal behavior variation each. A handler struct holding a test/perform
 * func is cleaner than 40 single-method interface implementations.
 */

// GroupDirectory resolves a user-group name to its member email addresses.
// Implemented by the host ticketing system; group-targeted actions fail when
// no directory is wired.
type GroupDirectory interface {
	Members(name string) ([]string, error)
}

// Env carries the collaborators an action may touch during Perform.
type Env struct {
	Notifier notify.Notifier
	Groups   GroupDirectory
	Log      zerolog.Logger
}

// ConditionHandler binds a condition kind to its test behavior.
type ConditionHandler struct {
	Kind        string
	DisplayName string
	ValueType   types.ValueType

	// TriggerTypes lists the event triggers this kind is valid for.
	// Empty means all triggers.
	TriggerTypes []types.TriggerType

	// Test checks one candidate value against the event context.
	Test func(ev *types.EventContext, cond Condition, value string) bool
}

// AppliesTo reports whether the kind participates for the given trigger.
func (h ConditionHandler) AppliesTo(t types.TriggerType) bool {
	if len(h.TriggerTypes) == 0 {
		return true
	}
	for _, tt := range h.TriggerTypes {
		if tt == t {
			return true
		}
	}
	return false
}

// ActionHandler binds an action kind to its effect behavior.
type ActionHandler struct {
	Kind        string
	DisplayName string
	ValueType   types.ValueType

	// Notification marks kinds whose effect is sending a message. Used only
	// for execution ordering (effects before notifications), never matching.
	Notification bool

	Perform func(ctx context.Context, ev *types.EventContext, act Action, env Env) error
}

// ConditionProvider returns additional condition handlers to register.
type ConditionProvider func() []ConditionHandler

// ActionProvider returns additional action handlers to register.
type ActionProvider func() []ActionHandler

// Registry maps condition/action kinds to handlers. Not safe for concurrent
// registration; register providers during startup, before evaluation begins.
type Registry struct {
	conditions map[string]ConditionHandler
	condOrder  []string
	actions    map[string]ActionHandler
	actOrder   []string
}

// NewRegistry creates a registry populated with the builtin kinds.
func NewRegistry() *Registry {
	r := &Registry{
		conditions: make(map[string]ConditionHandler),
		actions:    make(map[string]ActionHandler),
	}
	for _, h := range builtinConditions() {
		r.addCondition(h)
	}
	for _, h := range builtinActions() {
		r.addAction(h)
	}
	return r
}

// RegisterConditionProvider registers extra condition kinds. A provider
// handler with an existing kind name replaces the builtin.
func (r *Registry) RegisterConditionProvider(p ConditionProvider) {
	for _, h := range p() {
		r.addCondition(h)
	}
}

// RegisterActionProvider registers extra action kinds.
func (r *Registry) RegisterActionProvider(p ActionProvider) {
	for _, h := range p() {
		r.addAction(h)
	}
}

func (r *Registry) addCondition(h ConditionHandler) {
	if _, exists := r.conditions[h.Kind]; !exists {
		r.condOrder = append(r.condOrder, h.Kind)
	}
	r.conditions[h.Kind] = h
}

func (r *Registry) addAction(h ActionHandler) {
	if _, exists := r.actions[h.Kind]; !exists {
		r.actOrder = append(r.actOrder, h.Kind)
	}
	r.actions[h.Kind] = h
}

func (r *Registry) condition(kind string) (ConditionHandler, bool) {
	h, ok := r.conditions[kind]
	return h, ok
}

func (r *Registry) action(kind string) (ActionHandler, bool) {
	h, ok := r.actions[kind]
	return h, ok
}

// ConditionKindInfo describes one condition kind for catalog listings.
type ConditionKindInfo struct {
	Kind         string              `json:"kind"`
	DisplayName  string              `json:"display_name"`
	ValueType    types.ValueType     `json:"value_type"`
	TriggerTypes []types.TriggerType `json:"trigger_types,omitempty"`
}

// ActionKindInfo describes one action kind for catalog listings.
type ActionKindInfo struct {
	Kind         string          `json:"kind"`
	DisplayName  string          `json:"display_name"`
	ValueType    types.ValueType `json:"value_type"`
	Notification bool            `json:"notification"`
}

// ConditionKinds lists registered condition kinds in registration order.
// The locale tag is accepted for callers that localize display names; builtin
// names are English for any locale.
func (r *Registry) ConditionKinds(locale string) []ConditionKindInfo {
	out := make([]ConditionKindInfo, 0, len(r.condOrder))
	for _, kind := range r.condOrder {
		h := r.conditions[kind]
		out = append(out, ConditionKindInfo{
			Kind:         h.Kind,
			DisplayName:  h.DisplayName,
			ValueType:    h.ValueType,
			TriggerTypes: h.TriggerTypes,
		})
	}
	return out
}

// ActionKinds lists registered action kinds in registration order.
func (r *Registry) ActionKinds(locale string) []ActionKindInfo {
	out := make([]ActionKindInfo, 0, len(r.actOrder))
	for _, kind := range r.actOrder {
		h := r.actions[kind]
		out = append(out, ActionKindInfo{
			Kind:         h.Kind,
			DisplayName:  h.DisplayName,
			ValueType:    h.ValueType,
			Notification: h.Notification,
		})
	}
	return out
}
