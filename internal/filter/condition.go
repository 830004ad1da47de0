package filter

import (
	"github.com/rs/zerolog"

	"github.com/triagekit/filtergate/internal/types"
)

// Condition is a single predicate testable against an event context.
// Immutable value object; embedded (encoded) inside a filter rule, never
// persisted on its own.
type Condition struct {
	Kind string `cbor:"kind" json:"kind"`

	// CustomField names the referenced custom field; set only for
	// custom-field kinds.
	CustomField string `cbor:"custom_field,omitempty" json:"custom_field,omitempty"`

	// Values is the ordered candidate set. The condition matches if any
	// value matches the event (OR across values).
	Values []string `cbor:"values,omitempty" json:"values,omitempty"`
}

// CheckResult reports the outcome for one candidate value, for diagnostics.
type CheckResult struct {
	Value   string `json:"value"`
	Matched bool   `json:"matched"`
}

// Test evaluates the condition against the event context: OR across Values,
// short-circuiting on the first match unless includeAll is set. includeAll
// forces full evaluation with per-value results and does not change the
// verdict.
//
// A kind that is not applicable to the event's trigger is no match. An
// unregistered kind is an internal error: logged, treated as no match, never
// surfaced to the caller.
func (c Condition) Test(reg *Registry, ev *types.EventContext, includeAll bool, log zerolog.Logger) (bool, []CheckResult) {
	h, ok := reg.condition(c.Kind)
	if !ok {
		log.Error().Str("kind", c.Kind).Msg("unknown condition kind; treating as no match")
		return false, nil
	}

	if !h.AppliesTo(ev.Trigger) {
		return false, nil
	}

	if h.ValueType == types.ValueNone {
		matched := h.Test(ev, c, "")
		return matched, []CheckResult{{Matched: matched}}
	}

	var checks []CheckResult
	matched := false
	for _, v := range c.Values {
		ok := h.Test(ev, c, v)
		checks = append(checks, CheckResult{Value: v, Matched: ok})
		if ok {
			matched = true
			if !includeAll {
				break
			}
		}
	}
	return matched, checks
}
