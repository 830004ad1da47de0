package filter

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/triagekit/filtergate/internal/types"
)

/*
 * Filter rule matching.
 *
 * A rule holds two condition sets and an action list. Conflicts take
 * absolute precedence: if any conflict condition matches the event, the rule
 * cannot match regardless of requirements. Otherwise the rule matches when
 * any requirement matches (OR). A rule with no requirement conditions
 * matches whenever it is unconflicted; group-condition rules rely on this
 * for "always run" gating.
 *
 * IncludeAll mode forces full evaluation of every condition and value (no
 * short-circuit) and reports per-condition results for rule preview, without
 * altering the matched/unmatched verdict.
 */

// Rule is an ordered, named filter rule inside a group. Group-condition
// rules gate their owning group; processing rules emit actions.
type Rule struct {
	ID      types.RuleID
	GroupID types.GroupID

	// IsGroupCondition distinguishes "gates the group" rules from
	// "processes tickets" rules. The two form disjoint ordered sequences
	// within one group.
	IsGroupCondition bool

	// SortOrder is unique and contiguous 1..N within the
	// (group, IsGroupCondition) scope. Ascending = evaluated earlier.
	SortOrder int

	Name string

	// Trigger restricts the events this rule participates in.
	// TriggerAny participates in all.
	Trigger types.TriggerType

	// StopIfMatched halts the owning group's remaining rule cascade once
	// this rule matches. Subsequent groups still evaluate.
	StopIfMatched bool

	Disabled bool

	Conflicts    []Condition
	Requirements []Condition

	// Actions is only meaningful for processing rules.
	Actions []Action

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RuleCheck reports one condition's outcome in IncludeAll mode.
type RuleCheck struct {
	Conflict  bool          `json:"conflict"`
	Condition Condition     `json:"condition"`
	Matched   bool          `json:"matched"`
	Values    []CheckResult `json:"values,omitempty"`
}

// MatchOutcome is the result of matching one rule against an event.
type MatchOutcome struct {
	Matched bool

	// MatchedConditions lists the requirement conditions that matched.
	MatchedConditions []Condition

	// Actions are this rule's emitted actions; empty unless the rule
	// matched and is a processing rule.
	Actions []Action

	// Checks is populated in IncludeAll mode only.
	Checks []RuleCheck
}

// Match evaluates the rule against the event context.
func (r *Rule) Match(reg *Registry, ev *types.EventContext, includeAll bool, log zerolog.Logger) MatchOutcome {
	var out MatchOutcome

	if r.Disabled {
		return out
	}
	if r.Trigger != types.TriggerAny && r.Trigger != ev.Trigger {
		return out
	}

	conflicted := false
	for _, c := range r.Conflicts {
		matched, checks := c.Test(reg, ev, includeAll, log)
		if includeAll {
			out.Checks = append(out.Checks, RuleCheck{Conflict: true, Condition: c, Matched: matched, Values: checks})
		}
		if matched {
			conflicted = true
			if !includeAll {
				break
			}
		}
	}

	satisfied := len(r.Requirements) == 0
	for _, c := range r.Requirements {
		if conflicted && !includeAll {
			break
		}
		matched, checks := c.Test(reg, ev, includeAll, log)
		if includeAll {
			out.Checks = append(out.Checks, RuleCheck{Condition: c, Matched: matched, Values: checks})
		}
		if matched {
			satisfied = true
			out.MatchedConditions = append(out.MatchedConditions, c)
			if !includeAll {
				break
			}
		}
	}

	if conflicted || !satisfied {
		out.MatchedConditions = nil
		return out
	}

	out.Matched = true
	if !r.IsGroupCondition {
		out.Actions = r.Actions
	}
	return out
}
