package filter

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/triagekit/filtergate/internal/types"
)

// Group is an ordered container of filter rules with its own applicability
// gate. GroupConditions decide whether the group runs at all (OR-combined);
// Rules are the processing cascade that emits actions. The two collections
// are structural, not a flag filter over one list.
type Group struct {
	ID        types.GroupID
	SortOrder int
	Name      string
	Disabled  bool

	// CanMatchQueues constrains which queues this group's conditions may
	// reference; CanTransferQueues constrains QueueSet targets;
	// CanUseGroups constrains notification target groups. An empty set
	// leaves that axis unrestricted.
	CanMatchQueues    []string
	CanTransferQueues []string
	CanUseGroups      []string

	GroupConditions []*Rule
	Rules           []*Rule

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SortRules orders both collections by sort order ascending, then name.
func (g *Group) SortRules() {
	byOrder := func(rules []*Rule) func(i, j int) bool {
		return func(i, j int) bool {
			if rules[i].SortOrder != rules[j].SortOrder {
				return rules[i].SortOrder < rules[j].SortOrder
			}
			return rules[i].Name < rules[j].Name
		}
	}
	sort.SliceStable(g.GroupConditions, byOrder(g.GroupConditions))
	sort.SliceStable(g.Rules, byOrder(g.Rules))
}

// CheckGroupConditions reports whether the group applies to the event:
// logical OR over enabled group-condition rules in order, short-circuiting
// on the first match. A group with no group-condition rules is never
// eligible; an administrator must define at least one condition to activate
// a group. includeDisabled exists for diagnostics/preview only.
func (g *Group) CheckGroupConditions(reg *Registry, ev *types.EventContext, includeDisabled bool, log zerolog.Logger) bool {
	for _, r := range g.GroupConditions {
		if r.Disabled && !includeDisabled {
			continue
		}
		if r.Match(reg, ev, false, log).Matched {
			return true
		}
	}
	return false
}

// CheckFilterRules cascades over the group's enabled processing rules in
// order, accumulating each matching rule's actions. onMatch is invoked per
// matching rule (the driver records match history through it); a rule with
// the stop flag halts this group's cascade, not subsequent groups.
func (g *Group) CheckFilterRules(reg *Registry, ev *types.EventContext, log zerolog.Logger, onMatch func(*Rule)) (bool, []Action) {
	anyMatched := false
	var actions []Action

	for _, r := range g.Rules {
		if r.Disabled {
			continue
		}
		out := r.Match(reg, ev, false, log)
		if !out.Matched {
			continue
		}
		anyMatched = true
		if onMatch != nil {
			onMatch(r)
		}
		actions = append(actions, out.Actions...)
		if r.StopIfMatched {
			break
		}
	}

	return anyMatched, actions
}

// PermitsRule validates a rule against the group's capability sets: queue
// conditions against CanMatchQueues, queue-targeting actions against
// CanTransferQueues, and group-targeted actions against CanUseGroups.
func (g *Group) PermitsRule(reg *Registry, r *Rule) error {
	checkConds := func(conds []Condition) error {
		for _, c := range conds {
			h, ok := reg.condition(c.Kind)
			if !ok || h.ValueType != types.ValueQueue {
				continue
			}
			for _, v := range c.Values {
				if !permitted(g.CanMatchQueues, v) {
					return fmt.Errorf("%w: condition %s references queue %q", types.ErrQueueNotPermitted, c.Kind, v)
				}
			}
		}
		return nil
	}

	if err := checkConds(r.Conflicts); err != nil {
		return err
	}
	if err := checkConds(r.Requirements); err != nil {
		return err
	}

	for _, a := range r.Actions {
		h, ok := reg.action(a.Kind)
		if !ok {
			continue
		}
		if h.ValueType == types.ValueQueue && !permitted(g.CanTransferQueues, a.Value) {
			return fmt.Errorf("%w: action %s targets queue %q", types.ErrQueueNotPermitted, a.Kind, a.Value)
		}
		if a.NotifyTarget != "" && isGroupTargeted(a.Kind) && !permitted(g.CanUseGroups, a.NotifyTarget) {
			return fmt.Errorf("%w: action %s targets group %q", types.ErrGroupTargetNotPermitted, a.Kind, a.NotifyTarget)
		}
	}
	return nil
}

func isGroupTargeted(kind string) bool {
	switch kind {
	case ActNotifyGroup, ActCcAddGroup, ActAdminCcAddGroup:
		return true
	}
	return false
}

// permitted reports set membership; an empty set permits everything.
func permitted(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	return anyEqualFold(set, v)
}
