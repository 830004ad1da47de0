// Package engine orchestrates filter rule evaluation for one ticket
// lifecycle event: group gating, rule cascades, match recording, and ordered
// action execution.
package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/triagekit/filtergate/internal/filter"
	"github.com/triagekit/filtergate/internal/types"
)

// Store is the persistence surface the driver needs: the enabled rule set
// for a pass, and append-only match history.
type Store interface {
	ListEnabledGroups(ctx context.Context) ([]*filter.Group, error)
	RecordMatch(ctx context.Context, ruleID types.RuleID, ticketID string) error
}

// ActionOutcome reports one executed action.
type ActionOutcome struct {
	Action       filter.Action `json:"action"`
	Notification bool          `json:"notification"`
	Err          string        `json:"error,omitempty"`
}

// Result summarizes one evaluation pass.
type Result struct {
	Matched      bool            `json:"matched"`
	MatchedRules []types.RuleID  `json:"matched_rules,omitempty"`
	Outcomes     []ActionOutcome `json:"outcomes,omitempty"`
}

// Engine is the evaluation driver. Evaluation is synchronous and
// single-threaded per event; the engine holds no mutable state of its own,
// so one instance serves concurrent events.
type Engine struct {
	reg   *filter.Registry
	store Store
	env   filter.Env
	log   zerolog.Logger
}

// New creates an evaluation driver. The registry is owned by the caller and
// must be fully populated (builtins plus providers) before the first event.
func New(reg *filter.Registry, store Store, env filter.Env, log zerolog.Logger) *Engine {
	env.Log = log
	return &Engine{reg: reg, store: store, env: env, log: log}
}

// Registry exposes the driver's kind registry for catalog listings.
func (e *Engine) Registry() *filter.Registry {
	return e.reg
}

// Evaluate runs one ticket lifecycle event through every enabled rule group.
//
// Create events use the ticket's current queue for both sides of the
// transition; queue-move events carry the old and new queue. Any other
// trigger is a no-op. Matched actions accumulate across all eligible groups
// (a stop flag only ends its own group's cascade), then execute in two
// passes: ticket-state effects first, notifications second, preserving
// relative order within each pass. Action failures are logged individually
// and never abort remaining actions; there is no rollback of actions already
// applied.
func (e *Engine) Evaluate(ctx context.Context, trigger types.TriggerType, fromQueue, toQueue string, ticket types.Ticket) (*Result, error) {
	res := &Result{}

	ev := &types.EventContext{Trigger: trigger, Ticket: ticket}
	switch trigger {
	case types.TriggerCreate:
		ev.FromQueue = ticket.Queue()
		ev.ToQueue = ticket.Queue()
	case types.TriggerQueueMove:
		ev.FromQueue = fromQueue
		ev.ToQueue = toQueue
	default:
		e.log.Warn().Str("trigger", string(trigger)).Msg("unsupported trigger; skipping evaluation")
		return res, nil
	}

	groups, err := e.store.ListEnabledGroups(ctx)
	if err != nil {
		return nil, err
	}

	var actions []filter.Action
	for _, g := range groups {
		if g.Disabled {
			continue
		}
		if !g.CheckGroupConditions(e.reg, ev, false, e.log) {
			continue
		}

		matched, groupActions := g.CheckFilterRules(e.reg, ev, e.log, func(r *filter.Rule) {
			res.MatchedRules = append(res.MatchedRules, r.ID)
			if err := e.store.RecordMatch(ctx, r.ID, ticket.ID()); err != nil {
				e.log.Error().Err(err).
					Str("rule_id", string(r.ID)).
					Str("ticket_id", ticket.ID()).
					Msg("failed to record match")
			}
		})
		if matched {
			res.Matched = true
		}
		actions = append(actions, groupActions...)
	}

	effects, notifications := partitionActions(e.reg, actions)
	e.perform(ctx, ev, effects, false, res)
	e.perform(ctx, ev, notifications, true, res)

	return res, nil
}

// partitionActions splits the accumulated list into non-notification and
// notification actions, preserving relative order within each partition.
// State-changing actions must land before any notification text is built.
func partitionActions(reg *filter.Registry, actions []filter.Action) (effects, notifications []filter.Action) {
	for _, a := range actions {
		if a.IsNotification(reg) {
			notifications = append(notifications, a)
		} else {
			effects = append(effects, a)
		}
	}
	return effects, notifications
}

func (e *Engine) perform(ctx context.Context, ev *types.EventContext, actions []filter.Action, notification bool, res *Result) {
	for _, a := range actions {
		outcome := ActionOutcome{Action: a, Notification: notification}
		if err := a.Perform(ctx, e.reg, ev, e.env); err != nil {
			outcome.Err = err.Error()
			e.log.Error().Err(err).
				Str("kind", a.Kind).
				Str("ticket_id", ev.Ticket.ID()).
				Msg("action failed")
		}
		res.Outcomes = append(res.Outcomes, outcome)
	}
}
