package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/triagekit/filtergate/internal/engine"
	"github.com/triagekit/filtergate/internal/filter"
	"github.com/triagekit/filtergate/internal/types"
)

// RuleRequest carries create/update fields for a filter rule.
type RuleRequest struct {
	Name             string             `json:"name" validate:"required"`
	IsGroupCondition bool               `json:"is_group_condition"`
	Trigger          string             `json:"trigger" validate:"omitempty,oneof=create queue-move"`
	StopIfMatched    bool               `json:"stop_if_matched"`
	Disabled         bool               `json:"disabled"`
	Conflicts        []filter.Condition `json:"conflicts"`
	Requirements     []filter.Condition `json:"requirements"`
	Actions          []filter.Action    `json:"actions"`
}

// RuleResponse is the full representation of one rule.
type RuleResponse struct {
	ID               types.RuleID       `json:"id"`
	GroupID          types.GroupID      `json:"group_id"`
	IsGroupCondition bool               `json:"is_group_condition"`
	SortOrder        int                `json:"sort_order"`
	Name             string             `json:"name"`
	Trigger          string             `json:"trigger,omitempty"`
	StopIfMatched    bool               `json:"stop_if_matched"`
	Disabled         bool               `json:"disabled"`
	Conflicts        []filter.Condition `json:"conflicts,omitempty"`
	Requirements     []filter.Condition `json:"requirements,omitempty"`
	Actions          []filter.Action    `json:"actions,omitempty"`
	CreatedBy        string             `json:"created_by,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func ruleResponse(r *filter.Rule) RuleResponse {
	return RuleResponse{
		ID:               r.ID,
		GroupID:          r.GroupID,
		IsGroupCondition: r.IsGroupCondition,
		SortOrder:        r.SortOrder,
		Name:             r.Name,
		Trigger:          string(r.Trigger),
		StopIfMatched:    r.StopIfMatched,
		Disabled:         r.Disabled,
		Conflicts:        r.Conflicts,
		Requirements:     r.Requirements,
		Actions:          r.Actions,
		CreatedBy:        r.CreatedBy,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func (req RuleRequest) toRule(groupID types.GroupID, id types.RuleID) *filter.Rule {
	return &filter.Rule{
		ID:               id,
		GroupID:          groupID,
		IsGroupCondition: req.IsGroupCondition,
		Name:             req.Name,
		Trigger:          types.TriggerType(req.Trigger),
		StopIfMatched:    req.StopIfMatched,
		Disabled:         req.Disabled,
		Conflicts:        req.Conflicts,
		Requirements:     req.Requirements,
		Actions:          req.Actions,
	}
}

// CreateRule adds a rule to a group, appended to the end of its sibling
// ordering.
func (s *Service) CreateRule(c echo.Context) error {
	var req RuleRequest
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}

	r := req.toRule(types.GroupID(c.Param("id")), "")
	if err := s.store.CreateRule(c.Request().Context(), r, actor(c)); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, MutationResponse{OK: true, ID: string(r.ID)})
}

// GetRule returns one rule.
func (s *Service) GetRule(c echo.Context) error {
	r, err := s.store.GetRule(c.Request().Context(), types.RuleID(c.Param("id")))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, ruleResponse(r))
}

// UpdateRule applies changes to an existing rule.
func (s *Service) UpdateRule(c echo.Context) error {
	var req RuleRequest
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}

	id := types.RuleID(c.Param("id"))
	existing, err := s.store.GetRule(c.Request().Context(), id)
	if err != nil {
		return s.fail(c, err)
	}

	r := req.toRule(existing.GroupID, id)
	if err := s.store.UpdateRule(c.Request().Context(), r, actor(c)); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, MutationResponse{OK: true, ID: string(id)})
}

// DeleteRule removes a rule and its match history.
func (s *Service) DeleteRule(c echo.Context) error {
	id := types.RuleID(c.Param("id"))
	if err := s.store.DeleteRule(c.Request().Context(), id, actor(c)); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, MutationResponse{OK: true, ID: string(id)})
}

// MoveRule reorders a rule among its siblings.
func (s *Service) MoveRule(c echo.Context) error {
	var req MoveRequest
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}
	id := types.RuleID(c.Param("id"))
	if err := s.store.MoveRule(c.Request().Context(), id, req.Offset); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, MutationResponse{OK: true, ID: string(id)})
}

// PreviewRequest is an evaluate-style event used to dry-run a single rule.
type PreviewRequest struct {
	Trigger   string                `json:"trigger" validate:"required,oneof=create queue-move"`
	FromQueue string                `json:"from_queue,omitempty"`
	ToQueue   string                `json:"to_queue,omitempty"`
	Ticket    engine.TicketSnapshot `json:"ticket"`
}

// PreviewResponse reports the rule's verdict with every condition and value
// fully evaluated (no short-circuit).
type PreviewResponse struct {
	OK      bool               `json:"ok"`
	Matched bool               `json:"matched"`
	Checks  []filter.RuleCheck `json:"checks,omitempty"`
}

// PreviewRule dry-runs one rule against a ticket snapshot with full
// per-condition diagnostics. No actions execute and no match is recorded.
func (s *Service) PreviewRule(c echo.Context) error {
	var req PreviewRequest
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}

	r, err := s.store.GetRule(c.Request().Context(), types.RuleID(c.Param("id")))
	if err != nil {
		return s.fail(c, err)
	}

	trigger, err := types.ParseTriggerType(req.Trigger)
	if err != nil || trigger == types.TriggerAny {
		return s.fail(c, fmt.Errorf("%w: invalid trigger %q", types.ErrValidation, req.Trigger))
	}

	ticket := req.Ticket
	ev := &types.EventContext{Trigger: trigger, Ticket: &ticket}
	if trigger == types.TriggerCreate {
		ev.FromQueue = ticket.Queue()
		ev.ToQueue = ticket.Queue()
	} else {
		ev.FromQueue = req.FromQueue
		ev.ToQueue = req.ToQueue
	}

	out := r.Match(s.engine.Registry(), ev, true, s.log)
	return c.JSON(http.StatusOK, PreviewResponse{OK: true, Matched: out.Matched, Checks: out.Checks})
}
