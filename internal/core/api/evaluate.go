package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/triagekit/filtergate/internal/engine"
	"github.com/triagekit/filtergate/internal/types"
)

// EvaluateRequest carries one ticket lifecycle event with an inline ticket
// snapshot. The host ticketing system decides when to call this: on ticket
// creation and on queue-change transactions only.
type EvaluateRequest struct {
	Trigger   string                `json:"trigger" validate:"required,oneof=create queue-move"`
	FromQueue string                `json:"from_queue,omitempty"`
	ToQueue   string                `json:"to_queue,omitempty"`
	Ticket    engine.TicketSnapshot `json:"ticket"`
}

// EvaluateResponse reports the evaluation outcome and the ticket's final
// state after all actions were applied to the snapshot.
type EvaluateResponse struct {
	OK     bool                   `json:"ok"`
	Result *engine.Result         `json:"result"`
	Ticket *engine.TicketSnapshot `json:"ticket"`
}

// Evaluate runs one event through every enabled rule group and executes the
// matched actions against the snapshot.
func (s *Service) Evaluate(c echo.Context) error {
	var req EvaluateRequest
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}
	if req.Ticket.TicketID == "" {
		return s.fail(c, fmt.Errorf("%w: ticket.ticket_id is required", types.ErrValidation))
	}

	trigger, err := types.ParseTriggerType(req.Trigger)
	if err != nil || trigger == types.TriggerAny {
		return s.fail(c, fmt.Errorf("%w: invalid trigger %q", types.ErrValidation, req.Trigger))
	}

	ticket := req.Ticket
	result, err := s.engine.Evaluate(c.Request().Context(), trigger, req.FromQueue, req.ToQueue, &ticket)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, EvaluateResponse{OK: true, Result: result, Ticket: &ticket})
}
