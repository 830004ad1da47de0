// Package api provides the HTTP service surface for FilterGate: the inbound
// evaluate call, group/rule CRUD and reordering, kind catalogs, and match
// history reads. Thin orchestration layer delegating to the store and the
// evaluation engine; who may call these endpoints is decided by the host's
// middleware, not here.
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/triagekit/filtergate/internal/engine"
	"github.com/triagekit/filtergate/internal/store"
	"github.com/triagekit/filtergate/internal/types"
)

// Service implements the HTTP handlers.
type Service struct {
	store    *store.Store
	engine   *engine.Engine
	validate *validator.Validate
	log      zerolog.Logger
}

// NewService creates the handler set with its dependencies.
func NewService(st *store.Store, eng *engine.Engine, log zerolog.Logger) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if eng == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	return &Service{
		store:    st,
		engine:   eng,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}, nil
}

// Register mounts all routes on the echo instance.
func (s *Service) Register(e *echo.Echo) {
	v1 := e.Group("/v1")

	v1.POST("/evaluate", s.Evaluate)

	v1.GET("/groups", s.ListGroups)
	v1.POST("/groups", s.CreateGroup)
	v1.GET("/groups/:id", s.GetGroup)
	v1.PATCH("/groups/:id", s.UpdateGroup)
	v1.DELETE("/groups/:id", s.DeleteGroup)
	v1.POST("/groups/:id/move", s.MoveGroup)

	v1.POST("/groups/:id/rules", s.CreateRule)
	v1.GET("/rules/:id", s.GetRule)
	v1.PATCH("/rules/:id", s.UpdateRule)
	v1.DELETE("/rules/:id", s.DeleteRule)
	v1.POST("/rules/:id/move", s.MoveRule)
	v1.POST("/rules/:id/preview", s.PreviewRule)

	v1.GET("/catalog/conditions", s.ConditionCatalog)
	v1.GET("/catalog/actions", s.ActionCatalog)

	v1.GET("/rules/:id/matches", s.MatchesByRule)
	v1.GET("/tickets/:id/matches", s.MatchesByTicket)

	v1.GET("/groups/:id/audits", s.GroupAudits)
	v1.GET("/rules/:id/audits", s.RuleAudits)
}

// MutationResponse is the uniform (ok, message) envelope for writes.
type MutationResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	ID      string `json:"id,omitempty"`
}

// actor identifies the administrator performing a change, supplied by the
// host's auth layer. Defaults to "system" when absent.
func actor(c echo.Context) string {
	if a := c.Request().Header.Get("X-Actor"); a != "" {
		return a
	}
	return "system"
}

// fail maps store/engine errors onto HTTP statuses with the (false, message)
// envelope. Unexpected errors are logged and reported without internals.
func (s *Service) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, types.ErrValidation):
		return c.JSON(http.StatusBadRequest, MutationResponse{Message: err.Error()})
	case errors.Is(err, types.ErrGroupNotFound), errors.Is(err, types.ErrRuleNotFound):
		return c.JSON(http.StatusNotFound, MutationResponse{Message: err.Error()})
	case errors.Is(err, types.ErrMoveOutOfBounds):
		return c.JSON(http.StatusConflict, MutationResponse{Message: err.Error()})
	default:
		s.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return c.JSON(http.StatusInternalServerError, MutationResponse{Message: "internal error"})
	}
}

func (s *Service) bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: %v", types.ErrValidation, err)
	}
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", types.ErrValidation, err)
	}
	return nil
}
