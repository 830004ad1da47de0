package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/triagekit/filtergate/internal/types"
)

// ConditionCatalog lists the registered condition kinds, builtins plus any
// provider-registered extensions. The locale query parameter is passed
// through to the registry.
func (s *Service) ConditionCatalog(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Registry().ConditionKinds(c.QueryParam("locale")))
}

// ActionCatalog lists the registered action kinds.
func (s *Service) ActionCatalog(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Registry().ActionKinds(c.QueryParam("locale")))
}

// MatchesByRule lists a rule's match history.
func (s *Service) MatchesByRule(c echo.Context) error {
	records, err := s.store.MatchesByRule(c.Request().Context(), types.RuleID(c.Param("id")))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

// MatchesByTicket lists every rule match recorded against a ticket.
func (s *Service) MatchesByTicket(c echo.Context) error {
	records, err := s.store.MatchesByTicket(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

// GroupAudits lists the administrative change log for one group.
func (s *Service) GroupAudits(c echo.Context) error {
	records, err := s.store.AuditsForEntity(c.Request().Context(), "group", c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

// RuleAudits lists the administrative change log for one rule.
func (s *Service) RuleAudits(c echo.Context) error {
	records, err := s.store.AuditsForEntity(c.Request().Context(), "rule", c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, records)
}
