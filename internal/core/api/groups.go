package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/triagekit/filtergate/internal/filter"
	"github.com/triagekit/filtergate/internal/types"
)

// GroupRequest carries create/update fields for a filter rule group.
type GroupRequest struct {
	Name              string   `json:"name" validate:"required"`
	Disabled          bool     `json:"disabled"`
	CanMatchQueues    []string `json:"can_match_queues"`
	CanTransferQueues []string `json:"can_transfer_queues"`
	CanUseGroups      []string `json:"can_use_groups"`
}

// GroupResponse is the full representation of a group with both ordered
// rule collections.
type GroupResponse struct {
	ID                types.GroupID  `json:"id"`
	Name              string         `json:"name"`
	SortOrder         int            `json:"sort_order"`
	Disabled          bool           `json:"disabled"`
	CanMatchQueues    []string       `json:"can_match_queues,omitempty"`
	CanTransferQueues []string       `json:"can_transfer_queues,omitempty"`
	CanUseGroups      []string       `json:"can_use_groups,omitempty"`
	GroupConditions   []RuleResponse `json:"group_conditions"`
	Rules             []RuleResponse `json:"rules"`
	CreatedBy         string         `json:"created_by,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func groupResponse(g *filter.Group) GroupResponse {
	resp := GroupResponse{
		ID:                g.ID,
		Name:              g.Name,
		SortOrder:         g.SortOrder,
		Disabled:          g.Disabled,
		CanMatchQueues:    g.CanMatchQueues,
		CanTransferQueues: g.CanTransferQueues,
		CanUseGroups:      g.CanUseGroups,
		GroupConditions:   []RuleResponse{},
		Rules:             []RuleResponse{},
		CreatedBy:         g.CreatedBy,
		CreatedAt:         g.CreatedAt,
		UpdatedAt:         g.UpdatedAt,
	}
	for _, r := range g.GroupConditions {
		resp.GroupConditions = append(resp.GroupConditions, ruleResponse(r))
	}
	for _, r := range g.Rules {
		resp.Rules = append(resp.Rules, ruleResponse(r))
	}
	return resp
}

// CreateGroup adds a group at the end of the group ordering.
func (s *Service) CreateGroup(c echo.Context) error {
	var req GroupRequest
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}

	g := &filter.Group{
		Name:              req.Name,
		Disabled:          req.Disabled,
		CanMatchQueues:    req.CanMatchQueues,
		CanTransferQueues: req.CanTransferQueues,
		CanUseGroups:      req.CanUseGroups,
	}
	if err := s.store.CreateGroup(c.Request().Context(), g, actor(c)); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, MutationResponse{OK: true, ID: string(g.ID)})
}

// GetGroup returns one group with its rules.
func (s *Service) GetGroup(c echo.Context) error {
	g, err := s.store.GetGroup(c.Request().Context(), types.GroupID(c.Param("id")))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, groupResponse(g))
}

// ListGroups returns all groups ordered by sort order.
func (s *Service) ListGroups(c echo.Context) error {
	groups, err := s.store.ListGroups(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	out := make([]GroupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupResponse(g))
	}
	return c.JSON(http.StatusOK, out)
}

// UpdateGroup applies name/disabled/capability changes.
func (s *Service) UpdateGroup(c echo.Context) error {
	var req GroupRequest
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}

	g := &filter.Group{
		ID:                types.GroupID(c.Param("id")),
		Name:              req.Name,
		Disabled:          req.Disabled,
		CanMatchQueues:    req.CanMatchQueues,
		CanTransferQueues: req.CanTransferQueues,
		CanUseGroups:      req.CanUseGroups,
	}
	if err := s.store.UpdateGroup(c.Request().Context(), g, actor(c)); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, MutationResponse{OK: true, ID: string(g.ID)})
}

// DeleteGroup removes a group and everything it owns.
func (s *Service) DeleteGroup(c echo.Context) error {
	id := types.GroupID(c.Param("id"))
	if err := s.store.DeleteGroup(c.Request().Context(), id, actor(c)); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, MutationResponse{OK: true, ID: string(id)})
}

// MoveRequest shifts an item by offset positions; -1 is one earlier.
type MoveRequest struct {
	Offset int `json:"offset" validate:"required"`
}

// MoveGroup reorders a group within the global ordering.
func (s *Service) MoveGroup(c echo.Context) error {
	var req MoveRequest
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}
	id := types.GroupID(c.Param("id"))
	if err := s.store.MoveGroup(c.Request().Context(), id, req.Offset); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, MutationResponse{OK: true, ID: string(id)})
}
