// Package store persists filter rule groups, rules, match history, and the
// audit trail. Every mutating operation runs inside one transaction: a
// failure rolls back fully, and each logical change writes one audit row
// (sort-order-only changes write none, to keep the log readable).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	coredb "github.com/triagekit/filtergate/internal/core/db"
	"github.com/triagekit/filtergate/internal/filter"
	"github.com/triagekit/filtergate/internal/types"
)

// Store provides filter rule persistence over sqlx with dotsql named queries.
type Store struct {
	db  *sqlx.DB
	q   *coredb.Queries
	reg *filter.Registry
	log zerolog.Logger
}

// New creates a store. The registry is used to validate condition/action
// kinds and capability constraints on create/update.
func New(q *coredb.Queries, reg *filter.Registry, log zerolog.Logger) *Store {
	return &Store{db: q.DB(), q: q, reg: reg, log: log}
}

type groupRow struct {
	GroupID           string `db:"group_id"`
	Name              string `db:"name"`
	SortOrder         int    `db:"sort_order"`
	Disabled          bool   `db:"disabled"`
	CanMatchQueues    string `db:"can_match_queues"`
	CanTransferQueues string `db:"can_transfer_queues"`
	CanUseGroups      string `db:"can_use_groups"`
	CreatedBy         string `db:"created_by"`
	CreatedAt         string `db:"created_at"`
	UpdatedAt         string `db:"updated_at"`
}

type ruleRow struct {
	RuleID           string `db:"rule_id"`
	GroupID          string `db:"group_id"`
	IsGroupCondition bool   `db:"is_group_condition"`
	SortOrder        int    `db:"sort_order"`
	Name             string `db:"name"`
	TriggerType      string `db:"trigger_type"`
	StopIfMatched    bool   `db:"stop_if_matched"`
	Disabled         bool   `db:"disabled"`
	Conflicts        []byte `db:"conflicts"`
	Requirements     []byte `db:"requirements"`
	Actions          []byte `db:"actions"`
	CreatedBy        string `db:"created_by"`
	CreatedAt        string `db:"created_at"`
	UpdatedAt        string `db:"updated_at"`
}

func (s *Store) groupFromRow(row groupRow) *filter.Group {
	g := &filter.Group{
		ID:        types.GroupID(row.GroupID),
		Name:      row.Name,
		SortOrder: row.SortOrder,
		Disabled:  row.Disabled,
		CreatedBy: row.CreatedBy,
		CreatedAt: parseTime(row.CreatedAt),
		UpdatedAt: parseTime(row.UpdatedAt),
	}
	g.CanMatchQueues = decodeStrings(row.CanMatchQueues, s.log)
	g.CanTransferQueues = decodeStrings(row.CanTransferQueues, s.log)
	g.CanUseGroups = decodeStrings(row.CanUseGroups, s.log)
	return g
}

func (s *Store) ruleFromRow(row ruleRow) *filter.Rule {
	return &filter.Rule{
		ID:               types.RuleID(row.RuleID),
		GroupID:          types.GroupID(row.GroupID),
		IsGroupCondition: row.IsGroupCondition,
		SortOrder:        row.SortOrder,
		Name:             row.Name,
		Trigger:          types.TriggerType(row.TriggerType),
		StopIfMatched:    row.StopIfMatched,
		Disabled:         row.Disabled,
		Conflicts:        filter.DecodeConditions(row.Conflicts, s.log),
		Requirements:     filter.DecodeConditions(row.Requirements, s.log),
		Actions:          filter.DecodeActions(row.Actions, s.log),
		CreatedBy:        row.CreatedBy,
		CreatedAt:        parseTime(row.CreatedAt),
		UpdatedAt:        parseTime(row.UpdatedAt),
	}
}

// CreateGroup inserts a new group, appending it to the end of the group
// ordering. Assigns the ID and timestamps on success.
func (s *Store) CreateGroup(ctx context.Context, g *filter.Group, actor string) error {
	if g.Name == "" {
		return fmt.Errorf("%w: group name is required", types.ErrValidation)
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		maxQ, err := s.q.Raw("max-group-sort-order")
		if err != nil {
			return err
		}
		var max int
		if err := tx.GetContext(ctx, &max, maxQ); err != nil {
			return err
		}

		if g.ID == "" {
			g.ID = types.NewGroupID()
		}
		g.SortOrder = max + 1
		now := time.Now().UTC()
		g.CreatedBy = actor
		g.CreatedAt = now
		g.UpdatedAt = now

		insQ, err := s.q.Raw("insert-group")
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insQ,
			string(g.ID), g.Name, g.SortOrder, g.Disabled,
			encodeStrings(g.CanMatchQueues), encodeStrings(g.CanTransferQueues), encodeStrings(g.CanUseGroups),
			actor, formatTime(now), formatTime(now),
		); err != nil {
			return err
		}

		return s.audit(ctx, tx, "group", string(g.ID), "created group "+g.Name, actor)
	})
}

// UpdateGroup applies name/disabled/capability changes to an existing group.
// Sort order is only changed through MoveGroup.
func (s *Store) UpdateGroup(ctx context.Context, g *filter.Group, actor string) error {
	if g.Name == "" {
		return fmt.Errorf("%w: group name is required", types.ErrValidation)
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.getGroupRowTx(ctx, tx, string(g.ID)); err != nil {
			return err
		}

		now := time.Now().UTC()
		updQ, err := s.q.Raw("update-group")
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, updQ,
			g.Name, g.Disabled,
			encodeStrings(g.CanMatchQueues), encodeStrings(g.CanTransferQueues), encodeStrings(g.CanUseGroups),
			formatTime(now), string(g.ID),
		); err != nil {
			return err
		}
		g.UpdatedAt = now

		return s.audit(ctx, tx, "group", string(g.ID), "updated group "+g.Name, actor)
	})
}

// DeleteGroup removes a group, cascading to its rules and their match
// history, then renumbers the remaining groups to 1..N.
func (s *Store) DeleteGroup(ctx context.Context, id types.GroupID, actor string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		row, err := s.getGroupRowTx(ctx, tx, string(id))
		if err != nil {
			return err
		}

		for _, name := range []string{"delete-matches-for-group", "delete-rules-in-group", "delete-group"} {
			query, err := s.q.Raw(name)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, string(id)); err != nil {
				return err
			}
		}

		if err := s.renumberGroupsTx(ctx, tx); err != nil {
			return err
		}

		return s.audit(ctx, tx, "group", string(id), "deleted group "+row.Name, actor)
	})
}

// GetGroup loads one group with both rule collections ordered and decoded.
func (s *Store) GetGroup(ctx context.Context, id types.GroupID) (*filter.Group, error) {
	var row groupRow
	if err := s.q.Get("get-group", &row, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrGroupNotFound
		}
		return nil, err
	}
	g := s.groupFromRow(row)
	if err := s.loadRules(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// ListGroups loads all groups, rules included, ordered by sort order.
func (s *Store) ListGroups(ctx context.Context) ([]*filter.Group, error) {
	var rows []groupRow
	if err := s.q.Select("list-groups", &rows); err != nil {
		return nil, err
	}
	return s.hydrateGroups(ctx, rows)
}

// ListEnabledGroups loads enabled groups for an evaluation pass, ascending
// sort order. Disabled rules are loaded but skipped during evaluation.
func (s *Store) ListEnabledGroups(ctx context.Context) ([]*filter.Group, error) {
	var rows []groupRow
	if err := s.q.Select("list-enabled-groups", &rows, false); err != nil {
		return nil, err
	}
	return s.hydrateGroups(ctx, rows)
}

func (s *Store) hydrateGroups(ctx context.Context, rows []groupRow) ([]*filter.Group, error) {
	groups := make([]*filter.Group, 0, len(rows))
	for _, row := range rows {
		g := s.groupFromRow(row)
		if err := s.loadRules(ctx, g); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func (s *Store) loadRules(ctx context.Context, g *filter.Group) error {
	var rows []ruleRow
	if err := s.q.Select("list-rules-for-group", &rows, string(g.ID)); err != nil {
		return err
	}
	for _, row := range rows {
		r := s.ruleFromRow(row)
		if r.IsGroupCondition {
			g.GroupConditions = append(g.GroupConditions, r)
		} else {
			g.Rules = append(g.Rules, r)
		}
	}
	g.SortRules()
	return nil
}

// CreateRule inserts a rule at the end of its (group, isGroupCondition)
// sibling ordering. Validates kinds and the owning group's capability sets
// before any write.
func (s *Store) CreateRule(ctx context.Context, r *filter.Rule, actor string) error {
	if err := s.validateRule(r); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		groupRow, err := s.getGroupRowTx(ctx, tx, string(r.GroupID))
		if err != nil {
			return err
		}
		if err := s.groupFromRow(groupRow).PermitsRule(s.reg, r); err != nil {
			return fmt.Errorf("%w: %v", types.ErrValidation, err)
		}

		maxQ, err := s.q.Raw("max-rule-sort-order")
		if err != nil {
			return err
		}
		var max int
		if err := tx.GetContext(ctx, &max, maxQ, string(r.GroupID), r.IsGroupCondition); err != nil {
			return err
		}

		if r.ID == "" {
			r.ID = types.NewRuleID()
		}
		r.SortOrder = max + 1
		now := time.Now().UTC()
		r.CreatedBy = actor
		r.CreatedAt = now
		r.UpdatedAt = now

		conflicts, requirements, actions, err := encodeRuleBlobs(r)
		if err != nil {
			return err
		}

		insQ, err := s.q.Raw("insert-rule")
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insQ,
			string(r.ID), string(r.GroupID), r.IsGroupCondition, r.SortOrder,
			r.Name, string(r.Trigger), r.StopIfMatched, r.Disabled,
			conflicts, requirements, actions,
			actor, formatTime(now), formatTime(now),
		); err != nil {
			return err
		}

		return s.audit(ctx, tx, "rule", string(r.ID), "created rule "+r.Name, actor)
	})
}

// UpdateRule applies changes to an existing rule. The owning group and the
// group-condition flag are immutable; sort order only changes via MoveRule.
func (s *Store) UpdateRule(ctx context.Context, r *filter.Rule, actor string) error {
	if err := s.validateRule(r); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := s.getRuleRowTx(ctx, tx, string(r.ID))
		if err != nil {
			return err
		}
		if existing.GroupID != string(r.GroupID) || existing.IsGroupCondition != r.IsGroupCondition {
			return fmt.Errorf("%w: a rule cannot change its group or group-condition role", types.ErrValidation)
		}

		groupRow, err := s.getGroupRowTx(ctx, tx, existing.GroupID)
		if err != nil {
			return err
		}
		if err := s.groupFromRow(groupRow).PermitsRule(s.reg, r); err != nil {
			return fmt.Errorf("%w: %v", types.ErrValidation, err)
		}

		conflicts, requirements, actions, err := encodeRuleBlobs(r)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		updQ, err := s.q.Raw("update-rule")
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, updQ,
			r.Name, string(r.Trigger), r.StopIfMatched, r.Disabled,
			conflicts, requirements, actions,
			formatTime(now), string(r.ID),
		); err != nil {
			return err
		}
		r.UpdatedAt = now

		return s.audit(ctx, tx, "rule", string(r.ID), "updated rule "+r.Name, actor)
	})
}

// DeleteRule removes a rule together with its match history, then renumbers
// the remaining siblings to 1..N.
func (s *Store) DeleteRule(ctx context.Context, id types.RuleID, actor string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		row, err := s.getRuleRowTx(ctx, tx, string(id))
		if err != nil {
			return err
		}

		delMatchesQ, err := s.q.Raw("delete-matches-for-rule")
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, delMatchesQ, string(id)); err != nil {
			return err
		}

		delQ, err := s.q.Raw("delete-rule")
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, delQ, string(id)); err != nil {
			return err
		}

		if err := s.renumberRulesTx(ctx, tx, row.GroupID, row.IsGroupCondition); err != nil {
			return err
		}

		return s.audit(ctx, tx, "rule", string(id), "deleted rule "+row.Name, actor)
	})
}

// GetRule loads one rule with decoded condition/action sequences.
func (s *Store) GetRule(ctx context.Context, id types.RuleID) (*filter.Rule, error) {
	var row ruleRow
	if err := s.q.Get("get-rule", &row, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrRuleNotFound
		}
		return nil, err
	}
	return s.ruleFromRow(row), nil
}

// validateRule rejects unknown kinds and bad field values before any write.
func (s *Store) validateRule(r *filter.Rule) error {
	if r.Name == "" {
		return fmt.Errorf("%w: rule name is required", types.ErrValidation)
	}
	if r.GroupID == "" {
		return fmt.Errorf("%w: rule must belong to a group", types.ErrValidation)
	}
	if _, err := types.ParseTriggerType(string(r.Trigger)); err != nil {
		return fmt.Errorf("%w: invalid trigger type %q", types.ErrValidation, r.Trigger)
	}

	kinds := s.reg.ConditionKinds("")
	known := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		known[k.Kind] = true
	}
	for _, c := range append(append([]filter.Condition{}, r.Conflicts...), r.Requirements...) {
		if !known[c.Kind] {
			return fmt.Errorf("%w: %w %q", types.ErrValidation, types.ErrUnknownConditionKind, c.Kind)
		}
	}

	actKinds := s.reg.ActionKinds("")
	knownActs := make(map[string]bool, len(actKinds))
	for _, k := range actKinds {
		knownActs[k.Kind] = true
	}
	for _, a := range r.Actions {
		if !knownActs[a.Kind] {
			return fmt.Errorf("%w: %w %q", types.ErrValidation, types.ErrUnknownActionKind, a.Kind)
		}
	}

	if r.IsGroupCondition && len(r.Actions) > 0 {
		return fmt.Errorf("%w: group-condition rules cannot carry actions", types.ErrValidation)
	}
	return nil
}

func encodeRuleBlobs(r *filter.Rule) (conflicts, requirements, actions []byte, err error) {
	if conflicts, err = filter.EncodeConditions(r.Conflicts); err != nil {
		return nil, nil, nil, err
	}
	if requirements, err = filter.EncodeConditions(r.Requirements); err != nil {
		return nil, nil, nil, err
	}
	if actions, err = filter.EncodeActions(r.Actions); err != nil {
		return nil, nil, nil, err
	}
	return conflicts, requirements, actions, nil
}

func (s *Store) getGroupRowTx(ctx context.Context, tx *sqlx.Tx, id string) (groupRow, error) {
	query, err := s.q.Raw("get-group")
	if err != nil {
		return groupRow{}, err
	}
	var row groupRow
	if err := tx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return groupRow{}, types.ErrGroupNotFound
		}
		return groupRow{}, err
	}
	return row, nil
}

func (s *Store) getRuleRowTx(ctx context.Context, tx *sqlx.Tx, id string) (ruleRow, error) {
	query, err := s.q.Raw("get-rule")
	if err != nil {
		return ruleRow{}, err
	}
	var row ruleRow
	if err := tx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ruleRow{}, types.ErrRuleNotFound
		}
		return ruleRow{}, err
	}
	return row, nil
}

func (s *Store) audit(ctx context.Context, tx *sqlx.Tx, entityType, entityID, change, actor string) error {
	query, err := s.q.Raw("insert-audit")
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query,
		uuid.Must(uuid.NewV7()).String(), entityType, entityID, change, actor,
		formatTime(time.Now().UTC()),
	)
	return err
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func encodeStrings(vals []string) string {
	if vals == nil {
		vals = []string{}
	}
	b, _ := json.Marshal(vals)
	return string(b)
}

func decodeStrings(data string, log zerolog.Logger) []string {
	if data == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		log.Warn().Err(err).Msg("corrupt capability set; treating as empty")
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
