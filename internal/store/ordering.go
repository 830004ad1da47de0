package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/triagekit/filtergate/internal/types"
)

/*
 * Sort-order moves.
 *
 * Groups order globally; rules order within their (group, isGroupCondition)
 * scope. A move loads the full sibling set, swaps the item with the sibling
 * `offset` positions away, then renumbers everyone to a contiguous 1..N —
 * all inside one transaction, so concurrent movers cannot produce duplicate
 * or gapped sort orders. Sort-order changes are deliberately not audited.
 */

// sibling is one orderable item during a move.
type sibling struct {
	ID        string `db:"id"`
	SortOrder int    `db:"sort_order"`
}

// planMove returns the sibling IDs in their new 1..N order after moving the
// item at idx by offset. Fails without modifying anything when the target
// position falls outside the set.
func planMove(sibs []sibling, idx, offset int) ([]sibling, error) {
	if idx < 0 || idx >= len(sibs) {
		return nil, types.ErrRuleNotFound
	}
	target := idx + offset
	if target < 0 || target >= len(sibs) {
		return nil, types.ErrMoveOutOfBounds
	}

	out := make([]sibling, len(sibs))
	copy(out, sibs)
	out[idx], out[target] = out[target], out[idx]
	for i := range out {
		out[i].SortOrder = i + 1
	}
	return out, nil
}

// MoveGroup shifts a group by offset positions in the global group ordering
// and renumbers all groups to 1..N.
func (s *Store) MoveGroup(ctx context.Context, id types.GroupID, offset int) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		var rows []groupRow
		listQ, err := s.q.Raw("list-groups")
		if err != nil {
			return err
		}
		if err := tx.SelectContext(ctx, &rows, listQ); err != nil {
			return err
		}

		sibs := make([]sibling, len(rows))
		idx := -1
		for i, row := range rows {
			sibs[i] = sibling{ID: row.GroupID, SortOrder: row.SortOrder}
			if row.GroupID == string(id) {
				idx = i
			}
		}
		if idx < 0 {
			return types.ErrGroupNotFound
		}

		moved, err := planMove(sibs, idx, offset)
		if err != nil {
			return err
		}
		return s.applyOrder(ctx, tx, "set-group-sort-order", sibs, moved)
	})
}

// MoveGroupUp moves a group one position earlier; MoveGroupDown one later.
func (s *Store) MoveGroupUp(ctx context.Context, id types.GroupID) error {
	return s.MoveGroup(ctx, id, -1)
}

func (s *Store) MoveGroupDown(ctx context.Context, id types.GroupID) error {
	return s.MoveGroup(ctx, id, 1)
}

// MoveRule shifts a rule by offset positions among its siblings (same group,
// same group-condition role) and renumbers the siblings to 1..N.
func (s *Store) MoveRule(ctx context.Context, id types.RuleID, offset int) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		row, err := s.getRuleRowTx(ctx, tx, string(id))
		if err != nil {
			return err
		}

		var rows []ruleRow
		listQ, err := s.q.Raw("list-sibling-rules")
		if err != nil {
			return err
		}
		if err := tx.SelectContext(ctx, &rows, listQ, row.GroupID, row.IsGroupCondition); err != nil {
			return err
		}

		sibs := make([]sibling, len(rows))
		idx := -1
		for i, r := range rows {
			sibs[i] = sibling{ID: r.RuleID, SortOrder: r.SortOrder}
			if r.RuleID == string(id) {
				idx = i
			}
		}
		if idx < 0 {
			return types.ErrRuleNotFound
		}

		moved, err := planMove(sibs, idx, offset)
		if err != nil {
			return err
		}
		return s.applyOrder(ctx, tx, "set-rule-sort-order", sibs, moved)
	})
}

// MoveRuleUp moves a rule one position earlier; MoveRuleDown one later.
func (s *Store) MoveRuleUp(ctx context.Context, id types.RuleID) error {
	return s.MoveRule(ctx, id, -1)
}

func (s *Store) MoveRuleDown(ctx context.Context, id types.RuleID) error {
	return s.MoveRule(ctx, id, 1)
}

// applyOrder writes only the sort orders that actually changed.
func (s *Store) applyOrder(ctx context.Context, tx *sqlx.Tx, queryName string, before, after []sibling) error {
	query, err := s.q.Raw(queryName)
	if err != nil {
		return err
	}

	prev := make(map[string]int, len(before))
	for _, sib := range before {
		prev[sib.ID] = sib.SortOrder
	}
	for _, sib := range after {
		if prev[sib.ID] == sib.SortOrder {
			continue
		}
		if _, err := tx.ExecContext(ctx, query, sib.SortOrder, sib.ID); err != nil {
			return err
		}
	}
	return nil
}

// renumberGroupsTx restores the contiguous 1..N group ordering, preserving
// the current relative order. Used after deletes.
func (s *Store) renumberGroupsTx(ctx context.Context, tx *sqlx.Tx) error {
	var rows []groupRow
	listQ, err := s.q.Raw("list-groups")
	if err != nil {
		return err
	}
	if err := tx.SelectContext(ctx, &rows, listQ); err != nil {
		return err
	}

	query, err := s.q.Raw("set-group-sort-order")
	if err != nil {
		return err
	}
	for i, row := range rows {
		if row.SortOrder == i+1 {
			continue
		}
		if _, err := tx.ExecContext(ctx, query, i+1, row.GroupID); err != nil {
			return err
		}
	}
	return nil
}

// renumberRulesTx restores the 1..N ordering within one sibling scope.
func (s *Store) renumberRulesTx(ctx context.Context, tx *sqlx.Tx, groupID string, isGroupCondition bool) error {
	var rows []ruleRow
	listQ, err := s.q.Raw("list-sibling-rules")
	if err != nil {
		return err
	}
	if err := tx.SelectContext(ctx, &rows, listQ, groupID, isGroupCondition); err != nil {
		return err
	}

	query, err := s.q.Raw("set-rule-sort-order")
	if err != nil {
		return err
	}
	for i, row := range rows {
		if row.SortOrder == i+1 {
			continue
		}
		if _, err := tx.ExecContext(ctx, query, i+1, row.RuleID); err != nil {
			return err
		}
	}
	return nil
}
