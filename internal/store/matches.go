package store

import (
	"context"
	"time"

	"github.com/triagekit/filtergate/internal/types"
)

// MatchRecord is one append-only audit entry linking a rule to a ticket.
// Never mutated; deleted only when its owning rule is deleted.
type MatchRecord struct {
	ID        types.MatchID `json:"match_id"`
	RuleID    types.RuleID  `json:"rule_id"`
	TicketID  string        `json:"ticket_id"`
	CreatedAt time.Time     `json:"created_at"`
}

type matchRow struct {
	MatchID   string `db:"match_id"`
	RuleID    string `db:"rule_id"`
	TicketID  string `db:"ticket_id"`
	CreatedAt string `db:"created_at"`
}

func matchFromRow(row matchRow) MatchRecord {
	return MatchRecord{
		ID:        types.MatchID(row.MatchID),
		RuleID:    types.RuleID(row.RuleID),
		TicketID:  row.TicketID,
		CreatedAt: parseTime(row.CreatedAt),
	}
}

// RecordMatch appends one match record. Called by the evaluation driver for
// every matching processing rule.
func (s *Store) RecordMatch(ctx context.Context, ruleID types.RuleID, ticketID string) error {
	query, err := s.q.Raw("insert-match")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query,
		string(types.NewMatchID()), string(ruleID), ticketID,
		formatTime(time.Now().UTC()),
	)
	return err
}

// MatchesByRule lists a rule's match history, oldest first.
func (s *Store) MatchesByRule(ctx context.Context, ruleID types.RuleID) ([]MatchRecord, error) {
	var rows []matchRow
	if err := s.q.Select("matches-by-rule", &rows, string(ruleID)); err != nil {
		return nil, err
	}
	out := make([]MatchRecord, len(rows))
	for i, row := range rows {
		out[i] = matchFromRow(row)
	}
	return out, nil
}

// MatchesByTicket lists every rule match recorded for a ticket, oldest first.
func (s *Store) MatchesByTicket(ctx context.Context, ticketID string) ([]MatchRecord, error) {
	var rows []matchRow
	if err := s.q.Select("matches-by-ticket", &rows, ticketID); err != nil {
		return nil, err
	}
	out := make([]MatchRecord, len(rows))
	for i, row := range rows {
		out[i] = matchFromRow(row)
	}
	return out, nil
}
