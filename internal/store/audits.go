package store

import (
	"context"
	"time"
)

// AuditRecord is one entry in the administrative change log.
type AuditRecord struct {
	ID         string    `json:"audit_id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Change     string    `json:"change"`
	Actor      string    `json:"actor"`
	CreatedAt  time.Time `json:"created_at"`
}

type auditRow struct {
	AuditID    string `db:"audit_id"`
	EntityType string `db:"entity_type"`
	EntityID   string `db:"entity_id"`
	Change     string `db:"change"`
	Actor      string `db:"actor"`
	CreatedAt  string `db:"created_at"`
}

// AuditsForEntity lists the change log for one group or rule, oldest first.
func (s *Store) AuditsForEntity(ctx context.Context, entityType, entityID string) ([]AuditRecord, error) {
	var rows []auditRow
	if err := s.q.Select("audits-for-entity", &rows, entityType, entityID); err != nil {
		return nil, err
	}
	out := make([]AuditRecord, len(rows))
	for i, row := range rows {
		out[i] = AuditRecord{
			ID:         row.AuditID,
			EntityType: row.EntityType,
			EntityID:   row.EntityID,
			Change:     row.Change,
			Actor:      row.Actor,
			CreatedAt:  parseTime(row.CreatedAt),
		}
	}
	return out, nil
}
