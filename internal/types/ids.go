package types

import (
	"time"

	"github.com/google/uuid"
)

// GroupID represents a UUIDv7 filter rule group identifier.
// String alias enables type safety while maintaining JSON string serialization.
type GroupID string

// RuleID represents a UUIDv7 filter rule identifier.
type RuleID string

// MatchID represents a UUIDv7 match record identifier.
// UUIDv7 time-ordering ensures append-only match rows cluster in B-tree indexes.
type MatchID string

// NewGroupID generates a UUIDv7 group identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewGroupID() GroupID {
	return GroupID(uuid.Must(uuid.NewV7()).String())
}

// NewRuleID generates a UUIDv7 rule identifier.
func NewRuleID() RuleID {
	return RuleID(uuid.Must(uuid.NewV7()).String())
}

// NewMatchID generates a UUIDv7 match record identifier.
func NewMatchID() MatchID {
	return MatchID(uuid.Must(uuid.NewV7()).String())
}

// ParseGroupID validates and converts a string to GroupID.
// Rejects malformed UUIDs to prevent invalid IDs from entering the system.
func ParseGroupID(s string) (GroupID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return GroupID(s), nil
}

// ParseRuleID validates and converts a string to RuleID.
func ParseRuleID(s string) (RuleID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return RuleID(s), nil
}

// MatchIDTime extracts the timestamp embedded in a UUIDv7 match ID.
// Enables time-based history queries without a database lookup.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func MatchIDTime(id MatchID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
