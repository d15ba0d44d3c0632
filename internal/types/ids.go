package types

import (
	"time"

	"github.com/google/uuid"
)

// RuleID identifies a branching rule within its RuleSet.
// Editors may persist short human ids ("r1"); generated ids are UUIDv7.
type RuleID string

// NewRuleID generates a UUIDv7 rule identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewRuleID() RuleID {
	return RuleID(uuid.Must(uuid.NewV7()).String())
}

// NewAssignmentRuleID generates a UUIDv7 assignment rule identifier.
func NewAssignmentRuleID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewClaimID generates a UUIDv7 identifier for a completion claim.
// Time-ordered IDs keep step_completions inserts clustered.
func NewClaimID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// RuleIDTime extracts the timestamp embedded in a generated rule id.
// Returns zero time for non-UUID ids; caller should check IsZero().
func RuleIDTime(id RuleID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil || u.Version() != 7 {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
