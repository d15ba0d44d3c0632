package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/routekeeper/internal/types"
)

// Completion is the persisted winner of an ANY-mode step instance.
type Completion struct {
	StepInstanceID string
	ActorID        string
	CompletedAt    time.Time
}

type completionRow struct {
	StepInstanceID string `db:"step_instance_id"`
	ActorID        string `db:"actor_id"`
	CompletedAt    string `db:"completed_at"`
}

// ClaimCompletion records actorID as the completer of a step instance.
// The claim is a single conditional insert, so across any number of
// processes exactly one claim per instance succeeds. Every other claim gets
// *types.CompletionConflictError naming the winner.
func (s *Store) ClaimCompletion(ctx context.Context, stepInstanceID, actorID string) error {
	if stepInstanceID == "" {
		return types.NewValidationError("stepInstanceId", "step instance id is required")
	}
	if actorID == "" {
		return types.NewValidationError("actorId", "actor id is required")
	}

	res, err := s.q.Exec(ctx, "claim-completion", stepInstanceID, actorID, s.timestamp())
	if err != nil {
		return fmt.Errorf("claim completion of %q: %w", stepInstanceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim completion of %q: %w", stepInstanceID, err)
	}
	if n == 1 {
		return nil
	}

	conflict := &types.CompletionConflictError{StepID: stepInstanceID, ActorID: actorID}
	if c, found, err := s.GetCompletion(ctx, stepInstanceID); err == nil && found {
		conflict.WinnerID = c.ActorID
	}
	return conflict
}

// GetCompletion returns the recorded winner of a step instance.
func (s *Store) GetCompletion(ctx context.Context, stepInstanceID string) (Completion, bool, error) {
	var row completionRow
	if err := s.q.Get(ctx, "get-completion", &row, stepInstanceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Completion{}, false, nil
		}
		return Completion{}, false, fmt.Errorf("get completion of %q: %w", stepInstanceID, err)
	}
	c := Completion{StepInstanceID: row.StepInstanceID, ActorID: row.ActorID}
	if at, err := time.Parse(time.RFC3339Nano, row.CompletedAt); err == nil {
		c.CompletedAt = at
	}
	return c, true, nil
}
