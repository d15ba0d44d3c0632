package completion

import (
	"sync/atomic"

	"github.com/solatis/routekeeper/internal/types"
)

// Tracker records completions of one step instance.
// Complete returns true for exactly one call: the one that satisfied the step.
type Tracker interface {
	Complete(actorID string) (bool, error)
	Done() bool
}

// NewTracker picks the tracker for a step's completion mode: a Latch for
// ANY, a Progress over assignees for ALL. ALL needs at least one assignee.
func NewTracker(stepID string, mode types.CompletionMode, assignees []string) (Tracker, error) {
	if mode.Effective() == types.CompletionAll {
		if len(assignees) == 0 {
			return nil, types.NewValidationError("assignees", "ALL completion needs at least one assignee")
		}
		return NewProgress(stepID, assignees), nil
	}
	l := NewLatch(stepID)
	if len(assignees) > 0 {
		l.eligible = toSet(assignees)
	}
	return l, nil
}

// CheckEligible rejects an empty actor id, and an actor outside assignees
// when assignees is not empty. Claims decided outside a Latch use it so
// both paths accept the same actors.
func CheckEligible(stepID, actorID string, assignees []string) error {
	var eligible map[string]struct{}
	if len(assignees) > 0 {
		eligible = toSet(assignees)
	}
	return checkActor(stepID, actorID, eligible)
}

func checkActor(stepID, actorID string, eligible map[string]struct{}) error {
	if actorID == "" {
		return types.NewValidationError("actorId", "actor id is required")
	}
	if eligible == nil {
		return nil
	}
	if _, ok := eligible[actorID]; !ok {
		return types.Validationf("actorId", "%s is not assigned to step %s", actorID, stepID)
	}
	return nil
}

// Latch is the completion flag of an ANY-mode step. The first Complete wins
// through a single compare-and-swap; every other attempt, concurrent or
// later, gets *types.CompletionConflictError naming the winner.
type Latch struct {
	stepID   string
	winner   atomic.Pointer[string]
	eligible map[string]struct{} // nil accepts any actor
}

// NewLatch creates an open latch for stepID.
func NewLatch(stepID string) *Latch {
	return &Latch{stepID: stepID}
}

// Complete implements Tracker.
func (l *Latch) Complete(actorID string) (bool, error) {
	if err := checkActor(l.stepID, actorID, l.eligible); err != nil {
		return false, err
	}

	id := actorID
	if l.winner.CompareAndSwap(nil, &id) {
		return true, nil
	}
	return false, &types.CompletionConflictError{
		StepID:   l.stepID,
		ActorID:  actorID,
		WinnerID: l.Winner(),
	}
}

// Done implements Tracker.
func (l *Latch) Done() bool {
	return l.winner.Load() != nil
}

// Winner returns the completing actor, or "" while open.
func (l *Latch) Winner() string {
	if w := l.winner.Load(); w != nil {
		return *w
	}
	return ""
}

func toSet(ids []string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}
