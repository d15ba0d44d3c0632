package completion

import (
	"sort"
	"sync"

	"github.com/solatis/routekeeper/internal/types"
)

// Progress tracks an ALL-mode step: every resolved assignee completes once,
// and the step is done when the last one does.
type Progress struct {
	stepID string

	mu        sync.Mutex
	pending   map[string]struct{}
	completed map[string]struct{}
	done      bool
}

// NewProgress creates a tracker over assignees. Duplicate ids collapse.
func NewProgress(stepID string, assignees []string) *Progress {
	return &Progress{
		stepID:    stepID,
		pending:   toSet(assignees),
		completed: make(map[string]struct{}, len(assignees)),
	}
}

// Complete implements Tracker. Completing twice is a conflict; an actor who
// was never assigned is a validation error.
func (p *Progress) Complete(actorID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.completed[actorID]; ok {
		return false, &types.CompletionConflictError{StepID: p.stepID, ActorID: actorID, WinnerID: actorID}
	}
	if _, ok := p.pending[actorID]; !ok {
		return false, types.Validationf("actorId", "%s is not assigned to step %s", actorID, p.stepID)
	}

	delete(p.pending, actorID)
	p.completed[actorID] = struct{}{}
	if len(p.pending) == 0 && !p.done {
		p.done = true
		return true, nil
	}
	return false, nil
}

// Done implements Tracker.
func (p *Progress) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Remaining returns the assignees who have not completed, sorted.
func (p *Progress) Remaining() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.pending))
	for id := range p.pending {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
