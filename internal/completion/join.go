package completion

import (
	"sync"

	"github.com/solatis/routekeeper/internal/types"
)

// Join counts branch arrivals at a parallel gateway and fires once the
// policy's threshold is reached. Branches arriving after the join fired
// are told the gateway already completed.
type Join struct {
	gatewayID string
	threshold int
	branches  int

	mu      sync.Mutex
	arrived map[string]struct{}
	fired   bool
}

// NewJoin creates a join for p. p.M must be set.
func NewJoin(p types.CompletionPolicy) (*Join, error) {
	n, err := Threshold(p)
	if err != nil {
		return nil, err
	}
	if p.M < 1 {
		return nil, types.NewValidationError("m", "branch count is required to join")
	}
	return &Join{
		gatewayID: p.GatewayID,
		threshold: n,
		branches:  p.M,
		arrived:   make(map[string]struct{}, p.M),
	}, nil
}

// Arrive records branchID. It returns true for exactly one arrival: the one
// that reached the threshold.
func (j *Join) Arrive(branchID string) (bool, error) {
	if branchID == "" {
		return false, types.NewValidationError("branchId", "branch id is required")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.fired {
		return false, &types.CompletionConflictError{StepID: j.gatewayID, ActorID: branchID}
	}
	if _, dup := j.arrived[branchID]; dup {
		return false, &types.CompletionConflictError{StepID: j.gatewayID, ActorID: branchID, WinnerID: branchID}
	}
	if len(j.arrived) >= j.branches {
		return false, types.Validationf("branchId", "gateway %s has only %d branches", j.gatewayID, j.branches)
	}

	j.arrived[branchID] = struct{}{}
	if len(j.arrived) >= j.threshold {
		j.fired = true
		return true, nil
	}
	return false, nil
}

// Fired reports whether the threshold was reached.
func (j *Join) Fired() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fired
}

// Threshold returns the number of arrivals needed.
func (j *Join) Threshold() int {
	return j.threshold
}

// Arrived returns the number of recorded arrivals.
func (j *Join) Arrived() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.arrived)
}
