// Package api provides the gRPC RouteKeeper service: previews for editor
// sessions, expression compile and parse, outcome export, step
// configuration storage, completion policy saves, step completion claims
// and parallel-branch joins.
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"github.com/solatis/routekeeper/internal/completion"
	"github.com/solatis/routekeeper/internal/core/store"
	"github.com/solatis/routekeeper/internal/outcome"
	"github.com/solatis/routekeeper/internal/preview"
	"github.com/solatis/routekeeper/internal/rules"
	"github.com/solatis/routekeeper/internal/telemetry"
	"github.com/solatis/routekeeper/internal/types"
)

// Defaults for how long and how many finished steps and joins are kept.
const (
	DefaultRetention   = 15 * time.Minute
	DefaultMaxFinished = 100000
)

// Claimer persists ANY-mode completion claims. *store.Store implements it.
type Claimer interface {
	ClaimCompletion(ctx context.Context, stepInstanceID, actorID string) error
}

// ConfigStore persists the configuration of a step. *store.Store
// implements it. Failed saves return *store.SaveError.
type ConfigStore interface {
	SaveBranching(ctx context.Context, stepID string, set types.RuleSet) error
	LoadBranching(ctx context.Context, stepID string) (store.Record[types.RuleSet], error)
	DeleteBranching(ctx context.Context, stepID string) error
	SaveOutcomes(ctx context.Context, stepID string, cfg types.OutcomeConfig) error
	LoadOutcomes(ctx context.Context, stepID string) (store.Record[types.OutcomeConfig], error)
	DeleteOutcomes(ctx context.Context, stepID string) error
	SaveAssignment(ctx context.Context, stepID string, cfg types.AssignmentConfig) error
	LoadAssignment(ctx context.Context, stepID string) (store.Record[types.AssignmentConfig], error)
	DeleteAssignment(ctx context.Context, stepID string) error
}

var _ ConfigStore = (*store.Store)(nil)

// Deps are the collaborators of a Service.
type Deps struct {
	Engine   *rules.Engine
	Registry *outcome.Registry
	Hub      *preview.Hub
	Policies completion.PolicyStore // nil selects an in-memory store
	Claims   Claimer                // nil keeps ANY claims in process
	Configs  ConfigStore            // nil disables step configuration storage
	Metrics  *telemetry.Metrics     // may be nil
	Logger   zerolog.Logger

	// Retention is how long finished steps and fired joins are remembered
	// after they leave memory; MaxFinished caps how many are. Zero selects
	// the defaults.
	Retention   time.Duration
	MaxFinished int
}

// Service implements RouteKeeperServer.
// Thin orchestration layer delegating to the domain packages.
type Service struct {
	engine   *rules.Engine
	registry *outcome.Registry
	hub      *preview.Hub
	policies completion.PolicyStore
	claims   Claimer
	configs  ConfigStore
	metrics  *telemetry.Metrics
	logger   zerolog.Logger

	// Open trackers and joins live in the maps. Once a step completes or a
	// join fires it moves to finished, keyed the same way and holding the
	// actor or branch that finished it.
	mu       sync.Mutex
	trackers map[string]completion.Tracker // step instance id -> tracker
	joins    map[string]*completion.Join   // gateway id + instance id -> join
	finished *expirable.LRU[string, string]
}

var _ RouteKeeperServer = (*Service)(nil)

// NewService creates a service instance with dependencies.
func NewService(d Deps) (*Service, error) {
	if d.Engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if d.Registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if d.Hub == nil {
		return nil, fmt.Errorf("hub cannot be nil")
	}
	if d.Policies == nil {
		d.Policies = completion.NewMemoryStore()
	}
	if d.Retention <= 0 {
		d.Retention = DefaultRetention
	}
	if d.MaxFinished <= 0 {
		d.MaxFinished = DefaultMaxFinished
	}

	return &Service{
		engine:   d.Engine,
		registry: d.Registry,
		hub:      d.Hub,
		policies: d.Policies,
		claims:   d.Claims,
		configs:  d.Configs,
		metrics:  d.Metrics,
		logger:   d.Logger.With().Str("component", "api").Logger(),
		trackers: make(map[string]completion.Tracker),
		joins:    make(map[string]*completion.Join),
		finished: expirable.NewLRU[string, string](d.MaxFinished, nil, d.Retention),
	}, nil
}

func stepKey(stepInstanceID string) string {
	return "step:" + stepInstanceID
}

func joinKey(gatewayID, instanceID string) string {
	return "join:" + gatewayID + "/" + instanceID
}

// complete records actorID against the in-process tracker of a step
// instance. The tracker is created with mode and assignees on first use;
// later calls ignore both. A request that cannot build a tracker leaves
// nothing behind, so a corrected retry starts clean.
func (s *Service) complete(stepInstanceID, actorID string, mode types.CompletionMode, assignees []string) (bool, completion.Tracker, error) {
	key := stepKey(stepInstanceID)

	s.mu.Lock()
	if winner, ok := s.finished.Get(key); ok {
		s.mu.Unlock()
		return false, nil, &types.CompletionConflictError{StepID: stepInstanceID, ActorID: actorID, WinnerID: winner}
	}
	t, ok := s.trackers[stepInstanceID]
	if !ok {
		var err error
		t, err = completion.NewTracker(stepInstanceID, mode, assignees)
		if err != nil {
			s.mu.Unlock()
			return false, nil, err
		}
		s.trackers[stepInstanceID] = t
	}
	s.mu.Unlock()

	done, err := t.Complete(actorID)
	if err != nil {
		return false, t, err
	}
	if done {
		s.mu.Lock()
		delete(s.trackers, stepInstanceID)
		s.finished.Add(key, actorID)
		s.mu.Unlock()
	}
	return done, t, nil
}

// arrive records a branch at the join of one gateway instance, building
// the join from the gateway's stored policy on first use. A policy saved
// later does not affect joins already under way.
func (s *Service) arrive(ctx context.Context, gatewayID, instanceID, branchID string) (bool, *completion.Join, error) {
	key := joinKey(gatewayID, instanceID)

	j, err := s.openJoin(ctx, gatewayID, branchID, key)
	if err != nil {
		return false, nil, err
	}
	fired, err := j.Arrive(branchID)
	if err != nil {
		return false, j, err
	}
	if fired {
		s.mu.Lock()
		delete(s.joins, key)
		s.finished.Add(key, branchID)
		s.mu.Unlock()
	}
	return fired, j, nil
}

func (s *Service) openJoin(ctx context.Context, gatewayID, branchID, key string) (*completion.Join, error) {
	lookup := func() (*completion.Join, error) {
		if firedBy, ok := s.finished.Get(key); ok {
			return nil, &types.CompletionConflictError{StepID: gatewayID, ActorID: branchID, WinnerID: firedBy}
		}
		return s.joins[key], nil
	}

	s.mu.Lock()
	j, err := lookup()
	s.mu.Unlock()
	if err != nil || j != nil {
		return j, err
	}

	p, err := s.policies.GetPolicy(ctx, gatewayID)
	if err != nil {
		return nil, err
	}
	built, err := completion.NewJoin(p)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if j, err := lookup(); err != nil || j != nil {
		return j, err
	}
	s.joins[key] = built
	return built, nil
}
