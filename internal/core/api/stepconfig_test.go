package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/routekeeper/internal/core/store"
	"github.com/solatis/routekeeper/internal/types"
)

// memConfigs is an in-memory ConfigStore. Saves of kind failKind fail.
type memConfigs struct {
	mu         sync.Mutex
	branching  map[string]store.Record[types.RuleSet]
	outcomes   map[string]store.Record[types.OutcomeConfig]
	assignment map[string]store.Record[types.AssignmentConfig]
	failKind   string
}

func newMemConfigs() *memConfigs {
	return &memConfigs{
		branching:  map[string]store.Record[types.RuleSet]{},
		outcomes:   map[string]store.Record[types.OutcomeConfig]{},
		assignment: map[string]store.Record[types.AssignmentConfig]{},
	}
}

func memSave[T any](m *memConfigs, kind string, records map[string]store.Record[T], stepID string, cfg T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if kind == m.failKind {
		return &store.SaveError{Kind: kind, Key: stepID, Payload: cfg, Err: errors.New("database is locked")}
	}
	rev := records[stepID].Revision + 1
	records[stepID] = store.Record[T]{StepID: stepID, Config: cfg, Revision: rev}
	return nil
}

func memLoad[T any](m *memConfigs, kind string, records map[string]store.Record[T], stepID string) (store.Record[T], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := records[stepID]
	if !ok {
		return rec, fmt.Errorf("%s for step %q: %w", kind, stepID, types.ErrConfigNotFound)
	}
	return rec, nil
}

func memDelete[T any](m *memConfigs, records map[string]store.Record[T], stepID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(records, stepID)
	return nil
}

func (m *memConfigs) SaveBranching(ctx context.Context, stepID string, set types.RuleSet) error {
	return memSave(m, "branching", m.branching, stepID, set)
}

func (m *memConfigs) LoadBranching(ctx context.Context, stepID string) (store.Record[types.RuleSet], error) {
	return memLoad(m, "branching", m.branching, stepID)
}

func (m *memConfigs) DeleteBranching(ctx context.Context, stepID string) error {
	return memDelete(m, m.branching, stepID)
}

func (m *memConfigs) SaveOutcomes(ctx context.Context, stepID string, cfg types.OutcomeConfig) error {
	return memSave(m, "outcomes", m.outcomes, stepID, cfg)
}

func (m *memConfigs) LoadOutcomes(ctx context.Context, stepID string) (store.Record[types.OutcomeConfig], error) {
	return memLoad(m, "outcomes", m.outcomes, stepID)
}

func (m *memConfigs) DeleteOutcomes(ctx context.Context, stepID string) error {
	return memDelete(m, m.outcomes, stepID)
}

func (m *memConfigs) SaveAssignment(ctx context.Context, stepID string, cfg types.AssignmentConfig) error {
	return memSave(m, "assignment", m.assignment, stepID, cfg)
}

func (m *memConfigs) LoadAssignment(ctx context.Context, stepID string) (store.Record[types.AssignmentConfig], error) {
	return memLoad(m, "assignment", m.assignment, stepID)
}

func (m *memConfigs) DeleteAssignment(ctx context.Context, stepID string) error {
	return memDelete(m, m.assignment, stepID)
}

func stepConfigRequest() map[string]any {
	return map[string]any{
		"stepId": "review",
		"outcomes": map[string]any{"options": []any{
			map[string]any{"actionType": "APPROVE", "label": "Approve", "sets": map[string]any{"decision": "approved"}},
			map[string]any{"actionType": "REJECT", "label": "Reject", "sets": map[string]any{"decision": "rejected"}},
		}},
		"branching": map[string]any{
			"conditions": []any{map[string]any{
				"id":         "r1",
				"conditions": []any{map[string]any{"field": "decision", "operator": "EQUALS", "value": "approved"}},
				"targetStep": "pay",
			}},
			"defaultTarget": "rework",
		},
		"assignment": map[string]any{
			"rules": []any{map[string]any{"id": "a1", "criteria": map[string]any{"role": []any{"R1"}}}},
		},
	}
}

func TestService_StepConfigRoundTrip(t *testing.T) {
	configs := newMemConfigs()
	env := newTestEnv(t, nil, func(d *Deps) { d.Configs = configs })
	ctx := context.Background()

	var saved stepConfigResponse
	if err := env.client.CallJSON(ctx, MethodSaveStepConfig, stepConfigRequest(), &saved); err != nil {
		t.Fatalf("SaveStepConfig() error = %v", err)
	}
	for _, kind := range []string{"branching", "outcomes", "assignment"} {
		if saved.Revisions[kind] != 1 {
			t.Errorf("revision of %s = %d, want 1", kind, saved.Revisions[kind])
		}
	}

	// Branching alone validates against the stored outcomes.
	again := map[string]any{"stepId": "review", "branching": stepConfigRequest()["branching"]}
	if err := env.client.CallJSON(ctx, MethodSaveStepConfig, again, &saved); err != nil {
		t.Fatalf("SaveStepConfig(branching) error = %v", err)
	}
	if saved.Revisions["branching"] != 2 || saved.Revisions["outcomes"] != 1 {
		t.Errorf("revisions = %v", saved.Revisions)
	}

	var loaded stepConfigResponse
	req := map[string]any{"stepId": "review", "sessionId": "editor-1"}
	if err := env.client.CallJSON(ctx, MethodLoadStepConfig, req, &loaded); err != nil {
		t.Fatalf("LoadStepConfig() error = %v", err)
	}
	if loaded.Branching == nil || loaded.Branching.DefaultTarget != "rework" || loaded.Outcomes == nil || len(loaded.Outcomes.Options) != 2 {
		t.Fatalf("LoadStepConfig() = %+v", loaded)
	}

	d := env.svc.hub.Session("editor-1").Snapshot().Draft()
	if d.RuleSet.DefaultTarget != "rework" || len(d.Outcomes.Options) != 2 || len(d.Assignment.Rules) != 1 {
		t.Errorf("session draft not seeded: %+v", d)
	}

	if err := env.client.CallJSON(ctx, MethodDeleteStepConfig, map[string]any{"stepId": "review"}, &struct{}{}); err != nil {
		t.Fatalf("DeleteStepConfig() error = %v", err)
	}
	err := env.client.CallJSON(ctx, MethodLoadStepConfig, map[string]any{"stepId": "review"}, &loaded)
	if status.Code(err) != codes.NotFound {
		t.Errorf("load after delete error = %v, want NotFound", err)
	}
}

func TestService_SaveStepConfigErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("storage disabled", func(t *testing.T) {
		env := newTestEnv(t, nil)
		err := env.client.CallJSON(ctx, MethodSaveStepConfig, stepConfigRequest(), &struct{}{})
		if status.Code(err) != codes.FailedPrecondition {
			t.Errorf("error = %v, want FailedPrecondition", err)
		}
	})

	t.Run("invalid branching", func(t *testing.T) {
		configs := newMemConfigs()
		env := newTestEnv(t, nil, func(d *Deps) { d.Configs = configs })
		req := stepConfigRequest()
		req["branching"].(map[string]any)["defaultTarget"] = ""
		err := env.client.CallJSON(ctx, MethodSaveStepConfig, req, &struct{}{})
		if status.Code(err) != codes.InvalidArgument {
			t.Errorf("error = %v, want InvalidArgument", err)
		}
		if len(configs.outcomes) != 0 {
			t.Error("invalid request saved outcomes")
		}
	})

	t.Run("failed save returns payload", func(t *testing.T) {
		configs := newMemConfigs()
		configs.failKind = "branching"
		env := newTestEnv(t, nil, func(d *Deps) { d.Configs = configs })

		err := env.client.CallJSON(ctx, MethodSaveStepConfig, stepConfigRequest(), &struct{}{})
		st := status.Convert(err)
		if st.Code() != codes.Unavailable {
			t.Fatalf("error = %v, want Unavailable", err)
		}
		if len(st.Details()) != 1 {
			t.Fatalf("details = %v, want the unsaved payload", st.Details())
		}
		detail, ok := st.Details()[0].(*structpb.Struct)
		if !ok {
			t.Fatalf("detail type = %T", st.Details()[0])
		}
		m := detail.AsMap()
		if m["kind"] != "branching" || m["key"] != "review" {
			t.Errorf("detail = %v", m)
		}
		payload, _ := m["payload"].(map[string]any)
		if payload["defaultTarget"] != "rework" {
			t.Errorf("payload = %v, want the rejected rule set", payload)
		}
	})
}
