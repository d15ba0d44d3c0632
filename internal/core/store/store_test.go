package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/solatis/routekeeper/internal/core/db"
	"github.com/solatis/routekeeper/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "routekeeper.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if _, err := db.MigrateUp(context.Background(), conn); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	s, err := New(conn)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestStore_Branching(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	if _, err := s.LoadBranching(ctx, "review"); !errors.Is(err, types.ErrConfigNotFound) {
		t.Fatalf("LoadBranching() error = %v, want ErrConfigNotFound", err)
	}

	set := types.RuleSet{
		Rules: []types.Rule{{
			ID:              "r1",
			Label:           "Large",
			Conditions:      []types.Condition{{Field: "amount", Operator: types.OpGreaterThan, Value: "100000"}},
			TargetStep:      "board",
			OutputVariables: map[string]string{"tier": "board"},
		}},
		DefaultTarget: "clerk",
	}
	if err := s.SaveBranching(ctx, "review", set); err != nil {
		t.Fatalf("SaveBranching() error = %v", err)
	}

	rec, err := s.LoadBranching(ctx, "review")
	if err != nil {
		t.Fatalf("LoadBranching() error = %v", err)
	}
	if rec.Revision != 1 || !rec.UpdatedAt.Equal(fixed) {
		t.Errorf("record metadata = %d %v", rec.Revision, rec.UpdatedAt)
	}
	got := rec.Config
	if got.DefaultTarget != "clerk" || len(got.Rules) != 1 || got.Rules[0].Conditions[0].Operator != types.OpGreaterThan {
		t.Errorf("LoadBranching() = %+v", got)
	}
	if got.Rules[0].OutputVariables["tier"] != "board" {
		t.Errorf("output variables lost: %+v", got.Rules[0])
	}

	set.DefaultTarget = "archive"
	if err := s.SaveBranching(ctx, "review", set); err != nil {
		t.Fatalf("SaveBranching() error = %v", err)
	}
	rec, _ = s.LoadBranching(ctx, "review")
	if rec.Revision != 2 || rec.Config.DefaultTarget != "archive" {
		t.Errorf("after resave: revision %d default %q", rec.Revision, rec.Config.DefaultTarget)
	}

	if err := s.DeleteBranching(ctx, "review"); err != nil {
		t.Fatalf("DeleteBranching() error = %v", err)
	}
	if err := s.DeleteBranching(ctx, "review"); err != nil {
		t.Errorf("second DeleteBranching() error = %v", err)
	}
	if _, err := s.LoadBranching(ctx, "review"); !errors.Is(err, types.ErrConfigNotFound) {
		t.Errorf("LoadBranching() after delete error = %v", err)
	}
}

func TestStore_OutcomesAndAssignment(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	outcomes := types.OutcomeConfig{Options: []types.ActionOption{{
		ActionType: types.ActionApprove,
		Label:      "Approve",
		Style:      "success",
		Sets:       map[string]string{"decision": "approved"},
	}}}
	if err := s.SaveOutcomes(ctx, "review", outcomes); err != nil {
		t.Fatalf("SaveOutcomes() error = %v", err)
	}
	o, err := s.LoadOutcomes(ctx, "review")
	if err != nil {
		t.Fatalf("LoadOutcomes() error = %v", err)
	}
	if len(o.Config.Options) != 1 || o.Config.Options[0].Sets["decision"] != "approved" {
		t.Errorf("LoadOutcomes() = %+v", o.Config)
	}

	assign := types.AssignmentConfig{
		Rules: []types.AssignmentRule{{
			ID:       "a1",
			Criteria: map[types.Dimension][]string{types.DimRole: {"R1"}, types.DimRegion: {"EU"}},
		}},
		FallbackRoleID: "approvers",
		CompletionMode: types.CompletionAll,
	}
	if err := s.SaveAssignment(ctx, "review", assign); err != nil {
		t.Fatalf("SaveAssignment() error = %v", err)
	}
	a, err := s.LoadAssignment(ctx, "review")
	if err != nil {
		t.Fatalf("LoadAssignment() error = %v", err)
	}
	if a.Config.FallbackRoleID != "approvers" || a.Config.CompletionMode != types.CompletionAll {
		t.Errorf("LoadAssignment() = %+v", a.Config)
	}
	if got := a.Config.Rules[0].Criteria[types.DimRegion]; len(got) != 1 || got[0] != "EU" {
		t.Errorf("criteria = %v", a.Config.Rules[0].Criteria)
	}

	if err := s.DeleteOutcomes(ctx, "review"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteAssignment(ctx, "review"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadAssignment(ctx, "review"); !errors.Is(err, types.ErrConfigNotFound) {
		t.Errorf("LoadAssignment() after delete error = %v", err)
	}
}

func TestStore_SaveRequiresStep(t *testing.T) {
	s := newTestStore(t)
	err := s.SaveBranching(context.Background(), "", types.RuleSet{})
	if !errors.Is(err, types.ErrValidation) {
		t.Errorf("SaveBranching(\"\") error = %v, want validation error", err)
	}
}

func TestStore_Policies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.GetPolicy(ctx, "gw-1"); !errors.Is(err, types.ErrPolicyNotFound) {
		t.Fatalf("GetPolicy() error = %v, want ErrPolicyNotFound", err)
	}

	if err := s.UpsertPolicy(ctx, types.CompletionPolicy{GatewayID: "gw-1", Mode: types.PolicyNOfM, N: 2, M: 3}); err != nil {
		t.Fatalf("UpsertPolicy() error = %v", err)
	}
	if err := s.UpsertPolicy(ctx, types.CompletionPolicy{GatewayID: "gw-1", Mode: types.PolicyNOfM, N: 4, M: 3}); !errors.Is(err, types.ErrValidation) {
		t.Errorf("UpsertPolicy(n>m) error = %v, want validation error", err)
	}
	p, err := s.GetPolicy(ctx, "gw-1")
	if err != nil {
		t.Fatalf("GetPolicy() error = %v", err)
	}
	if p.Mode != types.PolicyNOfM || p.N != 2 || p.M != 3 {
		t.Errorf("GetPolicy() = %+v, invalid upsert must not overwrite", p)
	}

	batch := []types.CompletionPolicy{
		{GatewayID: "gw-2", Mode: types.PolicyAny},
		{GatewayID: "gw-1", Mode: types.PolicyAll, M: 3},
	}
	if err := s.UpsertPolicies(ctx, batch); err != nil {
		t.Fatalf("UpsertPolicies() error = %v", err)
	}
	list, err := s.ListPolicies(ctx)
	if err != nil {
		t.Fatalf("ListPolicies() error = %v", err)
	}
	if len(list) != 2 || list[0].GatewayID != "gw-1" || list[0].Mode != types.PolicyAll || list[1].Mode != types.PolicyAny {
		t.Errorf("ListPolicies() = %+v", list)
	}

	bad := []types.CompletionPolicy{
		{GatewayID: "gw-3", Mode: types.PolicyAny},
		{GatewayID: "gw-3", Mode: types.PolicyAll, M: 2},
	}
	if err := s.UpsertPolicies(ctx, bad); !errors.Is(err, types.ErrValidation) {
		t.Errorf("UpsertPolicies(duplicate) error = %v", err)
	}
	if _, err := s.GetPolicy(ctx, "gw-3"); !errors.Is(err, types.ErrPolicyNotFound) {
		t.Errorf("rejected batch was partially written")
	}

	if err := s.DeletePolicy(ctx, "gw-1"); err != nil {
		t.Fatalf("DeletePolicy() error = %v", err)
	}
	if err := s.DeletePolicy(ctx, "gw-1"); err != nil {
		t.Errorf("second DeletePolicy() error = %v", err)
	}
	list, _ = s.ListPolicies(ctx)
	if len(list) != 1 {
		t.Errorf("ListPolicies() after delete = %+v", list)
	}

	change := []types.CompletionPolicy{{GatewayID: "gw-4", Mode: types.PolicyNOfM, N: 1, M: 2}}
	if err := s.ApplyPolicies(ctx, change, []string{"gw-2"}); err != nil {
		t.Fatalf("ApplyPolicies() error = %v", err)
	}
	list, _ = s.ListPolicies(ctx)
	if len(list) != 1 || list[0].GatewayID != "gw-4" {
		t.Errorf("ListPolicies() after apply = %+v", list)
	}
	if err := s.ApplyPolicies(ctx, change, []string{"gw-4"}); !errors.Is(err, types.ErrValidation) {
		t.Errorf("ApplyPolicies(save and delete same gateway) error = %v, want validation error", err)
	}
}

func TestStore_ClaimCompletion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.ClaimCompletion(ctx, "step-1", "alice"); err != nil {
		t.Fatalf("ClaimCompletion() error = %v", err)
	}
	err := s.ClaimCompletion(ctx, "step-1", "bob")
	var conflict *types.CompletionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("ClaimCompletion() error = %v, want conflict", err)
	}
	if conflict.WinnerID != "alice" || conflict.ActorID != "bob" {
		t.Errorf("conflict = %+v", conflict)
	}
	if err := s.ClaimCompletion(ctx, "step-1", "alice"); !errors.Is(err, types.ErrAlreadyCompleted) {
		t.Errorf("repeat claim by winner error = %v", err)
	}

	c, found, err := s.GetCompletion(ctx, "step-1")
	if err != nil || !found || c.ActorID != "alice" || c.CompletedAt.IsZero() {
		t.Errorf("GetCompletion() = %+v, %v, %v", c, found, err)
	}
	if _, found, _ := s.GetCompletion(ctx, "step-2"); found {
		t.Error("GetCompletion(step-2) found a winner")
	}

	if err := s.ClaimCompletion(ctx, "step-2", ""); !errors.Is(err, types.ErrValidation) {
		t.Errorf("empty actor error = %v", err)
	}
}

func TestStore_ClaimCompletionConcurrent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	const claimers = 16
	var (
		wg        sync.WaitGroup
		winners   atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.ClaimCompletion(ctx, "step-1", fmt.Sprintf("actor-%d", i))
			switch {
			case err == nil:
				winners.Add(1)
			case errors.Is(err, types.ErrAlreadyCompleted):
				conflicts.Add(1)
			default:
				t.Errorf("ClaimCompletion() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	if winners.Load() != 1 {
		t.Errorf("winners = %d, want 1", winners.Load())
	}
	if conflicts.Load() != claimers-1 {
		t.Errorf("conflicts = %d, want %d", conflicts.Load(), claimers-1)
	}
}
