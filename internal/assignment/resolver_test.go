package assignment

import (
	"context"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"github.com/solatis/routekeeper/internal/types"
)

func orConfig(fallback string) types.AssignmentConfig {
	return types.AssignmentConfig{
		Rules: []types.AssignmentRule{
			{ID: "rule1", Name: "by role", Criteria: map[types.Dimension][]string{types.DimRole: {"R1"}}},
			{ID: "rule2", Name: "by branch", Criteria: map[types.Dimension][]string{types.DimBranch: {"B1"}}},
		},
		FallbackRoleID: fallback,
	}
}

func user(id, role, branch string) User {
	return User{
		ID: id,
		Memberships: map[types.Dimension][]string{
			types.DimRole:   {role},
			types.DimBranch: {branch},
		},
	}
}

func TestMatchesConfig_OrAcrossRules(t *testing.T) {
	cfg := orConfig("")

	tests := []struct {
		name string
		u    User
		want bool
	}{
		{"role matches rule1", user("u1", "R1", "B2"), true},
		{"branch matches rule2", user("u2", "R2", "B1"), true},
		{"matches neither", user("u3", "R2", "B2"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesConfig(tt.u, cfg); got != tt.want {
				t.Errorf("MatchesConfig() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesRule_AndAcrossDimensions(t *testing.T) {
	rule := types.AssignmentRule{
		ID: "r",
		Criteria: map[types.Dimension][]string{
			types.DimRole:   {"R1", "R3"},
			types.DimBranch: {"B1"},
			types.DimRegion: {},
		},
	}

	tests := []struct {
		name string
		u    User
		want bool
	}{
		{"both dimensions", user("u1", "R3", "B1"), true},
		{"role only", user("u2", "R1", "B2"), false},
		{"branch only", user("u3", "R2", "B1"), false},
		{"no memberships", User{ID: "u4"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesRule(tt.u, rule); got != tt.want {
				t.Errorf("MatchesRule() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesRule_Wildcards(t *testing.T) {
	if !MatchesRule(User{ID: "anyone"}, types.AssignmentRule{ID: "open"}) {
		t.Error("rule without criteria should match every user")
	}
	empty := types.AssignmentRule{ID: "empty", Criteria: map[types.Dimension][]string{types.DimGroup: nil}}
	if !MatchesRule(User{ID: "anyone"}, empty) {
		t.Error("empty dimension should be a wildcard")
	}
}

func TestMatchesRule_UserDimension(t *testing.T) {
	rule := types.AssignmentRule{ID: "r", Criteria: map[types.Dimension][]string{types.DimUser: {"u9"}}}
	if !MatchesRule(User{ID: "u9"}, rule) {
		t.Error("user dimension should match the user's own id")
	}
	if MatchesRule(User{ID: "u8"}, rule) {
		t.Error("user dimension matched another user")
	}
}

func TestMatchesConfig_NoRules(t *testing.T) {
	if MatchesConfig(User{ID: "u1"}, types.AssignmentConfig{}) {
		t.Error("config without rules matched a user")
	}
}

func TestResolver_Resolve(t *testing.T) {
	dir := NewStaticDirectory(
		User{ID: "u2", Username: "bob", Memberships: map[types.Dimension][]string{types.DimRole: {"R2"}, types.DimBranch: {"B1"}}},
		User{ID: "u1", DisplayName: "Alice A.", Memberships: map[types.Dimension][]string{types.DimRole: {"R1"}}},
		User{ID: "u3", Email: "carol@example.com", Memberships: map[types.Dimension][]string{types.DimRole: {"R2"}}},
	)
	r := NewResolver(dir, zerolog.Nop())

	cfg := orConfig("")
	cfg.CompletionMode = types.CompletionAll

	res, err := r.Resolve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	want := []Assignee{
		{ID: "u1", DisplayName: "Alice A.", RuleID: "rule1"},
		{ID: "u2", DisplayName: "bob", RuleID: "rule2"},
	}
	if len(res.Assignees) != len(want) {
		t.Fatalf("Assignees = %+v, want %+v", res.Assignees, want)
	}
	for i := range want {
		if res.Assignees[i] != want[i] {
			t.Errorf("Assignees[%d] = %+v, want %+v", i, res.Assignees[i], want[i])
		}
	}
	if res.CompletionMode != types.CompletionAll {
		t.Errorf("CompletionMode = %v, want ALL", res.CompletionMode)
	}
	if res.UsedFallback() {
		t.Error("UsedFallback() = true, want false")
	}
}

func TestResolver_Fallback(t *testing.T) {
	r := NewResolver(NewStaticDirectory(user("u3", "R2", "B2")), zerolog.Nop())

	res, err := r.Resolve(context.Background(), orConfig("approvers"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.FallbackRoleID != "approvers" || len(res.Assignees) != 0 {
		t.Errorf("Resolution = %+v, want fallback role approvers", res)
	}
	if res.CompletionMode != types.CompletionAny {
		t.Errorf("CompletionMode = %v, want ANY for unset mode", res.CompletionMode)
	}
}

func TestResolver_Unresolved(t *testing.T) {
	r := NewResolver(NewStaticDirectory(user("u3", "R2", "B2")), zerolog.Nop())

	_, err := r.Resolve(context.Background(), orConfig(""))
	if !errors.Is(err, types.ErrUnresolvedAssignment) {
		t.Fatalf("Resolve() error = %v, want ErrUnresolvedAssignment", err)
	}
	var uerr *types.UnresolvedAssignmentError
	if !errors.As(err, &uerr) {
		t.Fatalf("error type = %T, want *UnresolvedAssignmentError", err)
	}
	if uerr.RuleCount != 2 || uerr.Candidates != 1 {
		t.Errorf("error = %+v, want 2 rules, 1 candidate", uerr)
	}
}

type failingDirectory struct{ err error }

func (d failingDirectory) Users(context.Context) ([]User, error) { return nil, d.err }

func TestResolver_DirectoryError(t *testing.T) {
	boom := errors.New("directory down")
	r := NewResolver(failingDirectory{err: boom}, zerolog.Nop())

	if _, err := r.Resolve(context.Background(), orConfig("x")); !errors.Is(err, boom) {
		t.Errorf("Resolve() error = %v, want wrapped %v", err, boom)
	}
}

func TestStaticDirectory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewStaticDirectory().Users(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Users() error = %v, want context.Canceled", err)
	}
}

// Adding a rule can only widen the match set.
func TestMatchesConfig_MonotonicProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	ids := []string{"A", "B", "C", "D"}

	properties.Property("adding a rule never removes a match", prop.ForAll(
		func(userRole, userBranch, ruleRole, ruleBranch, extraRole int) bool {
			u := user("u", ids[userRole], ids[userBranch])
			cfg := types.AssignmentConfig{Rules: []types.AssignmentRule{{
				ID: "r1",
				Criteria: map[types.Dimension][]string{
					types.DimRole:   {ids[ruleRole]},
					types.DimBranch: {ids[ruleBranch]},
				},
			}}}
			before := MatchesConfig(u, cfg)

			wider, err := AddRule(cfg, types.AssignmentRule{
				Criteria: map[types.Dimension][]string{types.DimRole: {ids[extraRole]}},
			})
			if err != nil {
				return false
			}
			return !before || MatchesConfig(u, wider)
		},
		gen.IntRange(0, 3), gen.IntRange(0, 3), gen.IntRange(0, 3), gen.IntRange(0, 3), gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}
