package completion

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/solatis/routekeeper/internal/types"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		policy    types.CompletionPolicy
		wantField string
	}{
		{"all", types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyAll, M: 3}, ""},
		{"any without m", types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyAny}, ""},
		{"n of m", types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyNOfM, N: 2, M: 3}, ""},
		{"n equals m", types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyNOfM, N: 3, M: 3}, ""},
		{"n zero", types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyNOfM, N: 0, M: 3}, "n"},
		{"n above m", types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyNOfM, N: 4, M: 3}, "n"},
		{"n negative", types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyNOfM, N: -1, M: 3}, "n"},
		{"m missing", types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyNOfM, N: 1}, "m"},
		{"m negative", types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyAll, M: -1}, "m"},
		{"no gateway", types.CompletionPolicy{Mode: types.PolicyAny}, "gatewayId"},
		{"unknown mode", types.CompletionPolicy{GatewayID: "g", Mode: "MOST"}, "mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.policy)
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			var verr *types.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestThreshold(t *testing.T) {
	tests := []struct {
		policy types.CompletionPolicy
		want   int
	}{
		{types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyAll, M: 4}, 4},
		{types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyAny, M: 4}, 1},
		{types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyNOfM, N: 2, M: 4}, 2},
	}
	for _, tt := range tests {
		t.Run(Describe(tt.policy), func(t *testing.T) {
			got, err := Threshold(tt.policy)
			if err != nil || got != tt.want {
				t.Errorf("Threshold() = %d, %v, want %d", got, err, tt.want)
			}
		})
	}

	if _, err := Threshold(types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyAll}); !errors.Is(err, types.ErrValidation) {
		t.Errorf("Threshold(ALL without m) error = %v, want ErrValidation", err)
	}
}

func TestNormalizeAndLabel(t *testing.T) {
	p, err := Normalize(types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyAll, M: 3})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if p.Mode != types.PolicyNOfM || p.N != 3 || p.M != 3 {
		t.Errorf("Normalize(ALL) = %+v", p)
	}
	if Label(p.N, p.M) != types.PolicyAll {
		t.Errorf("Label(3, 3) = %v, want ALL", Label(p.N, p.M))
	}
	if Label(1, 3) != types.PolicyAny || Label(2, 3) != types.PolicyNOfM {
		t.Errorf("Label(1,3)=%v Label(2,3)=%v", Label(1, 3), Label(2, 3))
	}

	anyPolicy, err := Normalize(types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyAny})
	if err != nil || anyPolicy.N != 1 || anyPolicy.M != 1 {
		t.Errorf("Normalize(ANY) = %+v, %v", anyPolicy, err)
	}
}

// arrivalsToFire feeds branches until the join fires and reports how many
// arrivals it took.
func arrivalsToFire(t *testing.T, p types.CompletionPolicy) int {
	t.Helper()
	j, err := NewJoin(p)
	if err != nil {
		t.Fatalf("NewJoin(%+v) error = %v", p, err)
	}
	for i := 1; i <= p.M; i++ {
		fired, err := j.Arrive(fmt.Sprintf("b%d", i))
		if err != nil {
			t.Fatalf("Arrive(b%d) error = %v", i, err)
		}
		if fired {
			return i
		}
	}
	return -1
}

func TestJoin_NOfMEquivalence(t *testing.T) {
	const m = 4
	all := arrivalsToFire(t, types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyAll, M: m})
	nm := arrivalsToFire(t, types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyNOfM, N: m, M: m})
	if all != nm || all != m {
		t.Errorf("ALL fired after %d, N_OF_M n=m after %d, want %d", all, nm, m)
	}

	anyArr := arrivalsToFire(t, types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyAny, M: m})
	one := arrivalsToFire(t, types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyNOfM, N: 1, M: m})
	if anyArr != one || anyArr != 1 {
		t.Errorf("ANY fired after %d, N_OF_M n=1 after %d, want 1", anyArr, one)
	}
}

func TestJoin_FiresOnceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("join fires exactly once, at arrival n", prop.ForAll(
		func(m, nSeed int) bool {
			n := nSeed%m + 1
			j, err := NewJoin(types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyNOfM, N: n, M: m})
			if err != nil {
				return false
			}
			fires := 0
			for i := 1; i <= m; i++ {
				fired, err := j.Arrive(fmt.Sprintf("b%d", i))
				if fired {
					fires++
					if i != n {
						return false
					}
				}
				if i > n && !errors.Is(err, types.ErrAlreadyCompleted) {
					return false
				}
			}
			return fires == 1 && j.Fired()
		},
		gen.IntRange(1, 12),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

func TestJoin_Errors(t *testing.T) {
	j, err := NewJoin(types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyNOfM, N: 2, M: 2})
	if err != nil {
		t.Fatalf("NewJoin() error = %v", err)
	}
	if _, err := j.Arrive("b1"); err != nil {
		t.Fatalf("Arrive(b1) error = %v", err)
	}
	if _, err := j.Arrive("b1"); !errors.Is(err, types.ErrAlreadyCompleted) {
		t.Errorf("Arrive(b1 again) error = %v, want ErrAlreadyCompleted", err)
	}
	if _, err := j.Arrive(""); !errors.Is(err, types.ErrValidation) {
		t.Errorf("Arrive(empty) error = %v, want ErrValidation", err)
	}
	if j.Arrived() != 1 || j.Threshold() != 2 {
		t.Errorf("Arrived()=%d Threshold()=%d", j.Arrived(), j.Threshold())
	}

	if _, err := NewJoin(types.CompletionPolicy{GatewayID: "g", Mode: types.PolicyAny}); !errors.Is(err, types.ErrValidation) {
		t.Errorf("NewJoin(no m) error = %v, want ErrValidation", err)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p := types.CompletionPolicy{GatewayID: "g1", Mode: types.PolicyNOfM, N: 2, M: 3}
	if err := s.UpsertPolicy(ctx, p); err != nil {
		t.Fatalf("UpsertPolicy() error = %v", err)
	}
	p.Mode, p.N = types.PolicyAll, 0
	if err := s.UpsertPolicy(ctx, p); err != nil {
		t.Fatalf("UpsertPolicy(replace) error = %v", err)
	}
	got, err := s.GetPolicy(ctx, "g1")
	if err != nil || got.Mode != types.PolicyAll {
		t.Errorf("GetPolicy() = %+v, %v, want replaced ALL", got, err)
	}

	if err := s.UpsertPolicy(ctx, types.CompletionPolicy{GatewayID: "g2", Mode: types.PolicyNOfM, N: 0, M: 2}); !errors.Is(err, types.ErrValidation) {
		t.Errorf("UpsertPolicy(n=0) error = %v, want ErrValidation", err)
	}

	batch := []types.CompletionPolicy{
		{GatewayID: "g3", Mode: types.PolicyAny},
		{GatewayID: "g2", Mode: types.PolicyNOfM, N: 5, M: 2},
	}
	if err := s.UpsertPolicies(ctx, batch); !errors.Is(err, types.ErrValidation) {
		t.Errorf("UpsertPolicies(bad) error = %v, want ErrValidation", err)
	}
	if _, err := s.GetPolicy(ctx, "g3"); !errors.Is(err, types.ErrPolicyNotFound) {
		t.Errorf("partial batch written: GetPolicy(g3) error = %v", err)
	}

	batch[1].N = 1
	if err := s.UpsertPolicies(ctx, batch); err != nil {
		t.Fatalf("UpsertPolicies() error = %v", err)
	}
	list, _ := s.ListPolicies(ctx)
	if len(list) != 3 || list[0].GatewayID != "g1" || list[2].GatewayID != "g3" {
		t.Errorf("ListPolicies() = %+v", list)
	}

	if err := s.DeletePolicy(ctx, "g1"); err != nil {
		t.Fatalf("DeletePolicy() error = %v", err)
	}
	if err := s.DeletePolicy(ctx, "g1"); err != nil {
		t.Errorf("DeletePolicy(again) error = %v, want nil", err)
	}
	if _, err := s.GetPolicy(ctx, "g1"); !errors.Is(err, types.ErrPolicyNotFound) {
		t.Errorf("GetPolicy(deleted) error = %v, want ErrPolicyNotFound", err)
	}
}

func TestValidateAll_RepeatedGateway(t *testing.T) {
	err := ValidateAll([]types.CompletionPolicy{
		{GatewayID: "g", Mode: types.PolicyAny},
		{GatewayID: "g", Mode: types.PolicyAll, M: 2},
	})
	var verr *types.ValidationError
	if !errors.As(err, &verr) || verr.Field != "policies[1].gatewayId" {
		t.Errorf("ValidateAll() error = %v", err)
	}
}

func TestMemoryStore_ApplyPolicies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.UpsertPolicy(ctx, types.CompletionPolicy{GatewayID: "old", Mode: types.PolicyAny}); err != nil {
		t.Fatalf("UpsertPolicy() error = %v", err)
	}

	bad := []types.CompletionPolicy{{GatewayID: "new", Mode: types.PolicyNOfM, N: 3, M: 2}}
	if err := s.ApplyPolicies(ctx, bad, []string{"old"}); !errors.Is(err, types.ErrValidation) {
		t.Fatalf("ApplyPolicies(bad) error = %v, want ErrValidation", err)
	}
	if _, err := s.GetPolicy(ctx, "old"); err != nil {
		t.Errorf("rejected change deleted a policy: %v", err)
	}

	good := []types.CompletionPolicy{{GatewayID: "new", Mode: types.PolicyAll, M: 2}}
	if err := s.ApplyPolicies(ctx, good, []string{"old"}); err != nil {
		t.Fatalf("ApplyPolicies() error = %v", err)
	}
	list, _ := s.ListPolicies(ctx)
	if len(list) != 1 || list[0].GatewayID != "new" {
		t.Errorf("ListPolicies() = %+v", list)
	}
}

func TestValidateChange(t *testing.T) {
	ps := []types.CompletionPolicy{{GatewayID: "g", Mode: types.PolicyAny}}
	tests := []struct {
		name      string
		deletes   []string
		wantField string
	}{
		{"disjoint", []string{"h"}, ""},
		{"empty id", []string{""}, "delete[0]"},
		{"saved and deleted", []string{"h", "g"}, "delete[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChange(ps, tt.deletes)
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("ValidateChange() error = %v", err)
				}
				return
			}
			var verr *types.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.wantField {
				t.Errorf("ValidateChange() error = %v, want field %s", err, tt.wantField)
			}
		})
	}
}
