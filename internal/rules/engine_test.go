// internal/rules/engine_test.go
package rules

import (
	"errors"
	"testing"

	"github.com/solatis/routekeeper/internal/types"
)

func TestEngine_Export(t *testing.T) {
	engine := NewEngine(testCatalog(t))

	set := amountRuleSet()
	set.Rules[1].Conditions = append(set.Rules[1].Conditions,
		types.Condition{Field: "subject", Operator: types.OpContains, Value: "loan"})

	export, err := engine.Export(set)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if export.DefaultTarget != "C" {
		t.Errorf("DefaultTarget = %v, want C", export.DefaultTarget)
	}
	if len(export.Flows) != 2 {
		t.Fatalf("len(Flows) = %d, want 2", len(export.Flows))
	}
	if got, want := export.Flows[0].Expression, "${amount > 100000}"; got != want {
		t.Errorf("Flows[0].Expression = %q, want %q", got, want)
	}
	if got, want := export.Flows[1].Expression, `${amount > 0 && subject.contains("loan")}`; got != want {
		t.Errorf("Flows[1].Expression = %q, want %q", got, want)
	}
	if export.Flows[0].OutputVariables["tier"] != "board" {
		t.Errorf("Flows[0].OutputVariables = %v", export.Flows[0].OutputVariables)
	}
}

func TestEngine_ExportRejectsInvalid(t *testing.T) {
	engine := NewEngine(testCatalog(t))
	set := amountRuleSet()
	set.DefaultTarget = ""

	if _, err := engine.Export(set); !errors.Is(err, types.ErrValidation) {
		t.Errorf("Export() error = %v, want ErrValidation", err)
	}
}

func TestEngine_WithVariables(t *testing.T) {
	engine := NewEngine(testCatalog(t))
	decision := types.VariableDef{
		Name:    types.DecisionVariable,
		Type:    types.VarEnum,
		Options: []types.VariableOption{{Value: "approved"}, {Value: "rejected"}},
	}

	set := types.RuleSet{
		Rules: []types.Rule{{
			ID:         "r1",
			Conditions: []types.Condition{{Field: "decision", Operator: types.OpEquals, Value: "approved"}},
			TargetStep: "Next",
		}},
		DefaultTarget: "Back",
	}

	if err := engine.Validate(set); !errors.Is(err, types.ErrValidation) {
		t.Fatalf("Validate() without decision variable error = %v, want ErrValidation", err)
	}
	if err := engine.WithVariables(decision).Validate(set); err != nil {
		t.Errorf("Validate() with decision variable error = %v", err)
	}
	if _, ok := engine.Catalog().Lookup("decision"); ok {
		t.Error("WithVariables() modified the original catalog")
	}
}

func TestImportFlows(t *testing.T) {
	export := GatewayExport{
		Flows: []Flow{
			{RuleID: "r1", Label: "large", TargetStep: "A", Expression: "${amount > 100000}"},
			{Label: "loan", TargetStep: "B", Expression: `${amount > 0 && subject.contains("loan")}`},
		},
		DefaultTarget: "C",
	}

	set, decomps := ImportFlows(export)

	if set.DefaultTarget != "C" || len(set.Rules) != 2 {
		t.Fatalf("set = %+v", set)
	}
	if set.Rules[0].ID != "r1" {
		t.Errorf("Rules[0].ID = %v, want r1", set.Rules[0].ID)
	}
	if set.Rules[1].ID == "" {
		t.Error("Rules[1].ID is empty, want generated")
	}
	if decomps[0].Partial {
		t.Error("decomps[0].Partial = true, want false")
	}
	if !decomps[1].Partial || len(set.Rules[1].Conditions) != 1 {
		t.Errorf("flow 1: Partial = %v, conditions = %+v", decomps[1].Partial, set.Rules[1].Conditions)
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	engine := NewEngine(nil)
	set := amountRuleSet()

	export, err := engine.Export(set)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	back, _ := ImportFlows(export)

	for _, amount := range []int{-5, 50, 200000} {
		b := types.Bindings{"amount": amount}
		if got, want := Evaluate(back, b).TargetStep, Evaluate(set, b).TargetStep; got != want {
			t.Errorf("amount %d: imported routes to %v, original to %v", amount, got, want)
		}
	}
}
