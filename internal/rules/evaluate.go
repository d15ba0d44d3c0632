// internal/rules/evaluate.go
package rules

import (
	"github.com/solatis/routekeeper/internal/types"
)

/*
 * RuleSet evaluation against variable bindings.
 *
 * This is the contract the process engine honours when it walks a gateway's
 * conditional flows; routekeeper runs it locally for previews.
 *
 * Evaluation flow:
 *   1. Rules are visited in array order
 *   2. A rule fires when every configured condition holds (AND, short-circuit)
 *   3. The first firing rule wins: its target and output variables apply
 *   4. No firing rule: DefaultTarget, no output variables
 *
 * Unconfigured condition rows are skipped, matching Compile which omits them
 * from the expression. A rule without configured conditions always fires.
 */

// Route is the outcome of evaluating a RuleSet.
type Route struct {
	TargetStep      string            `json:"targetStep"`
	OutputVariables map[string]string `json:"outputVariables,omitempty"`
	MatchedRuleID   types.RuleID      `json:"matchedRuleId,omitempty"`
	Default         bool              `json:"default"`
}

// Evaluate resolves the target step for bindings. It never mutates set.
func Evaluate(set types.RuleSet, bindings types.Bindings) Route {
	for _, rule := range set.Rules {
		if !Fires(rule, bindings) {
			continue
		}
		return Route{
			TargetStep:      rule.TargetStep,
			OutputVariables: copyVariables(rule.OutputVariables),
			MatchedRuleID:   rule.ID,
		}
	}
	return Route{TargetStep: set.DefaultTarget, Default: true}
}

// Fires reports whether every configured condition of rule holds.
func Fires(rule types.Rule, bindings types.Bindings) bool {
	for _, c := range rule.Conditions {
		if !c.Configured() {
			continue
		}
		if !Holds(c, bindings) {
			return false
		}
	}
	return true
}

// Holds evaluates a single condition.
func Holds(c types.Condition, bindings types.Bindings) bool {
	bound, found := Resolve(c.Field, bindings)
	return Compare(c.Operator, bound, found, c.Value)
}

func copyVariables(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
