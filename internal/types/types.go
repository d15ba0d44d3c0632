// Package types provides domain models shared across routekeeper components.
//
// Zero-dependency design: everything except ids.go uses only the standard
// library so the models can be imported by editors and SDKs without pulling
// in the persistence or transport stack. ID utilities in ids.go import uuid
// but are isolated for selective inclusion.
//
// All configuration values (RuleSet, AssignmentConfig, OutcomeConfig,
// CompletionPolicy) are plain values. Packages that edit them return new
// values built with the Clone helpers defined here and never mutate their
// inputs.
package types

// Bindings holds sample or runtime variable values keyed by variable name.
// Values are whatever encoding/json produced (string, float64, bool, nil,
// nested maps) or native Go scalars supplied programmatically.
type Bindings map[string]any

// Resource limits enforced when validating configuration.
const (
	// MaxRulesPerSet bounds a gateway's rule list; each rule becomes one
	// conditional flow in the process definition.
	MaxRulesPerSet = 200

	// MaxConditionsPerRule bounds the AND chain compiled into one expression.
	MaxConditionsPerRule = 32

	// MaxAssignmentRules bounds the OR list of an assignment config.
	MaxAssignmentRules = 100

	// MaxCriteriaValues bounds the id set of one assignment dimension.
	MaxCriteriaValues = 500
)

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
