// internal/rules/validate.go
package rules

import (
	"fmt"

	"github.com/solatis/routekeeper/internal/types"
)

/*
 * RuleSet validation before save or export.
 *
 * Structural checks always run:
 *   - rule ids are non-empty and unique
 *   - every rule has a target step, the set has a default target
 *   - rule and condition counts stay under the resource limits
 *   - configured conditions use a known operator
 *
 * Catalog checks run when a catalog is supplied:
 *   - the field names a catalog variable
 *   - ordering operators only on number variables
 *   - CONTAINS/STARTS_WITH only on text or enum variables
 *   - numeric literals for number variables, true/false for booleans
 *   - enum values drawn from the variable's options
 *
 * Unconfigured rows (empty field or unset operator) are ignored; they are
 * editor drafts and never compile.
 *
 * The first violation is returned as a *types.ValidationError whose Field
 * points at the offending element.
 */

// ValidateRuleSet checks set. catalog may be nil.
func ValidateRuleSet(set types.RuleSet, catalog *types.Catalog) error {
	if len(set.Rules) > types.MaxRulesPerSet {
		return types.Validationf("conditions", "at most %d rules per gateway, got %d",
			types.MaxRulesPerSet, len(set.Rules))
	}
	if set.DefaultTarget == "" {
		return types.NewValidationError("defaultTarget", "default target step is required")
	}

	seen := make(map[types.RuleID]int, len(set.Rules))
	for i, r := range set.Rules {
		path := fmt.Sprintf("conditions[%d]", i)
		if r.ID == "" {
			return types.NewValidationError(path+".id", "rule id is required")
		}
		if prev, dup := seen[r.ID]; dup {
			return types.Validationf(path+".id", "duplicate rule id %q (also at conditions[%d])", r.ID, prev)
		}
		seen[r.ID] = i

		if r.TargetStep == "" {
			return types.NewValidationError(path+".targetStep", "target step is required")
		}
		if len(r.Conditions) > types.MaxConditionsPerRule {
			return types.Validationf(path+".conditions", "at most %d conditions per rule, got %d",
				types.MaxConditionsPerRule, len(r.Conditions))
		}

		for j, c := range r.Conditions {
			if err := validateCondition(c, catalog, fmt.Sprintf("%s.conditions[%d]", path, j)); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateCondition checks one condition against catalog (may be nil).
func ValidateCondition(c types.Condition, catalog *types.Catalog) error {
	return validateCondition(c, catalog, "condition")
}

func validateCondition(c types.Condition, catalog *types.Catalog, path string) error {
	if c.Field == "" {
		return nil
	}
	if c.Operator == types.OpUnspecified {
		return nil
	}
	if !c.Operator.Valid() {
		return types.Validationf(path+".operator", "invalid operator %d", int(c.Operator))
	}
	if catalog == nil {
		return nil
	}

	def, ok := catalog.Lookup(c.Field)
	if !ok {
		return types.Validationf(path+".field", "unknown variable %q", c.Field)
	}
	if c.Operator.Unary() {
		return nil
	}

	switch def.Type {
	case types.VarNumber:
		if c.Operator == types.OpContains || c.Operator == types.OpStartsWith {
			return types.Validationf(path+".operator", "%s not supported on number variable %q", c.Operator, c.Field)
		}
		if !IsNumber(c.Value) {
			return types.Validationf(path+".value", "%q is not a number", c.Value)
		}

	case types.VarBoolean:
		if c.Operator != types.OpEquals && c.Operator != types.OpNotEquals {
			return types.Validationf(path+".operator", "%s not supported on boolean variable %q", c.Operator, c.Field)
		}
		if _, ok := toBool(c.Value); !ok {
			return types.Validationf(path+".value", "%q is not true or false", c.Value)
		}

	case types.VarEnum:
		if c.Operator.Ordering() {
			return types.Validationf(path+".operator", "%s not supported on enum variable %q", c.Operator, c.Field)
		}
		if (c.Operator == types.OpEquals || c.Operator == types.OpNotEquals) &&
			len(def.Options) > 0 && !def.HasOption(c.Value) {
			return types.Validationf(path+".value", "%q is not an option of %q", c.Value, c.Field)
		}

	case types.VarText:
		if c.Operator.Ordering() {
			return types.Validationf(path+".operator", "%s not supported on text variable %q", c.Operator, c.Field)
		}
	}
	return nil
}
