// internal/rules/ruleset.go
package rules

import (
	"fmt"

	"github.com/solatis/routekeeper/internal/types"
)

/*
 * Functional edits on a RuleSet.
 *
 * Every operation takes a RuleSet value and returns a new one; the input is
 * never modified and the result shares no slices or maps with it. Editors
 * keep prior values as undo history.
 *
 * Order is significant (first match wins), so Move and Duplicate preserve
 * the relative order of every other rule.
 */

// copySuffix is appended to the label of a duplicated rule.
const copySuffix = " (copy)"

// Direction is the direction of a Move.
type Direction int

const (
	Up Direction = iota
	Down
)

// String returns "up" or "down".
func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// ParseDirection converts "up"/"down" to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return Up, types.Validationf("direction", "unknown direction %q", s)
}

// RulePatch holds optional replacements for Update. Nil fields are left
// unchanged. Conditions and OutputVariables replace the whole collection.
type RulePatch struct {
	Label           *string
	Conditions      []types.Condition
	TargetStep      *string
	OutputVariables map[string]string

	// ClearOutputVariables removes all output variables. It takes effect
	// before OutputVariables is applied.
	ClearOutputVariables bool
}

// Add appends rule. An empty id is replaced with a generated one; a
// duplicate id is a validation error.
func Add(set types.RuleSet, rule types.Rule) (types.RuleSet, error) {
	rule = rule.Clone()
	if rule.ID == "" {
		rule.ID = types.NewRuleID()
	}
	if set.IndexOf(rule.ID) >= 0 {
		return set, types.Validationf("conditions.id", "duplicate rule id %q", rule.ID)
	}
	if len(set.Rules) >= types.MaxRulesPerSet {
		return set, types.Validationf("conditions", "at most %d rules per gateway", types.MaxRulesPerSet)
	}

	out := set.Clone()
	out.Rules = append(out.Rules, rule)
	return out, nil
}

// Update applies patch to the rule with id.
func Update(set types.RuleSet, id types.RuleID, patch RulePatch) (types.RuleSet, error) {
	idx := set.IndexOf(id)
	if idx < 0 {
		return set, fmt.Errorf("update %q: %w", id, types.ErrRuleNotFound)
	}

	out := set.Clone()
	r := &out.Rules[idx]
	if patch.Label != nil {
		r.Label = *patch.Label
	}
	if patch.Conditions != nil {
		r.Conditions = types.CloneConditions(patch.Conditions)
	}
	if patch.TargetStep != nil {
		r.TargetStep = *patch.TargetStep
	}
	if patch.ClearOutputVariables {
		r.OutputVariables = nil
	}
	if patch.OutputVariables != nil {
		r.OutputVariables = copyVariables(patch.OutputVariables)
	}
	return out, nil
}

// Remove deletes the rule with id.
func Remove(set types.RuleSet, id types.RuleID) (types.RuleSet, error) {
	idx := set.IndexOf(id)
	if idx < 0 {
		return set, fmt.Errorf("remove %q: %w", id, types.ErrRuleNotFound)
	}

	out := types.RuleSet{
		Rules:         make([]types.Rule, 0, len(set.Rules)-1),
		DefaultTarget: set.DefaultTarget,
	}
	for i, r := range set.Rules {
		if i != idx {
			out.Rules = append(out.Rules, r.Clone())
		}
	}
	return out, nil
}

// Duplicate inserts a deep copy of the rule with id directly after it.
// The copy gets a new id and the label suffix " (copy)".
func Duplicate(set types.RuleSet, id types.RuleID) (types.RuleSet, error) {
	idx := set.IndexOf(id)
	if idx < 0 {
		return set, fmt.Errorf("duplicate %q: %w", id, types.ErrRuleNotFound)
	}
	if len(set.Rules) >= types.MaxRulesPerSet {
		return set, types.Validationf("conditions", "at most %d rules per gateway", types.MaxRulesPerSet)
	}

	dup := set.Rules[idx].Clone()
	dup.ID = types.NewRuleID()
	dup.Label += copySuffix

	out := types.RuleSet{
		Rules:         make([]types.Rule, 0, len(set.Rules)+1),
		DefaultTarget: set.DefaultTarget,
	}
	for i, r := range set.Rules {
		out.Rules = append(out.Rules, r.Clone())
		if i == idx {
			out.Rules = append(out.Rules, dup)
		}
	}
	return out, nil
}

// Move swaps the rule with id and its neighbour in dir. Moving past either
// end returns an unchanged copy.
func Move(set types.RuleSet, id types.RuleID, dir Direction) (types.RuleSet, error) {
	idx := set.IndexOf(id)
	if idx < 0 {
		return set, fmt.Errorf("move %q: %w", id, types.ErrRuleNotFound)
	}

	other := idx - 1
	if dir == Down {
		other = idx + 1
	}

	out := set.Clone()
	if other < 0 || other >= len(out.Rules) {
		return out, nil
	}
	out.Rules[idx], out.Rules[other] = out.Rules[other], out.Rules[idx]
	return out, nil
}

// SetDefaultTarget returns set with a new default target.
func SetDefaultTarget(set types.RuleSet, step string) types.RuleSet {
	out := set.Clone()
	out.DefaultTarget = step
	return out
}
