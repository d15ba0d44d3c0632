package assignment

import (
	"fmt"

	"github.com/solatis/routekeeper/internal/types"
)

// Functional edits on AssignmentConfig. Inputs are never modified and the
// results share no slices or maps with them.

// AddRule appends rule, generating an id when empty.
func AddRule(cfg types.AssignmentConfig, rule types.AssignmentRule) (types.AssignmentConfig, error) {
	rule = rule.Clone()
	if rule.ID == "" {
		rule.ID = types.NewAssignmentRuleID()
	}
	if indexOf(cfg, rule.ID) >= 0 {
		return cfg, types.Validationf("rules.id", "duplicate rule id %q", rule.ID)
	}
	if err := validateRule(rule, fmt.Sprintf("rules[%d]", len(cfg.Rules))); err != nil {
		return cfg, err
	}
	if len(cfg.Rules) >= types.MaxAssignmentRules {
		return cfg, types.Validationf("rules", "at most %d assignment rules", types.MaxAssignmentRules)
	}

	out := cfg.Clone()
	out.Rules = append(out.Rules, rule)
	return out, nil
}

// UpdateRule replaces the rule with rule.ID.
func UpdateRule(cfg types.AssignmentConfig, rule types.AssignmentRule) (types.AssignmentConfig, error) {
	idx := indexOf(cfg, rule.ID)
	if idx < 0 {
		return cfg, fmt.Errorf("update %q: %w", rule.ID, types.ErrRuleNotFound)
	}
	if err := validateRule(rule, fmt.Sprintf("rules[%d]", idx)); err != nil {
		return cfg, err
	}
	out := cfg.Clone()
	out.Rules[idx] = rule.Clone()
	return out, nil
}

// SetCriteria replaces one dimension of a rule. Empty ids make the
// dimension a wildcard.
func SetCriteria(cfg types.AssignmentConfig, id string, d types.Dimension, ids []string) (types.AssignmentConfig, error) {
	idx := indexOf(cfg, id)
	if idx < 0 {
		return cfg, fmt.Errorf("set criteria on %q: %w", id, types.ErrRuleNotFound)
	}
	if _, err := types.ParseDimension(string(d)); err != nil {
		return cfg, err
	}

	out := cfg.Clone()
	r := &out.Rules[idx]
	if len(ids) == 0 {
		delete(r.Criteria, d)
		return out, nil
	}
	if len(ids) > types.MaxCriteriaValues {
		return cfg, types.Validationf(fmt.Sprintf("rules[%d].criteria.%s", idx, d),
			"at most %d ids per dimension", types.MaxCriteriaValues)
	}
	if r.Criteria == nil {
		r.Criteria = make(map[types.Dimension][]string)
	}
	r.Criteria[d] = dedupe(ids)
	return out, nil
}

// RemoveRule deletes the rule with id.
func RemoveRule(cfg types.AssignmentConfig, id string) (types.AssignmentConfig, error) {
	idx := indexOf(cfg, id)
	if idx < 0 {
		return cfg, fmt.Errorf("remove %q: %w", id, types.ErrRuleNotFound)
	}
	out := cfg.Clone()
	out.Rules = append(out.Rules[:idx], out.Rules[idx+1:]...)
	return out, nil
}

// SetFallbackRole sets or clears (empty role) the fallback role.
func SetFallbackRole(cfg types.AssignmentConfig, roleID string) types.AssignmentConfig {
	out := cfg.Clone()
	out.FallbackRoleID = roleID
	return out
}

// SetCompletionMode sets ANY or ALL.
func SetCompletionMode(cfg types.AssignmentConfig, mode types.CompletionMode) (types.AssignmentConfig, error) {
	if mode != types.CompletionAny && mode != types.CompletionAll {
		return cfg, fmt.Errorf("%w: completion mode %q", types.ErrInvalidMode, mode)
	}
	out := cfg.Clone()
	out.CompletionMode = mode
	return out, nil
}

// Validate checks ids, dimensions and limits of cfg.
func Validate(cfg types.AssignmentConfig) error {
	if len(cfg.Rules) > types.MaxAssignmentRules {
		return types.Validationf("rules", "at most %d assignment rules, got %d", types.MaxAssignmentRules, len(cfg.Rules))
	}
	switch cfg.CompletionMode {
	case "", types.CompletionAny, types.CompletionAll:
	default:
		return types.Validationf("completionMode", "unknown completion mode %q", cfg.CompletionMode)
	}

	seen := make(map[string]bool, len(cfg.Rules))
	for i, r := range cfg.Rules {
		path := fmt.Sprintf("rules[%d]", i)
		if r.ID == "" {
			return types.NewValidationError(path+".id", "rule id is required")
		}
		if seen[r.ID] {
			return types.Validationf(path+".id", "duplicate rule id %q", r.ID)
		}
		seen[r.ID] = true
		if err := validateRule(r, path); err != nil {
			return err
		}
	}
	return nil
}

func validateRule(r types.AssignmentRule, path string) error {
	for d, ids := range r.Criteria {
		if _, err := types.ParseDimension(string(d)); err != nil {
			return types.Validationf(path+".criteria", "unknown dimension %q", d)
		}
		if len(ids) > types.MaxCriteriaValues {
			return types.Validationf(fmt.Sprintf("%s.criteria.%s", path, d),
				"at most %d ids per dimension, got %d", types.MaxCriteriaValues, len(ids))
		}
	}
	return nil
}

func indexOf(cfg types.AssignmentConfig, id string) int {
	for i, r := range cfg.Rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
