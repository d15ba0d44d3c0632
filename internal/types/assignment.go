package types

import (
	"fmt"
	"strings"
)

// Dimension is one organisational axis an assignment rule can constrain.
type Dimension string

const (
	DimRegion     Dimension = "region"
	DimDistrict   Dimension = "district"
	DimState      Dimension = "state"
	DimBranch     Dimension = "branch"
	DimDepartment Dimension = "department"
	DimGroup      Dimension = "group"
	DimRole       Dimension = "role"
	DimUser       Dimension = "user"
)

var dimensions = []Dimension{
	DimRegion, DimDistrict, DimState, DimBranch,
	DimDepartment, DimGroup, DimRole, DimUser,
}

// Dimensions returns all dimensions from broadest to narrowest.
func Dimensions() []Dimension {
	out := make([]Dimension, len(dimensions))
	copy(out, dimensions)
	return out
}

// ParseDimension validates a dimension name.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range dimensions {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDimension, s)
}

// UnmarshalText implements encoding.TextUnmarshaler so criteria map keys are
// validated while decoding.
func (d *Dimension) UnmarshalText(b []byte) error {
	parsed, err := ParseDimension(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// CompletionMode controls how many assignees must act on a step.
type CompletionMode string

const (
	// CompletionAny: first claimant to complete satisfies the step.
	CompletionAny CompletionMode = "ANY"
	// CompletionAll: every resolved assignee must complete.
	CompletionAll CompletionMode = "ALL"
)

// UnmarshalText implements encoding.TextUnmarshaler. Empty means unset.
func (m *CompletionMode) UnmarshalText(b []byte) error {
	switch v := CompletionMode(strings.ToUpper(strings.TrimSpace(string(b)))); v {
	case "", CompletionAny, CompletionAll:
		*m = v
		return nil
	default:
		return fmt.Errorf("%w: completion mode %q", ErrInvalidMode, string(b))
	}
}

// Effective returns the mode, treating unset as ANY.
func (m CompletionMode) Effective() CompletionMode {
	if m == "" {
		return CompletionAny
	}
	return m
}

// AssignmentRule constrains eligible actors across dimensions.
// A dimension with no ids is a wildcard.
type AssignmentRule struct {
	ID       string                 `json:"id" yaml:"id"`
	Name     string                 `json:"name" yaml:"name"`
	Criteria map[Dimension][]string `json:"criteria" yaml:"criteria"`
}

// Clone returns a deep copy of r.
func (r AssignmentRule) Clone() AssignmentRule {
	if r.Criteria == nil {
		return r
	}
	criteria := make(map[Dimension][]string, len(r.Criteria))
	for d, ids := range r.Criteria {
		if ids == nil {
			criteria[d] = nil
			continue
		}
		cp := make([]string, len(ids))
		copy(cp, ids)
		criteria[d] = cp
	}
	r.Criteria = criteria
	return r
}

// AssignmentConfig is the OR list of assignment rules for one step.
type AssignmentConfig struct {
	Rules          []AssignmentRule `json:"rules" yaml:"rules"`
	FallbackRoleID string           `json:"fallbackRoleId" yaml:"fallbackRoleId"`
	CompletionMode CompletionMode   `json:"completionMode" yaml:"completionMode"`
}

// Clone returns a deep copy of c.
func (c AssignmentConfig) Clone() AssignmentConfig {
	if c.Rules == nil {
		return c
	}
	rules := make([]AssignmentRule, len(c.Rules))
	for i, r := range c.Rules {
		rules[i] = r.Clone()
	}
	c.Rules = rules
	return c
}
