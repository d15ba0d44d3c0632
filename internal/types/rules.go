package types

// Rule is one branching rule of a gateway.
// Conditions are ANDed; the first rule whose conditions all hold wins.
type Rule struct {
	ID              RuleID            `json:"id" yaml:"id"`
	Label           string            `json:"label" yaml:"label"`
	Conditions      []Condition       `json:"conditions" yaml:"conditions"`
	TargetStep      string            `json:"targetStep" yaml:"targetStep"`
	OutputVariables map[string]string `json:"outputVariables,omitempty" yaml:"outputVariables,omitempty"`
}

// Clone returns a deep copy of r.
func (r Rule) Clone() Rule {
	r.Conditions = CloneConditions(r.Conditions)
	r.OutputVariables = cloneStringMap(r.OutputVariables)
	return r
}

// RuleSet is the ordered branching configuration of one gateway.
// The persisted key for the rule list is "conditions".
type RuleSet struct {
	Rules         []Rule `json:"conditions" yaml:"conditions"`
	DefaultTarget string `json:"defaultTarget" yaml:"defaultTarget"`
}

// Clone returns a deep copy of s.
func (s RuleSet) Clone() RuleSet {
	if s.Rules == nil {
		return s
	}
	rules := make([]Rule, len(s.Rules))
	for i, r := range s.Rules {
		rules[i] = r.Clone()
	}
	s.Rules = rules
	return s
}

// IndexOf returns the position of the rule with id, or -1.
func (s RuleSet) IndexOf(id RuleID) int {
	for i, r := range s.Rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}
