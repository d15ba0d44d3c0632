package types

// ActionCode identifies an action type in the outcome catalog.
// Codes are data-driven; outcome.Registry.Code is the validating constructor.
type ActionCode string

// Codes shipped in the default catalog.
const (
	ActionApprove  ActionCode = "APPROVE"
	ActionReject   ActionCode = "REJECT"
	ActionSendBack ActionCode = "SEND_BACK"
	ActionEscalate ActionCode = "ESCALATE"
	ActionCustom   ActionCode = "CUSTOM"
)

// DecisionVariable is the process variable every default action sets.
const DecisionVariable = "decision"

// ActionType is a catalog entry describing an outcome's defaults.
type ActionType struct {
	Code               ActionCode        `json:"code" yaml:"code"`
	DefaultLabel       string            `json:"defaultLabel" yaml:"defaultLabel"`
	DefaultStyle       string            `json:"defaultStyle" yaml:"defaultStyle"`
	DefaultSets        map[string]string `json:"defaultSets" yaml:"defaultSets"`
	RequiresComment    bool              `json:"requiresComment" yaml:"requiresComment"`
	RequiresTargetStep bool              `json:"requiresTargetStep" yaml:"requiresTargetStep"`
}

// Clone returns a deep copy of t.
func (t ActionType) Clone() ActionType {
	t.DefaultSets = cloneStringMap(t.DefaultSets)
	return t
}

// ActionOption is one outcome offered on a step.
// Sets holds the process variables exported when the option is chosen.
type ActionOption struct {
	ActionType         ActionCode        `json:"actionType" yaml:"actionType"`
	Label              string            `json:"label" yaml:"label"`
	Style              string            `json:"style" yaml:"style"`
	Sets               map[string]string `json:"sets" yaml:"sets"`
	RequiresComment    bool              `json:"requiresComment" yaml:"requiresComment"`
	RequiresTargetStep bool              `json:"requiresTargetStep" yaml:"requiresTargetStep"`
}

// Configured reports whether an action type has been chosen.
func (o ActionOption) Configured() bool {
	return o.ActionType != ""
}

// Clone returns a deep copy of o.
func (o ActionOption) Clone() ActionOption {
	o.Sets = cloneStringMap(o.Sets)
	return o
}

// OutcomeConfig is the ordered list of outcomes offered on one step.
type OutcomeConfig struct {
	Options []ActionOption `json:"options" yaml:"options"`
}

// Clone returns a deep copy of c.
func (c OutcomeConfig) Clone() OutcomeConfig {
	if c.Options == nil {
		return c
	}
	opts := make([]ActionOption, len(c.Options))
	for i, o := range c.Options {
		opts[i] = o.Clone()
	}
	c.Options = opts
	return c
}
