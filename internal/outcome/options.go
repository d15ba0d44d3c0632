package outcome

import (
	"fmt"

	"github.com/solatis/routekeeper/internal/rules"
	"github.com/solatis/routekeeper/internal/types"
)

// Edits on OutcomeConfig return a new value and leave the input untouched.
// Options are addressed by index; an out-of-range index is ErrOptionNotFound.

// AddOption appends an option. An empty code appends an unconfigured row.
func (r *Registry) AddOption(cfg types.OutcomeConfig, code types.ActionCode) (types.OutcomeConfig, error) {
	opt := types.ActionOption{}
	if code != "" {
		var err error
		if opt, err = r.defaults(code); err != nil {
			return cfg, err
		}
	}
	out := cfg.Clone()
	out.Options = append(out.Options, opt)
	return out, nil
}

// SetActionType binds option i to code, replacing its label, style, sets
// and requirement flags with the code's defaults. Customizations made for
// the previous type are discarded. An empty code clears the option.
func (r *Registry) SetActionType(cfg types.OutcomeConfig, i int, code types.ActionCode) (types.OutcomeConfig, error) {
	if err := checkIndex(cfg, i); err != nil {
		return cfg, err
	}
	opt := types.ActionOption{}
	if code != "" {
		var err error
		if opt, err = r.defaults(code); err != nil {
			return cfg, err
		}
	}
	out := cfg.Clone()
	out.Options[i] = opt
	return out, nil
}

func (r *Registry) defaults(code types.ActionCode) (types.ActionOption, error) {
	at, ok := r.Lookup(code)
	if !ok {
		return types.ActionOption{}, fmt.Errorf("%w: %q", types.ErrUnknownActionType, code)
	}
	return types.ActionOption{
		ActionType:         at.Code,
		Label:              at.DefaultLabel,
		Style:              at.DefaultStyle,
		Sets:               at.DefaultSets, // Lookup returned a copy
		RequiresComment:    at.RequiresComment,
		RequiresTargetStep: at.RequiresTargetStep,
	}, nil
}

// SetLabel overrides the label of option i.
func SetLabel(cfg types.OutcomeConfig, i int, label string) (types.OutcomeConfig, error) {
	return edit(cfg, i, func(o *types.ActionOption) { o.Label = label })
}

// SetStyle overrides the style of option i.
func SetStyle(cfg types.OutcomeConfig, i int, style string) (types.OutcomeConfig, error) {
	return edit(cfg, i, func(o *types.ActionOption) { o.Style = style })
}

// SetRequirements overrides the requirement flags of option i.
func SetRequirements(cfg types.OutcomeConfig, i int, comment, targetStep bool) (types.OutcomeConfig, error) {
	return edit(cfg, i, func(o *types.ActionOption) {
		o.RequiresComment = comment
		o.RequiresTargetStep = targetStep
	})
}

// SetVariable sets a process variable exported by option i. Extra keys
// beyond the type's defaults are allowed.
func SetVariable(cfg types.OutcomeConfig, i int, name, value string) (types.OutcomeConfig, error) {
	if name == "" {
		return cfg, types.NewValidationError(fmt.Sprintf("options[%d].sets", i), "variable name is required")
	}
	return edit(cfg, i, func(o *types.ActionOption) {
		if o.Sets == nil {
			o.Sets = make(map[string]string)
		}
		o.Sets[name] = value
	})
}

// RemoveVariable deletes a process variable from option i.
func RemoveVariable(cfg types.OutcomeConfig, i int, name string) (types.OutcomeConfig, error) {
	return edit(cfg, i, func(o *types.ActionOption) { delete(o.Sets, name) })
}

// RemoveOption deletes option i.
func RemoveOption(cfg types.OutcomeConfig, i int) (types.OutcomeConfig, error) {
	if err := checkIndex(cfg, i); err != nil {
		return cfg, err
	}
	out := cfg.Clone()
	out.Options = append(out.Options[:i], out.Options[i+1:]...)
	return out, nil
}

// MoveOption swaps option i with its neighbour; no-op at either end.
func MoveOption(cfg types.OutcomeConfig, i int, dir rules.Direction) (types.OutcomeConfig, error) {
	if err := checkIndex(cfg, i); err != nil {
		return cfg, err
	}
	j := i - 1
	if dir == rules.Down {
		j = i + 1
	}
	out := cfg.Clone()
	if j >= 0 && j < len(out.Options) {
		out.Options[i], out.Options[j] = out.Options[j], out.Options[i]
	}
	return out, nil
}

func edit(cfg types.OutcomeConfig, i int, fn func(*types.ActionOption)) (types.OutcomeConfig, error) {
	if err := checkIndex(cfg, i); err != nil {
		return cfg, err
	}
	out := cfg.Clone()
	fn(&out.Options[i])
	return out, nil
}

func checkIndex(cfg types.OutcomeConfig, i int) error {
	if i < 0 || i >= len(cfg.Options) {
		return fmt.Errorf("option %d of %d: %w", i, len(cfg.Options), types.ErrOptionNotFound)
	}
	return nil
}

// Export returns the configured options in order, dropping unconfigured
// rows. A configured option whose code is not in the catalog is a
// validation error.
func (r *Registry) Export(cfg types.OutcomeConfig) ([]types.ActionOption, error) {
	out := make([]types.ActionOption, 0, len(cfg.Options))
	for i, o := range cfg.Options {
		if !o.Configured() {
			continue
		}
		if _, ok := r.Lookup(o.ActionType); !ok {
			return nil, types.Validationf(fmt.Sprintf("options[%d].actionType", i), "unknown action type %q", o.ActionType)
		}
		out = append(out, o.Clone())
	}
	return out, nil
}

// ValidateForExport rejects configs with unconfigured or unknown options.
// Use it where silently dropping a row would surprise the operator.
func (r *Registry) ValidateForExport(cfg types.OutcomeConfig) error {
	for i, o := range cfg.Options {
		path := fmt.Sprintf("options[%d].actionType", i)
		if !o.Configured() {
			return types.NewValidationError(path, "action type is not set")
		}
		if _, ok := r.Lookup(o.ActionType); !ok {
			return types.Validationf(path, "unknown action type %q", o.ActionType)
		}
	}
	return nil
}

// DecisionVariable describes the decision variable produced by cfg as an
// enum whose options are the distinct decision values of configured
// options, in option order.
func DecisionVariable(cfg types.OutcomeConfig) types.VariableDef {
	def := types.VariableDef{
		Name:  types.DecisionVariable,
		Label: "Decision",
		Type:  types.VarEnum,
	}
	seen := make(map[string]bool)
	for _, o := range cfg.Options {
		if !o.Configured() {
			continue
		}
		v, ok := o.Sets[types.DecisionVariable]
		if !ok || seen[v] {
			continue
		}
		seen[v] = true
		def.Options = append(def.Options, types.VariableOption{Value: v, Label: o.Label})
	}
	return def
}
