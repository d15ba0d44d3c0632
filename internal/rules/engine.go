// internal/rules/engine.go
package rules

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/solatis/routekeeper/internal/types"
)

/*
 * Engine binds a variable catalog to the RuleSet operations.
 *
 * Export produces what gets written into the process definition: one
 * conditional flow per rule carrying its compiled expression, plus the
 * default flow. Import goes the other way from an existing definition and
 * inherits Parse's lossiness; the returned Decompositions tell the caller
 * which flows were only partially recovered.
 */

// Flow is one conditional outgoing flow of a gateway.
type Flow struct {
	RuleID          types.RuleID      `json:"ruleId"`
	Label           string            `json:"label"`
	TargetStep      string            `json:"targetStep"`
	Expression      string            `json:"expression"`
	OutputVariables map[string]string `json:"outputVariables,omitempty"`
}

// GatewayExport is the compiled form of a RuleSet.
type GatewayExport struct {
	Flows         []Flow `json:"flows"`
	DefaultTarget string `json:"defaultTarget"`
}

// Engine validates, compiles and evaluates RuleSets against a catalog.
type Engine struct {
	catalog *types.Catalog
}

// NewEngine creates an engine. A nil catalog disables catalog checks.
func NewEngine(catalog *types.Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Catalog returns the engine's variable catalog (may be nil).
func (e *Engine) Catalog() *types.Catalog {
	return e.catalog
}

// WithVariables returns an engine whose catalog also carries defs, e.g. the
// decision variable synthesized from a step's outcomes.
func (e *Engine) WithVariables(defs ...types.VariableDef) *Engine {
	var base types.Catalog
	if e.catalog != nil {
		base = *e.catalog
	}
	merged := base.With(defs...)
	return &Engine{catalog: &merged}
}

// Validate checks set against the engine's catalog.
func (e *Engine) Validate(set types.RuleSet) error {
	return ValidateRuleSet(set, e.catalog)
}

// Export validates set and compiles every rule to a flow expression.
func (e *Engine) Export(set types.RuleSet) (GatewayExport, error) {
	if err := e.Validate(set); err != nil {
		return GatewayExport{}, err
	}

	out := GatewayExport{
		Flows:         make([]Flow, 0, len(set.Rules)),
		DefaultTarget: set.DefaultTarget,
	}
	for _, r := range set.Rules {
		out.Flows = append(out.Flows, Flow{
			RuleID:          r.ID,
			Label:           r.Label,
			TargetStep:      r.TargetStep,
			Expression:      Compile(r.Conditions),
			OutputVariables: copyVariables(r.OutputVariables),
		})
	}
	return out, nil
}

// Evaluate runs set against bindings. Validation is not required; previews
// run on unsaved drafts.
func (e *Engine) Evaluate(set types.RuleSet, bindings types.Bindings) Route {
	return Evaluate(set, bindings)
}

// ImportFlows rebuilds a RuleSet from exported flows. Flows with an empty
// rule id get a generated one. The second return value holds one
// Decomposition per flow, in order.
func ImportFlows(export GatewayExport) (types.RuleSet, []Decomposition) {
	set := types.RuleSet{
		Rules:         make([]types.Rule, 0, len(export.Flows)),
		DefaultTarget: export.DefaultTarget,
	}
	decomps := make([]Decomposition, 0, len(export.Flows))

	for _, f := range export.Flows {
		d := Decompose(f.Expression)
		decomps = append(decomps, d)

		id := f.RuleID
		if id == "" {
			id = types.NewRuleID()
		}
		set.Rules = append(set.Rules, types.Rule{
			ID:              id,
			Label:           f.Label,
			Conditions:      d.Conditions,
			TargetStep:      f.TargetStep,
			OutputVariables: copyVariables(f.OutputVariables),
		})
	}
	return set, decomps
}

// LoadCatalog decodes a variable catalog from YAML (or JSON, which YAML
// accepts).
func LoadCatalog(r io.Reader) (*types.Catalog, error) {
	var c types.Catalog
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode variable catalog: %w", err)
	}

	seen := make(map[string]bool, len(c.Variables))
	for i, v := range c.Variables {
		path := fmt.Sprintf("variables[%d]", i)
		if v.Name == "" {
			return nil, types.NewValidationError(path+".name", "variable name is required")
		}
		if seen[v.Name] {
			return nil, types.Validationf(path+".name", "duplicate variable %q", v.Name)
		}
		seen[v.Name] = true
		switch v.Type {
		case types.VarNumber, types.VarEnum, types.VarText, types.VarBoolean:
		default:
			return nil, types.Validationf(path+".type", "unknown variable type %q", v.Type)
		}
	}
	return &c, nil
}
