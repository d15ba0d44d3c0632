package types

// VariableType is the value type of a catalog variable.
type VariableType string

const (
	VarNumber  VariableType = "number"
	VarEnum    VariableType = "enum"
	VarText    VariableType = "text"
	VarBoolean VariableType = "boolean"
)

// VariableOption is one allowed value of an enum variable.
type VariableOption struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// VariableDef describes a variable that may appear in Condition.Field.
type VariableDef struct {
	Name    string           `json:"name" yaml:"name"`
	Label   string           `json:"label" yaml:"label"`
	Type    VariableType     `json:"type" yaml:"type"`
	Options []VariableOption `json:"options,omitempty" yaml:"options,omitempty"`
}

// HasOption reports whether value is one of the enum options.
func (v VariableDef) HasOption(value string) bool {
	for _, o := range v.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Catalog is the set of variables available to a workflow's conditions.
type Catalog struct {
	Variables []VariableDef `json:"variables" yaml:"variables"`
}

// Lookup finds a variable by name.
func (c Catalog) Lookup(name string) (VariableDef, bool) {
	for _, v := range c.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return VariableDef{}, false
}

// With returns a catalog where defs replace same-named variables and the
// rest are appended.
func (c Catalog) With(defs ...VariableDef) Catalog {
	out := Catalog{Variables: make([]VariableDef, 0, len(c.Variables)+len(defs))}
	replaced := make(map[string]bool, len(defs))
	for _, v := range c.Variables {
		for _, d := range defs {
			if d.Name == v.Name {
				v = d
				replaced[d.Name] = true
				break
			}
		}
		out.Variables = append(out.Variables, v)
	}
	for _, d := range defs {
		if !replaced[d.Name] {
			out.Variables = append(out.Variables, d)
		}
	}
	return out
}
