package types

import (
	"fmt"
	"strings"
)

// Operator is the closed set of comparison operators a Condition may use.
// The zero value is OpUnspecified, used by editor rows that have not been
// configured yet; it never compiles into an expression.
type Operator int

const (
	OpUnspecified Operator = iota
	OpEquals
	OpNotEquals
	OpGreaterThan
	OpLessThan
	OpGreaterThanOrEquals
	OpLessThanOrEquals
	OpContains
	OpStartsWith
	OpIsEmpty
	OpIsNotEmpty
)

var operatorNames = [...]string{
	OpUnspecified:         "",
	OpEquals:              "EQUALS",
	OpNotEquals:           "NOT_EQUALS",
	OpGreaterThan:         "GREATER_THAN",
	OpLessThan:            "LESS_THAN",
	OpGreaterThanOrEquals: "GREATER_THAN_OR_EQUALS",
	OpLessThanOrEquals:    "LESS_THAN_OR_EQUALS",
	OpContains:            "CONTAINS",
	OpStartsWith:          "STARTS_WITH",
	OpIsEmpty:             "IS_EMPTY",
	OpIsNotEmpty:          "IS_NOT_EMPTY",
}

// symbols maps the six infix operators to their expression symbol.
var symbols = map[Operator]string{
	OpEquals:              "==",
	OpNotEquals:           "!=",
	OpGreaterThan:         ">",
	OpLessThan:            "<",
	OpGreaterThanOrEquals: ">=",
	OpLessThanOrEquals:    "<=",
}

// Operators returns every configurable operator in declaration order.
func Operators() []Operator {
	ops := make([]Operator, 0, len(operatorNames)-1)
	for op := OpEquals; op <= OpIsNotEmpty; op++ {
		ops = append(ops, op)
	}
	return ops
}

// String returns the persisted operator name.
func (o Operator) String() string {
	if o < 0 || int(o) >= len(operatorNames) {
		return fmt.Sprintf("Operator(%d)", int(o))
	}
	return operatorNames[o]
}

// Valid reports whether o is a configurable operator.
func (o Operator) Valid() bool {
	return o > OpUnspecified && o <= OpIsNotEmpty
}

// Symbol returns the infix symbol for the six symbol operators.
func (o Operator) Symbol() (string, bool) {
	s, ok := symbols[o]
	return s, ok
}

// Unary reports whether the operator ignores its value.
func (o Operator) Unary() bool {
	return o == OpIsEmpty || o == OpIsNotEmpty
}

// Ordering reports whether the operator requires an ordered (numeric) value.
func (o Operator) Ordering() bool {
	switch o {
	case OpGreaterThan, OpLessThan, OpGreaterThanOrEquals, OpLessThanOrEquals:
		return true
	}
	return false
}

// ParseOperator converts a persisted operator name to an Operator.
// The empty string parses to OpUnspecified.
func ParseOperator(s string) (Operator, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range operatorNames {
		if n == name {
			return Operator(i), nil
		}
	}
	return OpUnspecified, fmt.Errorf("%w: %q", ErrInvalidOperator, s)
}

// OperatorForSymbol maps an infix symbol back to its operator.
func OperatorForSymbol(sym string) (Operator, bool) {
	for op, s := range symbols {
		if s == sym {
			return op, true
		}
	}
	return OpUnspecified, false
}

// MarshalText implements encoding.TextMarshaler.
func (o Operator) MarshalText() ([]byte, error) {
	if o != OpUnspecified && !o.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOperator, int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// Unknown names are rejected so invalid operators never enter the model.
func (o *Operator) UnmarshalText(b []byte) error {
	op, err := ParseOperator(string(b))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// Condition is a single predicate: field operator value.
type Condition struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    string   `json:"value" yaml:"value"`
}

// NewCondition constructs a validated Condition.
// Unary operators (IS_EMPTY, IS_NOT_EMPTY) drop the value.
func NewCondition(field string, op Operator, value string) (Condition, error) {
	if strings.TrimSpace(field) == "" {
		return Condition{}, NewValidationError("field", "condition field must not be empty")
	}
	if !op.Valid() {
		return Condition{}, fmt.Errorf("%w: %v", ErrInvalidOperator, op)
	}
	if op.Unary() {
		value = ""
	}
	return Condition{Field: field, Operator: op, Value: value}, nil
}

// Configured reports whether the condition can be compiled.
func (c Condition) Configured() bool {
	return c.Field != "" && c.Operator.Valid()
}

// CloneConditions returns an independent copy of conds.
func CloneConditions(conds []Condition) []Condition {
	if conds == nil {
		return nil
	}
	out := make([]Condition, len(conds))
	copy(out, conds)
	return out
}
