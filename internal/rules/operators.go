// internal/rules/operators.go
package rules

import (
	"strings"

	"github.com/solatis/routekeeper/internal/types"
)

/*
 * Operator comparison logic for preview evaluation.
 *
 * Mirrors the compiled clause, not the operator's name: IS_EMPTY compiles to
 * "field == null", so only a missing or nil binding is empty; an empty string
 * is a value.
 *
 * Comparison kind is chosen the way the expression language coerces:
 *   - an unquoted (numeric) literal, or a numeric binding: number comparison
 *   - a boolean binding: boolean comparison
 *   - otherwise: string comparison
 *
 * Null handling: == is false, != is true, ordering operators are false,
 * method clauses (contains/startsWith) are false.
 */

// Compare applies op to a bound value and the condition's literal.
// found is false when the variable is absent from the bindings.
func Compare(op types.Operator, bound any, found bool, literal string) bool {
	isNull := !found || bound == nil

	switch op {
	case types.OpIsEmpty:
		return isNull
	case types.OpIsNotEmpty:
		return !isNull
	}

	if isNull {
		return op == types.OpNotEquals
	}

	switch op {
	case types.OpEquals:
		return compareEqual(bound, literal)
	case types.OpNotEquals:
		return !compareEqual(bound, literal)
	case types.OpGreaterThan:
		c, ok := compareOrdered(bound, literal)
		return ok && c > 0
	case types.OpLessThan:
		c, ok := compareOrdered(bound, literal)
		return ok && c < 0
	case types.OpGreaterThanOrEquals:
		c, ok := compareOrdered(bound, literal)
		return ok && c >= 0
	case types.OpLessThanOrEquals:
		c, ok := compareOrdered(bound, literal)
		return ok && c <= 0
	case types.OpContains:
		s, ok := bound.(string)
		return ok && strings.Contains(s, literal)
	case types.OpStartsWith:
		s, ok := bound.(string)
		return ok && strings.HasPrefix(s, literal)
	default:
		return false
	}
}

// compareEqual performs equality with expression-language coercion.
func compareEqual(bound any, literal string) bool {
	if IsNumber(literal) || isNumeric(bound) {
		a, okA := toNumber(bound)
		b, okB := toNumber(literal)
		return okA && okB && a == b
	}
	if b, ok := bound.(bool); ok {
		lit, ok := toBool(literal)
		return ok && b == lit
	}
	return toText(bound) == literal
}

// compareOrdered performs a three-way comparison (-1/0/1).
// Returns false when the operands cannot be ordered.
func compareOrdered(bound any, literal string) (int, bool) {
	if IsNumber(literal) || isNumeric(bound) {
		a, okA := toNumber(bound)
		b, okB := toNumber(literal)
		if !okA || !okB {
			return 0, false
		}
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		default:
			return 0, true
		}
	}
	s, ok := bound.(string)
	if !ok {
		return 0, false
	}
	return strings.Compare(s, literal), true
}
