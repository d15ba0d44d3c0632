// internal/rules/compile.go
package rules

import (
	"regexp"
	"strings"

	"github.com/solatis/routekeeper/internal/types"
)

/*
 * Condition compilation to gateway expression text.
 *
 * Renders an AND group of types.Condition as the conditional-flow attribute
 * understood by the process engine: ${clause && clause ...}.
 *
 * Clause forms:
 *   - six symbol operators: field <sym> value (number unquoted, else "value")
 *   - CONTAINS:             field.contains("value")
 *   - STARTS_WITH:          field.startsWith("value")
 *   - IS_EMPTY:             field == null
 *   - IS_NOT_EMPTY:         field != null
 *
 * Conjunction only: no disjunction and no parentheses. Rows with an empty
 * field or an unset operator are editor drafts and are skipped. An empty
 * group compiles to "" with no wrapper.
 *
 * Values are embedded verbatim between quotes. Quotes inside values and the
 * " && " separator inside values are not escaped; Parse cannot recover such
 * values (see parse.go).
 */

const (
	exprOpen        = "${"
	exprClose       = "}"
	clauseSeparator = " && "
)

// numberPattern matches the literals the compiler leaves unquoted.
// Parse uses the same pattern so both directions agree on what is a number.
var numberPattern = regexp.MustCompile(`^-?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?$`)

// IsNumber reports whether value is emitted as an unquoted numeric literal.
func IsNumber(value string) bool {
	return numberPattern.MatchString(value)
}

// Compile renders conditions as a gateway expression.
func Compile(conditions []types.Condition) string {
	clauses := make([]string, 0, len(conditions))
	for _, c := range conditions {
		if clause, ok := CompileClause(c); ok {
			clauses = append(clauses, clause)
		}
	}
	if len(clauses) == 0 {
		return ""
	}
	return exprOpen + strings.Join(clauses, clauseSeparator) + exprClose
}

// CompileClause renders one condition. It returns false for rows that are
// not configured.
func CompileClause(c types.Condition) (string, bool) {
	if c.Field == "" {
		return "", false
	}

	if sym, ok := c.Operator.Symbol(); ok {
		return c.Field + " " + sym + " " + literal(c.Value), true
	}

	switch c.Operator {
	case types.OpContains:
		return c.Field + `.contains("` + c.Value + `")`, true
	case types.OpStartsWith:
		return c.Field + `.startsWith("` + c.Value + `")`, true
	case types.OpIsEmpty:
		return c.Field + " == null", true
	case types.OpIsNotEmpty:
		return c.Field + " != null", true
	default:
		return "", false
	}
}

func literal(value string) string {
	if IsNumber(value) {
		return value
	}
	return `"` + value + `"`
}
