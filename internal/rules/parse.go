// internal/rules/parse.go
package rules

import (
	"regexp"
	"strings"

	"github.com/solatis/routekeeper/internal/types"
)

/*
 * Expression decomposition back into conditions.
 *
 * Inverse of Compile for the six symbol operators only. The wrapper is
 * stripped, the body is split strictly on " && ", and each part must match
 * field <sym> value where value is a quoted string, a numeric literal or a
 * bare true/false. Field names may use any Unicode letter. A bare boolean
 * comes back as the string "true" or "false", which Compile then quotes;
 * the evaluator treats both spellings alike.
 *
 * Everything else (method-call clauses from CONTAINS/STARTS_WITH, null
 * checks from IS_EMPTY/IS_NOT_EMPTY, hand-written JUEL) is skipped. The
 * compiler emits forms the parser cannot read back; existing process
 * definitions depend on this exact behaviour, so it is kept lossy.
 *
 * Decompose never fails. Callers that need full fidelity check Partial.
 */

var clausePattern = regexp.MustCompile(
	`^([\p{L}_$][\p{L}\p{N}_$.]*)\s*(==|!=|>=|<=|>|<)\s*("(?s:.*)"|-?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?|true|false)$`,
)

// Decomposition is the result of parsing expression text.
type Decomposition struct {
	Conditions []types.Condition // recovered conditions, in clause order
	Skipped    []string          // clauses that could not be recovered
	Partial    bool              // true when any clause was skipped
}

// Parse recovers the symbol-operator conditions from expression text.
func Parse(text string) []types.Condition {
	return Decompose(text).Conditions
}

// Decompose parses expression text and reports which clauses were dropped.
func Decompose(text string) Decomposition {
	var d Decomposition

	body := unwrap(text)
	if body == "" {
		return d
	}

	for _, part := range strings.Split(body, clauseSeparator) {
		c := parseClause(part)
		if c.Field == "" {
			d.Skipped = append(d.Skipped, strings.TrimSpace(part))
			continue
		}
		d.Conditions = append(d.Conditions, c)
	}

	d.Partial = len(d.Skipped) > 0
	return d
}

// unwrap strips surrounding whitespace and the ${ } wrapper when present.
func unwrap(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, exprOpen) && strings.HasSuffix(s, exprClose) {
		s = s[len(exprOpen) : len(s)-len(exprClose)]
	}
	return strings.TrimSpace(s)
}

// parseClause returns a Condition with an empty Field when part does not
// match the symbol-operator pattern.
func parseClause(part string) types.Condition {
	m := clausePattern.FindStringSubmatch(strings.TrimSpace(part))
	if m == nil {
		return types.Condition{}
	}

	op, ok := types.OperatorForSymbol(m[2])
	if !ok {
		return types.Condition{}
	}

	value := m[3]
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		value = value[1 : len(value)-1]
	}

	return types.Condition{Field: m[1], Operator: op, Value: value}
}
