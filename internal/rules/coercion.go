// internal/rules/coercion.go
package rules

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

/*
 * Type coercion for preview evaluation.
 *
 * Bindings arrive from JSON (float64, string, bool, nil, nested maps) or from
 * Go callers (int, int64, float32). Coercion follows the gateway's expression
 * language so that a preview predicts what the process engine will do:
 *
 *   - number: numeric Go types, json.Number, and strings holding a numeric
 *     literal; booleans never coerce to numbers
 *   - text: lenient, every scalar has a string form
 *   - boolean: bool, or the strings "true"/"false"
 *
 * Whitespace-only strings are not numbers.
 */

// toNumber coerces v to float64.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" || !IsNumber(s) {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// isNumeric reports whether v is a Go numeric value (not a numeric string).
func isNumeric(v any) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64, uint, uint64, json.Number:
		return true
	}
	return false
}

// toText converts all scalar types to their string representation.
func toText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// toBool coerces v to a boolean. Only bool and "true"/"false" qualify.
func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
		return false, false
	default:
		return false, false
	}
}
