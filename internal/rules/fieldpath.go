// internal/rules/fieldpath.go
package rules

import (
	"strings"

	"github.com/solatis/routekeeper/internal/types"
)

/*
 * Variable resolution against bindings.
 *
 * A condition field is a variable name, optionally dotted to reach into a
 * structured variable ("requester.department"). Resolution first tries the
 * whole name as a flat key, since catalogs may carry dotted names verbatim,
 * then walks nested maps segment by segment.
 *
 * Depth is capped at MaxPathDepth to bound work on hostile input.
 */

// MaxPathDepth caps the number of dotted segments walked.
const MaxPathDepth = 16

// Resolve returns the bound value for field and whether it was present.
func Resolve(field string, bindings types.Bindings) (any, bool) {
	if bindings == nil || field == "" {
		return nil, false
	}
	if v, ok := bindings[field]; ok {
		return v, true
	}

	segments := strings.Split(field, ".")
	if len(segments) < 2 || len(segments) > MaxPathDepth {
		return nil, false
	}

	var current any = map[string]any(bindings)
	for _, seg := range segments {
		next, ok := child(current, seg)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func child(v any, key string) (any, bool) {
	switch m := v.(type) {
	case map[string]any:
		c, ok := m[key]
		return c, ok
	case types.Bindings:
		c, ok := m[key]
		return c, ok
	case map[string]string:
		c, ok := m[key]
		return c, ok
	default:
		return nil, false
	}
}
