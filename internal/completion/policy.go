// Package completion defines how many parallel branches or assignees must
// finish before a workflow proceeds.
//
// Policies are stored per gateway in their external shape (ALL, ANY,
// N_OF_M with n and m) and normalized to a single threshold for runtime
// use: ALL needs m, ANY needs 1, N_OF_M needs n.
//
// Runtime types in this package (Join, Latch, Progress) are goroutine-safe
// and guarantee a single winning transition: whoever crosses the threshold
// first is told so, everyone after gets a definitive answer.
package completion

import (
	"fmt"

	"github.com/solatis/routekeeper/internal/types"
)

// Validate checks a policy's shape.
func Validate(p types.CompletionPolicy) error {
	if p.GatewayID == "" {
		return types.NewValidationError("gatewayId", "gateway id is required")
	}
	if p.M < 0 {
		return types.Validationf("m", "branch count must not be negative, got %d", p.M)
	}

	switch p.Mode {
	case types.PolicyAll, types.PolicyAny:
		return nil
	case types.PolicyNOfM:
		if p.M < 1 {
			return types.Validationf("m", "N_OF_M needs a branch count of at least 1, got %d", p.M)
		}
		if p.N < 1 || p.N > p.M {
			return types.Validationf("n", "N_OF_M needs 1 <= n <= m, got n=%d m=%d", p.N, p.M)
		}
		return nil
	default:
		return types.Validationf("mode", "unknown completion mode %q", p.Mode)
	}
}

// Threshold is the normalized number of completions that satisfies p.
// ALL and ANY need m to be set when used at runtime; ANY only needs m >= 1.
func Threshold(p types.CompletionPolicy) (int, error) {
	if err := Validate(p); err != nil {
		return 0, err
	}
	switch p.Mode {
	case types.PolicyAny:
		return 1, nil
	case types.PolicyAll:
		if p.M < 1 {
			return 0, types.NewValidationError("m", "ALL needs the branch count to compute a threshold")
		}
		return p.M, nil
	default:
		return p.N, nil
	}
}

// Normalize rewrites p in N_OF_M form with the same threshold.
func Normalize(p types.CompletionPolicy) (types.CompletionPolicy, error) {
	n, err := Threshold(p)
	if err != nil {
		return p, err
	}
	m := p.M
	if m < n {
		m = n
	}
	return types.CompletionPolicy{GatewayID: p.GatewayID, Mode: types.PolicyNOfM, N: n, M: m}, nil
}

// Label returns the external mode label for an N_OF_M threshold: ALL for
// n == m, ANY for n == 1 with more than one branch, N_OF_M otherwise.
func Label(n, m int) types.PolicyMode {
	switch {
	case n == m:
		return types.PolicyAll
	case n == 1:
		return types.PolicyAny
	default:
		return types.PolicyNOfM
	}
}

// Describe renders p for logs and CLI output.
func Describe(p types.CompletionPolicy) string {
	switch p.Mode {
	case types.PolicyNOfM:
		return fmt.Sprintf("%s %d of %d", p.GatewayID, p.N, p.M)
	default:
		return fmt.Sprintf("%s %s", p.GatewayID, p.Mode)
	}
}
