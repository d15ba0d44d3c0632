package types

import (
	"fmt"
	"strings"
)

// PolicyMode is the join rule of a parallel gateway.
type PolicyMode string

const (
	PolicyAll  PolicyMode = "ALL"
	PolicyAny  PolicyMode = "ANY"
	PolicyNOfM PolicyMode = "N_OF_M"
)

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *PolicyMode) UnmarshalText(b []byte) error {
	switch v := PolicyMode(strings.ToUpper(strings.TrimSpace(string(b)))); v {
	case PolicyAll, PolicyAny, PolicyNOfM:
		*m = v
		return nil
	default:
		return fmt.Errorf("%w: policy mode %q", ErrInvalidMode, string(b))
	}
}

// CompletionPolicy is the join rule for one gateway, keyed by GatewayID.
// N is meaningful only for N_OF_M; M is the number of incoming branches.
type CompletionPolicy struct {
	GatewayID string     `json:"gatewayId" yaml:"gatewayId" db:"gateway_id"`
	Mode      PolicyMode `json:"mode" yaml:"mode" db:"mode"`
	N         int        `json:"n,omitempty" yaml:"n,omitempty" db:"n"`
	M         int        `json:"m,omitempty" yaml:"m,omitempty" db:"m"`
}
