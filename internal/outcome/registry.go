// Package outcome maintains the action-type catalog and per-step outcome
// options.
//
// The catalog is data: the default entries ship as an embedded YAML file and
// deployments may load their own or register extra codes at runtime. An
// option bound to a code takes that code's defaults wholesale whenever its
// action type is (re)selected.
package outcome

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"regexp"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/solatis/routekeeper/internal/types"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var codePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// catalogFile is the on-disk shape of an action catalog.
type catalogFile struct {
	ActionTypes []types.ActionType `yaml:"actionTypes" json:"actionTypes"`
}

// Registry is a goroutine-safe catalog of action types.
type Registry struct {
	mu     sync.RWMutex
	byCode map[types.ActionCode]types.ActionType
	order  []types.ActionCode
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byCode: make(map[types.ActionCode]types.ActionType)}
}

// DefaultRegistry returns a registry holding the embedded catalog.
func DefaultRegistry() *Registry {
	r, err := LoadRegistry(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic(fmt.Sprintf("embedded action catalog: %v", err))
	}
	return r
}

// LoadRegistry decodes a YAML (or JSON) action catalog.
func LoadRegistry(rd io.Reader) (*Registry, error) {
	var f catalogFile
	if err := yaml.NewDecoder(rd).Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode action catalog: %w", err)
	}

	r := NewRegistry()
	for i, at := range f.ActionTypes {
		if err := r.Register(at); err != nil {
			return nil, fmt.Errorf("actionTypes[%d]: %w", i, err)
		}
	}
	return r, nil
}

// Register adds or replaces an action type. Replacing keeps the code's
// original position.
func (r *Registry) Register(at types.ActionType) error {
	if !codePattern.MatchString(string(at.Code)) {
		return types.Validationf("code", "action code %q must be upper snake case", at.Code)
	}
	if at.DefaultLabel == "" {
		return types.Validationf("defaultLabel", "action %s needs a default label", at.Code)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byCode[at.Code]; !exists {
		r.order = append(r.order, at.Code)
	}
	r.byCode[at.Code] = at.Clone()
	return nil
}

// Lookup returns a copy of the action type for code.
func (r *Registry) Lookup(code types.ActionCode) (types.ActionType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	at, ok := r.byCode[code]
	if !ok {
		return types.ActionType{}, false
	}
	return at.Clone(), true
}

// Code validates s against the catalog.
func (r *Registry) Code(s string) (types.ActionCode, error) {
	code := types.ActionCode(s)
	if _, ok := r.Lookup(code); !ok {
		return "", fmt.Errorf("%w: %q", types.ErrUnknownActionType, s)
	}
	return code, nil
}

// Types returns all action types in registration order.
func (r *Registry) Types() []types.ActionType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.ActionType, 0, len(r.order))
	for _, c := range r.order {
		out = append(out, r.byCode[c].Clone())
	}
	return out
}

// Codes returns the registered codes sorted alphabetically.
func (r *Registry) Codes() []types.ActionCode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.ActionCode, len(r.order))
	copy(out, r.order)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
