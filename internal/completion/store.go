package completion

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/solatis/routekeeper/internal/types"
)

// PolicyStore persists one CompletionPolicy per gateway.
// Implementations must be safe for concurrent use.
type PolicyStore interface {
	// UpsertPolicy validates p and replaces any record for p.GatewayID.
	UpsertPolicy(ctx context.Context, p types.CompletionPolicy) error

	// UpsertPolicies validates every policy first and then writes all of
	// them, or none.
	UpsertPolicies(ctx context.Context, ps []types.CompletionPolicy) error

	// ApplyPolicies upserts ps and deletes the gateways in deletes as one
	// change: either every write happens or none does.
	ApplyPolicies(ctx context.Context, ps []types.CompletionPolicy, deletes []string) error

	// GetPolicy returns types.ErrPolicyNotFound when absent.
	GetPolicy(ctx context.Context, gatewayID string) (types.CompletionPolicy, error)

	// ListPolicies returns all policies ordered by gateway id.
	ListPolicies(ctx context.Context) ([]types.CompletionPolicy, error)

	// DeletePolicy is idempotent. Absence means the execution engine's own
	// default applies.
	DeletePolicy(ctx context.Context, gatewayID string) error
}

// ValidateAll validates a batch and rejects repeated gateway ids.
func ValidateAll(ps []types.CompletionPolicy) error {
	seen := make(map[string]int, len(ps))
	for i, p := range ps {
		if err := Validate(p); err != nil {
			return fmt.Errorf("policies[%d]: %w", i, err)
		}
		if prev, dup := seen[p.GatewayID]; dup {
			return types.Validationf(fmt.Sprintf("policies[%d].gatewayId", i),
				"gateway %q repeated (also at policies[%d])", p.GatewayID, prev)
		}
		seen[p.GatewayID] = i
	}
	return nil
}

// ValidateChange validates an ApplyPolicies change. A gateway may not be
// both upserted and deleted.
func ValidateChange(ps []types.CompletionPolicy, deletes []string) error {
	if err := ValidateAll(ps); err != nil {
		return err
	}
	upserted := make(map[string]struct{}, len(ps))
	for _, p := range ps {
		upserted[p.GatewayID] = struct{}{}
	}
	for i, id := range deletes {
		field := fmt.Sprintf("delete[%d]", i)
		if id == "" {
			return types.NewValidationError(field, "gateway id is required")
		}
		if _, ok := upserted[id]; ok {
			return types.Validationf(field, "gateway %q is both saved and deleted", id)
		}
	}
	return nil
}

// MemoryStore is an in-memory PolicyStore for previews and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	policies map[string]types.CompletionPolicy
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{policies: make(map[string]types.CompletionPolicy)}
}

// UpsertPolicy implements PolicyStore.
func (m *MemoryStore) UpsertPolicy(ctx context.Context, p types.CompletionPolicy) error {
	if err := Validate(p); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[p.GatewayID] = p
	return nil
}

// UpsertPolicies implements PolicyStore.
func (m *MemoryStore) UpsertPolicies(ctx context.Context, ps []types.CompletionPolicy) error {
	return m.ApplyPolicies(ctx, ps, nil)
}

// ApplyPolicies implements PolicyStore.
func (m *MemoryStore) ApplyPolicies(ctx context.Context, ps []types.CompletionPolicy, deletes []string) error {
	if err := ValidateChange(ps, deletes); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range ps {
		m.policies[p.GatewayID] = p
	}
	for _, id := range deletes {
		delete(m.policies, id)
	}
	return nil
}

// GetPolicy implements PolicyStore.
func (m *MemoryStore) GetPolicy(ctx context.Context, gatewayID string) (types.CompletionPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.policies[gatewayID]
	if !ok {
		return types.CompletionPolicy{}, fmt.Errorf("gateway %q: %w", gatewayID, types.ErrPolicyNotFound)
	}
	return p, nil
}

// ListPolicies implements PolicyStore.
func (m *MemoryStore) ListPolicies(ctx context.Context) ([]types.CompletionPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.CompletionPolicy, 0, len(m.policies))
	for _, p := range m.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GatewayID < out[j].GatewayID })
	return out, nil
}

// DeletePolicy implements PolicyStore.
func (m *MemoryStore) DeletePolicy(ctx context.Context, gatewayID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.policies, gatewayID)
	return nil
}
