package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/solatis/routekeeper/internal/completion"
	"github.com/solatis/routekeeper/internal/types"
)

// UpsertPolicy implements completion.PolicyStore.
func (s *Store) UpsertPolicy(ctx context.Context, p types.CompletionPolicy) error {
	if err := completion.Validate(p); err != nil {
		return err
	}
	if _, err := s.q.Exec(ctx, "upsert-policy", p.GatewayID, string(p.Mode), p.N, p.M, s.timestamp()); err != nil {
		return &SaveError{Kind: "policies", Key: p.GatewayID, Payload: p, Err: err}
	}
	return nil
}

// UpsertPolicies implements completion.PolicyStore. The batch is written in
// one transaction.
func (s *Store) UpsertPolicies(ctx context.Context, ps []types.CompletionPolicy) error {
	return s.ApplyPolicies(ctx, ps, nil)
}

// PolicyChange is the payload of a failed ApplyPolicies.
type PolicyChange struct {
	Policies []types.CompletionPolicy `json:"policies"`
	Delete   []string                 `json:"delete,omitempty"`
}

// ApplyPolicies implements completion.PolicyStore. Upserts and deletes run
// in one transaction.
func (s *Store) ApplyPolicies(ctx context.Context, ps []types.CompletionPolicy, deletes []string) error {
	if err := completion.ValidateChange(ps, deletes); err != nil {
		return err
	}

	fail := func(err error) error {
		return &SaveError{Kind: "policies", Payload: PolicyChange{Policies: ps, Delete: deletes}, Err: err}
	}

	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fail(err)
	}
	q := s.q.WithTx(tx)
	now := s.timestamp()
	for _, p := range ps {
		if _, err := q.Exec(ctx, "upsert-policy", p.GatewayID, string(p.Mode), p.N, p.M, now); err != nil {
			tx.Rollback()
			return fail(fmt.Errorf("gateway %q: %w", p.GatewayID, err))
		}
	}
	for _, id := range deletes {
		if _, err := q.Exec(ctx, "delete-policy", id); err != nil {
			tx.Rollback()
			return fail(fmt.Errorf("delete gateway %q: %w", id, err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fail(err)
	}
	return nil
}

// GetPolicy implements completion.PolicyStore.
func (s *Store) GetPolicy(ctx context.Context, gatewayID string) (types.CompletionPolicy, error) {
	var p types.CompletionPolicy
	if err := s.q.Get(ctx, "get-policy", &p, gatewayID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.CompletionPolicy{}, fmt.Errorf("gateway %q: %w", gatewayID, types.ErrPolicyNotFound)
		}
		return types.CompletionPolicy{}, fmt.Errorf("get policy %q: %w", gatewayID, err)
	}
	return p, nil
}

// ListPolicies implements completion.PolicyStore.
func (s *Store) ListPolicies(ctx context.Context) ([]types.CompletionPolicy, error) {
	ps := []types.CompletionPolicy{}
	if err := s.q.Select(ctx, "list-policies", &ps); err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	return ps, nil
}

// DeletePolicy implements completion.PolicyStore.
func (s *Store) DeletePolicy(ctx context.Context, gatewayID string) error {
	if _, err := s.q.Exec(ctx, "delete-policy", gatewayID); err != nil {
		return fmt.Errorf("delete policy %q: %w", gatewayID, err)
	}
	return nil
}
