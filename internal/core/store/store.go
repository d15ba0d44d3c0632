// Package store persists step configurations, completion policies and
// step completion claims through the named queries in internal/core/db.
//
// Configurations are stored as JSON payloads keyed by step id. Every save
// bumps a revision counter. A failed save never alters the caller's value:
// the *SaveError carries the payload that was attempted so the editor can
// retry it unchanged.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/routekeeper/internal/completion"
	"github.com/solatis/routekeeper/internal/core/db"
	"github.com/solatis/routekeeper/internal/types"
)

// Store is the SQL-backed persistence layer. Safe for concurrent use.
type Store struct {
	conn *sqlx.DB
	q    *db.Queries
	now  func() time.Time
}

var _ completion.PolicyStore = (*Store)(nil)

// New creates a Store over an open, migrated connection.
func New(conn *sqlx.DB) (*Store, error) {
	q, err := db.LoadQueries(conn)
	if err != nil {
		return nil, err
	}
	return &Store{conn: conn, q: q, now: time.Now}, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// SaveError reports a failed write. Payload is the value the caller tried
// to save, returned unchanged.
type SaveError struct {
	Kind    string // branching, outcomes, assignment, policies
	Key     string // step id or gateway id; empty for batches
	Payload any
	Err     error
}

// Error implements the error interface.
func (e *SaveError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("save %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("save %s %s: %v", e.Kind, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *SaveError) Unwrap() error {
	return e.Err
}

// Record is a loaded configuration with its persistence metadata.
type Record[T any] struct {
	StepID    string
	Config    T
	Revision  int64
	UpdatedAt time.Time
}

type configRow struct {
	StepID    string `db:"step_id"`
	Payload   string `db:"payload"`
	Revision  int64  `db:"revision"`
	UpdatedAt string `db:"updated_at"`
}

// configKind names the queries of one configuration table.
type configKind struct {
	name   string
	upsert string
	get    string
	delete string
}

func kindFor(name, table string) configKind {
	return configKind{
		name:   name,
		upsert: "upsert-" + table + "-config",
		get:    "get-" + table + "-config",
		delete: "delete-" + table + "-config",
	}
}

var (
	branchingKind  = kindFor("branching", "branching")
	outcomesKind   = kindFor("outcomes", "outcome")
	assignmentKind = kindFor("assignment", "assignment")
)

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func save(ctx context.Context, s *Store, kind configKind, stepID string, payload any) error {
	if stepID == "" {
		return types.NewValidationError("stepId", "step id is required")
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return &SaveError{Kind: kind.name, Key: stepID, Payload: payload, Err: err}
	}
	if _, err := s.q.Exec(ctx, kind.upsert, stepID, string(b), s.timestamp()); err != nil {
		return &SaveError{Kind: kind.name, Key: stepID, Payload: payload, Err: err}
	}
	return nil
}

func load[T any](ctx context.Context, s *Store, kind configKind, stepID string) (Record[T], error) {
	var row configRow
	if err := s.q.Get(ctx, kind.get, &row, stepID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record[T]{}, fmt.Errorf("%s for step %q: %w", kind.name, stepID, types.ErrConfigNotFound)
		}
		return Record[T]{}, fmt.Errorf("load %s for step %q: %w", kind.name, stepID, err)
	}

	rec := Record[T]{StepID: row.StepID, Revision: row.Revision}
	if err := json.Unmarshal([]byte(row.Payload), &rec.Config); err != nil {
		return Record[T]{}, fmt.Errorf("decode %s for step %q: %w", kind.name, stepID, err)
	}
	if at, err := time.Parse(time.RFC3339Nano, row.UpdatedAt); err == nil {
		rec.UpdatedAt = at
	}
	return rec, nil
}

func remove(ctx context.Context, s *Store, kind configKind, stepID string) error {
	if _, err := s.q.Exec(ctx, kind.delete, stepID); err != nil {
		return fmt.Errorf("delete %s for step %q: %w", kind.name, stepID, err)
	}
	return nil
}

// SaveBranching stores the gateway RuleSet of a step.
func (s *Store) SaveBranching(ctx context.Context, stepID string, set types.RuleSet) error {
	return save(ctx, s, branchingKind, stepID, set)
}

// LoadBranching returns types.ErrConfigNotFound when the step has none.
func (s *Store) LoadBranching(ctx context.Context, stepID string) (Record[types.RuleSet], error) {
	return load[types.RuleSet](ctx, s, branchingKind, stepID)
}

// DeleteBranching is idempotent.
func (s *Store) DeleteBranching(ctx context.Context, stepID string) error {
	return remove(ctx, s, branchingKind, stepID)
}

// SaveOutcomes stores the outcome options of a step.
func (s *Store) SaveOutcomes(ctx context.Context, stepID string, cfg types.OutcomeConfig) error {
	return save(ctx, s, outcomesKind, stepID, cfg)
}

// LoadOutcomes returns types.ErrConfigNotFound when the step has none.
func (s *Store) LoadOutcomes(ctx context.Context, stepID string) (Record[types.OutcomeConfig], error) {
	return load[types.OutcomeConfig](ctx, s, outcomesKind, stepID)
}

// DeleteOutcomes is idempotent.
func (s *Store) DeleteOutcomes(ctx context.Context, stepID string) error {
	return remove(ctx, s, outcomesKind, stepID)
}

// SaveAssignment stores the assignment rules of a step.
func (s *Store) SaveAssignment(ctx context.Context, stepID string, cfg types.AssignmentConfig) error {
	return save(ctx, s, assignmentKind, stepID, cfg)
}

// LoadAssignment returns types.ErrConfigNotFound when the step has none.
func (s *Store) LoadAssignment(ctx context.Context, stepID string) (Record[types.AssignmentConfig], error) {
	return load[types.AssignmentConfig](ctx, s, assignmentKind, stepID)
}

// DeleteAssignment is idempotent.
func (s *Store) DeleteAssignment(ctx context.Context, stepID string) error {
	return remove(ctx, s, assignmentKind, stepID)
}
