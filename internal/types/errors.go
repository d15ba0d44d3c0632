package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for routekeeper operations.
var (
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidOperator indicates an unknown operator name or value.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrInvalidDimension indicates an unknown assignment dimension.
	ErrInvalidDimension = errors.New("invalid assignment dimension")

	// ErrInvalidMode indicates an unknown completion or policy mode.
	ErrInvalidMode = errors.New("invalid mode")

	// ErrRuleNotFound indicates an edit referenced a rule id not in the set.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrOptionNotFound indicates an edit referenced an option index out of range.
	ErrOptionNotFound = errors.New("outcome option not found")

	// ErrUnknownActionType indicates a code absent from the action catalog.
	ErrUnknownActionType = errors.New("unknown action type")

	// ErrPolicyNotFound indicates no completion policy exists for a gateway.
	ErrPolicyNotFound = errors.New("completion policy not found")

	// ErrConfigNotFound indicates no persisted configuration exists for a step.
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrUnresolvedAssignment matches every *UnresolvedAssignmentError.
	ErrUnresolvedAssignment = errors.New("unresolved assignment")

	// ErrAlreadyCompleted matches every *CompletionConflictError.
	ErrAlreadyCompleted = errors.New("already completed")
)

// ValidationError reports a configuration value that breaks an invariant.
type ValidationError struct {
	Field   string // offending field or path, e.g. "conditions[2].id"
	Message string // human-readable reason
}

// NewValidationError builds a *ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Validationf builds a *ValidationError with a formatted message.
func Validationf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed [%s]: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) true.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// UnresolvedAssignmentError reports that no actor could be assigned: no rule
// matched and no fallback role is configured. It must reach the operator.
type UnresolvedAssignmentError struct {
	StepID     string // optional, filled by callers that know the step
	RuleCount  int    // rules that were evaluated
	Candidates int    // users that were considered
}

// Error implements the error interface.
func (e *UnresolvedAssignmentError) Error() string {
	step := e.StepID
	if step == "" {
		step = "step"
	}
	return fmt.Sprintf("unresolved assignment for %s: %d rules matched none of %d candidates and no fallback role is set",
		step, e.RuleCount, e.Candidates)
}

// Is makes errors.Is(err, ErrUnresolvedAssignment) true.
func (e *UnresolvedAssignmentError) Is(target error) bool {
	return target == ErrUnresolvedAssignment
}

// CompletionConflictError is returned to every completion attempt that lost
// the race for a step or branch that was already completed.
type CompletionConflictError struct {
	StepID   string
	ActorID  string // actor whose attempt was rejected
	WinnerID string // actor that completed first, when known
}

// Error implements the error interface.
func (e *CompletionConflictError) Error() string {
	if e.WinnerID != "" {
		return fmt.Sprintf("step %s already completed by %s", e.StepID, e.WinnerID)
	}
	return fmt.Sprintf("step %s already completed", e.StepID)
}

// Is makes errors.Is(err, ErrAlreadyCompleted) true.
func (e *CompletionConflictError) Is(target error) bool {
	return target == ErrAlreadyCompleted
}
