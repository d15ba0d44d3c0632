package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/routekeeper/internal/core/store"
	"github.com/solatis/routekeeper/internal/types"
)

// toStatus maps domain errors onto gRPC codes:
// validation and unknown-name errors map to INVALID_ARGUMENT,
// missing records to NOT_FOUND, lost completion races to ALREADY_EXISTS,
// unresolved assignments to FAILED_PRECONDITION, persistence failures to
// UNAVAILABLE and context expiry to DEADLINE_EXCEEDED.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var saveErr *store.SaveError
	switch {
	case errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrInvalidOperator),
		errors.Is(err, types.ErrInvalidDimension),
		errors.Is(err, types.ErrInvalidMode),
		errors.Is(err, types.ErrUnknownActionType):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, types.ErrRuleNotFound),
		errors.Is(err, types.ErrOptionNotFound),
		errors.Is(err, types.ErrPolicyNotFound),
		errors.Is(err, types.ErrConfigNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, types.ErrAlreadyCompleted):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, types.ErrUnresolvedAssignment):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &saveErr):
		return saveStatus(saveErr)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// storeStatus maps errors from the persistence layer. Anything that is not
// a domain error means the database is unreachable or failing.
func storeStatus(err error) error {
	s := toStatus(err)
	if status.Code(s) == codes.Internal {
		return status.Error(codes.Unavailable, err.Error())
	}
	return s
}

// saveStatus reports a failed save as UNAVAILABLE with the unsaved payload
// attached as a status detail, so the caller can retry with it.
func saveStatus(saveErr *store.SaveError) error {
	st := status.New(codes.Unavailable, saveErr.Error())
	detail, err := encode(map[string]any{
		"kind":    saveErr.Kind,
		"key":     saveErr.Key,
		"payload": saveErr.Payload,
	})
	if err != nil {
		return st.Err()
	}
	if withDetail, err := st.WithDetails(detail); err == nil {
		st = withDetail
	}
	return st.Err()
}
