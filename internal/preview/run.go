package preview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/routekeeper/internal/assignment"
	"github.com/solatis/routekeeper/internal/rules"
	"github.com/solatis/routekeeper/internal/types"
)

// Preview kinds, used as metric labels and singleflight key prefixes.
const (
	KindRoute      = "route"
	KindAssignment = "assignment"
)

// Failure codes carried by a Result.
const (
	CodeOK         = ""
	CodeUnresolved = "unresolved"
	CodeTimeout    = "timeout"
	CodeError      = "error"
)

// Result is a preview outcome. On failure Value is the zero value, Code is
// set and Message explains the problem to the editor.
type Result[T any] struct {
	Value   T      `json:"value"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Version uint64 `json:"version"` // snapshot version the preview ran on
	Shared  bool   `json:"-"`       // answered by a concurrent identical call
}

// OK reports whether the preview succeeded.
func (r Result[T]) OK() bool {
	return r.Code == CodeOK
}

// AssignmentView is the preview contract for an assignment: matched users,
// or the fallback role.
type AssignmentView struct {
	Users          []assignment.Assignee `json:"users"`
	FallbackRoleID string                `json:"fallbackRoleId,omitempty"`
	CompletionMode types.CompletionMode  `json:"completionMode,omitempty"`
}

// PreviewRoute evaluates the snapshot's RuleSet against bindings.
func (s *Session) PreviewRoute(ctx context.Context, bindings types.Bindings) Result[rules.Route] {
	snap := s.Snapshot()
	key := flightKey(KindRoute, snap, fingerprint(bindings))

	return run(ctx, s, KindRoute, key, snap, func(ctx context.Context) (rules.Route, error) {
		return s.opts.Engine.Evaluate(snap.draft.RuleSet, bindings), nil
	})
}

// PreviewAssignment resolves the snapshot's AssignmentConfig.
func (s *Session) PreviewAssignment(ctx context.Context) Result[AssignmentView] {
	snap := s.Snapshot()
	key := flightKey(KindAssignment, snap, 0)

	return run(ctx, s, KindAssignment, key, snap, func(ctx context.Context) (AssignmentView, error) {
		if s.opts.Resolver == nil {
			return AssignmentView{}, errors.New("no user directory configured")
		}
		res, err := s.opts.Resolver.Resolve(ctx, snap.draft.Assignment)
		if err != nil {
			return AssignmentView{}, err
		}
		users := res.Assignees
		if users == nil {
			users = []assignment.Assignee{}
		}
		return AssignmentView{
			Users:          users,
			FallbackRoleID: res.FallbackRoleID,
			CompletionMode: res.CompletionMode,
		}, nil
	})
}

// run executes fn once per identical in-flight key, converting errors and
// panics into a failed Result.
func run[T any](ctx context.Context, s *Session, kind, key string, snap *Snapshot,
	fn func(context.Context) (T, error)) Result[T] {

	start := time.Now()
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	v, err, shared := s.group.Do(key, func() (res any, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("preview panicked: %v", p)
			}
		}()
		return fn(ctx)
	})

	out := Result[T]{Version: snap.Version, Shared: shared}
	if err == nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
	}
	if err != nil {
		out.Code, out.Message = classify(err)
		s.logger.Debug().Err(err).Str("kind", kind).Uint64("version", snap.Version).Msg("preview failed")
	} else {
		out.Value = v.(T)
	}

	outcome := "ok"
	if out.Code != CodeOK {
		outcome = out.Code
	}
	s.opts.Metrics.ObservePreview(kind, outcome, time.Since(start), shared)
	if out.Code == CodeUnresolved && s.opts.Metrics != nil {
		s.opts.Metrics.Unresolved.Inc()
	}
	return out
}

func classify(err error) (string, string) {
	switch {
	case errors.Is(err, types.ErrUnresolvedAssignment):
		return CodeUnresolved, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout, "preview timed out"
	case errors.Is(err, context.Canceled):
		return CodeTimeout, "preview cancelled"
	default:
		return CodeError, err.Error()
	}
}
