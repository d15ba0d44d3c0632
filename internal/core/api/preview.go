package api

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/routekeeper/internal/preview"
	"github.com/solatis/routekeeper/internal/types"
)

// sessionRequest addresses an editor session. A present draft replaces the
// session's snapshot before the preview runs.
type sessionRequest struct {
	SessionID string         `json:"sessionId"`
	Draft     *preview.Draft `json:"draft,omitempty"`
}

func (s *Service) session(req sessionRequest) (*preview.Session, error) {
	if req.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "sessionId is required")
	}
	sess := s.hub.Session(req.SessionID)
	if req.Draft != nil {
		sess.Update(*req.Draft)
	}
	return sess, nil
}

// PreviewRoute evaluates the session's rule set against the request
// bindings. Preview failures are reported in the reply, not as RPC errors.
func (s *Service) PreviewRoute(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		sessionRequest
		Bindings types.Bindings `json:"bindings"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	sess, err := s.session(req.sessionRequest)
	if err != nil {
		return nil, err
	}
	return encode(sess.PreviewRoute(ctx, req.Bindings))
}

// PreviewAssignment resolves the session's assignment config.
func (s *Service) PreviewAssignment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req sessionRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	sess, err := s.session(req)
	if err != nil {
		return nil, err
	}
	return encode(sess.PreviewAssignment(ctx))
}
