package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/routekeeper/internal/completion"
	"github.com/solatis/routekeeper/internal/types"
)

// SavePolicies validates and applies a batch of completion policy upserts
// and deletions. The whole change is applied or none of it is.
func (s *Service) SavePolicies(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		Policies []types.CompletionPolicy `json:"policies"`
		Delete   []string                 `json:"delete,omitempty"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	if err := s.policies.ApplyPolicies(ctx, req.Policies, req.Delete); err != nil {
		return nil, storeStatus(err)
	}

	saved, err := s.policies.ListPolicies(ctx)
	if err != nil {
		return nil, storeStatus(err)
	}
	for _, p := range req.Policies {
		s.logger.Info().Str("policy", completion.Describe(p)).Msg("completion policy saved")
	}
	for _, id := range req.Delete {
		s.logger.Info().Str("gateway", id).Msg("completion policy deleted")
	}
	return encode(map[string]any{"policies": saved})
}

type completeRequest struct {
	StepInstanceID string               `json:"stepInstanceId"`
	ActorID        string               `json:"actorId"`
	Mode           types.CompletionMode `json:"mode,omitempty"`
	Assignees      []string             `json:"assignees,omitempty"`
}

type completeResponse struct {
	Completed bool     `json:"completed"` // this call completed the step
	Remaining []string `json:"remaining,omitempty"`
}

// CompleteStep records one actor's completion of a step instance. In ANY
// mode the first claim wins and every other claim fails with
// ALREADY_EXISTS. In ALL mode the step completes with the last assignee.
func (s *Service) CompleteStep(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req completeRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.StepInstanceID == "" {
		return nil, status.Error(codes.InvalidArgument, "stepInstanceId is required")
	}
	mode := req.Mode.Effective()

	if mode == types.CompletionAny && s.claims != nil {
		if err := completion.CheckEligible(req.StepInstanceID, req.ActorID, req.Assignees); err != nil {
			return nil, toStatus(err)
		}
		if err := s.claims.ClaimCompletion(ctx, req.StepInstanceID, req.ActorID); err != nil {
			s.observeConflict(err, "store")
			return nil, storeStatus(err)
		}
		s.observeCompletion(mode)
		return encode(completeResponse{Completed: true})
	}

	done, t, err := s.complete(req.StepInstanceID, req.ActorID, mode, req.Assignees)
	if err != nil {
		s.observeConflict(err, "memory")
		return nil, toStatus(err)
	}

	out := completeResponse{Completed: done}
	if p, ok := t.(*completion.Progress); ok {
		out.Remaining = p.Remaining()
	}
	if done {
		s.observeCompletion(mode)
	}
	return encode(out)
}

type arriveRequest struct {
	GatewayID  string `json:"gatewayId"`
	InstanceID string `json:"instanceId"`
	BranchID   string `json:"branchId"`
}

type arriveResponse struct {
	Fired     bool `json:"fired"` // this arrival fired the join
	Arrived   int  `json:"arrived"`
	Threshold int  `json:"threshold"`
}

// ArriveBranch records a branch reaching the join of a parallel gateway
// instance. The gateway's saved completion policy decides how many
// arrivals fire the join; exactly one arrival reports fired, and arrivals
// after that fail with ALREADY_EXISTS.
func (s *Service) ArriveBranch(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req arriveRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.GatewayID == "" || req.InstanceID == "" {
		return nil, status.Error(codes.InvalidArgument, "gatewayId and instanceId are required")
	}

	fired, j, err := s.arrive(ctx, req.GatewayID, req.InstanceID, req.BranchID)
	if err != nil {
		if j == nil && !errors.Is(err, types.ErrAlreadyCompleted) {
			return nil, storeStatus(err)
		}
		s.observeConflict(err, "join")
		return nil, toStatus(err)
	}
	if fired {
		if s.metrics != nil {
			s.metrics.JoinsFired.Inc()
		}
		s.logger.Debug().Str("gateway", req.GatewayID).Str("instance", req.InstanceID).Msg("join fired")
	}
	return encode(arriveResponse{Fired: fired, Arrived: j.Arrived(), Threshold: j.Threshold()})
}

func (s *Service) observeConflict(err error, source string) {
	if s.metrics == nil || !errors.Is(err, types.ErrAlreadyCompleted) {
		return
	}
	s.metrics.CompletionConflicts.WithLabelValues(source).Inc()
}

func (s *Service) observeCompletion(mode types.CompletionMode) {
	if s.metrics == nil {
		return
	}
	s.metrics.Completions.WithLabelValues(string(mode)).Inc()
}
