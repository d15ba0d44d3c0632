package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/routekeeper/internal/assignment"
	"github.com/solatis/routekeeper/internal/outcome"
	"github.com/solatis/routekeeper/internal/preview"
	"github.com/solatis/routekeeper/internal/types"
)

type stepConfig struct {
	StepID     string                  `json:"stepId"`
	Branching  *types.RuleSet          `json:"branching,omitempty"`
	Outcomes   *types.OutcomeConfig    `json:"outcomes,omitempty"`
	Assignment *types.AssignmentConfig `json:"assignment,omitempty"`
}

type stepConfigResponse struct {
	stepConfig
	Revisions map[string]int64 `json:"revisions"`
}

func (s *Service) configStore() (ConfigStore, error) {
	if s.configs == nil {
		return nil, status.Error(codes.FailedPrecondition, "step configuration storage is not configured")
	}
	return s.configs, nil
}

// SaveStepConfig validates and stores the parts of a step's configuration
// present in the request. Parts are saved in order outcomes, branching,
// assignment; a failed save reports UNAVAILABLE with the unsaved payload
// in the status details, and parts saved before it stay saved.
func (s *Service) SaveStepConfig(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	cs, err := s.configStore()
	if err != nil {
		return nil, err
	}
	var req stepConfig
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.StepID == "" {
		return nil, status.Error(codes.InvalidArgument, "stepId is required")
	}
	if req.Branching == nil && req.Outcomes == nil && req.Assignment == nil {
		return nil, status.Error(codes.InvalidArgument, "nothing to save")
	}

	if err := s.validateStepConfig(ctx, cs, req); err != nil {
		return nil, toStatus(err)
	}

	if req.Outcomes != nil {
		if err := cs.SaveOutcomes(ctx, req.StepID, *req.Outcomes); err != nil {
			return nil, storeStatus(err)
		}
	}
	if req.Branching != nil {
		if err := cs.SaveBranching(ctx, req.StepID, *req.Branching); err != nil {
			return nil, storeStatus(err)
		}
	}
	if req.Assignment != nil {
		if err := cs.SaveAssignment(ctx, req.StepID, *req.Assignment); err != nil {
			return nil, storeStatus(err)
		}
	}

	saved, err := loadStepConfig(ctx, cs, req.StepID)
	if err != nil {
		return nil, storeStatus(err)
	}
	s.logger.Info().Str("step", req.StepID).Interface("revisions", saved.Revisions).Msg("step config saved")
	return encode(saved)
}

// validateStepConfig checks branching against the catalog extended with
// the step's decision variable, taken from the request or else from the
// stored outcomes.
func (s *Service) validateStepConfig(ctx context.Context, cs ConfigStore, req stepConfig) error {
	outcomes := req.Outcomes
	if outcomes != nil {
		if err := s.registry.ValidateForExport(*outcomes); err != nil {
			return err
		}
	} else if req.Branching != nil {
		rec, err := cs.LoadOutcomes(ctx, req.StepID)
		switch {
		case err == nil:
			outcomes = &rec.Config
		case !errors.Is(err, types.ErrConfigNotFound):
			return err
		}
	}

	if req.Branching != nil {
		engine := s.engine
		if outcomes != nil {
			engine = engine.WithVariables(outcome.DecisionVariable(*outcomes))
		}
		if err := engine.Validate(*req.Branching); err != nil {
			return err
		}
	}
	if req.Assignment != nil {
		if err := assignment.Validate(*req.Assignment); err != nil {
			return err
		}
	}
	return nil
}

func loadStepConfig(ctx context.Context, cs ConfigStore, stepID string) (stepConfigResponse, error) {
	out := stepConfigResponse{
		stepConfig: stepConfig{StepID: stepID},
		Revisions:  make(map[string]int64),
	}
	missing := func(err error) bool { return errors.Is(err, types.ErrConfigNotFound) }

	if rec, err := cs.LoadBranching(ctx, stepID); err == nil {
		out.Branching = &rec.Config
		out.Revisions["branching"] = rec.Revision
	} else if !missing(err) {
		return out, err
	}
	if rec, err := cs.LoadOutcomes(ctx, stepID); err == nil {
		out.Outcomes = &rec.Config
		out.Revisions["outcomes"] = rec.Revision
	} else if !missing(err) {
		return out, err
	}
	if rec, err := cs.LoadAssignment(ctx, stepID); err == nil {
		out.Assignment = &rec.Config
		out.Revisions["assignment"] = rec.Revision
	} else if !missing(err) {
		return out, err
	}
	return out, nil
}

// LoadStepConfig returns the stored configuration of a step, NOT_FOUND
// when nothing is stored. With a sessionId the stored parts also replace
// the matching parts of that editor session's draft.
func (s *Service) LoadStepConfig(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	cs, err := s.configStore()
	if err != nil {
		return nil, err
	}
	var req struct {
		StepID    string `json:"stepId"`
		SessionID string `json:"sessionId,omitempty"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.StepID == "" {
		return nil, status.Error(codes.InvalidArgument, "stepId is required")
	}

	cfg, err := loadStepConfig(ctx, cs, req.StepID)
	if err != nil {
		return nil, storeStatus(err)
	}
	if len(cfg.Revisions) == 0 {
		return nil, status.Errorf(codes.NotFound, "no configuration stored for step %q", req.StepID)
	}

	if req.SessionID != "" {
		_, err := s.hub.Session(req.SessionID).Edit(func(d preview.Draft) (preview.Draft, error) {
			if cfg.Branching != nil {
				d.RuleSet = *cfg.Branching
			}
			if cfg.Outcomes != nil {
				d.Outcomes = *cfg.Outcomes
			}
			if cfg.Assignment != nil {
				d.Assignment = *cfg.Assignment
			}
			return d, nil
		})
		if err != nil {
			return nil, toStatus(err)
		}
	}
	return encode(cfg)
}

// DeleteStepConfig removes every stored part of a step's configuration.
// Deleting a step with nothing stored succeeds.
func (s *Service) DeleteStepConfig(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	cs, err := s.configStore()
	if err != nil {
		return nil, err
	}
	var req struct {
		StepID string `json:"stepId"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.StepID == "" {
		return nil, status.Error(codes.InvalidArgument, "stepId is required")
	}

	for _, del := range []func(context.Context, string) error{
		cs.DeleteBranching,
		cs.DeleteOutcomes,
		cs.DeleteAssignment,
	} {
		if err := del(ctx, req.StepID); err != nil {
			return nil, storeStatus(err)
		}
	}
	return encode(map[string]any{"stepId": req.StepID, "deleted": true})
}
