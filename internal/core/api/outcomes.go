package api

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/routekeeper/internal/outcome"
	"github.com/solatis/routekeeper/internal/types"
)

type exportOutcomesResponse struct {
	Options          []types.ActionOption `json:"options"`
	DecisionVariable types.VariableDef    `json:"decisionVariable"`
}

// ExportOutcomes returns the configured options of an outcome config, in
// order, with the decision variable they produce. Options without an action
// type are left out.
func (s *Service) ExportOutcomes(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var cfg types.OutcomeConfig
	if err := decode(in, &cfg); err != nil {
		return nil, err
	}

	options, err := s.registry.Export(cfg)
	if err != nil {
		return nil, toStatus(err)
	}
	if options == nil {
		options = []types.ActionOption{}
	}
	return encode(exportOutcomesResponse{
		Options:          options,
		DecisionVariable: outcome.DecisionVariable(cfg),
	})
}
