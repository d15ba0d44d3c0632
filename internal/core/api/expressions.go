package api

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/routekeeper/internal/outcome"
	"github.com/solatis/routekeeper/internal/rules"
	"github.com/solatis/routekeeper/internal/types"
)

type compileRequest struct {
	Conditions []types.Condition    `json:"conditions,omitempty"`
	Branching  *types.RuleSet       `json:"branching,omitempty"`
	Outcomes   *types.OutcomeConfig `json:"outcomes,omitempty"`
}

type compileResponse struct {
	Expression string               `json:"expression,omitempty"`
	Export     *rules.GatewayExport `json:"export,omitempty"`
}

// CompileExpression compiles a condition list to expression text, or, when
// the request carries a rule set, validates and exports the whole gateway.
// Outcomes sent alongside contribute the decision variable to validation.
func (s *Service) CompileExpression(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req compileRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	if req.Branching == nil {
		return encode(compileResponse{Expression: rules.Compile(req.Conditions)})
	}

	engine := s.engine
	if req.Outcomes != nil {
		engine = engine.WithVariables(outcome.DecisionVariable(*req.Outcomes))
	}
	export, err := engine.Export(*req.Branching)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(compileResponse{Export: &export})
}

type parseResponse struct {
	Conditions []types.Condition `json:"conditions"`
	Skipped    []string          `json:"skipped,omitempty"`
	Partial    bool              `json:"partial"`
}

func toParseResponse(d rules.Decomposition) parseResponse {
	out := parseResponse{Conditions: d.Conditions, Skipped: d.Skipped, Partial: d.Partial}
	if out.Conditions == nil {
		out.Conditions = []types.Condition{}
	}
	return out
}

type importResponse struct {
	Branching types.RuleSet   `json:"branching"`
	Flows     []parseResponse `json:"flows"`
	Partial   bool            `json:"partial"`
}

// ParseExpression decomposes expression text into conditions. Clauses that
// cannot be read back are listed, never rejected. A request carrying a
// gateway export instead rebuilds the whole rule set from its flows.
func (s *Service) ParseExpression(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		Expression string               `json:"expression"`
		Export     *rules.GatewayExport `json:"export,omitempty"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	if req.Export == nil {
		return encode(toParseResponse(rules.Decompose(req.Expression)))
	}

	set, decomps := rules.ImportFlows(*req.Export)
	out := importResponse{Branching: set, Flows: make([]parseResponse, 0, len(decomps))}
	for _, d := range decomps {
		out.Flows = append(out.Flows, toParseResponse(d))
		out.Partial = out.Partial || d.Partial
	}
	return encode(out)
}
