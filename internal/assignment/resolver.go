// Package assignment resolves which actors are eligible for a step.
//
// An AssignmentConfig is an OR of rules; each rule is an AND over the
// dimensions it constrains. A dimension with no ids is a wildcard. A user
// satisfies a constrained dimension when the ids they hold for it intersect
// the rule's ids.
//
// When nobody matches, the fallback role becomes the assignee. When there is
// no fallback role either, resolution fails with
// *types.UnresolvedAssignmentError; an assignment is never dropped silently.
package assignment

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/solatis/routekeeper/internal/types"
)

// Assignee is one matched user, shaped for the preview contract.
type Assignee struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	RuleID      string `json:"ruleId,omitempty"` // first rule the user matched
}

// Resolution is the outcome of resolving an AssignmentConfig.
// Exactly one of Assignees or FallbackRoleID is set.
type Resolution struct {
	Assignees      []Assignee           `json:"assignees,omitempty"`
	FallbackRoleID string               `json:"fallbackRoleId,omitempty"`
	CompletionMode types.CompletionMode `json:"completionMode"`
}

// UsedFallback reports whether the fallback role was assigned.
func (r Resolution) UsedFallback() bool {
	return r.FallbackRoleID != ""
}

// AssigneeIDs returns the matched user ids in resolution order.
func (r Resolution) AssigneeIDs() []string {
	ids := make([]string, len(r.Assignees))
	for i, a := range r.Assignees {
		ids[i] = a.ID
	}
	return ids
}

// MatchesRule reports whether u satisfies every constrained dimension of rule.
func MatchesRule(u User, rule types.AssignmentRule) bool {
	for d, ids := range rule.Criteria {
		if len(ids) == 0 {
			continue
		}
		if !intersects(u.Values(d), ids) {
			return false
		}
	}
	return true
}

// MatchesConfig reports whether u matches any rule of cfg.
func MatchesConfig(u User, cfg types.AssignmentConfig) bool {
	_, ok := firstMatch(u, cfg)
	return ok
}

func firstMatch(u User, cfg types.AssignmentConfig) (types.AssignmentRule, bool) {
	for _, r := range cfg.Rules {
		if MatchesRule(u, r) {
			return r, true
		}
	}
	return types.AssignmentRule{}, false
}

func intersects(have, want []string) bool {
	if len(have) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(want))
	for _, w := range want {
		set[w] = struct{}{}
	}
	for _, h := range have {
		if _, ok := set[h]; ok {
			return true
		}
	}
	return false
}

// Resolver matches directory users against assignment configs.
type Resolver struct {
	dir    Directory
	logger zerolog.Logger
}

// NewResolver creates a resolver over dir.
func NewResolver(dir Directory, logger zerolog.Logger) *Resolver {
	return &Resolver{
		dir:    dir,
		logger: logger.With().Str("component", "assignment").Logger(),
	}
}

// Resolve returns the assignees of cfg.
func (r *Resolver) Resolve(ctx context.Context, cfg types.AssignmentConfig) (Resolution, error) {
	users, err := r.dir.Users(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("list candidate users: %w", err)
	}
	return r.resolve(cfg, users)
}

// ResolveUsers resolves cfg against an explicit candidate list.
func (r *Resolver) ResolveUsers(cfg types.AssignmentConfig, users []User) (Resolution, error) {
	return r.resolve(cfg, users)
}

func (r *Resolver) resolve(cfg types.AssignmentConfig, users []User) (Resolution, error) {
	res := Resolution{CompletionMode: cfg.CompletionMode.Effective()}

	for _, u := range users {
		rule, ok := firstMatch(u, cfg)
		if !ok {
			continue
		}
		res.Assignees = append(res.Assignees, Assignee{
			ID:          u.ID,
			DisplayName: DisplayLabel(u),
			RuleID:      rule.ID,
		})
	}

	if len(res.Assignees) > 0 {
		r.logger.Debug().
			Int("rules", len(cfg.Rules)).
			Int("candidates", len(users)).
			Int("assignees", len(res.Assignees)).
			Msg("assignment resolved")
		return res, nil
	}

	if cfg.FallbackRoleID != "" {
		r.logger.Info().
			Int("rules", len(cfg.Rules)).
			Str("fallback_role", cfg.FallbackRoleID).
			Msg("no rule matched, assigning fallback role")
		res.FallbackRoleID = cfg.FallbackRoleID
		return res, nil
	}

	r.logger.Warn().
		Int("rules", len(cfg.Rules)).
		Int("candidates", len(users)).
		Msg("assignment unresolved")
	return Resolution{}, &types.UnresolvedAssignmentError{
		RuleCount:  len(cfg.Rules),
		Candidates: len(users),
	}
}
