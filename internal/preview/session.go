// Package preview runs routing and assignment previews against an editor's
// draft configuration.
//
// Each editor session owns a Snapshot behind an atomic pointer. Editing
// replaces the pointer with a new immutable snapshot; a preview loads the
// pointer once and works on that value, so it never observes half an edit.
//
// Previews are read-only and idempotent. Identical concurrent previews
// (same snapshot, same bindings) are coalesced with singleflight, keyed by
// an xxhash fingerprint. Failures never escape as errors: the Result carries
// an empty value and a message for the editor.
package preview

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/solatis/routekeeper/internal/assignment"
	"github.com/solatis/routekeeper/internal/rules"
	"github.com/solatis/routekeeper/internal/telemetry"
	"github.com/solatis/routekeeper/internal/types"
)

// Draft is the configuration an editor is working on for one step.
type Draft struct {
	RuleSet    types.RuleSet          `json:"branching"`
	Assignment types.AssignmentConfig `json:"assignment"`
	Outcomes   types.OutcomeConfig    `json:"outcomes"`
}

func (d Draft) clone() Draft {
	return Draft{
		RuleSet:    d.RuleSet.Clone(),
		Assignment: d.Assignment.Clone(),
		Outcomes:   d.Outcomes.Clone(),
	}
}

// Snapshot is an immutable draft with a version and content fingerprint.
type Snapshot struct {
	draft       Draft
	Version     uint64
	Fingerprint uint64
	UpdatedAt   time.Time
}

// Draft returns a copy of the snapshot's configuration.
func (s *Snapshot) Draft() Draft {
	return s.draft.clone()
}

// Options configure a Session.
type Options struct {
	Resolver *assignment.Resolver
	Engine   *rules.Engine
	Metrics  *telemetry.Metrics // may be nil
	Logger   zerolog.Logger
	Timeout  time.Duration // per preview; zero disables
}

// Session is one editor's preview context. Safe for concurrent use.
type Session struct {
	id      string
	opts    Options
	current atomic.Pointer[Snapshot]
	version atomic.Uint64
	group   singleflight.Group
	logger  zerolog.Logger
}

// NewSession creates a session holding an empty draft.
func NewSession(id string, opts Options) *Session {
	if opts.Engine == nil {
		opts.Engine = rules.NewEngine(nil)
	}
	s := &Session{
		id:     id,
		opts:   opts,
		logger: opts.Logger.With().Str("component", "preview").Str("session", id).Logger(),
	}
	s.Update(Draft{})
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Update publishes d as the session's new snapshot. d is copied.
func (s *Session) Update(d Draft) *Snapshot {
	snap := &Snapshot{
		draft:     d.clone(),
		Version:   s.version.Add(1),
		UpdatedAt: time.Now().UTC(),
	}
	snap.Fingerprint = fingerprint(snap.draft)
	s.current.Store(snap)
	return snap
}

// Snapshot returns the current snapshot.
func (s *Session) Snapshot() *Snapshot {
	return s.current.Load()
}

// Edit applies fn to the current draft and publishes the result. Concurrent
// edits are serialized by compare-and-swap; fn may run more than once.
func (s *Session) Edit(fn func(Draft) (Draft, error)) (*Snapshot, error) {
	for {
		cur := s.current.Load()
		next, err := fn(cur.draft.clone())
		if err != nil {
			return cur, err
		}
		snap := &Snapshot{
			draft:     next.clone(),
			Version:   s.version.Add(1),
			UpdatedAt: time.Now().UTC(),
		}
		snap.Fingerprint = fingerprint(snap.draft)
		if s.current.CompareAndSwap(cur, snap) {
			return snap, nil
		}
	}
}

func fingerprint(v any) uint64 {
	b, err := json.Marshal(v)
	if err != nil {
		// Drafts holding values that do not marshal (an out-of-range
		// operator) still need distinct keys.
		return xxhash.Sum64String(fmt.Sprintf("%#v", v))
	}
	return xxhash.Sum64(b)
}

func flightKey(kind string, snap *Snapshot, extra uint64) string {
	return kind + ":" + strconv.FormatUint(snap.Fingerprint, 16) + ":" + strconv.FormatUint(extra, 16)
}

// Session limits used when HubLimits leaves a field zero.
const (
	DefaultMaxSessions = 1024
	DefaultSessionTTL  = 30 * time.Minute
)

// HubLimits bound the sessions a Hub keeps.
type HubLimits struct {
	MaxSessions int           // least recently used sessions are dropped past this
	IdleTTL     time.Duration // sessions unused for this long are dropped
}

// Hub maps session ids to sessions. Session ids come from clients, so the
// hub is bounded: idle sessions expire and the least recently used one is
// evicted when full. An evicted editor gets a fresh empty session.
type Hub struct {
	opts Options

	mu       sync.Mutex
	sessions *expirable.LRU[string, *Session]
}

// NewHub creates a hub whose sessions share opts.
func NewHub(opts Options, limits HubLimits) *Hub {
	if limits.MaxSessions <= 0 {
		limits.MaxSessions = DefaultMaxSessions
	}
	if limits.IdleTTL <= 0 {
		limits.IdleTTL = DefaultSessionTTL
	}
	return &Hub{
		opts:     opts,
		sessions: expirable.NewLRU[string, *Session](limits.MaxSessions, nil, limits.IdleTTL),
	}
}

// Session returns the session for id, creating it on first use. Every call
// restarts the session's idle timer.
func (h *Hub) Session(id string) *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions.Get(id)
	if !ok {
		s = NewSession(id, h.opts)
	}
	h.sessions.Add(id, s)
	return s
}

// Drop forgets a session.
func (h *Hub) Drop(id string) {
	h.sessions.Remove(id)
}

// Len returns the number of sessions held, including expired ones not yet
// swept.
func (h *Hub) Len() int {
	return h.sessions.Len()
}
