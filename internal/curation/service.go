// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package curation is the entry point for curator actions. It checks the
// allow-list before anything is written, then builds the decision and hands
// it to the ledger, which commits the decision and the status change
// together.
package curation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/sieve/internal/auth"
	"github.com/pdiddy/sieve/internal/lifecycle"
	"github.com/pdiddy/sieve/internal/logging"
	"github.com/pdiddy/sieve/internal/metrics"
	"github.com/pdiddy/sieve/internal/store"
	"github.com/pdiddy/sieve/pkg/types"
)

var (
	// ErrUnauthorized is returned when the actor is not on the allow-list.
	ErrUnauthorized = errors.New("curator is not authorized")

	// ErrForbidden is returned when an allow-listed curator lacks the
	// admin role an action needs.
	ErrForbidden = errors.New("action requires the admin role")
)

// AuthorizationError reports a refused action.
type AuthorizationError struct {
	ORCID  string
	Action string
	Err    error
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s by %q: %v", e.Action, e.ORCID, e.Err)
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// Ledger persists decisions and resets.
type Ledger interface {
	RecordDecision(ctx context.Context, d types.CurationDecision) (*types.CurationRecord, error)
	ReturnToQueue(ctx context.Context, recordID string, at time.Time) (*types.CurationRecord, error)
}

// Authorizer looks up allow-listed curators.
type Authorizer interface {
	Lookup(orcid string) (auth.Curator, bool)
}

// Service applies curator actions.
type Service struct {
	ledger  Ledger
	authz   Authorizer
	log     *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMetrics sets the decision counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source for decisions and resets.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(l Ledger, a Authorizer, opts ...Option) *Service {
	s := &Service{
		ledger: l,
		authz:  a,
		log:    logging.Nop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Decide records a decision by in.CuratorORCID. The curator must be on the
// allow-list; the name defaults to the allow-list entry. On success the
// updated record and the appended decision are returned. Any failure
// leaves the record and the ledger unchanged.
func (s *Service) Decide(ctx context.Context, in lifecycle.DecisionInput) (*types.CurationRecord, types.CurationDecision, error) {
	cur, err := s.authorize(in.CuratorORCID, "decide", false)
	if err != nil {
		return nil, types.CurationDecision{}, err
	}
	in.CuratorORCID = "orcid:" + cur.ORCID
	if in.CuratorName == "" {
		in.CuratorName = cur.Name
	}
	if in.DecidedAt.IsZero() {
		in.DecidedAt = s.now()
	}

	d, err := lifecycle.NewDecision(in)
	if err != nil {
		return nil, types.CurationDecision{}, err
	}
	rec, err := s.ledger.RecordDecision(ctx, d)
	if err != nil {
		s.log.Warn("decision not recorded", "record", in.RecordID, "curator", in.CuratorORCID,
			"decision", string(in.Decision), "error", err)
		return nil, types.CurationDecision{}, err
	}

	if s.metrics != nil {
		s.metrics.Decisions.WithLabelValues(string(d.Decision)).Inc()
	}
	s.log.Info("decision recorded", "record", d.RecordID, "decision", string(d.Decision),
		"status", string(rec.Status), "curator", d.CuratorORCID, "certainty", d.Certainty)
	return rec, d, nil
}

// ReturnToQueue resets a decided record to UNREVIEWED. Only admins may do
// this; the ledger keeps every earlier decision.
func (s *Service) ReturnToQueue(ctx context.Context, actorORCID, recordID string) (*types.CurationRecord, error) {
	cur, err := s.authorize(actorORCID, "return to queue", true)
	if err != nil {
		return nil, err
	}
	rec, err := s.ledger.ReturnToQueue(ctx, recordID, s.now())
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.Resets.Inc()
	}
	s.log.Info("record returned to queue", "record", recordID, "admin", "orcid:"+cur.ORCID)
	return rec, nil
}

func (s *Service) authorize(orcid, action string, admin bool) (auth.Curator, error) {
	cur, ok := s.authz.Lookup(orcid)
	if !ok {
		s.deny("unauthorized", orcid, action)
		return auth.Curator{}, &AuthorizationError{ORCID: orcid, Action: action, Err: ErrUnauthorized}
	}
	if admin && cur.Role != auth.RoleAdmin {
		s.deny("forbidden", orcid, action)
		return auth.Curator{}, &AuthorizationError{ORCID: orcid, Action: action, Err: ErrForbidden}
	}
	return cur, nil
}

func (s *Service) deny(reason, orcid, action string) {
	if s.metrics != nil {
		s.metrics.DeniedDecisions.WithLabelValues(reason).Inc()
	}
	s.log.Warn("curation action denied", "reason", reason, "orcid", orcid, "action", action)
}

var _ Ledger = (*store.Store)(nil)
