// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package lifecycle implements the review state machine for curation
// records:
//
//	UNREVIEWED --ACCEPT--------> ACCEPTED
//	UNREVIEWED --REJECT--------> REJECTED       (rationale required)
//	UNREVIEWED --CONTROVERSIAL-> CONTROVERSIAL
//	ACCEPTED|REJECTED|CONTROVERSIAL --reset--> UNREVIEWED
//
// Decisions are built and validated here; persisting them together with
// the status change is the store's job.
package lifecycle

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pdiddy/sieve/pkg/types"
)

var (
	// ErrAlreadyDecided is returned when a decision targets a record that
	// is not UNREVIEWED.
	ErrAlreadyDecided = errors.New("record already has a decision")

	// ErrNotDecided is returned when resetting a record that is already UNREVIEWED.
	ErrNotDecided = errors.New("record is not decided")

	// ErrUnknownDecision is returned for a decision kind with no transition.
	ErrUnknownDecision = errors.New("unknown decision")

	// ErrUnknownStatus is returned when the current status is not recognized.
	ErrUnknownStatus = errors.New("unknown status")

	// ErrRationaleRequired is returned for a REJECT without a rationale.
	ErrRationaleRequired = errors.New("rejection requires a rationale")

	// ErrCertaintyRange is returned when certainty lies outside [0, 1].
	ErrCertaintyRange = errors.New("certainty must be between 0.0 and 1.0")

	// ErrInvalidDecision wraps any other decision validation failure.
	ErrInvalidDecision = errors.New("invalid decision")
)

// Target maps a decision to the status it produces.
func Target(d types.DecisionType) (types.Status, error) {
	switch d {
	case types.DecisionAccept:
		return types.StatusAccepted, nil
	case types.DecisionReject:
		return types.StatusRejected, nil
	case types.DecisionControversial:
		return types.StatusControversial, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDecision, d)
}

// Transition returns the status reached by applying decision d to a record
// currently in status from. Only UNREVIEWED records accept decisions.
func Transition(from types.Status, d types.DecisionType) (types.Status, error) {
	switch from {
	case types.StatusUnreviewed:
		return Target(d)
	case types.StatusAccepted, types.StatusRejected, types.StatusControversial:
		return "", fmt.Errorf("%w: status is %s", ErrAlreadyDecided, from)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, from)
}

// Reset returns the status reached by returning a decided record to the
// review queue.
func Reset(from types.Status) (types.Status, error) {
	switch from {
	case types.StatusAccepted, types.StatusRejected, types.StatusControversial:
		return types.StatusUnreviewed, nil
	case types.StatusUnreviewed:
		return "", ErrNotDecided
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, from)
}

// Apply moves rec to the status produced by d and records the deciding
// curator as steward with the decision's certainty as confidence.
func Apply(rec *types.CurationRecord, d types.CurationDecision) error {
	next, err := Transition(rec.Status, d.Decision)
	if err != nil {
		return err
	}
	certainty := d.Certainty
	rec.Status = next
	rec.EvidenceSteward = d.CuratorORCID
	rec.Confidence = &certainty
	rec.UpdatedAt = d.DecidedAt
	return nil
}

// ApplyReset returns rec to UNREVIEWED and clears steward and confidence.
func ApplyReset(rec *types.CurationRecord, at time.Time) error {
	next, err := Reset(rec.Status)
	if err != nil {
		return err
	}
	rec.Status = next
	rec.EvidenceSteward = ""
	rec.Confidence = nil
	rec.UpdatedAt = at
	return nil
}

// DecisionInput carries the caller-supplied fields of a decision.
// Certainty nil means full certainty (1.0).
type DecisionInput struct {
	RecordID     string `validate:"required"`
	CuratorORCID string `validate:"required"`
	CuratorName  string
	Decision     types.DecisionType `validate:"required,oneof=ACCEPT REJECT CONTROVERSIAL"`
	Certainty    *float64           `validate:"omitempty,min=0,max=1"`
	Rationale    string
	DecidedAt    time.Time
}

var validate = validator.New()

// NewDecision validates in and builds an immutable ledger entry. Certainty
// outside [0, 1] is rejected rather than clamped, and REJECT requires a
// non-blank rationale.
func NewDecision(in DecisionInput) (types.CurationDecision, error) {
	if in.Certainty != nil && (math.IsNaN(*in.Certainty) || *in.Certainty < 0 || *in.Certainty > 1) {
		return types.CurationDecision{}, fmt.Errorf("%w: got %v", ErrCertaintyRange, *in.Certainty)
	}
	if err := validate.Struct(in); err != nil {
		return types.CurationDecision{}, fmt.Errorf("%w: %v", ErrInvalidDecision, err)
	}
	rationale := strings.TrimSpace(in.Rationale)
	if in.Decision == types.DecisionReject && rationale == "" {
		return types.CurationDecision{}, ErrRationaleRequired
	}

	certainty := 1.0
	if in.Certainty != nil {
		certainty = *in.Certainty
	}
	decidedAt := in.DecidedAt
	if decidedAt.IsZero() {
		decidedAt = time.Now().UTC()
	}

	return types.CurationDecision{
		ID:           NewDecisionID(),
		RecordID:     in.RecordID,
		CuratorORCID: in.CuratorORCID,
		CuratorName:  in.CuratorName,
		Decision:     in.Decision,
		Certainty:    certainty,
		Rationale:    rationale,
		DecidedAt:    decidedAt,
	}, nil
}

// NewDecisionID returns a fresh "decision:<12 hex>" identifier.
func NewDecisionID() string {
	return "decision:" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
