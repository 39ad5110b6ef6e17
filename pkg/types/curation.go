// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Status is the review state of a CurationRecord.
type Status string

const (
	StatusUnreviewed    Status = "UNREVIEWED"
	StatusAccepted      Status = "ACCEPTED"
	StatusRejected      Status = "REJECTED"
	StatusControversial Status = "CONTROVERSIAL"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusUnreviewed, StatusAccepted, StatusRejected, StatusControversial}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusUnreviewed, StatusAccepted, StatusRejected, StatusControversial:
		return true
	}
	return false
}

// Decided reports whether s is one of the curator-facing terminal states.
func (s Status) Decided() bool {
	return s.Valid() && s != StatusUnreviewed
}

// DecisionType is the verdict a curator records against a record.
type DecisionType string

const (
	DecisionAccept        DecisionType = "ACCEPT"
	DecisionReject        DecisionType = "REJECT"
	DecisionControversial DecisionType = "CONTROVERSIAL"
)

// Valid reports whether d is a known decision.
func (d DecisionType) Valid() bool {
	switch d {
	case DecisionAccept, DecisionReject, DecisionControversial:
		return true
	}
	return false
}

// Assertion is the subject-predicate-object statement under review.
// Identifiers are CURIEs (PREFIX:local) or full URIs.
type Assertion struct {
	SubjectID      string `json:"subject_id" yaml:"subject_id"`
	SubjectLabel   string `json:"subject_label,omitempty" yaml:"subject_label,omitempty"`
	Predicate      string `json:"predicate" yaml:"predicate"`
	PredicateLabel string `json:"predicate_label,omitempty" yaml:"predicate_label,omitempty"`
	ObjectID       string `json:"object_id" yaml:"object_id"`
	ObjectLabel    string `json:"object_label,omitempty" yaml:"object_label,omitempty"`
	DisplayText    string `json:"display_text,omitempty" yaml:"display_text,omitempty"`
}

// MissingFields returns the names of required fields that are empty.
func (a Assertion) MissingFields() []string {
	var missing []string
	if a.SubjectID == "" {
		missing = append(missing, "subject_id")
	}
	if a.Predicate == "" {
		missing = append(missing, "predicate")
	}
	if a.ObjectID == "" {
		missing = append(missing, "object_id")
	}
	return missing
}

// ErrIncompleteAssertion is returned by Validate.
var ErrIncompleteAssertion = errors.New("assertion is incomplete")

// Validate requires subject_id, predicate and object_id.
func (a Assertion) Validate() error {
	if missing := a.MissingFields(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteAssertion, strings.Join(missing, ", "))
	}
	return nil
}

// Text returns the display text, falling back to "subject predicate object"
// using labels where present.
func (a Assertion) Text() string {
	if a.DisplayText != "" {
		return a.DisplayText
	}
	return fmt.Sprintf("%s %s %s",
		firstNonEmpty(a.SubjectLabel, a.SubjectID),
		firstNonEmpty(a.PredicateLabel, a.Predicate),
		firstNonEmpty(a.ObjectLabel, a.ObjectID))
}

// CurationActivity describes the activity that generated an assertion,
// for example an ontology pull request.
type CurationActivity struct {
	ID                   string     `json:"id,omitempty" yaml:"id,omitempty"`
	Description          string     `json:"description,omitempty" yaml:"description,omitempty"`
	AssociatedWith       []string   `json:"associated_with,omitempty" yaml:"associated_with,omitempty"`
	AssociatedWithLabels []string   `json:"associated_with_labels,omitempty" yaml:"associated_with_labels,omitempty"`
	StartedAt            *time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	EndedAt              *time.Time `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	CreatedWith          string     `json:"created_with,omitempty" yaml:"created_with,omitempty"`
	PullRequest          string     `json:"pull_request,omitempty" yaml:"pull_request,omitempty"`
}

// AssertionProvenance records the origin and attribution of an assertion.
// It is historical metadata and is never changed after ingest.
type AssertionProvenance struct {
	AttributedTo  []string          `json:"attributed_to,omitempty" yaml:"attributed_to,omitempty"`
	GeneratedAt   *time.Time        `json:"generated_at,omitempty" yaml:"generated_at,omitempty"`
	SourceVersion string            `json:"source_version,omitempty" yaml:"source_version,omitempty"`
	SourceURI     string            `json:"source_uri,omitempty" yaml:"source_uri,omitempty"`
	GeneratedBy   *CurationActivity `json:"generated_by,omitempty" yaml:"generated_by,omitempty"`
}

// EvidenceSynthesis is a precomputed narrative summary of the evidence with
// an overall confidence. It is distinct from a decision's certainty.
type EvidenceSynthesis struct {
	Summary    string  `json:"summary" yaml:"summary"`
	Confidence float64 `json:"confidence" yaml:"confidence" validate:"min=0,max=1"`
}

var validate = validator.New()

// ErrConfidenceRange is returned when a synthesis confidence lies outside [0, 1].
var ErrConfidenceRange = errors.New("confidence must be between 0.0 and 1.0")

// NewEvidenceSynthesis builds a synthesis, rejecting out-of-range confidence.
// Ingestion clamps instead of calling this.
func NewEvidenceSynthesis(summary string, confidence float64) (EvidenceSynthesis, error) {
	s := EvidenceSynthesis{Summary: summary, Confidence: confidence}
	if err := validate.Struct(s); err != nil || math.IsNaN(confidence) {
		return EvidenceSynthesis{}, fmt.Errorf("%w: got %v", ErrConfidenceRange, confidence)
	}
	return s, nil
}

// CurationRecord is a candidate assertion with its evidence and review state.
//
// EvidenceScore is computed when the record is parsed and stored with it.
// EvidenceSteward and Confidence are empty while Status is UNREVIEWED and
// are populated from the latest decision otherwise.
type CurationRecord struct {
	ID              string               `json:"id" yaml:"id"`
	LastUpdated     *time.Time           `json:"last_updated,omitempty" yaml:"last_updated,omitempty"`
	Assertion       Assertion            `json:"assertion" yaml:"assertion"`
	Provenance      *AssertionProvenance `json:"provenance,omitempty" yaml:"provenance,omitempty"`
	Evidence        []EvidenceItem       `json:"evidence" yaml:"evidence"`
	Synthesis       *EvidenceSynthesis   `json:"evidence_synthesis,omitempty" yaml:"evidence_synthesis,omitempty"`
	EvidenceScore   float64              `json:"evidence_score" yaml:"evidence_score"`
	Status          Status               `json:"status" yaml:"status"`
	EvidenceSteward string               `json:"evidence_steward,omitempty" yaml:"evidence_steward,omitempty"`
	Confidence      *float64             `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	CreatedAt       time.Time            `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at" yaml:"updated_at"`
}

// CurationDecision is one immutable entry in the decision ledger.
type CurationDecision struct {
	ID           string       `json:"id" yaml:"id"`
	RecordID     string       `json:"record_id" yaml:"record_id"`
	CuratorORCID string       `json:"curator_orcid" yaml:"curator_orcid"`
	CuratorName  string       `json:"curator_name,omitempty" yaml:"curator_name,omitempty"`
	Decision     DecisionType `json:"decision" yaml:"decision"`
	Certainty    float64      `json:"certainty" yaml:"certainty"`
	Rationale    string       `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	DecidedAt    time.Time    `json:"decided_at" yaml:"decided_at"`
}

// StatusCounts summarizes how many records are in each status.
type StatusCounts struct {
	Total         int `json:"total" yaml:"total"`
	Unreviewed    int `json:"unreviewed" yaml:"unreviewed"`
	Accepted      int `json:"accepted" yaml:"accepted"`
	Rejected      int `json:"rejected" yaml:"rejected"`
	Controversial int `json:"controversial" yaml:"controversial"`
}

// Reviewed returns the number of records with a decision.
func (c StatusCounts) Reviewed() int {
	return c.Accepted + c.Rejected + c.Controversial
}

// Progress returns the reviewed fraction in [0, 1]; zero when empty.
func (c StatusCounts) Progress() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Reviewed()) / float64(c.Total)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// NormalizeORCID strips an "orcid:" or ORCID URL prefix, leaving the bare
// 0000-0000-0000-0000 identifier.
func NormalizeORCID(id string) string {
	id = strings.TrimSpace(id)
	for _, prefix := range []string{"orcid:", "https://orcid.org/", "http://orcid.org/"} {
		if len(id) >= len(prefix) && strings.EqualFold(id[:len(prefix)], prefix) {
			return strings.TrimSpace(id[len(prefix):])
		}
	}
	return id
}
