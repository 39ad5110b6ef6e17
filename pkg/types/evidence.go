// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"time"
)

// EvidenceType selects which detail variant an EvidenceItem carries.
type EvidenceType string

const (
	EvidenceConcordance   EvidenceType = "CONCORDANCE"
	EvidenceLiterature    EvidenceType = "LITERATURE"
	EvidenceExpertReview  EvidenceType = "EXPERT_REVIEW"
	EvidenceComputational EvidenceType = "COMPUTATIONAL"
	EvidenceOther         EvidenceType = "OTHER"
)

// Valid reports whether t is a known evidence type.
func (t EvidenceType) Valid() bool {
	switch t {
	case EvidenceConcordance, EvidenceLiterature, EvidenceExpertReview, EvidenceComputational, EvidenceOther:
		return true
	}
	return false
}

// Direction states whether evidence supports or contradicts the assertion.
type Direction string

const (
	DirectionSupports    Direction = "SUPPORTS"
	DirectionContradicts Direction = "CONTRADICTS"
	DirectionUncertain   Direction = "UNCERTAIN"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case DirectionSupports, DirectionContradicts, DirectionUncertain:
		return true
	}
	return false
}

// SourceType classifies the source of concordance evidence.
type SourceType string

const (
	SourceOntology    SourceType = "ONTOLOGY"
	SourceTerminology SourceType = "TERMINOLOGY"
	SourceDatabase    SourceType = "DATABASE"
	SourceOther       SourceType = "OTHER"
)

// Valid reports whether s is a known source type.
func (s SourceType) Valid() bool {
	switch s {
	case SourceOntology, SourceTerminology, SourceDatabase, SourceOther:
		return true
	}
	return false
}

// EvidenceDetail is the type-specific payload of an EvidenceItem. Each
// EvidenceType other than OTHER has exactly one implementation.
type EvidenceDetail interface {
	EvidenceType() EvidenceType
}

// ConcordanceEvidence records that an external mapping source asserts the
// same (or a related) relation.
type ConcordanceEvidence struct {
	Source             string
	SourceName         string
	SourceType         SourceType
	PredicateID        string
	PredicateLabel     string
	SourceSubjectID    string
	SourceSubjectLabel string
	SourceObjectID     string
	SourceObjectLabel  string
	MappingSet         string
}

func (ConcordanceEvidence) EvidenceType() EvidenceType { return EvidenceConcordance }

// LiteratureEvidence cites a publication, optionally with a quoted passage.
type LiteratureEvidence struct {
	PublicationID    string
	PublicationTitle string
	QuotedText       string
	QuoteLocation    string
	Explanation      string
}

func (LiteratureEvidence) EvidenceType() EvidenceType { return EvidenceLiterature }

// ExpertReviewEvidence records an opinion from a named reviewer.
type ExpertReviewEvidence struct {
	ReviewerORCID       string
	ReviewerName        string
	ReviewerAffiliation string
	ReviewedAt          *time.Time
	Issue               string
}

func (ExpertReviewEvidence) EvidenceType() EvidenceType { return EvidenceExpertReview }

// ComputationalEvidence is produced by an algorithm or pipeline.
type ComputationalEvidence struct {
	Method          string
	MethodURI       string
	ConfidenceScore *float64
	Parameters      string
}

func (ComputationalEvidence) EvidenceType() EvidenceType { return EvidenceComputational }

// EvidenceItem is one piece of evidence for or against an assertion. Detail
// is nil for OTHER evidence.
type EvidenceItem struct {
	ID          string
	Direction   Direction
	Strength    float64
	ECOCode     string
	ECOLabel    string
	Description string
	Detail      EvidenceDetail
}

// Type returns the evidence type implied by Detail.
func (e EvidenceItem) Type() EvidenceType {
	if e.Detail == nil {
		return EvidenceOther
	}
	return e.Detail.EvidenceType()
}

// evidenceRecord is the flat external shape of an EvidenceItem: common
// fields plus every type-specific field at the top level.
type evidenceRecord struct {
	ID               string       `json:"id,omitempty" yaml:"id,omitempty"`
	EvidenceType     EvidenceType `json:"evidence_type" yaml:"evidence_type"`
	Direction        Direction    `json:"direction" yaml:"direction"`
	EvidenceStrength float64      `json:"evidence_strength" yaml:"evidence_strength"`
	ECOCode          string       `json:"eco_code,omitempty" yaml:"eco_code,omitempty"`
	ECOLabel         string       `json:"eco_label,omitempty" yaml:"eco_label,omitempty"`
	Description      string       `json:"description,omitempty" yaml:"description,omitempty"`

	Source             string     `json:"source,omitempty" yaml:"source,omitempty"`
	SourceName         string     `json:"source_name,omitempty" yaml:"source_name,omitempty"`
	SourceType         SourceType `json:"source_type,omitempty" yaml:"source_type,omitempty"`
	PredicateID        string     `json:"predicate_id,omitempty" yaml:"predicate_id,omitempty"`
	PredicateLabel     string     `json:"predicate_label,omitempty" yaml:"predicate_label,omitempty"`
	SourceSubjectID    string     `json:"source_subject_id,omitempty" yaml:"source_subject_id,omitempty"`
	SourceSubjectLabel string     `json:"source_subject_label,omitempty" yaml:"source_subject_label,omitempty"`
	SourceObjectID     string     `json:"source_object_id,omitempty" yaml:"source_object_id,omitempty"`
	SourceObjectLabel  string     `json:"source_object_label,omitempty" yaml:"source_object_label,omitempty"`
	MappingSet         string     `json:"mapping_set,omitempty" yaml:"mapping_set,omitempty"`

	PublicationID    string `json:"publication_id,omitempty" yaml:"publication_id,omitempty"`
	PublicationTitle string `json:"publication_title,omitempty" yaml:"publication_title,omitempty"`
	QuotedText       string `json:"quoted_text,omitempty" yaml:"quoted_text,omitempty"`
	QuoteLocation    string `json:"quote_location,omitempty" yaml:"quote_location,omitempty"`
	Explanation      string `json:"explanation,omitempty" yaml:"explanation,omitempty"`

	ReviewerORCID       string     `json:"reviewer_orcid,omitempty" yaml:"reviewer_orcid,omitempty"`
	ReviewerName        string     `json:"reviewer_name,omitempty" yaml:"reviewer_name,omitempty"`
	ReviewerAffiliation string     `json:"reviewer_affiliation,omitempty" yaml:"reviewer_affiliation,omitempty"`
	ReviewedAt          *time.Time `json:"reviewed_at,omitempty" yaml:"reviewed_at,omitempty"`
	Issue               string     `json:"issue,omitempty" yaml:"issue,omitempty"`

	Method          string   `json:"method,omitempty" yaml:"method,omitempty"`
	MethodURI       string   `json:"method_uri,omitempty" yaml:"method_uri,omitempty"`
	ConfidenceScore *float64 `json:"confidence_score,omitempty" yaml:"confidence_score,omitempty"`
	Parameters      string   `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

func (e EvidenceItem) record() evidenceRecord {
	r := evidenceRecord{
		ID:               e.ID,
		EvidenceType:     e.Type(),
		Direction:        e.Direction,
		EvidenceStrength: e.Strength,
		ECOCode:          e.ECOCode,
		ECOLabel:         e.ECOLabel,
		Description:      e.Description,
	}
	switch d := e.Detail.(type) {
	case ConcordanceEvidence:
		r.Source, r.SourceName, r.SourceType = d.Source, d.SourceName, d.SourceType
		r.PredicateID, r.PredicateLabel = d.PredicateID, d.PredicateLabel
		r.SourceSubjectID, r.SourceSubjectLabel = d.SourceSubjectID, d.SourceSubjectLabel
		r.SourceObjectID, r.SourceObjectLabel = d.SourceObjectID, d.SourceObjectLabel
		r.MappingSet = d.MappingSet
	case LiteratureEvidence:
		r.PublicationID, r.PublicationTitle = d.PublicationID, d.PublicationTitle
		r.QuotedText, r.QuoteLocation, r.Explanation = d.QuotedText, d.QuoteLocation, d.Explanation
	case ExpertReviewEvidence:
		r.ReviewerORCID, r.ReviewerName, r.ReviewerAffiliation = d.ReviewerORCID, d.ReviewerName, d.ReviewerAffiliation
		r.ReviewedAt, r.Issue = d.ReviewedAt, d.Issue
	case ComputationalEvidence:
		r.Method, r.MethodURI, r.ConfidenceScore, r.Parameters = d.Method, d.MethodURI, d.ConfidenceScore, d.Parameters
	}
	return r
}

func (r evidenceRecord) item() EvidenceItem {
	e := EvidenceItem{
		ID:          r.ID,
		Direction:   r.Direction,
		Strength:    r.EvidenceStrength,
		ECOCode:     r.ECOCode,
		ECOLabel:    r.ECOLabel,
		Description: r.Description,
	}
	switch r.EvidenceType {
	case EvidenceConcordance:
		e.Detail = ConcordanceEvidence{
			Source: r.Source, SourceName: r.SourceName, SourceType: r.SourceType,
			PredicateID: r.PredicateID, PredicateLabel: r.PredicateLabel,
			SourceSubjectID: r.SourceSubjectID, SourceSubjectLabel: r.SourceSubjectLabel,
			SourceObjectID: r.SourceObjectID, SourceObjectLabel: r.SourceObjectLabel,
			MappingSet: r.MappingSet,
		}
	case EvidenceLiterature:
		e.Detail = LiteratureEvidence{
			PublicationID: r.PublicationID, PublicationTitle: r.PublicationTitle,
			QuotedText: r.QuotedText, QuoteLocation: r.QuoteLocation, Explanation: r.Explanation,
		}
	case EvidenceExpertReview:
		e.Detail = ExpertReviewEvidence{
			ReviewerORCID: r.ReviewerORCID, ReviewerName: r.ReviewerName,
			ReviewerAffiliation: r.ReviewerAffiliation, ReviewedAt: r.ReviewedAt, Issue: r.Issue,
		}
	case EvidenceComputational:
		e.Detail = ComputationalEvidence{
			Method: r.Method, MethodURI: r.MethodURI,
			ConfidenceScore: r.ConfidenceScore, Parameters: r.Parameters,
		}
	}
	return e
}

// MarshalJSON writes the flat external shape.
func (e EvidenceItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.record())
}

// UnmarshalJSON reads the flat external shape.
func (e *EvidenceItem) UnmarshalJSON(data []byte) error {
	var r evidenceRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*e = r.item()
	return nil
}

// MarshalYAML writes the flat external shape.
func (e EvidenceItem) MarshalYAML() (any, error) {
	return e.record(), nil
}
