// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/sieve/internal/evidence"
	"github.com/pdiddy/sieve/pkg/types"
)

// ValidationError reports a document that cannot become a record.
type ValidationError struct {
	// RecordID is the document's id, if it had one.
	RecordID string

	// Fields names the offending fields.
	Fields []string

	// Reason describes the failure.
	Reason string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.RecordID != "" {
		fmt.Fprintf(&b, "record %s: ", e.RecordID)
	}
	b.WriteString(e.Reason)
	if len(e.Fields) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Fields, ", "))
	}
	return b.String()
}

// NewID returns a fresh "cura:<12 hex>" identifier.
func NewID() string {
	return "cura:" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// ParseDocument decodes a YAML or JSON document holding either a single
// record mapping or a list of them. An empty document yields no records.
func ParseDocument(data []byte) ([]map[string]any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	switch v := doc.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return []map[string]any{v}, nil
	case []any:
		out := make([]map[string]any, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("document entry %d is %T, want a mapping", i, item)
			}
			out = append(out, m)
		}
		return out, nil
	}
	return nil, fmt.Errorf("document is %T, want a mapping or a list of mappings", doc)
}

// Parse converts one decoded record mapping into a CurationRecord.
//
// Parsing is lenient where the data is recoverable: unknown evidence types
// become OTHER, unknown source types OTHER, unknown directions SUPPORTS and
// unknown statuses UNREVIEWED. Evidence strength and synthesis confidence
// are clamped to [0, 1]. Missing record and evidence ids are generated.
// A missing subject_id, predicate or object_id is a *ValidationError.
func Parse(raw map[string]any) (*types.CurationRecord, error) {
	return parseAt(raw, time.Now().UTC())
}

func parseAt(raw map[string]any, now time.Time) (*types.CurationRecord, error) {
	p := &parser{}
	rec := &types.CurationRecord{
		ID:        p.str(raw["id"]),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if rec.ID == "" {
		rec.ID = NewID()
	}

	a := p.mapping("assertion", raw["assertion"])
	rec.Assertion = types.Assertion{
		SubjectID:      p.str(a["subject_id"]),
		SubjectLabel:   p.str(a["subject_label"]),
		Predicate:      p.str(a["predicate"]),
		PredicateLabel: p.str(a["predicate_label"]),
		ObjectID:       p.str(a["object_id"]),
		ObjectLabel:    p.str(a["object_label"]),
		DisplayText:    p.str(a["display_text"]),
	}
	if missing := rec.Assertion.MissingFields(); len(missing) > 0 {
		for i := range missing {
			missing[i] = "assertion." + missing[i]
		}
		return nil, &ValidationError{RecordID: p.str(raw["id"]), Fields: missing, Reason: "missing required fields"}
	}

	rec.LastUpdated = p.date("last_updated", raw["last_updated"])
	if v, ok := raw["provenance"]; ok && v != nil {
		rec.Provenance = p.provenance(v)
	}

	if v, ok := raw["evidence"]; ok && v != nil {
		list, isList := v.([]any)
		if !isList {
			p.fail("evidence")
		}
		for i, item := range list {
			rec.Evidence = append(rec.Evidence, p.evidenceItem(i, item))
		}
	}
	if rec.Evidence == nil {
		rec.Evidence = []types.EvidenceItem{}
	}

	if v, ok := raw["evidence_synthesis"]; ok && v != nil {
		s := p.mapping("evidence_synthesis", v)
		rec.Synthesis = &types.EvidenceSynthesis{
			Summary:    p.str(s["summary"]),
			Confidence: clamp(p.number("evidence_synthesis.confidence", s["confidence"], 0)),
		}
	}

	rec.Status = types.Status(p.str(raw["status"]))
	if !rec.Status.Valid() {
		rec.Status = types.StatusUnreviewed
	}

	if len(p.bad) > 0 {
		return nil, &ValidationError{RecordID: rec.ID, Fields: p.bad, Reason: "malformed fields"}
	}

	rec.EvidenceScore = evidence.Score(rec.Evidence)
	return rec, nil
}

func (p *parser) provenance(v any) *types.AssertionProvenance {
	m := p.mapping("provenance", v)
	prov := &types.AssertionProvenance{
		AttributedTo:  p.strings("provenance.attributed_to", m["attributed_to"]),
		GeneratedAt:   p.date("provenance.generated_at", m["generated_at"]),
		SourceVersion: p.str(m["source_version"]),
		SourceURI:     p.str(m["source_uri"]),
	}
	if g, ok := m["generated_by"]; ok && g != nil {
		act := p.mapping("provenance.generated_by", g)
		prov.GeneratedBy = &types.CurationActivity{
			ID:                   p.str(act["id"]),
			Description:          p.str(act["description"]),
			AssociatedWith:       p.strings("provenance.generated_by.associated_with", act["associated_with"]),
			AssociatedWithLabels: p.strings("provenance.generated_by.associated_with_labels", act["associated_with_labels"]),
			StartedAt:            p.date("provenance.generated_by.started_at", act["started_at"]),
			EndedAt:              p.date("provenance.generated_by.ended_at", act["ended_at"]),
			CreatedWith:          p.str(act["created_with"]),
			PullRequest:          p.str(act["pull_request"]),
		}
	}
	return prov
}

func (p *parser) evidenceItem(i int, v any) types.EvidenceItem {
	field := fmt.Sprintf("evidence[%d]", i)
	m := p.mapping(field, v)

	item := types.EvidenceItem{
		ID:          p.str(m["id"]),
		Direction:   types.Direction(p.str(m["direction"])),
		Strength:    clamp(p.number(field+".evidence_strength", m["evidence_strength"], 1)),
		ECOCode:     p.str(m["eco_code"]),
		ECOLabel:    p.str(m["eco_label"]),
		Description: p.str(m["description"]),
	}
	if item.ID == "" {
		item.ID = NewID()
	}
	if !item.Direction.Valid() {
		item.Direction = types.DirectionSupports
	}

	switch types.EvidenceType(p.str(m["evidence_type"])) {
	case types.EvidenceConcordance:
		var st types.SourceType
		if s := p.str(m["source_type"]); s != "" {
			st = types.SourceType(s)
			if !st.Valid() {
				st = types.SourceOther
			}
		}
		item.Detail = types.ConcordanceEvidence{
			Source:             p.str(m["source"]),
			SourceName:         p.str(m["source_name"]),
			SourceType:         st,
			PredicateID:        p.str(m["predicate_id"]),
			PredicateLabel:     p.str(m["predicate_label"]),
			SourceSubjectID:    p.str(m["source_subject_id"]),
			SourceSubjectLabel: p.str(m["source_subject_label"]),
			SourceObjectID:     p.str(m["source_object_id"]),
			SourceObjectLabel:  p.str(m["source_object_label"]),
			MappingSet:         p.str(m["mapping_set"]),
		}
	case types.EvidenceLiterature:
		item.Detail = types.LiteratureEvidence{
			PublicationID:    p.str(m["publication_id"]),
			PublicationTitle: p.str(m["publication_title"]),
			QuotedText:       p.str(m["quoted_text"]),
			QuoteLocation:    p.str(m["quote_location"]),
			Explanation:      p.str(m["explanation"]),
		}
	case types.EvidenceExpertReview:
		item.Detail = types.ExpertReviewEvidence{
			ReviewerORCID:       p.str(m["reviewer_orcid"]),
			ReviewerName:        p.str(m["reviewer_name"]),
			ReviewerAffiliation: p.str(m["reviewer_affiliation"]),
			ReviewedAt:          p.date(field+".reviewed_at", m["reviewed_at"]),
			Issue:               p.str(m["issue"]),
		}
	case types.EvidenceComputational:
		c := types.ComputationalEvidence{
			Method:     p.str(m["method"]),
			MethodURI:  p.str(m["method_uri"]),
			Parameters: p.str(m["parameters"]),
		}
		if v, ok := m["confidence_score"]; ok && v != nil {
			score := p.number(field+".confidence_score", v, 0)
			c.ConfidenceScore = &score
		}
		item.Detail = c
	}
	return item
}

// parser collects malformed field names so a document reports all of its
// problems at once.
type parser struct {
	bad []string
}

func (p *parser) fail(field string) {
	p.bad = append(p.bad, field)
}

func (p *parser) str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case time.Time:
		return s.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

func (p *parser) mapping(field string, v any) map[string]any {
	if v == nil {
		return map[string]any{}
	}
	m, ok := v.(map[string]any)
	if !ok {
		p.fail(field)
		return map[string]any{}
	}
	return m
}

func (p *parser) strings(field string, v any) []string {
	switch s := v.(type) {
	case nil:
		return nil
	case string:
		return []string{strings.TrimSpace(s)}
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			out = append(out, p.str(item))
		}
		return out
	}
	p.fail(field)
	return nil
}

// number reads a numeric field, returning def when it is absent.
func (p *parser) number(field string, v any, def float64) float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return def
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			p.fail(field)
			return def
		}
		f = parsed
	default:
		p.fail(field)
		return def
	}
	if math.IsNaN(f) {
		p.fail(field)
		return def
	}
	return f
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (p *parser) date(field string, v any) *time.Time {
	switch d := v.(type) {
	case nil:
		return nil
	case time.Time:
		t := d.UTC()
		return &t
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}
	p.fail(field)
	return nil
}

func clamp(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}
