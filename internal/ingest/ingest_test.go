// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/sieve/internal/metrics"
	"github.com/pdiddy/sieve/internal/store"
	"github.com/pdiddy/sieve/pkg/types"
)

var fixedNow = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func testSetup(t *testing.T) (*Ingester, *store.Store, *metrics.Metrics) {
	t.Helper()
	s, err := store.NewStore(types.StoreConfig{Path: filepath.Join(t.TempDir(), "curation.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	m := metrics.New()
	in := New(s, types.IngestConfig{Workers: 4}, WithMetrics(m), WithClock(func() time.Time { return fixedNow }))
	return in, s, m
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const fullRecord = `
id: cura:0001
last_updated: 2026-01-10
assertion:
  subject_id: MONDO:0005015
  subject_label: diabetes mellitus
  predicate: rdfs:subClassOf
  object_id: MONDO:0005151
  object_label: endocrine system disorder
provenance:
  attributed_to: [orcid:0000-0002-5002-8648]
  generated_at: "2026-01-09"
  generated_by:
    id: pr-42
    pull_request: https://github.com/monarch-initiative/mondo/pull/42
evidence:
  - id: ev-1
    evidence_type: CONCORDANCE
    direction: SUPPORTS
    evidence_strength: 0.8
    source: DOID
    source_type: ONTOLOGY
  - evidence_type: LITERATURE
    direction: CONTRADICTS
    evidence_strength: 0.2
    publication_id: PMID:123
  - evidence_type: COMPUTATIONAL
    direction: UNCERTAIN
    evidence_strength: 0.5
    method: lexmatch
    confidence_score: 0.7
evidence_synthesis:
  summary: largely supported
  confidence: 0.9
`

func TestParseFullRecord(t *testing.T) {
	docs, err := ParseDocument([]byte(fullRecord))
	require.NoError(t, err)
	require.Len(t, docs, 1)

	rec, err := parseAt(docs[0], fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "cura:0001", rec.ID)
	assert.Equal(t, types.StatusUnreviewed, rec.Status)
	assert.Empty(t, rec.EvidenceSteward)
	assert.Nil(t, rec.Confidence)
	require.NotNil(t, rec.LastUpdated)
	assert.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), *rec.LastUpdated)
	require.NotNil(t, rec.Provenance)
	assert.Equal(t, []string{"orcid:0000-0002-5002-8648"}, rec.Provenance.AttributedTo)
	require.NotNil(t, rec.Provenance.GeneratedBy)
	assert.Equal(t, "pr-42", rec.Provenance.GeneratedBy.ID)

	require.Len(t, rec.Evidence, 3)
	assert.Equal(t, "ev-1", rec.Evidence[0].ID)
	assert.Equal(t, types.EvidenceConcordance, rec.Evidence[0].Type())
	assert.Equal(t, types.SourceOntology, rec.Evidence[0].Detail.(types.ConcordanceEvidence).SourceType)
	assert.True(t, strings.HasPrefix(rec.Evidence[1].ID, "cura:"), rec.Evidence[1].ID)
	comp := rec.Evidence[2].Detail.(types.ComputationalEvidence)
	require.NotNil(t, comp.ConfidenceScore)
	assert.Equal(t, 0.7, *comp.ConfidenceScore)

	// (0.8 - 0.2) / (0.8 + 0.2 + 0.5)
	assert.InDelta(t, 0.4, rec.EvidenceScore, 1e-9)
	require.NotNil(t, rec.Synthesis)
	assert.Equal(t, 0.9, rec.Synthesis.Confidence)
	assert.Equal(t, fixedNow, rec.CreatedAt)
	assert.Equal(t, fixedNow, rec.UpdatedAt)
}

func TestParseLenientFallbacks(t *testing.T) {
	raw := map[string]any{
		"status": "accepted",
		"assertion": map[string]any{
			"subject_id": "HP:1", "predicate": "skos:exactMatch", "object_id": "HP:2",
		},
		"evidence": []any{
			map[string]any{"evidence_type": "NEW_KIND", "direction": "SIDEWAYS", "evidence_strength": 7},
			map[string]any{"evidence_type": "CONCORDANCE", "source_type": "SPREADSHEET", "evidence_strength": -3},
			map[string]any{"evidence_type": "literature", "direction": "contradicts"},
		},
		"evidence_synthesis": map[string]any{"summary": "odd", "confidence": 1.7},
	}

	rec, err := parseAt(raw, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, types.StatusUnreviewed, rec.Status)
	assert.True(t, strings.HasPrefix(rec.ID, "cura:"))
	assert.Len(t, strings.TrimPrefix(rec.ID, "cura:"), 12)

	assert.Equal(t, types.EvidenceOther, rec.Evidence[0].Type())
	assert.Equal(t, types.DirectionSupports, rec.Evidence[0].Direction)
	assert.Equal(t, 1.0, rec.Evidence[0].Strength)

	assert.Equal(t, types.SourceOther, rec.Evidence[1].Detail.(types.ConcordanceEvidence).SourceType)
	assert.Equal(t, 0.0, rec.Evidence[1].Strength)

	// Enumerations are case-sensitive.
	assert.Equal(t, types.EvidenceOther, rec.Evidence[2].Type())
	assert.Equal(t, types.DirectionSupports, rec.Evidence[2].Direction)
	assert.Equal(t, 1.0, rec.Evidence[2].Strength, "missing strength defaults to 1.0")

	assert.Equal(t, 1.0, rec.Synthesis.Confidence)
	// (1 + 0 + 1) / 2
	assert.Equal(t, 1.0, rec.EvidenceScore)
}

func TestParseHonorsKnownStatus(t *testing.T) {
	raw := map[string]any{
		"status":    "CONTROVERSIAL",
		"assertion": map[string]any{"subject_id": "A:1", "predicate": "p", "object_id": "B:1"},
	}
	rec, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, types.StatusControversial, rec.Status)
	assert.Empty(t, rec.EvidenceSteward)
	assert.Empty(t, rec.Evidence)
	assert.Equal(t, 0.0, rec.EvidenceScore)
}

func TestParseMissingFields(t *testing.T) {
	raw := map[string]any{
		"id":        "cura:bad",
		"assertion": map[string]any{"subject_id": "MONDO:1"},
	}
	_, err := Parse(raw)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "err = %v", err)
	assert.Equal(t, "cura:bad", verr.RecordID)
	assert.Equal(t, []string{"assertion.predicate", "assertion.object_id"}, verr.Fields)
	assert.Contains(t, err.Error(), "assertion.predicate")
}

func TestParseMalformedFields(t *testing.T) {
	raw := map[string]any{
		"assertion": map[string]any{"subject_id": "A:1", "predicate": "p", "object_id": "B:1"},
		"evidence": []any{
			map[string]any{"evidence_strength": "strong"},
			"not a mapping",
		},
		"last_updated": "last tuesday",
	}
	_, err := Parse(raw)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "err = %v", err)
	assert.ElementsMatch(t, []string{"evidence[0].evidence_strength", "evidence[1]", "last_updated"}, verr.Fields)
}

func TestParseDocument(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"single mapping", "id: a\n", 1, false},
		{"list", "- id: a\n- id: b\n", 2, false},
		{"json list", `[{"id": "a"}, {"id": "b"}, {"id": "c"}]`, 3, false},
		{"empty", "", 0, false},
		{"scalar", "just text", 0, true},
		{"list of scalars", "- 1\n- 2\n", 0, true},
		{"invalid yaml", "a: [unclosed", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := ParseDocument([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, docs, tt.want)
		})
	}
}

func record(id string) string {
	return `id: ` + id + `
assertion:
  subject_id: MONDO:1
  predicate: rdfs:subClassOf
  object_id: MONDO:2
evidence:
  - evidence_type: LITERATURE
    evidence_strength: 0.5
`
}

func TestIngestDirectoryIdempotent(t *testing.T) {
	in, s, m := testSetup(t)
	inbox := t.TempDir()
	writeFile(t, inbox, "one.yaml", record("cura:1"))
	writeFile(t, inbox, "nested/two.yml", "- "+strings.ReplaceAll(record("cura:2"), "\n", "\n  ")+"\n")
	writeFile(t, inbox, "three.json", `{"id": "cura:3", "assertion": {"subject_id": "A:1", "predicate": "p", "object_id": "B:1"}}`)
	writeFile(t, inbox, "notes.txt", "ignored")

	var out bytes.Buffer
	first, err := in.IngestDirectory(context.Background(), inbox, &out)
	require.NoError(t, err)
	assert.Equal(t, Summary{Files: 3, Success: 3}, first)
	assert.Contains(t, out.String(), "files: 3, ingested: 3, skipped: 0, errors: 0")

	second, err := in.IngestDirectory(context.Background(), inbox, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{Files: 3, Skipped: 3}, second)

	counts, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Total)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.IngestedRecords.WithLabelValues("inserted")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.IngestedRecords.WithLabelValues("skipped")))
}

func TestIngestDirectoryDoesNotOverwrite(t *testing.T) {
	in, s, _ := testSetup(t)
	inbox := t.TempDir()
	writeFile(t, inbox, "a.yaml", record("cura:same"))
	_, err := in.IngestDirectory(context.Background(), inbox, nil)
	require.NoError(t, err)

	// Same id, different content.
	writeFile(t, inbox, "a.yaml", strings.Replace(record("cura:same"), "MONDO:2", "MONDO:999", 1))
	sum, err := in.IngestDirectory(context.Background(), inbox, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)

	rec, err := s.GetRecord(context.Background(), "cura:same")
	require.NoError(t, err)
	assert.Equal(t, "MONDO:2", rec.Assertion.ObjectID)
}

func TestIngestDirectoryPartialFailure(t *testing.T) {
	in, s, _ := testSetup(t)
	inbox := t.TempDir()
	writeFile(t, inbox, "good.yaml", record("cura:good"))
	writeFile(t, inbox, "broken.yaml", "a: [unclosed")
	writeFile(t, inbox, "mixed.yaml", "- "+strings.ReplaceAll(record("cura:mixed"), "\n", "\n  ")+
		"\n- id: cura:incomplete\n  assertion:\n    subject_id: X:1\n")

	var out bytes.Buffer
	sum, err := in.IngestDirectory(context.Background(), inbox, &out)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Files)
	assert.Equal(t, 2, sum.Success)
	assert.Equal(t, 2, sum.Errors)
	require.Len(t, sum.ErrorDetails, 2)
	assert.Equal(t, filepath.Join(inbox, "broken.yaml"), sum.ErrorDetails[0].File)
	assert.Equal(t, filepath.Join(inbox, "mixed.yaml"), sum.ErrorDetails[1].File)
	assert.Contains(t, sum.ErrorDetails[1].Error, "assertion.predicate")
	assert.Contains(t, out.String(), "failed  broken.yaml")

	for _, id := range []string{"cura:good", "cura:mixed"} {
		ok, err := s.RecordExists(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, ok, id)
	}
}

func TestIngestDirectoryCreatesMissingInbox(t *testing.T) {
	in, _, _ := testSetup(t)
	inbox := filepath.Join(t.TempDir(), "inbox")

	sum, err := in.IngestDirectory(context.Background(), inbox, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)

	info, err := os.Stat(inbox)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestIngestDirectoryDuplicateIDsAcrossFiles(t *testing.T) {
	in, _, _ := testSetup(t)
	inbox := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yaml", "c.yaml", "d.yaml"} {
		writeFile(t, inbox, name, record("cura:dup"))
	}

	sum, err := in.IngestDirectory(context.Background(), inbox, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Success)
	assert.Equal(t, 3, sum.Skipped)
}

func TestIngestOne(t *testing.T) {
	in, _, _ := testSetup(t)

	rec, err := in.IngestOne(context.Background(), []byte(record("cura:single")))
	require.NoError(t, err)
	assert.Equal(t, "cura:single", rec.ID)

	_, err = in.IngestOne(context.Background(), []byte(record("cura:single")))
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = in.IngestOne(context.Background(), []byte("id: x\nassertion: {}\n"))
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = in.IngestOne(context.Background(), []byte("- id: a\n- id: b\n"))
	assert.True(t, errors.As(err, &verr))
}
