// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/knakk/rdf"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/sieve/internal/metrics"
	"github.com/pdiddy/sieve/internal/store"
	"github.com/pdiddy/sieve/pkg/types"
)

type fakeSource struct {
	records []store.ListedRecord
	err     error
}

func (f fakeSource) AcceptedRecords(context.Context) ([]store.ListedRecord, error) {
	return f.records, f.err
}

func accepted(id, subject, predicate, object, curator string) store.ListedRecord {
	return store.ListedRecord{
		Record: types.CurationRecord{
			ID:              id,
			Assertion:       types.Assertion{SubjectID: subject, Predicate: predicate, ObjectID: object},
			Status:          types.StatusAccepted,
			EvidenceSteward: curator,
		},
		Latest: &types.CurationDecision{RecordID: id, CuratorORCID: curator, Decision: types.DecisionAccept, Certainty: 1},
	}
}

func sampleRecords() []store.ListedRecord {
	return []store.ListedRecord{
		accepted("cura:b", "MONDO:0005015", "rdfs:subClassOf", "MONDO:0005151", "orcid:0000-0002-5002-8648"),
		accepted("cura:a", "HP:0000118", "skos:exactMatch", "http://example.org/phenotype/1", "0000-0001-0000-0001"),
		accepted("cura:c", "FOO:1", "rdfs:subClassOf", "BAR:2", "https://orcid.org/0000-0003-0000-0003"),
	}
}

func TestExpand(t *testing.T) {
	p := DefaultPrefixes()
	tests := []struct {
		in, want string
	}{
		{"MONDO:0000005", "http://purl.obolibrary.org/obo/MONDO_0000005"},
		{"orcid:0000-0002-5002-8648", "https://orcid.org/0000-0002-5002-8648"},
		{"rdfs:subClassOf", "http://www.w3.org/2000/01/rdf-schema#subClassOf"},
		{"PMID:12345", "https://pubmed.ncbi.nlm.nih.gov/12345"},
		{"http://example.org/test", "http://example.org/test"},
		{"UNKNOWN:1", "UNKNOWN:1"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := p.Expand(tt.in); got != tt.want {
			t.Errorf("Expand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	custom := p.With(map[string]string{"FOO": "http://example.org/foo/"})
	assert.Equal(t, "http://example.org/foo/1", custom.Expand("FOO:1"))
	assert.Equal(t, "FOO:1", p.Expand("FOO:1"), "With must not mutate the receiver")
}

func TestJSONLDContextOnlyGenDelimPrefixes(t *testing.T) {
	ctx := DefaultPrefixes().With(map[string]string{"foo": "http://example.org/foo/"}).JSONLDContext()

	assert.Equal(t, OBO, ctx["obo"])
	assert.Equal(t, "http://example.org/foo/", ctx["foo"])
	for _, prefix := range []string{"MONDO", "HP", "SEPIO", "CHEBI"} {
		assert.NotContains(t, ctx, prefix)
	}
	for prefix, ns := range ctx {
		s, ok := ns.(string)
		require.True(t, ok, prefix)
		assert.True(t, strings.ContainsAny(s[len(s)-1:], ":/?#[]@"), "%s: %s", prefix, s)
	}
}

func build(t *testing.T, records []store.ListedRecord, opts Options) Graph {
	t.Helper()
	g, err := Build(records, opts)
	require.NoError(t, err)
	return g
}

func iriOf(t *testing.T, s string) rdf.IRI {
	t.Helper()
	v, err := rdf.NewIRI(s)
	require.NoError(t, err)
	return v
}

// axiomFor finds the axiom node annotating subject s.
func axiomFor(t *testing.T, g Graph, s string) rdf.Subject {
	t.Helper()
	for _, tr := range g.Triples {
		if tr.Pred.Serialize(rdf.NTriples) == "<"+AnnotatedSource+">" && tr.Obj.Serialize(rdf.NTriples) == "<"+s+">" {
			return tr.Subj
		}
	}
	t.Fatalf("no axiom annotates %s", s)
	return nil
}

func TestBuildWithProvenance(t *testing.T) {
	g := build(t, sampleRecords(), Options{Provenance: true})

	axioms := 0
	for _, tr := range g.Triples {
		if tr.Pred.Serialize(rdf.NTriples) == "<"+RDFType+">" && tr.Obj.Serialize(rdf.NTriples) == "<"+OWLAxiom+">" {
			axioms++
			assert.Equal(t, rdf.TermBlank, tr.Subj.Type())
		}
	}
	assert.Equal(t, 3, axioms, "exactly one axiom per accepted record")

	s := iriOf(t, "http://purl.obolibrary.org/obo/MONDO_0005015")
	p := iriOf(t, RDFS+"subClassOf")
	o := iriOf(t, "http://purl.obolibrary.org/obo/MONDO_0005151")
	assert.False(t, g.Has(s, p, o), "bare triple must not be asserted with provenance")

	ax := axiomFor(t, g, "http://purl.obolibrary.org/obo/MONDO_0005015")
	assert.True(t, g.Has(ax, iriOf(t, AnnotatedProperty), p))
	assert.True(t, g.Has(ax, iriOf(t, AnnotatedTarget), o))
	assert.True(t, g.Has(ax, iriOf(t, OBOSource), iriOf(t, "https://orcid.org/0000-0002-5002-8648")))
	assert.True(t, g.Has(ax, iriOf(t, HasEvidence), iriOf(t, "cura:b")))

	hp := axiomFor(t, g, "http://purl.obolibrary.org/obo/HP_0000118")
	assert.True(t, g.Has(hp, iriOf(t, OBOSource), iriOf(t, "https://orcid.org/0000-0001-0000-0001")))
	// Unknown prefixes pass through unchanged.
	foo := axiomFor(t, g, "FOO:1")
	assert.True(t, g.Has(foo, iriOf(t, OBOSource), iriOf(t, "https://orcid.org/0000-0003-0000-0003")))
}

func TestBuildWithoutProvenance(t *testing.T) {
	g := build(t, sampleRecords(), Options{})

	assert.Equal(t, 3, g.Len())
	assert.True(t, g.Has(
		iriOf(t, "http://purl.obolibrary.org/obo/MONDO_0005015"),
		iriOf(t, RDFS+"subClassOf"),
		iriOf(t, "http://purl.obolibrary.org/obo/MONDO_0005151"),
	))
	for _, tr := range g.Triples {
		assert.NotEqual(t, "<"+OWLAxiom+">", tr.Obj.Serialize(rdf.NTriples))
	}
}

func TestBuildFallsBackToSteward(t *testing.T) {
	lr := accepted("cura:x", "HP:1", "rdfs:subClassOf", "HP:2", "orcid:0000-0009")
	lr.Latest = nil
	g := build(t, []store.ListedRecord{lr}, Options{Provenance: true})
	ax := axiomFor(t, g, "http://purl.obolibrary.org/obo/HP_1")
	assert.True(t, g.Has(ax, iriOf(t, OBOSource), iriOf(t, "https://orcid.org/0000-0009")))
}

func TestBuildRejectsInvalidIRI(t *testing.T) {
	_, err := Build([]store.ListedRecord{accepted("cura:x", "http://example.org/with space", "rdfs:subClassOf", "HP:2", "")}, Options{})
	assert.ErrorContains(t, err, "with space")
}

func TestRoundTripAllFormats(t *testing.T) {
	want := build(t, sampleRecords(), Options{Provenance: true}).Canonical()

	for _, f := range []types.ExportFormat{types.FormatTurtle, types.FormatNTriples, types.FormatJSONLD} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, build(t, sampleRecords(), Options{Provenance: true}), f, DefaultPrefixes()))

			got, err := Read(&buf, f)
			require.NoError(t, err, buf.String())
			if diff := cmp.Diff(want, got.Canonical()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s\n%s", diff, buf.String())
			}
		})
	}
}

func TestJSONLDUsesCompactIRIs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONLD(&buf, build(t, sampleRecords()[:1], Options{Provenance: true}), nil))
	out := buf.String()

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	ctx, ok := doc["@context"].(map[string]any)
	require.True(t, ok, out)
	assert.NotContains(t, ctx, "MONDO")
	assert.Equal(t, OBO, ctx["obo"])

	assert.Contains(t, out, `"obo:MONDO_0005015"`)
	assert.NotContains(t, out, `"MONDO:0005015"`)
}

func TestCanonicalIgnoresBlankLabels(t *testing.T) {
	g := build(t, sampleRecords(), Options{Provenance: true})
	var nt bytes.Buffer
	require.NoError(t, WriteNTriples(&nt, g))
	renamed := strings.ReplaceAll(nt.String(), "_:axiom", "_:other")

	got, err := ReadNTriples(strings.NewReader(renamed))
	require.NoError(t, err)
	assert.Equal(t, g.Canonical(), got.Canonical())
}

func TestReadTurtleMatchesNTriples(t *testing.T) {
	ttl := `# hand-written
PREFIX ex: <http://example.org/>
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .

ex:a rdfs:seeAlso ex:c , ex:d ;
     ex:link <http://example.org/b> .
_:n1 a ex:Thing .
`
	nts := `<http://example.org/a> <http://www.w3.org/2000/01/rdf-schema#seeAlso> <http://example.org/c> .
<http://example.org/a> <http://www.w3.org/2000/01/rdf-schema#seeAlso> <http://example.org/d> .
<http://example.org/a> <http://example.org/link> <http://example.org/b> .
_:x <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://example.org/Thing> .
`
	fromTurtle, err := ReadTurtle(strings.NewReader(ttl))
	require.NoError(t, err)
	fromNT, err := ReadNTriples(strings.NewReader(nts))
	require.NoError(t, err)

	assert.Equal(t, 4, fromTurtle.Len())
	assert.Equal(t, fromNT.Canonical(), fromTurtle.Canonical())
}

func TestReadTurtleErrors(t *testing.T) {
	for name, src := range map[string]string{
		"undeclared prefix": "ex:a ex:b ex:c .",
		"literal subject":   `"x" <http://b> <http://c> .`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadTurtle(strings.NewReader(src))
			assert.Error(t, err)
		})
	}
}

func TestNTriplesRejectsPrefixedNames(t *testing.T) {
	_, err := ReadNTriples(strings.NewReader("owl:a owl:b owl:c .\n"))
	assert.Error(t, err)
}

func TestExporterExport(t *testing.T) {
	m := metrics.New()
	clock := func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	e := New(fakeSource{records: sampleRecords()}, types.ExportConfig{
		Prefixes: map[string]string{"FOO": "http://example.org/foo/"},
	}, WithMetrics(m), WithClock(clock))

	dir := filepath.Join(t.TempDir(), "exports")
	res, err := e.Export(context.Background(), dir, types.FormatJSONLD, true)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "export_20260304_050607.jsonld"), res.Path)
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, 18, res.Triples)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	g, err := ReadJSONLD(bytes.NewReader(data))
	require.NoError(t, err)
	axiomFor(t, g, "http://example.org/foo/1")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ExportedRecords.WithLabelValues("jsonld", "true")))

	_, err = e.Render(context.Background(), &bytes.Buffer{}, types.FormatNTriples, false)
	require.NoError(t, err)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ExportedRecords.WithLabelValues("ntriples", "false")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ExportedRecords.WithLabelValues("ntriples", "true")))
}

func TestExporterEmptyAndErrors(t *testing.T) {
	e := New(fakeSource{}, types.ExportConfig{})
	var buf bytes.Buffer
	res, err := e.Render(context.Background(), &buf, types.FormatTurtle, true)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Records)
	assert.Empty(t, strings.TrimSpace(buf.String()))

	failing := New(fakeSource{err: errors.New("disk gone")}, types.ExportConfig{})
	_, err = failing.Export(context.Background(), t.TempDir(), types.FormatTurtle, true)
	assert.ErrorContains(t, err, "disk gone")
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]types.ExportFormat{
		"": types.FormatTurtle, "TTL": types.FormatTurtle, "turtle": types.FormatTurtle,
		"nt": types.FormatNTriples, "ntriples": types.FormatNTriples,
		"json-ld": types.FormatJSONLD, "jsonld": types.FormatJSONLD,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("rdfxml")
	assert.Error(t, err)
}

func TestRecordTurtle(t *testing.T) {
	rec := accepted("cura:a", "MONDO:0005015", "rdfs:subClassOf", "MONDO:0005151", "").Record
	out, err := RecordTurtle(rec, nil)
	require.NoError(t, err)

	g, err := ReadTurtle(strings.NewReader(out))
	require.NoError(t, err, out)
	assert.Equal(t, 1, g.Len())
	assert.True(t, g.Has(
		iriOf(t, "http://purl.obolibrary.org/obo/MONDO_0005015"),
		iriOf(t, RDFS+"subClassOf"),
		iriOf(t, "http://purl.obolibrary.org/obo/MONDO_0005151"),
	))
}
