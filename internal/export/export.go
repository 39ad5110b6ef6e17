// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export serializes accepted curation records as a claim graph.
//
// Each accepted assertion is reified as an owl:Axiom annotated with the
// curator who accepted it (oboInOwl:source) and the record holding its
// evidence (SEPIO:0000124, has_evidence). Turtle, N-Triples and JSON-LD
// writers have matching readers so an export can be re-parsed and checked.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/sieve/internal/logging"
	"github.com/pdiddy/sieve/internal/metrics"
	"github.com/pdiddy/sieve/internal/store"
	"github.com/pdiddy/sieve/pkg/types"
)

// Source supplies the records to export.
type Source interface {
	AcceptedRecords(ctx context.Context) ([]store.ListedRecord, error)
}

// ParseFormat validates a format name. Empty selects Turtle.
func ParseFormat(s string) (types.ExportFormat, error) {
	switch f := types.ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", "ttl":
		return types.FormatTurtle, nil
	case types.FormatTurtle, types.FormatNTriples, types.FormatJSONLD:
		return f, nil
	case "nt":
		return types.FormatNTriples, nil
	case "json-ld":
		return types.FormatJSONLD, nil
	}
	return "", fmt.Errorf("unsupported export format %q (want turtle, ntriples or jsonld)", s)
}

// Extension returns the file extension for f.
func Extension(f types.ExportFormat) string {
	switch f {
	case types.FormatNTriples:
		return "nt"
	case types.FormatJSONLD:
		return "jsonld"
	}
	return "ttl"
}

// Write serializes g in format f.
func Write(w io.Writer, g Graph, f types.ExportFormat, prefixes PrefixMap) error {
	switch f {
	case types.FormatNTriples:
		return WriteNTriples(w, g)
	case types.FormatJSONLD:
		return WriteJSONLD(w, g, prefixes)
	case types.FormatTurtle, "":
		return WriteTurtle(w, g)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

// Read parses a document in format f.
func Read(r io.Reader, f types.ExportFormat) (Graph, error) {
	switch f {
	case types.FormatNTriples:
		return ReadNTriples(r)
	case types.FormatJSONLD:
		return ReadJSONLD(r)
	case types.FormatTurtle, "":
		return ReadTurtle(r)
	}
	return Graph{}, fmt.Errorf("unsupported export format %q", f)
}

// Result describes a completed export.
type Result struct {
	Path    string
	Records int
	Triples int
}

// Exporter writes accepted records from a Source.
type Exporter struct {
	src      Source
	prefixes PrefixMap
	log      *logging.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the structured logger.
func WithLogger(l *logging.Logger) Option { return func(e *Exporter) { e.log = l } }

// WithMetrics sets the counters exports are recorded on.
func WithMetrics(m *metrics.Metrics) Option { return func(e *Exporter) { e.metrics = m } }

// WithClock overrides the time used to name export files.
func WithClock(now func() time.Time) Option { return func(e *Exporter) { e.now = now } }

// New creates an Exporter. Prefixes from cfg extend DefaultPrefixes.
func New(src Source, cfg types.ExportConfig, opts ...Option) *Exporter {
	e := &Exporter{
		src:      src,
		prefixes: DefaultPrefixes().With(cfg.Prefixes),
		log:      logging.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Prefixes returns the prefix map used for expansion and the JSON-LD context.
func (e *Exporter) Prefixes() PrefixMap { return e.prefixes }

// Graph builds the claim graph for all accepted records.
func (e *Exporter) Graph(ctx context.Context, withProvenance bool) (Graph, int, error) {
	records, err := e.src.AcceptedRecords(ctx)
	if err != nil {
		return Graph{}, 0, fmt.Errorf("loading accepted records: %w", err)
	}
	g, err := Build(records, Options{Provenance: withProvenance, Prefixes: e.prefixes})
	if err != nil {
		return Graph{}, 0, err
	}
	return g, len(records), nil
}

// Render writes the claim graph to w.
func (e *Exporter) Render(ctx context.Context, w io.Writer, f types.ExportFormat, withProvenance bool) (Result, error) {
	g, n, err := e.Graph(ctx, withProvenance)
	if err != nil {
		return Result{}, err
	}
	if err := Write(w, g, f, e.prefixes); err != nil {
		return Result{}, fmt.Errorf("writing %s: %w", f, err)
	}
	if e.metrics != nil {
		e.metrics.ExportedRecords.WithLabelValues(string(f), strconv.FormatBool(withProvenance)).Add(float64(n))
	}
	return Result{Records: n, Triples: g.Len()}, nil
}

// Export writes the claim graph to dir/export_YYYYMMDD_HHMMSS.<ext> and
// returns the file's path. The store is only read.
func (e *Exporter) Export(ctx context.Context, dir string, f types.ExportFormat, withProvenance bool) (Result, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating export directory: %w", err)
	}

	var buf bytes.Buffer
	res, err := e.Render(ctx, &buf, f, withProvenance)
	if err != nil {
		return Result{}, err
	}

	name := fmt.Sprintf("export_%s.%s", e.now().Format("20060102_150405"), Extension(f))
	res.Path = filepath.Join(dir, name)
	if err := os.WriteFile(res.Path, buf.Bytes(), 0o644); err != nil {
		return Result{}, fmt.Errorf("writing %s: %w", res.Path, err)
	}
	e.log.Info("export written", "path", res.Path, "format", string(f),
		"records", res.Records, "triples", res.Triples, "provenance", withProvenance)
	return res, nil
}

// RecordTurtle renders one record's bare assertion as Turtle.
func RecordTurtle(rec types.CurationRecord, prefixes PrefixMap) (string, error) {
	if prefixes == nil {
		prefixes = DefaultPrefixes()
	}
	g, err := Build([]store.ListedRecord{{Record: rec}}, Options{Prefixes: prefixes})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := WriteTurtle(&b, g); err != nil {
		return "", err
	}
	return b.String(), nil
}
