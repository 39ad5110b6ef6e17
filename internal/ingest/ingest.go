// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest turns YAML and JSON documents into curation records and
// loads them into the store.
//
// Batch ingest is idempotent: a record whose id is already stored is
// counted as skipped and left untouched. A failure in one document is
// collected in the summary and never stops the rest of the batch.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/sieve/internal/logging"
	"github.com/pdiddy/sieve/internal/metrics"
	"github.com/pdiddy/sieve/pkg/types"
)

// Pattern selects the documents IngestDirectory reads.
const Pattern = "**/*.{yaml,yml,json}"

const lockStripes = 64

// RecordStore is the persistence the ingester writes to.
type RecordStore interface {
	InsertRecord(ctx context.Context, rec *types.CurationRecord) error
	InsertRecordIfAbsent(ctx context.Context, rec *types.CurationRecord) (bool, error)
}

// ErrorDetail names one failed document.
type ErrorDetail struct {
	File  string `json:"file" yaml:"file"`
	Error string `json:"error" yaml:"error"`
}

// Summary holds counts from an ingest run.
type Summary struct {
	Files        int           `json:"files" yaml:"files"`
	Success      int           `json:"success" yaml:"success"`
	Skipped      int           `json:"skipped" yaml:"skipped"`
	Errors       int           `json:"errors" yaml:"errors"`
	ErrorDetails []ErrorDetail `json:"error_details,omitempty" yaml:"error_details,omitempty"`
}

// Total returns the number of records processed.
func (s Summary) Total() int {
	return s.Success + s.Skipped + s.Errors
}

func (s *Summary) add(o Summary) {
	s.Files += o.Files
	s.Success += o.Success
	s.Skipped += o.Skipped
	s.Errors += o.Errors
	s.ErrorDetails = append(s.ErrorDetails, o.ErrorDetails...)
}

// Ingester parses documents and inserts the resulting records.
type Ingester struct {
	store   RecordStore
	workers int
	log     *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	// locks serializes inserts of the same id across workers.
	locks [lockStripes]sync.Mutex
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets the structured logger.
func WithLogger(l *logging.Logger) Option {
	return func(in *Ingester) { in.log = l }
}

// WithMetrics sets the counters ingest outcomes are recorded on.
func WithMetrics(m *metrics.Metrics) Option {
	return func(in *Ingester) { in.metrics = m }
}

// WithClock overrides the time source used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(in *Ingester) { in.now = now }
}

// New creates an Ingester writing to s.
func New(s RecordStore, cfg types.IngestConfig, opts ...Option) *Ingester {
	in := &Ingester{
		store:   s,
		workers: cfg.Workers,
		log:     logging.Nop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	if in.workers <= 0 {
		in.workers = 1
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// IngestDirectory ingests every document under dir matching Pattern,
// processing up to the configured number of files in parallel. A missing
// directory is created and yields an empty summary. Progress lines are
// written to w.
func (in *Ingester) IngestDirectory(ctx context.Context, dir string, w io.Writer) (Summary, error) {
	if w == nil {
		w = io.Discard
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Summary{}, fmt.Errorf("creating inbox %s: %w", dir, err)
		}
		fmt.Fprintf(w, "created inbox %s\n", dir)
		return Summary{}, nil
	}

	matches, err := doublestar.Glob(os.DirFS(dir), Pattern)
	if err != nil {
		return Summary{}, fmt.Errorf("listing %s: %w", dir, err)
	}
	sort.Strings(matches)

	var (
		mu      sync.Mutex
		summary Summary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.workers)

	for _, rel := range matches {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fs := in.ingestFile(gctx, path)

			mu.Lock()
			defer mu.Unlock()
			summary.add(fs)
			for _, d := range fs.ErrorDetails {
				fmt.Fprintf(w, "failed  %s: %s\n", rel, d.Error)
			}
			fmt.Fprintf(w, "ingested %s (%d new, %d skipped)\n", rel, fs.Success, fs.Skipped)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	sort.SliceStable(summary.ErrorDetails, func(i, j int) bool {
		return summary.ErrorDetails[i].File < summary.ErrorDetails[j].File
	})
	fmt.Fprintf(w, "\nfiles: %d, ingested: %d, skipped: %d, errors: %d\n",
		summary.Files, summary.Success, summary.Skipped, summary.Errors)
	in.log.Info("ingest finished", "dir", dir, "files", summary.Files,
		"success", summary.Success, "skipped", summary.Skipped, "errors", summary.Errors)
	return summary, nil
}

// IngestFile ingests every record in one document. Per-record failures are
// collected in the summary; an unreadable or undecodable file counts as one
// error.
func (in *Ingester) IngestFile(ctx context.Context, path string) Summary {
	return in.ingestFile(ctx, path)
}

func (in *Ingester) ingestFile(ctx context.Context, path string) Summary {
	s := Summary{Files: 1}
	fail := func(err error) {
		s.Errors++
		s.ErrorDetails = append(s.ErrorDetails, ErrorDetail{File: path, Error: err.Error()})
		in.log.Warn("ingest failed", "file", path, "error", err)
		in.count("failed")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fail(fmt.Errorf("reading file: %w", err))
		return s
	}
	docs, err := ParseDocument(data)
	if err != nil {
		fail(err)
		return s
	}

	for _, raw := range docs {
		if err := ctx.Err(); err != nil {
			fail(err)
			return s
		}
		rec, err := parseAt(raw, in.now())
		if err != nil {
			fail(err)
			continue
		}
		inserted, err := in.insertIfAbsent(ctx, rec)
		if err != nil {
			fail(err)
			continue
		}
		if inserted {
			s.Success++
		} else {
			s.Skipped++
			in.log.Debug("record exists, skipped", "record", rec.ID, "file", path)
			in.count("skipped")
		}
	}
	return s
}

// IngestOne parses a document holding exactly one record and inserts it.
// Unlike batch ingest, parse failures and an existing id (store.ErrConflict)
// are returned to the caller.
func (in *Ingester) IngestOne(ctx context.Context, data []byte) (*types.CurationRecord, error) {
	docs, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	if len(docs) != 1 {
		return nil, &ValidationError{Reason: fmt.Sprintf("expected exactly one record, got %d", len(docs))}
	}
	rec, err := parseAt(docs[0], in.now())
	if err != nil {
		return nil, err
	}

	mu := in.lockFor(rec.ID)
	mu.Lock()
	defer mu.Unlock()
	if err := in.store.InsertRecord(ctx, rec); err != nil {
		return nil, err
	}
	in.inserted(rec)
	return rec, nil
}

func (in *Ingester) insertIfAbsent(ctx context.Context, rec *types.CurationRecord) (bool, error) {
	mu := in.lockFor(rec.ID)
	mu.Lock()
	defer mu.Unlock()

	ok, err := in.store.InsertRecordIfAbsent(ctx, rec)
	if err != nil {
		return false, err
	}
	if ok {
		in.inserted(rec)
	}
	return ok, nil
}

func (in *Ingester) inserted(rec *types.CurationRecord) {
	in.log.Debug("record ingested", "record", rec.ID, "score", rec.EvidenceScore, "evidence", len(rec.Evidence))
	in.count("inserted")
	if in.metrics != nil {
		in.metrics.EvidenceScore.Observe(rec.EvidenceScore)
	}
}

func (in *Ingester) count(result string) {
	if in.metrics != nil {
		in.metrics.IngestedRecords.WithLabelValues(result).Inc()
	}
}

func (in *Ingester) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &in.locks[h.Sum32()%lockStripes]
}
