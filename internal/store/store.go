// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists curation records and the decision ledger in SQLite.
//
// Records carry a denormalized projection of their latest decision (status,
// steward, confidence). RecordDecision writes the ledger entry and that
// projection in one transaction, so readers never see one without the other.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/sieve/pkg/types"
)

var (
	// ErrNotFound is returned when a record id does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when inserting a record whose id already exists.
	ErrConflict = errors.New("record already exists")
)

// timeFormat is fixed-width so stored timestamps sort lexicographically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Store manages the curation SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the database at cfg.Path and applies any
// pending schema migrations. Transactions take the write lock up front
// (BEGIN IMMEDIATE) so concurrent decisions on one record serialize.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = types.DefaultConfig().Store.Path
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertRecord stores a new record. It returns ErrConflict if the id exists.
func (s *Store) InsertRecord(ctx context.Context, rec *types.CurationRecord) error {
	inserted, err := s.InsertRecordIfAbsent(ctx, rec)
	if err != nil {
		return err
	}
	if !inserted {
		return fmt.Errorf("%w: %s", ErrConflict, rec.ID)
	}
	return nil
}

// InsertRecordIfAbsent stores rec unless a record with the same id exists.
// The existence check and insert are one statement, so concurrent inserts
// of the same id store exactly one row.
func (s *Store) InsertRecordIfAbsent(ctx context.Context, rec *types.CurationRecord) (bool, error) {
	if rec.ID == "" {
		return false, errors.New("record id is empty")
	}

	evidenceJSON, err := json.Marshal(rec.Evidence)
	if err != nil {
		return false, fmt.Errorf("encoding evidence: %w", err)
	}
	var provenanceJSON sql.NullString
	if rec.Provenance != nil {
		data, err := json.Marshal(rec.Provenance)
		if err != nil {
			return false, fmt.Errorf("encoding provenance: %w", err)
		}
		provenanceJSON = sql.NullString{String: string(data), Valid: true}
	}
	var synthSummary sql.NullString
	var synthConfidence sql.NullFloat64
	if rec.Synthesis != nil {
		synthSummary = sql.NullString{String: rec.Synthesis.Summary, Valid: true}
		synthConfidence = sql.NullFloat64{Float64: rec.Synthesis.Confidence, Valid: true}
	}

	now := time.Now().UTC()
	created, updated := rec.CreatedAt, rec.UpdatedAt
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = created
	}
	status := rec.Status
	if status == "" {
		status = types.StatusUnreviewed
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO records (
			id, subject_id, subject_label, predicate, predicate_label,
			object_id, object_label, display_text, last_updated,
			provenance, evidence, synthesis_summary, synthesis_confidence,
			evidence_score, status, evidence_steward, confidence,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		rec.ID, rec.Assertion.SubjectID, rec.Assertion.SubjectLabel,
		rec.Assertion.Predicate, rec.Assertion.PredicateLabel,
		rec.Assertion.ObjectID, rec.Assertion.ObjectLabel, rec.Assertion.DisplayText,
		nullTime(rec.LastUpdated),
		provenanceJSON, string(evidenceJSON), synthSummary, synthConfidence,
		rec.EvidenceScore, string(status), nullString(rec.EvidenceSteward), nullFloat(rec.Confidence),
		created.UTC().Format(timeFormat), updated.UTC().Format(timeFormat),
	)
	if err != nil {
		return false, fmt.Errorf("inserting record %s: %w", rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting record %s: %w", rec.ID, err)
	}
	return n == 1, nil
}

// RecordExists reports whether a record with id is stored.
func (s *Store) RecordExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM records WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking record %s: %w", id, err)
	}
	return true, nil
}

// GetRecord returns the record with id, or ErrNotFound.
func (s *Store) GetRecord(ctx context.Context, id string) (*types.CurationRecord, error) {
	return getRecord(ctx, s.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRecord(ctx context.Context, q queryer, id string) (*types.CurationRecord, error) {
	row := q.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records r WHERE r.id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading record %s: %w", id, err)
	}
	return rec, nil
}

const recordColumns = `r.id, r.subject_id, r.subject_label, r.predicate, r.predicate_label,
	r.object_id, r.object_label, r.display_text, r.last_updated,
	r.provenance, r.evidence, r.synthesis_summary, r.synthesis_confidence,
	r.evidence_score, r.status, r.evidence_steward, r.confidence,
	r.created_at, r.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner, extra ...any) (*types.CurationRecord, error) {
	var (
		rec             types.CurationRecord
		subjectLabel    sql.NullString
		predicateLabel  sql.NullString
		objectLabel     sql.NullString
		displayText     sql.NullString
		lastUpdated     sql.NullString
		provenanceJSON  sql.NullString
		evidenceJSON    sql.NullString
		synthSummary    sql.NullString
		synthConfidence sql.NullFloat64
		status          string
		steward         sql.NullString
		confidence      sql.NullFloat64
		createdAt       string
		updatedAt       string
	)

	dest := []any{
		&rec.ID, &rec.Assertion.SubjectID, &subjectLabel, &rec.Assertion.Predicate, &predicateLabel,
		&rec.Assertion.ObjectID, &objectLabel, &displayText, &lastUpdated,
		&provenanceJSON, &evidenceJSON, &synthSummary, &synthConfidence,
		&rec.EvidenceScore, &status, &steward, &confidence,
		&createdAt, &updatedAt,
	}
	if err := sc.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	rec.Assertion.SubjectLabel = subjectLabel.String
	rec.Assertion.PredicateLabel = predicateLabel.String
	rec.Assertion.ObjectLabel = objectLabel.String
	rec.Assertion.DisplayText = displayText.String
	rec.Status = types.Status(status)
	rec.EvidenceSteward = steward.String
	if confidence.Valid {
		c := confidence.Float64
		rec.Confidence = &c
	}
	if lastUpdated.Valid {
		if t, err := time.Parse(timeFormat, lastUpdated.String); err == nil {
			rec.LastUpdated = &t
		}
	}
	if provenanceJSON.Valid {
		var p types.AssertionProvenance
		if err := json.Unmarshal([]byte(provenanceJSON.String), &p); err != nil {
			return nil, fmt.Errorf("decoding provenance: %w", err)
		}
		rec.Provenance = &p
	}
	rec.Evidence = []types.EvidenceItem{}
	if evidenceJSON.Valid && evidenceJSON.String != "" && evidenceJSON.String != "null" {
		if err := json.Unmarshal([]byte(evidenceJSON.String), &rec.Evidence); err != nil {
			return nil, fmt.Errorf("decoding evidence: %w", err)
		}
	}
	if synthSummary.Valid || synthConfidence.Valid {
		rec.Synthesis = &types.EvidenceSynthesis{
			Summary:    synthSummary.String,
			Confidence: synthConfidence.Float64,
		}
	}

	var err error
	if rec.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeFormat), Valid: true}
}
