// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"time"
)

// migration is one versioned schema change. Versions are applied in order,
// each inside its own transaction, and recorded in schema_migrations.
type migration struct {
	version    int
	name       string
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "records and decisions",
		statements: []string{
			`CREATE TABLE records (
				id TEXT PRIMARY KEY,
				subject_id TEXT NOT NULL,
				subject_label TEXT,
				predicate TEXT NOT NULL,
				predicate_label TEXT,
				object_id TEXT NOT NULL,
				object_label TEXT,
				display_text TEXT,
				last_updated TEXT,
				provenance TEXT,
				evidence TEXT NOT NULL DEFAULT '[]',
				synthesis_summary TEXT,
				synthesis_confidence REAL,
				evidence_score REAL NOT NULL DEFAULT 0,
				status TEXT NOT NULL DEFAULT 'UNREVIEWED',
				evidence_steward TEXT,
				confidence REAL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE decisions (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				id TEXT NOT NULL UNIQUE,
				record_id TEXT NOT NULL REFERENCES records(id),
				curator_orcid TEXT NOT NULL,
				curator_name TEXT,
				decision TEXT NOT NULL,
				certainty REAL NOT NULL DEFAULT 1.0,
				rationale TEXT,
				decided_at TEXT NOT NULL
			)`,
		},
	},
	{
		version: 2,
		name:    "query indexes",
		statements: []string{
			`CREATE INDEX idx_records_status ON records(status)`,
			`CREATE INDEX idx_records_status_score ON records(status, evidence_score)`,
			`CREATE INDEX idx_records_created_at ON records(created_at)`,
			`CREATE INDEX idx_decisions_record ON decisions(record_id, decided_at DESC, seq DESC)`,
		},
	},
	{
		version: 3,
		name:    "append-only ledger",
		statements: []string{
			`CREATE TRIGGER decisions_no_update BEFORE UPDATE ON decisions BEGIN
				SELECT RAISE(ABORT, 'decisions are append-only');
			END`,
			`CREATE TRIGGER decisions_no_delete BEFORE DELETE ON decisions BEGIN
				SELECT RAISE(ABORT, 'decisions are append-only');
			END`,
		},
	},
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func (s *Store) apply(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
		m.version, m.name, time.Now().UTC().Format(timeFormat),
	); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return tx.Commit()
}
