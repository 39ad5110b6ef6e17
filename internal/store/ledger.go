// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/sieve/internal/lifecycle"
	"github.com/pdiddy/sieve/pkg/types"
)

// RecordDecision appends d to the ledger and moves its record to the
// decision's target status, setting steward and confidence. Both writes
// commit together or not at all. The updated record is returned.
//
// The transition is checked against the record's committed status inside
// the transaction; a record that is no longer UNREVIEWED yields
// lifecycle.ErrAlreadyDecided.
func (s *Store) RecordDecision(ctx context.Context, d types.CurationDecision) (*types.CurationRecord, error) {
	if d.ID == "" {
		return nil, errors.New("decision id is empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rec, err := getRecord(ctx, tx, d.RecordID)
	if err != nil {
		return nil, err
	}
	prev := rec.Status
	if err := lifecycle.Apply(rec, d); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO decisions (id, record_id, curator_orcid, curator_name, decision, certainty, rationale, decided_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.RecordID, d.CuratorORCID, nullString(d.CuratorName), string(d.Decision),
		d.Certainty, nullString(d.Rationale), d.DecidedAt.UTC().Format(timeFormat),
	); err != nil {
		return nil, fmt.Errorf("appending decision %s: %w", d.ID, err)
	}

	if err := updateProjection(ctx, tx, rec, prev); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing decision %s: %w", d.ID, err)
	}
	return rec, nil
}

// ReturnToQueue resets a decided record to UNREVIEWED and clears its
// steward and confidence. Ledger entries are left untouched.
func (s *Store) ReturnToQueue(ctx context.Context, recordID string, at time.Time) (*types.CurationRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rec, err := getRecord(ctx, tx, recordID)
	if err != nil {
		return nil, err
	}
	prev := rec.Status
	if err := lifecycle.ApplyReset(rec, at); err != nil {
		return nil, err
	}
	if err := updateProjection(ctx, tx, rec, prev); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing reset of %s: %w", recordID, err)
	}
	return rec, nil
}

// updateProjection writes the record's status fields, guarded on the
// status read earlier in the same transaction.
func updateProjection(ctx context.Context, tx *sql.Tx, rec *types.CurationRecord, prev types.Status) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE records SET status = ?, evidence_steward = ?, confidence = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(rec.Status), nullString(rec.EvidenceSteward), nullFloat(rec.Confidence),
		rec.UpdatedAt.UTC().Format(timeFormat), rec.ID, string(prev),
	)
	if err != nil {
		return fmt.Errorf("updating record %s: %w", rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating record %s: %w", rec.ID, err)
	}
	if n != 1 {
		return fmt.Errorf("%w: %s changed concurrently", lifecycle.ErrAlreadyDecided, rec.ID)
	}
	return nil
}

const decisionColumns = `d.id, d.record_id, d.curator_orcid, d.curator_name, d.decision, d.certainty, d.rationale, d.decided_at`

// DecisionsForRecord returns the record's ledger, newest first. Entries
// with equal decided_at are ordered by insertion, latest first.
func (s *Store) DecisionsForRecord(ctx context.Context, recordID string) ([]types.CurationDecision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+decisionColumns+` FROM decisions d
		 WHERE d.record_id = ?
		 ORDER BY d.decided_at DESC, d.seq DESC`, recordID)
	if err != nil {
		return nil, fmt.Errorf("querying decisions for %s: %w", recordID, err)
	}
	defer rows.Close()

	var out []types.CurationDecision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// LatestDecision returns the record's current decision. The boolean is
// false when the record has no decisions.
func (s *Store) LatestDecision(ctx context.Context, recordID string) (types.CurationDecision, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+decisionColumns+` FROM decisions d
		 WHERE d.record_id = ?
		 ORDER BY d.decided_at DESC, d.seq DESC LIMIT 1`, recordID)
	d, err := scanDecision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.CurationDecision{}, false, nil
	}
	if err != nil {
		return types.CurationDecision{}, false, err
	}
	return d, true, nil
}

func scanDecision(sc scanner) (types.CurationDecision, error) {
	var (
		id, recordID, orcid, decision, decidedAt string
		name, rationale                          sql.NullString
		certainty                                float64
	)
	if err := sc.Scan(&id, &recordID, &orcid, &name, &decision, &certainty, &rationale, &decidedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.CurationDecision{}, err
		}
		return types.CurationDecision{}, fmt.Errorf("scanning decision: %w", err)
	}
	return buildDecision(id, recordID, orcid, name, decision, certainty, rationale, decidedAt)
}

func buildDecision(id, recordID, orcid string, name sql.NullString, decision string,
	certainty float64, rationale sql.NullString, decidedAt string) (types.CurationDecision, error) {
	t, err := time.Parse(timeFormat, decidedAt)
	if err != nil {
		return types.CurationDecision{}, fmt.Errorf("parsing decided_at: %w", err)
	}
	return types.CurationDecision{
		ID:           id,
		RecordID:     recordID,
		CuratorORCID: orcid,
		CuratorName:  name.String,
		Decision:     types.DecisionType(decision),
		Certainty:    certainty,
		Rationale:    rationale.String,
		DecidedAt:    t,
	}, nil
}
