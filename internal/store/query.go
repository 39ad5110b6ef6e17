// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pdiddy/sieve/pkg/types"
)

// SortKey names a sortable listing column. Only keys in sortColumns are
// accepted, so caller input never reaches the SQL text.
type SortKey string

const (
	SortCreatedAt     SortKey = "created_at"
	SortUpdatedAt     SortKey = "updated_at"
	SortEvidenceScore SortKey = "evidence_score"
	SortDisplayText   SortKey = "display_text"
	SortPredicate     SortKey = "predicate"
	SortSubject       SortKey = "subject_id"
	SortConfidence    SortKey = "confidence"
	SortDecidedAt     SortKey = "decided_at"
	SortCertainty     SortKey = "certainty"
	SortCuratorName   SortKey = "curator_name"
)

var sortColumns = map[SortKey]string{
	SortCreatedAt:     "r.created_at",
	SortUpdatedAt:     "r.updated_at",
	SortEvidenceScore: "r.evidence_score",
	SortDisplayText:   "COALESCE(r.display_text, r.subject_label, r.subject_id)",
	SortPredicate:     "r.predicate",
	SortSubject:       "r.subject_id",
	SortConfidence:    "r.confidence",
	SortDecidedAt:     "d.decided_at",
	SortCertainty:     "d.certainty",
	SortCuratorName:   "COALESCE(d.curator_name, d.curator_orcid)",
}

// SortKeys returns the accepted sort keys.
func SortKeys() []SortKey {
	return []SortKey{
		SortCreatedAt, SortUpdatedAt, SortEvidenceScore, SortDisplayText, SortPredicate,
		SortSubject, SortConfidence, SortDecidedAt, SortCertainty, SortCuratorName,
	}
}

// ParseSortKey validates a sort key from user input.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := sortColumns[k]; !ok {
		return "", fmt.Errorf("unsupported sort key %q", s)
	}
	return k, nil
}

const defaultPageSize = 25

// ListOptions holds the parameters of a paginated listing.
type ListOptions struct {
	// Status filters by status. Empty lists every record.
	Status types.Status

	// Sort selects the ordering column (default created_at).
	Sort SortKey

	// Descending reverses the ordering.
	Descending bool

	// Offset skips this many records.
	Offset int

	// Limit caps the page size (default 25).
	Limit int
}

// ListedRecord is a record with its current decision, if it has one.
type ListedRecord struct {
	Record types.CurationRecord    `json:"record" yaml:"record"`
	Latest *types.CurationDecision `json:"latest_decision,omitempty" yaml:"latest_decision,omitempty"`
}

// Page is one page of a listing plus the total number of matches.
type Page struct {
	Records []ListedRecord `json:"records" yaml:"records"`
	Total   int            `json:"total" yaml:"total"`
	Offset  int            `json:"offset" yaml:"offset"`
	Limit   int            `json:"limit" yaml:"limit"`
}

// Pages returns how many pages of Limit records the listing spans.
func (p Page) Pages() int {
	if p.Limit <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// latestJoin attaches each record's newest ledger entry.
const latestJoin = `LEFT JOIN decisions d ON d.seq = (
	SELECT d2.seq FROM decisions d2
	WHERE d2.record_id = r.id
	ORDER BY d2.decided_at DESC, d2.seq DESC LIMIT 1)`

// ListRecords returns a page of records ordered by an allow-listed column.
// Decided records carry their latest decision.
func (s *Store) ListRecords(ctx context.Context, opts ListOptions) (Page, error) {
	sortKey := opts.Sort
	if sortKey == "" {
		sortKey = SortCreatedAt
	}
	column, ok := sortColumns[sortKey]
	if !ok {
		return Page{}, fmt.Errorf("unsupported sort key %q", sortKey)
	}
	order := "ASC"
	if opts.Descending {
		order = "DESC"
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	var (
		where string
		args  []any
	)
	if opts.Status != "" {
		where = ` WHERE r.status = ?`
		args = append(args, string(opts.Status))
	}

	page := Page{Offset: offset, Limit: limit}
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM records r`+where, args...).Scan(&page.Total); err != nil {
		return Page{}, fmt.Errorf("counting records: %w", err)
	}

	var qb strings.Builder
	qb.WriteString(`SELECT ` + recordColumns + `,
		d.id, d.record_id, d.curator_orcid, d.curator_name, d.decision, d.certainty, d.rationale, d.decided_at
		FROM records r ` + latestJoin)
	qb.WriteString(where)
	fmt.Fprintf(&qb, ` ORDER BY %s %s, r.id ASC LIMIT ? OFFSET ?`, column, order)

	rows, err := s.db.QueryContext(ctx, qb.String(), append(args, limit, offset)...)
	if err != nil {
		return Page{}, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		lr, err := scanListed(rows)
		if err != nil {
			return Page{}, err
		}
		page.Records = append(page.Records, lr)
	}
	return page, rows.Err()
}

func scanListed(rows *sql.Rows) (ListedRecord, error) {
	var (
		id, recordID, orcid, decision, decidedAt sql.NullString
		name, rationale                          sql.NullString
		certainty                                sql.NullFloat64
	)
	rec, err := scanRecord(rows, &id, &recordID, &orcid, &name, &decision, &certainty, &rationale, &decidedAt)
	if err != nil {
		return ListedRecord{}, fmt.Errorf("scanning record: %w", err)
	}

	lr := ListedRecord{Record: *rec}
	if id.Valid && rec.Status.Decided() {
		d, err := buildDecision(id.String, recordID.String, orcid.String, name, decision.String,
			certainty.Float64, rationale, decidedAt.String)
		if err != nil {
			return ListedRecord{}, err
		}
		lr.Latest = &d
	}
	return lr, nil
}

// Stats counts records per status.
func (s *Store) Stats(ctx context.Context) (types.StatusCounts, error) {
	var c types.StatusCounts
	err := s.db.QueryRowContext(ctx,
		`SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'UNREVIEWED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'ACCEPTED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'REJECTED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'CONTROVERSIAL' THEN 1 ELSE 0 END), 0)
		FROM records`,
	).Scan(&c.Total, &c.Unreviewed, &c.Accepted, &c.Rejected, &c.Controversial)
	if err != nil {
		return types.StatusCounts{}, fmt.Errorf("counting statuses: %w", err)
	}
	return c, nil
}

// AcceptedRecords returns every ACCEPTED record with its latest decision,
// ordered by record id.
func (s *Store) AcceptedRecords(ctx context.Context) ([]ListedRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+`,
			d.id, d.record_id, d.curator_orcid, d.curator_name, d.decision, d.certainty, d.rationale, d.decided_at
		FROM records r `+latestJoin+`
		WHERE r.status = ?
		ORDER BY r.id`, string(types.StatusAccepted))
	if err != nil {
		return nil, fmt.Errorf("querying accepted records: %w", err)
	}
	defer rows.Close()

	var out []ListedRecord
	for rows.Next() {
		lr, err := scanListed(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}
