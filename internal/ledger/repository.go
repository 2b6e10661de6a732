package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	// timeLayout is fixed width so created_at sorts lexically.
	timeLayout = "2006-01-02T15:04:05.000000Z"
)

// Filter controls which records List returns.
type Filter struct {
	Target  string  // optional
	Outcome Outcome // optional
	Limit   int     // default 50, max 200
	Offset  int
}

// ListResult is one page of records, newest first.
type ListResult struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// Repository defines the ledger operations.
type Repository interface {
	Record(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, filter Filter) (*ListResult, error)
	Latest(ctx context.Context, target string) (*Record, error)
}

// SQLiteRepository stores records in the resolutions table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts rec. ID and CreatedAt are filled in when empty.
func (r *SQLiteRepository) Record(ctx context.Context, rec *Record) error {
	if rec.Target == "" {
		return fmt.Errorf("%w: target is required", ErrInvalidRecord)
	}
	if !rec.Outcome.Valid() {
		return fmt.Errorf("%w: unknown outcome %q", ErrInvalidRecord, rec.Outcome)
	}
	if rec.ID == "" {
		rec.ID = "res-" + uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	entries, err := marshalList(rec.Entries)
	if err != nil {
		return fmt.Errorf("marshalling entries: %w", err)
	}
	keys, err := marshalList(rec.ErrorKeys)
	if err != nil {
		return fmt.Errorf("marshalling error keys: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO resolutions (id, target, base_layer, override_layer, outcome, fingerprint,
			key_count, invariant, error_keys, message, entries, duration_us, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Target, rec.Base, rec.Override, string(rec.Outcome),
		nullableString(rec.Fingerprint), rec.KeyCount, nullableString(rec.Invariant),
		keys, nullableString(rec.Message), entries,
		rec.Duration.Microseconds(), rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting resolution record: %w", err)
	}
	return nil
}

// GetByID returns the record with the given ID or ErrNotFound.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+" FROM resolutions WHERE id = ?", id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying resolution record: %w", err)
	}
	return rec, nil
}

// Latest returns the most recent successful record for target, or
// ErrNotFound when the target has never resolved cleanly.
func (r *SQLiteRepository) Latest(ctx context.Context, target string) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		selectColumns+` FROM resolutions WHERE target = ? AND outcome = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		target, string(OutcomeOK),
	)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying latest resolution: %w", err)
	}
	return rec, nil
}

// List returns records matching filter, newest first. Entries are omitted
// from listed records; use GetByID for the full record.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var (
		conditions []string
		args       []any
	)
	if filter.Target != "" {
		conditions = append(conditions, "target = ?")
		args = append(args, filter.Target)
	}
	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM resolutions " + where //nolint:gosec // WHERE built from parameterised conditions
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting resolution records: %w", err)
	}

	query := selectColumns + " FROM resolutions " + where + //nolint:gosec // WHERE built from parameterised conditions
		" ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying resolution records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning resolution record: %w", err)
		}
		rec.Entries = nil
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating resolution records: %w", err)
	}

	return &ListResult{
		Records: records,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

const selectColumns = `SELECT id, target, base_layer, override_layer, outcome, fingerprint,
	key_count, invariant, error_keys, message, entries, duration_us, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var (
		rec                             Record
		outcome, keys, entries, created string
		fingerprint, invariant, message sql.NullString
		durationUS                      int64
	)
	if err := s.Scan(&rec.ID, &rec.Target, &rec.Base, &rec.Override, &outcome, &fingerprint,
		&rec.KeyCount, &invariant, &keys, &message, &entries, &durationUS, &created); err != nil {
		return nil, err
	}

	rec.Outcome = Outcome(outcome)
	rec.Fingerprint = fingerprint.String
	rec.Invariant = invariant.String
	rec.Message = message.String
	rec.Duration = time.Duration(durationUS) * time.Microsecond

	if err := json.Unmarshal([]byte(keys), &rec.ErrorKeys); err != nil {
		return nil, fmt.Errorf("decoding error keys of %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(entries), &rec.Entries); err != nil {
		return nil, fmt.Errorf("decoding entries of %s: %w", rec.ID, err)
	}

	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	rec.CreatedAt = t
	return &rec, nil
}

// marshalList encodes a slice as a JSON array, writing [] for nil.
func marshalList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// nullableString maps "" to SQL NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
