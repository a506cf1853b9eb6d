// Package lookuplog persists an audit trail of weather lookups served by the
// gateway. It records what was asked and where the answer came from (cache
// or upstream); it never stores cache entries themselves.
package lookuplog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Lookup sources recorded in the audit log.
const (
	SourceCache    = "cache"
	SourceUpstream = "upstream"
)

// Entry represents one served lookup.
type Entry struct {
	RequestID    string
	Place        string // city name or "lat,lon"
	Fetcher      string
	Source       string // cache | upstream
	Units        string
	Language     string
	ErrorMessage string
	CreatedAt    time.Time
}

// Writer persists lookup entries.
type Writer interface {
	Write(ctx context.Context, entry Entry) error
}

// NoopWriter ignores all log writes.
type NoopWriter struct{}

// Write implements Writer.
func (NoopWriter) Write(_ context.Context, _ Entry) error { return nil }

// Query filters List results.
type Query struct {
	Limit   int
	Offset  int
	Source  string
	Fetcher string
}

// Result is one page of lookup entries plus the unpaged total.
type Result struct {
	Total int
	Data  []Entry
}

// SQLWriter persists entries to SQLite or Postgres.
type SQLWriter struct {
	db      *sql.DB
	dialect string
}

// NewSQLiteWriter opens (or creates) a SQLite-backed lookup log.
func NewSQLiteWriter(dsn string) (*SQLWriter, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "weathergw-lookups.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite lookup log: %w", err)
	}
	w := &SQLWriter{db: db, dialect: "sqlite"}
	if err := w.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

// NewPostgresWriter opens a Postgres-backed lookup log.
func NewPostgresWriter(dsn string) (*SQLWriter, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres lookup log: %w", err)
	}
	w := &SQLWriter{db: db, dialect: "postgres"}
	if err := w.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func (w *SQLWriter) init() error {
	if err := w.db.Ping(); err != nil {
		return fmt.Errorf("ping %s lookup log: %w", w.dialect, err)
	}

	ddl := `
CREATE TABLE IF NOT EXISTS weather_lookups (
	id INTEGER PRIMARY KEY,
	request_id TEXT,
	place TEXT NOT NULL,
	fetcher TEXT,
	source TEXT NOT NULL,
	units TEXT,
	language TEXT,
	error_message TEXT,
	created_at TIMESTAMP NOT NULL
);`

	if w.dialect == "postgres" {
		ddl = `
CREATE TABLE IF NOT EXISTS weather_lookups (
	id BIGSERIAL PRIMARY KEY,
	request_id TEXT,
	place TEXT NOT NULL,
	fetcher TEXT,
	source TEXT NOT NULL,
	units TEXT,
	language TEXT,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL
);`
	}

	if _, err := w.db.Exec(ddl); err != nil {
		return fmt.Errorf("initialize lookup log schema: %w", err)
	}
	return nil
}

// Write implements Writer.
func (w *SQLWriter) Write(ctx context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO weather_lookups(request_id, place, fetcher, source, units, language, error_message, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?)`
	if w.dialect == "postgres" {
		query = `INSERT INTO weather_lookups(request_id, place, fetcher, source, units, language, error_message, created_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)`
	}

	_, err := w.db.ExecContext(ctx, query,
		entry.RequestID,
		entry.Place,
		entry.Fetcher,
		entry.Source,
		entry.Units,
		entry.Language,
		entry.ErrorMessage,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("write lookup log: %w", err)
	}
	return nil
}

// List returns a page of entries matching q, newest first.
func (w *SQLWriter) List(ctx context.Context, q Query) (Result, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	var conds []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		if w.dialect == "postgres" {
			cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(args)), 1)
		}
		conds = append(conds, cond)
	}
	if q.Source != "" {
		add("source = ?", q.Source)
	}
	if q.Fetcher != "" {
		add("fetcher = ?", q.Fetcher)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := w.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM weather_lookups"+where, args...).Scan(&total); err != nil {
		return Result{}, fmt.Errorf("count lookup logs: %w", err)
	}

	limitClause := " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset)
	if w.dialect == "postgres" {
		limitClause = fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := w.db.QueryContext(ctx,
		"SELECT request_id, place, fetcher, source, units, language, error_message, created_at FROM weather_lookups"+where+limitClause,
		args...)
	if err != nil {
		return Result{}, fmt.Errorf("list lookup logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := Result{Total: total}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RequestID, &e.Place, &e.Fetcher, &e.Source, &e.Units, &e.Language, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return Result{}, fmt.Errorf("scan lookup log: %w", err)
		}
		result.Data = append(result.Data, e)
	}
	return result, rows.Err()
}

// DeleteBefore removes entries created before the cutoff and returns how many
// rows were deleted. Used for retention housekeeping.
func (w *SQLWriter) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := "DELETE FROM weather_lookups WHERE created_at < ?"
	if w.dialect == "postgres" {
		query = "DELETE FROM weather_lookups WHERE created_at < $1"
	}
	res, err := w.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete lookup logs: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the underlying database handle.
func (w *SQLWriter) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}
