package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"
)

// sqliteTime is the datetime('now') layout.
const sqliteTime = "2006-01-02 15:04:05"

// Entry is one transcript line.
type Entry struct {
	ID        int64
	SessionID string
	Direction string
	Line      string
	CreatedAt time.Time
}

// QueryOpts filters transcript queries.
type QueryOpts struct {
	// SessionID restricts results to one adapter run.
	SessionID string

	// Direction restricts results to "in", "out" or "err".
	Direction string

	// After keeps entries created at or after this time.
	After *time.Time

	// Limit keeps the newest N entries (0 = no limit). Results are still
	// returned oldest first.
	Limit int
}

// Reader queries the journal.
type Reader struct {
	db *sql.DB
}

// OpenReader opens an existing journal read-only.
func OpenReader(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("journal not found: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	return &Reader{db: db}, nil
}

// Close releases the database. Readers obtained from Journal.Reader share
// the journal's connection and must not be closed.
func (r *Reader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Transcript returns matching entries oldest first.
func (r *Reader) Transcript(ctx context.Context, opts QueryOpts) ([]Entry, error) {
	query, args := buildTranscriptQuery(opts)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Direction, &e.Line, &created); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		if e.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcript: %w", err)
	}

	// Newest-first from the query; flip to reading order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func buildTranscriptQuery(opts QueryOpts) (string, []any) {
	var conditions []string
	var args []any

	query := "SELECT id, session_id, direction, line, created_at FROM transcript WHERE 1=1"
	if opts.SessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, opts.SessionID)
	}
	if opts.Direction != "" {
		conditions = append(conditions, "direction = ?")
		args = append(args, opts.Direction)
	}
	if opts.After != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, opts.After.UTC().Format(sqliteTime))
	}
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	return query, args
}

// SessionSummary describes one recorded adapter run.
type SessionSummary struct {
	SessionID string
	Lines     int
	First     time.Time
	Last      time.Time
}

// Sessions lists recorded sessions, most recent first.
func (r *Reader) Sessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	query := `SELECT session_id, COUNT(*), MIN(created_at), MAX(created_at), MAX(id) AS last_id
		FROM transcript GROUP BY session_id ORDER BY last_id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var s SessionSummary
		var first, last string
		var lastID int64
		if err := rows.Scan(&s.SessionID, &s.Lines, &first, &last, &lastID); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if s.First, err = parseTime(first); err != nil {
			return nil, err
		}
		if s.Last, err = parseTime(last); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// SuiteResults returns the rows of one suite run in insertion order.
func (r *Reader) SuiteResults(ctx context.Context, runID string) ([]SuiteRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT test_id, suite, fen, expected, got, ok FROM suite_results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query suite results: %w", err)
	}
	defer rows.Close()

	var out []SuiteRow
	for rows.Next() {
		var s SuiteRow
		var ok int
		if err := rows.Scan(&s.TestID, &s.Suite, &s.FEN, &s.Expected, &s.Got, &ok); err != nil {
			return nil, fmt.Errorf("scan suite result: %w", err)
		}
		s.OK = ok != 0
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suite results: %w", err)
	}
	return out, nil
}

// ReliabilityFailures returns the failures of one reliability run.
func (r *Reader) ReliabilityFailures(ctx context.Context, runID string) ([]FailureRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, fen, value FROM reliability_failures WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query reliability failures: %w", err)
	}
	defer rows.Close()

	var out []FailureRow
	for rows.Next() {
		var f FailureRow
		if err := rows.Scan(&f.Kind, &f.FEN, &f.Value); err != nil {
			return nil, fmt.Errorf("scan reliability failure: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reliability failures: %w", err)
	}
	return out, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(sqliteTime, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse created_at %q: %w", s, err)
		}
	}
	return t, nil
}
