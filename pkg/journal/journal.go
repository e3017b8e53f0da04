// Package journal stores adapter transcripts and test-run results in SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	_ "modernc.org/sqlite" // SQLite driver

	"gnomes/pkg/adapter"
)

// Journal is a writable handle on the journal database.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal at path with WAL journaling
// and a 5-second busy timeout, and applies the schema. path may be
// ":memory:".
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection keeps ":memory:" a single database and serializes writers.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode on %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout on %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, SchemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Reader returns a query handle sharing this journal's connection.
func (j *Journal) Reader() *Reader {
	return &Reader{db: j.db}
}

// Record appends one transcript line.
func (j *Journal) Record(ctx context.Context, sessionID string, dir adapter.Direction, line string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO transcript (session_id, direction, line) VALUES (?, ?, ?)`,
		sessionID, string(dir), line)
	if err != nil {
		return fmt.Errorf("record transcript line: %w", err)
	}
	return nil
}

// SuiteRow is one position-suite outcome.
type SuiteRow struct {
	TestID   string
	Suite    string
	FEN      string
	Expected string
	Got      string
	OK       bool
}

// SaveSuiteResults stores all rows of a suite run in one transaction.
func (j *Journal) SaveSuiteResults(ctx context.Context, runID string, rows []SuiteRow) error {
	return j.inTx(ctx, func(tx *sql.Tx) error {
		for _, r := range rows {
			ok := 0
			if r.OK {
				ok = 1
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO suite_results (run_id, test_id, suite, fen, expected, got, ok) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				runID, r.TestID, r.Suite, r.FEN, r.Expected, r.Got, ok); err != nil {
				return fmt.Errorf("insert suite result %s: %w", r.TestID, err)
			}
		}
		return nil
	})
}

// Failure kinds recorded by the reliability checker.
const (
	KindFailedMove = "failed_move"
	KindTimeout    = "timeout"
)

// FailureRow is one reliability failure.
type FailureRow struct {
	Kind  string // KindFailedMove or KindTimeout
	FEN   string
	Value string // rejected move text; empty for timeouts
}

// SaveReliabilityFailures stores all failures of a reliability run.
func (j *Journal) SaveReliabilityFailures(ctx context.Context, runID string, rows []FailureRow) error {
	return j.inTx(ctx, func(tx *sql.Tx) error {
		for _, r := range rows {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO reliability_failures (run_id, kind, fen, value) VALUES (?, ?, ?, ?)`,
				runID, r.Kind, r.FEN, r.Value); err != nil {
				return fmt.Errorf("insert reliability failure: %w", err)
			}
		}
		return nil
	})
}

func (j *Journal) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Sink mirrors adapter lines into the transcript table.
type Sink struct {
	j         *Journal
	sessionID string
	onErr     func(error)
	failures  atomic.Int64
}

// NewSink creates a Sink for one adapter session. onErr, if non-nil, is
// called for every failed insert.
func (j *Journal) NewSink(sessionID string, onErr func(error)) *Sink {
	return &Sink{j: j, sessionID: sessionID, onErr: onErr}
}

// Line implements adapter.Mirror.
func (s *Sink) Line(dir adapter.Direction, line string) {
	if err := s.j.Record(context.Background(), s.sessionID, dir, line); err != nil {
		s.failures.Add(1)
		if s.onErr != nil {
			s.onErr(err)
		}
	}
}

// Failures returns how many lines could not be recorded.
func (s *Sink) Failures() int64 { return s.failures.Load() }
