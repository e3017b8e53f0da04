package journal

// SchemaDDL creates every journal table. Statements are idempotent.
const SchemaDDL = `
CREATE TABLE IF NOT EXISTS transcript (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	direction  TEXT NOT NULL CHECK (direction IN ('in', 'out', 'err')),
	line       TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_transcript_session ON transcript(session_id, id);

CREATE TABLE IF NOT EXISTS suite_results (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL,
	test_id    TEXT NOT NULL,
	suite      TEXT NOT NULL,
	fen        TEXT NOT NULL,
	expected   TEXT NOT NULL,
	got        TEXT NOT NULL DEFAULT '',
	ok         INTEGER NOT NULL,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_suite_results_run ON suite_results(run_id);

CREATE TABLE IF NOT EXISTS reliability_failures (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL,
	kind       TEXT NOT NULL CHECK (kind IN ('failed_move', 'timeout')),
	fen        TEXT NOT NULL,
	value      TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_reliability_failures_run ON reliability_failures(run_id);
`
