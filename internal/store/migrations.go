package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for the trace tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS cycles (
		id               TEXT PRIMARY KEY,
		session_id       TEXT NOT NULL,
		kind             TEXT NOT NULL,
		state            TEXT NOT NULL DEFAULT 'IDLE',
		started_at       TEXT NOT NULL,
		started_unix_ns  INTEGER NOT NULL,
		duration_ns      INTEGER NOT NULL DEFAULT 0,
		interval_ns      INTEGER NOT NULL DEFAULT 0,
		rate_limited     INTEGER NOT NULL DEFAULT 0,
		renderables      INTEGER NOT NULL DEFAULT 0,
		visited          INTEGER NOT NULL DEFAULT 0,
		budget_exhausted INTEGER NOT NULL DEFAULT 0,
		idle_scheduled   INTEGER NOT NULL DEFAULT 0,
		throttled        INTEGER NOT NULL DEFAULT 0,
		jobs_stepped     INTEGER NOT NULL DEFAULT 0,
		more_work        INTEGER NOT NULL DEFAULT 0,
		jobs_remaining   INTEGER NOT NULL DEFAULT 0,
		error            TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE INDEX IF NOT EXISTS idx_cycles_started ON cycles(started_unix_ns)`,
	`CREATE INDEX IF NOT EXISTS idx_cycles_session_kind ON cycles(session_id, kind)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
