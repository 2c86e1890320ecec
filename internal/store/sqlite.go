package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/me/timingbelt/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// Each connection to ":memory:" is its own database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// WAL lets the HTTP readers run while the recorder writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma synchronous: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

const insertCycleSQL = `INSERT INTO cycles (id, session_id, kind, state, started_at, started_unix_ns,
		duration_ns, interval_ns, rate_limited, renderables, visited, budget_exhausted, idle_scheduled,
		throttled, jobs_stepped, more_work, jobs_remaining, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectCycleSQL = `SELECT id, session_id, kind, state, started_at, duration_ns, interval_ns,
		rate_limited, renderables, visited, budget_exhausted, idle_scheduled, throttled,
		jobs_stepped, more_work, jobs_remaining, error
	FROM cycles`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertCycle(ctx context.Context, db execer, tr *model.CycleTrace) error {
	if tr.ID == "" {
		return fmt.Errorf("insert cycle: missing id")
	}
	_, err := db.ExecContext(ctx, insertCycleSQL,
		tr.ID, tr.SessionID, string(tr.Kind), string(tr.State),
		tr.StartedAt.UTC().Format(time.RFC3339Nano), tr.StartedAt.UnixNano(),
		int64(tr.Duration), int64(tr.Interval),
		tr.RateLimited, tr.Renderables, tr.Visited, tr.BudgetExhausted, tr.IdleScheduled,
		tr.Throttled, tr.JobsStepped, tr.MoreWork, tr.JobsRemaining, tr.Error,
	)
	return err
}

// RecordCycle stores one trace.
func (s *SQLiteStore) RecordCycle(ctx context.Context, tr *model.CycleTrace) error {
	s.logger.Debug("sql", "op", "insert", "table", "cycles", "id", tr.ID)
	return insertCycle(ctx, s.db, tr)
}

// RecordCycles stores a batch of traces in one transaction.
func (s *SQLiteStore) RecordCycles(ctx context.Context, trs []model.CycleTrace) error {
	if len(trs) == 0 {
		return nil
	}
	s.logger.Debug("sql", "op", "insert_batch", "table", "cycles", "count", len(trs))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for i := range trs {
		if err := insertCycle(ctx, tx, &trs[i]); err != nil {
			return fmt.Errorf("insert cycle %s: %w", trs[i].ID, err)
		}
	}
	return tx.Commit()
}

// GetCycle returns the trace with the given id, or nil if there is none.
func (s *SQLiteStore) GetCycle(ctx context.Context, id string) (*model.CycleTrace, error) {
	s.logger.Debug("sql", "op", "select", "table", "cycles", "id", id)

	tr, err := scanCycle(s.db.QueryRowContext(ctx, selectCycleSQL+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return tr, err
}

// ListCycles returns traces newest first, filtered by kind and session.
func (s *SQLiteStore) ListCycles(ctx context.Context, opts model.ListOptions) ([]*model.CycleTrace, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "cycles", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	var whereClauses []string
	var countArgs []any

	if opts.Kind != "" {
		whereClauses = append(whereClauses, "kind = ?")
		countArgs = append(countArgs, string(opts.Kind))
	}
	if opts.Session != "" {
		whereClauses = append(whereClauses, "session_id = ?")
		countArgs = append(countArgs, opts.Session)
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cycles`+whereSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := selectCycleSQL + whereSQL + ` ORDER BY started_unix_ns DESC, id DESC LIMIT ? OFFSET ?`
	listArgs := append(countArgs, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var cycles []*model.CycleTrace
	for rows.Next() {
		tr, err := scanCycle(rows)
		if err != nil {
			return nil, 0, err
		}
		cycles = append(cycles, tr)
	}
	return cycles, total, rows.Err()
}

// DeleteCyclesBefore removes traces that started before the cutoff.
func (s *SQLiteStore) DeleteCyclesBefore(ctx context.Context, before time.Time) (int64, error) {
	s.logger.Debug("sql", "op", "delete_before", "table", "cycles", "before", before)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM cycles WHERE started_unix_ns < ?`, before.UnixNano())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCycle(row scanner) (*model.CycleTrace, error) {
	var tr model.CycleTrace
	var kind, state, startedAt string
	var duration, interval int64

	if err := row.Scan(&tr.ID, &tr.SessionID, &kind, &state, &startedAt, &duration, &interval,
		&tr.RateLimited, &tr.Renderables, &tr.Visited, &tr.BudgetExhausted, &tr.IdleScheduled,
		&tr.Throttled, &tr.JobsStepped, &tr.MoreWork, &tr.JobsRemaining, &tr.Error); err != nil {
		return nil, err
	}

	tr.Kind = model.CycleKind(kind)
	tr.State = model.BeltState(state)
	tr.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	tr.Duration = time.Duration(duration)
	tr.Interval = time.Duration(interval)
	return &tr, nil
}
