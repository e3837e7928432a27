// Package history stores past scheduling runs in a local SQLite database so
// `pulsar history` can list and compare them: schema-on-open, WAL mode, a
// single connection. The engine package tree never imports database/sql.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/kestrelplan/pulsar/internal/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS schedule_runs (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    manifest_hash  TEXT NOT NULL,
    algorithm      TEXT NOT NULL,
    strategy       TEXT NOT NULL,
    rollout_count  INTEGER NOT NULL DEFAULT 0,
    created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS scheduled_tasks (
    run_id         INTEGER NOT NULL REFERENCES schedule_runs(id),
    task_id        TEXT NOT NULL,
    start_date     TEXT NOT NULL,
    end_date       TEXT NOT NULL,
    resources      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_scheduled_tasks_run ON scheduled_tasks(run_id);
`

// Store persists and retrieves past scheduling runs.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at dbPath, enables WAL mode,
// and creates the schema if it does not exist.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Run is one past scheduling run plus its scheduled-task records.
type Run struct {
	ID           int64
	ManifestHash string
	Algorithm    string
	Strategy     string
	RolloutCount int
	CreatedAt    time.Time
	Tasks        []RunTask
}

// RunTask is a single scheduled-task row belonging to a Run.
type RunTask struct {
	TaskID    string
	Start     string
	End       string
	Resources string
}

// Save records a completed engine run against the manifest's content hash,
// in a single transaction.
func (s *Store) Save(ctx context.Context, manifestHash string, result *engine.Result) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	res, err := tx.ExecContext(ctx,
		`INSERT INTO schedule_runs (manifest_hash, algorithm, strategy, rollout_count) VALUES (?, ?, ?, ?)`,
		manifestHash, string(result.Algorithm), string(result.Strategy), len(result.RolloutDecisions()))
	if err != nil {
		return 0, fmt.Errorf("history: insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history: last insert id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scheduled_tasks (run_id, task_id, start_date, end_date, resources) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("history: prepare task insert: %w", err)
	}
	defer stmt.Close()

	for _, st := range result.Schedule {
		if _, err := stmt.ExecContext(ctx, runID, st.TaskID, formatDate(st.Start), formatDate(st.End), joinResources(st.Resources)); err != nil {
			return 0, fmt.Errorf("history: insert scheduled task %q: %w", st.TaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("history: commit: %w", err)
	}
	return runID, nil
}

// List returns past runs, most recent first, without their task rows.
func (s *Store) List(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, manifest_hash, algorithm, strategy, rollout_count, created_at FROM schedule_runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var ts string
		if err := rows.Scan(&r.ID, &r.ManifestHash, &r.Algorithm, &r.Strategy, &r.RolloutCount, &ts); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		createdAt, err := parseTimestamp(ts)
		if err != nil {
			return nil, fmt.Errorf("history: parse run timestamp: %w", err)
		}
		r.CreatedAt = createdAt
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate runs: %w", err)
	}
	return out, nil
}

// Tasks returns every scheduled-task row for a run, ordered by task id.
func (s *Store) Tasks(ctx context.Context, runID int64) ([]RunTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, start_date, end_date, resources FROM scheduled_tasks WHERE run_id = ? ORDER BY task_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("history: tasks for run %d: %w", runID, err)
	}
	defer rows.Close()

	var out []RunTask
	for rows.Next() {
		var t RunTask
		if err := rows.Scan(&t.TaskID, &t.Start, &t.End, &t.Resources); err != nil {
			return nil, fmt.Errorf("history: scan scheduled task: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate scheduled tasks: %w", err)
	}
	return out, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func joinResources(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ","
		}
		out += n
	}
	return out
}

// timestampFormats lists the formats SQLite drivers may produce for
// CURRENT_TIMESTAMP. modernc.org/sqlite typically returns RFC 3339
// (with "T" separator and "Z" suffix), while canonical SQLite returns the
// space-separated DateTime format.
var timestampFormats = []string{
	time.RFC3339,
	time.DateTime,
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}
