package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
)

const schemaSQL = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;

CREATE TABLE IF NOT EXISTS batch_executions (
    id TEXT PRIMARY KEY,
    batch_id TEXT NOT NULL,
    name TEXT NOT NULL,
    status TEXT NOT NULL,
    totaltestcases INTEGER NOT NULL DEFAULT 0,
    completedtestcases INTEGER NOT NULL DEFAULT 0,
    passedtestcases INTEGER NOT NULL DEFAULT 0,
    start_time INTEGER NOT NULL,
    end_time INTEGER DEFAULT 0,
    error TEXT
);

CREATE TABLE IF NOT EXISTS case_executions (
    id TEXT PRIMARY KEY,
    batch_execution_id TEXT NOT NULL,
    case_id TEXT NOT NULL,
    name TEXT NOT NULL,
    status TEXT NOT NULL,
    start_time INTEGER NOT NULL,
    end_time INTEGER DEFAULT 0,
    not_run INTEGER DEFAULT 0,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_case_executions_batch ON case_executions(batch_execution_id);

CREATE TABLE IF NOT EXISTS step_results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    execution_id TEXT NOT NULL,
    step_order INTEGER NOT NULL,
    element_identifier_type TEXT NOT NULL,
    actual_id TEXT NOT NULL,
    action TEXT NOT NULL,
    success INTEGER NOT NULL,
    duration REAL NOT NULL,
    error TEXT,
    text TEXT,
    displayed INTEGER,
    actual_screenshot TEXT,
    start_time INTEGER NOT NULL,
    end_time INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    UNIQUE(execution_id, step_order)
);
`

// SQLiteStore is a ResultStore backed by a SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string

	stmtSaveBatch  *sql.Stmt
	stmtSaveCase   *sql.Stmt
	stmtUpsertStep *sql.Stmt
}

// OpenSQLite opens (creating if needed) the database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, dbPath: dbPath}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.stmtSaveBatch, err = s.db.Prepare(`
		INSERT INTO batch_executions (id, batch_id, name, status, totaltestcases,
			completedtestcases, passedtestcases, start_time, end_time, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			totaltestcases = excluded.totaltestcases,
			completedtestcases = excluded.completedtestcases,
			passedtestcases = excluded.passedtestcases,
			end_time = excluded.end_time,
			error = excluded.error
	`)
	if err != nil {
		return err
	}

	s.stmtSaveCase, err = s.db.Prepare(`
		INSERT INTO case_executions (id, batch_execution_id, case_id, name, status,
			start_time, end_time, not_run, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			end_time = excluded.end_time,
			not_run = excluded.not_run,
			error = excluded.error
	`)
	if err != nil {
		return err
	}

	s.stmtUpsertStep, err = s.db.Prepare(`
		INSERT INTO step_results (execution_id, step_order, element_identifier_type, actual_id,
			action, success, duration, error, text, displayed, actual_screenshot,
			start_time, end_time, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(execution_id, step_order) DO UPDATE SET
			element_identifier_type = excluded.element_identifier_type,
			actual_id = excluded.actual_id,
			action = excluded.action,
			success = excluded.success,
			duration = excluded.duration,
			error = excluded.error,
			text = excluded.text,
			displayed = excluded.displayed,
			actual_screenshot = excluded.actual_screenshot,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			updated_at = excluded.updated_at
	`)
	return err
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Close closes the prepared statements and the database.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.stmtSaveBatch, s.stmtSaveCase, s.stmtUpsertStep} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

// SaveBatch inserts or updates the batch row and its counters.
func (s *SQLiteStore) SaveBatch(ctx context.Context, b *core.BatchExecution) error {
	_, err := s.stmtSaveBatch.ExecContext(ctx,
		b.ID, b.BatchID, b.Name, string(b.Status),
		b.Total, b.Completed, b.Passed,
		unixMilli(b.StartTime), unixMilli(b.EndTime), nullString(b.Error))
	if err != nil {
		return fmt.Errorf("save batch %s: %w", b.ID, err)
	}
	return nil
}

// SaveCase inserts or updates a case execution row. Step results are
// written separately through UpsertStepResult.
func (s *SQLiteStore) SaveCase(ctx context.Context, batchExecutionID string, c *core.CaseExecution) error {
	_, err := s.stmtSaveCase.ExecContext(ctx,
		c.ID, batchExecutionID, c.CaseID, c.Name, string(c.Status),
		unixMilli(c.StartTime), unixMilli(c.EndTime), c.NotRun, nullString(c.Error))
	if err != nil {
		return fmt.Errorf("save case %s: %w", c.CaseID, err)
	}
	return nil
}

// UpsertStepResult writes r keyed by (executionID, step order).
func (s *SQLiteStore) UpsertStepResult(ctx context.Context, executionID string, r core.StepResult) error {
	d := r.Descriptor()
	var displayed sql.NullBool
	if d.Displayed != nil {
		displayed = sql.NullBool{Bool: *d.Displayed, Valid: true}
	}
	var text sql.NullString
	if d.Text != nil {
		text = sql.NullString{String: *d.Text, Valid: true}
	}
	var errMsg sql.NullString
	if d.Error != nil {
		errMsg = sql.NullString{String: *d.Error, Valid: true}
	}

	_, err := s.stmtUpsertStep.ExecContext(ctx,
		executionID, r.Step.Order, r.Step.Strategy, d.ActualID, r.Step.Action,
		boolToInt(d.Success), d.Duration, errMsg, text, displayed,
		nullString(screenshotPath(r)),
		unixMilli(r.StartTime), unixMilli(r.EndTime), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert step %d of %s: %w", r.Step.Order, executionID, err)
	}
	return nil
}

// StepResults returns the stored results of one case execution in step order.
func (s *SQLiteStore) StepResults(ctx context.Context, executionID string) ([]StoredStep, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT execution_id, step_order, element_identifier_type, actual_id, action,
			success, duration, error, text, displayed, actual_screenshot,
			start_time, end_time, updated_at
		FROM step_results WHERE execution_id = ? ORDER BY step_order
	`, executionID)
	if err != nil {
		return nil, fmt.Errorf("query step results: %w", err)
	}
	defer rows.Close()

	var out []StoredStep
	for rows.Next() {
		var (
			st                      StoredStep
			success                 int
			errMsg, text, shot      sql.NullString
			displayed               sql.NullBool
			start, end, updatedAtMs int64
		)
		if err := rows.Scan(&st.ExecutionID, &st.StepOrder, &st.Strategy, &st.Result.ActualID, &st.Action,
			&success, &st.Result.Duration, &errMsg, &text, &displayed, &shot,
			&start, &end, &updatedAtMs); err != nil {
			return nil, fmt.Errorf("scan step result: %w", err)
		}
		st.Result.Success = success != 0
		if errMsg.Valid {
			st.Result.Error = &errMsg.String
		}
		if text.Valid {
			st.Result.Text = &text.String
		}
		if displayed.Valid {
			st.Result.Displayed = &displayed.Bool
		}
		st.Screenshot = shot.String
		st.StartTime = time.UnixMilli(start)
		st.EndTime = time.UnixMilli(end)
		st.UpdatedAt = time.UnixMilli(updatedAtMs)
		out = append(out, st)
	}
	return out, rows.Err()
}

// CaseStatus returns the stored status of a case execution.
func (s *SQLiteStore) CaseStatus(ctx context.Context, executionID string) (core.CaseStatus, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM case_executions WHERE id = ?`, executionID).Scan(&status)
	if err != nil {
		return "", err
	}
	return core.CaseStatus(status), nil
}

// BatchCounters returns the stored counters of a batch execution.
func (s *SQLiteStore) BatchCounters(ctx context.Context, id string) (total, completed, passed int, status core.BatchStatus, err error) {
	var st string
	err = s.db.QueryRowContext(ctx, `
		SELECT totaltestcases, completedtestcases, passedtestcases, status
		FROM batch_executions WHERE id = ?
	`, id).Scan(&total, &completed, &passed, &st)
	return total, completed, passed, core.BatchStatus(st), err
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
