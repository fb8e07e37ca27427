package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"fzserpent/internal/core"
)

// SQLiteStore keeps an optional history of calculator invocations outside
// the working directory. The invoker itself never depends on it being
// present; the fz framework's own bookkeeping is authoritative.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	ddl := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS invocations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			invocation_id TEXT NOT NULL UNIQUE,
			input_file TEXT NOT NULL,
			work_dir TEXT NOT NULL,
			backend TEXT NOT NULL,
			extra_args_json TEXT,
			status TEXT NOT NULL,
			exit_code INTEGER,
			log_path TEXT,
			result_file TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			duration_ms INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_invocations_started_at ON invocations(started_at);`,
	}

	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) CreateInvocation(ctx context.Context, rec core.InvocationRecord) error {
	extraJSON, err := json.Marshal(rec.ExtraArgs)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invocations (invocation_id, input_file, work_dir, backend, extra_args_json, status, log_path, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.InvocationID,
		rec.InputFile,
		rec.WorkDir,
		rec.Backend,
		string(extraJSON),
		rec.Status,
		rec.LogPath,
		rec.StartedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *SQLiteStore) FinishInvocation(ctx context.Context, invocationID string, status string, exitCode int, resultFile string, durationMs int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE invocations
		SET status = ?, exit_code = ?, result_file = ?, duration_ms = ?, finished_at = ?
		WHERE invocation_id = ?`,
		status,
		exitCode,
		resultFile,
		durationMs,
		time.Now().UTC().Format(time.RFC3339),
		invocationID,
	)
	return err
}

func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]core.InvocationRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT invocation_id, input_file, work_dir, backend, extra_args_json, status,
		       exit_code, log_path, result_file, started_at, finished_at, duration_ms
		FROM invocations
		ORDER BY started_at DESC, id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]core.InvocationRecord, 0, limit)
	for rows.Next() {
		var (
			rec        core.InvocationRecord
			extraJSON  sql.NullString
			exitCode   sql.NullInt64
			logPath    sql.NullString
			resultFile sql.NullString
			startedAt  string
			finishedAt sql.NullString
			durationMs sql.NullInt64
		)
		if err := rows.Scan(
			&rec.InvocationID,
			&rec.InputFile,
			&rec.WorkDir,
			&rec.Backend,
			&extraJSON,
			&rec.Status,
			&exitCode,
			&logPath,
			&resultFile,
			&startedAt,
			&finishedAt,
			&durationMs,
		); err != nil {
			return nil, err
		}

		if extraJSON.Valid && extraJSON.String != "" {
			if err := json.Unmarshal([]byte(extraJSON.String), &rec.ExtraArgs); err != nil {
				return nil, fmt.Errorf("decode extra args for %s: %w", rec.InvocationID, err)
			}
		}
		if exitCode.Valid {
			rec.ExitCode = int(exitCode.Int64)
		}
		rec.LogPath = logPath.String
		rec.ResultFile = resultFile.String
		rec.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if finishedAt.Valid {
			rec.FinishedAt, _ = time.Parse(time.RFC3339, finishedAt.String)
		}
		if durationMs.Valid {
			rec.DurationMs = durationMs.Int64
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}
