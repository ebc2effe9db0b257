// Package history persists per-session processing runs in SQLite so operators
// can audit which sessions were prepared, when, and with what outcome. The
// database is an operational record, not a source of truth: manifests remain
// the durable artifact.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; stale databases are rejected rather than migrated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("history schema version mismatch")

// Status records the outcome of a processing run.
type Status string

const (
	// StatusStarted marks a run that is still in flight.
	StatusStarted Status = "started"
	// StatusCompleted marks a run whose manifest was written.
	StatusCompleted Status = "completed"
	// StatusFailed marks a run aborted by an I/O or timing failure.
	StatusFailed Status = "failed"
	// StatusRejected marks a run aborted by validation or configuration.
	StatusRejected Status = "rejected"
)

// Run is one processing attempt for a session.
type Run struct {
	ID           int64
	RunID        string
	SessionID    string
	SubjectID    string
	Project      string
	Status       Status
	ManifestPath string
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at dbPath and verifies
// the schema version.
func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("history: database path must be set")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the location of the database file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Begin records the start of a processing run and returns its row id.
func (s *Store) Begin(ctx context.Context, runID, sessionID string) (int64, error) {
	if strings.TrimSpace(runID) == "" {
		return 0, errors.New("history: run id must be set")
	}
	if strings.TrimSpace(sessionID) == "" {
		return 0, errors.New("history: session id must be set")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, session_id, status, started_at) VALUES (?, ?, ?, ?)`,
		runID, sessionID, StatusStarted, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Finish records the terminal state of a run.
func (s *Store) Finish(ctx context.Context, id int64, status Status, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, subject_id = ?, project = ?, manifest_path = ?, error = ?, finished_at = ?
		 WHERE id = ?`,
		status, run.SubjectID, run.Project, run.ManifestPath, run.Error,
		time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("finish run %d: %w", id, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. A limit <= 0 returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, run_id, session_id, subject_id, project, status, manifest_path, error, started_at, finished_at
		FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			status     string
			startedAt  string
			finishedAt sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.RunID, &run.SessionID, &run.SubjectID, &run.Project,
			&status, &run.ManifestPath, &run.Error, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = Status(status)
		if ts, parseErr := time.Parse(time.RFC3339Nano, startedAt); parseErr == nil {
			run.StartedAt = ts
		}
		if finishedAt.Valid {
			if ts, parseErr := time.Parse(time.RFC3339Nano, finishedAt.String); parseErr == nil {
				run.FinishedAt = ts
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
