package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"socket/internal/notary"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; existing journals with another version are rejected.
const schemaVersion = 1

// ErrSchemaMismatch indicates the journal schema doesn't match this build.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Entry is one recorded notarization session.
type Entry struct {
	ID        int64
	RequestID string
	BundleID  string
	Archive   string
	Status    string
	Attempts  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists notarization sessions in a local SQLite database. Every
// write is best-effort from the pipeline's point of view: journal failures
// are logged by the caller and never fail a run.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
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

	store := &Store{db: db, path: path}
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

// Path returns the database file location.
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
		if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: journal has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// Record upserts a session keyed by request id. Sessions without an
// identifier (submission never produced one) are inserted as new rows.
func (s *Store) Record(ctx context.Context, session notary.Session) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	if session.RequestID != "" {
		res, err := s.db.ExecContext(ctx,
			`UPDATE notary_sessions SET status = ?, attempts = ?, updated_at = ? WHERE request_id = ?`,
			string(session.Status), session.Attempts, now, session.RequestID,
		)
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected > 0 {
			return nil
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notary_sessions (request_id, bundle_id, archive, status, attempts, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.RequestID, session.BundleID, session.Archive,
		string(session.Status), session.Attempts, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// List returns the most recent sessions, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, bundle_id, archive, status, attempts, created_at, updated_at
         FROM notary_sessions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var created, updated string
		if err := rows.Scan(&entry.ID, &entry.RequestID, &entry.BundleID, &entry.Archive,
			&entry.Status, &entry.Attempts, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		entry.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		entry.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
