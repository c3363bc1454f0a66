package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gatekeeper/internal/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS attempts (
	id TEXT PRIMARY KEY,
	identifier TEXT NOT NULL,
	action TEXT NOT NULL,
	client_ip TEXT,
	user_id TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attempts_identifier_created
	ON attempts (identifier, created_at);
`

// SQLiteStore implements AttemptStore using a local SQLite database via the
// pure-Go modernc.org/sqlite driver. Timestamps are stored as Unix
// milliseconds so the window filter is a plain integer comparison.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite attempt store and ensures the schema
// exists.
func NewSQLiteStore(config Config) (*SQLiteStore, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for SQLite storage")
	}

	db, err := sql.Open("sqlite", config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// CountSince returns the number of attempts for the identifier at or after
// the given time.
func (s *SQLiteStore) CountSince(ctx context.Context, identifier string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attempts WHERE identifier = ? AND created_at >= ?`,
		identifier, since.UnixMilli(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count, nil
}

// Append records one accepted attempt.
func (s *SQLiteStore) Append(ctx context.Context, attempt *models.Attempt) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (id, identifier, action, client_ip, user_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		attempt.ID, attempt.Identifier, attempt.Action,
		attempt.ClientIP, attempt.UserID, attempt.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to append attempt: %w", err)
	}
	return nil
}

// PurgeBefore deletes attempts older than the cutoff.
func (s *SQLiteStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM attempts WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge attempts: %w", err)
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read purge count: %w", err)
	}
	return purged, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
