package storage

import (
	"context"
	"fmt"
	"time"

	"gatekeeper/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS attempts (
	id UUID PRIMARY KEY,
	identifier TEXT NOT NULL,
	action TEXT NOT NULL,
	client_ip TEXT,
	user_id TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_attempts_identifier_created
	ON attempts (identifier, created_at);
`

// PostgresStore implements AttemptStore using PostgreSQL with a pgx
// connection pool. This is the recommended production backend when the log is
// shared by multiple service instances.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL attempt store and ensures the
// schema exists.
func NewPostgresStore(config Config) (*PostgresStore, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for PostgreSQL storage")
	}

	pool, err := pgxpool.New(context.Background(), config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(context.Background(), postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// CountSince returns the number of attempts for the identifier at or after
// the given time.
func (p *PostgresStore) CountSince(ctx context.Context, identifier string, since time.Time) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE identifier = $1 AND created_at >= $2`,
		identifier, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count, nil
}

// Append records one accepted attempt.
func (p *PostgresStore) Append(ctx context.Context, attempt *models.Attempt) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO attempts (id, identifier, action, client_ip, user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		attempt.ID, attempt.Identifier, attempt.Action,
		attempt.ClientIP, attempt.UserID, attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append attempt: %w", err)
	}
	return nil
}

// PurgeBefore deletes attempts older than the cutoff.
func (p *PostgresStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM attempts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge attempts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping verifies the database is reachable.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
