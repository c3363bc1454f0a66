package storage

import (
	"context"
	"time"

	"gatekeeper/internal/models"
)

// AttemptStore is the durable, shared, append-only attempt log behind the
// authoritative limiter. Implementations must be safe for concurrent use from
// many independent callers; throughput scales by keying on identifier, not by
// global locks.
//
// The limiter performs a non-atomic count-then-append sequence, so two
// concurrent checks against the same identifier can both be admitted at the
// window boundary. That bounded over-admission is tolerated; implementations
// must never under-count.
type AttemptStore interface {
	// CountSince returns the number of attempts recorded for the identifier
	// with CreatedAt at or after the given time.
	CountSince(ctx context.Context, identifier string, since time.Time) (int, error)

	// Append records one accepted attempt. Rows are never mutated or
	// individually deleted.
	Append(ctx context.Context, attempt *models.Attempt) error

	// PurgeBefore deletes rows older than the cutoff and reports how many
	// were removed. Used only by the retention janitor; counting already
	// excludes old rows via the timestamp filter.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection or resources.
	Close() error
}

// Config holds configuration for attempt store backends.
type Config struct {
	// Type specifies the backend (memory, sqlite, postgres, redis).
	Type string

	// ConnectionString is the DSN or file path for database backends.
	ConnectionString string

	// RedisAddr, RedisPassword, RedisDB and RedisPoolSize configure the
	// redis backend.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
}
