package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"gatekeeper/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getPostgresDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

func newPostgresTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := getPostgresDSN(t)
	s, err := NewPostgresStore(Config{ConnectionString: dsn})
	require.NoError(t, err, "failed to create postgres store")
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewPostgresStore_EmptyConnectionString(t *testing.T) {
	_, err := NewPostgresStore(Config{ConnectionString: ""})
	assert.Error(t, err)
}

func TestPostgresStore_AppendAndCount(t *testing.T) {
	s := newPostgresTestStore(t)
	ctx := context.Background()
	now := time.Now()

	// Unique identifier per run so tests don't interfere with leftover rows.
	identity := fmt.Sprintf("pgtest-%d", now.UnixNano())

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Append(ctx, models.NewAttempt("submit_order", identity, "", now)))
	}

	count, err := s.CountSince(ctx, "submit_order:"+identity, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPostgresStore_WindowFilter(t *testing.T) {
	s := newPostgresTestStore(t)
	ctx := context.Background()
	now := time.Now()

	identity := fmt.Sprintf("pgtest-window-%d", now.UnixNano())

	inside := models.NewAttempt("contact_form", identity, "", now.Add(-10*time.Minute))
	outside := models.NewAttempt("contact_form", identity, "", now.Add(-2*time.Hour))
	require.NoError(t, s.Append(ctx, inside))
	require.NoError(t, s.Append(ctx, outside))

	count, err := s.CountSince(ctx, "contact_form:"+identity, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPostgresStore_PurgeBefore(t *testing.T) {
	s := newPostgresTestStore(t)
	ctx := context.Background()
	now := time.Now()

	identity := fmt.Sprintf("pgtest-purge-%d", now.UnixNano())

	old := models.NewAttempt("submit_order", identity, "", now.Add(-100*time.Hour))
	require.NoError(t, s.Append(ctx, old))

	purged, err := s.PurgeBefore(ctx, now.Add(-48*time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, purged, int64(1))

	count, err := s.CountSince(ctx, "submit_order:"+identity, now.Add(-200*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestPostgresStore_Ping(t *testing.T) {
	s := newPostgresTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
