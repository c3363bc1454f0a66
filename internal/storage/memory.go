package storage

import (
	"context"
	"sync"
	"time"

	"gatekeeper/internal/models"
)

// MemoryStore implements AttemptStore using in-memory data structures.
// It is intended for development and testing; data is lost on restart, which
// makes it unsuitable as the authoritative log in production.
type MemoryStore struct {
	mu       sync.RWMutex
	attempts map[string][]*models.Attempt // key: identifier
}

// NewMemoryStore creates a new memory-based attempt store.
func NewMemoryStore(config Config) (*MemoryStore, error) {
	return &MemoryStore{
		attempts: make(map[string][]*models.Attempt),
	}, nil
}

// CountSince returns the number of attempts for the identifier at or after
// the given time.
func (m *MemoryStore) CountSince(ctx context.Context, identifier string, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, attempt := range m.attempts[identifier] {
		if !attempt.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// Append records one accepted attempt.
func (m *MemoryStore) Append(ctx context.Context, attempt *models.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Store a copy to prevent external modification
	attemptCopy := *attempt
	m.attempts[attempt.Identifier] = append(m.attempts[attempt.Identifier], &attemptCopy)
	return nil
}

// PurgeBefore deletes attempts older than the cutoff.
func (m *MemoryStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int64
	for identifier, attempts := range m.attempts {
		kept := attempts[:0]
		for _, attempt := range attempts {
			if attempt.CreatedAt.Before(cutoff) {
				purged++
				continue
			}
			kept = append(kept, attempt)
		}
		if len(kept) == 0 {
			delete(m.attempts, identifier)
			continue
		}
		m.attempts[identifier] = kept
	}
	return purged, nil
}

// Ping always succeeds for the memory store.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close releases resources (no-op for memory storage).
func (m *MemoryStore) Close() error {
	return nil
}
