package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"gatekeeper/internal/storage"
)

// Janitor periodically purges attempt rows older than the retention period.
// Counting already excludes old rows via the timestamp filter, so the janitor
// is purely about keeping the log from growing without bound. Purge failures
// are logged and otherwise ignored.
type Janitor struct {
	store    storage.AttemptStore
	interval time.Duration
	keepFor  time.Duration
	done     chan struct{}
}

// NewJanitor creates a retention janitor. keepFor must be at least as long as
// the largest configured window, or counts would lose rows that are still
// inside a quota window.
func NewJanitor(store storage.AttemptStore, interval, keepFor time.Duration) *Janitor {
	return &Janitor{
		store:    store,
		interval: interval,
		keepFor:  keepFor,
		done:     make(chan struct{}),
	}
}

// Start runs the purge loop until Stop is called. It blocks and is meant to
// run in its own goroutine.
func (j *Janitor) Start() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.purge()
		}
	}
}

// Stop terminates the purge loop.
func (j *Janitor) Stop() {
	select {
	case <-j.done:
	default:
		close(j.done)
	}
}

func (j *Janitor) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-j.keepFor)
	purged, err := j.store.PurgeBefore(ctx, cutoff)
	if err != nil {
		slog.Error("attempt log purge failed", "error", err)
		return
	}
	if purged > 0 {
		slog.Info("purged expired attempts", "count", purged, "cutoff", cutoff)
	}
}
