// Package prefilter implements the client-side admission pre-filter: a
// fixed-window counter over durable per-device key-value storage. It rejects
// clearly excessive attempts without a network call and is advisory only; the
// server-side limiter remains authoritative.
package prefilter

import (
	"encoding/json"
	"log/slog"
	"time"

	"gatekeeper/internal/limits"
)

// keyPrefix namespaces per-action records in the key-value store.
const keyPrefix = "rate_limit_"

// KV is the durable key-value storage abstraction behind the pre-filter.
// Implementations need not be safe for concurrent use; the pre-filter runs
// single-threaded within one caller's session.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (value string, ok bool, err error)

	// Set stores the value under key, overwriting any previous value.
	Set(key, value string) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(key string) error
}

// record is the serialized per-action counter.
type record struct {
	Count       int   `json:"count"`
	WindowStart int64 `json:"windowStart"` // Unix milliseconds
}

// PreFilter is a fixed-window counter per action. A slot is consumed
// optimistically on every allowed check, before any server confirmation.
type PreFilter struct {
	store KV
	table *limits.Table
	now   func() time.Time
}

// Option configures optional PreFilter behavior.
type Option func(*PreFilter)

// WithClock overrides the time source, for tests that advance the window.
func WithClock(now func() time.Time) Option {
	return func(f *PreFilter) {
		f.now = now
	}
}

// New creates a pre-filter over the given store and quota table.
func New(store KV, table *limits.Table, opts ...Option) *PreFilter {
	f := &PreFilter{
		store: store,
		table: table,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Check evaluates one attempt for the action. If allowed, the stored count is
// incremented and persisted immediately. Storage failures and corrupt records
// fail open: the user is never blocked by a broken local store.
func (f *PreFilter) Check(action string) (allowed bool, remaining int) {
	cfg := f.table.Resolve(action)
	key := keyPrefix + action
	now := f.now().UnixMilli()

	rec, err := f.load(key, now)
	if err != nil {
		slog.Debug("pre-filter storage unavailable, failing open", "action", action, "error", err)
		return true, 1
	}

	// Fixed-window reset, not sliding
	if now-rec.WindowStart > cfg.Window.Milliseconds() {
		rec = record{Count: 0, WindowStart: now}
	}

	allowed = rec.Count < cfg.MaxRequests
	remaining = cfg.MaxRequests - rec.Count - 1
	if remaining < 0 {
		remaining = 0
	}

	if allowed {
		rec.Count++
		data, err := json.Marshal(rec)
		if err != nil {
			return true, 1
		}
		if err := f.store.Set(key, string(data)); err != nil {
			slog.Debug("pre-filter persist failed, failing open", "action", action, "error", err)
			return true, 1
		}
	}

	return allowed, remaining
}

// Reset clears the stored record for the action, re-opening its window.
func (f *PreFilter) Reset(action string) {
	if err := f.store.Delete(keyPrefix + action); err != nil {
		slog.Debug("pre-filter reset failed", "action", action, "error", err)
	}
}

// load reads and decodes the record for key, initializing a fresh window when
// the key is absent. A corrupt record is treated as an error by the caller.
func (f *PreFilter) load(key string, now int64) (record, error) {
	value, ok, err := f.store.Get(key)
	if err != nil {
		return record{}, err
	}
	if !ok {
		return record{Count: 0, WindowStart: now}, nil
	}

	var rec record
	if err := json.Unmarshal([]byte(value), &rec); err != nil {
		return record{}, err
	}
	return rec, nil
}
