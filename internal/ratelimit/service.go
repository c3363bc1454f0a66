package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"gatekeeper/internal/limits"
	"gatekeeper/internal/models"
	"gatekeeper/internal/storage"
)

// Service is the authoritative server-side limiter. It is stateless: every
// check is a count over the shared attempt log for the trailing window,
// followed by an append when the request is admitted. Denied requests leave
// no trace and consume no quota.
//
// The count-then-append sequence is deliberately non-atomic. Two requests in
// flight at the window boundary can both be admitted, so over-admission is
// bounded by the number of concurrent callers. Strict enforcement was traded
// for availability, consistent with the fail-open policy below.
type Service struct {
	store storage.AttemptStore
	table *limits.Table
	now   func() time.Time
}

// ServiceOption configures optional Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source, for tests that advance the window.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates an authoritative limiter over the given attempt store
// and quota table.
func NewService(store storage.AttemptStore, table *limits.Table, opts ...ServiceOption) *Service {
	s := &Service{
		store: store,
		table: table,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check evaluates and records one attempt for the action and caller identity.
// Storage errors are converted to an allow decision here and never propagate:
// a down rate limiter must not take down the action it guards.
func (s *Service) Check(ctx context.Context, action, clientIP, userID string) Decision {
	cfg := s.table.Resolve(action)
	identity := models.ClientIdentity(clientIP, userID)
	identifier := models.Identifier(action, identity)

	now := s.now()
	windowStart := now.Add(-cfg.Window)

	count, err := s.store.CountSince(ctx, identifier, windowStart)
	if err != nil {
		slog.Error("rate limit count failed, failing open",
			"action", action,
			"identifier", identifier,
			"error", err)
		return s.failOpen(cfg)
	}

	allowed := count < cfg.MaxRequests
	remaining := cfg.MaxRequests - count - 1
	if remaining < 0 {
		remaining = 0
	}

	if allowed {
		attempt := models.NewAttempt(action, clientIP, userID, now)
		if err := s.store.Append(ctx, attempt); err != nil {
			// The caller was already admitted; a lost row only loosens
			// future counts, so log and continue.
			slog.Error("rate limit append failed",
				"action", action,
				"identifier", identifier,
				"error", err)
		}
	} else {
		slog.Warn("rate limit exceeded",
			"action", action,
			"identifier", identifier,
			"limit", cfg.MaxRequests)
	}

	return Decision{
		Allowed:   allowed,
		Remaining: remaining,
		ResetIn:   cfg.Window,
		Limit:     cfg.MaxRequests,
	}
}

// failOpen builds the allow-everything decision used when storage is
// unreachable.
func (s *Service) failOpen(cfg limits.Config) Decision {
	return Decision{
		Allowed:   true,
		Remaining: cfg.MaxRequests,
		ResetIn:   cfg.Window,
		Limit:     cfg.MaxRequests,
	}
}
