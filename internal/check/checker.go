// Package check provides the single entry point application code calls
// before performing a rate-limited action. It merges the local pre-filter
// with the authoritative server limiter: the pre-filter always runs first and
// short-circuits on denial; only critical actions invoke the server, whose
// decision then fully overrides the caller-visible state. Server failures are
// logged and fail open.
package check

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gatekeeper/internal/limits"
	"gatekeeper/internal/prefilter"
	"gatekeeper/internal/ratelimit"
)

// DefaultTimeout bounds the server round-trip when the caller's context
// carries no earlier deadline.
const DefaultTimeout = 5 * time.Second

// ServerChecker invokes the authoritative server-side limiter.
type ServerChecker interface {
	Check(ctx context.Context, action, clientIP, userID string) (ratelimit.Decision, error)
}

// Result is the merged caller-visible outcome of a check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Limit     int
}

// Checker runs the pre-filter and, for critical actions, the server check.
type Checker struct {
	prefilter *prefilter.PreFilter
	table     *limits.Table
	server    ServerChecker
	critical  map[string]struct{}
	timeout   time.Duration
}

// Option configures optional Checker behavior.
type Option func(*Checker)

// WithTimeout overrides the default server round-trip timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		c.timeout = d
	}
}

// WithCriticalActions replaces the default critical-action allow-list.
func WithCriticalActions(actions ...string) Option {
	return func(c *Checker) {
		c.critical = make(map[string]struct{}, len(actions))
		for _, a := range actions {
			c.critical[a] = struct{}{}
		}
	}
}

// New creates a checker. The client quota table is used both by the
// pre-filter and to populate the provisional limit fields when the server is
// not consulted. server may be nil, in which case all actions rely on the
// pre-filter alone.
func New(pf *prefilter.PreFilter, table *limits.Table, server ServerChecker, opts ...Option) *Checker {
	c := &Checker{
		prefilter: pf,
		table:     table,
		server:    server,
		critical: map[string]struct{}{
			"submit_order":         {},
			"contact_form":         {},
			"newsletter_subscribe": {},
			"password_reset":       {},
		},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check evaluates one attempt for the action. A fresh check always starts
// from scratch; no state carries over between calls beyond the stored
// counters themselves.
func (c *Checker) Check(ctx context.Context, action string) Result {
	cfg := c.table.Resolve(action)

	allowed, remaining := c.prefilter.Check(action)
	if !allowed {
		return Result{
			Allowed:   false,
			Remaining: 0,
			ResetIn:   cfg.Window,
			Limit:     cfg.MaxRequests,
		}
	}

	// The pre-filter numbers are provisional; only critical actions pay for
	// the network round-trip to the authoritative limiter.
	if _, isCritical := c.critical[action]; !isCritical || c.server == nil {
		return Result{
			Allowed:   true,
			Remaining: remaining,
			ResetIn:   cfg.Window,
			Limit:     cfg.MaxRequests,
		}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	decision, err := c.server.Check(ctx, action, "", "")
	if err != nil {
		slog.Error("server rate limit check failed, failing open", "action", action, "error", err)
		return Result{
			Allowed:   true,
			Remaining: remaining,
			ResetIn:   cfg.Window,
			Limit:     cfg.MaxRequests,
		}
	}

	// Server decision overrides the provisional client state entirely.
	return Result{
		Allowed:   decision.Allowed,
		Remaining: decision.Remaining,
		ResetIn:   decision.ResetIn,
		Limit:     decision.Limit,
	}
}

// Reset clears the local pre-filter record for the action.
func (c *Checker) Reset(action string) {
	c.prefilter.Reset(action)
}

// CooldownMessage renders the denial message shown to end users.
func CooldownMessage(resetIn time.Duration) string {
	minutes := int(math.Ceil(resetIn.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Too many requests. Please try again in %d minutes.", minutes)
}
