package check

import (
	"context"
	"errors"
	"testing"
	"time"

	"gatekeeper/internal/limits"
	"gatekeeper/internal/prefilter"
	"gatekeeper/internal/ratelimit"

	"github.com/stretchr/testify/assert"
)

// fakeServer is a scripted ServerChecker.
type fakeServer struct {
	decision ratelimit.Decision
	err      error
	calls    int
	gotCtx   context.Context
}

func (f *fakeServer) Check(ctx context.Context, action, clientIP, userID string) (ratelimit.Decision, error) {
	f.calls++
	f.gotCtx = ctx
	return f.decision, f.err
}

func newTestChecker(server ServerChecker, opts ...Option) *Checker {
	table := limits.DefaultClientTable()
	pf := prefilter.New(prefilter.NewMemoryKV(), table)
	return New(pf, table, server, opts...)
}

func TestChecker_PreFilterDenialShortCircuits(t *testing.T) {
	server := &fakeServer{decision: ratelimit.Decision{Allowed: true, Remaining: 4, Limit: 5}}
	checker := newTestChecker(server)
	ctx := context.Background()

	// Exhaust the local submit_order window; server answers allow throughout.
	for i := 0; i < 5; i++ {
		result := checker.Check(ctx, "submit_order")
		assert.True(t, result.Allowed)
	}
	assert.Equal(t, 5, server.calls)

	result := checker.Check(ctx, "submit_order")
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.Equal(t, time.Hour, result.ResetIn)

	// The server must not have been consulted for the denied attempt.
	assert.Equal(t, 5, server.calls)
}

func TestChecker_NonCriticalSkipsServer(t *testing.T) {
	server := &fakeServer{decision: ratelimit.Decision{Allowed: true}}
	checker := newTestChecker(server)

	result := checker.Check(context.Background(), "button_click")
	assert.True(t, result.Allowed)
	assert.Equal(t, 29, result.Remaining)
	assert.Equal(t, 30, result.Limit)
	assert.Equal(t, 0, server.calls)
}

func TestChecker_CriticalConsultsServer(t *testing.T) {
	server := &fakeServer{decision: ratelimit.Decision{
		Allowed:   true,
		Remaining: 2,
		ResetIn:   time.Hour,
		Limit:     5,
	}}
	checker := newTestChecker(server)

	result := checker.Check(context.Background(), "submit_order")
	assert.Equal(t, 1, server.calls)

	// Server numbers override the provisional client state.
	assert.True(t, result.Allowed)
	assert.Equal(t, 2, result.Remaining)
	assert.Equal(t, 5, result.Limit)
}

func TestChecker_ServerDenialOverridesClientAllow(t *testing.T) {
	server := &fakeServer{decision: ratelimit.Decision{
		Allowed:   false,
		Remaining: 0,
		ResetIn:   time.Hour,
		Limit:     5,
	}}
	checker := newTestChecker(server)

	result := checker.Check(context.Background(), "submit_order")
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.Equal(t, time.Hour, result.ResetIn)
}

func TestChecker_ServerErrorFailsOpen(t *testing.T) {
	server := &fakeServer{err: errors.New("connection refused")}
	checker := newTestChecker(server)

	result := checker.Check(context.Background(), "submit_order")
	assert.True(t, result.Allowed)
	assert.Equal(t, 4, result.Remaining)
	assert.Equal(t, 5, result.Limit)
}

func TestChecker_NilServerRunsPreFilterOnly(t *testing.T) {
	checker := newTestChecker(nil)

	result := checker.Check(context.Background(), "submit_order")
	assert.True(t, result.Allowed)
	assert.Equal(t, 4, result.Remaining)
}

func TestChecker_AttachesTimeoutWhenNoDeadline(t *testing.T) {
	server := &fakeServer{decision: ratelimit.Decision{Allowed: true}}
	checker := newTestChecker(server, WithTimeout(time.Second))

	checker.Check(context.Background(), "submit_order")

	deadline, ok := server.gotCtx.Deadline()
	assert.True(t, ok, "server call should carry a deadline")
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 100*time.Millisecond)
}

func TestChecker_KeepsCallerDeadline(t *testing.T) {
	server := &fakeServer{decision: ratelimit.Decision{Allowed: true}}
	checker := newTestChecker(server)

	want := time.Now().Add(200 * time.Millisecond)
	ctx, cancel := context.WithDeadline(context.Background(), want)
	defer cancel()

	checker.Check(ctx, "submit_order")

	deadline, ok := server.gotCtx.Deadline()
	assert.True(t, ok)
	assert.Equal(t, want, deadline)
}

func TestChecker_WithCriticalActions(t *testing.T) {
	server := &fakeServer{decision: ratelimit.Decision{Allowed: true}}
	checker := newTestChecker(server, WithCriticalActions("custom_action"))

	checker.Check(context.Background(), "submit_order")
	assert.Equal(t, 0, server.calls, "submit_order no longer critical")

	checker.Check(context.Background(), "custom_action")
	assert.Equal(t, 1, server.calls)
}

func TestChecker_Reset(t *testing.T) {
	checker := newTestChecker(nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		checker.Check(ctx, "submit_order")
	}
	result := checker.Check(ctx, "submit_order")
	assert.False(t, result.Allowed)

	checker.Reset("submit_order")

	result = checker.Check(ctx, "submit_order")
	assert.True(t, result.Allowed)
}

func TestCooldownMessage(t *testing.T) {
	assert.Equal(t, "Too many requests. Please try again in 60 minutes.", CooldownMessage(time.Hour))
	assert.Equal(t, "Too many requests. Please try again in 1 minutes.", CooldownMessage(30*time.Second))
	assert.Equal(t, "Too many requests. Please try again in 3 minutes.", CooldownMessage(2*time.Minute+10*time.Second))
}
