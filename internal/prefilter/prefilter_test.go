package prefilter

import (
	"errors"
	"testing"
	"time"

	"gatekeeper/internal/limits"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenKV fails every operation, simulating unavailable local storage.
type brokenKV struct{}

func (brokenKV) Get(key string) (string, bool, error) { return "", false, errors.New("unavailable") }
func (brokenKV) Set(key, value string) error          { return errors.New("unavailable") }
func (brokenKV) Delete(key string) error              { return errors.New("unavailable") }

func newTestPreFilter(now *time.Time) (*PreFilter, *MemoryKV) {
	kv := NewMemoryKV()
	pf := New(kv, limits.DefaultClientTable(), WithClock(func() time.Time {
		return *now
	}))
	return pf, kv
}

func TestPreFilter_AllowsUpToLimit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pf, _ := newTestPreFilter(&now)

	// submit_order allows 5 per hour on the client table.
	for i := 0; i < 5; i++ {
		allowed, remaining := pf.Check("submit_order")
		assert.True(t, allowed, "attempt %d should pass", i+1)
		assert.Equal(t, 4-i, remaining)
	}

	allowed, remaining := pf.Check("submit_order")
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
}

func TestPreFilter_DenialDoesNotConsumeSlot(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pf, kv := newTestPreFilter(&now)

	for i := 0; i < 5; i++ {
		pf.Check("submit_order")
	}
	for i := 0; i < 10; i++ {
		allowed, _ := pf.Check("submit_order")
		assert.False(t, allowed)
	}

	// The stored count must still be exactly the limit.
	value, ok, err := kv.Get("rate_limit_submit_order")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, value, `"count":5`)
}

func TestPreFilter_FixedWindowReset(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pf, _ := newTestPreFilter(&now)

	for i := 0; i < 5; i++ {
		pf.Check("submit_order")
	}
	allowed, _ := pf.Check("submit_order")
	assert.False(t, allowed)

	// The window is fixed from the first attempt, not sliding.
	now = now.Add(time.Hour + time.Second)
	allowed, remaining := pf.Check("submit_order")
	assert.True(t, allowed)
	assert.Equal(t, 4, remaining)
}

func TestPreFilter_ButtonClickBurst(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pf, _ := newTestPreFilter(&now)

	for i := 0; i < 30; i++ {
		allowed, _ := pf.Check("button_click")
		assert.True(t, allowed, "click %d should pass", i+1)
	}

	allowed, _ := pf.Check("button_click")
	assert.False(t, allowed, "31st click within the minute should be denied")

	now = now.Add(61 * time.Second)
	allowed, _ = pf.Check("button_click")
	assert.True(t, allowed)
}

func TestPreFilter_ActionsAreIndependent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pf, _ := newTestPreFilter(&now)

	for i := 0; i < 5; i++ {
		pf.Check("submit_order")
	}
	allowed, _ := pf.Check("submit_order")
	assert.False(t, allowed)

	allowed, _ = pf.Check("contact_form")
	assert.True(t, allowed)
}

func TestPreFilter_UnknownActionUsesFallback(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pf, _ := newTestPreFilter(&now)

	// Fallback tier: 60 per minute.
	allowed, remaining := pf.Check("mystery_action")
	assert.True(t, allowed)
	assert.Equal(t, 59, remaining)
}

func TestPreFilter_FailsOpenOnBrokenStore(t *testing.T) {
	pf := New(brokenKV{}, limits.DefaultClientTable())

	for i := 0; i < 100; i++ {
		allowed, remaining := pf.Check("submit_order")
		assert.True(t, allowed)
		assert.Equal(t, 1, remaining)
	}
}

func TestPreFilter_FailsOpenOnCorruptRecord(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pf, kv := newTestPreFilter(&now)

	require.NoError(t, kv.Set("rate_limit_submit_order", "not json at all"))

	allowed, remaining := pf.Check("submit_order")
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)
}

func TestPreFilter_Reset(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pf, _ := newTestPreFilter(&now)

	for i := 0; i < 5; i++ {
		pf.Check("submit_order")
	}
	allowed, _ := pf.Check("submit_order")
	assert.False(t, allowed)

	pf.Reset("submit_order")

	allowed, remaining := pf.Check("submit_order")
	assert.True(t, allowed)
	assert.Equal(t, 4, remaining)
}
