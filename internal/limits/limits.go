// Package limits defines the per-action quota tables and the fallback rule
// used to resolve an action name to its rate limit configuration. Tables are
// immutable after construction; unknown actions deterministically resolve to
// the "general" tier.
package limits

import (
	"time"

	"gatekeeper/internal/models"
)

// FallbackAction is the tier applied to unrecognized action names.
const FallbackAction = "general"

// Config is the immutable quota for a single action.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// Table maps action names to quotas with a guaranteed fallback tier.
type Table struct {
	quotas   map[string]Config
	fallback Config
}

// NewTable builds a table from the given quotas. The entry under
// FallbackAction becomes the fallback tier; if absent, fallback defaults to
// 100 requests per minute.
func NewTable(quotas map[string]Config) *Table {
	t := &Table{
		quotas:   make(map[string]Config, len(quotas)),
		fallback: Config{MaxRequests: 100, Window: time.Minute},
	}
	for action, cfg := range quotas {
		if action == FallbackAction {
			t.fallback = cfg
			continue
		}
		t.quotas[action] = cfg
	}
	return t
}

// Resolve returns the quota for the action, falling back to the general tier
// when the action is unknown. The same config is returned for the same action
// on every call.
func (t *Table) Resolve(action string) Config {
	if cfg, ok := t.quotas[action]; ok {
		return cfg
	}
	return t.fallback
}

// MaxWindow returns the longest window in the table, including the fallback.
// The retention janitor uses it as a lower bound for how long rows must stay.
func (t *Table) MaxWindow() time.Duration {
	max := t.fallback.Window
	for _, cfg := range t.quotas {
		if cfg.Window > max {
			max = cfg.Window
		}
	}
	return max
}

// DefaultServerTable returns the authoritative server-side quota table.
func DefaultServerTable() *Table {
	return NewTable(map[string]Config{
		"submit_order":         {MaxRequests: 5, Window: time.Hour},
		"contact_form":         {MaxRequests: 10, Window: time.Hour},
		"newsletter_subscribe": {MaxRequests: 3, Window: 24 * time.Hour},
		"password_reset":       {MaxRequests: 5, Window: time.Hour},
		"login_attempt":        {MaxRequests: 10, Window: 15 * time.Minute},
		FallbackAction:         {MaxRequests: 100, Window: time.Minute},
	})
}

// DefaultClientTable returns the advisory client-side pre-filter tiers.
// These are smaller limits tuned for anti-spam at the UI layer and are
// independent of the server table.
func DefaultClientTable() *Table {
	return NewTable(map[string]Config{
		"submit_order":         {MaxRequests: 5, Window: time.Hour},
		"contact_form":         {MaxRequests: 10, Window: time.Hour},
		"newsletter_subscribe": {MaxRequests: 3, Window: 24 * time.Hour},
		"button_click":         {MaxRequests: 30, Window: time.Minute},
		FallbackAction:         {MaxRequests: 60, Window: time.Minute},
	})
}

// ServerTableFromConfig merges configured action quotas over the default
// server table, so operators can tune quotas without code changes.
func ServerTableFromConfig(overrides map[string]models.ActionQuota) *Table {
	quotas := map[string]Config{
		"submit_order":         {MaxRequests: 5, Window: time.Hour},
		"contact_form":         {MaxRequests: 10, Window: time.Hour},
		"newsletter_subscribe": {MaxRequests: 3, Window: 24 * time.Hour},
		"password_reset":       {MaxRequests: 5, Window: time.Hour},
		"login_attempt":        {MaxRequests: 10, Window: 15 * time.Minute},
		FallbackAction:         {MaxRequests: 100, Window: time.Minute},
	}
	for action, quota := range overrides {
		quotas[action] = Config{MaxRequests: quota.MaxRequests, Window: quota.Window}
	}
	return NewTable(quotas)
}
