package limits

import (
	"testing"
	"time"

	"gatekeeper/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestTable_Resolve_KnownAction(t *testing.T) {
	table := DefaultServerTable()

	cfg := table.Resolve("submit_order")
	assert.Equal(t, 5, cfg.MaxRequests)
	assert.Equal(t, time.Hour, cfg.Window)
}

func TestTable_Resolve_UnknownActionFallsBack(t *testing.T) {
	table := DefaultServerTable()

	cfg := table.Resolve("some_unknown_action")
	assert.Equal(t, 100, cfg.MaxRequests)
	assert.Equal(t, time.Minute, cfg.Window)
}

func TestTable_Resolve_Deterministic(t *testing.T) {
	table := DefaultServerTable()

	first := table.Resolve("never_seen_before")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, table.Resolve("never_seen_before"))
	}
}

func TestTable_Resolve_EmptyAction(t *testing.T) {
	table := DefaultServerTable()

	cfg := table.Resolve("")
	assert.Equal(t, table.Resolve(FallbackAction), cfg)
}

func TestNewTable_FallbackOverride(t *testing.T) {
	table := NewTable(map[string]Config{
		FallbackAction: {MaxRequests: 7, Window: 2 * time.Minute},
	})

	cfg := table.Resolve("anything")
	assert.Equal(t, 7, cfg.MaxRequests)
	assert.Equal(t, 2*time.Minute, cfg.Window)
}

func TestNewTable_DefaultFallbackWhenAbsent(t *testing.T) {
	table := NewTable(map[string]Config{
		"only_action": {MaxRequests: 1, Window: time.Second},
	})

	cfg := table.Resolve("missing")
	assert.Equal(t, 100, cfg.MaxRequests)
	assert.Equal(t, time.Minute, cfg.Window)
}

func TestDefaultServerTable_Quotas(t *testing.T) {
	table := DefaultServerTable()

	tests := []struct {
		action string
		max    int
		window time.Duration
	}{
		{"submit_order", 5, time.Hour},
		{"contact_form", 10, time.Hour},
		{"newsletter_subscribe", 3, 24 * time.Hour},
		{"password_reset", 5, time.Hour},
		{"login_attempt", 10, 15 * time.Minute},
		{"general", 100, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			cfg := table.Resolve(tt.action)
			assert.Equal(t, tt.max, cfg.MaxRequests)
			assert.Equal(t, tt.window, cfg.Window)
		})
	}
}

func TestDefaultClientTable_Quotas(t *testing.T) {
	table := DefaultClientTable()

	tests := []struct {
		action string
		max    int
		window time.Duration
	}{
		{"submit_order", 5, time.Hour},
		{"contact_form", 10, time.Hour},
		{"newsletter_subscribe", 3, 24 * time.Hour},
		{"button_click", 30, time.Minute},
		{"general", 60, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			cfg := table.Resolve(tt.action)
			assert.Equal(t, tt.max, cfg.MaxRequests)
			assert.Equal(t, tt.window, cfg.Window)
		})
	}
}

func TestTable_MaxWindow(t *testing.T) {
	assert.Equal(t, 24*time.Hour, DefaultServerTable().MaxWindow())

	small := NewTable(map[string]Config{
		"a": {MaxRequests: 1, Window: time.Second},
	})
	assert.Equal(t, time.Minute, small.MaxWindow())
}

func TestServerTableFromConfig_Overrides(t *testing.T) {
	table := ServerTableFromConfig(map[string]models.ActionQuota{
		"submit_order": {MaxRequests: 2, Window: 30 * time.Minute},
		"custom_api":   {MaxRequests: 50, Window: time.Minute},
	})

	cfg := table.Resolve("submit_order")
	assert.Equal(t, 2, cfg.MaxRequests)
	assert.Equal(t, 30*time.Minute, cfg.Window)

	cfg = table.Resolve("custom_api")
	assert.Equal(t, 50, cfg.MaxRequests)

	// Untouched entries keep their defaults
	cfg = table.Resolve("contact_form")
	assert.Equal(t, 10, cfg.MaxRequests)
}

func TestServerTableFromConfig_FallbackOverride(t *testing.T) {
	table := ServerTableFromConfig(map[string]models.ActionQuota{
		"general": {MaxRequests: 10, Window: time.Minute},
	})

	cfg := table.Resolve("unknown")
	assert.Equal(t, 10, cfg.MaxRequests)
}
