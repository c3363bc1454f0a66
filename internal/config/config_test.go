package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gatekeeper/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, models.StorageTypeSQLite, cfg.Storage.Type)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoad_FromYAMLFile(t *testing.T) {
	content := `
server:
  port: 9999
  host: "127.0.0.1"
storage:
  type: memory
security:
  actions:
    submit_order:
      max_requests: 2
      window: 30m
logging:
  level: debug
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, models.StorageTypeMemory, cfg.Storage.Type)
	assert.Equal(t, "debug", cfg.Logging.Level)

	quota, ok := cfg.Security.Actions["submit_order"]
	require.True(t, ok)
	assert.Equal(t, 2, quota.MaxRequests)
	assert.Equal(t, 30*time.Minute, quota.Window)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	content := `
server:
  port: 0
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("GATEKEEPER_PORT", "7070")
	t.Setenv("GATEKEEPER_STORAGE_TYPE", "memory")
	t.Setenv("GATEKEEPER_LOG_LEVEL", "warn")
	t.Setenv("GATEKEEPER_SELF_LIMIT_RPM", "42")
	t.Setenv("GATEKEEPER_RETENTION_KEEP_FOR", "72h")
	t.Setenv("GATEKEEPER_METRICS_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, models.StorageTypeMemory, cfg.Storage.Type)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 42, cfg.Security.SelfLimit.RequestsPerMinute)
	assert.Equal(t, 72*time.Hour, cfg.Security.Retention.KeepFor)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	content := `
server:
  port: 9999
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("GATEKEEPER_PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port, "environment should win over file")
}

func TestLoad_InvalidEnvValueIgnored(t *testing.T) {
	t.Setenv("GATEKEEPER_PORT", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_CORSOriginsFromEnv(t *testing.T) {
	t.Setenv("GATEKEEPER_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORS.AllowedOrigins)
}

func TestSaveExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example", "config.yaml")

	require.NoError(t, SaveExample(path))

	// The example must round-trip through Load.
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, cfg.Security.Actions, "submit_order")
}
