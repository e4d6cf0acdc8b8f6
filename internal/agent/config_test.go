package agent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, time.Minute, cfg.Schedule.Step)
	assert.True(t, cfg.Schedule.Enabled)
	assert.Equal(t, ":9090", cfg.Health.Addr)
	assert.True(t, cfg.Runtime.IsEnabled())
}

func TestLoadConfig(t *testing.T) {
	yaml := `
log_level: debug
schedule:
  step: 30s
  enabled: true
runtime:
  enabled: false
backends:
  http:
    enabled: true
    address: "http://localhost:8686"
    compression: zstd
    max_value: 1e12
  clickhouse:
    enabled: true
    endpoint: "localhost:9000"
    database: metrics
    migrate: true
health:
  addr: ":9091"
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Schedule.Step)
	assert.False(t, cfg.Runtime.IsEnabled())
	assert.True(t, cfg.Backends.HTTP.Enabled)
	assert.Equal(t, "http://localhost:8686", cfg.Backends.HTTP.Address)
	assert.Equal(t, "zstd", cfg.Backends.HTTP.Compression)
	assert.Equal(t, 1e12, cfg.Backends.HTTP.MaxValue)
	assert.True(t, cfg.Backends.ClickHouse.Enabled)
	assert.Equal(t, "metrics", cfg.Backends.ClickHouse.Database)
	assert.True(t, cfg.Backends.ClickHouse.Migrate)
	assert.Equal(t, ":9091", cfg.Health.Addr)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("\t- bad"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestValidate_NoBackendEnabled(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one backend must be enabled")
}

func TestValidate_InvalidStep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Schedule.Step = 0
	cfg.Backends.HTTP.Enabled = true
	cfg.Backends.HTTP.Address = "http://localhost:8686"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step must be greater than 0")
}

func TestValidate_HTTPWithoutAddress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backends.HTTP.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http address is required")
}

func TestValidate_ClickHouseWithoutEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backends.ClickHouse.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clickhouse endpoint is required")
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backends.HTTP.Enabled = true
	cfg.Backends.HTTP.Address = "http://localhost:8686"

	require.NoError(t, cfg.Validate())
}
