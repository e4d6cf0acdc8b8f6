package agent

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/steppush/steppush/internal/export"
	httpexport "github.com/steppush/steppush/internal/export/http"
	"github.com/steppush/steppush/internal/push"
)

// Config is the top-level configuration for the steppush agent.
type Config struct {
	// LogLevel sets the logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// Schedule configures the step-aligned publish schedule shared by all
	// enabled backends.
	Schedule push.Config `yaml:"schedule"`

	// Runtime configures Go runtime instrumentation.
	Runtime RuntimeConfig `yaml:"runtime"`

	// Backends configures where data points are shipped.
	Backends BackendsConfig `yaml:"backends"`

	// Health configures the Prometheus health metrics server.
	Health export.HealthConfig `yaml:"health"`
}

// BackendsConfig configures the available export backends.
type BackendsConfig struct {
	// HTTP configures the NDJSON-over-HTTP backend.
	HTTP httpexport.Config `yaml:"http"`

	// ClickHouse configures the ClickHouse backend.
	ClickHouse export.ClickHouseConfig `yaml:"clickhouse"`
}

// RuntimeConfig configures Go runtime instrumentation.
type RuntimeConfig struct {
	// Enabled registers runtime meters (goroutines, heap, GC).
	// Defaults to true.
	Enabled *bool `yaml:"enabled"`
}

// IsEnabled returns whether runtime instrumentation is on.
func (c *RuntimeConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}

	return *c.Enabled
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Schedule: push.Config{
			Step:    time.Minute,
			Enabled: true,
		},
		Health: export.HealthConfig{
			Addr: ":9090",
		},
	}
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for required fields and consistency.
func (c *Config) Validate() error {
	if err := c.Schedule.Validate(); err != nil {
		return err
	}

	if !c.Backends.HTTP.Enabled && !c.Backends.ClickHouse.Enabled {
		return fmt.Errorf("at least one backend must be enabled")
	}

	if err := c.Backends.HTTP.Validate(); err != nil {
		return err
	}

	if err := c.Backends.ClickHouse.Validate(); err != nil {
		return err
	}

	return nil
}
