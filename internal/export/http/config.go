package http

import (
	"errors"
	"time"
)

// Config configures the HTTP backend.
type Config struct {
	// Enabled enables the HTTP backend.
	Enabled bool `yaml:"enabled"`

	// Address is the HTTP endpoint to send data points to.
	Address string `yaml:"address"`

	// Headers are additional HTTP headers to include in requests.
	Headers map[string]string `yaml:"headers"`

	// Compression specifies the compression algorithm.
	// Valid values: none, gzip, zstd, zlib, snappy.
	// Defaults to gzip.
	Compression string `yaml:"compression"`

	// ExportTimeout is the maximum duration for one export request.
	// Defaults to 30s.
	ExportTimeout time.Duration `yaml:"export_timeout"`

	// KeepAlive enables HTTP keep-alive connections.
	// Defaults to true.
	KeepAlive *bool `yaml:"keep_alive"`

	// MaxValue is the largest value magnitude the endpoint accepts.
	// Out-of-range and infinite values are clamped to ±MaxValue before
	// export. Zero means unbounded.
	MaxValue float64 `yaml:"max_value"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	keepAlive := true

	return Config{
		Compression:   CompressionGzip,
		ExportTimeout: 30 * time.Second,
		KeepAlive:     &keepAlive,
	}
}

// ApplyDefaults fills unset fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.Compression == "" {
		c.Compression = CompressionGzip
	}

	if c.ExportTimeout <= 0 {
		c.ExportTimeout = 30 * time.Second
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Address == "" {
		return errors.New("http address is required when enabled")
	}

	if c.MaxValue < 0 {
		return errors.New("max_value cannot be negative")
	}

	return nil
}

// IsKeepAlive returns whether keep-alive connections are enabled.
func (c *Config) IsKeepAlive() bool {
	if c.KeepAlive == nil {
		return true
	}

	return *c.KeepAlive
}
