// Package push implements the step-aligned publish scheduler: it drives
// periodic, non-overlapping, fault-isolated invocations of a backend's
// export routine.
package push

import (
	"errors"
	"time"
)

// Config configures the publish schedule. Immutable after validation.
type Config struct {
	// Step is the fixed reporting interval. Must be > 0 when enabled.
	Step time.Duration `yaml:"step"`

	// Enabled turns scheduled publishing on.
	Enabled bool `yaml:"enabled"`
}

// Validate fails fast on an unusable schedule.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Step <= 0 {
		return errors.New("step must be greater than 0 when publishing is enabled")
	}

	// Step alignment works at millisecond resolution; anything finer would
	// truncate to a zero-length step.
	if c.Step < time.Millisecond {
		return errors.New("step must be at least one millisecond")
	}

	return nil
}
