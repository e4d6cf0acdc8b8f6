// Package batch converts raw instrument readings into validated,
// backend-safe data points. The package is pure: no I/O, no shared state.
package batch

import (
	"time"

	"github.com/steppush/steppush/internal/meter"
)

// Window is the time span a data point covers: from the previous snapshot
// to the current one.
type Window struct {
	Start time.Time `json:"window_start"`
	End   time.Time `json:"window_end"`
}

// DataPoint is a single validated value ready for transmission. The value
// is always finite and within the backend's declared bounds, and tags never
// contain an empty value.
type DataPoint struct {
	Name  string      `json:"name"`
	Tags  []meter.Tag `json:"tags,omitempty"`
	Window
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}
