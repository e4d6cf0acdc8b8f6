// Package export ships validated data points to concrete backends and
// exposes the engine's own health telemetry.
package export

import (
	"context"

	"github.com/steppush/steppush/internal/batch"
)

// Exporter writes a batch of data points to a destination.
type Exporter interface {
	// Name returns the exporter's identifier for logging.
	Name() string
	// Start initializes the exporter.
	Start(ctx context.Context) error
	// Export writes one cycle's data points to the destination.
	Export(ctx context.Context, points []batch.DataPoint) error
	// Stop shuts down the exporter gracefully.
	Stop() error
}
