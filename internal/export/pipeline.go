package export

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/steppush/steppush/internal/batch"
	"github.com/steppush/steppush/internal/clock"
	"github.com/steppush/steppush/internal/meter"
)

// Pipeline binds the instrument registry, the batch builder, and one
// exporter into the publish operation the scheduler drives. One Pipeline
// serves one backend.
type Pipeline struct {
	log      logrus.FieldLogger
	registry *meter.Registry
	builder  *batch.Builder
	exporter Exporter
	clk      clock.Clock
	health   *HealthMetrics

	// lastSnapshot is only touched under the scheduler's publish guard.
	lastSnapshot time.Time
}

// NewPipeline creates a Pipeline. The window of the first cycle starts at
// construction time.
func NewPipeline(
	log logrus.FieldLogger,
	registry *meter.Registry,
	builder *batch.Builder,
	exporter Exporter,
	clk clock.Clock,
	health *HealthMetrics,
) *Pipeline {
	if clk == nil {
		clk = clock.System()
	}

	return &Pipeline{
		log: log.WithField("component", "pipeline").
			WithField("backend", exporter.Name()),
		registry:     registry,
		builder:      builder,
		exporter:     exporter,
		clk:          clk,
		health:       health,
		lastSnapshot: clk.Now(),
	}
}

// Name returns the backend identifier.
func (p *Pipeline) Name() string {
	return p.exporter.Name()
}

// Publish snapshots the registry, builds the validated batch for the
// window since the previous snapshot, and hands it to the exporter. The
// window advances even when the batch comes out empty.
func (p *Pipeline) Publish(ctx context.Context) error {
	now := p.clk.Now()
	window := batch.Window{Start: p.lastSnapshot, End: now}
	p.lastSnapshot = now

	readings := p.registry.Readings()
	points, dropped := p.builder.Build(readings, window)

	if p.health != nil {
		p.health.MetersRegistered.Set(float64(p.registry.Size()))

		if dropped > 0 {
			p.health.MeasurementsDropped.WithLabelValues(p.exporter.Name()).
				Add(float64(dropped))
		}
	}

	if len(points) == 0 {
		p.log.Debug("No data points to publish")

		return nil
	}

	if err := p.exporter.Export(ctx, points); err != nil {
		return err
	}

	if p.health != nil {
		p.health.DataPointsExported.WithLabelValues(p.exporter.Name()).
			Add(float64(len(points)))
	}

	p.log.WithFields(logrus.Fields{
		"points":  len(points),
		"dropped": dropped,
	}).Debug("Published data points")

	return nil
}
