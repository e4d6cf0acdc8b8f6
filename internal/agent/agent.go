// Package agent wires the instrument registry, the publish schedulers,
// and the export backends into a runnable process.
package agent

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/steppush/steppush/internal/batch"
	"github.com/steppush/steppush/internal/clock"
	"github.com/steppush/steppush/internal/export"
	httpexport "github.com/steppush/steppush/internal/export/http"
	"github.com/steppush/steppush/internal/meter"
	"github.com/steppush/steppush/internal/migrate"
	"github.com/steppush/steppush/internal/push"
)

// Agent is the top-level orchestrator for steppush.
type Agent interface {
	// Start initializes all components and begins publishing.
	Start(ctx context.Context) error
	// Stop shuts down all components gracefully, flushing the last
	// partial step to every backend.
	Stop() error
	// Registry exposes the instrument registry for recording metrics.
	Registry() *meter.Registry
}

type agent struct {
	log      logrus.FieldLogger
	cfg      *Config
	registry *meter.Registry
	health   *export.HealthMetrics

	exporters  []export.Exporter
	publishers []*push.Publisher
}

// New creates a new Agent. Each enabled backend gets its own pipeline and
// publisher so that one slow backend cannot stall another.
func New(log logrus.FieldLogger, cfg *Config) (Agent, error) {
	a := &agent{
		log:      log.WithField("component", "agent"),
		cfg:      cfg,
		registry: meter.NewRegistry(),
		health:   export.NewHealthMetrics(log, cfg.Health),
	}

	clk := clock.System()

	if cfg.Runtime.IsEnabled() {
		registerRuntimeMeters(a.registry)
	}

	if cfg.Backends.HTTP.Enabled {
		exp, err := httpexport.NewExporter(log, cfg.Backends.HTTP)
		if err != nil {
			return nil, fmt.Errorf("creating http exporter: %w", err)
		}

		if err := a.addBackend(log, exp, cfg.Backends.HTTP.MaxValue, clk); err != nil {
			return nil, err
		}
	}

	if cfg.Backends.ClickHouse.Enabled {
		exp, err := export.NewClickHouseExporter(log, cfg.Backends.ClickHouse)
		if err != nil {
			return nil, fmt.Errorf("creating clickhouse exporter: %w", err)
		}

		if err := a.addBackend(log, exp, 0, clk); err != nil {
			return nil, err
		}
	}

	return a, nil
}

func (a *agent) addBackend(
	log logrus.FieldLogger,
	exp export.Exporter,
	maxValue float64,
	clk clock.Clock,
) error {
	pipeline := export.NewPipeline(
		log, a.registry, batch.NewBuilder(maxValue), exp, clk, a.health,
	)

	pub, err := push.New(log, a.cfg.Schedule, clk, pipeline, a.health)
	if err != nil {
		return fmt.Errorf("creating %s publisher: %w", exp.Name(), err)
	}

	a.exporters = append(a.exporters, exp)
	a.publishers = append(a.publishers, pub)

	return nil
}

func (a *agent) Registry() *meter.Registry {
	return a.registry
}

func (a *agent) Start(ctx context.Context) error {
	if err := a.health.Start(ctx); err != nil {
		return fmt.Errorf("starting health metrics: %w", err)
	}

	if a.cfg.Backends.ClickHouse.Enabled && a.cfg.Backends.ClickHouse.Migrate {
		mig := migrate.New(a.log, a.cfg.Backends.ClickHouse.DSN())
		if err := mig.Up(ctx); err != nil {
			return fmt.Errorf("migrating clickhouse schema: %w", err)
		}
	}

	for _, exp := range a.exporters {
		if err := exp.Start(ctx); err != nil {
			return fmt.Errorf("starting %s exporter: %w", exp.Name(), err)
		}
	}

	for _, pub := range a.publishers {
		if err := pub.Start(ctx); err != nil {
			return fmt.Errorf("starting publisher: %w", err)
		}
	}

	a.log.WithFields(logrus.Fields{
		"backends": len(a.exporters),
		"step":     a.cfg.Schedule.Step,
		"meters":   a.registry.Size(),
	}).Info("Agent started")

	return nil
}

func (a *agent) Stop() error {
	// Close performs the final best-effort flush per backend.
	for _, pub := range a.publishers {
		pub.Close(context.Background())
	}

	for _, exp := range a.exporters {
		if err := exp.Stop(); err != nil {
			a.log.WithError(err).WithField("backend", exp.Name()).
				Error("Error stopping exporter")
		}
	}

	if a.health != nil {
		if err := a.health.Stop(); err != nil {
			a.log.WithError(err).Error("Error stopping health metrics")
		}
	}

	return nil
}
