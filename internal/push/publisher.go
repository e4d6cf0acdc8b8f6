package push

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/steppush/steppush/internal/clock"
	"github.com/steppush/steppush/internal/export"
)

// Backend is the abstract publish operation a concrete exporter pipeline
// supplies. Publish is invoked at most once at a time; any error it returns
// is logged and swallowed by the scheduler.
type Backend interface {
	// Name identifies the backend in logs and telemetry.
	Name() string
	// Publish snapshots and ships one export cycle.
	Publish(ctx context.Context) error
}

// Publisher schedules backend publishes on step boundaries. It guarantees
// at most one in-flight publish: when a cycle is still running at the next
// tick, the tick is shed, not queued.
type Publisher struct {
	log     logrus.FieldLogger
	cfg     Config
	clk     clock.Clock
	backend Backend
	health  *export.HealthMetrics

	// publishing is the publish guard. Only ever CAS-acquired; a plain
	// read-then-write would let two ticks race into an acquired state.
	publishing atomic.Bool
	closed     atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a Publisher. The config is validated up front; publish-time
// paths never fail on configuration. A nil clock defaults to the system
// clock; health may be nil.
func New(
	log logrus.FieldLogger,
	cfg Config,
	clk clock.Clock,
	backend Backend,
	health *export.HealthMetrics,
) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if backend == nil {
		return nil, errors.New("backend is required")
	}

	if clk == nil {
		clk = clock.System()
	}

	return &Publisher{
		log: log.WithField("component", "publisher").
			WithField("backend", backend.Name()),
		cfg:     cfg,
		clk:     clk,
		backend: backend,
		health:  health,
	}, nil
}

// InitialDelay returns how long to wait before the first tick so that it
// fires just after a step boundary: step minus the time already elapsed in
// the current step, plus one millisecond to let upstream aggregation
// settle.
func InitialDelay(now time.Time, step time.Duration) time.Duration {
	stepMillis := step.Milliseconds()
	elapsed := now.UnixMilli() % stepMillis

	return time.Duration(stepMillis-elapsed+1) * time.Millisecond
}

// Start begins the fixed-rate schedule. If a schedule is already running it
// is stopped first. A disabled config makes Start a no-op. Safe to call
// from any goroutine.
func (p *Publisher) Start(ctx context.Context) error {
	if p.closed.Load() {
		return errors.New("publisher is closed")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	if !p.cfg.Enabled {
		p.log.Debug("Publishing disabled, schedule not started")

		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	delay := InitialDelay(p.clk.Now(), p.cfg.Step)

	go p.run(runCtx, delay)

	p.log.WithFields(logrus.Fields{
		"step":          p.cfg.Step,
		"initial_delay": delay,
	}).Info("Publishing metrics on a fixed step")

	return nil
}

// run fires the first tick after the initial delay, then at every step.
func (p *Publisher) run(ctx context.Context, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	p.PublishSafely(ctx)

	ticker := time.NewTicker(p.cfg.Step)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PublishSafely(ctx)
		}
	}
}

// Stop cancels the schedule. It does not wait for an in-flight publish to
// finish. Idempotent; a no-op if never started.
func (p *Publisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
}

func (p *Publisher) stopLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Close stops the schedule and, when publishing is enabled, performs one
// final synchronous publish as a best-effort flush of the last partial
// step. Subsequent calls are no-ops.
func (p *Publisher) Close(ctx context.Context) {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}

	p.Stop()

	if p.cfg.Enabled {
		p.PublishSafely(ctx)
	}
}

// PublishSafely runs one export cycle under the publish guard. Backend
// failures, including panics, never escape: they are logged as warnings
// and the guard is released on every exit path. When a previous cycle is
// still in flight the call is shed immediately.
func (p *Publisher) PublishSafely(ctx context.Context) {
	if !p.publishing.CompareAndSwap(false, true) {
		p.log.Warn("Publishing already in progress, skipping duplicate call")

		if p.health != nil {
			p.health.PublishSkipped.WithLabelValues(p.backend.Name()).Inc()
		}

		return
	}

	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("panic", r).
				Warn("Unexpected panic while publishing metrics")

			if p.health != nil {
				p.health.PublishFailures.WithLabelValues(p.backend.Name()).Inc()
			}
		}

		p.publishing.Store(false)
	}()

	if p.health != nil {
		p.health.PublishCycles.WithLabelValues(p.backend.Name()).Inc()
	}

	if err := p.backend.Publish(ctx); err != nil {
		p.log.WithError(err).Warn("Unexpected error thrown while publishing metrics")

		if p.health != nil {
			p.health.PublishFailures.WithLabelValues(p.backend.Name()).Inc()
		}

		return
	}

	if p.health != nil {
		p.health.PublishDuration.WithLabelValues(p.backend.Name()).
			Observe(time.Since(start).Seconds())
	}
}

// IsPublishing reports whether a publish cycle is currently in flight.
// Non-blocking; intended for observability and tests.
func (p *Publisher) IsPublishing() bool {
	return p.publishing.Load()
}
