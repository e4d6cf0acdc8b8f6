package export

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// HealthConfig configures the Prometheus health metrics server.
type HealthConfig struct {
	// Addr is the listen address for the health metrics server.
	// Defaults to ":9090".
	Addr string `yaml:"addr"`
}

// HealthMetrics exposes Prometheus metrics for the push engine itself:
// publish cycles, failures, shed ticks, and data-validity rejections.
// Rejections are counted here instead of logged per occurrence.
type HealthMetrics struct {
	log      logrus.FieldLogger
	addr     string
	server   *http.Server
	listener net.Listener
	registry *prometheus.Registry

	PublishCycles       *prometheus.CounterVec   // backend
	PublishFailures     *prometheus.CounterVec   // backend
	PublishSkipped      *prometheus.CounterVec   // backend
	PublishDuration     *prometheus.HistogramVec // backend
	DataPointsExported  *prometheus.CounterVec   // backend
	MeasurementsDropped *prometheus.CounterVec   // backend
	MetersRegistered    prometheus.Gauge

	running atomic.Bool
}

// NewHealthMetrics creates a new health metrics server.
func NewHealthMetrics(
	log logrus.FieldLogger,
	cfg HealthConfig,
) *HealthMetrics {
	reg := prometheus.NewRegistry()

	h := &HealthMetrics{
		log:      log.WithField("component", "health"),
		addr:     cfg.Addr,
		registry: reg,

		PublishCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "steppush",
			Name:      "publish_cycles_total",
			Help:      "Total publish cycles that acquired the guard.",
		}, []string{"backend"}),
		PublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "steppush",
			Name:      "publish_failures_total",
			Help:      "Total publish cycles that failed in the backend.",
		}, []string{"backend"}),
		PublishSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "steppush",
			Name:      "publish_skipped_total",
			Help:      "Total ticks shed because a publish was in flight.",
		}, []string{"backend"}),
		PublishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "steppush",
			Name:      "publish_duration_seconds",
			Help:      "Duration of successful publish cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"backend"}),
		DataPointsExported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "steppush",
			Name:      "data_points_exported_total",
			Help:      "Total validated data points handed to backends.",
		}, []string{"backend"}),
		MeasurementsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "steppush",
			Name:      "measurements_dropped_total",
			Help:      "Total measurements dropped by batch validation.",
		}, []string{"backend"}),
		MetersRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "steppush",
			Name:      "meters_registered",
			Help:      "Number of instruments in the registry.",
		}),
	}

	reg.MustRegister(
		h.PublishCycles,
		h.PublishFailures,
		h.PublishSkipped,
		h.PublishDuration,
		h.DataPointsExported,
		h.MeasurementsDropped,
		h.MetersRegistered,
	)

	return h
}

// Start begins serving metrics on the configured address.
func (h *HealthMetrics) Start(ctx context.Context) error {
	if h.running.Load() {
		return nil
	}

	addr := h.addr
	if addr == "" {
		addr = ":9090"
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	h.listener = listener

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)

	h.server = &http.Server{Handler: mux}

	go func() {
		if err := h.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			h.log.WithError(err).Error("Health metrics server failed")
		}
	}()

	h.running.Store(true)

	h.log.WithField("addr", listener.Addr().String()).
		Info("Health metrics server started")

	return nil
}

// Addr returns the actual listen address once started, or the configured
// address before that.
func (h *HealthMetrics) Addr() string {
	if h.listener != nil {
		return h.listener.Addr().String()
	}

	return h.addr
}

// Stop shuts down the metrics server. Idempotent.
func (h *HealthMetrics) Stop() error {
	if !h.running.CompareAndSwap(true, false) {
		return nil
	}

	if h.server != nil {
		return h.server.Close()
	}

	return nil
}
