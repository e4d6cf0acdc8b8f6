// Package http provides an HTTP backend that ships data points as NDJSON
// to a collector endpoint such as Vector.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/steppush/steppush/internal/batch"
)

// Exporter posts one publish cycle's data points per request. It performs
// no queueing or retrying of its own: a failed request surfaces as a
// publish failure and the cycle's data is lost, matching the engine's
// shed-not-buffer policy.
type Exporter struct {
	cfg        Config
	client     *http.Client
	compressor *Compressor
	log        logrus.FieldLogger
}

// NewExporter creates a new HTTP exporter.
func NewExporter(log logrus.FieldLogger, cfg Config) (*Exporter, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	compressor, err := NewCompressor(cfg.Compression)
	if err != nil {
		return nil, fmt.Errorf("creating compressor: %w", err)
	}

	transport := &http.Transport{
		MaxIdleConns:        2,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		DisableKeepAlives:   !cfg.IsKeepAlive(),
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.ExportTimeout,
	}

	return &Exporter{
		cfg:        cfg,
		client:     client,
		compressor: compressor,
		log:        log.WithField("component", "http_exporter"),
	}, nil
}

// Name returns the exporter identifier.
func (e *Exporter) Name() string { return "http" }

// Start is a no-op; connections are created lazily by the client.
func (e *Exporter) Start(_ context.Context) error {
	e.log.WithField("address", e.cfg.Address).Info("HTTP exporter ready")

	return nil
}

// Export posts the data points to the endpoint as NDJSON.
func (e *Exporter) Export(ctx context.Context, points []batch.DataPoint) error {
	if len(points) == 0 {
		return nil
	}

	var buf bytes.Buffer
	buf.Grow(len(points) * 256)

	encoder := json.NewEncoder(&buf)

	for i := range points {
		if err := encoder.Encode(&points[i]); err != nil {
			return fmt.Errorf("encoding data point: %w", err)
		}
	}

	data := buf.Bytes()

	compressed, err := e.compressor.Compress(data)
	if err != nil {
		return fmt.Errorf("compressing data: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, e.cfg.Address, bytes.NewReader(compressed),
	)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-ndjson")

	if encoding := e.compressor.ContentEncoding(); encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}

	for k, v := range e.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}

	defer resp.Body.Close()

	// Drain response body to enable connection reuse.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	e.log.WithFields(logrus.Fields{
		"points":     len(points),
		"bytes":      len(data),
		"compressed": len(compressed),
	}).Debug("Exported batch via HTTP")

	return nil
}

// Stop releases the compressor and idle connections.
func (e *Exporter) Stop() error {
	e.client.CloseIdleConnections()

	if e.compressor != nil {
		return e.compressor.Close()
	}

	return nil
}
