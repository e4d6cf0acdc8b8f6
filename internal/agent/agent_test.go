package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)

	return log
}

func TestAgent_StartStopFlushesToBackend(t *testing.T) {
	var requests atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	// Long step so only the shutdown flush publishes.
	cfg.Schedule.Step = time.Hour
	cfg.Backends.HTTP.Enabled = true
	cfg.Backends.HTTP.Address = server.URL
	cfg.Health.Addr = "127.0.0.1:0"
	require.NoError(t, cfg.Validate())

	a, err := New(testLog(), cfg)
	require.NoError(t, err)

	require.NoError(t, a.Start(context.Background()))

	// Record something beyond the runtime meters.
	a.Registry().Counter("test.requests").Add(5)

	require.NoError(t, a.Stop())

	// The final flush on Stop publishes the last partial step.
	assert.Equal(t, int64(1), requests.Load())
}

func TestAgent_RuntimeMetersRegistered(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backends.HTTP.Enabled = true
	cfg.Backends.HTTP.Address = "http://localhost:0"
	cfg.Health.Addr = "127.0.0.1:0"

	a, err := New(testLog(), cfg)
	require.NoError(t, err)

	assert.Greater(t, a.Registry().Size(), 0)
}

func TestAgent_RuntimeMetersDisabled(t *testing.T) {
	disabled := false

	cfg := DefaultConfig()
	cfg.Runtime.Enabled = &disabled
	cfg.Backends.HTTP.Enabled = true
	cfg.Backends.HTTP.Address = "http://localhost:0"

	a, err := New(testLog(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 0, a.Registry().Size())
}
