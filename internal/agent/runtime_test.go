package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steppush/steppush/internal/meter"
)

func TestRegisterRuntimeMeters(t *testing.T) {
	reg := meter.NewRegistry()
	registerRuntimeMeters(reg)

	readings := reg.Readings()
	require.NotEmpty(t, readings)

	byName := make(map[string]meter.Reading, len(readings))
	for _, r := range readings {
		byName[r.ID.Name] = r
	}

	goroutines, ok := byName["go.goroutines"]
	require.True(t, ok)
	require.Len(t, goroutines.Measurements, 1)
	assert.Greater(t, goroutines.Measurements[0].Value, 0.0)

	heap, ok := byName["go.memory.heap_alloc_bytes"]
	require.True(t, ok)
	assert.Greater(t, heap.Measurements[0].Value, 0.0)

	gcPause, ok := byName["go.gc.pause"]
	require.True(t, ok)
	assert.Equal(t, meter.KindFunctionTimer, gcPause.Kind)
	assert.Len(t, gcPause.Measurements, 2)
	assert.Equal(t, meter.UnitSeconds, gcPause.Unit)
}
