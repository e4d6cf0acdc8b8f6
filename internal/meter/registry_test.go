package meter

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_SameNameAndTagsReturnsSameMeter(t *testing.T) {
	reg := NewRegistry()

	a := reg.Counter("requests", T("method", "GET"))
	b := reg.Counter("requests", T("method", "GET"))

	assert.Same(t, a, b)
	assert.Equal(t, 1, reg.Size())
}

func TestRegistry_TagOrderDoesNotMatter(t *testing.T) {
	reg := NewRegistry()

	a := reg.Counter("requests", T("method", "GET"), T("status", "200"))
	b := reg.Counter("requests", T("status", "200"), T("method", "GET"))

	assert.Same(t, a, b)
}

func TestRegistry_DifferentTagsAreDifferentMeters(t *testing.T) {
	reg := NewRegistry()

	a := reg.Counter("requests", T("method", "GET"))
	b := reg.Counter("requests", T("method", "POST"))

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, reg.Size())
}

func TestRegistry_KindMismatchPanics(t *testing.T) {
	reg := NewRegistry()
	reg.Counter("requests")

	assert.Panics(t, func() {
		reg.Gauge("requests")
	})
}

func TestRegistry_CustomOverExistingKindPanics(t *testing.T) {
	reg := NewRegistry()
	reg.Counter("requests")

	// The measurement function must never be silently discarded.
	assert.Panics(t, func() {
		reg.Custom("requests", func() []Measurement { return nil })
	})
}

func TestRegistry_Readings(t *testing.T) {
	reg := NewRegistry()

	reg.Counter("hits").Add(3)
	reg.Gauge("depth").Set(7)
	reg.Timer("latency").Record(250 * time.Millisecond)

	readings := reg.Readings()
	require.Len(t, readings, 3)

	byName := make(map[string]Reading, len(readings))
	for _, r := range readings {
		byName[r.ID.Name] = r
	}

	hits := byName["hits"]
	assert.Equal(t, KindCounter, hits.Kind)
	require.Len(t, hits.Measurements, 1)
	assert.Equal(t, StatCount, hits.Measurements[0].Stat)
	assert.Equal(t, 3.0, hits.Measurements[0].Value)

	latency := byName["latency"]
	assert.Equal(t, KindTimer, latency.Kind)
	assert.Equal(t, UnitSeconds, latency.Unit)
	assert.Len(t, latency.Measurements, 3)
}

func TestRegistry_ConcurrentRegistration(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 100; j++ {
				reg.Counter("shared").Inc()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, reg.Size())
	assert.Equal(t, 1600.0, reg.Counter("shared").Count())
}

func TestNewID_DeduplicatesKeys(t *testing.T) {
	id := NewID("m", T("a", "1"), T("a", "2"))

	require.Len(t, id.Tags, 1)
	assert.Equal(t, "2", id.Tags[0].Value)
}
