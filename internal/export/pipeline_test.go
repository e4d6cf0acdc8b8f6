package export

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steppush/steppush/internal/batch"
	"github.com/steppush/steppush/internal/clock"
	"github.com/steppush/steppush/internal/meter"
)

func testLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)

	return log
}

type fakeExporter struct {
	batches [][]batch.DataPoint
	err     error
}

func (f *fakeExporter) Name() string                  { return "fake" }
func (f *fakeExporter) Start(_ context.Context) error { return nil }
func (f *fakeExporter) Stop() error                   { return nil }

func (f *fakeExporter) Export(_ context.Context, points []batch.DataPoint) error {
	if f.err != nil {
		return f.err
	}

	f.batches = append(f.batches, points)

	return nil
}

func TestPipeline_PublishBuildsAndExports(t *testing.T) {
	reg := meter.NewRegistry()
	reg.Counter("requests").Add(3)
	reg.Timer("latency").Record(100 * time.Millisecond)

	exp := &fakeExporter{}
	clk := clock.NewMock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	p := NewPipeline(testLog(), reg, batch.NewBuilder(0), exp, clk, nil)

	clk.Advance(time.Minute)
	require.NoError(t, p.Publish(context.Background()))

	require.Len(t, exp.batches, 1)
	// 1 counter point + 3 timer points.
	assert.Len(t, exp.batches[0], 4)
}

func TestPipeline_WindowAdvancesAcrossCycles(t *testing.T) {
	reg := meter.NewRegistry()
	reg.Counter("requests").Inc()

	exp := &fakeExporter{}
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewMock(start)

	p := NewPipeline(testLog(), reg, batch.NewBuilder(0), exp, clk, nil)

	clk.Advance(time.Minute)
	require.NoError(t, p.Publish(context.Background()))

	clk.Advance(time.Minute)
	require.NoError(t, p.Publish(context.Background()))

	require.Len(t, exp.batches, 2)

	first := exp.batches[0][0]
	second := exp.batches[1][0]

	assert.Equal(t, start, first.Start)
	assert.Equal(t, start.Add(time.Minute), first.End)
	assert.Equal(t, first.End, second.Start)
	assert.Equal(t, start.Add(2*time.Minute), second.End)
}

func TestPipeline_EmptyBatchSkipsExporter(t *testing.T) {
	reg := meter.NewRegistry()
	reg.Gauge("unset") // never set, reads NaN

	exp := &fakeExporter{}
	clk := clock.NewMock(time.Now())

	p := NewPipeline(testLog(), reg, batch.NewBuilder(0), exp, clk, nil)

	require.NoError(t, p.Publish(context.Background()))
	assert.Empty(t, exp.batches)
}

func TestPipeline_ExporterErrorPropagates(t *testing.T) {
	reg := meter.NewRegistry()
	reg.Counter("requests").Inc()

	exp := &fakeExporter{err: errors.New("endpoint down")}
	clk := clock.NewMock(time.Now())

	p := NewPipeline(testLog(), reg, batch.NewBuilder(0), exp, clk, nil)

	err := p.Publish(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint down")
}

func TestPipeline_BuilderBoundApplied(t *testing.T) {
	reg := meter.NewRegistry()
	reg.GaugeFunc("inf", func() float64 { return math.Inf(1) })

	exp := &fakeExporter{}
	clk := clock.NewMock(time.Now())

	p := NewPipeline(testLog(), reg, batch.NewBuilder(1e6), exp, clk, nil)

	require.NoError(t, p.Publish(context.Background()))
	require.Len(t, exp.batches, 1)
	assert.Equal(t, 1e6, exp.batches[0][0].Value)
}
