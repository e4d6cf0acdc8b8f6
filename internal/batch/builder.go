package batch

import (
	"math"

	"github.com/steppush/steppush/internal/meter"
)

// Builder turns readings into data points, applying the backend's numeric
// bounds. Safe for concurrent use.
type Builder struct {
	maxMagnitude float64
}

// NewBuilder creates a Builder that clamps values to ±maxMagnitude.
// A non-positive magnitude means no backend-specific bound.
func NewBuilder(maxMagnitude float64) *Builder {
	if maxMagnitude <= 0 || math.IsNaN(maxMagnitude) {
		maxMagnitude = math.MaxFloat64
	}

	return &Builder{maxMagnitude: maxMagnitude}
}

// Build converts a set of readings into data points over the given window.
// It returns the points plus the number of measurements that were dropped
// for failing validation. Dropping is silent: no per-occurrence logging.
func (b *Builder) Build(readings []meter.Reading, w Window) ([]DataPoint, int) {
	points := make([]DataPoint, 0, len(readings))
	dropped := 0

	for _, r := range readings {
		ps, d := b.Points(r, w)
		points = append(points, ps...)
		dropped += d
	}

	return points, dropped
}

// Points converts one reading into zero or more data points.
func (b *Builder) Points(r meter.Reading, w Window) ([]DataPoint, int) {
	switch r.Kind {
	case meter.KindCounter, meter.KindFunctionCounter:
		return b.singlePoints(r, w)
	case meter.KindGauge, meter.KindTimeGauge:
		return b.singlePoints(r, w)
	case meter.KindTimer, meter.KindFunctionTimer:
		return b.timerPoints(r, w)
	default:
		// Summaries and custom meters: each measurement stands alone.
		return b.independentPoints(r, w)
	}
}

// singlePoints handles kinds that emit exactly one statistic: the output
// name is the instrument name with no suffix.
func (b *Builder) singlePoints(r meter.Reading, w Window) ([]DataPoint, int) {
	if len(r.Measurements) == 0 {
		return nil, 0
	}

	value, ok := b.clamp(r.Measurements[0].Value)
	if !ok {
		return nil, 1
	}

	return []DataPoint{b.point(r, "", value, w)}, 0
}

// timerPoints handles timers: count, sum, and max data points. A NaN sum
// invalidates the whole reading, since count and max without a total are
// not meaningful.
func (b *Builder) timerPoints(r meter.Reading, w Window) ([]DataPoint, int) {
	for _, m := range r.Measurements {
		if m.Stat == meter.StatTotal && math.IsNaN(m.Value) {
			return nil, len(r.Measurements)
		}
	}

	return b.independentPoints(r, w)
}

// independentPoints emits one data point per measurement, each filtered on
// its own, suffixed by statistic.
func (b *Builder) independentPoints(r meter.Reading, w Window) ([]DataPoint, int) {
	points := make([]DataPoint, 0, len(r.Measurements))
	dropped := 0

	for _, m := range r.Measurements {
		value, ok := b.clamp(m.Value)
		if !ok {
			dropped++

			continue
		}

		points = append(points, b.point(r, statSuffix(m.Stat), value, w))
	}

	return points, dropped
}

func (b *Builder) point(r meter.Reading, suffix string, value float64, w Window) DataPoint {
	return DataPoint{
		Name:   metricName(r.ID, suffix),
		Tags:   sanitizeTags(r.ID.Tags),
		Window: w,
		Value:  value,
		Unit:   r.Unit,
	}
}

// clamp validates a raw measurement value. NaN is rejected; infinite or
// out-of-range magnitudes are clamped to the backend bound, preserving
// sign.
func (b *Builder) clamp(v float64) (float64, bool) {
	if math.IsNaN(v) {
		return 0, false
	}

	if v > b.maxMagnitude {
		return b.maxMagnitude, true
	}

	if v < -b.maxMagnitude {
		return -b.maxMagnitude, true
	}

	return v, true
}

// metricName appends the statistic suffix when present. An empty suffix
// leaves the name untouched rather than adding an empty segment.
func metricName(id meter.ID, suffix string) string {
	if suffix == "" {
		return id.Name
	}

	return id.Name + "." + suffix
}

// statSuffix maps a statistic to its output name segment.
func statSuffix(stat meter.Statistic) string {
	switch stat {
	case meter.StatCount:
		return "count"
	case meter.StatTotal:
		return "sum"
	case meter.StatMax:
		return "max"
	default:
		return ""
	}
}

// sanitizeTags removes tags with empty values. A point whose tags all
// vanish is still emitted untagged.
func sanitizeTags(tags []meter.Tag) []meter.Tag {
	clean := make([]meter.Tag, 0, len(tags))

	for _, t := range tags {
		if t.Value == "" {
			continue
		}

		clean = append(clean, t)
	}

	if len(clean) == 0 {
		return nil
	}

	return clean
}
