package meter

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing float accumulator.
type Counter struct {
	id   ID
	bits atomic.Uint64
}

func newCounter(id ID) *Counter {
	return &Counter{id: id}
}

func (c *Counter) ID() ID     { return c.id }
func (c *Counter) Kind() Kind { return KindCounter }

// Add increments the counter. Negative and NaN amounts are ignored; a NaN
// would otherwise stick in the accumulator forever.
func (c *Counter) Add(amount float64) {
	if amount < 0 || math.IsNaN(amount) {
		return
	}

	for {
		old := c.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + amount)

		if c.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

// Inc increments the counter by one.
func (c *Counter) Inc() {
	c.Add(1)
}

// Count returns the accumulated total.
func (c *Counter) Count() float64 {
	return math.Float64frombits(c.bits.Load())
}

func (c *Counter) Measure() []Measurement {
	return []Measurement{{Stat: StatCount, Value: c.Count()}}
}

// Gauge is an instantaneous value, either set explicitly or observed
// through a function at read time.
type Gauge struct {
	id   ID
	kind Kind
	fn   func() float64
	bits atomic.Uint64
}

func newGauge(id ID) *Gauge {
	g := &Gauge{id: id, kind: KindGauge}
	g.bits.Store(math.Float64bits(math.NaN()))

	return g
}

func newGaugeFunc(id ID, kind Kind, fn func() float64) *Gauge {
	return &Gauge{id: id, kind: kind, fn: fn}
}

func (g *Gauge) ID() ID     { return g.id }
func (g *Gauge) Kind() Kind { return g.kind }

// Set records the current value. No-op for function-backed gauges.
func (g *Gauge) Set(value float64) {
	if g.fn != nil {
		return
	}

	g.bits.Store(math.Float64bits(value))
}

// Value returns the current value. A settable gauge that was never set
// reads as NaN, which the batch builder filters out.
func (g *Gauge) Value() float64 {
	if g.fn != nil {
		return g.fn()
	}

	return math.Float64frombits(g.bits.Load())
}

func (g *Gauge) Measure() []Measurement {
	return []Measurement{{Stat: StatValue, Value: g.Value()}}
}

// Timer records durations and tracks their count, total, and maximum.
// Totals are kept in seconds.
type Timer struct {
	id    ID
	mu    sync.Mutex
	count uint64
	total float64
	max   float64
}

func newTimer(id ID) *Timer {
	return &Timer{id: id}
}

func (t *Timer) ID() ID     { return t.id }
func (t *Timer) Kind() Kind { return KindTimer }

// Record adds one observation. Negative durations are ignored.
func (t *Timer) Record(d time.Duration) {
	if d < 0 {
		return
	}

	secs := d.Seconds()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.count++
	t.total += secs

	if secs > t.max {
		t.max = secs
	}
}

// Time runs fn and records its duration.
func (t *Timer) Time(fn func()) {
	start := time.Now()
	fn()
	t.Record(time.Since(start))
}

func (t *Timer) Measure() []Measurement {
	t.mu.Lock()
	defer t.mu.Unlock()

	return []Measurement{
		{Stat: StatCount, Value: float64(t.count)},
		{Stat: StatTotal, Value: t.total},
		{Stat: StatMax, Value: t.max},
	}
}

// Summary records arbitrary amounts and tracks their count, total, and
// maximum.
type Summary struct {
	id    ID
	mu    sync.Mutex
	count uint64
	total float64
	max   float64
}

func newSummary(id ID) *Summary {
	return &Summary{id: id}
}

func (s *Summary) ID() ID     { return s.id }
func (s *Summary) Kind() Kind { return KindSummary }

// Record adds one observation. Negative amounts are ignored.
func (s *Summary) Record(amount float64) {
	if amount < 0 || math.IsNaN(amount) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	s.total += amount

	if amount > s.max {
		s.max = amount
	}
}

func (s *Summary) Measure() []Measurement {
	s.mu.Lock()
	defer s.mu.Unlock()

	return []Measurement{
		{Stat: StatCount, Value: float64(s.count)},
		{Stat: StatTotal, Value: s.total},
		{Stat: StatMax, Value: s.max},
	}
}

// FunctionCounter reads a monotonic total from a function at snapshot time.
type FunctionCounter struct {
	id ID
	fn func() float64
}

func newFunctionCounter(id ID, fn func() float64) *FunctionCounter {
	return &FunctionCounter{id: id, fn: fn}
}

func (c *FunctionCounter) ID() ID     { return c.id }
func (c *FunctionCounter) Kind() Kind { return KindFunctionCounter }

func (c *FunctionCounter) Measure() []Measurement {
	return []Measurement{{Stat: StatCount, Value: c.fn()}}
}

// FunctionTimer reads a monotonic count and total time (in seconds) from
// functions at snapshot time. It carries no max statistic.
type FunctionTimer struct {
	id      ID
	countFn func() float64
	totalFn func() float64
}

func newFunctionTimer(id ID, countFn, totalFn func() float64) *FunctionTimer {
	return &FunctionTimer{id: id, countFn: countFn, totalFn: totalFn}
}

func (t *FunctionTimer) ID() ID     { return t.id }
func (t *FunctionTimer) Kind() Kind { return KindFunctionTimer }

func (t *FunctionTimer) Measure() []Measurement {
	return []Measurement{
		{Stat: StatCount, Value: t.countFn()},
		{Stat: StatTotal, Value: t.totalFn()},
	}
}

// customMeter exposes an arbitrary measurement function as a meter.
type customMeter struct {
	id      ID
	measure func() []Measurement
}

func (m *customMeter) ID() ID     { return m.id }
func (m *customMeter) Kind() Kind { return KindCustom }

func (m *customMeter) Measure() []Measurement {
	return m.measure()
}
