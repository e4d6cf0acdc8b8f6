package meter

import (
	"fmt"
	"sync"
)

// Registry holds all registered meters, keyed by name plus tag set.
// Registering the same name and tags twice returns the existing instrument.
// Recording and snapshotting may run concurrently.
type Registry struct {
	mu     sync.RWMutex
	meters map[string]Meter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		meters: make(map[string]Meter, 64),
	}
}

// getOrCreate returns the meter registered under id, creating it with make
// when absent. Registering the same ID as a different instrument type is a
// programming error and panics.
func (r *Registry) getOrCreate(id ID, make func() Meter) Meter {
	key := id.key()

	r.mu.RLock()
	existing, ok := r.meters[key]
	r.mu.RUnlock()

	if ok {
		return existing
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.meters[key]; ok {
		return existing
	}

	m := make()
	r.meters[key] = m

	return m
}

// Counter registers or looks up a counter.
func (r *Registry) Counter(name string, tags ...Tag) *Counter {
	id := NewID(name, tags...)

	m := r.getOrCreate(id, func() Meter { return newCounter(id) })

	c, ok := m.(*Counter)
	if !ok {
		panic(fmt.Sprintf("meter %q already registered as %s", name, m.Kind()))
	}

	return c
}

// Gauge registers or looks up a settable gauge.
func (r *Registry) Gauge(name string, tags ...Tag) *Gauge {
	id := NewID(name, tags...)

	m := r.getOrCreate(id, func() Meter { return newGauge(id) })

	g, ok := m.(*Gauge)
	if !ok {
		panic(fmt.Sprintf("meter %q already registered as %s", name, m.Kind()))
	}

	return g
}

// GaugeFunc registers or looks up a gauge observed through fn at snapshot
// time.
func (r *Registry) GaugeFunc(name string, fn func() float64, tags ...Tag) *Gauge {
	id := NewID(name, tags...)

	m := r.getOrCreate(id, func() Meter { return newGaugeFunc(id, KindGauge, fn) })

	g, ok := m.(*Gauge)
	if !ok {
		panic(fmt.Sprintf("meter %q already registered as %s", name, m.Kind()))
	}

	return g
}

// TimeGauge registers or looks up a gauge whose fn reports a duration in
// seconds.
func (r *Registry) TimeGauge(name string, fn func() float64, tags ...Tag) *Gauge {
	id := NewID(name, tags...)

	m := r.getOrCreate(id, func() Meter { return newGaugeFunc(id, KindTimeGauge, fn) })

	g, ok := m.(*Gauge)
	if !ok {
		panic(fmt.Sprintf("meter %q already registered as %s", name, m.Kind()))
	}

	return g
}

// Timer registers or looks up a timer.
func (r *Registry) Timer(name string, tags ...Tag) *Timer {
	id := NewID(name, tags...)

	m := r.getOrCreate(id, func() Meter { return newTimer(id) })

	t, ok := m.(*Timer)
	if !ok {
		panic(fmt.Sprintf("meter %q already registered as %s", name, m.Kind()))
	}

	return t
}

// Summary registers or looks up a distribution summary.
func (r *Registry) Summary(name string, tags ...Tag) *Summary {
	id := NewID(name, tags...)

	m := r.getOrCreate(id, func() Meter { return newSummary(id) })

	s, ok := m.(*Summary)
	if !ok {
		panic(fmt.Sprintf("meter %q already registered as %s", name, m.Kind()))
	}

	return s
}

// FunctionCounter registers or looks up a function-backed counter.
func (r *Registry) FunctionCounter(name string, fn func() float64, tags ...Tag) *FunctionCounter {
	id := NewID(name, tags...)

	m := r.getOrCreate(id, func() Meter { return newFunctionCounter(id, fn) })

	c, ok := m.(*FunctionCounter)
	if !ok {
		panic(fmt.Sprintf("meter %q already registered as %s", name, m.Kind()))
	}

	return c
}

// FunctionTimer registers or looks up a function-backed timer. totalFn
// reports accumulated time in seconds.
func (r *Registry) FunctionTimer(name string, countFn, totalFn func() float64, tags ...Tag) *FunctionTimer {
	id := NewID(name, tags...)

	m := r.getOrCreate(id, func() Meter { return newFunctionTimer(id, countFn, totalFn) })

	t, ok := m.(*FunctionTimer)
	if !ok {
		panic(fmt.Sprintf("meter %q already registered as %s", name, m.Kind()))
	}

	return t
}

// Custom registers or looks up a meter with an arbitrary measurement
// function.
func (r *Registry) Custom(name string, measure func() []Measurement, tags ...Tag) Meter {
	id := NewID(name, tags...)

	m := r.getOrCreate(id, func() Meter {
		return &customMeter{id: id, measure: measure}
	})

	if _, ok := m.(*customMeter); !ok {
		panic(fmt.Sprintf("meter %q already registered as %s", name, m.Kind()))
	}

	return m
}

// Size returns the number of registered meters.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.meters)
}

// Readings snapshots every registered meter. Iteration order is not stable
// across calls. Measurements within one reading are read independently;
// recording may proceed concurrently.
func (r *Registry) Readings() []Reading {
	r.mu.RLock()
	defer r.mu.RUnlock()

	readings := make([]Reading, 0, len(r.meters))

	for _, m := range r.meters {
		readings = append(readings, Reading{
			ID:           m.ID(),
			Kind:         m.Kind(),
			Unit:         unitFor(m.Kind()),
			Measurements: m.Measure(),
		})
	}

	return readings
}

func unitFor(kind Kind) string {
	switch kind {
	case KindTimer, KindFunctionTimer, KindTimeGauge:
		return UnitSeconds
	default:
		return ""
	}
}
