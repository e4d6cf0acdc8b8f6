package agent

import (
	"runtime"
	"sync"
	"time"

	"github.com/steppush/steppush/internal/meter"
)

// memStatsMaxAge bounds how stale a cached runtime.MemStats sample may be.
// ReadMemStats stops the world, so one sample is shared by all runtime
// meters within a snapshot rather than read per measurement.
const memStatsMaxAge = time.Second

// runtimeSampler caches runtime.MemStats between meter reads.
type runtimeSampler struct {
	mu      sync.Mutex
	stats   runtime.MemStats
	sampled time.Time
}

func (s *runtimeSampler) sample() runtime.MemStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.sampled) > memStatsMaxAge {
		runtime.ReadMemStats(&s.stats)
		s.sampled = time.Now()
	}

	return s.stats
}

// registerRuntimeMeters instruments the Go runtime so the agent publishes
// real data out of the box: goroutine count, heap usage, and GC activity.
func registerRuntimeMeters(reg *meter.Registry) {
	sampler := &runtimeSampler{}

	reg.GaugeFunc("go.goroutines", func() float64 {
		return float64(runtime.NumGoroutine())
	})

	reg.GaugeFunc("go.memory.heap_alloc_bytes", func() float64 {
		return float64(sampler.sample().HeapAlloc)
	})

	reg.GaugeFunc("go.memory.heap_objects", func() float64 {
		return float64(sampler.sample().HeapObjects)
	})

	reg.GaugeFunc("go.memory.sys_bytes", func() float64 {
		return float64(sampler.sample().Sys)
	})

	reg.FunctionCounter("go.memory.allocs", func() float64 {
		return float64(sampler.sample().Mallocs)
	})

	// GC pauses as a function timer: cycle count plus total pause time.
	reg.FunctionTimer("go.gc.pause",
		func() float64 {
			return float64(sampler.sample().NumGC)
		},
		func() float64 {
			return time.Duration(sampler.sample().PauseTotalNs).Seconds()
		},
	)
}
