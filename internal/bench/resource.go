package bench

import (
	"runtime"
	"sync"
	"time"
)

// ResourceMetrics summarizes process resource usage over one monitored
// phase.
type ResourceMetrics struct {
	PeakHeapBytes uint64  `json:"peak_heap_bytes"`
	AvgHeapBytes  float64 `json:"avg_heap_bytes"`
	NumGC         uint32  `json:"num_gc"`
	DurationSec   float64 `json:"duration_sec"`
}

// ResourceMonitor samples heap usage in the background while a benchmark
// phase runs. Only the harness process is observed; server-side resource
// usage belongs to the benchmarked database and is out of scope here.
type ResourceMonitor struct {
	interval time.Duration

	mu       sync.Mutex
	started  time.Time
	startGC  uint32
	peakHeap uint64
	sumHeap  float64
	samples  int
	stop     chan struct{}
	done     chan struct{}
}

// NewResourceMonitor creates a monitor sampling at the given interval.
func NewResourceMonitor(interval time.Duration) *ResourceMonitor {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &ResourceMonitor{interval: interval}
}

// Start begins sampling until Stop is called.
func (m *ResourceMonitor) Start() {
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	m.started = time.Now()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.startGC = ms.NumGC
	m.record(&ms)

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				var ms runtime.MemStats
				runtime.ReadMemStats(&ms)
				m.record(&ms)
			}
		}
	}()
}

// Stop ends sampling and returns the collected metrics.
func (m *ResourceMonitor) Stop() ResourceMetrics {
	close(m.stop)
	<-m.done

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.record(&ms)

	m.mu.Lock()
	defer m.mu.Unlock()
	metrics := ResourceMetrics{
		PeakHeapBytes: m.peakHeap,
		NumGC:         ms.NumGC - m.startGC,
		DurationSec:   time.Since(m.started).Seconds(),
	}
	if m.samples > 0 {
		metrics.AvgHeapBytes = m.sumHeap / float64(m.samples)
	}
	return metrics
}

func (m *ResourceMonitor) record(ms *runtime.MemStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ms.HeapAlloc > m.peakHeap {
		m.peakHeap = ms.HeapAlloc
	}
	m.sumHeap += float64(ms.HeapAlloc)
	m.samples++
}
