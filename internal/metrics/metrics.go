package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counter and gauge names used across the service
const (
	CounterRequestsCreated     = "requests_created"
	CounterRequestsUpdated     = "requests_updated"
	CounterRequestsDeleted     = "requests_deleted"
	CounterTransitionsApplied  = "transitions_applied"
	CounterTransitionsRejected = "transitions_rejected"
	CounterReadFailures        = "read_failures"
	CounterWriteFailures       = "write_failures"
	CounterExportsGenerated    = "exports_generated"

	GaugeActiveQueueSize = "active_queue_size"
)

// TimerSnapshot captures timing information for one operation
type TimerSnapshot struct {
	Count         int64   `json:"count"`
	TotalTimeMs   int64   `json:"total_time_ms"`
	AverageTimeMs float64 `json:"average_time_ms"`
	MaxTimeMs     int64   `json:"max_time_ms"`
}

// Snapshot is a point-in-time view of all collected metrics
type Snapshot struct {
	Counters map[string]int64         `json:"counters"`
	Gauges   map[string]int64         `json:"gauges"`
	Timers   map[string]TimerSnapshot `json:"timers"`
}

type timer struct {
	count       int64
	totalTimeMs int64
	maxTimeMs   int64
}

// Metrics is the in-process metrics collector
type Metrics struct {
	mu       sync.RWMutex
	counters map[string]*int64
	gauges   map[string]*int64
	timers   map[string]*timer
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		counters: make(map[string]*int64),
		gauges:   make(map[string]*int64),
		timers:   make(map[string]*timer),
	}
}

// IncrCounter increments a named counter
func (m *Metrics) IncrCounter(name string) {
	atomic.AddInt64(m.counter(name), 1)
}

// SetGauge sets a named gauge to a point-in-time value
func (m *Metrics) SetGauge(name string, value int64) {
	atomic.StoreInt64(m.gauge(name), value)
}

// RecordDuration records a timing sample for a named operation
func (m *Metrics) RecordDuration(name string, d time.Duration) {
	t := m.timer(name)
	ms := d.Milliseconds()

	atomic.AddInt64(&t.count, 1)
	atomic.AddInt64(&t.totalTimeMs, ms)
	for {
		max := atomic.LoadInt64(&t.maxTimeMs)
		if ms <= max || atomic.CompareAndSwapInt64(&t.maxTimeMs, max, ms) {
			break
		}
	}
}

// Snapshot returns a point-in-time view of all metrics
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		Counters: make(map[string]int64, len(m.counters)),
		Gauges:   make(map[string]int64, len(m.gauges)),
		Timers:   make(map[string]TimerSnapshot, len(m.timers)),
	}
	for name, v := range m.counters {
		snap.Counters[name] = atomic.LoadInt64(v)
	}
	for name, v := range m.gauges {
		snap.Gauges[name] = atomic.LoadInt64(v)
	}
	for name, t := range m.timers {
		count := atomic.LoadInt64(&t.count)
		total := atomic.LoadInt64(&t.totalTimeMs)
		ts := TimerSnapshot{
			Count:       count,
			TotalTimeMs: total,
			MaxTimeMs:   atomic.LoadInt64(&t.maxTimeMs),
		}
		if count > 0 {
			ts.AverageTimeMs = float64(total) / float64(count)
		}
		snap.Timers[name] = ts
	}
	return snap
}

func (m *Metrics) counter(name string) *int64 {
	m.mu.RLock()
	v, ok := m.counters[name]
	m.mu.RUnlock()
	if ok {
		return v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok = m.counters[name]; ok {
		return v
	}
	v = new(int64)
	m.counters[name] = v
	return v
}

func (m *Metrics) gauge(name string) *int64 {
	m.mu.RLock()
	v, ok := m.gauges[name]
	m.mu.RUnlock()
	if ok {
		return v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok = m.gauges[name]; ok {
		return v
	}
	v = new(int64)
	m.gauges[name] = v
	return v
}

func (m *Metrics) timer(name string) *timer {
	m.mu.RLock()
	t, ok := m.timers[name]
	m.mu.RUnlock()
	if ok {
		return t
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok = m.timers[name]; ok {
		return t
	}
	t = &timer{}
	m.timers[name] = t
	return t
}
