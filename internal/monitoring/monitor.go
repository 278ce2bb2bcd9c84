package monitoring

import (
	"sync"
	"time"
)

// Monitor keeps a snapshot of named runtime values for the status surface.
// Prometheus handles the time series; this holds the current-state map the
// JSON status endpoint returns.
type Monitor struct {
	mu        sync.RWMutex
	metrics   map[string]interface{}
	startTime time.Time
}

// NewMonitor creates a new monitoring instance.
func NewMonitor() *Monitor {
	return &Monitor{
		metrics:   make(map[string]interface{}),
		startTime: time.Now(),
	}
}

// RecordMetric records a metric value.
func (m *Monitor) RecordMetric(name string, value interface{}) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics[name] = value
}

// Increment adds one to a counter-style metric, starting it at zero.
func (m *Monitor) Increment(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := m.metrics[name].(int)
	m.metrics[name] = n + 1
}

// GetMetric returns a specific metric value.
func (m *Monitor) GetMetric(name string) (interface{}, bool) {
	if m == nil {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, exists := m.metrics[name]
	return value, exists
}

// GetMetrics returns a copy of all current metrics plus uptime.
func (m *Monitor) GetMetrics() map[string]interface{} {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	metrics := make(map[string]interface{}, len(m.metrics)+1)
	for k, v := range m.metrics {
		metrics[k] = v
	}
	metrics["uptime_seconds"] = time.Since(m.startTime).Seconds()
	return metrics
}

// Uptime reports how long the monitor has been alive.
func (m *Monitor) Uptime() time.Duration {
	if m == nil {
		return 0
	}
	return time.Since(m.startTime)
}

// Reset clears all recorded metrics.
func (m *Monitor) Reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = make(map[string]interface{})
}
