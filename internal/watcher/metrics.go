package watcher

import (
	"sync"
	"time"

	"alpaca/pkg/logging"
)

// Metrics counts the reconciliations triggered while watching.
type Metrics struct {
	mu    sync.RWMutex
	clock Clock

	attempts  int64
	successes int64
	failures  int64
	changes   int64

	lastRunAt     time.Time
	lastSuccessAt time.Time
	lastFailureAt time.Time
	lastError     string
}

// Summary is a point-in-time copy of Metrics.
type Summary struct {
	Attempts      int64     `json:"attempts" yaml:"attempts"`
	Successes     int64     `json:"successes" yaml:"successes"`
	Failures      int64     `json:"failures" yaml:"failures"`
	Changes       int64     `json:"changes" yaml:"changes"`
	LastRunAt     time.Time `json:"lastRunAt,omitempty" yaml:"lastRunAt,omitempty"`
	LastSuccessAt time.Time `json:"lastSuccessAt,omitempty" yaml:"lastSuccessAt,omitempty"`
	LastFailureAt time.Time `json:"lastFailureAt,omitempty" yaml:"lastFailureAt,omitempty"`
	LastError     string    `json:"lastError,omitempty" yaml:"lastError,omitempty"`
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	return NewMetricsWithClock(RealClock{})
}

// NewMetricsWithClock creates an empty Metrics that timestamps runs with
// clock.
func NewMetricsWithClock(clock Clock) *Metrics {
	return &Metrics{clock: clock}
}

// RecordSuccess records a reconciliation that finished; changed reports
// whether it modified anything.
func (m *Metrics) RecordSuccess(path string, changed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.attempts++
	m.successes++
	m.lastRunAt = now
	m.lastSuccessAt = now
	if changed {
		m.changes++
	}
	logging.Debug("Metrics", "Reconcile success for %s (changed=%t)", path, changed)
}

// RecordFailure records a reconciliation that returned an error.
func (m *Metrics) RecordFailure(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.attempts++
	m.failures++
	m.lastRunAt = now
	m.lastFailureAt = now
	if err != nil {
		m.lastError = err.Error()
	}
	logging.Debug("Metrics", "Reconcile failure for %s: %v", path, err)
}

// Summary returns the current counters.
func (m *Metrics) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Summary{
		Attempts:      m.attempts,
		Successes:     m.successes,
		Failures:      m.failures,
		Changes:       m.changes,
		LastRunAt:     m.lastRunAt,
		LastSuccessAt: m.lastSuccessAt,
		LastFailureAt: m.lastFailureAt,
		LastError:     m.lastError,
	}
}

// SuccessRate returns successes/attempts as a percentage, 100 when nothing
// ran yet.
func (m *Metrics) SuccessRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.attempts == 0 {
		return 100
	}
	return float64(m.successes) / float64(m.attempts) * 100
}
