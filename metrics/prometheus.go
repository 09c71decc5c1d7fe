// Package metrics provides an optional Prometheus-backed StatsCollector,
// for callers that want the simulator's counters exported as real metrics
// instead of read back in-process via flashcache.LocalStats.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	flashcache "github.com/codeGROOVE-dev/flashcache"
)

var _ flashcache.StatsCollector = (*PrometheusStats)(nil)

// PrometheusStats implements flashcache.StatsCollector, mirroring every
// counter into a labeled Prometheus CounterVec/GaugeVec pair (one series
// per counter name) while keeping an in-memory copy so Value reads don't
// need to round-trip through the Prometheus client's own storage.
type PrometheusStats struct {
	mu       sync.Mutex
	counters map[string]int64

	incrTotal *prometheus.CounterVec
	current   *prometheus.GaugeVec
}

// NewPrometheusStats creates a StatsCollector registered against reg under
// the given namespace. reg may be nil, in which case the collectors are
// created but never registered (useful in tests that don't want a global
// registry side effect).
func NewPrometheusStats(reg prometheus.Registerer, namespace string) *PrometheusStats {
	p := &PrometheusStats{
		counters: make(map[string]int64),
		incrTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "counter_total",
			Help:      "Cumulative sum of positive increments applied to a named flashcache counter.",
		}, []string{"name"}),
		current: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "counter_value",
			Help:      "Current absolute value of a named flashcache counter.",
		}, []string{"name"}),
	}
	if reg != nil {
		reg.MustRegister(p.incrTotal, p.current)
	}
	return p
}

// Incr adds delta to the named counter. Only non-negative deltas advance
// the cumulative CounterVec series (Prometheus counters must never
// decrease); every delta, positive or negative, updates the GaugeVec
// mirror of the counter's current value.
func (p *PrometheusStats) Incr(name string, delta int64) {
	p.mu.Lock()
	p.counters[name] += delta
	cur := p.counters[name]
	p.mu.Unlock()

	if delta > 0 {
		p.incrTotal.WithLabelValues(name).Add(float64(delta))
	}
	p.current.WithLabelValues(name).Set(float64(cur))
}

// Set pins the named counter to an absolute value.
func (p *PrometheusStats) Set(name string, value int64) {
	p.mu.Lock()
	p.counters[name] = value
	p.mu.Unlock()
	p.current.WithLabelValues(name).Set(float64(value))
}

// Value returns the current value of the named counter (0 if unseen).
func (p *PrometheusStats) Value(name string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counters[name]
}
