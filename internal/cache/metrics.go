package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes a tier's counters to prometheus. A nil *Metrics is a
// valid no-op receiver so uninstrumented tiers pay nothing.
type Metrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	sets      prometheus.Counter
	evictions prometheus.Counter
	size      prometheus.Gauge
}

// NewMetrics registers the tier's collectors on reg under the given tier
// label ("text", "rows", "index").
func NewMetrics(reg prometheus.Registerer, tier string) *Metrics {
	labels := prometheus.Labels{"tier": tier}
	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "scenedex_cache_hits_total",
			Help:        "Cache lookups served from memory.",
			ConstLabels: labels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "scenedex_cache_misses_total",
			Help:        "Cache lookups that had to rebuild.",
			ConstLabels: labels,
		}),
		sets: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "scenedex_cache_sets_total",
			Help:        "Entries stored.",
			ConstLabels: labels,
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "scenedex_cache_evictions_total",
			Help:        "Entries evicted by the size bound.",
			ConstLabels: labels,
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "scenedex_cache_entries",
			Help:        "Entries currently held.",
			ConstLabels: labels,
		}),
	}
	reg.MustRegister(m.hits, m.misses, m.sets, m.evictions, m.size)
	return m
}

func (m *Metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) set(size int) {
	if m != nil {
		m.sets.Inc()
		m.size.Set(float64(size))
	}
}

func (m *Metrics) evict(size int) {
	if m != nil {
		m.evictions.Inc()
		m.size.Set(float64(size))
	}
}

func (m *Metrics) resize(size int) {
	if m != nil {
		m.size.Set(float64(size))
	}
}
