package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts cache activity per key family. A nil *Metrics records
// nothing, so the cache works without a registry.
type Metrics struct {
	Hits          *prometheus.CounterVec
	Loads         *prometheus.CounterVec
	LoadErrors    *prometheus.CounterVec
	StaleDiscards *prometheus.CounterVec
	Invalidations *prometheus.CounterVec
}

// NewMetrics registers the cache counters with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	f := promauto.With(registerer)
	labels := []string{"query"}
	return &Metrics{
		Hits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_query_cache_hits_total",
			Help: "Reads answered from the query cache",
		}, labels),
		Loads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_query_loads_total",
			Help: "Repository loads started by the query cache",
		}, labels),
		LoadErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_query_load_errors_total",
			Help: "Repository loads that failed",
		}, labels),
		StaleDiscards: f.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_query_stale_results_total",
			Help: "Load results dropped because the key was invalidated meanwhile",
		}, labels),
		Invalidations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_query_invalidations_total",
			Help: "Cache invalidations",
		}, labels),
	}
}

func (m *Metrics) hit(k Key) {
	if m != nil {
		m.Hits.WithLabelValues(k.family()).Inc()
	}
}

func (m *Metrics) load(k Key) {
	if m != nil {
		m.Loads.WithLabelValues(k.family()).Inc()
	}
}

func (m *Metrics) failed(k Key) {
	if m != nil {
		m.LoadErrors.WithLabelValues(k.family()).Inc()
	}
}

func (m *Metrics) stale(k Key) {
	if m != nil {
		m.StaleDiscards.WithLabelValues(k.family()).Inc()
	}
}

func (m *Metrics) invalidated(k Key) {
	if m != nil {
		m.Invalidations.WithLabelValues(k.family()).Inc()
	}
}
