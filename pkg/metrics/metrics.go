// Package metrics provides Prometheus-compatible metrics collection for the
// audit pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "accesslens"

// Metrics holds the instrument set on a private registry so tests can create
// independent instances without collisions.
type Metrics struct {
	registry *prometheus.Registry

	AuditsTotal     *prometheus.CounterVec
	ViolationsTotal *prometheus.CounterVec
	AuditDuration   *prometheus.HistogramVec
	ContextsInUse   prometheus.Gauge
	PoolWait        prometheus.Histogram
	StoreSaves      *prometheus.CounterVec
	SweepsTotal     *prometheus.CounterVec
	RunsPruned      prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		AuditsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audits_total",
			Help:      "Completed audit runs by target kind and final status.",
		}, []string{"kind", "status"}),
		ViolationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Violations found across all runs, by severity.",
		}, []string{"severity"}),
		AuditDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "audit_duration_seconds",
			Help:      "End-to-end audit duration by target kind.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind"}),
		ContextsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "browser_contexts_in_use",
			Help:      "Browser contexts currently leased from the pool.",
		}),
		PoolWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "browser_pool_wait_seconds",
			Help:      "Time spent waiting to acquire a browser context.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 30},
		}),
		StoreSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_saves_total",
			Help:      "Artifact save attempts by outcome.",
		}, []string{"outcome"}),
		SweepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_sweeps_total",
			Help:      "Retention sweep cycles by outcome.",
		}, []string{"outcome"}),
		RunsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_runs_pruned_total",
			Help:      "Run artifacts removed by the retention sweeper.",
		}),
	}

	registry.MustRegister(
		m.AuditsTotal,
		m.ViolationsTotal,
		m.AuditDuration,
		m.ContextsInUse,
		m.PoolWait,
		m.StoreSaves,
		m.SweepsTotal,
		m.RunsPruned,
	)
	return m
}

// ObserveAudit records one finished run.
func (m *Metrics) ObserveAudit(kind, status string, severities map[string]int, duration time.Duration) {
	m.AuditsTotal.WithLabelValues(kind, status).Inc()
	m.AuditDuration.WithLabelValues(kind).Observe(duration.Seconds())
	for sev, n := range severities {
		m.ViolationsTotal.WithLabelValues(sev).Add(float64(n))
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
