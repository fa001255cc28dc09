// Package metrics provides Prometheus instrumentation for the flagdgo provider.
//
// All metrics are registered in a custom [prometheus.Registry] (not the global
// default) so that only flagdgo metrics appear on the /metrics endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors used by the flagdgo provider.
type Metrics struct {
	Registry *prometheus.Registry

	CacheSize           prometheus.Gauge
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
	CacheEvictionsTotal prometheus.Counter
	CachePurgesTotal    prometheus.Counter

	EvaluationsTotal *prometheus.CounterVec

	StoreInstallsTotal      prometheus.Counter
	StoreInstallErrorsTotal prometheus.Counter
	StoreChangedKeysTotal   prometheus.Counter

	SyncReconnectsTotal prometheus.Counter
	SyncBackoffSeconds  prometheus.Histogram
	ActiveStreams       *prometheus.GaugeVec
}

// New creates and registers all flagdgo metrics in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		CacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flagdgo_cache_size",
			Help: "Number of entries currently held in the resolution cache.",
		}),

		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flagdgo_cache_hits_total",
			Help: "Total number of cache lookups that found a live entry.",
		}),

		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flagdgo_cache_misses_total",
			Help: "Total number of cache lookups that found no live entry.",
		}),

		CacheEvictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flagdgo_cache_evictions_total",
			Help: "Total number of entries displaced by the eviction policy.",
		}),

		CachePurgesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flagdgo_cache_purges_total",
			Help: "Total number of full cache purges (one per store install).",
		}),

		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flagdgo_evaluations_total",
			Help: "Total number of flag evaluations by resolution reason.",
		}, []string{"reason"}),

		StoreInstallsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flagdgo_store_installs_total",
			Help: "Total number of successful flag-set installs.",
		}),

		StoreInstallErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flagdgo_store_install_errors_total",
			Help: "Total number of flag-set installs that failed to parse.",
		}),

		StoreChangedKeysTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flagdgo_store_changed_keys_total",
			Help: "Cumulative number of flag keys reported changed across installs.",
		}),

		SyncReconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flagdgo_sync_reconnects_total",
			Help: "Total number of sync connector reconnect attempts.",
		}),

		SyncBackoffSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flagdgo_sync_backoff_seconds",
			Help:    "Backoff delay observed before each reconnect attempt.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),

		ActiveStreams: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "flagdgo_active_streams",
			Help: "Number of active sync streams by transport.",
		}, []string{"transport"}),
	}

	reg.MustRegister(
		m.CacheSize,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheEvictionsTotal,
		m.CachePurgesTotal,
		m.EvaluationsTotal,
		m.StoreInstallsTotal,
		m.StoreInstallErrorsTotal,
		m.StoreChangedKeysTotal,
		m.SyncReconnectsTotal,
		m.SyncBackoffSeconds,
		m.ActiveStreams,
	)

	return m
}

// Handler returns an [http.Handler] that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// RecordEvaluation increments the evaluation counter for the given reason.
func (m *Metrics) RecordEvaluation(reason string) {
	m.EvaluationsTotal.WithLabelValues(reason).Inc()
}
