package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "macro_heatmap"

// Metrics holds the collectors for the reload and compose paths.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	rowsIngested     *prometheus.CounterVec
	refreshes        *prometheus.CounterVec
	providerFailures *prometheus.CounterVec
	cellsComposed    *prometheus.CounterVec
	composeDuration  prometheus.Histogram
	lastRefresh      prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rowsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_ingested_total",
			Help:      "Raw observation rows seen by ingestion, by result (accepted, dropped).",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Store reloads by outcome (live, archive, empty).",
		}, []string{"outcome"}),
		providerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_failures_total",
			Help:      "Failed fetches per data provider.",
		}, []string{"provider"}),
		cellsComposed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cells_composed_total",
			Help:      "Grid cells produced, by status.",
		}, []string{"status"}),
		composeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compose_duration_seconds",
			Help:      "Time spent composing a grid.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		lastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last reload that published a store.",
		}),
	}
	m.registry.MustRegister(
		m.rowsIngested,
		m.refreshes,
		m.providerFailures,
		m.cellsComposed,
		m.composeDuration,
		m.lastRefresh,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RowsIngested(accepted, dropped int) {
	if m == nil {
		return
	}
	m.rowsIngested.WithLabelValues("accepted").Add(float64(accepted))
	m.rowsIngested.WithLabelValues("dropped").Add(float64(dropped))
}

func (m *Metrics) Refresh(outcome string, at time.Time) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
	if outcome != "empty" {
		m.lastRefresh.Set(float64(at.Unix()))
	}
}

func (m *Metrics) ProviderFailure(provider string) {
	if m == nil {
		return
	}
	m.providerFailures.WithLabelValues(provider).Inc()
}

func (m *Metrics) Composed(statusCounts map[string]int, took time.Duration) {
	if m == nil {
		return
	}
	for status, n := range statusCounts {
		m.cellsComposed.WithLabelValues(status).Add(float64(n))
	}
	m.composeDuration.Observe(took.Seconds())
}
