// Package observability exposes Prometheus metrics for the scan pipelines
// and the API server.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics aggregates all collectors. A nil *Metrics is valid and records
// nothing, so pipelines can run without a registry in tests.
type Metrics struct {
	ScansTotal      *prometheus.CounterVec
	ScanDuration    prometheus.Histogram
	SignalsTotal    *prometheus.CounterVec
	CandidatesTotal prometheus.Counter
	StoreErrors     *prometheus.CounterVec
}

// New registers all collectors with the registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gaplab_scans_total",
			Help: "Completed scan runs by outcome.",
		}, []string{"outcome"}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gaplab_scan_duration_seconds",
			Help:    "Wall time of one scan run.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gaplab_signals_total",
			Help: "Emitted gap signals by direction, magnitude and calc mode.",
		}, []string{"direction", "magnitude", "calc_mode"}),
		CandidatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gaplab_candidates_total",
			Help: "Expanded (news, stock, event) candidates evaluated.",
		}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gaplab_store_errors_total",
			Help: "Storage failures by store.",
		}, []string{"store"}),
	}
	reg.MustRegister(m.ScansTotal, m.ScanDuration, m.SignalsTotal, m.CandidatesTotal, m.StoreErrors)
	return m
}

// ObserveScan records one completed run.
func (m *Metrics) ObserveScan(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(outcome).Inc()
	m.ScanDuration.Observe(seconds)
}

// ObserveSignal records one emitted signal.
func (m *Metrics) ObserveSignal(direction, magnitude, calcMode string) {
	if m == nil {
		return
	}
	m.SignalsTotal.WithLabelValues(direction, magnitude, calcMode).Inc()
}

// ObserveCandidate records one evaluated candidate.
func (m *Metrics) ObserveCandidate() {
	if m == nil {
		return
	}
	m.CandidatesTotal.Inc()
}

// ObserveStoreError records one storage failure.
func (m *Metrics) ObserveStoreError(store string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(store).Inc()
}
