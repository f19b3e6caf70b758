// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the Prometheus collectors for source searches. All
// methods are safe for concurrent use and are no-ops on a nil *Metrics, so
// adapters can run without a registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricSourceRequests = "evidence_source_requests_total"
	MetricSourceFailures = "evidence_source_failures_total"
	MetricRecordsKept    = "evidence_records_kept_total"
	MetricRecordsDropped = "evidence_records_dropped_total"
	MetricRecordsSkipped = "evidence_records_skipped_total"
	MetricSourceLatency  = "evidence_source_latency_seconds"
	MetricDuplicates     = "evidence_duplicates_removed_total"
	MetricSearches       = "evidence_searches_total"
)

// LabelSource is the label naming the evidence source.
const LabelSource = "source"

// Metrics contains the per-source search collectors.
type Metrics struct {
	requests   *prometheus.CounterVec
	failures   *prometheus.CounterVec
	kept       *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	skipped    *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	duplicates prometheus.Counter
	searches   prometheus.Counter
}

// NewMetrics creates the collectors. They are not registered; call Register.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSourceRequests,
			Help: "Outbound requests sent to an evidence source",
		}, []string{LabelSource}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSourceFailures,
			Help: "Source searches that failed on transport, status, or decoding",
		}, []string{LabelSource}),
		kept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRecordsKept,
			Help: "Records that met the source's relevance threshold",
		}, []string{LabelSource}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRecordsDropped,
			Help: "Records scored below the source's relevance threshold",
		}, []string{LabelSource}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRecordsSkipped,
			Help: "Raw records that could not be normalized",
		}, []string{LabelSource}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricSourceLatency,
			Help:    "Source search latency in seconds, cooldown wait included",
			Buckets: prometheus.DefBuckets,
		}, []string{LabelSource}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricDuplicates,
			Help: "Publications removed as cross-source duplicates",
		}),
		searches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricSearches,
			Help: "Aggregated searches run",
		}),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.requests,
		m.failures,
		m.kept,
		m.dropped,
		m.skipped,
		m.latency,
		m.duplicates,
		m.searches,
	}
}

func (m *Metrics) IncRequests(source string) {
	if m != nil {
		m.requests.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) IncFailures(source string) {
	if m != nil {
		m.failures.WithLabelValues(source).Inc()
	}
}

// AddRecords records the outcome of one source search.
func (m *Metrics) AddRecords(source string, kept, dropped, skipped int) {
	if m == nil {
		return
	}
	m.kept.WithLabelValues(source).Add(float64(kept))
	m.dropped.WithLabelValues(source).Add(float64(dropped))
	m.skipped.WithLabelValues(source).Add(float64(skipped))
}

func (m *Metrics) ObserveLatency(source string, seconds float64) {
	if m != nil {
		m.latency.WithLabelValues(source).Observe(seconds)
	}
}

// AddSearch counts one aggregated search and the duplicates it removed.
func (m *Metrics) AddSearch(duplicates int) {
	if m == nil {
		return
	}
	m.searches.Inc()
	m.duplicates.Add(float64(duplicates))
}
