// Package metrics holds the Prometheus collectors for the news pipeline.
//
// All methods are safe to call on a nil *Metrics, so components can run
// without instrumentation in tests and one-shot CLI runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the news pipeline.
type Metrics struct {
	ProxyAttemptsTotal *prometheus.CounterVec
	SourceFetchesTotal *prometheus.CounterVec
	ImageLookupsTotal  *prometheus.CounterVec
	RefreshDuration    prometheus.Histogram
	MergedItems        prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
//
// Metrics:
//   - newswire_proxy_attempts_total{proxy,outcome}
//   - newswire_source_fetches_total{source,outcome}
//   - newswire_image_lookups_total{outcome}
//   - newswire_refresh_duration_seconds
//   - newswire_merged_items
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ProxyAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newswire_proxy_attempts_total",
				Help: "Total number of proxied fetch attempts",
			},
			[]string{"proxy", "outcome"}, // "ok" or "error"
		),

		SourceFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newswire_source_fetches_total",
				Help: "Total number of per-source fetch and parse runs",
			},
			[]string{"source", "outcome"},
		),

		ImageLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newswire_image_lookups_total",
				Help: "Total number of image enrichment lookups",
			},
			[]string{"outcome"}, // "cache_hit", "found", "not_found", "error"
		),

		RefreshDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "newswire_refresh_duration_seconds",
				Help:    "Duration of full news refreshes in seconds",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to 32s
			},
		),

		MergedItems: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "newswire_merged_items",
				Help: "Number of items in the last merged result",
			},
		),
	}
}

// RecordProxyAttempt records one proxied request.
func (m *Metrics) RecordProxyAttempt(proxy string, err error) {
	if m == nil {
		return
	}
	m.ProxyAttemptsTotal.WithLabelValues(proxy, outcome(err)).Inc()
}

// RecordSourceFetch records the outcome of one source pipeline.
func (m *Metrics) RecordSourceFetch(source string, err error) {
	if m == nil {
		return
	}
	m.SourceFetchesTotal.WithLabelValues(source, outcome(err)).Inc()
}

// RecordImageLookup records an enrichment lookup outcome.
func (m *Metrics) RecordImageLookup(result string) {
	if m == nil {
		return
	}
	m.ImageLookupsTotal.WithLabelValues(result).Inc()
}

// RecordRefresh records a completed refresh.
func (m *Metrics) RecordRefresh(d time.Duration, items int) {
	if m == nil {
		return
	}
	m.RefreshDuration.Observe(d.Seconds())
	m.MergedItems.Set(float64(items))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
