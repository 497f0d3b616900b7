package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "school_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	// Dataset fetching.
	FetchRequests *prometheus.CounterVec // labels: outcome={success,http_error,error}
	FetchDuration prometheus.Histogram
	BodyCache     *prometheus.CounterVec // labels: tier={local,shared}, result={hit,miss}
	DatasetRows   *prometheus.GaugeVec   // labels: dataset={summary,active_cases}

	// Dashboard builds.
	Builds        *prometheus.CounterVec // labels: outcome={success,fetch_error,parse_error,insufficient_data,error}
	BuildDuration prometheus.Histogram
	Ready         prometheus.Gauge

	// Background refresh and snapshots.
	Refreshes          *prometheus.CounterVec // labels: outcome={success,error}
	SnapshotsPublished prometheus.Counter
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.BodyCache,
		m.DatasetRows,
		m.Builds,
		m.BuildDuration,
		m.Ready,
		m.Refreshes,
		m.SnapshotsPublished,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Dataset download attempts by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Dataset download duration including retries.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}),
		BodyCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "body_cache_total",
			Help:      "Dataset body cache lookups by tier and result.",
		}, []string{"tier", "result"}),
		DatasetRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Rows parsed from the most recent load of each dataset.",
		}, []string{"dataset"}),
		Builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Dashboard builds by outcome.",
		}, []string{"outcome"}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of a complete load and aggregate cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Ready: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ready",
			Help:      "1 once a dashboard has been built successfully.",
		}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Scheduled dataset refreshes by outcome.",
		}, []string{"outcome"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "Dashboard snapshots written to Kafka.",
		}),
	}
}
