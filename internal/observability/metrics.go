package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bird_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	// Dataset load metrics.
	LoadsTotal      prometheus.Counter
	LoadErrors      *prometheus.CounterVec // labels: kind={connection,query}
	LoadDuration    prometheus.Histogram
	RowsFetched     prometheus.Counter
	RowsDropped     *prometheus.CounterVec // labels: reason={invalid_count,invalid_date}
	CachedRows      prometheus.Gauge
	DatasetLoadedAt prometheus.Gauge

	// Snapshot publishing metrics.
	MessagesPublished prometheus.Counter
	PublishErrors     prometheus.Counter

	// Chart rendering metrics.
	RenderCache    *prometheus.CounterVec   // labels: result={hit,miss}
	RenderDuration *prometheus.HistogramVec // labels: chart
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.LoadsTotal,
		m.LoadErrors,
		m.LoadDuration,
		m.RowsFetched,
		m.RowsDropped,
		m.CachedRows,
		m.DatasetLoadedAt,
		m.MessagesPublished,
		m.PublishErrors,
		m.RenderCache,
		m.RenderDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		LoadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_loads_total",
			Help:      "Total successful dataset loads from the observation store.",
		}),
		LoadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_load_errors_total",
			Help:      "Failed dataset loads by kind.",
		}, []string{"kind"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_load_duration_seconds",
			Help:      "Duration of a complete fetch-and-clean cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RowsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_fetched_total",
			Help:      "Total raw rows read from the observation store.",
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Raw rows discarded during cleaning, by reason.",
		}, []string{"reason"}),
		CachedRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_rows",
			Help:      "Rows in the currently cached cleaned table.",
		}),
		DatasetLoadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_loaded_timestamp_seconds",
			Help:      "Unix time the cached table was loaded, 0 when nothing is cached.",
		}),
		MessagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_published_total",
			Help:      "Total cleaned observations published to the snapshot topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Total failed snapshot publications.",
		}),
		RenderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_cache_total",
			Help:      "Rendered chart cache lookups by result.",
		}, []string{"result"}),
		RenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Chart rendering duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"chart"}),
	}
}
