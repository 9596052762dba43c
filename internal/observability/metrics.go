package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dpe_enrichment"

// Metrics holds the Prometheus counters, histograms, and gauges for the enrichment service.
type Metrics struct {
	// Upstream API metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: service={geocode,dvf,ademe}, outcome={success,error,empty}
	UpstreamDuration *prometheus.HistogramVec // labels: service

	// Enrichment metrics.
	Enrichments        *prometheus.CounterVec // labels: mode={single,batch}, outcome={success,failure}
	EnrichmentFailures *prometheus.CounterVec // labels: stage

	// Batch metrics.
	BatchSize           prometheus.Histogram
	BatchDuration       prometheus.Histogram
	RowsPersisted       prometheus.Counter
	EventsPublished     prometheus.Counter
	PublishErrors       prometheus.Counter
	SchedulerRunning    prometheus.Gauge
	ReferenceRowsSeeded *prometheus.CounterVec // labels: table
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.Enrichments,
		m.EnrichmentFailures,
		m.BatchSize,
		m.BatchDuration,
		m.RowsPersisted,
		m.EventsPublished,
		m.PublishErrors,
		m.SchedulerRunning,
		m.ReferenceRowsSeeded,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream API requests by service and outcome.",
		}, []string{"service", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"service"}),
		Enrichments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichments_total",
			Help:      "Address enrichments by mode and outcome.",
		}, []string{"mode", "outcome"}),
		EnrichmentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_failures_total",
			Help:      "Enrichment failures by the stage that failed.",
		}, []string{"stage"}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of users per batch run.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Duration of a complete batch run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		RowsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_persisted_total",
			Help:      "Enriched rows written to the result store.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Enrichment events written to Kafka.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed Kafka publish calls.",
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      "1 when the scheduled batch loop is active, 0 otherwise.",
		}),
		ReferenceRowsSeeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_rows_seeded_total",
			Help:      "Reference table rows upserted by table.",
		}, []string{"table"}),
	}
}
