package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the risk
// assessment service.
type Metrics struct {
	RequestsConsumed prometheus.Counter
	ResultsProduced  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Assessment metrics.
	Assessments        *prometheus.CounterVec // labels: status={ok,insufficient_data,failed}
	AssessmentDuration prometheus.Histogram

	// Provider metrics.
	ProviderRequests *prometheus.CounterVec // labels: category, outcome={ok,empty,error}
	CacheEvents      *prometheus.CounterVec // labels: category, event={hit,miss,stale}

	// Training metrics.
	TrainingRuns     *prometheus.CounterVec // labels: outcome={success,error}
	TrainingDuration prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RequestsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agri_risk",
			Name:      "requests_consumed_total",
			Help:      "Total assessment requests read from the source topic.",
		}),
		ResultsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agri_risk",
			Name:      "results_produced_total",
			Help:      "Total risk results written to the sink topic.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agri_risk",
			Name:      "pipeline_running",
			Help:      "1 when the assessment pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agri_risk",
			Name:      "batch_size",
			Help:      "Number of requests per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agri_risk",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch consume-assess-publish cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		Assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agri_risk",
			Name:      "assessments_total",
			Help:      "Completed assessments by outcome status.",
		}, []string{"status"}),
		AssessmentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agri_risk",
			Name:      "assessment_duration_seconds",
			Help:      "Duration of a single assessment including data collection.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agri_risk",
			Name:      "provider_requests_total",
			Help:      "Raw data provider requests by category and outcome.",
		}, []string{"category", "outcome"}),
		CacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agri_risk",
			Name:      "cache_events_total",
			Help:      "Raw data cache events by category: hit, miss, or stale fallback.",
		}, []string{"category", "event"}),
		TrainingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agri_risk",
			Name:      "training_runs_total",
			Help:      "Model training runs by outcome.",
		}, []string{"outcome"}),
		TrainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agri_risk",
			Name:      "training_duration_seconds",
			Help:      "Duration of a full collect-prepare-train-persist cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
	}

	prometheus.MustRegister(
		m.RequestsConsumed,
		m.ResultsProduced,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.Assessments,
		m.AssessmentDuration,
		m.ProviderRequests,
		m.CacheEvents,
		m.TrainingRuns,
		m.TrainingDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RequestsConsumed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "agri_risk", Name: "requests_consumed_total"}),
		ResultsProduced:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "agri_risk", Name: "results_produced_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "agri_risk", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "agri_risk", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "agri_risk", Name: "batch_processing_duration_seconds"}),
		Assessments:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "agri_risk", Name: "assessments_total"}, []string{"status"}),
		AssessmentDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "agri_risk", Name: "assessment_duration_seconds"}),
		ProviderRequests:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "agri_risk", Name: "provider_requests_total"}, []string{"category", "outcome"}),
		CacheEvents:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "agri_risk", Name: "cache_events_total"}, []string{"category", "event"}),
		TrainingRuns:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "agri_risk", Name: "training_runs_total"}, []string{"outcome"}),
		TrainingDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "agri_risk", Name: "training_duration_seconds"}),
	}
}
