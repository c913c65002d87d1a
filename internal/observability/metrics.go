package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL run.
type Metrics struct {
	RowsIngested  *prometheus.CounterVec // labels: source={survey,weather,station_map}
	PipelineRuns  *prometheus.CounterVec // labels: pipeline={field,weather}, outcome={success,error}
	StageDuration *prometheus.HistogramVec

	// Extraction metrics.
	ExtractionMatches *prometheus.CounterVec // labels: measurement
	ExtractionMisses  prometheus.Counter

	// Correction metrics.
	CorrectionsApplied *prometheus.CounterVec // labels: kind={crop_alias,elevation_abs}

	MeanCells prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RowsIngested,
		m.PipelineRuns,
		m.StageDuration,
		m.ExtractionMatches,
		m.ExtractionMisses,
		m.CorrectionsApplied,
		m.MeanCells,
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
		RowsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farm_etl",
			Name:      "rows_ingested_total",
			Help:      "Rows read from each data source.",
		}, []string{"source"}),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farm_etl",
			Name:      "pipeline_runs_total",
			Help:      "Pipeline executions by outcome.",
		}, []string{"pipeline", "outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "farm_etl",
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"pipeline"}),
		ExtractionMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farm_etl",
			Name:      "extraction_matches_total",
			Help:      "Messages matched to a measurement kind.",
		}, []string{"measurement"}),
		ExtractionMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "farm_etl",
			Name:      "extraction_misses_total",
			Help:      "Messages matching no configured pattern.",
		}),
		CorrectionsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farm_etl",
			Name:      "corrections_applied_total",
			Help:      "Survey cells changed by a data-quality correction.",
		}, []string{"kind"}),
		MeanCells: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "farm_etl",
			Name:      "station_mean_cells",
			Help:      "Populated (station, measurement) cells in the last aggregation.",
		}),
	}
}
