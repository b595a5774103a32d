package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion pipeline.
type Metrics struct {
	CyclesCompleted prometheus.Counter
	CyclesFailed    prometheus.Counter
	CycleDuration   prometheus.Histogram
	CycleRunning    prometheus.Gauge

	// Fire acquisition metrics.
	FiresFetched    prometheus.Counter
	FiresNormalized prometheus.Counter
	RecordsRejected *prometheus.CounterVec // labels: reason={missing_coordinates,out_of_bounds,agency_filter,other}
	FormatFallbacks *prometheus.CounterVec // labels: format={csv,geojson,kml}
	SourceFailures  prometheus.Counter

	// Downstream metrics.
	WeatherFetchErrors   prometheus.Counter
	BaselineMonitored    prometheus.Gauge // 1 when the baseline is a live reading
	PredictionsGenerated prometheus.Counter
	DatasetsPublished    prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CyclesCompleted,
		m.CyclesFailed,
		m.CycleDuration,
		m.CycleRunning,
		m.FiresFetched,
		m.FiresNormalized,
		m.RecordsRejected,
		m.FormatFallbacks,
		m.SourceFailures,
		m.WeatherFetchErrors,
		m.BaselineMonitored,
		m.PredictionsGenerated,
		m.DatasetsPublished,
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
		CyclesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smoke_etl",
			Name:      "cycles_completed_total",
			Help:      "Total ingestion cycles that produced a dataset.",
		}),
		CyclesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smoke_etl",
			Name:      "cycles_failed_total",
			Help:      "Total ingestion cycles aborted by an error.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smoke_etl",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-normalize-predict-publish cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		CycleRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "smoke_etl",
			Name:      "cycle_running",
			Help:      "1 while an ingestion cycle is in progress.",
		}),
		FiresFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smoke_etl",
			Name:      "fires_fetched_total",
			Help:      "Raw fire records fetched across all wire formats.",
		}),
		FiresNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smoke_etl",
			Name:      "fires_normalized_total",
			Help:      "Fire records that passed normalization and filtering.",
		}),
		RecordsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smoke_etl",
			Name:      "records_rejected_total",
			Help:      "Records dropped during normalization, by reason.",
		}, []string{"reason"}),
		FormatFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smoke_etl",
			Name:      "format_fallbacks_total",
			Help:      "Wire formats that failed and were skipped, by format.",
		}, []string{"format"}),
		SourceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smoke_etl",
			Name:      "source_failures_total",
			Help:      "Cycles in which every fire wire format failed.",
		}),
		WeatherFetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smoke_etl",
			Name:      "weather_fetch_errors_total",
			Help:      "Per-location weather fetches that failed.",
		}),
		BaselineMonitored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "smoke_etl",
			Name:      "baseline_monitored",
			Help:      "1 when the AQHI baseline is a fresh monitored reading, 0 on fallback.",
		}),
		PredictionsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smoke_etl",
			Name:      "predictions_generated_total",
			Help:      "AQHI predictions produced across all communities and hours.",
		}),
		DatasetsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smoke_etl",
			Name:      "datasets_published_total",
			Help:      "Datasets handed to the publication collaborators.",
		}),
	}
}
