package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// archive service.
type Metrics struct {
	FetchesTotal    *prometheus.CounterVec // labels: outcome={success,error}
	DecodesTotal    *prometheus.CounterVec // labels: outcome={success,table_not_found,error}
	PointsDecoded   prometheus.Counter
	PointsPublished prometheus.Counter

	FetchDuration  prometheus.Histogram
	DecodeDuration prometheus.Histogram
	DatasetSize    prometheus.Histogram

	SpotSearches *prometheus.CounterVec // labels: result={hit,miss,error}
	RefreshRuns  prometheus.Counter
	KafkaEnabled prometheus.Gauge
	ServiceReady prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.FetchesTotal,
		m.DecodesTotal,
		m.PointsDecoded,
		m.PointsPublished,
		m.FetchDuration,
		m.DecodeDuration,
		m.DatasetSize,
		m.SpotSearches,
		m.RefreshRuns,
		m.KafkaEnabled,
		m.ServiceReady,
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
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wind_archive",
			Name:      "fetches_total",
			Help:      "Archive fetch attempts by outcome.",
		}, []string{"outcome"}),
		DecodesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wind_archive",
			Name:      "decodes_total",
			Help:      "Archive table decodes by outcome.",
		}, []string{"outcome"}),
		PointsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind_archive",
			Name:      "points_decoded_total",
			Help:      "Total data points produced by the decoder.",
		}),
		PointsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind_archive",
			Name:      "points_published_total",
			Help:      "Total data points published to the sink topic.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wind_archive",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of one archive page fetch.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		DecodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wind_archive",
			Name:      "decode_duration_seconds",
			Help:      "Duration of one archive table decode.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		DatasetSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wind_archive",
			Name:      "dataset_size_points",
			Help:      "Number of points per decoded dataset.",
			Buckets:   []float64{12, 36, 84, 168, 372, 744, 1500, 3000},
		}),
		SpotSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wind_archive",
			Name:      "spot_searches_total",
			Help:      "Spot search lookups by cache result.",
		}, []string{"result"}),
		RefreshRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind_archive",
			Name:      "refresh_runs_total",
			Help:      "Completed scheduled refresh runs.",
		}),
		KafkaEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wind_archive",
			Name:      "kafka_enabled",
			Help:      "1 when point publishing is enabled, 0 otherwise.",
		}),
		ServiceReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wind_archive",
			Name:      "service_ready",
			Help:      "1 once the service has completed a decode or proven storage reachable.",
		}),
	}
}
