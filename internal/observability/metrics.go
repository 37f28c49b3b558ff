package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// site-model preparation pipeline.
type Metrics struct {
	PointsLoaded   prometheus.Counter
	TargetsBuilt   prometheus.Counter
	SitesAccepted  prometheus.Counter
	SitesDiscarded prometheus.Counter
	RecordsWritten prometheus.Counter
	RunActive      prometheus.Gauge

	AssociationDistanceKm prometheus.Histogram
	StageDuration         *prometheus.HistogramVec // label: stage={load,targets,associate,write}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PointsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "site_model",
			Name:      "points_loaded_total",
			Help:      "Ground-condition points loaded across all source files.",
		}),
		TargetsBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "site_model",
			Name:      "targets_built_total",
			Help:      "Target sites produced by the active site-source mode.",
		}),
		SitesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "site_model",
			Name:      "sites_accepted_total",
			Help:      "Associations within the distance cutoff.",
		}),
		SitesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "site_model",
			Name:      "sites_discarded_total",
			Help:      "Associations rejected by the distance cutoff.",
		}),
		RecordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "site_model",
			Name:      "records_written_total",
			Help:      "Rows written to the site-model table.",
		}),
		RunActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "site_model",
			Name:      "run_active",
			Help:      "1 while a preparation run is in progress.",
		}),
		AssociationDistanceKm: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "site_model",
			Name:      "association_distance_km",
			Help:      "Great-circle distance from each target to its nearest point.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "site_model",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
	}

	prometheus.MustRegister(
		m.PointsLoaded,
		m.TargetsBuilt,
		m.SitesAccepted,
		m.SitesDiscarded,
		m.RecordsWritten,
		m.RunActive,
		m.AssociationDistanceKm,
		m.StageDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics backed by a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PointsLoaded:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "site_model", Name: "points_loaded_total"}),
		TargetsBuilt:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "site_model", Name: "targets_built_total"}),
		SitesAccepted:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "site_model", Name: "sites_accepted_total"}),
		SitesDiscarded:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "site_model", Name: "sites_discarded_total"}),
		RecordsWritten:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "site_model", Name: "records_written_total"}),
		RunActive:             prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "site_model", Name: "run_active"}),
		AssociationDistanceKm: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "site_model", Name: "association_distance_km"}),
		StageDuration:         prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "site_model", Name: "stage_duration_seconds"}, []string{"stage"}),
	}
}
