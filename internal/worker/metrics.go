package worker

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh outcomes recorded per provider.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Metrics exposes worker activity to Prometheus.
type Metrics struct {
	reg *prometheus.Registry

	Runs            *prometheus.CounterVec // job label: conditions_refresh|health_check
	ProviderFetches *prometheus.CounterVec // provider, outcome labels
	RunDuration     prometheus.Histogram
	LastSuccess     prometheus.Gauge // unix seconds
	PointsFailed    prometheus.Gauge // failed points in the last run
}

// NewMetrics creates and registers the worker collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "routopia_worker_runs_total",
			Help: "Worker jobs executed.",
		}, []string{"job", "outcome"}),
		ProviderFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "routopia_worker_provider_fetches_total",
			Help: "Condition fetches issued while warming caches.",
		}, []string{"provider", "outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "routopia_worker_refresh_duration_seconds",
			Help:    "Duration of a complete conditions refresh.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "routopia_worker_last_success_timestamp_seconds",
			Help: "Unix time of the last refresh without failed points.",
		}),
		PointsFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "routopia_worker_points_failed",
			Help: "Points that failed in the most recent refresh.",
		}),
	}

	reg.MustRegister(
		m.Runs, m.ProviderFetches,
		m.RunDuration, m.LastSuccess, m.PointsFailed,
		prometheus.NewGoCollector(),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) observeFetch(provider string, err error) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailure
	}
	m.ProviderFetches.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) observeRun(job string, err error) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailure
	}
	m.Runs.WithLabelValues(job, outcome).Inc()
}

func (m *Metrics) observeRefresh(result *RefreshResult) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(result.Duration.Seconds())
	m.PointsFailed.Set(float64(result.Failed))
	if result.Failed == 0 {
		m.LastSuccess.Set(float64(result.EndTime.Unix()))
	}
}
