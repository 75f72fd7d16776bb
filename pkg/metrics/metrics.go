package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "governance_scorer"

// Metrics groups the collectors exported by the scoring service.
type Metrics struct {
	registry *prometheus.Registry

	Evaluations     *prometheus.CounterVec
	Omissions       *prometheus.CounterVec
	Alerts          *prometheus.CounterVec
	OverallScore    prometheus.Histogram
	BatchDuration   prometheus.Histogram
	StreamMessages  *prometheus.CounterVec
	LeaderboardHits *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Scored proposals by rating.",
		}, []string{"rating"}),
		Omissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "omissions_total",
			Help:      "Proposals left out of the ranking by reason.",
		}, []string{"reason"}),
		Alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts raised by type and severity.",
		}, []string{"type", "severity"}),
		OverallScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "overall_score",
			Help:      "Distribution of overall proposal scores.",
			Buckets:   []float64{35, 50, 65, 80, 100},
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time spent evaluating and persisting one batch.",
			Buckets:   prometheus.DefBuckets,
		}),
		StreamMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_messages_total",
			Help:      "Signal stream messages by processing result.",
		}, []string{"result"}),
		LeaderboardHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaderboard_requests_total",
			Help:      "Leaderboard requests by cache result.",
		}, []string{"cache"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Evaluations,
		m.Omissions,
		m.Alerts,
		m.OverallScore,
		m.BatchDuration,
		m.StreamMessages,
		m.LeaderboardHits,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
