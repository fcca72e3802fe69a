package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	httpInflight   prometheus.Gauge
	ratings        *prometheus.CounterVec
	applications   *prometheus.CounterVec
	storeRetries   *prometheus.CounterVec
	statsRefreshes *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leafit",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leafit",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leafit",
			Name:      "http_requests_inflight",
			Help:      "HTTP requests currently being served.",
		}),
		ratings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leafit",
			Name:      "treatment_ratings_total",
			Help:      "Conclusive treatment ratings by outcome.",
		}, []string{"outcome"}),
		applications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leafit",
			Name:      "treatment_applications_total",
			Help:      "Treatment applications recorded on diagnoses by result.",
		}, []string{"result"}),
		storeRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leafit",
			Name:      "docstore_update_retries_total",
			Help:      "Optimistic document updates retried after a concurrent write.",
		}, []string{"collection"}),
		statsRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leafit",
			Name:      "stats_refresh_total",
			Help:      "Community stats refreshes by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.httpInflight,
		m.ratings,
		m.applications,
		m.storeRetries,
		m.statsRefreshes,
	)
	return m
}

func (m *Metrics) InflightInc() {
	if m != nil {
		m.httpInflight.Inc()
	}
}

func (m *Metrics) InflightDec() {
	if m != nil {
		m.httpInflight.Dec()
	}
}

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) RatingRecorded(succeeded bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if succeeded {
		outcome = "succeeded"
	}
	m.ratings.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ApplicationRecorded(result string) {
	if m != nil {
		m.applications.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) StoreRetry(collection string) {
	if m != nil {
		m.storeRetries.WithLabelValues(collection).Inc()
	}
}

func (m *Metrics) StatsRefreshed(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.statsRefreshes.WithLabelValues(result).Inc()
}
