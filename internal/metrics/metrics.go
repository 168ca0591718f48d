package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	sessionsStarted  prometheus.Counter
	sessionsEnded    *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	answersEvaluated *prometheus.CounterVec
	oracleRequests   *prometheus.CounterVec
	oracleLatency    *prometheus.HistogramVec
	oracleFallbacks  *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "sessions_started_total",
			Help:      "Trivia sessions created.",
		}),
		sessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "sessions_ended_total",
			Help:      "Trivia sessions removed from the registry, by reason.",
		}, []string{"reason"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trivia",
			Name:      "active_sessions",
			Help:      "Live sessions in the registry.",
		}),
		answersEvaluated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "answers_evaluated_total",
			Help:      "Evaluated answers, by correctness.",
		}, []string{"correct"}),
		oracleRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "oracle_requests_total",
			Help:      "LLM calls, by purpose and outcome.",
		}, []string{"purpose", "outcome"}),
		oracleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "trivia",
			Name:      "oracle_request_duration_seconds",
			Help:      "LLM call latency, by purpose.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}, []string{"purpose"}),
		oracleFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "oracle_fallbacks_total",
			Help:      "Malformed LLM replies replaced by fallback values, by purpose.",
		}, []string{"purpose"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessionsStarted,
		m.sessionsEnded,
		m.activeSessions,
		m.answersEvaluated,
		m.oracleRequests,
		m.oracleLatency,
		m.oracleFallbacks,
	)
	return m
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
	m.activeSessions.Inc()
}

// SessionEnded records a removal; reason is one of completed, cancelled, evicted.
func (m *Metrics) SessionEnded(reason string) {
	if m == nil {
		return
	}
	m.sessionsEnded.WithLabelValues(reason).Inc()
	m.activeSessions.Dec()
}

func (m *Metrics) AnswerEvaluated(correct bool) {
	if m == nil {
		return
	}
	label := "false"
	if correct {
		label = "true"
	}
	m.answersEvaluated.WithLabelValues(label).Inc()
}

func (m *Metrics) OracleRequest(purpose string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.oracleRequests.WithLabelValues(purpose, outcome).Inc()
	m.oracleLatency.WithLabelValues(purpose).Observe(elapsed.Seconds())
}

func (m *Metrics) OracleFallback(purpose string) {
	if m == nil {
		return
	}
	m.oracleFallbacks.WithLabelValues(purpose).Inc()
}
