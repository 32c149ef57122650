package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the forecaster's Prometheus collectors.
type Metrics struct {
	predictions *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	llmRequests *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_predictions_total",
				Help: "Demand predictions by outcome",
			},
			[]string{"outcome"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_fallbacks_total",
				Help: "Model-backed stages that degraded to their fallback",
			},
			[]string{"stage"},
		),
		llmRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_llm_requests_total",
				Help: "Text generation requests by purpose and outcome",
			},
			[]string{"purpose", "outcome"},
		),
		llmLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forecast_llm_request_duration_seconds",
				Help:    "Text generation latency",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms .. ~51s
			},
			[]string{"purpose"},
		),
	}

	reg.MustRegister(m.predictions, m.fallbacks, m.llmRequests, m.llmLatency)
	return m
}

func (m *Metrics) ObservePrediction(outcome string) {
	m.predictions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveFallback(stage string) {
	m.fallbacks.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveLLMRequest(purpose, outcome string, duration time.Duration) {
	m.llmRequests.WithLabelValues(purpose, outcome).Inc()
	m.llmLatency.WithLabelValues(purpose).Observe(duration.Seconds())
}
