package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lattice_llm_requests_total",
			Help: "Total number of backend requests by backend, task, and status",
		},
		[]string{"backend", "task", "status"},
	)
	fallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lattice_llm_fallbacks_total",
			Help: "Total number of requests retried on the fallback backend",
		},
		[]string{"task"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lattice_llm_request_duration_seconds",
			Help:    "Duration of backend requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "task"},
	)
	tokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lattice_llm_tokens_total",
			Help: "Total number of tokens used in backend requests",
		},
		[]string{"backend", "type"},
	)
)

func observeRequest(backendID, task string, usage tokenUsage, err error, seconds float64) {
	status := "success"
	if err != nil {
		status = "error"
	}
	requestsTotal.WithLabelValues(backendID, task, status).Inc()
	requestDuration.WithLabelValues(backendID, task).Observe(seconds)
	if err == nil {
		tokensTotal.WithLabelValues(backendID, "prompt").Add(float64(usage.prompt))
		tokensTotal.WithLabelValues(backendID, "completion").Add(float64(usage.completion))
	}
}

type tokenUsage struct {
	prompt     int
	completion int
}
