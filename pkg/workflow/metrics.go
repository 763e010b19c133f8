package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	workflowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lattice_workflows_total",
			Help: "Total number of completed workflows by outcome",
		},
		[]string{"outcome"},
	)
	workflowDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lattice_workflow_duration_seconds",
			Help:    "End-to-end workflow duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
)

// Outcome labels. A degraded workflow created its ticket but not the review
// request it attempted.
const (
	outcomeCompleted = "completed"
	outcomeDegraded  = "degraded"
	outcomeFailed    = "failed"
)
