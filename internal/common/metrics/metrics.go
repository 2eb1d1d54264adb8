// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TestRunsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_test_runs_completed_total",
			Help: "Total number of completed model test runs",
		},
		[]string{"bot_id"},
	)

	TestRunsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_test_runs_failed_total",
			Help: "Total number of failed model test runs",
		},
		[]string{"bot_id", "error_code"},
	)

	TestRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "model_test_run_duration_seconds",
			Help: "Duration of a full model test run in seconds",
		},
		[]string{"bot_id"},
	)

	MessagesEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_test_messages_evaluated_total",
			Help: "Total number of NLU test messages evaluated",
		},
		[]string{"bot_id"},
	)

	StoriesEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_test_stories_evaluated_total",
			Help: "Total number of test stories replayed",
		},
		[]string{"bot_id", "outcome"},
	)
)
