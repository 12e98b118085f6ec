// Package metrics defines the prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	KVWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "abx_kv_write_failures_total",
			Help: "Writes to the key/value store that failed and were dropped",
		},
		[]string{"key"},
	)

	KVMalformedValues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "abx_kv_malformed_values_total",
			Help: "Stored values that could not be decoded and were ignored",
		},
		[]string{"key"},
	)

	QuizCompletions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "abx_quiz_completions_total",
			Help: "Completed quiz attempts appended to history",
		},
	)

	QuizScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "abx_quiz_score_percentage",
			Help:    "Score percentage of completed quizzes",
			Buckets: []float64{20, 40, 60, 70, 80, 90, 100},
		},
	)

	BookmarkImports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "abx_bookmark_imports_total",
			Help: "Bookmark imports by result",
		},
		[]string{"result"},
	)

	Interactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "abx_explore_interactions_total",
			Help: "Recorded exploration interactions by type",
		},
		[]string{"type"},
	)

	RecommendationsServed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "abx_recommendations_served",
			Help:    "Number of recommendations returned per request",
			Buckets: []float64{0, 1, 2, 4, 6, 8},
		},
	)

	CoachRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "abx_coach_request_duration_seconds",
			Help:    "Study plan generation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)

// RecordImport counts a bookmark import outcome.
func RecordImport(success bool) {
	if success {
		BookmarkImports.WithLabelValues("success").Inc()
		return
	}
	BookmarkImports.WithLabelValues("failure").Inc()
}

func RecordCoachRequest(start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	CoachRequestDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
}
