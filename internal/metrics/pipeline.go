package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "applyflow"

var (
	stageTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_total",
			Help:      "Pipeline stage invocations by outcome.",
		},
		[]string{"stage", "outcome"},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage latency in seconds.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"stage"},
	)

	stageInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stages_in_progress",
			Help:      "Pipeline stages currently running.",
		},
		[]string{"stage"},
	)

	aiRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "requests_total",
			Help:      "Generative backend calls by provider, model and outcome.",
		},
		[]string{"provider", "model", "outcome"},
	)

	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "request_duration_seconds",
			Help:      "Generative backend call latency in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"provider", "model"},
	)
)

// TrackStage marks a stage as started. The returned function records the
// outcome label and latency and must be called exactly once.
func TrackStage(stage string) func(outcome string) {
	start := time.Now()
	stageInProgress.WithLabelValues(stage).Inc()

	return func(outcome string) {
		stageInProgress.WithLabelValues(stage).Dec()
		stageTotal.WithLabelValues(stage, outcome).Inc()
		stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

// ObserveAIRequest records one generative backend call.
func ObserveAIRequest(provider, model, outcome string, d time.Duration) {
	aiRequestTotal.WithLabelValues(provider, model, outcome).Inc()
	aiRequestDuration.WithLabelValues(provider, model).Observe(d.Seconds())
}
