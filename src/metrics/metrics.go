// Package metrics holds the prometheus collectors of the question answering pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pdfqa"

var (
	// Ingestions counts finished ingestion attempts by outcome (stored, skipped, failed).
	Ingestions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingestions_total",
		Help:      "Document ingestion attempts by outcome.",
	}, []string{"outcome"})

	// Questions counts answered questions by outcome (answered, no_answer, failed).
	Questions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "questions_total",
		Help:      "Questions by outcome.",
	}, []string{"outcome"})

	ChunksStored = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chunks_stored_total",
		Help:      "Chunks written to the document store.",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})
)

// ObserveStage records the time elapsed since start under stage.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
