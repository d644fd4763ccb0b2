// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import "github.com/prometheus/client_golang/prometheus"

var (
	sentencesProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "candidate_engine",
			Subsystem: "extract",
			Name:      "sentences_total",
			Help:      "The total number of sentences run through a matcher pipeline.",
		},
	)
	candidatesEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "candidate_engine",
			Subsystem: "extract",
			Name:      "candidates_total",
			Help:      "The total number of candidates emitted.",
		},
		[]string{"kind"},
	)
	incompleteRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "candidate_engine",
			Subsystem: "extract",
			Name:      "incomplete_total",
			Help:      "The total number of extraction runs stopped by cancellation or timeout.",
		},
		[]string{"kind"},
	)
	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "candidate_engine",
			Subsystem: "extract",
			Name:      "duration_seconds",
			Help:      "Time taken by a complete extraction run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(sentencesProcessed)
	prometheus.MustRegister(candidatesEmitted)
	prometheus.MustRegister(incompleteRuns)
	prometheus.MustRegister(runDuration)
}

// RecordRun records a completed extraction run.
func RecordRun(kind string, candidates int, seconds float64) {
	candidatesEmitted.WithLabelValues(kind).Add(float64(candidates))
	runDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordIncomplete records a run stopped before every sentence was processed.
func RecordIncomplete(kind string) {
	incompleteRuns.WithLabelValues(kind).Inc()
}

// WriteMetrics writes every registered metric to path in the Prometheus
// text format, for node_exporter's textfile collector.
func WriteMetrics(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
