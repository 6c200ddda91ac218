package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels completed pipeline runs.
	OutcomeSuccess = "success"
	// OutcomeError labels runs aborted by a fatal error.
	OutcomeError = "error"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "surpluscast",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	runDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "surpluscast",
			Name:      "run_seconds",
			Help:      "End-to-end pipeline run latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
	)

	predictionsPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "surpluscast",
			Name:      "predictions_published_total",
			Help:      "Total scored predictions written to the output record file.",
		},
	)

	serializationWarnings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "surpluscast",
			Name:      "serialization_warnings_total",
			Help:      "Non-finite values coerced to null during publishing.",
		},
	)
)

// Register attaches surpluscast collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		runsTotal,
		runDurationSeconds,
		predictionsPublished,
		serializationWarnings,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRun records a pipeline run duration and outcome label.
func ObserveRun(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	runsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	runDurationSeconds.Observe(duration.Seconds())
}

// AddPublished counts records written by the publisher.
func AddPublished(n int) {
	if n > 0 {
		predictionsPublished.Add(float64(n))
	}
}

// AddSerializationWarnings counts non-finite coercions during publishing.
func AddSerializationWarnings(n int) {
	if n > 0 {
		serializationWarnings.Add(float64(n))
	}
}
