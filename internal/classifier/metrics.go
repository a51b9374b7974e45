package classifier

import "github.com/prometheus/client_golang/prometheus"

var (
	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trashd",
			Subsystem: "classifier",
			Name:      "predictions_total",
			Help:      "Total number of predictions by label",
		},
		[]string{"label"},
	)

	inferenceErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trashd",
			Subsystem: "classifier",
			Name:      "inference_errors_total",
			Help:      "Total number of failed forward passes",
		},
	)

	inferenceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "trashd",
			Subsystem: "classifier",
			Name:      "inference_seconds",
			Help:      "Duration of a single forward pass in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	sessionsInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "trashd",
			Subsystem: "classifier",
			Name:      "sessions_in_use",
			Help:      "Sessions currently checked out of the pool",
		},
	)
)

func init() {
	prometheus.MustRegister(predictionsTotal, inferenceErrorsTotal, inferenceDuration, sessionsInUse)
}
