package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// Namespace used for every turbofan-rul metric
	namespace = "turbofan_rul"
)

var (
	// IngestedRows counts readings written to the store
	IngestedRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_rows_total",
			Help:      "Number of sensor readings written to the store",
		},
		[]string{"mode"}, // "replace", "append"
	)

	// StoreRetries counts extraction attempts repeated after a transient store failure
	StoreRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_retries_total",
			Help:      "Number of store reads retried after a transient failure",
		},
	)

	// TrainingRuns counts training runs by result
	TrainingRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_runs_total",
			Help:      "Number of training runs by result",
		},
		[]string{"strategy", "result"}, // result: "success", "error"
	)

	// TrainingDuration measures wall time of a training run
	TrainingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Wall time of training runs, from extraction to saved artifact",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		},
		[]string{"strategy"},
	)

	// ModelError records held-out error of the last trained model
	ModelError = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_error_cycles",
			Help:      "Held-out error of the most recently trained model, in cycles",
		},
		[]string{"strategy", "metric"}, // metric: "mae", "rmse"
	)

	// Predictions counts prediction requests by result
	Predictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Number of prediction requests by result",
		},
		[]string{"result"}, // "success", "not_trained", "invalid_input", "error"
	)

	// PredictionLatency measures single-vector inference time
	PredictionLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Latency of single-vector predictions",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 14),
		},
	)

	// ModelLoaded is 1 while the inference service holds a model
	ModelLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_loaded",
			Help:      "Whether the prediction server has a model loaded",
		},
	)
)

func init() {
	prometheus.MustRegister(IngestedRows)
	prometheus.MustRegister(StoreRetries)
	prometheus.MustRegister(TrainingRuns)
	prometheus.MustRegister(TrainingDuration)
	prometheus.MustRegister(ModelError)
	prometheus.MustRegister(Predictions)
	prometheus.MustRegister(PredictionLatency)
	prometheus.MustRegister(ModelLoaded)
}
