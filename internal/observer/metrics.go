package observer

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PredictionsTotal counts prediction responses by how they were produced
	PredictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "model_inference_predictions_total",
		Help: "Total number of prediction responses by outcome",
	}, []string{"app", "outcome"})

	// PredictionLatencySeconds is the histogram of end-to-end prediction latency
	PredictionLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "model_inference_prediction_latency_seconds",
		Help:    "Histogram of prediction latency in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"app"})

	// FailuresTotal counts failures that triggered the fallback policy, by error type
	FailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "model_inference_failures_total",
		Help: "Total number of prediction failures by error type",
	}, []string{"app", "error_type"})

	// ImageFetchesTotal counts remote image downloads
	ImageFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "model_inference_image_fetches_total",
		Help: "Total number of remote image fetches by status",
	}, []string{"app", "status"})

	// ModelAvailable is 1 when the app's model is loaded
	ModelAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "model_inference_model_available",
		Help: "Whether the model artifact is loaded (1) or absent (0)",
	}, []string{"app"})
)

// Outcome labels for PredictionsTotal
const (
	OutcomeModel    = "model"
	OutcomeFallback = "fallback"
)

// MetricsObserver exports inference events as Prometheus metrics
type MetricsObserver struct{}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() Observer {
	return &MetricsObserver{}
}

// OnEvent handles inference events by updating the exported metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event InferenceEvent) {
	switch event.EventType {
	case ModelLoaded:
		ModelAvailable.WithLabelValues(event.App).Set(1)
	case ModelUnavailable:
		ModelAvailable.WithLabelValues(event.App).Set(0)
	case PredictionCompleted:
		PredictionsTotal.WithLabelValues(event.App, OutcomeModel).Inc()
		PredictionLatencySeconds.WithLabelValues(event.App).Observe(event.Duration.Seconds())
	case PredictionDegraded:
		PredictionsTotal.WithLabelValues(event.App, OutcomeFallback).Inc()
		FailuresTotal.WithLabelValues(event.App, event.ErrorType).Inc()
		PredictionLatencySeconds.WithLabelValues(event.App).Observe(event.Duration.Seconds())
	case ImageFetched:
		ImageFetchesTotal.WithLabelValues(event.App, "success").Inc()
	case ImageFetchFailed:
		ImageFetchesTotal.WithLabelValues(event.App, "failed").Inc()
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}
