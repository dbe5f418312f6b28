package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts requests by route pattern and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentilyzer_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks request latency in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentilyzer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route"},
	)
)

// Prediction metrics
var (
	// PredictionBatchesTotal counts batches by outcome (ok, invalid, unavailable, error)
	PredictionBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentilyzer_prediction_batches_total",
			Help: "Prediction batches by outcome",
		},
		[]string{"outcome"},
	)

	PredictionBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentilyzer_prediction_batch_size",
			Help:    "Comments per prediction batch",
			Buckets: []float64{1, 5, 10, 25, 50, 75, 100},
		},
	)

	// PredictionsTotal counts single predictions by sentiment
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentilyzer_predictions_total",
			Help: "Predicted comments by sentiment",
		},
		[]string{"sentiment"},
	)

	// CacheRequestsTotal counts prediction cache lookups by backend and result (hit, miss, error)
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentilyzer_cache_requests_total",
			Help: "Prediction cache lookups by backend and result",
		},
		[]string{"backend", "result"},
	)
)

// Model lifecycle metrics
var (
	// ModelLoaded is 1 while an artifact bundle is serving
	ModelLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentilyzer_model_loaded",
			Help: "Whether a model is loaded (1) or not (0)",
		},
	)

	ModelReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentilyzer_model_reloads_total",
			Help: "Artifact reloads by outcome",
		},
		[]string{"outcome"},
	)

	// StatisticsSubscribers tracks connected statistics WebSocket clients
	StatisticsSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentilyzer_statistics_subscribers",
			Help: "Connected statistics WebSocket clients",
		},
	)
)

// ObservePredictions records one served batch.
func ObservePredictions(size int, sentiments []string) {
	PredictionBatchesTotal.WithLabelValues("ok").Inc()
	PredictionBatchSize.Observe(float64(size))
	for _, s := range sentiments {
		PredictionsTotal.WithLabelValues(s).Inc()
	}
}

// SetModelLoaded flips the model_loaded gauge.
func SetModelLoaded(loaded bool) {
	if loaded {
		ModelLoaded.Set(1)
		return
	}
	ModelLoaded.Set(0)
}
