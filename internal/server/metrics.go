package server

import (
	"time"

	"github.com/MeKo-Tech/platefinder/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platefinder_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "platefinder_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Plate processing metrics
	plateRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platefinder_plate_requests_total",
			Help: "Total number of plate processing requests",
		},
		[]string{"type", "status"}, // type: image, batch, pdf, websocket_image, lookup
	)

	plateProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "platefinder_plate_processing_duration_seconds",
			Help:    "Plate processing duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"type"},
	)

	candidatesDetected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "platefinder_candidates_detected",
			Help:    "Number of ranked candidate regions per image",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 10, 20},
		},
		[]string{"type"},
	)

	platesLocalizedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platefinder_plates_localized_total",
			Help: "Images processed, split by whether a plate region was selected",
		},
		[]string{"type", "found"},
	)

	lookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platefinder_lookups_total",
			Help: "Plate database lookups by outcome",
		},
		[]string{"status"}, // found, not_found, skipped
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platefinder_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // minute, hour, requests, data
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "platefinder_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "platefinder_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platefinder_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // sent, received
	)
)

// observeResult records the outcome of one processed image.
func observeResult(kind string, res *pipeline.PlateResult) {
	if res == nil {
		return
	}
	candidatesDetected.WithLabelValues(kind).Observe(float64(res.Candidates))
	found := "false"
	if res.Found {
		found = "true"
	}
	platesLocalizedTotal.WithLabelValues(kind, found).Inc()
	if res.LookupStatus != "" {
		lookupsTotal.WithLabelValues(res.LookupStatus).Inc()
	}
}

// observeRequest records a request outcome and its processing time.
func observeRequest(kind string, err error, d time.Duration) {
	if err != nil {
		plateRequestsTotal.WithLabelValues(kind, "error").Inc()
		return
	}
	plateRequestsTotal.WithLabelValues(kind, "success").Inc()
	plateProcessingDuration.WithLabelValues(kind).Observe(d.Seconds())
}
