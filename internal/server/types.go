package server

import (
	"net/http"

	"github.com/MeKo-Tech/platefinder/internal/lookup"
	"github.com/MeKo-Tech/platefinder/internal/pdf"
	"github.com/MeKo-Tech/platefinder/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxBatchItems bounds the images accepted by one batch request.
const DefaultMaxBatchItems = 10

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline       *pipeline.Pipeline
	pdfCredentials *pdf.PasswordCredentials
	corsOrigin     string
	maxUploadMB    int64
	timeoutSec     int
	overlayEnabled bool
	overlayColor   string
	maxBatchItems  int
	rateLimiter    *RateLimiter
	version        string
}

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	CORSOrigin     string
	MaxUploadMB    int64
	TimeoutSec     int
	OverlayEnabled bool
	OverlayColor   string
	MaxBatchItems  int
	RateLimit      RateLimitConfig
	PDFCredentials *pdf.PasswordCredentials
	Version        string
}

// RateLimitConfig holds per-client request limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Time     string `json:"time"`
	Pipeline bool   `json:"pipeline"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      int    `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// PlateResponse is returned by POST /plates/image.
type PlateResponse struct {
	RequestID string                `json:"request_id,omitempty"`
	Result    *pipeline.PlateResult `json:"result"`
	Message   string                `json:"message,omitempty"`
}

// LookupResponse is returned by GET /plates/{plate}.
type LookupResponse struct {
	RequestID string         `json:"request_id,omitempty"`
	Plate     string         `json:"plate"`
	Vehicle   *lookup.Record `json:"vehicle"`
}

// NewServer creates a plate server around pl. A nil pipeline is allowed;
// processing endpoints then answer 503.
func NewServer(config Config, pl *pipeline.Pipeline) *Server {
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 20
	}
	if config.TimeoutSec <= 0 {
		config.TimeoutSec = 30
	}
	if config.MaxBatchItems <= 0 {
		config.MaxBatchItems = DefaultMaxBatchItems
	}
	if config.CORSOrigin == "" {
		config.CORSOrigin = "*"
	}

	s := &Server{
		pipeline:       pl,
		pdfCredentials: config.PDFCredentials,
		corsOrigin:     config.CORSOrigin,
		maxUploadMB:    config.MaxUploadMB,
		timeoutSec:     config.TimeoutSec,
		overlayEnabled: config.OverlayEnabled,
		overlayColor:   config.OverlayColor,
		maxBatchItems:  config.MaxBatchItems,
		version:        config.Version,
	}
	if config.RateLimit.Enabled {
		rl := config.RateLimit
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	return s
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.pipeline != nil {
		return s.pipeline.Close()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/plates/image", s.corsMiddleware(s.rateLimitMiddleware(s.plateImageHandler)))
	mux.HandleFunc("/plates/batch", s.corsMiddleware(s.rateLimitMiddleware(s.plateBatchHandler)))
	mux.HandleFunc("/plates/pdf", s.corsMiddleware(s.rateLimitMiddleware(s.platePDFHandler)))
	mux.HandleFunc("/plates/{plate}", s.corsMiddleware(s.rateLimitMiddleware(s.lookupHandler)))
	mux.HandleFunc("/ws/plates", s.plateWebSocketHandler)
}

// Handler returns the routed handler with request IDs attached.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return requestIDMiddleware(mux)
}
