// Package server exposes plate localization, recognition and lookup over
// HTTP and websockets.
package server

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/platefinder/internal/lookup"
	"github.com/MeKo-Tech/platefinder/internal/pipeline"
	"github.com/MeKo-Tech/platefinder/internal/utils"
)

const (
	formatJSON    = "json"
	formatText    = "text"
	formatCSV     = "csv"
	formatOverlay = "overlay"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, r, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Version:  s.version,
		Time:     time.Now().UTC().Format(time.RFC3339),
		Pipeline: s.pipeline != nil,
	})
}

// lookupHandler resolves GET /plates/{plate} against the plate database.
func (s *Server) lookupHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, r, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.pipeline == nil {
		s.writeErrorResponse(w, r, "plate pipeline not initialized", http.StatusServiceUnavailable)
		return
	}

	plate := lookup.Key(r.PathValue("plate"))
	if plate == "" {
		s.writeErrorResponse(w, r, "no plate given", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.processingContext(r)
	defer cancel()

	start := time.Now()
	rec, err := s.pipeline.LookupPlate(ctx, plate)
	observeRequest("lookup", err, time.Since(start))
	switch {
	case err == nil:
		lookupsTotal.WithLabelValues(pipeline.LookupFound).Inc()
		writeJSON(w, http.StatusOK, LookupResponse{RequestID: requestID(r.Context()), Plate: plate, Vehicle: &rec})
	case errors.Is(err, lookup.ErrNotFound):
		lookupsTotal.WithLabelValues(pipeline.LookupNotFound).Inc()
		s.writeErrorResponse(w, r, pipeline.NotFoundMessage, http.StatusNotFound)
	case errors.Is(err, pipeline.ErrNoLookup):
		s.writeErrorResponse(w, r, err.Error(), http.StatusServiceUnavailable)
	default:
		slog.Error("plate lookup failed", "plate", plate, "error", err)
		s.writeErrorResponse(w, r, fmt.Sprintf("lookup failed: %v", err), http.StatusInternalServerError)
	}
}

// processingContext bounds the work of one request by the server timeout.
func (s *Server) processingContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), time.Duration(s.timeoutSec)*time.Second)
}

// processingStatus maps pipeline errors to HTTP status codes.
func processingStatus(err error) int {
	switch {
	case utils.IsInvalidImage(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// requestFormat reads "format" from the form or the query string.
func requestFormat(r *http.Request) string {
	format := r.FormValue("format")
	if format == "" {
		format = r.URL.Query().Get("format")
	}
	if format == "" {
		return formatJSON
	}
	return strings.ToLower(format)
}

// parseHexColor parses colors like "#RRGGBB" or "RRGGBB".
func parseHexColor(s string) color.Color {
	if s == "" {
		return nil
	}
	if s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return nil
	}
	var rv, gv, bv int
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &rv, &gv, &bv); err != nil {
		return nil
	}
	return color.RGBA{uint8(rv), uint8(gv), uint8(bv), 255} //nolint:gosec // G115: two hex digits
}
