package server

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/platefinder/internal/pipeline"
	"github.com/MeKo-Tech/platefinder/internal/utils"
)

// plateImageHandler localizes, reads and looks up the plate of an uploaded
// image (multipart field "image").
func (s *Server) plateImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, r, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	img, filename, err := s.parseImageRequest(w, r)
	if err != nil {
		plateRequestsTotal.WithLabelValues("image", "error").Inc()
		return // error already written
	}

	if s.pipeline == nil {
		plateRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeErrorResponse(w, r, "plate pipeline not initialized", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := s.processingContext(r)
	defer cancel()

	start := time.Now()
	res, err := s.pipeline.ProcessImage(ctx, img, filename)
	observeRequest("image", err, time.Since(start))
	if err != nil {
		slog.Error("plate processing failed", "request_id", requestID(r.Context()), "file", filename, "error", err)
		s.writeErrorResponse(w, r, fmt.Sprintf("plate processing failed: %v", err), processingStatus(err))
		return
	}
	res.Source = filename
	observeResult("image", res)

	s.writeImageResponse(w, r, img, res)
}

func (s *Server) parseImageRequest(w http.ResponseWriter, r *http.Request) (image.Image, string, error) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		s.handleFormParseError(w, r, err)
		return nil, "", err
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, r, "no image file provided", http.StatusBadRequest)
		return nil, "", err
	}
	defer func() { _ = file.Close() }()

	if header.Size > limit {
		s.writeErrorResponse(w, r, "file too large", http.StatusRequestEntityTooLarge)
		return nil, "", errors.New("file too large")
	}
	uploadSizeBytes.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, r, "failed to read image data", http.StatusInternalServerError)
		return nil, "", err
	}

	img, _, err := utils.DecodeImageBytes(data)
	if err != nil {
		s.writeErrorResponse(w, r, fmt.Sprintf("invalid image: %v", err), http.StatusBadRequest)
		return nil, "", err
	}
	return img, header.Filename, nil
}

func (s *Server) handleFormParseError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || strings.Contains(strings.ToLower(err.Error()), "body too large") {
		s.writeErrorResponse(w, r, "file too large", http.StatusRequestEntityTooLarge)
		return
	}
	s.writeErrorResponse(w, r, "failed to parse form data", http.StatusBadRequest)
}

func (s *Server) writeImageResponse(w http.ResponseWriter, r *http.Request, img image.Image, res *pipeline.PlateResult) {
	switch requestFormat(r) {
	case formatCSV:
		out, err := pipeline.ToCSV([]*pipeline.PlateResult{res})
		if err != nil {
			s.writeErrorResponse(w, r, fmt.Sprintf("formatting failed: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(out))
	case formatText:
		out, err := pipeline.ToPlainText(res)
		if err != nil {
			s.writeErrorResponse(w, r, fmt.Sprintf("formatting failed: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(out + "\n"))
	case formatOverlay:
		s.handleOverlayOutput(w, r, img, res)
	default:
		resp := PlateResponse{RequestID: requestID(r.Context()), Result: res}
		if res.LookupStatus == pipeline.LookupNotFound {
			resp.Message = pipeline.NotFoundMessage
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleOverlayOutput answers with a PNG of img with the plate drawn on it.
func (s *Server) handleOverlayOutput(w http.ResponseWriter, r *http.Request, img image.Image, res *pipeline.PlateResult) {
	if !s.overlayEnabled {
		s.writeErrorResponse(w, r, "overlay output disabled", http.StatusForbidden)
		return
	}

	col := parseHexColor(r.FormValue("color"))
	if col == nil {
		col = parseHexColor(s.overlayColor)
	}
	if col == nil {
		col = pipeline.PlateColor
	}

	ov := pipeline.RenderOverlay(img, res, col)
	if ov == nil {
		s.writeErrorResponse(w, r, "overlay failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_ = png.Encode(w, ov)
}
