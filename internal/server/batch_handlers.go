package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MeKo-Tech/platefinder/internal/pipeline"
	"github.com/MeKo-Tech/platefinder/internal/utils"
)

// BatchPlateRequest carries several base64 encoded images.
type BatchPlateRequest struct {
	Images []BatchImageRequest `json:"images"`
}

// BatchImageRequest represents a single image in a batch request.
type BatchImageRequest struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// BatchPlateResponse represents the response for batch processing.
type BatchPlateResponse struct {
	RequestID string                 `json:"request_id,omitempty"`
	Results   []BatchPlateResult     `json:"results"`
	Summary   BatchProcessingSummary `json:"summary"`
}

// BatchPlateResult represents a single result in batch processing.
type BatchPlateResult struct {
	Name    string                `json:"name"`
	Success bool                  `json:"success"`
	Result  *pipeline.PlateResult `json:"result,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// BatchProcessingSummary provides summary statistics for batch processing.
type BatchProcessingSummary struct {
	TotalItems    int     `json:"total_items"`
	Successful    int     `json:"successful"`
	Failed        int     `json:"failed"`
	PlatesFound   int     `json:"plates_found"`
	TotalDuration float64 `json:"total_duration_seconds"`
	AvgItemTime   float64 `json:"avg_item_time_seconds"`
}

// plateBatchHandler processes a JSON list of images on the worker pool.
func (s *Server) plateBatchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, r, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)
	var req BatchPlateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.handleFormParseError(w, r, err)
		return
	}

	if len(req.Images) == 0 {
		s.writeErrorResponse(w, r, "no images provided in batch request", http.StatusBadRequest)
		return
	}
	if len(req.Images) > s.maxBatchItems {
		s.writeErrorResponse(w, r, fmt.Sprintf("batch size too large (maximum %d items)", s.maxBatchItems), http.StatusBadRequest)
		return
	}
	if s.pipeline == nil {
		s.writeErrorResponse(w, r, "plate pipeline not initialized", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := s.processingContext(r)
	defer cancel()

	start := time.Now()
	results := make([]BatchPlateResult, len(req.Images))
	var inputs []pipeline.Input
	var slots []int
	for i, item := range req.Images {
		results[i].Name = item.Name
		img, _, err := utils.DecodeImageBytes(item.Data)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		inputs = append(inputs, pipeline.Input{ID: item.Name, Image: img})
		slots = append(slots, i)
	}

	if len(inputs) > 0 {
		parallel := s.pipeline.Config().Parallel
		parallel.ErrorHandler = func(i int, _ pipeline.Input, err error) {
			results[slots[i]].Error = err.Error()
		}
		processed, err := s.pipeline.ProcessImagesParallel(ctx, inputs, parallel)
		if processed == nil && err != nil {
			observeRequest("batch", err, time.Since(start))
			s.writeErrorResponse(w, r, fmt.Sprintf("batch processing failed: %v", err), processingStatus(err))
			return
		}
		for i, res := range processed {
			if res == nil {
				continue
			}
			res.Source = inputs[i].ID
			results[slots[i]].Result = res
			results[slots[i]].Success = true
			observeResult("batch", res)
		}
	}

	summary := BatchProcessingSummary{TotalItems: len(results)}
	for _, res := range results {
		if !res.Success {
			summary.Failed++
			continue
		}
		summary.Successful++
		if res.Result.Found {
			summary.PlatesFound++
		}
	}
	elapsed := time.Since(start)
	summary.TotalDuration = elapsed.Seconds()
	summary.AvgItemTime = summary.TotalDuration / float64(summary.TotalItems)
	observeRequest("batch", nil, elapsed)

	writeJSON(w, http.StatusOK, BatchPlateResponse{
		RequestID: requestID(r.Context()),
		Results:   results,
		Summary:   summary,
	})
}
