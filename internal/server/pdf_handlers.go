package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/MeKo-Tech/platefinder/internal/pdf"
)

// PDFResponse is returned by POST /plates/pdf.
type PDFResponse struct {
	RequestID string              `json:"request_id,omitempty"`
	Document  *pdf.DocumentResult `json:"document"`
}

// platePDFHandler searches the embedded images of an uploaded PDF
// (multipart field "pdf", optional "pages" and "password").
func (s *Server) platePDFHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, r, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tempPath, filename, err := s.savePDFUpload(w, r)
	if err != nil {
		plateRequestsTotal.WithLabelValues("pdf", "error").Inc()
		return // error already written
	}
	defer func() { _ = os.Remove(tempPath) }()

	if s.pipeline == nil {
		plateRequestsTotal.WithLabelValues("pdf", "error").Inc()
		s.writeErrorResponse(w, r, "plate pipeline not initialized", http.StatusServiceUnavailable)
		return
	}

	creds := s.pdfCredentials
	if pw := r.FormValue("password"); pw != "" {
		creds = &pdf.PasswordCredentials{UserPassword: pw, OwnerPassword: pw}
	}
	processor := pdf.NewProcessor(s.pipeline, &pdf.ProcessorConfig{Credentials: creds})

	ctx, cancel := s.processingContext(r)
	defer cancel()

	start := time.Now()
	doc, err := processor.ProcessFile(ctx, tempPath, r.FormValue("pages"))
	observeRequest("pdf", err, time.Since(start))
	if err != nil {
		slog.Error("pdf processing failed", "request_id", requestID(r.Context()), "file", filename, "error", err)
		status := processingStatus(err)
		switch {
		case errors.Is(err, pdf.ErrPasswordRequired), pdf.IsPasswordError(err):
			status = http.StatusUnauthorized
		case strings.Contains(err.Error(), "invalid page range"):
			status = http.StatusBadRequest
		case strings.Contains(err.Error(), "encryption status"),
			strings.Contains(err.Error(), "failed to extract images"),
			strings.Contains(err.Error(), "count pages"):
			status = http.StatusUnprocessableEntity
		}
		s.writeErrorResponse(w, r, fmt.Sprintf("pdf processing failed: %v", err), status)
		return
	}

	doc.Filename = filename
	for _, res := range doc.Results() {
		if res != nil {
			res.ImageID = strings.Replace(res.ImageID, tempPath, filename, 1)
			observeResult("pdf", res)
		}
	}

	switch requestFormat(r) {
	case formatText:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(doc.Text()))
		return
	case formatCSV:
		out, err := pdf.FormatDocuments([]*pdf.DocumentResult{doc}, formatCSV)
		if err != nil {
			s.writeErrorResponse(w, r, "failed to format results", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = w.Write([]byte(out))
		return
	}
	writeJSON(w, http.StatusOK, PDFResponse{RequestID: requestID(r.Context()), Document: doc})
}

// savePDFUpload copies the uploaded document into a temporary file.
func (s *Server) savePDFUpload(w http.ResponseWriter, r *http.Request) (string, string, error) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		s.handleFormParseError(w, r, err)
		return "", "", err
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		s.writeErrorResponse(w, r, "no PDF file provided", http.StatusBadRequest)
		return "", "", err
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	tmp, err := os.CreateTemp("", "platefinder-upload-*.pdf")
	if err != nil {
		s.writeErrorResponse(w, r, "failed to store upload", http.StatusInternalServerError)
		return "", "", err
	}
	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		s.writeErrorResponse(w, r, "failed to store upload", http.StatusInternalServerError)
		return "", "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		s.writeErrorResponse(w, r, "failed to store upload", http.StatusInternalServerError)
		return "", "", err
	}
	return tmp.Name(), header.Filename, nil
}
