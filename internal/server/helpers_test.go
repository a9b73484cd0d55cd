package server

import (
	"bytes"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeKo-Tech/platefinder/internal/lookup"
	"github.com/MeKo-Tech/platefinder/internal/ocr"
	"github.com/MeKo-Tech/platefinder/internal/pipeline"
	"github.com/MeKo-Tech/platefinder/internal/testutil"
	"github.com/MeKo-Tech/platefinder/internal/utils"
	"github.com/stretchr/testify/require"
)

var corolla = lookup.Record{Make: "Toyota", Model: "Corolla", Year: 2018, Owner: "Jane Doe"}

// newTestPipeline builds a pipeline whose recognizer always returns text and
// whose database knows the plate ABC123.
func newTestPipeline(t *testing.T, text string) *pipeline.Pipeline {
	t.Helper()
	p, err := pipeline.NewBuilder().
		WithRecognizer(ocr.Static{Text: text}).
		WithLookup(lookup.NewMemoryStore(lookup.Database{"ABC123": corolla})).
		WithParallelWorkers(2).
		Build()
	require.NoError(t, err)
	return p
}

// newTestServer returns a server reading "abc-123". The pipeline is closed
// with the test.
func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	s := NewServer(cfg, newTestPipeline(t, "abc-123"))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func scenePNG(t *testing.T) []byte {
	t.Helper()
	return encodePNG(t, testutil.StandardScene().Gray())
}

func blankPNG(t *testing.T) []byte {
	t.Helper()
	return encodePNG(t, testutil.UniformGray(600, 400, 128))
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	data, err := utils.EncodePNG(img)
	require.NoError(t, err)
	return data
}

// multipartRequest builds a POST with one file part and extra fields.
func multipartRequest(t *testing.T, target, field, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// serve routes req through the full handler chain.
func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}
