package server

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"strings"
	"testing"

	"github.com/MeKo-Tech/platefinder/internal/lookup"
	"github.com/MeKo-Tech/platefinder/internal/ocr"
	"github.com/MeKo-Tech/platefinder/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlateImageHandler_JSON(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := serve(s, multipartRequest(t, "/plates/image", "image", "car.png", scenePNG(t), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	var resp PlateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, rec.Header().Get(RequestIDHeader), resp.RequestID)
	require.NotNil(t, resp.Result)
	assert.True(t, resp.Result.Found)
	assert.Equal(t, "car.png", resp.Result.Source)
	assert.Equal(t, "ABC123", resp.Result.Plate)
	assert.Equal(t, pipeline.LookupFound, resp.Result.LookupStatus)
	require.NotNil(t, resp.Result.Vehicle)
	assert.Equal(t, corolla, *resp.Result.Vehicle)
	require.NotNil(t, resp.Result.Box)
	assert.InDelta(t, 98, resp.Result.Box.X, 3)
	assert.InDelta(t, 149, resp.Result.Box.Y, 3)
	assert.Empty(t, resp.Message)
}

func TestPlateImageHandler_UnknownPlate(t *testing.T) {
	s := NewServer(Config{}, newTestPipeline(t, "XYZ 987"))
	defer func() { _ = s.Close() }()

	rec := serve(s, multipartRequest(t, "/plates/image", "image", "car.png", scenePNG(t), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PlateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "XYZ987", resp.Result.Plate)
	assert.Equal(t, pipeline.LookupNotFound, resp.Result.LookupStatus)
	assert.Equal(t, pipeline.NotFoundMessage, resp.Message)
	assert.Nil(t, resp.Result.Vehicle)
}

func TestPlateImageHandler_NoPlate(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := serve(s, multipartRequest(t, "/plates/image", "image", "blank.png", blankPNG(t), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PlateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Result.Found)
	assert.Nil(t, resp.Result.Box)
	assert.Empty(t, resp.Result.Plate)
}

func TestPlateImageHandler_Formats(t *testing.T) {
	s := newTestServer(t, Config{OverlayEnabled: true})

	t.Run("text", func(t *testing.T) {
		req := multipartRequest(t, "/plates/image", "image", "car.png", scenePNG(t), map[string]string{"format": "text"})
		rec := serve(s, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
		body := rec.Body.String()
		assert.Contains(t, body, "car.png: plate region")
		assert.Contains(t, body, "text: ABC123")
		assert.Contains(t, body, "Toyota Corolla")
	})

	t.Run("csv", func(t *testing.T) {
		req := multipartRequest(t, "/plates/image?format=csv", "image", "car.png", scenePNG(t), nil)
		rec := serve(s, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		rows, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "source", rows[0][0])
		assert.Equal(t, "car.png", rows[1][0])
		assert.Equal(t, "true", rows[1][1])
		assert.Equal(t, "ABC123", rows[1][7])
	})

	t.Run("overlay", func(t *testing.T) {
		req := multipartRequest(t, "/plates/image", "image", "car.png", scenePNG(t),
			map[string]string{"format": "overlay", "color": "#FF0000"})
		rec := serve(s, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		img, err := png.Decode(rec.Body)
		require.NoError(t, err)
		assert.Equal(t, 600, img.Bounds().Dx())
		assert.Equal(t, 400, img.Bounds().Dy())
	})
}

func TestPlateImageHandler_OverlayDisabled(t *testing.T) {
	s := newTestServer(t, Config{})
	req := multipartRequest(t, "/plates/image", "image", "car.png", scenePNG(t), map[string]string{"format": "overlay"})
	rec := serve(s, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPlateImageHandler_BadRequests(t *testing.T) {
	s := newTestServer(t, Config{MaxUploadMB: 1})

	tests := []struct {
		name   string
		req    *http.Request
		status int
		errMsg string
	}{
		{
			name:   "wrong method",
			req:    multipartRequest(t, "/plates/image", "image", "car.png", scenePNG(t), nil),
			status: http.StatusMethodNotAllowed,
		},
		{
			name:   "missing file",
			req:    multipartRequest(t, "/plates/image", "", "", nil, map[string]string{"format": "json"}),
			status: http.StatusBadRequest,
			errMsg: "no image file provided",
		},
		{
			name:   "wrong field",
			req:    multipartRequest(t, "/plates/image", "file", "car.png", scenePNG(t), nil),
			status: http.StatusBadRequest,
			errMsg: "no image file provided",
		},
		{
			name:   "not an image",
			req:    multipartRequest(t, "/plates/image", "image", "car.png", []byte("not an image"), nil),
			status: http.StatusBadRequest,
			errMsg: "invalid image",
		},
		{
			name:   "too large",
			req:    multipartRequest(t, "/plates/image", "image", "big.png", make([]byte, 2*1024*1024), nil),
			status: http.StatusRequestEntityTooLarge,
			errMsg: "file too large",
		},
	}
	tests[0].req.Method = http.MethodPut

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, tt.req)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decodeError(t, rec)
			assert.Equal(t, tt.status, resp.Code)
			if tt.errMsg != "" {
				assert.Contains(t, resp.Error, tt.errMsg)
			}
		})
	}
}

func TestPlateImageHandler_NoPipeline(t *testing.T) {
	s := NewServer(Config{}, nil)
	rec := serve(s, multipartRequest(t, "/plates/image", "image", "car.png", scenePNG(t), nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPlateImageHandler_RecognizerFailure(t *testing.T) {
	pl, err := pipeline.NewBuilder().
		WithRecognizer(ocr.Static{Err: errors.New("engine crashed")}).
		WithLookup(lookup.NewMemoryStore(nil)).
		Build()
	require.NoError(t, err)
	s := NewServer(Config{}, pl)
	defer func() { _ = s.Close() }()

	rec := serve(s, multipartRequest(t, "/plates/image", "image", "car.png", scenePNG(t), nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeError(t, rec).Error, "engine crashed")
}
