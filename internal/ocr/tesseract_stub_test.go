//go:build !tesseract

package ocr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTesseractUnavailable(t *testing.T) {
	_, err := NewTesseract("eng")
	require.ErrorIs(t, err, ErrBackendUnavailable)

	_, err = New(context.Background(), Config{Backend: BackendTesseract})
	require.ErrorIs(t, err, ErrBackendUnavailable)
}
