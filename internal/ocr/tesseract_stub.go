//go:build !tesseract

package ocr

import (
	"context"
	"image"
)

// Tesseract is unavailable without the "tesseract" build tag.
type Tesseract struct{}

// NewTesseract returns ErrBackendUnavailable. Rebuild with -tags tesseract.
func NewTesseract(string) (*Tesseract, error) {
	return nil, ErrBackendUnavailable
}

// Recognize implements Recognizer.
func (*Tesseract) Recognize(context.Context, image.Image, Options) (string, error) {
	return "", ErrBackendUnavailable
}

// Close is a no-op.
func (*Tesseract) Close() error { return nil }
