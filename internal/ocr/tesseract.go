//go:build tesseract

package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/MeKo-Tech/platefinder/internal/utils"
	"github.com/otiai10/gosseract/v2"
)

// Tesseract recognizes text with a local Tesseract installation through
// gosseract. A single client is shared, so calls are serialized.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract creates a client for lang ("eng" when empty).
func NewTesseract(lang string) (*Tesseract, error) {
	if lang == "" {
		lang = "eng"
	}
	client := gosseract.NewClient()
	if err := client.SetLanguage(lang); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set tesseract language: %w", err)
	}
	// Plates are not dictionary words.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")
	return &Tesseract{client: client}, nil
}

// Recognize implements Recognizer.
func (t *Tesseract) Recognize(ctx context.Context, roi image.Image, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := checkROI(roi); err != nil {
		return "", err
	}
	if err := opts.Validate(); err != nil {
		return "", err
	}
	data, err := utils.EncodePNG(roi)
	if err != nil {
		return "", fmt.Errorf("encode roi: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.SetPageSegMode(gosseract.PageSegMode(opts.PageSegMode)); err != nil {
		return "", fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := t.client.SetWhitelist(opts.AllowedCharacters); err != nil {
		return "", fmt.Errorf("set whitelist: %w", err)
	}
	if err := t.client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Close releases the native client.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}
