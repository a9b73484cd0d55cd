// Package ocr defines the text recognition collaborator that reads the
// binarized plate region, plus the backends that implement it.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

// AlphanumericUpper is the default character whitelist for plates.
const AlphanumericUpper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Page segmentation modes used by plates. The numbering follows Tesseract.
const (
	PSMAuto        = 3
	PSMSingleBlock = 6
	PSMSingleLine  = 7
	PSMSingleWord  = 8
	PSMRawLine     = 13
)

// Backend names accepted by New.
const (
	BackendTesseract   = "tesseract"
	BackendRekognition = "rekognition"
	BackendNone        = "none"
)

var (
	// ErrBackendUnavailable is returned when a backend was not compiled in.
	ErrBackendUnavailable = errors.New("ocr backend not available in this build")
	// ErrEmptyImage is returned for a nil or zero-size ROI.
	ErrEmptyImage = errors.New("ocr: empty image")
)

// Options restricts what the recognizer may return.
type Options struct {
	AllowedCharacters string `json:"allowed_characters" yaml:"allowed_characters"`
	PageSegMode       int    `json:"page_seg_mode" yaml:"page_seg_mode"`
	Language          string `json:"language" yaml:"language"`
}

// DefaultOptions reads a single line of upper-case letters and digits.
func DefaultOptions() Options {
	return Options{AllowedCharacters: AlphanumericUpper, PageSegMode: PSMSingleLine, Language: "eng"}
}

// Validate checks the option set.
func (o Options) Validate() error {
	if o.PageSegMode < 0 || o.PageSegMode > PSMRawLine {
		return fmt.Errorf("page segmentation mode must be within 0..13, got %d", o.PageSegMode)
	}
	return nil
}

// Recognizer reads text from a plate ROI.
type Recognizer interface {
	Recognize(ctx context.Context, roi image.Image, opts Options) (string, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, roi image.Image, opts Options) (string, error)

// Recognize implements Recognizer.
func (f RecognizerFunc) Recognize(ctx context.Context, roi image.Image, opts Options) (string, error) {
	return f(ctx, roi, opts)
}

// Static always returns the same text. It backs the "none" backend and tests.
type Static struct {
	Text string
	Err  error
}

// Recognize implements Recognizer.
func (s Static) Recognize(ctx context.Context, roi image.Image, _ Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := checkROI(roi); err != nil {
		return "", err
	}
	return s.Text, s.Err
}

// Config selects and configures a backend.
type Config struct {
	Backend string  `mapstructure:"backend" yaml:"backend"`
	Options Options `mapstructure:"options" yaml:"options"`
	// Region is the AWS region for the rekognition backend.
	Region string `mapstructure:"region" yaml:"region"`
	// MinConfidence drops rekognition lines below this percentage.
	MinConfidence float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
}

// Closer is implemented by recognizers holding native resources.
type Closer interface {
	Close() error
}

// New builds the recognizer named by cfg.Backend.
func New(ctx context.Context, cfg Config) (Recognizer, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendTesseract, "":
		t, err := NewTesseract(cfg.Options.Language)
		if err != nil {
			return nil, err
		}
		return t, nil
	case BackendRekognition:
		r, err := NewRekognition(ctx, cfg.Region, cfg.MinConfidence)
		if err != nil {
			return nil, err
		}
		return r, nil
	case BackendNone:
		return Static{}, nil
	default:
		return nil, fmt.Errorf("unknown ocr backend %q", cfg.Backend)
	}
}

// Close releases r if it holds resources.
func Close(r Recognizer) error {
	if c, ok := r.(Closer); ok {
		return c.Close()
	}
	return nil
}

func checkROI(roi image.Image) error {
	if roi == nil || roi.Bounds().Empty() {
		return ErrEmptyImage
	}
	return nil
}
