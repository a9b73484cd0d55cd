package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// SupportedImageExtensions lists supported file extensions for loading.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff", ".webp", ".gif"}

// IsSupportedImage reports whether the path has a supported image extension.
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedImageExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// ImageMetadata captures lightweight file and pixel information.
type ImageMetadata struct {
	Path        string  `json:"path,omitempty"`
	Format      string  `json:"format"`
	SizeBytes   int64   `json:"size_bytes,omitempty"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
}

// ValidateImage rejects nil images and zero-sized pixel grids.
func ValidateImage(img image.Image) error {
	if img == nil {
		return &InvalidImageError{Reason: "image is nil"}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return &InvalidImageError{Reason: fmt.Sprintf("zero-sized image %dx%d", b.Dx(), b.Dy())}
	}
	return nil
}

// DecodeImage decodes image data from r and validates the result.
func DecodeImage(r io.Reader) (image.Image, ImageMetadata, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, ImageMetadata{}, &InvalidImageError{Reason: "cannot decode", Err: err}
	}
	if err := ValidateImage(img); err != nil {
		return nil, ImageMetadata{}, err
	}
	b := img.Bounds()
	return img, ImageMetadata{
		Format:      format,
		Width:       b.Dx(),
		Height:      b.Dy(),
		AspectRatio: float64(b.Dx()) / float64(b.Dy()),
	}, nil
}

// DecodeImageBytes is DecodeImage over an in-memory buffer.
func DecodeImageBytes(data []byte) (image.Image, ImageMetadata, error) {
	if len(data) == 0 {
		return nil, ImageMetadata{}, &InvalidImageError{Reason: "empty image data"}
	}
	img, meta, err := DecodeImage(bytes.NewReader(data))
	if err != nil {
		return nil, ImageMetadata{}, err
	}
	meta.SizeBytes = int64(len(data))
	return img, meta, nil
}

// LoadImage opens and decodes an image file, returning the image and metadata.
func LoadImage(path string) (image.Image, ImageMetadata, error) {
	if path == "" {
		err := &ImageProcessingError{Operation: "load", Err: errors.New("empty path")}
		return nil, ImageMetadata{}, err
	}
	if !IsSupportedImage(path) {
		err := &ImageProcessingError{Operation: "load", Err: fmt.Errorf("unsupported format: %s", filepath.Ext(path))}
		return nil, ImageMetadata{}, err
	}

	f, err := os.Open(path) //nolint:gosec // G304: Reading user-provided image file path is expected
	if err != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "load", Err: err}
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("Error closing image file", "path", path, "error", err)
		}
	}()

	fi, statErr := f.Stat()
	if statErr != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "load", Err: statErr}
	}

	img, meta, err := DecodeImage(f)
	if err != nil {
		return nil, ImageMetadata{}, fmt.Errorf("%s: %w", path, err)
	}
	meta.Path = path
	meta.SizeBytes = fi.Size()
	return img, meta, nil
}

// SavePNG encodes img as PNG at path, creating parent directories.
func SavePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return &ImageProcessingError{Operation: "save", Err: err}
	}
	f, err := os.Create(path) //nolint:gosec // G304: output path is chosen by the caller
	if err != nil {
		return &ImageProcessingError{Operation: "save", Err: err}
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return &ImageProcessingError{Operation: "encode", Err: err}
	}
	return f.Close()
}

// EncodePNG returns img encoded as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &ImageProcessingError{Operation: "encode", Err: err}
	}
	return buf.Bytes(), nil
}
