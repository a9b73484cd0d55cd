//go:build !gocv

package detector

import (
	"image"

	"github.com/MeKo-Tech/platefinder/internal/debug"
)

// GocvDetector is a placeholder used when the binary is built without the
// gocv tag.
type GocvDetector struct{}

// NewGocvDetector reports that OpenCV support is not compiled in.
func NewGocvDetector(Config) (*GocvDetector, error) {
	return nil, ErrBackendUnavailable
}

// Detect implements RegionDetector.
func (*GocvDetector) Detect(*image.Gray, debug.Sink) (CandidateSet, error) {
	return nil, ErrBackendUnavailable
}
