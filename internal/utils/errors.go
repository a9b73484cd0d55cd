package utils

import (
	"errors"
	"fmt"
)

// ErrInvalidImage is matched by every InvalidImageError via errors.Is.
var ErrInvalidImage = errors.New("invalid image")

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// InvalidImageError reports input that cannot be processed at all: undecodable
// data, a nil image or a zero-sized pixel grid.
type InvalidImageError struct {
	Reason string
	Err    error
}

func (e *InvalidImageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid image: %s: %v", e.Reason, e.Err)
	}
	return "invalid image: " + e.Reason
}

func (e *InvalidImageError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrInvalidImage) true for any InvalidImageError.
func (e *InvalidImageError) Is(target error) bool { return target == ErrInvalidImage }

// IsInvalidImage reports whether err stems from unusable input.
func IsInvalidImage(err error) bool {
	return errors.Is(err, ErrInvalidImage)
}
