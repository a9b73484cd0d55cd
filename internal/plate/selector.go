package plate

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/platefinder/internal/debug"
	"github.com/MeKo-Tech/platefinder/internal/detector"
	"github.com/MeKo-Tech/platefinder/internal/utils"
)

// Default aspect ratio band for plates.
const (
	DefaultMinAspectRatio = 4.0
	DefaultMaxAspectRatio = 5.0
)

// Selector accepts the first candidate whose bounding box aspect ratio lies
// in [MinAspectRatio, MaxAspectRatio]. Candidates are visited in the order
// given, so with area ranking the largest plate-shaped region wins even if a
// later one is closer to the ideal ratio.
type Selector struct {
	MinAspectRatio float64
	MaxAspectRatio float64
	ClearBorder    bool
}

// DefaultSelector returns the standard band without border clearing.
func DefaultSelector() Selector {
	return Selector{MinAspectRatio: DefaultMinAspectRatio, MaxAspectRatio: DefaultMaxAspectRatio}
}

// Validate checks the aspect ratio band.
func (s Selector) Validate() error {
	if s.MinAspectRatio <= 0 {
		return fmt.Errorf("min aspect ratio must be > 0, got %v", s.MinAspectRatio)
	}
	if s.MaxAspectRatio < s.MinAspectRatio {
		return fmt.Errorf("max aspect ratio %v is below min aspect ratio %v", s.MaxAspectRatio, s.MinAspectRatio)
	}
	return nil
}

// Accepts reports whether ar lies inside the band, bounds included.
func (s Selector) Accepts(ar float64) bool {
	return ar >= s.MinAspectRatio && ar <= s.MaxAspectRatio
}

// Select runs the first-match rule over candidates.
func (s Selector) Select(gray *image.Gray, candidates detector.CandidateSet) LocalizationResult {
	return s.SelectWithSink(gray, candidates, debug.Nop{})
}

// SelectWithSink is Select that also emits the crop, its threshold and the
// cleared ROI.
func (s Selector) SelectWithSink(gray *image.Gray, candidates detector.CandidateSet, sink debug.Sink) LocalizationResult {
	if gray == nil {
		return NotFound()
	}
	if sink == nil {
		sink = debug.Nop{}
	}
	for i, c := range candidates {
		box := c.BoundingBox()
		ar, ok := box.AspectRatio()
		if !ok {
			slog.Debug("Skipping candidate without height", "index", i)
			continue
		}
		if !s.Accepts(ar) {
			slog.Debug("Candidate rejected", "index", i, "aspect_ratio", ar, "box", box)
			continue
		}
		rect := box.ToRect(gray.Bounds())
		if rect.Empty() {
			continue
		}

		crop := utils.CropGray(gray, rect)
		sink.Emit("roi/crop", crop)
		roi, t := detector.ThresholdOtsu(crop, true)
		sink.Emit("roi/threshold", roi)
		if s.ClearBorder {
			roi = ClearBorder(roi)
			sink.Emit("roi/clear_border", roi)
		}

		slog.Debug("Plate candidate selected", "index", i, "aspect_ratio", ar, "box", box, "otsu", t)
		return NewLocalization(roi, c, i)
	}
	return NotFound()
}

// Select accepts the first candidate with an aspect ratio in [minAR, maxAR],
// crops gray to its box and binarizes the crop with an inverse Otsu
// threshold. With clearBorder set, components touching the crop edge are
// removed. No qualifying candidate yields the absent result.
func Select(gray *image.Gray, candidates detector.CandidateSet, minAR, maxAR float64, clearBorder bool) LocalizationResult {
	return Selector{MinAspectRatio: minAR, MaxAspectRatio: maxAR, ClearBorder: clearBorder}.Select(gray, candidates)
}
