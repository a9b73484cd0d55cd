package pipeline

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/platefinder/internal/debug"
	"github.com/MeKo-Tech/platefinder/internal/detector"
	"github.com/MeKo-Tech/platefinder/internal/ocr"
	"github.com/MeKo-Tech/platefinder/internal/plate"
	"github.com/MeKo-Tech/platefinder/internal/utils"
)

// DefaultResizeWidth is the working width frames are scaled to before
// localization.
const DefaultResizeWidth = 600

// Config holds the parameters of a pipeline. It is copied into the pipeline
// at build time and never changed afterwards.
type Config struct {
	MinAspectRatio float64
	MaxAspectRatio float64
	Keep           int
	ClearBorder    bool

	// Detector names the candidate detector backend (detector.BackendPure or
	// detector.BackendGocv). Empty means pure.
	Detector string

	// DebugEnabled turns on intermediate image dumps into DebugDir.
	DebugEnabled bool
	DebugDir     string

	// ResizeWidth scales inputs to this width before localization. 0 keeps
	// the input size.
	ResizeWidth int

	OCR      ocr.Options
	Parallel ParallelConfig
}

// DefaultConfig returns the standard plate settings.
func DefaultConfig() Config {
	return Config{
		MinAspectRatio: plate.DefaultMinAspectRatio,
		MaxAspectRatio: plate.DefaultMaxAspectRatio,
		Keep:           detector.DefaultKeep,
		Detector:       detector.BackendPure,
		ResizeWidth:    DefaultResizeWidth,
		OCR:            ocr.DefaultOptions(),
		Parallel:       DefaultParallelConfig(),
	}
}

// Selector returns the aspect ratio selector described by c.
func (c Config) Selector() plate.Selector {
	return plate.Selector{
		MinAspectRatio: c.MinAspectRatio,
		MaxAspectRatio: c.MaxAspectRatio,
		ClearBorder:    c.ClearBorder,
	}
}

// Validate checks the localization and recognition parameters.
func (c Config) Validate() error {
	if err := c.Selector().Validate(); err != nil {
		return err
	}
	if c.Keep < 1 {
		return fmt.Errorf("keep must be at least 1, got %d", c.Keep)
	}
	switch strings.ToLower(c.Detector) {
	case "", detector.BackendPure, detector.BackendGocv:
	default:
		return fmt.Errorf("unknown detector backend %q", c.Detector)
	}
	if c.ResizeWidth < 0 {
		return fmt.Errorf("resize width must be >= 0, got %d", c.ResizeWidth)
	}
	if c.DebugEnabled && c.DebugDir == "" {
		return errors.New("debug output requires a debug directory")
	}
	return c.OCR.Validate()
}

// debugSink returns the sink implied by the debug settings.
func (c Config) debugSink() debug.Sink {
	if c.DebugEnabled && c.DebugDir != "" {
		return debug.NewDirSink(c.DebugDir)
	}
	return debug.Nop{}
}

// Localizer chains candidate detection and aspect ratio selection.
type Localizer struct {
	detector detector.RegionDetector
	selector plate.Selector
}

// NewLocalizer builds a localizer using the detector backend named in cfg.
func NewLocalizer(cfg Config) (*Localizer, error) {
	dc := detector.DefaultConfig()
	dc.Keep = cfg.Keep
	det, err := detector.NewBackend(cfg.Detector, dc)
	if err != nil {
		return nil, fmt.Errorf("init detector: %w", err)
	}
	return NewLocalizerWithDetector(det, cfg.Selector())
}

// NewLocalizerWithDetector uses det in place of the built-in detector.
func NewLocalizerWithDetector(det detector.RegionDetector, sel plate.Selector) (*Localizer, error) {
	if det == nil {
		return nil, errors.New("detector is nil")
	}
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	return &Localizer{detector: det, selector: sel}, nil
}

// LocalizeGray finds the plate in an already normalized frame and also
// returns the candidates it chose from.
func (l *Localizer) LocalizeGray(gray *image.Gray, sink debug.Sink) (plate.LocalizationResult, detector.CandidateSet, error) {
	if gray == nil {
		return plate.NotFound(), nil, &utils.InvalidImageError{Reason: "image is nil"}
	}
	if err := utils.ValidateImage(gray); err != nil {
		return plate.NotFound(), nil, err
	}
	if sink == nil {
		sink = debug.Nop{}
	}
	sink.Emit("gray", gray)
	candidates, err := l.detector.Detect(gray, sink)
	if err != nil {
		return plate.NotFound(), nil, fmt.Errorf("detect candidates: %w", err)
	}
	res := l.selector.SelectWithSink(gray, candidates, sink)
	if !res.Found() {
		slog.Debug("No plate-shaped candidate", "candidates", len(candidates))
	}
	return res, candidates, nil
}

// Localize converts img to grayscale, detects candidate regions and selects
// the plate. A frame without a plate yields the absent result and no error;
// unusable input is reported as utils.ErrInvalidImage before any stage runs.
func Localize(img image.Image, cfg Config) (plate.LocalizationResult, error) {
	return LocalizeWithSink(img, cfg, cfg.debugSink())
}

// LocalizeWithSink is Localize with an explicit debug sink.
func LocalizeWithSink(img image.Image, cfg Config, sink debug.Sink) (plate.LocalizationResult, error) {
	if err := utils.ValidateImage(img); err != nil {
		return plate.NotFound(), err
	}
	if err := cfg.Validate(); err != nil {
		return plate.NotFound(), fmt.Errorf("invalid config: %w", err)
	}
	l, err := NewLocalizer(cfg)
	if err != nil {
		return plate.NotFound(), err
	}
	res, _, err := l.LocalizeGray(utils.ToGray(img), sink)
	return res, err
}
