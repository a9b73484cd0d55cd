package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/MeKo-Tech/platefinder/internal/debug"
	"github.com/MeKo-Tech/platefinder/internal/detector"
	"github.com/MeKo-Tech/platefinder/internal/lookup"
	"github.com/MeKo-Tech/platefinder/internal/ocr"
)

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg        Config
	detector   detector.RegionDetector
	sink       debug.Sink
	recognizer ocr.Recognizer
	store      lookup.Store
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithAspectRatio sets the accepted aspect ratio band.
func (b *Builder) WithAspectRatio(minAR, maxAR float64) *Builder {
	b.cfg.MinAspectRatio = minAR
	b.cfg.MaxAspectRatio = maxAR
	return b
}

// WithKeep sets how many of the largest candidates are considered.
func (b *Builder) WithKeep(n int) *Builder {
	if n > 0 {
		b.cfg.Keep = n
	}
	return b
}

// WithClearBorder toggles removal of border-touching components from the ROI.
func (b *Builder) WithClearBorder(enabled bool) *Builder {
	b.cfg.ClearBorder = enabled
	return b
}

// WithResizeWidth sets the working width. 0 disables resizing.
func (b *Builder) WithResizeWidth(width int) *Builder {
	if width >= 0 {
		b.cfg.ResizeWidth = width
	}
	return b
}

// WithOCROptions sets the options passed to the recognizer.
func (b *Builder) WithOCROptions(opts ocr.Options) *Builder {
	b.cfg.OCR = opts
	return b
}

// WithPageSegMode sets the recognizer page segmentation mode.
func (b *Builder) WithPageSegMode(psm int) *Builder {
	b.cfg.OCR.PageSegMode = psm
	return b
}

// WithDetector replaces the built-in candidate detector.
func (b *Builder) WithDetector(det detector.RegionDetector) *Builder {
	b.detector = det
	return b
}

// WithDebugSink injects a sink for intermediate images. It takes precedence
// over WithDebugDir.
func (b *Builder) WithDebugSink(sink debug.Sink) *Builder {
	b.sink = sink
	return b
}

// WithDebugDir enables PNG dumps of every stage below dir.
func (b *Builder) WithDebugDir(dir string) *Builder {
	if dir != "" {
		b.cfg.DebugEnabled = true
		b.cfg.DebugDir = dir
	}
	return b
}

// WithRecognizer sets the OCR collaborator. Without one, results carry the
// localization only.
func (b *Builder) WithRecognizer(r ocr.Recognizer) *Builder {
	b.recognizer = r
	return b
}

// WithLookup sets the plate database.
func (b *Builder) WithLookup(s lookup.Store) *Builder {
	b.store = s
	return b
}

// WithParallelWorkers sets the number of parallel workers for batch processing.
func (b *Builder) WithParallelWorkers(workers int) *Builder {
	if workers > 0 {
		b.cfg.Parallel.MaxWorkers = workers
	}
	return b
}

// WithProgressCallback sets the progress callback for batch processing.
func (b *Builder) WithProgressCallback(callback ProgressCallback) *Builder {
	b.cfg.Parallel.ProgressCallback = callback
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks the configuration.
func (b *Builder) Validate() error { return b.cfg.Validate() }

// Pipeline wires localization, recognition and lookup.
type Pipeline struct {
	cfg        Config
	localizer  *Localizer
	sink       debug.Sink
	recognizer ocr.Recognizer
	store      lookup.Store
	profiler   *Profiler
}

// Build validates the configuration and assembles the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	var (
		loc *Localizer
		err error
	)
	if b.detector != nil {
		loc, err = NewLocalizerWithDetector(b.detector, b.cfg.Selector())
	} else {
		loc, err = NewLocalizer(b.cfg)
	}
	if err != nil {
		return nil, err
	}

	sink := b.sink
	if sink == nil {
		sink = b.cfg.debugSink()
	}
	return &Pipeline{
		cfg:        b.cfg,
		localizer:  loc,
		sink:       sink,
		recognizer: b.recognizer,
		store:      b.store,
		profiler:   &Profiler{},
	}, nil
}

// Close releases the recognizer and lookup store.
func (p *Pipeline) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.recognizer != nil {
		if err := ocr.Close(p.recognizer); err != nil {
			errs = append(errs, fmt.Errorf("close recognizer: %w", err))
		}
		p.recognizer = nil
	}
	if p.store != nil {
		if err := lookup.Close(p.store); err != nil {
			errs = append(errs, fmt.Errorf("close lookup: %w", err))
		}
		p.store = nil
	}
	return errors.Join(errs...)
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Profiler returns the cumulative counters of this pipeline.
func (p *Pipeline) Profiler() *Profiler { return p.profiler }

// ErrNoLookup is returned by LookupPlate when no store is configured.
var ErrNoLookup = errors.New("no plate database configured")

// LookupPlate resolves plate text against the configured store.
func (p *Pipeline) LookupPlate(ctx context.Context, plateText string) (lookup.Record, error) {
	if p.store == nil {
		return lookup.Record{}, ErrNoLookup
	}
	return p.store.Lookup(ctx, lookup.Key(plateText))
}

func (p *Pipeline) detectorName() string {
	switch p.localizer.detector.(type) {
	case *detector.Detector:
		return detector.BackendPure
	case *detector.GocvDetector:
		return detector.BackendGocv
	default:
		return "custom"
	}
}

// Info returns a map with key pipeline properties.
func (p *Pipeline) Info() map[string]any {
	info := map[string]any{
		"min_aspect_ratio": p.cfg.MinAspectRatio,
		"max_aspect_ratio": p.cfg.MaxAspectRatio,
		"keep":             p.cfg.Keep,
		"clear_border":     p.cfg.ClearBorder,
		"resize_width":     p.cfg.ResizeWidth,
		"detector":         p.detectorName(),
		"debug": map[string]any{
			"enabled": p.cfg.DebugEnabled,
			"dir":     p.cfg.DebugDir,
		},
		"ocr": map[string]any{
			"enabled":            p.recognizer != nil,
			"page_seg_mode":      p.cfg.OCR.PageSegMode,
			"allowed_characters": p.cfg.OCR.AllowedCharacters,
		},
		"lookup_enabled": p.store != nil,
		"parallel": map[string]any{
			"max_workers":           p.cfg.Parallel.MaxWorkers,
			"has_progress_callback": p.cfg.Parallel.ProgressCallback != nil,
		},
	}
	if d, ok := p.localizer.detector.(*detector.Detector); ok {
		info["stages"] = d.StageNames()
	}
	info["stats"] = p.profiler.Snapshot()
	return info
}
