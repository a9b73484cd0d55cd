// Package detector finds plate-shaped candidate regions in a grayscale frame
// using morphology, gradients and contour geometry.
package detector

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/MeKo-Tech/platefinder/internal/common"
	"github.com/MeKo-Tech/platefinder/internal/debug"
)

// ErrBackendUnavailable is returned when a detector backend was not compiled in.
var ErrBackendUnavailable = errors.New("detector backend not available in this build")

// RegionDetector produces ranked candidate contours from a grayscale frame.
type RegionDetector interface {
	Detect(gray *image.Gray, sink debug.Sink) (CandidateSet, error)
}

// Config holds detector settings.
type Config struct {
	Stages StageConfig
	Keep   int
}

// DefaultConfig returns the standard plate localization settings.
func DefaultConfig() Config {
	return Config{Stages: DefaultStageConfig(), Keep: DefaultKeep}
}

// Detector backends.
const (
	BackendPure = "pure"
	BackendGocv = "gocv"
)

// Backends lists the accepted backend names.
func Backends() []string { return []string{BackendPure, BackendGocv} }

// NewBackend builds the detector named by backend. An empty name selects the
// pure Go chain. BackendGocv fails with ErrBackendUnavailable unless the
// binary was built with the gocv tag.
func NewBackend(backend string, cfg Config) (RegionDetector, error) {
	switch strings.ToLower(backend) {
	case "", BackendPure:
		return New(cfg)
	case BackendGocv:
		d, err := NewGocvDetector(cfg)
		if err != nil {
			return nil, fmt.Errorf("%s detector: %w", BackendGocv, err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown detector backend %q (must be one of: %s)", backend, strings.Join(Backends(), ", "))
	}
}

// Detector runs an ordered stage chain and extracts ranked external contours
// from its final mask. It holds no per-frame state and is safe for
// concurrent use.
type Detector struct {
	stages []Stage
	keep   int
}

// New builds a detector from cfg using the default stage chain.
func New(cfg Config) (*Detector, error) {
	if !cfg.Stages.RectKernel.Valid() || !cfg.Stages.SquareKernel.Valid() {
		return nil, fmt.Errorf("invalid kernels %+v", cfg.Stages)
	}
	return NewWithStages(Stages(cfg.Stages), cfg.Keep)
}

// NewWithStages builds a detector from a custom stage chain. The last stage's
// output is the mask contours are taken from.
func NewWithStages(stages []Stage, keep int) (*Detector, error) {
	if err := ValidateStages(stages); err != nil {
		return nil, err
	}
	if keep < 1 {
		return nil, fmt.Errorf("keep must be at least 1, got %d", keep)
	}
	return &Detector{stages: append([]Stage(nil), stages...), keep: keep}, nil
}

// Keep returns the maximum candidate count.
func (d *Detector) Keep() int { return d.keep }

// StageNames lists the configured stages in execution order.
func (d *Detector) StageNames() []string {
	names := make([]string, len(d.stages))
	for i, s := range d.stages {
		names[i] = s.Name
	}
	return names
}

// StageTiming records how long one stage took.
type StageTiming struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

// Detect implements RegionDetector. Every stage output is emitted to sink
// under "stage/<name>". An empty set is a normal outcome.
func (d *Detector) Detect(gray *image.Gray, sink debug.Sink) (CandidateSet, error) {
	cs, _ := d.DetectWithTimings(gray, sink)
	return cs, nil
}

// DetectWithTimings is Detect plus per-stage durations.
func (d *Detector) DetectWithTimings(gray *image.Gray, sink debug.Sink) (CandidateSet, []StageTiming) {
	if sink == nil {
		sink = debug.Nop{}
	}
	mask, timings := d.run(gray, sink)

	timer := common.NewNamedTimer("contours")
	contours := ExternalContours(mask)
	candidates := Rank(contours, d.keep)
	timer.Stop()
	timings = append(timings, StageTiming{Name: timer.Name(), Duration: timer.Duration()})

	slog.Debug("Candidate detection finished",
		"contours", len(contours), "kept", len(candidates), "keep", d.keep)
	return candidates, timings
}

// Mask runs the stage chain and returns the final binary mask.
func (d *Detector) Mask(gray *image.Gray) *image.Gray {
	mask, _ := d.run(gray, debug.Nop{})
	return mask
}

func (d *Detector) run(gray *image.Gray, sink debug.Sink) (*image.Gray, []StageTiming) {
	outputs := map[string]*image.Gray{SourceName: gray}
	timings := make([]StageTiming, 0, len(d.stages)+1)
	var last *image.Gray
	for _, st := range d.stages {
		in := make([]*image.Gray, len(st.Inputs))
		for i, name := range st.Inputs {
			in[i] = outputs[name]
		}
		timer := common.NewNamedTimer(st.Name)
		last = st.Apply(in...)
		timer.Stop()
		outputs[st.Name] = last
		timings = append(timings, StageTiming{Name: st.Name, Duration: timer.Duration()})
		sink.Emit("stage/"+st.Name, last)
	}
	return last, timings
}

// Detect runs the default chain on gray and returns at most keep candidates.
func Detect(gray *image.Gray, keep int) CandidateSet {
	d, err := New(Config{Stages: DefaultStageConfig(), Keep: max(keep, 1)})
	if err != nil {
		return nil
	}
	cs, _ := d.Detect(gray, debug.Nop{})
	return Rank(cs, keep)
}
