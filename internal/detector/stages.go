package detector

import (
	"errors"
	"fmt"
	"image"
)

// SourceName is the input name under which a stage receives the grayscale frame.
const SourceName = "gray"

// Stage is one named, pure image transform. Inputs name the source frame or
// the outputs of earlier stages; the stage's own output is stored under Name.
type Stage struct {
	Name   string
	Inputs []string
	Apply  func(in ...*image.Gray) *image.Gray
}

// StageConfig parameterizes the default stage list.
type StageConfig struct {
	RectKernel   StructuringElement
	SquareKernel StructuringElement
}

// DefaultStageConfig returns the kernels used for plate localization.
func DefaultStageConfig() StageConfig {
	return StageConfig{RectKernel: PlateKernel, SquareKernel: SquareKernel}
}

// Stage names of the default chain.
const (
	StageBlackhat      = "blackhat"
	StageLightClose    = "light_close"
	StageLight         = "light"
	StageGradient      = "gradient"
	StageBlur          = "gradient_blur"
	StageGradientClose = "gradient_close"
	StageGradientOtsu  = "gradient_thresh"
	StageErode         = "erode"
	StageDilate        = "dilate"
	StageMaskLight     = "mask_light"
	StageFinalDilate   = "final_dilate"
	StageFinalErode    = "final_erode"
)

// Stages returns the ordered transform chain that turns a grayscale frame
// into a binary mask of plate-like regions.
func Stages(cfg StageConfig) []Stage {
	rect, square := cfg.RectKernel, cfg.SquareKernel
	otsu := func(in ...*image.Gray) *image.Gray {
		mask, _ := ThresholdOtsu(in[0], false)
		return mask
	}
	return []Stage{
		{Name: StageBlackhat, Inputs: []string{SourceName}, Apply: func(in ...*image.Gray) *image.Gray {
			return Blackhat(in[0], rect)
		}},
		{Name: StageLightClose, Inputs: []string{SourceName}, Apply: func(in ...*image.Gray) *image.Gray {
			return Close(in[0], square)
		}},
		{Name: StageLight, Inputs: []string{StageLightClose}, Apply: otsu},
		{Name: StageGradient, Inputs: []string{StageBlackhat}, Apply: func(in ...*image.Gray) *image.Gray {
			return scharrMagnitude(in[0])
		}},
		{Name: StageBlur, Inputs: []string{StageGradient}, Apply: func(in ...*image.Gray) *image.Gray {
			return GaussianBlur5x5(in[0])
		}},
		{Name: StageGradientClose, Inputs: []string{StageBlur}, Apply: func(in ...*image.Gray) *image.Gray {
			return Close(in[0], rect)
		}},
		{Name: StageGradientOtsu, Inputs: []string{StageGradientClose}, Apply: otsu},
		{Name: StageErode, Inputs: []string{StageGradientOtsu}, Apply: func(in ...*image.Gray) *image.Gray {
			return Erode(in[0], square, 2)
		}},
		{Name: StageDilate, Inputs: []string{StageErode}, Apply: func(in ...*image.Gray) *image.Gray {
			return Dilate(in[0], square, 2)
		}},
		{Name: StageMaskLight, Inputs: []string{StageDilate, StageLight}, Apply: func(in ...*image.Gray) *image.Gray {
			return And(in[0], in[1])
		}},
		{Name: StageFinalDilate, Inputs: []string{StageMaskLight}, Apply: func(in ...*image.Gray) *image.Gray {
			return Dilate(in[0], square, 2)
		}},
		{Name: StageFinalErode, Inputs: []string{StageFinalDilate}, Apply: func(in ...*image.Gray) *image.Gray {
			return Erode(in[0], square, 1)
		}},
	}
}

// ValidateStages checks that names are unique and every input refers to the
// source or to an earlier stage.
func ValidateStages(stages []Stage) error {
	if len(stages) == 0 {
		return errors.New("stage list is empty")
	}
	seen := map[string]bool{SourceName: true}
	for i, st := range stages {
		if st.Name == "" || st.Apply == nil {
			return fmt.Errorf("stage %d: name and apply function are required", i)
		}
		if seen[st.Name] {
			return fmt.Errorf("stage %q: duplicate name", st.Name)
		}
		if len(st.Inputs) == 0 {
			return fmt.Errorf("stage %q: no inputs", st.Name)
		}
		for _, in := range st.Inputs {
			if !seen[in] {
				return fmt.Errorf("stage %q: input %q is not produced by an earlier stage", st.Name, in)
			}
		}
		seen[st.Name] = true
	}
	return nil
}
