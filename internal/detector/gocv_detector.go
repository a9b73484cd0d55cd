//go:build gocv

package detector

import (
	"fmt"
	"image"

	"github.com/MeKo-Tech/platefinder/internal/debug"
	"gocv.io/x/gocv"
)

// GocvDetector runs the same chain as Detector on top of OpenCV.
type GocvDetector struct {
	cfg Config
}

// NewGocvDetector returns an OpenCV-backed detector.
func NewGocvDetector(cfg Config) (*GocvDetector, error) {
	if cfg.Keep < 1 {
		return nil, fmt.Errorf("keep must be at least 1, got %d", cfg.Keep)
	}
	return &GocvDetector{cfg: cfg}, nil
}

// Detect implements RegionDetector.
func (d *GocvDetector) Detect(gray *image.Gray, sink debug.Sink) (CandidateSet, error) {
	if sink == nil {
		sink = debug.Nop{}
	}
	src, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer src.Close()

	rectK := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(d.cfg.Stages.RectKernel.Width, d.cfg.Stages.RectKernel.Height))
	defer rectK.Close()
	squareK := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(d.cfg.Stages.SquareKernel.Width, d.cfg.Stages.SquareKernel.Height))
	defer squareK.Close()

	emit := func(name string, m gocv.Mat) {
		if img, err := m.ToImage(); err == nil {
			sink.Emit("stage/"+name, img)
		}
	}

	blackhat := gocv.NewMat()
	defer blackhat.Close()
	gocv.MorphologyEx(src, &blackhat, gocv.MorphBlackhat, rectK)
	emit(StageBlackhat, blackhat)

	light := gocv.NewMat()
	defer light.Close()
	gocv.MorphologyEx(src, &light, gocv.MorphClose, squareK)
	gocv.Threshold(light, &light, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	emit(StageLight, light)

	// The gradient and its min-max scaling reuse the pure implementation so
	// flat frames behave identically on both backends.
	bhImg, err := blackhat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("read blackhat: %w", err)
	}
	bhGray, ok := bhImg.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("unexpected blackhat image type %T", bhImg)
	}
	gradImg := scharrMagnitude(bhGray)
	grad, err := gocv.ImageGrayToMatGray(gradImg)
	if err != nil {
		return nil, fmt.Errorf("convert gradient: %w", err)
	}
	defer grad.Close()
	emit(StageGradient, grad)

	gocv.GaussianBlur(grad, &grad, image.Pt(5, 5), 0, 0, gocv.BorderDefault)
	gocv.MorphologyEx(grad, &grad, gocv.MorphClose, rectK)
	gocv.Threshold(grad, &grad, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	emit(StageGradientOtsu, grad)

	for range 2 {
		gocv.Erode(grad, &grad, squareK)
	}
	for range 2 {
		gocv.Dilate(grad, &grad, squareK)
	}
	gocv.BitwiseAnd(grad, light, &grad)
	for range 2 {
		gocv.Dilate(grad, &grad, squareK)
	}
	gocv.Erode(grad, &grad, squareK)
	emit(StageFinalErode, grad)

	found := gocv.FindContours(grad, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer found.Close()
	contours := make([]Contour, 0, found.Size())
	for _, pts := range found.ToPoints() {
		contours = append(contours, NewContour(pts))
	}
	return Rank(contours, d.cfg.Keep), nil
}
