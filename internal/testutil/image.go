package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/platefinder/internal/utils"
	"github.com/stretchr/testify/require"
)

// Default scene parameters. A plate is rendered as dark vertical strokes on a
// light background; a solid block has no blackhat response and is never found.
const (
	DefaultBackground   uint8 = 200
	DefaultInk          uint8 = 40
	DefaultStrokeWidth        = 2
	DefaultStrokePeriod       = 4
)

// PlateScene describes a synthetic grayscale scene with plate-like regions.
type PlateScene struct {
	Width        int
	Height       int
	Background   uint8
	Ink          uint8
	StrokeWidth  int
	StrokePeriod int
	Regions      []image.Rectangle
	Blocks       []image.Rectangle // solid ink blocks, not plate-like
}

// NewPlateScene returns a scene of the given size with default colors.
func NewPlateScene(width, height int, regions ...image.Rectangle) PlateScene {
	return PlateScene{
		Width:        width,
		Height:       height,
		Background:   DefaultBackground,
		Ink:          DefaultInk,
		StrokeWidth:  DefaultStrokeWidth,
		StrokePeriod: DefaultStrokePeriod,
		Regions:      regions,
	}
}

// StandardScene is a 600x400 scene with a single 150x35 region at (100,150).
func StandardScene() PlateScene {
	return NewPlateScene(600, 400, image.Rect(100, 150, 250, 185))
}

// Gray renders the scene.
func (s PlateScene) Gray() *image.Gray {
	img := utils.NewGrayFilled(s.Width, s.Height, s.Background)
	for _, r := range s.Regions {
		DrawStrokes(img, r, s.Ink, s.StrokeWidth, s.StrokePeriod)
	}
	for _, r := range s.Blocks {
		draw.Draw(img, r, image.NewUniform(color.Gray{Y: s.Ink}), image.Point{}, draw.Src)
	}
	return img
}

// RGBA renders the scene as a color image with equal channels.
func (s PlateScene) RGBA() *image.RGBA {
	gray := s.Gray()
	out := image.NewRGBA(gray.Bounds())
	draw.Draw(out, out.Bounds(), gray, gray.Bounds().Min, draw.Src)
	return out
}

// WritePNG renders the scene into dir/name and returns the path.
func (s PlateScene) WritePNG(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, utils.SavePNG(path, s.RGBA()))
	return path
}

// DrawStrokes paints vertical ink strokes of the given width every period
// pixels inside r.
func DrawStrokes(img *image.Gray, r image.Rectangle, ink uint8, width, period int) {
	if width <= 0 {
		width = DefaultStrokeWidth
	}
	if period <= width {
		period = width + 1
	}
	r = r.Intersect(img.Bounds())
	for x := r.Min.X; x < r.Max.X; x++ {
		if (x-r.Min.X)%period >= width {
			continue
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			img.SetGray(x, y, color.Gray{Y: ink})
		}
	}
}

// UniformGray returns a w x h image filled with v.
func UniformGray(w, h int, v uint8) *image.Gray {
	return utils.NewGrayFilled(w, h, v)
}

// MaskFromRects returns a binary mask with the given rectangles set to 255.
func MaskFromRects(w, h int, rects ...image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for _, r := range rects {
		draw.Draw(img, r, image.NewUniform(color.Gray{Y: 255}), image.Point{}, draw.Src)
	}
	return img
}

// StrokeExtent returns the tight box covering the painted strokes of r.
func StrokeExtent(r image.Rectangle, width, period int) image.Rectangle {
	last := r.Min.X
	for x := r.Min.X; x < r.Max.X; x++ {
		if (x-r.Min.X)%period < width {
			last = x
		}
	}
	return image.Rect(r.Min.X, r.Min.Y, last+1, r.Max.Y)
}
