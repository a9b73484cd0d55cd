package detector

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

func colorGray(v uint8) color.Gray { return color.Gray{Y: v} }

func fill(img *image.Gray, r image.Rectangle, v uint8) {
	draw.Draw(img, r, image.NewUniform(colorGray(v)), image.Point{}, draw.Src)
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
