package utils

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

// ResizeToWidth scales img to the given width preserving aspect ratio. A
// non-positive width or an image already at that width is returned unchanged.
func ResizeToWidth(img image.Image, width int) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "resize", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	if width <= 0 || b.Dx() == width {
		return img, nil
	}
	filter := imaging.Box
	if width > b.Dx() {
		filter = imaging.CatmullRom
	}
	return imaging.Resize(img, width, 0, filter), nil
}

// ScaleFactor returns the factor that maps coordinates of a resized image
// back to the source image.
func ScaleFactor(src, resized image.Rectangle) (float64, float64) {
	if resized.Dx() == 0 || resized.Dy() == 0 {
		return 1, 1
	}
	return float64(src.Dx()) / float64(resized.Dx()), float64(src.Dy()) / float64(resized.Dy())
}
