package detector

import (
	"image"

	"github.com/MeKo-Tech/platefinder/internal/utils"
	"github.com/disintegration/imaging"
)

// gaussian5x5 is the binomial approximation of a 5x5 Gaussian
// (outer product of 1 4 6 4 1), normalized by the convolution.
var gaussian5x5 = [25]float64{
	1, 4, 6, 4, 1,
	4, 16, 24, 16, 4,
	6, 24, 36, 24, 6,
	4, 16, 24, 16, 4,
	1, 4, 6, 4, 1,
}

// GaussianBlur5x5 smooths src with a 5x5 Gaussian. Edge pixels are replicated.
func GaussianBlur5x5(src *image.Gray) *image.Gray {
	if src.Rect.Empty() {
		return image.NewGray(image.Rect(0, 0, 0, 0))
	}
	blurred := imaging.Convolve5x5(src, gaussian5x5, &imaging.ConvolveOptions{Normalize: true})
	return utils.ToGray(blurred)
}
