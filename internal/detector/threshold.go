package detector

import "image"

// Histogram returns the 256-bin intensity histogram of img.
func Histogram(img *image.Gray) [256]int {
	var hist [256]int
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := range h {
		for _, v := range img.Pix[y*img.Stride : y*img.Stride+w] {
			hist[v]++
		}
	}
	return hist
}

// OtsuThreshold picks the level t that maximizes the between-class variance
// of the classes [0, t] and (t, 255]. An image with a single intensity level
// has no split and yields 0.
func OtsuThreshold(img *image.Gray) uint8 {
	hist := Histogram(img)
	total := img.Rect.Dx() * img.Rect.Dy()
	if total == 0 {
		return 0
	}

	var sumAll float64
	for i, c := range hist {
		sumAll += float64(i) * float64(c)
	}

	var (
		sumB        float64
		wB          int
		maxVariance float64
		best        int
	)
	for t := range 256 {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		meanB := sumB / float64(wB)
		meanF := (sumAll - sumB) / float64(wF)
		variance := float64(wB) * float64(wF) * (meanB - meanF) * (meanB - meanF)
		if variance > maxVariance {
			maxVariance = variance
			best = t
		}
	}
	return uint8(best) //nolint:gosec // G115: best < 256
}

// Threshold maps pixels above t to 255 and the rest to 0. With inverse set
// the mapping is flipped.
func Threshold(img *image.Gray, t uint8, inverse bool) *image.Gray {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	on, off := uint8(255), uint8(0)
	if inverse {
		on, off = off, on
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		src := img.Pix[y*img.Stride : y*img.Stride+w]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x, v := range src {
			if v > t {
				out[x] = on
			} else {
				out[x] = off
			}
		}
	}
	return dst
}

// ThresholdOtsu binarizes img at its Otsu level and returns the mask with
// the level used.
func ThresholdOtsu(img *image.Gray, inverse bool) (*image.Gray, uint8) {
	t := OtsuThreshold(img)
	return Threshold(img, t, inverse), t
}

// And returns the pixelwise bitwise AND of a and b over their common extent.
func And(a, b *image.Gray) *image.Gray {
	w := min(a.Rect.Dx(), b.Rect.Dx())
	h := min(a.Rect.Dy(), b.Rect.Dy())
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		ra := a.Pix[y*a.Stride : y*a.Stride+w]
		rb := b.Pix[y*b.Stride : y*b.Stride+w]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x := range w {
			out[x] = ra[x] & rb[x]
		}
	}
	return dst
}

// CountNonZero returns the number of non-zero pixels.
func CountNonZero(img *image.Gray) int {
	n := 0
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := range h {
		for _, v := range img.Pix[y*img.Stride : y*img.Stride+w] {
			if v != 0 {
				n++
			}
		}
	}
	return n
}
