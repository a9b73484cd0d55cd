package detector

import (
	"image"
	"math"

	"github.com/MeKo-Tech/platefinder/internal/mempool"
	"gonum.org/v1/gonum/floats"
)

// scharrX is the 3x3 Scharr kernel for the first derivative along x.
var scharrX = [3][3]float64{
	{-3, 0, 3},
	{-10, 0, 10},
	{-3, 0, 3},
}

// ScharrX returns |d/dx| of src as a row-major float slice. Borders are
// reflected without repeating the edge pixel. The slice comes from mempool;
// callers done with it may hand it back with mempool.PutFloat64.
func ScharrX(src *image.Gray) []float64 {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := mempool.GetFloat64(w * h)
	at := func(x, y int) float64 {
		return float64(src.Pix[reflect101(y, h)*src.Stride+reflect101(x, w)])
	}
	for y := range h {
		for x := range w {
			var g float64
			for ky := -1; ky <= 1; ky++ {
				k := scharrX[ky+1]
				g += k[0]*at(x-1, y+ky) + k[2]*at(x+1, y+ky)
			}
			out[y*w+x] = math.Abs(g)
		}
	}
	return out
}

// reflect101 maps an out-of-range index back into [0, n) as gfedcb|abcdefgh|gfedcba.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// NormalizeMinMax rescales values to 0..255 as 255*(v-min)/(max-min),
// truncating to integers. A flat input (max == min) maps to all zeros.
func NormalizeMinMax(values []float64, w, h int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if len(values) == 0 || len(values) != w*h {
		return dst
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if hi == lo || math.IsNaN(hi) || math.IsNaN(lo) {
		return dst
	}

	scaled := mempool.GetFloat64(len(values))
	defer mempool.PutFloat64(scaled)
	copy(scaled, values)
	floats.AddConst(-lo, scaled)
	span := hi - lo
	for i, v := range scaled {
		v = 255 * (v / span)
		dst.Pix[(i/w)*dst.Stride+i%w] = uint8(math.Min(math.Max(v, 0), 255)) //nolint:gosec // G115: clamped above
	}
	return dst
}

// scharrMagnitude is the gradient stage: |d/dx| normalized to 0..255.
func scharrMagnitude(src *image.Gray) *image.Gray {
	grad := ScharrX(src)
	defer mempool.PutFloat64(grad)
	return NormalizeMinMax(grad, src.Rect.Dx(), src.Rect.Dy())
}
