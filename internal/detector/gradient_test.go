package detector

import (
	"image"
	"math"
	"testing"

	"github.com/MeKo-Tech/platefinder/internal/testutil"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScharrX_VerticalStep(t *testing.T) {
	img := testutil.UniformGray(10, 5, 0)
	fill(img, image.Rect(5, 0, 10, 5), 100)

	g := ScharrX(img)
	require.Len(t, g, 50)
	for y := range 5 {
		assert.InDelta(t, 0.0, g[y*10+2], 1e-9)
		assert.InDelta(t, 1600.0, g[y*10+4], 1e-9)
		assert.InDelta(t, 1600.0, g[y*10+5], 1e-9)
		assert.InDelta(t, 0.0, g[y*10+8], 1e-9)
	}
}

func TestScharrX_ReflectedBorderIsFlat(t *testing.T) {
	img := testutil.UniformGray(6, 6, 90)
	for _, v := range ScharrX(img) {
		assert.Zero(t, v)
	}
}

func TestReflect101(t *testing.T) {
	tests := []struct{ i, n, want int }{
		{-1, 5, 1},
		{-2, 5, 2},
		{0, 5, 0},
		{4, 5, 4},
		{5, 5, 3},
		{6, 5, 2},
		{-1, 1, 0},
		{3, 1, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reflect101(tt.i, tt.n), "reflect101(%d, %d)", tt.i, tt.n)
	}
}

func TestNormalizeMinMax(t *testing.T) {
	out := NormalizeMinMax([]float64{0, 50, 100, 25}, 2, 2)
	assert.Equal(t, []uint8{0, 127, 255, 63}, out.Pix)
}

func TestNormalizeMinMax_Flat(t *testing.T) {
	out := NormalizeMinMax([]float64{7, 7, 7, 7, 7, 7}, 3, 2)
	assert.Equal(t, 0, CountNonZero(out))
	assert.Equal(t, image.Rect(0, 0, 3, 2), out.Rect)
}

func TestNormalizeMinMax_NaN(t *testing.T) {
	out := NormalizeMinMax([]float64{math.NaN(), 1, 2, 3}, 2, 2)
	assert.Equal(t, 0, CountNonZero(out))
}

func TestNormalizeMinMax_SizeMismatch(t *testing.T) {
	out := NormalizeMinMax([]float64{1, 2, 3}, 2, 2)
	assert.Equal(t, image.Rect(0, 0, 2, 2), out.Rect)
	assert.Equal(t, 0, CountNonZero(out))
}

func TestNormalizeMinMax_SpansFullRange(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("min maps to 0 and max to 255", prop.ForAll(
		func(values []float64) bool {
			out := NormalizeMinMax(values, len(values), 1)
			lo, hi := values[0], values[0]
			for _, v := range values {
				lo, hi = math.Min(lo, v), math.Max(hi, v)
			}
			if lo == hi {
				return CountNonZero(out) == 0
			}
			var sawLo, sawHi bool
			for i, v := range values {
				if v == lo {
					sawLo = sawLo || out.Pix[i] == 0
				}
				if v == hi {
					sawHi = sawHi || out.Pix[i] == 255
				}
			}
			return sawLo && sawHi
		},
		gen.SliceOfN(16, gen.Float64Range(0, 10000)),
	))

	properties.TestingRun(t)
}

func TestGaussianBlur5x5(t *testing.T) {
	t.Run("uniform stays uniform", func(t *testing.T) {
		img := testutil.UniformGray(12, 9, 123)
		out := GaussianBlur5x5(img)
		require.Equal(t, img.Rect, out.Rect)
		for _, v := range out.Pix {
			assert.Equal(t, uint8(123), v)
		}
	})

	t.Run("impulse spreads with binomial weights", func(t *testing.T) {
		img := testutil.UniformGray(11, 11, 0)
		img.SetGray(5, 5, colorGray(255))
		out := GaussianBlur5x5(img)
		assert.Equal(t, uint8(36), out.GrayAt(5, 5).Y)
		assert.Equal(t, uint8(6), out.GrayAt(5, 3).Y)
		assert.Equal(t, uint8(24), out.GrayAt(4, 5).Y)
		assert.Equal(t, uint8(0), out.GrayAt(5, 8).Y)
	})

	t.Run("empty", func(t *testing.T) {
		out := GaussianBlur5x5(image.NewGray(image.Rect(0, 0, 0, 0)))
		assert.True(t, out.Rect.Empty())
	})
}
