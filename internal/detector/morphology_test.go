package detector

import (
	"image"
	"math/rand"
	"testing"

	"github.com/MeKo-Tech/platefinder/internal/testutil"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomGray(seed int64, w, h int) *image.Gray {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic test data
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256)) //nolint:gosec // G115: < 256
	}
	return img
}

func TestStructuringElement(t *testing.T) {
	assert.True(t, PlateKernel.Valid())
	assert.Equal(t, 13, PlateKernel.Width)
	assert.Equal(t, 5, PlateKernel.Height)
	assert.False(t, Rect(0, 3).Valid())

	x, y := PlateKernel.anchor()
	assert.Equal(t, 6, x)
	assert.Equal(t, 2, y)
}

func TestMorphologicalOp_String(t *testing.T) {
	assert.Equal(t, "dilate", MorphDilate.String())
	assert.Equal(t, "blackhat", MorphBlackhat.String())
	assert.Equal(t, "none", MorphologicalOp(99).String())
}

func TestDilate_SinglePixel(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 7, 7))
	img.SetGray(3, 3, colorGray(255))

	out := Dilate(img, SquareKernel, 1)
	for y := range 7 {
		for x := range 7 {
			want := uint8(0)
			if x >= 2 && x <= 4 && y >= 2 && y <= 4 {
				want = 255
			}
			assert.Equal(t, want, out.GrayAt(x, y).Y, "pixel (%d,%d)", x, y)
		}
	}
}

func TestErode_BlockShrinksToCenter(t *testing.T) {
	img := testutil.MaskFromRects(7, 7, image.Rect(2, 2, 5, 5))

	out := Erode(img, SquareKernel, 1)
	assert.Equal(t, 1, CountNonZero(out))
	assert.Equal(t, uint8(255), out.GrayAt(3, 3).Y)
}

func TestErode_BorderIsNeutral(t *testing.T) {
	img := testutil.UniformGray(5, 5, 255)

	out := Erode(img, SquareKernel, 3)
	assert.Equal(t, 25, CountNonZero(out))
}

func TestIterationsCompose(t *testing.T) {
	img := randomGray(7, 20, 15)

	twice := Dilate(img, SquareKernel, 2)
	stepwise := Dilate(Dilate(img, SquareKernel, 1), SquareKernel, 1)
	assert.Equal(t, stepwise.Pix, twice.Pix)
}

func TestBlackhat_SolidRectIsZero(t *testing.T) {
	img := testutil.UniformGray(80, 40, 200)
	fill(img, image.Rect(20, 10, 60, 30), 40)

	out := Blackhat(img, PlateKernel)
	assert.Equal(t, 0, CountNonZero(out))
}

func TestBlackhat_HighlightsThinDarkStroke(t *testing.T) {
	img := testutil.UniformGray(40, 20, 200)
	fill(img, image.Rect(10, 5, 12, 15), 40)

	out := Blackhat(img, PlateKernel)
	assert.Equal(t, uint8(160), out.GrayAt(10, 8).Y)
	assert.Equal(t, uint8(160), out.GrayAt(11, 8).Y)
	assert.Equal(t, uint8(0), out.GrayAt(20, 8).Y)
}

func TestApplyMorphologicalOperation(t *testing.T) {
	img := randomGray(3, 16, 12)

	tests := []struct {
		name string
		cfg  MorphConfig
		want *image.Gray
	}{
		{"none", MorphConfig{Operation: MorphNone, Kernel: SquareKernel, Iterations: 1}, img},
		{"invalid kernel", MorphConfig{Operation: MorphDilate, Kernel: Rect(0, 0), Iterations: 1}, img},
		{"zero iterations", MorphConfig{Operation: MorphErode, Kernel: SquareKernel, Iterations: 0}, img},
		{"dilate", MorphConfig{Operation: MorphDilate, Kernel: SquareKernel, Iterations: 1}, Dilate(img, SquareKernel, 1)},
		{"erode", MorphConfig{Operation: MorphErode, Kernel: SquareKernel, Iterations: 2}, Erode(img, SquareKernel, 2)},
		{"closing", MorphConfig{Operation: MorphClosing, Kernel: PlateKernel, Iterations: 1}, Close(img, PlateKernel)},
		{"opening", MorphConfig{Operation: MorphOpening, Kernel: PlateKernel, Iterations: 1}, Open(img, PlateKernel)},
		{"blackhat", MorphConfig{Operation: MorphBlackhat, Kernel: PlateKernel, Iterations: 1}, Blackhat(img, PlateKernel)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyMorphologicalOperation(img, tt.cfg)
			require.Equal(t, tt.want.Rect, got.Rect)
			assert.Equal(t, tt.want.Pix, got.Pix)
		})
	}
}

func TestApplyMorphologicalOperation_DoesNotMutateInput(t *testing.T) {
	img := randomGray(11, 10, 10)
	before := append([]uint8(nil), img.Pix...)

	_ = ApplyMorphologicalOperation(img, MorphConfig{Operation: MorphBlackhat, Kernel: PlateKernel, Iterations: 2})
	assert.Equal(t, before, img.Pix)
}

// TestMorphology_Ordering checks erode <= src <= dilate and that closing is extensive.
func TestMorphology_Ordering(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("erode <= src <= close and src <= dilate", prop.ForAll(
		func(seed int64, w, h, kw, kh int) bool {
			img := randomGray(seed, w, h)
			se := Rect(kw, kh)
			er := Erode(img, se, 1)
			di := Dilate(img, se, 1)
			cl := Close(img, se)
			for i := range img.Pix {
				if er.Pix[i] > img.Pix[i] || di.Pix[i] < img.Pix[i] || cl.Pix[i] < img.Pix[i] {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 30),
		gen.IntRange(1, 30),
		gen.IntRange(1, 15),
		gen.IntRange(1, 7),
	))

	properties.TestingRun(t)
}

func TestBlackhat_UniformIsZero(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("blackhat of a uniform frame is zero", prop.ForAll(
		func(v uint8, w, h int) bool {
			return CountNonZero(Blackhat(testutil.UniformGray(w, h, v), PlateKernel)) == 0
		},
		gen.UInt8(),
		gen.IntRange(1, 40),
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}
