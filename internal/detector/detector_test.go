package detector

import (
	"image"
	"sort"
	"testing"

	"github.com/MeKo-Tech/platefinder/internal/debug"
	"github.com/MeKo-Tech/platefinder/internal/testutil"
	"github.com/MeKo-Tech/platefinder/internal/utils"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := New(DefaultConfig())
	require.NoError(t, err)
	return d
}

// assertBoxNear checks every edge of got against the pixel rectangle want.
func assertBoxNear(t *testing.T, want image.Rectangle, got utils.Box, tol int) {
	t.Helper()
	assert.InDelta(t, want.Min.X, got.X, float64(tol), "left edge")
	assert.InDelta(t, want.Min.Y, got.Y, float64(tol), "top edge")
	assert.InDelta(t, want.Max.X, got.X+got.W, float64(tol), "right edge")
	assert.InDelta(t, want.Max.Y, got.Y+got.H, float64(tol), "bottom edge")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Stages: StageConfig{RectKernel: Rect(0, 5), SquareKernel: SquareKernel}, Keep: 5})
	require.Error(t, err)

	_, err = New(Config{Stages: DefaultStageConfig(), Keep: 0})
	require.Error(t, err)

	d := newDefaultDetector(t)
	assert.Equal(t, DefaultKeep, d.Keep())
	assert.Len(t, d.StageNames(), 12)
}

func TestDetect_PlateScene(t *testing.T) {
	scene := testutil.StandardScene()
	d := newDefaultDetector(t)

	cs, err := d.Detect(scene.Gray(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, cs)

	box := cs[0].BoundingBox()
	assertBoxNear(t, scene.Regions[0], box, 3)
	ar, ok := box.AspectRatio()
	require.True(t, ok)
	assert.GreaterOrEqual(t, ar, 4.0)
	assert.LessOrEqual(t, ar, 5.0)
}

func TestDetect_LargerRegionRanksFirst(t *testing.T) {
	squareRegion := image.Rect(50, 50, 170, 170)
	plateRegion := image.Rect(300, 250, 450, 285)
	scene := testutil.NewPlateScene(600, 400, squareRegion, plateRegion)

	cs, err := newDefaultDetector(t).Detect(scene.Gray(), debug.Nop{})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(cs), 2)

	assertBoxNear(t, squareRegion, cs[0].BoundingBox(), 3)
	assertBoxNear(t, plateRegion, cs[1].BoundingBox(), 3)
}

func TestDetect_UniformFrameIsEmpty(t *testing.T) {
	properties := gopter.NewProperties(nil)
	d, err := New(DefaultConfig())
	require.NoError(t, err)

	properties.Property("no candidates on a uniform frame", prop.ForAll(
		func(v uint8, w, h int) bool {
			cs, err := d.Detect(testutil.UniformGray(w, h, v), nil)
			return err == nil && len(cs) == 0
		},
		gen.UInt8(),
		gen.IntRange(1, 80),
		gen.IntRange(1, 60),
	))

	properties.TestingRun(t)
}

func TestDetect_BoundedAndSorted(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 30
	properties := gopter.NewProperties(params)

	properties.Property("candidate count <= keep and areas non-increasing", prop.ForAll(
		func(seed int64, keep int) bool {
			d, err := New(Config{Stages: DefaultStageConfig(), Keep: keep})
			if err != nil {
				return false
			}
			cs, err := d.Detect(randomGray(seed, 64, 48), nil)
			if err != nil || len(cs) > keep {
				return false
			}
			areas := cs.Areas()
			return sort.SliceIsSorted(areas, func(i, j int) bool { return areas[i] > areas[j] })
		},
		gen.Int64(),
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}

func TestDetect_Deterministic(t *testing.T) {
	gray := testutil.StandardScene().Gray()
	d := newDefaultDetector(t)

	a, err := d.Detect(gray, nil)
	require.NoError(t, err)
	b, err := d.Detect(gray, nil)
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Points(), b[i].Points())
	}
}

func TestDetect_DoesNotMutateInput(t *testing.T) {
	gray := testutil.StandardScene().Gray()
	before := append([]uint8(nil), gray.Pix...)

	_, err := newDefaultDetector(t).Detect(gray, nil)
	require.NoError(t, err)
	assert.Equal(t, before, gray.Pix)
}

func TestDetect_EmitsEveryStage(t *testing.T) {
	sink := debug.NewMemorySink()
	d := newDefaultDetector(t)

	_, err := d.Detect(testutil.StandardScene().Gray(), sink)
	require.NoError(t, err)

	var want []string
	for _, name := range d.StageNames() {
		want = append(want, "stage/"+name)
	}
	assert.Equal(t, want, sink.Labels(""))
}

func TestDetectWithTimings(t *testing.T) {
	d := newDefaultDetector(t)

	_, timings := d.DetectWithTimings(testutil.StandardScene().Gray(), nil)
	require.Len(t, timings, len(d.StageNames())+1)
	assert.Equal(t, StageBlackhat, timings[0].Name)
	assert.Equal(t, "contours", timings[len(timings)-1].Name)
}

func TestNewWithStages_CustomChain(t *testing.T) {
	stages := []Stage{{
		Name:   "binary",
		Inputs: []string{SourceName},
		Apply: func(in ...*image.Gray) *image.Gray {
			return Threshold(in[0], 127, false)
		},
	}}
	d, err := NewWithStages(stages, 1)
	require.NoError(t, err)

	mask := testutil.MaskFromRects(40, 20, image.Rect(2, 2, 6, 6), image.Rect(10, 2, 30, 12))
	cs, err := d.Detect(mask, nil)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, utils.Box{X: 10, Y: 2, W: 20, H: 10}, cs[0].BoundingBox())

	assert.Equal(t, mask.Pix, d.Mask(mask).Pix)
}

func TestNewWithStages_Invalid(t *testing.T) {
	_, err := NewWithStages(nil, 1)
	require.Error(t, err)

	_, err = NewWithStages([]Stage{{Name: "a", Inputs: []string{SourceName}, Apply: identity}}, 0)
	require.Error(t, err)
}

func TestDetectFunc(t *testing.T) {
	gray := testutil.StandardScene().Gray()

	assert.NotEmpty(t, Detect(gray, 5))
	assert.Empty(t, Detect(gray, 0))
}

func TestNewBackend(t *testing.T) {
	for _, name := range []string{"", BackendPure, "PURE"} {
		det, err := NewBackend(name, DefaultConfig())
		require.NoError(t, err, name)
		assert.IsType(t, &Detector{}, det)
	}

	_, err := NewBackend("yolo", DefaultConfig())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorContains(t, err, "pure, gocv")

	_, err = NewBackend(BackendPure, Config{Stages: DefaultStageConfig(), Keep: 0})
	assert.Error(t, err)
}
