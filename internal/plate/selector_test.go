package plate

import (
	"encoding/json"
	"image"
	"testing"

	"github.com/MeKo-Tech/platefinder/internal/debug"
	"github.com/MeKo-Tech/platefinder/internal/detector"
	"github.com/MeKo-Tech/platefinder/internal/testutil"
	"github.com/MeKo-Tech/platefinder/internal/utils"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detectScene(t *testing.T, scene testutil.PlateScene) (*image.Gray, detector.CandidateSet) {
	t.Helper()
	gray := scene.Gray()
	d, err := detector.New(detector.DefaultConfig())
	require.NoError(t, err)
	cs, err := d.Detect(gray, nil)
	require.NoError(t, err)
	return gray, cs
}

func TestSelect_StandardScene(t *testing.T) {
	scene := testutil.StandardScene()
	gray, cs := detectScene(t, scene)

	res := Select(gray, cs, 4.0, 5.0, false)
	require.True(t, res.Found())
	assert.Equal(t, 0, res.CandidateIndex())

	box := res.BoundingBox()
	want := scene.Regions[0]
	assert.InDelta(t, want.Min.X, box.X, 3)
	assert.InDelta(t, want.Min.Y, box.Y, 3)
	assert.InDelta(t, want.Max.X, box.X+box.W, 3)
	assert.InDelta(t, want.Max.Y, box.Y+box.H, 3)

	roi := res.ROI()
	require.NotNil(t, roi)
	assert.Equal(t, box.W, roi.Rect.Dx())
	assert.Equal(t, box.H, roi.Rect.Dy())
	assert.Positive(t, detector.CountNonZero(roi))

	c, ok := res.Contour()
	require.True(t, ok)
	assert.Equal(t, box, c.BoundingBox())

	cleared := Select(gray, cs, 4.0, 5.0, true)
	require.True(t, cleared.Found())
	assert.Equal(t, roi.Pix, cleared.ROI().Pix, "plate strokes do not touch the crop edge")
}

func TestSelect_ROIPolarity(t *testing.T) {
	gray := testutil.UniformGray(60, 20, 200)
	testutil.DrawStrokes(gray, image.Rect(10, 5, 50, 15), 40, 2, 4)
	cs := detector.CandidateSet{rectContour(8, 4, 44, 12)}

	res := Select(gray, cs, 3.0, 4.0, false)
	require.True(t, res.Found())
	roi := res.ROI()
	assert.Equal(t, uint8(255), roi.GrayAt(2, 1).Y, "dark ink becomes foreground")
	assert.Equal(t, uint8(0), roi.GrayAt(0, 0).Y)
}

func TestSelect_Deterministic(t *testing.T) {
	gray, cs := detectScene(t, testutil.StandardScene())

	a := Select(gray, cs, 4.0, 5.0, true)
	b := Select(gray, cs, 4.0, 5.0, true)
	require.Equal(t, a.Found(), b.Found())
	assert.Equal(t, a.BoundingBox(), b.BoundingBox())
	assert.Equal(t, a.ROI().Pix, b.ROI().Pix)
}

func TestSelect_NoMatchIsAbsent(t *testing.T) {
	gray := testutil.UniformGray(100, 100, 128)

	tests := []struct {
		name string
		cs   detector.CandidateSet
	}{
		{"empty", nil},
		{"square", detector.CandidateSet{rectContour(10, 10, 30, 30)}},
		{"too wide", detector.CandidateSet{rectContour(0, 0, 90, 10)}},
		{"no height", detector.CandidateSet{detector.NewContour(nil)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Select(gray, tt.cs, 4.0, 5.0, false)
			assert.False(t, res.Found())
			assert.Nil(t, res.ROI())
			_, ok := res.Contour()
			assert.False(t, ok)
			assert.Equal(t, -1, res.CandidateIndex())
			assert.Equal(t, utils.Box{}, res.BoundingBox())
		})
	}

	assert.False(t, Select(nil, detector.CandidateSet{rectContour(0, 0, 45, 10)}, 4, 5, false).Found())
}

func TestSelect_SkipsZeroHeight(t *testing.T) {
	gray := testutil.UniformGray(100, 40, 128)
	cs := detector.CandidateSet{detector.NewContour(nil), rectContour(5, 5, 45, 10)}

	res := Select(gray, cs, 4.0, 5.0, false)
	require.True(t, res.Found())
	assert.Equal(t, 1, res.CandidateIndex())
}

func TestSelect_FirstMatchWins(t *testing.T) {
	gray := testutil.UniformGray(200, 100, 128)
	first := rectContour(0, 0, 41, 10)   // 4.1
	second := rectContour(0, 50, 45, 10) // 4.5, closer to the middle of the band

	res := Select(gray, detector.CandidateSet{first, second}, 4.0, 5.0, false)
	require.True(t, res.Found())
	assert.Equal(t, 0, res.CandidateIndex())
	assert.Equal(t, first.BoundingBox(), res.BoundingBox())
}

func TestSelect_InclusiveBounds(t *testing.T) {
	gray := testutil.UniformGray(100, 100, 128)

	assert.True(t, Select(gray, detector.CandidateSet{rectContour(0, 0, 40, 10)}, 4.0, 5.0, false).Found())
	assert.True(t, Select(gray, detector.CandidateSet{rectContour(0, 0, 50, 10)}, 4.0, 5.0, false).Found())
	assert.False(t, Select(gray, detector.CandidateSet{rectContour(0, 0, 51, 10)}, 4.0, 5.0, false).Found())
}

func TestSelect_SquareBeforePlate(t *testing.T) {
	squareRegion := image.Rect(50, 50, 170, 170)
	plateRegion := image.Rect(300, 250, 450, 285)
	gray, cs := detectScene(t, testutil.NewPlateScene(600, 400, squareRegion, plateRegion))

	res := Select(gray, cs, 4.0, 5.0, false)
	require.True(t, res.Found())
	assert.Equal(t, 1, res.CandidateIndex())
	assert.InDelta(t, plateRegion.Min.X, res.BoundingBox().X, 3)
	assert.InDelta(t, plateRegion.Min.Y, res.BoundingBox().Y, 3)
}

func TestSelect_TwoPlatesLargestWins(t *testing.T) {
	small := image.Rect(50, 50, 200, 85)
	large := image.Rect(300, 250, 480, 290)
	gray, cs := detectScene(t, testutil.NewPlateScene(600, 400, small, large))

	res := Select(gray, cs, 4.0, 5.0, false)
	require.True(t, res.Found())
	assert.InDelta(t, large.Min.X, res.BoundingBox().X, 3)
	assert.InDelta(t, large.Min.Y, res.BoundingBox().Y, 3)
}

func TestSelectWithSink_EmitsROIStages(t *testing.T) {
	gray, cs := detectScene(t, testutil.StandardScene())
	sink := debug.NewMemorySink()

	s := DefaultSelector()
	s.ClearBorder = true
	res := s.SelectWithSink(gray, cs, sink)
	require.True(t, res.Found())
	assert.Equal(t, []string{"roi/crop", "roi/threshold", "roi/clear_border"}, sink.Labels(""))
}

func TestSelector_Validate(t *testing.T) {
	require.NoError(t, DefaultSelector().Validate())
	require.Error(t, Selector{MinAspectRatio: 0, MaxAspectRatio: 5}.Validate())
	require.Error(t, Selector{MinAspectRatio: 5, MaxAspectRatio: 4}.Validate())
	require.NoError(t, Selector{MinAspectRatio: 4, MaxAspectRatio: 4}.Validate())
}

func TestSelect_FirstMatchProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)
	gray := testutil.UniformGray(400, 200, 128)

	properties.Property("result is the first candidate inside the band", prop.ForAll(
		func(widths []int, minAR, span float64) bool {
			cs := make(detector.CandidateSet, len(widths))
			for i, w := range widths {
				cs[i] = rectContour(0, 0, w, 10)
			}
			maxAR := minAR + span
			res := Select(gray, cs, minAR, maxAR, false)

			want := -1
			for i, c := range cs {
				ar, _ := c.BoundingBox().AspectRatio()
				if ar >= minAR && ar <= maxAR {
					want = i
					break
				}
			}
			if want < 0 {
				return !res.Found() && res.ROI() == nil
			}
			return res.Found() && res.CandidateIndex() == want && res.ROI() != nil
		},
		gen.SliceOf(gen.IntRange(1, 100)),
		gen.Float64Range(0.5, 8),
		gen.Float64Range(0, 3),
	))

	properties.TestingRun(t)
}

func TestLocalizationResult_JSON(t *testing.T) {
	data, err := json.Marshal(NotFound())
	require.NoError(t, err)
	assert.JSONEq(t, `{"found":false,"candidate_index":-1}`, string(data))

	res := NewLocalization(image.NewGray(image.Rect(0, 0, 45, 10)), rectContour(5, 5, 45, 10), 2)
	data, err = json.Marshal(res)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, true, decoded["found"])
	assert.InDelta(t, 4.5, decoded["aspect_ratio"], 1e-9)
	assert.Contains(t, decoded, "contour")
}

func TestNewLocalization_NilROIIsAbsent(t *testing.T) {
	res := NewLocalization(nil, rectContour(0, 0, 45, 10), 0)
	assert.False(t, res.Found())
	_, ok := res.Contour()
	assert.False(t, ok)
}
