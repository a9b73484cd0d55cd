package pipeline

import (
	"context"
	"image"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/platefinder/internal/ocr"
	"github.com/MeKo-Tech/platefinder/internal/testutil"
	"github.com/MeKo-Tech/platefinder/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countPlateColor(img *image.RGBA) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) == PlateColor {
				n++
			}
		}
	}
	return n
}

func TestRenderOverlay(t *testing.T) {
	scene := testutil.StandardScene()
	p := newTestPipeline(t, NewBuilder().WithRecognizer(ocr.Static{Text: "ABC123"}))
	res, err := p.ProcessImage(context.Background(), scene.RGBA(), "car")
	require.NoError(t, err)
	require.True(t, res.Found)

	out := RenderOverlay(scene.RGBA(), res, PlateColor)
	require.NotNil(t, out)
	assert.Equal(t, scene.RGBA().Bounds(), out.Bounds())
	assert.Positive(t, countPlateColor(out))

	c := res.Polygon[0]
	assert.Equal(t, PlateColor, out.RGBAAt(int(c.X+0.5), int(c.Y+0.5)), "outline passes through a rectangle corner")

	withoutLabel := *res
	withoutLabel.Plate = ""
	plain := RenderOverlay(scene.RGBA(), &withoutLabel, PlateColor)
	assert.Greater(t, countPlateColor(out), countPlateColor(plain), "label adds pixels above the region")
}

func TestRenderOverlay_Edges(t *testing.T) {
	assert.Nil(t, RenderOverlay(nil, nil, PlateColor))

	img := testutil.UniformGray(20, 10, 0)
	out := RenderOverlay(img, &PlateResult{Found: false}, PlateColor)
	assert.Zero(t, countPlateColor(out))

	boxOnly := &PlateResult{Found: true, Box: &utils.Box{X: 2, Y: 2, W: 10, H: 4}}
	out = RenderOverlay(img, boxOnly, PlateColor)
	assert.Equal(t, PlateColor, out.RGBAAt(2, 2))
}

func TestSaveOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.jpg")
	res := &PlateResult{Found: true, Box: &utils.Box{X: 1, Y: 1, W: 8, H: 4}, Plate: "AB1"}
	require.NoError(t, SaveOverlay(path, testutil.UniformGray(40, 20, 255), res))
	assert.True(t, testutil.FileExists(path))

	require.Error(t, SaveOverlay(filepath.Join(t.TempDir(), "x.unknown"), testutil.UniformGray(4, 4, 0), res))
}
