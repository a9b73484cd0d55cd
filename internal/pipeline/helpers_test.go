package pipeline

import (
	"context"
	"image"
	"sync/atomic"
	"testing"

	"github.com/MeKo-Tech/platefinder/internal/lookup"
	"github.com/MeKo-Tech/platefinder/internal/ocr"
	"github.com/MeKo-Tech/platefinder/internal/testutil"
	"github.com/MeKo-Tech/platefinder/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertBoxNear checks every edge of got against the pixel rectangle want.
func assertBoxNear(t *testing.T, want image.Rectangle, got utils.Box, tol int) {
	t.Helper()
	assert.InDelta(t, want.Min.X, got.X, float64(tol), "left edge")
	assert.InDelta(t, want.Min.Y, got.Y, float64(tol), "top edge")
	assert.InDelta(t, want.Max.X, got.X+got.W, float64(tol), "right edge")
	assert.InDelta(t, want.Max.Y, got.Y+got.H, float64(tol), "bottom edge")
}

// countingRecognizer returns text and counts calls.
type countingRecognizer struct {
	text   string
	err    error
	calls  atomic.Int32
	closed atomic.Bool
}

func (r *countingRecognizer) Recognize(ctx context.Context, roi image.Image, _ ocr.Options) (string, error) {
	r.calls.Add(1)
	if roi == nil {
		return "", ocr.ErrEmptyImage
	}
	return r.text, r.err
}

func (r *countingRecognizer) Close() error {
	r.closed.Store(true)
	return nil
}

// failingStore fails every lookup with err.
type failingStore struct{ err error }

func (s failingStore) Lookup(context.Context, string) (lookup.Record, error) {
	return lookup.Record{}, s.err
}

var corolla = lookup.Record{Make: "Toyota", Model: "Corolla", Year: 2015, Owner: "Mary Smith"}

func sampleStore() *lookup.MemoryStore {
	return lookup.NewMemoryStore(lookup.Database{"ABC123": corolla})
}

func newTestPipeline(t *testing.T, b *Builder) *Pipeline {
	t.Helper()
	p, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// scaledScene renders the standard scene at twice the size, so that a 2x
// box downscale reproduces it pixel for pixel.
func scaledScene() testutil.PlateScene {
	s := testutil.NewPlateScene(1200, 800, image.Rect(200, 300, 500, 370))
	s.StrokeWidth = 2 * testutil.DefaultStrokeWidth
	s.StrokePeriod = 2 * testutil.DefaultStrokePeriod
	return s
}
