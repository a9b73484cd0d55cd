package pdf

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/platefinder/internal/lookup"
	"github.com/MeKo-Tech/platefinder/internal/ocr"
	"github.com/MeKo-Tech/platefinder/internal/pipeline"
	"github.com/MeKo-Tech/platefinder/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	store := lookup.NewMemoryStore(lookup.Database{
		"ABC123": {Make: "Toyota", Model: "Corolla", Year: 2018, Owner: "Jane Doe"},
	})
	p, err := pipeline.NewBuilder().
		WithRecognizer(ocr.Static{Text: "abc-123"}).
		WithLookup(store).
		WithParallelWorkers(2).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestNewProcessor_Defaults(t *testing.T) {
	p := NewProcessor(nil, nil)
	require.NotNil(t, p.config)
	assert.Zero(t, p.config.MaxWorkers)

	_, err := p.ProcessFile(context.Background(), "cars.pdf", "")
	assert.EqualError(t, err, "pdf processor has no pipeline")
}

func TestProcessFile_MissingFile(t *testing.T) {
	p := NewProcessor(newTestPipeline(t), nil)
	_, err := p.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), "")
	assert.Error(t, err)
}

func TestProcessFile_FindsPlatePerPage(t *testing.T) {
	dir := t.TempDir()
	path := writeImagePDF(t, dir, "cars.pdf",
		testutil.StandardScene().Gray(),
		testutil.UniformGray(600, 400, 128),
	)
	if _, err := PageCount(path); err != nil {
		t.Skipf("pdfcpu rejected the synthetic document: %v", err)
	}

	p := NewProcessor(newTestPipeline(t), &ProcessorConfig{MaxWorkers: 1})
	doc, err := p.ProcessFile(context.Background(), path, "")
	require.NoError(t, err)

	assert.Equal(t, path, doc.Filename)
	assert.Equal(t, 2, doc.TotalPages)
	require.Len(t, doc.Pages, 2)
	assert.Equal(t, 1, doc.Pages[0].PageNumber)
	assert.Equal(t, 2, doc.Pages[1].PageNumber)

	require.Len(t, doc.Pages[0].Images, 1)
	first := doc.Pages[0].Images[0]
	assert.True(t, first.Found)
	assert.Equal(t, imageID(path, 1, 0), first.ImageID)
	assert.Equal(t, "ABC123", first.Plate)
	assert.Equal(t, pipeline.LookupFound, first.LookupStatus)

	require.Len(t, doc.Pages[1].Images, 1)
	assert.False(t, doc.Pages[1].Images[0].Found)

	assert.Equal(t, 1, doc.PlatesFound())
	assert.GreaterOrEqual(t, doc.Processing.TotalTimeMs, doc.Processing.ExtractionTimeMs)
}

func TestProcessFiles_StopsAtFirstFailure(t *testing.T) {
	p := NewProcessor(newTestPipeline(t), nil)
	missing := filepath.Join(t.TempDir(), "missing.pdf")
	_, err := p.ProcessFiles(context.Background(), []string{missing}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), missing)
}

func TestImageID(t *testing.T) {
	assert.Equal(t, "cars.pdf#page3-image1", imageID("cars.pdf", 3, 0))
}
