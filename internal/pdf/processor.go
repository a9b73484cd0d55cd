package pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/MeKo-Tech/platefinder/internal/pipeline"
)

// ProcessorConfig contains configuration for PDF processing.
type ProcessorConfig struct {
	// Credentials unlock encrypted documents.
	Credentials *PasswordCredentials
	// MaxWorkers bounds the images processed at once. 0 uses the pipeline setting.
	MaxWorkers int
}

// DefaultProcessorConfig returns the default processor configuration.
func DefaultProcessorConfig() *ProcessorConfig {
	return &ProcessorConfig{}
}

// Processor runs the plate pipeline over the images of PDF documents.
type Processor struct {
	pipeline  *pipeline.Pipeline
	config    *ProcessorConfig
	passwords *PasswordHandler
}

// NewProcessor creates a PDF processor on top of pl.
func NewProcessor(pl *pipeline.Pipeline, config *ProcessorConfig) *Processor {
	if config == nil {
		config = DefaultProcessorConfig()
	}
	return &Processor{
		pipeline:  pl,
		config:    config,
		passwords: NewPasswordHandler(config.Credentials),
	}
}

// ProcessFile extracts the images of filename, restricted to pageRange when
// set, and localizes a plate in each of them.
func (p *Processor) ProcessFile(ctx context.Context, filename string, pageRange string) (*DocumentResult, error) {
	if p.pipeline == nil {
		return nil, errors.New("pdf processor has no pipeline")
	}
	startTime := time.Now()

	workingFile, err := p.passwords.DecryptPDF(filename, nil)
	if err != nil {
		return nil, err
	}
	if workingFile != filename {
		defer func() { _ = p.passwords.CleanupTempFile(workingFile) }()
	}

	totalPages, err := PageCount(workingFile)
	if err != nil {
		return nil, err
	}

	extractStart := time.Now()
	pageImages, err := ExtractImages(workingFile, pageRange)
	if err != nil {
		return nil, err
	}
	extractTime := time.Since(extractStart)

	pageNumbers := make([]int, 0, len(pageImages))
	var inputs []pipeline.Input
	for page := range pageImages {
		pageNumbers = append(pageNumbers, page)
	}
	sort.Ints(pageNumbers)
	for _, page := range pageNumbers {
		for i, img := range pageImages[page] {
			inputs = append(inputs, pipeline.Input{ID: imageID(filename, page, i), Image: img})
		}
	}
	slog.Debug("pdf images extracted", "file", filename, "pages", len(pageNumbers), "images", len(inputs))

	localizeStart := time.Now()
	results, err := p.process(ctx, inputs)
	if err != nil {
		return nil, err
	}
	localizeTime := time.Since(localizeStart)

	doc := &DocumentResult{Filename: filename, TotalPages: totalPages, Pages: make([]PageResult, 0, len(pageNumbers))}
	next := 0
	for _, page := range pageNumbers {
		n := len(pageImages[page])
		doc.Pages = append(doc.Pages, PageResult{PageNumber: page, Images: results[next : next+n]})
		next += n
	}
	doc.Processing = ProcessingInfo{
		ExtractionTimeMs:   extractTime.Milliseconds(),
		LocalizationTimeMs: localizeTime.Milliseconds(),
		TotalTimeMs:        time.Since(startTime).Milliseconds(),
	}
	return doc, nil
}

func (p *Processor) process(ctx context.Context, inputs []pipeline.Input) ([]*pipeline.PlateResult, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	parallel := p.pipeline.Config().Parallel
	if p.config.MaxWorkers > 0 {
		parallel.MaxWorkers = p.config.MaxWorkers
	}
	results, err := p.pipeline.ProcessImagesParallel(ctx, inputs, parallel)
	if err != nil {
		return nil, fmt.Errorf("process pdf images: %w", err)
	}
	return results, nil
}

// ProcessFiles processes several documents in order and stops at the first failure.
func (p *Processor) ProcessFiles(ctx context.Context, filenames []string, pageRange string) ([]*DocumentResult, error) {
	docs := make([]*DocumentResult, 0, len(filenames))
	for _, f := range filenames {
		doc, err := p.ProcessFile(ctx, f, pageRange)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func imageID(filename string, page, index int) string {
	return fmt.Sprintf("%s#page%d-image%d", filename, page, index+1)
}
