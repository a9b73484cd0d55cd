package batch

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/platefinder/internal/lookup"
	"github.com/MeKo-Tech/platefinder/internal/ocr"
	"github.com/MeKo-Tech/platefinder/internal/pipeline"
)

// Config holds all configuration for batch processing.
type Config struct {
	// Localization and collaborators
	Pipeline pipeline.Config
	OCR      ocr.Config
	Lookup   lookup.Config

	// Recognizer and Store replace the backends named by OCR and Lookup.
	Recognizer ocr.Recognizer
	Store      lookup.Store
	// NoLookup skips the plate database entirely.
	NoLookup bool

	// Output settings
	OverlayDir string
	Format     string
	OutputFile string

	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ShowStats        bool
	ProgressInterval time.Duration
	ProgressWriter   io.Writer
}

// DefaultConfig returns batch settings over the default pipeline.
func DefaultConfig() *Config {
	return &Config{
		Pipeline:         pipeline.DefaultConfig(),
		OCR:              ocr.Config{Backend: ocr.BackendTesseract, Options: ocr.DefaultOptions()},
		Lookup:           lookup.Config{Backend: lookup.BackendFile, Path: "database.json"},
		Format:           "text",
		Workers:          4,
		Recursive:        true,
		ProgressInterval: 100 * time.Millisecond,
	}
}

// Failure records an input that could not be processed.
type Failure struct {
	Path  string `json:"file"`
	Error string `json:"error"`
}

// Result holds the result of batch processing. Results is aligned with
// ImagePaths; failed entries are nil.
type Result struct {
	Results     []*pipeline.PlateResult
	ImagePaths  []string
	Failures    []Failure
	Duration    time.Duration
	WorkerCount int
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r, format)
}

// SaveResults writes the formatted results to outputFile, or to w when no
// file is given.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
		return nil
	}

	_, err = fmt.Fprint(w, output)
	return err
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer, quiet bool) {
	if quiet {
		return
	}
	stats := pipeline.CalculateParallelStats(r.Results, r.Duration, r.WorkerCount)
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total images: %d\n", len(r.ImagePaths))
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", stats.ProcessedImages)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", len(r.Failures))
	_, _ = fmt.Fprintf(w, "  Plates found: %d\n", stats.PlatesFound)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", stats.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per image: %v\n", stats.AveragePerImage.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f images/sec\n", stats.ThroughputPerSec)
}

// PlatesFound counts the results with a localized plate.
func (r *Result) PlatesFound() int {
	n := 0
	for _, res := range r.Results {
		if res != nil && res.Found {
			n++
		}
	}
	return n
}
