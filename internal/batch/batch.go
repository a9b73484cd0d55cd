// Package batch runs the plate pipeline over many files: discovery,
// parallel processing and aggregated output.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/MeKo-Tech/platefinder/internal/pipeline"
)

// ErrNoImages is returned when discovery finds nothing to process.
var ErrNoImages = errors.New("no image files found")

// ProcessBatch processes a batch of images with the given configuration.
func ProcessBatch(ctx context.Context, imagePaths []string, config *Config) (*Result, error) {
	files, err := DiscoverImageFiles(imagePaths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}

	if len(files) == 0 {
		return nil, ErrNoImages
	}

	var progressCallback pipeline.ProgressCallback
	if config.ShowProgress && !config.Quiet {
		w := config.ProgressWriter
		if w == nil {
			w = os.Stderr
		}
		progressCallback = pipeline.NewConsoleProgressCallback(w, "Processing: ").
			WithUpdateInterval(config.ProgressInterval)
	}

	pl, err := BuildPipeline(ctx, config, progressCallback)
	if err != nil {
		return nil, fmt.Errorf("failed to build plate pipeline: %w", err)
	}
	defer func() {
		if err := pl.Close(); err != nil {
			slog.Error("closing pipeline", "error", err)
		}
	}()

	startTime := time.Now()
	results, failures, err := processImages(ctx, pl, files, config)
	duration := time.Since(startTime)

	if err != nil {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}

	workers := pl.Config().Parallel.MaxWorkers
	slog.Info("batch finished", "images", len(files), "failed", len(failures), "duration", duration)

	return &Result{
		Results:     results,
		ImagePaths:  files,
		Failures:    failures,
		Duration:    duration,
		WorkerCount: workers,
	}, nil
}
