package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/platefinder/internal/pipeline"
	"github.com/MeKo-Tech/platefinder/internal/utils"
)

// loadInputs decodes every path. With continueOnError an unreadable file
// becomes a Failure; otherwise the first one aborts the run. index maps each
// input back to its position in paths.
func loadInputs(paths []string, continueOnError bool) ([]pipeline.Input, []int, []Failure, error) {
	inputs := make([]pipeline.Input, 0, len(paths))
	index := make([]int, 0, len(paths))
	var failures []Failure

	for i, path := range paths {
		img, _, err := utils.LoadImage(path)
		if err != nil {
			if !continueOnError {
				return nil, nil, nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
			slog.Warn("skipping unreadable image", "file", path, "error", err)
			failures = append(failures, Failure{Path: path, Error: err.Error()})
			continue
		}
		inputs = append(inputs, pipeline.Input{ID: path, Image: img})
		index = append(index, i)
	}
	return inputs, index, failures, nil
}

// overlayPath returns the overlay file written for the image at path.
func overlayPath(overlayDir, path string) string {
	base := filepath.Base(path)
	return filepath.Join(overlayDir, strings.TrimSuffix(base, filepath.Ext(base))+"_overlay.png")
}

// processImages runs the pipeline over paths. The returned results are
// aligned with paths.
func processImages(ctx context.Context, pl *pipeline.Pipeline, paths []string,
	config *Config) ([]*pipeline.PlateResult, []Failure, error) {
	inputs, index, failures, err := loadInputs(paths, config.ContinueOnError)
	if err != nil {
		return nil, nil, err
	}

	aligned := make([]*pipeline.PlateResult, len(paths))
	if len(inputs) == 0 {
		return aligned, failures, nil
	}
	if config.OverlayDir != "" {
		if err := os.MkdirAll(config.OverlayDir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("create overlay dir: %w", err)
		}
	}

	parallel := pl.Config().Parallel
	parallel.ErrorHandler = func(i int, in pipeline.Input, err error) {
		failures = append(failures, Failure{Path: in.ID, Error: err.Error()})
	}

	results, err := pl.ProcessImagesParallel(ctx, inputs, parallel)
	if err != nil && (results == nil || !config.ContinueOnError) {
		return nil, nil, err
	}

	for i, res := range results {
		if res == nil {
			continue
		}
		aligned[index[i]] = res
		if config.OverlayDir != "" {
			out := overlayPath(config.OverlayDir, inputs[i].ID)
			if err := pipeline.SaveOverlay(out, inputs[i].Image, res); err != nil {
				slog.Warn("overlay not written", "file", out, "error", err)
			}
		}
	}
	return aligned, failures, nil
}
