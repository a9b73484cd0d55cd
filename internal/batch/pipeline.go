package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/platefinder/internal/lookup"
	"github.com/MeKo-Tech/platefinder/internal/ocr"
	"github.com/MeKo-Tech/platefinder/internal/pipeline"
)

// BuildPipeline creates a plate pipeline from the batch configuration. A
// file database that does not exist disables lookup with a warning instead
// of failing the run.
func BuildPipeline(ctx context.Context, config *Config, progressCallback pipeline.ProgressCallback) (*pipeline.Pipeline, error) {
	rec, err := openRecognizer(ctx, config)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, config)
	if err != nil {
		_ = ocr.Close(rec)
		return nil, err
	}

	b := pipeline.NewBuilder().
		WithConfig(config.Pipeline).
		WithParallelWorkers(config.Workers).
		WithProgressCallback(progressCallback).
		WithRecognizer(rec)
	if store != nil {
		b = b.WithLookup(store)
	}

	pl, err := b.Build()
	if err != nil {
		_ = ocr.Close(rec)
		if store != nil {
			_ = lookup.Close(store)
		}
		return nil, err
	}
	return pl, nil
}

func openRecognizer(ctx context.Context, config *Config) (ocr.Recognizer, error) {
	if config.Recognizer != nil {
		return config.Recognizer, nil
	}
	ocfg := config.OCR
	ocfg.Options = config.Pipeline.OCR
	rec, err := ocr.New(ctx, ocfg)
	if err != nil {
		return nil, fmt.Errorf("ocr backend %q: %w", ocfg.Backend, err)
	}
	return rec, nil
}

func openStore(ctx context.Context, config *Config) (lookup.Store, error) {
	if config.NoLookup {
		return nil, nil
	}
	if config.Store != nil {
		return config.Store, nil
	}
	store, err := lookup.Open(ctx, config.Lookup)
	if err != nil {
		isFile := config.Lookup.Backend == "" || strings.EqualFold(config.Lookup.Backend, lookup.BackendFile)
		if isFile && errors.Is(err, fs.ErrNotExist) {
			slog.Warn("plate database not found, lookup disabled", "path", config.Lookup.Path)
			return nil, nil
		}
		return nil, fmt.Errorf("open plate database: %w", err)
	}
	return store, nil
}
