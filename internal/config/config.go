package config

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/platefinder/internal/detector"
	"github.com/MeKo-Tech/platefinder/internal/lookup"
	"github.com/MeKo-Tech/platefinder/internal/ocr"
	"github.com/MeKo-Tech/platefinder/internal/pipeline"
	"github.com/MeKo-Tech/platefinder/internal/plate"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	ocrDefaults := ocr.DefaultOptions()
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Pipeline: PipelineConfig{
			MinAspectRatio: plate.DefaultMinAspectRatio,
			MaxAspectRatio: plate.DefaultMaxAspectRatio,
			Keep:           detector.DefaultKeep,
			ClearBorder:    false,
			Detector:       detector.BackendPure,
			ResizeWidth:    pipeline.DefaultResizeWidth,
			Parallel:       ParallelConfig{MaxWorkers: pipeline.DefaultParallelConfig().MaxWorkers},
		},
		OCR: OCRConfig{
			Backend:           ocr.BackendTesseract,
			Language:          ocrDefaults.Language,
			PageSegMode:       ocrDefaults.PageSegMode,
			AllowedCharacters: ocrDefaults.AllowedCharacters,
			Region:            "us-east-1",
			MinConfidence:     80,
		},
		Lookup: LookupConfig{
			Backend: lookup.BackendFile,
			Path:    "database.json",
			Table:   lookup.DefaultTable,
		},
		Output: OutputConfig{
			Format: "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			OverlayEnabled:  true,
			OverlayColor:    "#00FF00",
			MaxBatchItems:   10,

			RateLimitEnabled:  false,
			RequestsPerMinute: 60,
			RequestsPerHour:   1000,
			MaxRequestsPerDay: 5000,
			MaxDataPerDay:     100 * 1024 * 1024,
		},
		Batch: BatchConfig{
			Workers:         4,
			Recursive:       true,
			Include:         []string{"*.jpg", "*.jpeg", "*.png", "*.bmp", "*.tif", "*.tiff", "*.webp"},
			ContinueOnError: true,
		},
		Debug: DebugConfig{
			Enabled: false,
			Dir:     "debug",
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "csv"}
	if c.Output.Format != "" && !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	// Localization
	if c.Pipeline.MinAspectRatio <= 0 {
		return fmt.Errorf("invalid pipeline.min_aspect_ratio: %v (must be positive)", c.Pipeline.MinAspectRatio)
	}
	if c.Pipeline.MaxAspectRatio < c.Pipeline.MinAspectRatio {
		return fmt.Errorf("invalid pipeline.max_aspect_ratio: %v (must be >= min_aspect_ratio %v)",
			c.Pipeline.MaxAspectRatio, c.Pipeline.MinAspectRatio)
	}
	if c.Pipeline.Keep < 1 {
		return fmt.Errorf("invalid pipeline.keep: %d (must be at least 1)", c.Pipeline.Keep)
	}
	if !contains(detector.Backends(), strings.ToLower(c.Pipeline.Detector)) {
		return fmt.Errorf("invalid pipeline.detector: %s (must be one of: %s)",
			c.Pipeline.Detector, strings.Join(detector.Backends(), ", "))
	}
	if c.Pipeline.ResizeWidth < 0 {
		return fmt.Errorf("invalid pipeline.resize_width: %d (must be >= 0)", c.Pipeline.ResizeWidth)
	}
	if c.Pipeline.Parallel.MaxWorkers <= 0 {
		return fmt.Errorf("invalid parallel max workers: %d (must be positive)", c.Pipeline.Parallel.MaxWorkers)
	}

	// Collaborators
	validOCR := []string{ocr.BackendTesseract, ocr.BackendRekognition, ocr.BackendNone}
	if !contains(validOCR, strings.ToLower(c.OCR.Backend)) {
		return fmt.Errorf("invalid ocr backend: %s (must be one of: %s)", c.OCR.Backend, strings.Join(validOCR, ", "))
	}
	if c.OCR.PageSegMode < 0 || c.OCR.PageSegMode > ocr.PSMRawLine {
		return fmt.Errorf("invalid ocr.psm: %d (must be between 0 and %d)", c.OCR.PageSegMode, ocr.PSMRawLine)
	}
	if c.OCR.MinConfidence < 0 || c.OCR.MinConfidence > 100 {
		return fmt.Errorf("invalid ocr.min_confidence: %.2f (must be between 0 and 100)", c.OCR.MinConfidence)
	}
	validLookup := []string{lookup.BackendFile, lookup.BackendPostgres, lookup.BackendMemory}
	if !contains(validLookup, strings.ToLower(c.Lookup.Backend)) {
		return fmt.Errorf("invalid lookup backend: %s (must be one of: %s)", c.Lookup.Backend, strings.Join(validLookup, ", "))
	}
	if strings.EqualFold(c.Lookup.Backend, lookup.BackendPostgres) && c.Lookup.DSN == "" {
		return fmt.Errorf("lookup backend %s requires lookup.dsn", lookup.BackendPostgres)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.MaxBatchItems <= 0 {
		return fmt.Errorf("invalid server.max_batch_items: %d (must be positive)", c.Server.MaxBatchItems)
	}
	if c.Server.RequestsPerMinute < 0 || c.Server.RequestsPerHour < 0 ||
		c.Server.MaxRequestsPerDay < 0 || c.Server.MaxDataPerDay < 0 {
		return fmt.Errorf("invalid rate limits: values must not be negative")
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}

	if c.Debug.Enabled && c.Debug.Dir == "" {
		return fmt.Errorf("debug.enabled requires debug.dir")
	}

	return nil
}

// ToPipelineConfig converts the config to the internal pipeline configuration format.
func (c *Config) ToPipelineConfig() pipeline.Config {
	parallel := pipeline.DefaultParallelConfig()
	parallel.MaxWorkers = c.Pipeline.Parallel.MaxWorkers
	return pipeline.Config{
		MinAspectRatio: c.Pipeline.MinAspectRatio,
		MaxAspectRatio: c.Pipeline.MaxAspectRatio,
		Keep:           c.Pipeline.Keep,
		ClearBorder:    c.Pipeline.ClearBorder,
		Detector:       strings.ToLower(c.Pipeline.Detector),
		DebugEnabled:   c.Debug.Enabled,
		DebugDir:       c.Debug.Dir,
		ResizeWidth:    c.Pipeline.ResizeWidth,
		OCR:            c.toOCROptions(),
		Parallel:       parallel,
	}
}

// ToOCRConfig converts to the recognizer backend selection.
func (c *Config) ToOCRConfig() ocr.Config {
	return ocr.Config{
		Backend:       strings.ToLower(c.OCR.Backend),
		Options:       c.toOCROptions(),
		Region:        c.OCR.Region,
		MinConfidence: c.OCR.MinConfidence,
	}
}

// ToLookupConfig converts to the plate database selection.
func (c *Config) ToLookupConfig() lookup.Config {
	return lookup.Config{
		Backend: strings.ToLower(c.Lookup.Backend),
		Path:    c.Lookup.Path,
		DSN:     c.Lookup.DSN,
		Table:   c.Lookup.Table,
	}
}

func (c *Config) toOCROptions() ocr.Options {
	return ocr.Options{
		AllowedCharacters: c.OCR.AllowedCharacters,
		PageSegMode:       c.OCR.PageSegMode,
		Language:          c.OCR.Language,
	}
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
