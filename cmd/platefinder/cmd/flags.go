package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/MeKo-Tech/platefinder/internal/batch"
	"github.com/MeKo-Tech/platefinder/internal/config"
	"github.com/MeKo-Tech/platefinder/internal/lookup"
	"github.com/spf13/cobra"
)

const (
	outputFormatJSON = "json"
	outputFormatCSV  = "csv"
	outputFormatText = "text"
)

// addPipelineFlags registers the localization and collaborator flags shared
// by every command that processes images.
func addPipelineFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()

	// Localization
	cmd.Flags().Float64("min-ar", d.Pipeline.MinAspectRatio, "minimum plate aspect ratio (width/height)")
	cmd.Flags().Float64("max-ar", d.Pipeline.MaxAspectRatio, "maximum plate aspect ratio (width/height)")
	cmd.Flags().Int("keep", d.Pipeline.Keep, "number of largest candidate regions to examine")
	cmd.Flags().Bool("clear-border", d.Pipeline.ClearBorder, "remove foreground touching the region border before OCR")
	cmd.Flags().String("detector", d.Pipeline.Detector, "candidate detector backend: pure or gocv (needs the gocv build tag)")
	cmd.Flags().Int("resize-width", d.Pipeline.ResizeWidth, "working width inputs are scaled to (0 = keep size)")

	// Recognition
	cmd.Flags().String("ocr-backend", d.OCR.Backend, "text recognizer: tesseract, rekognition or none")
	cmd.Flags().Int("psm", d.OCR.PageSegMode, "tesseract page segmentation mode (0..13)")
	cmd.Flags().String("ocr-lang", d.OCR.Language, "tesseract language")

	// Lookup
	cmd.Flags().String("db", d.Lookup.Path, "plate database file (JSON or YAML)")
	cmd.Flags().String("db-backend", d.Lookup.Backend, "plate database backend: file, postgres or memory")
	cmd.Flags().String("dsn", "", "postgres connection string for --db-backend=postgres")
	cmd.Flags().Bool("no-lookup", false, "skip the plate database")

	// Debug output
	cmd.Flags().Bool("debug", d.Debug.Enabled, "write intermediate stage images")
	cmd.Flags().String("debug-dir", d.Debug.Dir, "directory for intermediate stage images")

	cmd.Flags().IntP("workers", "w", 0, fmt.Sprintf("number of parallel workers (default: %d)", runtime.NumCPU()))
}

// addOutputFlags registers the result formatting flags.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", outputFormatText, "output format: text, json, csv")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	cmd.Flags().String("output-dir", "", "directory to write annotated copies of the inputs")
}

// configToBatchConfig maps centralized configuration to batch.Config.
// CLI flags override config file values when they were set explicitly.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	bc := batch.DefaultConfig()
	bc.Pipeline = cfg.ToPipelineConfig()
	bc.OCR = cfg.ToOCRConfig()
	bc.Lookup = cfg.ToLookupConfig()
	bc.Workers = cfg.Pipeline.Parallel.MaxWorkers
	bc.Format = cfg.Output.Format
	bc.OutputFile = cfg.Output.File
	bc.OverlayDir = cfg.Output.OverlayDir
	bc.Recursive = cfg.Batch.Recursive
	bc.IncludePatterns = cfg.Batch.Include
	bc.ExcludePatterns = cfg.Batch.Exclude
	bc.ContinueOnError = cfg.Batch.ContinueOnError

	flags := cmd.Flags()
	setFloat := func(name string, target *float64) {
		if flags.Changed(name) {
			*target, _ = flags.GetFloat64(name)
		}
	}
	setInt := func(name string, target *int) {
		if flags.Changed(name) {
			*target, _ = flags.GetInt(name)
		}
	}
	setString := func(name string, target *string) {
		if flags.Changed(name) {
			*target, _ = flags.GetString(name)
		}
	}
	setBool := func(name string, target *bool) {
		if flags.Changed(name) {
			*target, _ = flags.GetBool(name)
		}
	}

	setFloat("min-ar", &bc.Pipeline.MinAspectRatio)
	setFloat("max-ar", &bc.Pipeline.MaxAspectRatio)
	setInt("keep", &bc.Pipeline.Keep)
	setBool("clear-border", &bc.Pipeline.ClearBorder)
	setInt("resize-width", &bc.Pipeline.ResizeWidth)
	setString("detector", &bc.Pipeline.Detector)
	bc.Pipeline.Detector = strings.ToLower(bc.Pipeline.Detector)

	setString("ocr-backend", &bc.OCR.Backend)
	bc.OCR.Backend = strings.ToLower(bc.OCR.Backend)
	setInt("psm", &bc.Pipeline.OCR.PageSegMode)
	setString("ocr-lang", &bc.Pipeline.OCR.Language)

	setString("db", &bc.Lookup.Path)
	setString("db-backend", &bc.Lookup.Backend)
	bc.Lookup.Backend = strings.ToLower(bc.Lookup.Backend)
	setString("dsn", &bc.Lookup.DSN)
	if flags.Changed("dsn") && !flags.Changed("db-backend") {
		bc.Lookup.Backend = lookup.BackendPostgres
	}
	setBool("no-lookup", &bc.NoLookup)

	setBool("debug", &bc.Pipeline.DebugEnabled)
	setString("debug-dir", &bc.Pipeline.DebugDir)

	setInt("workers", &bc.Workers)
	bc.Pipeline.Parallel.MaxWorkers = bc.Workers

	setString("format", &bc.Format)
	bc.Format = strings.ToLower(bc.Format)
	setString("output", &bc.OutputFile)
	setString("output-dir", &bc.OverlayDir)

	setBool("recursive", &bc.Recursive)
	if flags.Changed("include") {
		bc.IncludePatterns, _ = flags.GetStringSlice("include")
	}
	if flags.Changed("exclude") {
		bc.ExcludePatterns, _ = flags.GetStringSlice("exclude")
	}
	setBool("continue-on-error", &bc.ContinueOnError)

	return bc
}

// validateFormat rejects output formats the formatters do not know.
func validateFormat(format string) error {
	valid := []string{outputFormatText, outputFormatJSON, outputFormatCSV}
	for _, f := range valid {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid output format: %s (must be one of: %s)", format, strings.Join(valid, ", "))
}
