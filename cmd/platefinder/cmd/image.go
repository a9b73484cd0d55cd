package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/platefinder/internal/batch"
	"github.com/MeKo-Tech/platefinder/internal/pipeline"
	"github.com/MeKo-Tech/platefinder/internal/utils"
	"github.com/spf13/cobra"
)

// imageCmd represents the image command.
var imageCmd = &cobra.Command{
	Use:   "image [files...]",
	Short: "Process images to locate, read and look up license plates",
	Long: `Process one or more photos of vehicles. For each image the plate region is
located, its characters are recognized and the plate is looked up in the
vehicle database.

Supported formats: JPEG, PNG, BMP, TIFF, WebP

Examples:
  platefinder image car.jpg
  platefinder image *.png --format json
  platefinder image car.jpg --output-dir annotated --db plates.yaml
  platefinder image car.jpg --min-ar 3 --max-ar 5 --clear-border --psm 7`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE:         runImageCommand,
}

func runImageCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("no input files provided")
	}

	bc := configToBatchConfig(GetConfig(), cmd)
	if err := validateFormat(bc.Format); err != nil {
		return err
	}
	for _, path := range args {
		if !utils.IsSupportedImage(path) {
			return fmt.Errorf("unsupported image format: %s", path)
		}
	}

	ctx := commandContext(cmd)
	pl, err := batch.BuildPipeline(ctx, bc, nil)
	if err != nil {
		return fmt.Errorf("failed to build plate pipeline: %w", err)
	}
	defer func() {
		if err := pl.Close(); err != nil {
			slog.Error("closing pipeline", "error", err)
		}
	}()

	if bc.OverlayDir != "" {
		if err := os.MkdirAll(bc.OverlayDir, 0o750); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	results := make([]*pipeline.PlateResult, 0, len(args))
	for _, path := range args {
		img, _, err := utils.LoadImage(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		res, err := pl.ProcessImage(ctx, img, path)
		if err != nil {
			return fmt.Errorf("processing failed for %s: %w", path, err)
		}
		res.Source = path
		results = append(results, res)

		if bc.OverlayDir != "" {
			out := annotatedPath(bc.OverlayDir, path)
			if err := pipeline.SaveOverlay(out, img, res); err != nil {
				return err
			}
			slog.Info("annotated image written", "file", out)
		}
	}

	output, err := pipeline.Format(results, bc.Format)
	if err != nil {
		return fmt.Errorf("format %s failed: %w", bc.Format, err)
	}
	return writeOutput(cmd, output, bc.OutputFile)
}

// annotatedPath keeps the input's base name and extension so the encoder
// matches the original file type. Formats imaging cannot write become PNG.
func annotatedPath(dir, path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	out := ext
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff", ".gif":
	default:
		out = ".png"
	}
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+"_annotated"+out)
}

// writeOutput prints output or writes it to file.
func writeOutput(cmd *cobra.Command, output, file string) error {
	if !strings.HasSuffix(output, "\n") {
		output += "\n"
	}
	if file == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), output)
		return err
	}
	if err := os.WriteFile(file, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Results written to %s\n", file)
	return nil
}

func init() {
	rootCmd.AddCommand(imageCmd)
	addPipelineFlags(imageCmd)
	addOutputFlags(imageCmd)
}

// GetImageCommand returns the image command for testing purposes.
func GetImageCommand() *cobra.Command {
	return imageCmd
}
