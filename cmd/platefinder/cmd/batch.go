package cmd

import (
	"fmt"
	"time"

	"github.com/MeKo-Tech/platefinder/internal/batch"
	"github.com/MeKo-Tech/platefinder/internal/config"
	"github.com/spf13/cobra"
)

// batchCmd represents the batch command for parallel image processing.
var batchCmd = &cobra.Command{
	Use:   "batch [files or directories...]",
	Short: "Process many images in parallel",
	Long: `Process image files and directories in parallel. Directories are scanned for
files matching the include patterns; every image runs through localization,
recognition and lookup on a pool of workers.

Examples:
  platefinder batch photos/
  platefinder batch photos/ --workers 8 --format json --output plates.json
  platefinder batch a.jpg b.png --progress --stats
  platefinder batch photos/ --exclude "*_annotated.*"`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runBatchCommand,
}

// configToBatchCommandConfig adds the batch-only settings to the shared
// pipeline mapping.
func configToBatchCommandConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	bc := configToBatchConfig(cfg, cmd)
	if !cmd.Flags().Changed("workers") {
		bc.Workers = cfg.Batch.Workers
		bc.Pipeline.Parallel.MaxWorkers = cfg.Batch.Workers
	}

	// Progress settings are CLI-only
	bc.ShowProgress, _ = cmd.Flags().GetBool("progress")
	bc.Quiet, _ = cmd.Flags().GetBool("quiet")
	bc.ShowStats, _ = cmd.Flags().GetBool("stats")
	bc.ProgressInterval, _ = cmd.Flags().GetDuration("progress-interval")
	bc.ProgressWriter = cmd.ErrOrStderr()
	return bc
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	bc := configToBatchCommandConfig(GetConfig(), cmd)
	if err := validateFormat(bc.Format); err != nil {
		return err
	}

	if !bc.Quiet {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Processing %d input(s)...\n", len(args))
	}

	result, err := batch.ProcessBatch(commandContext(cmd), args, bc)
	if err != nil {
		return fmt.Errorf("batch processing failed: %w", err)
	}

	if err := result.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile, bc.Quiet); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	if bc.ShowStats {
		result.PrintStats(cmd.ErrOrStderr(), bc.Quiet)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addPipelineFlags(batchCmd)
	addOutputFlags(batchCmd)

	d := config.DefaultConfig()

	// File discovery flags
	batchCmd.Flags().BoolP("recursive", "r", d.Batch.Recursive, "recursively scan directories")
	batchCmd.Flags().StringSlice("include", d.Batch.Include, "file patterns to include")
	batchCmd.Flags().StringSlice("exclude", []string{}, "file patterns to exclude")
	batchCmd.Flags().Bool("continue-on-error", d.Batch.ContinueOnError, "keep going when an image cannot be processed")

	// Progress and monitoring flags
	batchCmd.Flags().Bool("progress", false, "show progress bar")
	batchCmd.Flags().Bool("quiet", false, "suppress progress output")
	batchCmd.Flags().Bool("stats", false, "show processing statistics")
	batchCmd.Flags().Duration("progress-interval", 100*time.Millisecond, "progress update interval")
}
