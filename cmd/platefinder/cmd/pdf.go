package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/platefinder/internal/batch"
	"github.com/MeKo-Tech/platefinder/internal/pdf"
	"github.com/spf13/cobra"
)

// pdfCmd represents the pdf command.
var pdfCmd = &cobra.Command{
	Use:   "pdf [file...]",
	Short: "Process the images embedded in PDF files",
	Long: `Extract the images embedded in PDF documents and run plate localization,
recognition and lookup on each of them. Results are grouped by page.

Examples:
  platefinder pdf report.pdf
  platefinder pdf report.pdf --pages 1-3,7 --format json
  platefinder pdf locked.pdf --password secret`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE:         runPDFCommand,
}

func runPDFCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("no PDF files provided")
	}

	bc := configToBatchConfig(GetConfig(), cmd)
	if err := validateFormat(bc.Format); err != nil {
		return err
	}
	pages, _ := cmd.Flags().GetString("pages")
	userPassword, _ := cmd.Flags().GetString("password")
	ownerPassword, _ := cmd.Flags().GetString("owner-password")

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

	proc := pdf.NewProcessor(pl, &pdf.ProcessorConfig{
		Credentials: &pdf.PasswordCredentials{UserPassword: userPassword, OwnerPassword: ownerPassword},
		MaxWorkers:  bc.Workers,
	})
	docs, err := proc.ProcessFiles(ctx, args, pages)
	if err != nil {
		if pdf.IsPasswordError(err) {
			return fmt.Errorf("%w (use --password)", err)
		}
		return err
	}

	for _, doc := range docs {
		slog.Info("pdf processed", "file", doc.Filename, "pages", doc.TotalPages,
			"images", len(doc.Results()), "plates", doc.PlatesFound())
	}

	output, err := pdf.FormatDocuments(docs, bc.Format)
	if err != nil {
		return fmt.Errorf("format %s failed: %w", bc.Format, err)
	}
	return writeOutput(cmd, output, bc.OutputFile)
}

func init() {
	rootCmd.AddCommand(pdfCmd)
	addPipelineFlags(pdfCmd)
	pdfCmd.Flags().StringP("format", "f", outputFormatText, "output format: text, json, csv")
	pdfCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	pdfCmd.Flags().String("pages", "", "page range to process (e.g., '1-5', '1,3,5')")
	pdfCmd.Flags().StringP("password", "p", "", "user password for encrypted PDFs")
	pdfCmd.Flags().String("owner-password", "", "owner password for encrypted PDFs")
}
