package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/platefinder/internal/lookup"
	"github.com/MeKo-Tech/platefinder/internal/ocr"
	"github.com/spf13/cobra"
)

// lookupCmd represents the lookup command.
var lookupCmd = &cobra.Command{
	Use:   "lookup <plate>",
	Short: "Look a plate up in the vehicle database",
	Long: `Look a license plate up in the vehicle database without processing an image.
The plate is normalized the same way recognized text is: upper case, letters
and digits only.

Examples:
  platefinder lookup ABC123
  platefinder lookup "abc-123" --db plates.yaml --format json
  platefinder lookup ABC123 --dsn postgres://localhost/plates`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runLookupCommand,
}

// lookupOutput is the JSON form of a lookup.
type lookupOutput struct {
	Plate   string         `json:"plate"`
	Found   bool           `json:"found"`
	Vehicle *lookup.Record `json:"vehicle,omitempty"`
	Message string         `json:"message,omitempty"`
}

func runLookupCommand(cmd *cobra.Command, args []string) error {
	bc := configToBatchConfig(GetConfig(), cmd)
	if bc.Format == outputFormatCSV {
		return errors.New("lookup supports text and json output")
	}
	if err := validateFormat(bc.Format); err != nil {
		return err
	}

	plate := ocr.NormalizePlate(args[0], bc.Pipeline.OCR.AllowedCharacters)
	if plate == "" {
		return fmt.Errorf("invalid plate %q", args[0])
	}

	ctx := commandContext(cmd)
	store, err := lookup.Open(ctx, bc.Lookup)
	if err != nil {
		return fmt.Errorf("open plate database: %w", err)
	}
	defer func() {
		if err := lookup.Close(store); err != nil {
			slog.Error("closing plate database", "error", err)
		}
	}()

	rec, err := store.Lookup(ctx, plate)
	out := lookupOutput{Plate: plate}
	switch {
	case err == nil:
		out.Found = true
		out.Vehicle = &rec
	case errors.Is(err, lookup.ErrNotFound):
		out.Message = lookup.ErrNotFound.Error()
	default:
		return fmt.Errorf("lookup %s: %w", plate, err)
	}

	if err := printLookup(cmd, out, bc.Format); err != nil {
		return err
	}
	if !out.Found {
		return fmt.Errorf("%s: %w", plate, lookup.ErrNotFound)
	}
	return nil
}

func printLookup(cmd *cobra.Command, out lookupOutput, format string) error {
	w := cmd.OutOrStdout()
	if format == outputFormatJSON {
		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: ", out.Plate)
	if out.Found {
		v := out.Vehicle
		fmt.Fprintf(&sb, "%d %s %s\n  owner: %s", v.Year, v.Make, v.Model, v.Owner)
	} else {
		sb.WriteString(out.Message)
	}
	_, err := fmt.Fprintln(w, sb.String())
	return err
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	f := lookupCmd.Flags()
	f.StringP("format", "f", outputFormatText, "output format: text, json")
	f.String("db", "database.json", "plate database file (JSON or YAML)")
	f.String("db-backend", "file", "plate database backend: file, postgres or memory")
	f.String("dsn", "", "postgres connection string for --db-backend=postgres")
}
