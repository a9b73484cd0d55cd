package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/platefinder/internal/lookup"
	"github.com/spf13/cobra"
)

// gendbCmd represents the gendb command.
var gendbCmd = &cobra.Command{
	Use:   "gendb",
	Short: "Generate a synthetic vehicle database",
	Long: `Generate a database of random plates and vehicle records for tests and
demos. Plates follow the layouts ABC123, 1234AB or six mixed letters and
digits; every plate is unique. The database is written as indented JSON, or
YAML when the output ends in .yaml or .yml. With --dsn the records are
imported into PostgreSQL instead.

Examples:
  platefinder gendb
  platefinder gendb --count 500 --seed 42 --output testdata/plates.json
  platefinder gendb --count 1000 --dsn postgres://localhost/plates`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runGenDBCommand,
}

func runGenDBCommand(cmd *cobra.Command, args []string) error {
	count, _ := cmd.Flags().GetInt("count")
	seed, _ := cmd.Flags().GetInt64("seed")
	output, _ := cmd.Flags().GetString("output")
	dsn, _ := cmd.Flags().GetString("dsn")
	table, _ := cmd.Flags().GetString("table")

	if count < 0 {
		return fmt.Errorf("invalid count: %d (must not be negative)", count)
	}
	if !cmd.Flags().Changed("seed") {
		seed = time.Now().UnixNano()
	}

	db := lookup.NewGenerator(seed).Generate(count)
	slog.Debug("database generated", "records", len(db), "seed", seed)

	if dsn != "" {
		return importDatabase(cmd, db, dsn, table)
	}

	if err := lookup.SaveFile(output, db); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Generated %d records in %s\n", len(db), output)
	return nil
}

func importDatabase(cmd *cobra.Command, db lookup.Database, dsn, table string) error {
	ctx := commandContext(cmd)
	store, err := lookup.NewPostgresStore(ctx, dsn, table)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := store.Import(ctx, db); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records into %s\n", len(db), table)
	return nil
}

func init() {
	rootCmd.AddCommand(gendbCmd)
	gendbCmd.Flags().IntP("count", "n", lookup.DefaultGenerateCount, "number of records")
	gendbCmd.Flags().Int64("seed", 0, "random seed (default: current time)")
	gendbCmd.Flags().StringP("output", "o", "database.json", "output file")
	gendbCmd.Flags().String("dsn", "", "import into this PostgreSQL database instead of a file")
	gendbCmd.Flags().String("table", lookup.DefaultTable, "table for --dsn")
}
