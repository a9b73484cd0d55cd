package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/MeKo-Tech/platefinder/internal/version"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			b, err := json.MarshalIndent(version.Details(), "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		}
		d := version.Details()
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "platefinder version %s\n", d["version"])
		_, _ = fmt.Fprintf(out, "Commit: %s\n", d["commit"])
		_, _ = fmt.Fprintf(out, "Built: %s\n", d["build_date"])
		_, _ = fmt.Fprintf(out, "Go: %s %s\n", d["go"], d["platform"])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("json", false, "print as JSON")
}
