package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spigell/rnd-matcher/internal/classify"
	"github.com/spigell/rnd-matcher/internal/scoring"
)

// Actual version can be specified in build command.
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version with the taxonomy and default weights versions",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s (taxonomy %s, weights %s)\n",
			app, version, classify.TaxonomyVersion, scoring.DefaultWeights().Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
