package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/rnd-matcher/internal/dedupe"
	"github.com/spigell/rnd-matcher/internal/funding"
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Find the same announcement posted more than once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()

		config, err := getConfig()
		if err != nil {
			return fmt.Errorf("getting a config: %w", err)
		}
		opts := config.Duplicates
		if err := opts.Validate(); err != nil {
			return err
		}

		programs, err := funding.LoadPrograms(cmd.Flag("programs").Value.String())
		if err != nil {
			return err
		}

		groups := dedupe.DetectDuplicates(programs.Items, opts)

		duplicated := 0
		for _, g := range groups {
			duplicated += len(g.ProgramIDs) - 1
		}
		logger.Info("duplicate detection finished",
			zap.Int("programs", programs.Len()),
			zap.Int("groups", len(groups)),
			zap.Int("redundant", duplicated),
			zap.Float64("threshold", opts.Threshold),
		)

		out, err := json.MarshalIndent(groups, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(duplicatesCmd)

	duplicatesCmd.Flags().StringP("programs", "p", "", "funding programs (yaml or json)")
	duplicatesCmd.Flags().Float64("threshold", dedupe.DefaultThreshold, "minimum title similarity in [0,1]")
	duplicatesCmd.MarkFlagRequired("programs")

	viper.BindPFlag("duplicates.threshold", duplicatesCmd.Flags().Lookup("threshold"))
}
