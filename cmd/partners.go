package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/rnd-matcher/internal/classify"
	"github.com/spigell/rnd-matcher/internal/funding"
	"github.com/spigell/rnd-matcher/internal/partner"
)

var partnersCmd = &cobra.Command{
	Use:   "partners",
	Short: "Rank consortium partner candidates for an organization",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()

		config, err := getConfig()
		if err != nil {
			return fmt.Errorf("getting a config: %w", err)
		}

		org, err := funding.LoadOrganization(cmd.Flag("org").Value.String())
		if err != nil {
			return err
		}
		candidates, err := funding.LoadOrganizations(cmd.Flag("candidates").Value.String())
		if err != nil {
			return err
		}

		affinity, err := classify.NewAffinityTable(config.Eligibility.Affinity)
		if err != nil {
			return fmt.Errorf("affinity table: %w", err)
		}
		calc, err := partner.New(classify.DefaultIndustryClassifier(), affinity, config.Partners)
		if err != nil {
			return fmt.Errorf("partner weights: %w", err)
		}

		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}

		ranked := calc.Rank(org, candidates, limit)
		logger.Info("partner ranking finished",
			zap.String("org_id", org.ID),
			zap.Int("candidates", len(candidates)),
			zap.Int("ranked", len(ranked)),
		)

		out, err := json.MarshalIndent(ranked, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(partnersCmd)

	partnersCmd.Flags().StringP("org", "o", "", "organization profile looking for partners")
	partnersCmd.Flags().StringP("candidates", "c", "", "list of candidate organization profiles")
	partnersCmd.Flags().IntP("limit", "l", 10, "number of partners to show, 0 for all")

	partnersCmd.MarkFlagRequired("org")
	partnersCmd.MarkFlagRequired("candidates")
}
