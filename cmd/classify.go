package cmd

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/rnd-matcher/internal/classify"
	"github.com/spigell/rnd-matcher/internal/funding"
)

type classifiedProgram struct {
	ID          string                     `json:"id"`
	Title       string                     `json:"title"`
	Industry    classify.IndustryResult    `json:"industry"`
	TRL         classify.TRLClassification `json:"trl"`
	InferredTRL *classify.TRLRange         `json:"inferredTrl,omitempty"`
}

type classifyReport struct {
	TaxonomyVersion string                    `json:"taxonomyVersion"`
	Programs        []classifiedProgram       `json:"programs"`
	ByIndustry      map[classify.Industry]int `json:"byIndustry"`
	FallbackRate    float64                   `json:"fallbackRate"`
	Organization    *classifiedOrganization   `json:"organization,omitempty"`
}

type classifiedOrganization struct {
	ID           string                      `json:"id"`
	Industry     classify.IndustryResult     `json:"industry"`
	Completeness classify.CompletenessResult `json:"completeness"`
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Report industry and TRL classification of programs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()

		programs, err := funding.LoadPrograms(cmd.Flag("programs").Value.String())
		if err != nil {
			return err
		}

		classifier := classify.DefaultIndustryClassifier()
		report := buildClassifyReport(classifier, programs.Items)

		if path := cmd.Flag("org").Value.String(); path != "" {
			org, err := funding.LoadOrganization(path)
			if err != nil {
				return err
			}
			report.Organization = &classifiedOrganization{
				ID:           org.ID,
				Industry:     classifier.ClassifySector(org.IndustrySector),
				Completeness: classify.Completeness(org),
			}
		}

		logger.Info("classification finished",
			zap.Int("programs", len(report.Programs)),
			zap.Float64("fallback_rate", report.FallbackRate),
			zap.String("taxonomy_version", report.TaxonomyVersion),
		)

		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringP("programs", "p", "", "funding programs (yaml or json)")
	classifyCmd.Flags().StringP("org", "o", "", "optional organization profile to report completeness for")
	classifyCmd.MarkFlagRequired("programs")
}

// buildClassifyReport classifies every program. The fallback rate is the share
// of programs that landed in GENERAL, which tracks taxonomy coverage.
func buildClassifyReport(classifier *classify.IndustryClassifier, programs []*funding.Program) classifyReport {
	report := classifyReport{
		TaxonomyVersion: classifier.Taxonomy().Version,
		Programs:        make([]classifiedProgram, 0, len(programs)),
		ByIndustry:      make(map[classify.Industry]int),
	}

	fallbacks := 0
	for _, p := range programs {
		if p == nil {
			continue
		}
		industry := classifier.ClassifyProgram(p)
		entry := classifiedProgram{
			ID:       p.ID,
			Title:    p.Title,
			Industry: industry,
			TRL:      classify.ClassifyTRL(p.MinTRL, p.MaxTRL),
		}
		if entry.TRL.Stage == classify.StageUnknown {
			if r, ok := classify.InferTRLRange(p.Title, p.Description); ok {
				entry.InferredTRL = &r
			}
		}
		if industry.Fallback() {
			fallbacks++
		}
		report.ByIndustry[industry.Industry]++
		report.Programs = append(report.Programs, entry)
	}

	if n := len(report.Programs); n > 0 {
		report.FallbackRate = math.Round(float64(fallbacks)/float64(n)*1000) / 1000
	}
	return report
}
