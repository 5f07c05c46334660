package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/rnd-matcher/internal/ai"
	"github.com/spigell/rnd-matcher/internal/ai/gemini"
	"github.com/spigell/rnd-matcher/internal/cache"
	"github.com/spigell/rnd-matcher/internal/classify"
	"github.com/spigell/rnd-matcher/internal/eligibility"
	"github.com/spigell/rnd-matcher/internal/explain"
	"github.com/spigell/rnd-matcher/internal/funding"
	"github.com/spigell/rnd-matcher/internal/logger"
	"github.com/spigell/rnd-matcher/internal/matching"
	"github.com/spigell/rnd-matcher/internal/metrics"
	"github.com/spigell/rnd-matcher/internal/scoring"
	"github.com/spigell/rnd-matcher/internal/secrets"
)

const (
	PromptShowMatches         = "Show matches"
	PromptReportByAgency      = "Report by agency"
	PromptExplain             = "Explain a program"
	PromptRejected            = "Show rejected programs"
	PromptMatchesToFile       = "Dump matches to file"
	PromptAppendToExcludeFile = "Append all matches to exclude file"
	PromptExit                = "Exit"
)

var errExit = errors.New("exit requested")

func newPrompt(excludeFile string) promptui.Select {
	items := []string{PromptShowMatches, PromptReportByAgency, PromptExplain, PromptRejected, PromptMatchesToFile}
	if excludeFile != "" {
		items = append(items, PromptAppendToExcludeFile)
	}
	return promptui.Select{
		Label: "Next?",
		Items: append(items, PromptExit),
	}
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match an organization against funding programs",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("org", "o", "", "organization profile (yaml or json)")
	matchCmd.Flags().StringP("programs", "p", "", "funding programs (yaml or json)")
	matchCmd.Flags().BoolP("auto-approve", "y", false, "print the matches, dump them to a file and exit without prompting")
	matchCmd.Flags().Bool("historical", false, "score closed programs as if they were open (back-testing)")
	matchCmd.Flags().String("now", "", "evaluation time in RFC3339 (default is the current time)")
	matchCmd.Flags().Bool("no-ai", false, "keep template explanations even if ai is enabled in config")
	matchCmd.Flags().Int("top-k", 0, "number of matches to keep (default from config, then 20)")
	matchCmd.Flags().String("metrics-textfile", "", "write prometheus metrics of the run to this file")
	matchCmd.Flags().StringP("exclude-file", "e", "", "file with programs to skip. Default is unset.")

	matchCmd.MarkFlagRequired("org")
	matchCmd.MarkFlagRequired("programs")

	viper.BindPFlag("scoring.top-k", matchCmd.Flags().Lookup("top-k"))
	viper.BindPFlag("metrics.textfile", matchCmd.Flags().Lookup("metrics-textfile"))
	viper.BindPFlag("exclude-file", matchCmd.Flags().Lookup("exclude-file"))
}

func match(cmd *cobra.Command) {
	ctx := context.Background()
	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the rnd-matcher", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	org, err := funding.LoadOrganization(cmd.Flag("org").Value.String())
	if err != nil {
		logger.Fatal("loading organization", zap.Error(err))
	}
	programs, err := funding.LoadPrograms(cmd.Flag("programs").Value.String())
	if err != nil {
		logger.Fatal("loading programs", zap.Error(err))
	}

	logger.Info("loaded inputs",
		zap.String("org_id", org.ID),
		zap.Int("programs", programs.Len()),
	)

	if programs.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no programs to match"))
		return
	}

	opts, err := matchOptions(cmd, config)
	if err != nil {
		logger.Fatal("parsing match options", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	collector := metrics.New(registry)

	engine, err := prepareEngine(ctx, cmd, config, collector, logger)
	if err != nil {
		logger.Fatal("building the match engine", zap.Error(err))
	}
	for _, s := range engine.Describe() {
		logger.Debug("stage", zap.String("name", s.Name), zap.Bool("enabled", s.Enabled), zap.String("reason", s.Reason))
	}

	result, err := runMatches(ctx, engine, config, collector, org, programs, opts, logger)
	if err != nil {
		logger.Fatal("matching failed", zap.Error(err))
	}

	if path := viper.GetString("metrics.textfile"); path != "" {
		if err := prometheus.WriteToTextfile(path, registry); err != nil {
			logger.Warn("writing metrics textfile", zap.Error(err))
		}
	}

	if len(result.Matches) == 0 {
		logger.Info("exiting",
			zap.String("reason", "no matching programs"),
			zap.Int("rejected", len(result.Rejected)),
		)
		return
	}

	if cmd.Flag("auto-approve").Value.String() == "true" {
		for _, action := range []string{PromptShowMatches, PromptMatchesToFile} {
			if err := handleAction(action, logger, config, result); err != nil {
				logger.Fatal("exiting", zap.Error(err))
			}
		}
		return
	}

	prompt := newPrompt(config.ExcludeFile)
	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, logger, config, result); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, logger *zap.Logger, config *Config, result *matching.Result) error {
	switch action {
	case PromptShowMatches:
		for i, m := range result.Matches {
			logger.Info(m.Program.Title,
				zap.Int("rank", i+1),
				zap.String("program_id", m.Program.ID),
				zap.Float64("score", m.Score),
				zap.String("tier", string(m.Explanation.Recommendation.Tier)),
				zap.String("confidence", string(m.Confidence)),
				zap.Bool("manual_review", m.ManualReviewRequired),
			)
		}
		logger.Info("current list of matches", zap.Int("count", len(result.Matches)))
		return nil
	case PromptReportByAgency:
		pretty, _ := json.MarshalIndent(result.Programs().ReportByAgency(), "", "  ")
		logger.Info(string(pretty), zap.Int("matches count", len(result.Matches)))
		return nil
	case PromptExplain:
		return explainOne(logger, result)
	case PromptRejected:
		pretty, _ := json.MarshalIndent(result.Rejected, "", "  ")
		logger.Info(string(pretty), zap.Int("rejected count", len(result.Rejected)))
		return nil
	case PromptMatchesToFile:
		filename, err := funding.DumpToTmpFile("matches_*.json", result)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptAppendToExcludeFile:
		excluded, err := funding.LoadExcluded(config.ExcludeFile)
		if err != nil {
			return fmt.Errorf("reading exclude file: %w", err)
		}
		excluded.Append(result.Programs().ToExcluded(time.Now()))
		if err := excluded.ToFile(config.ExcludeFile); err != nil {
			return fmt.Errorf("writing exclude file: %w", err)
		}
		logger.Info("appended to exclude file",
			zap.String("filename", config.ExcludeFile),
			zap.Int("excluded", len(excluded.Items)),
		)
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func explainOne(logger *zap.Logger, result *matching.Result) error {
	items := make([]string, 0, len(result.Matches))
	for _, m := range result.Matches {
		items = append(items, fmt.Sprintf("%s: %s (%.1f)", m.Program.ID, m.Program.Title, m.Score))
	}

	selector := promptui.Select{Label: "Program", Items: items, Size: 10}
	idx, _, err := selector.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			return nil
		}
		return fmt.Errorf("selecting a program: %w", err)
	}

	m := result.Matches[idx]
	logger.Info(renderExplanation(m.Explanation),
		zap.String("program_id", m.Program.ID),
		zap.Float64("score", m.Score),
	)
	for _, f := range m.Breakdown.Factors {
		logger.Info("factor",
			zap.String("name", f.Factor.Label()),
			zap.Float64("score", f.Score),
			zap.Float64("max", f.Max),
		)
	}
	return nil
}

func renderExplanation(e explain.Explanation) string {
	var b strings.Builder
	b.WriteString(e.Summary)
	for _, r := range e.Reasons {
		b.WriteString("\n  + " + r.Text)
	}
	for _, c := range e.Cautions {
		b.WriteString("\n  ! " + c.Text)
	}
	b.WriteString("\n  => " + e.Recommendation.Text)
	return b.String()
}

func matchOptions(cmd *cobra.Command, config *Config) (matching.Options, error) {
	now := time.Now()
	if raw := strings.TrimSpace(cmd.Flag("now").Value.String()); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return matching.Options{}, fmt.Errorf("parsing --now: %w", err)
		}
		now = parsed
	}

	mode, err := scoring.ParseMode(config.Scoring.Mode)
	if err != nil {
		return matching.Options{}, err
	}
	if cmd.Flag("historical").Value.String() == "true" {
		mode = scoring.ModeHistorical
	}

	opts := matching.Options{
		Now:      now,
		Mode:     mode,
		TopK:     config.Scoring.TopK,
		MinScore: config.Scoring.MinScore,
		Workers:  config.Scoring.Workers,
	}
	if config.Exclude != nil {
		opts.ExcludedAgencies = config.Exclude.Agencies
	}
	if path := strings.TrimSpace(config.ExcludeFile); path != "" {
		excluded, err := funding.LoadExcluded(path)
		if err != nil {
			return matching.Options{}, fmt.Errorf("getting excluded programs from file: %w", err)
		}
		opts.ExcludedIDs = excluded.IDs()
	}
	return opts, opts.Validate()
}

func prepareEngine(ctx context.Context, cmd *cobra.Command, config *Config, collector *metrics.Collector, logger *zap.Logger) (*matching.Engine, error) {
	gate, err := eligibility.New(classify.DefaultIndustryClassifier(), config.Eligibility)
	if err != nil {
		return nil, fmt.Errorf("eligibility: %w", err)
	}
	scorer, err := scoring.NewScorer(config.Weights)
	if err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}

	deps := matching.Deps{Logger: logger, Metrics: collector}

	noAI := cmd.Flag("no-ai").Value.String() == "true"
	if config.AI.Enabled && !noAI {
		phraser, err := newAIPhraser(ctx, config, logger)
		if err != nil {
			logger.Warn("skipping AI phrasing", zap.Error(err))
		} else {
			deps.Phraser = phraser
		}
	}

	return matching.New(gate, scorer, nil, deps)
}

// runMatches serves the result from the redis cache when one is configured.
// Cache failures are logged and never fail the run.
func runMatches(ctx context.Context, engine *matching.Engine, config *Config, collector *metrics.Collector, org *funding.Organization, programs *funding.Programs, opts matching.Options, logger *zap.Logger) (*matching.Result, error) {
	if config.Cache.RedisAddr == "" {
		return engine.GenerateMatches(ctx, org, programs.Items, opts)
	}

	client, err := cache.Dial(config.Cache.RedisAddr)
	if err != nil {
		logger.Warn("match cache disabled", zap.Error(err))
		return engine.GenerateMatches(ctx, org, programs.Items, opts)
	}
	defer client.Close()

	matchCache := cache.New(client, config.Cache.TTL, collector, logger)
	key, err := cache.Key(cache.KeyInput{
		Organization: org,
		Programs:     programs.Items,
		Options:      opts,
		Settings:     cacheSettings(engine, config),
	})
	if err != nil {
		logger.Warn("match cache disabled", zap.Error(err))
		return engine.GenerateMatches(ctx, org, programs.Items, opts)
	}

	cached, ok, err := matchCache.Get(ctx, key)
	if err != nil {
		logger.Warn("reading match cache", zap.Error(err))
	}
	if ok {
		logger.Info("using cached matches", zap.String("run_id", cached.RunID))
		return cached, nil
	}

	result, err := engine.GenerateMatches(ctx, org, programs.Items, opts)
	if err != nil {
		return nil, err
	}
	if err := matchCache.Put(ctx, key, result); err != nil {
		logger.Warn("writing match cache", zap.Error(err))
	}
	return result, nil
}

// cacheSettings is the configuration a cached result was produced with.
func cacheSettings(engine *matching.Engine, config *Config) any {
	return struct {
		Weights     scoring.Weights
		Eligibility eligibility.Config
		Prompt      gemini.PromptOverrides
		Stages      []matching.Status
	}{
		Weights:     config.Weights,
		Eligibility: config.Eligibility,
		Prompt:      config.Prompt,
		Stages:      engine.Describe(),
	}
}

func newAIPhraser(ctx context.Context, config *Config, log *zap.Logger) (ai.Phraser, error) {
	cfg := config.AI
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		return nil, fmt.Errorf("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	genLogger := log.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))
	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	minConfidence := cfg.MinimumConfidence
	if minConfidence < 0 {
		minConfidence = 0
	}

	phraserLogger := logger.WithAIFields(log, "gemini", generator.Model()).With(
		zap.Float64("minimum_confidence", minConfidence),
	)

	phraser := gemini.NewPhraser(generator, minConfidence, cfg.Gemini.MaxLogLength, phraserLogger)
	phraser.SetPromptOverrides(config.Prompt)

	return phraser, nil
}
