package cmd

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/rnd-matcher/internal/ai/gemini"
	"github.com/spigell/rnd-matcher/internal/dedupe"
	"github.com/spigell/rnd-matcher/internal/eligibility"
	"github.com/spigell/rnd-matcher/internal/logger"
	"github.com/spigell/rnd-matcher/internal/partner"
	"github.com/spigell/rnd-matcher/internal/scoring"
)

const (
	app = "rnd-matcher"
)

type Config struct {
	Scoring     *ScoringConfig `mapstructure:"scoring"`
	AI          *AIConfig      `mapstructure:"ai"`
	Cache       *CacheConfig   `mapstructure:"cache"`
	ExcludeFile string         `mapstructure:"exclude-file"`
	Exclude     *struct {
		Agencies []string `mapstructure:"agencies"`
	} `mapstructure:"exclude"`
	Metrics *struct {
		Textfile string `mapstructure:"textfile"`
	} `mapstructure:"metrics"`

	// Sections with defaults are decoded on top of them by decodeSection.
	Weights     scoring.Weights        `mapstructure:"-"`
	Eligibility eligibility.Config     `mapstructure:"-"`
	Duplicates  dedupe.Options         `mapstructure:"-"`
	Partners    partner.Weights        `mapstructure:"-"`
	Prompt      gemini.PromptOverrides `mapstructure:"-"`
}

type ScoringConfig struct {
	TopK     int     `mapstructure:"top-k"`
	MinScore float64 `mapstructure:"min-score"`
	Mode     string  `mapstructure:"mode"`
	Workers  int     `mapstructure:"workers"`
}

type AIConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Provider          string        `mapstructure:"provider"`
	MinimumConfidence float64       `mapstructure:"minimum-confidence"`
	Gemini            *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type CacheConfig struct {
	RedisAddr string        `mapstructure:"redis-addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "rnd-matcher matches organizations with government R&D funding programs",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("cache.redis-addr", "RND_MATCHER_REDIS_ADDR"); err != nil {
		log.Fatalf("binding RND_MATCHER_REDIS_ADDR environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is rnd-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

// initConfig reads the config file. Every setting has a default, so a missing
// file is only an error when it was asked for explicitly.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

func getConfig() (*Config, error) {
	config := &Config{
		Scoring:     &ScoringConfig{},
		AI:          &AIConfig{},
		Cache:       &CacheConfig{},
		Weights:     scoring.DefaultWeights(),
		Eligibility: eligibility.DefaultConfig(),
		Duplicates:  dedupe.Options{Threshold: dedupe.DefaultThreshold, EnableExternalIDMatch: true},
		Partners:    partner.DefaultWeights(),
	}
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}

	sections := []struct {
		key    string
		target any
	}{
		{key: "scoring.weights", target: &config.Weights},
		{key: "eligibility", target: &config.Eligibility},
		{key: "duplicates", target: &config.Duplicates},
		{key: "partners.weights", target: &config.Partners},
		{key: "ai.prompt", target: &config.Prompt},
	}
	for _, s := range sections {
		if err := decodeSection(viper.Get(s.key), s.target); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", s.key, err)
		}
	}

	return config, nil
}

// decodeSection decodes a raw config subtree over target, keeping the values
// already in target for keys the subtree does not set. Unknown keys fail so a
// typo in a weight name does not silently fall back to the default.
func decodeSection(raw any, target any) error {
	if raw == nil {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}
