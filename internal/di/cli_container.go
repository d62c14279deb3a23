package di

import (
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/kestrelsec/mailgate/internal/config"
	"github.com/kestrelsec/mailgate/internal/core"
	"github.com/kestrelsec/mailgate/internal/factory"
	"github.com/kestrelsec/mailgate/internal/logging"
	"github.com/kestrelsec/mailgate/internal/ports"
	"github.com/kestrelsec/mailgate/internal/utils"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Scorer flags
	Provider    string
	HeaderName  string
	MaxTokens   int
	Temperature float64
	TopP        float64
	MaxBodySize int

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// OpenAI flags
	OpenAIAPIKey    string
	OpenAIModelName string

	// Decision flags
	BlockThreshold      float64
	QuarantineThreshold float64
	SuspiciousMargin    float64

	// Input flags
	InputFile  string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Scorer flags
	flag.StringVar(&flags.Provider, "provider", "header", "Anomaly scorer provider (header, bedrock, gemini, openai)")
	flag.StringVar(&flags.HeaderName, "score-header", "X-Anomaly-Score", "Header carrying the upstream anomaly score")
	flag.IntVar(&flags.MaxTokens, "max-tokens", 1000, "Maximum tokens for model response")
	flag.Float64Var(&flags.Temperature, "temperature", 0.1, "Temperature for model generation")
	flag.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for model generation")
	flag.IntVar(&flags.MaxBodySize, "max-body-size", 4096, "Maximum message body size to send to the model")

	// Bedrock flags
	flag.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	flag.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	flag.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	flag.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-pro", "Gemini model name")

	// OpenAI flags
	flag.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	flag.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-4", "OpenAI model name")

	// Decision flags
	flag.Float64Var(&flags.BlockThreshold, "block-threshold", 0.9, "Risk score at or above which a message is blocked")
	flag.Float64Var(&flags.QuarantineThreshold, "quarantine-threshold", 0.7, "Risk score at or above which a message is quarantined")
	flag.Float64Var(&flags.SuspiciousMargin, "suspicious-margin", 0.2, "Band below the quarantine threshold flagged as suspicious")

	// Input flags
	flag.StringVar(&flags.InputFile, "file", "", "Input message file (use stdin if not specified)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container
// for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewScorerFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewGatewayFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register store backend. The CLI always runs on the in-memory store
	// with a default policy; thresholds come from flags.
	if err := container.Provide(func(f *factory.StoreFactory) (factory.Store, error) {
		return f.CreateStore()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s factory.Store) core.ConfigStore { return s }); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s factory.Store) core.AlertRepository { return s }); err != nil {
		return nil, err
	}

	// No alert publisher for one-shot evaluations
	if err := container.Provide(func() core.AlertPublisher { return nil }); err != nil {
		return nil, err
	}

	// Register anomaly scorer
	if err := container.Provide(func(f *factory.ScorerFactory) (core.AnomalyScorer, error) {
		return f.CreateScorer()
	}); err != nil {
		return nil, err
	}

	// Register core pipeline components
	if err := container.Provide(core.NewSnapshotProvider); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewAlertService); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config) *core.Aggregator {
		return core.NewAggregator(cfg.GetRiskWeights())
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config) *core.DecisionEngine {
		return core.NewDecisionEngine(cfg.GetFloat64("triage.suspicious_margin"))
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewTriageService); err != nil {
		return nil, err
	}

	// Register ingestion gateway
	if err := container.Provide(func(f *factory.GatewayFactory) (ports.MessageGateway, error) {
		return f.CreateGateway()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// CLI specific settings
	v.Set("server.gateway_type", "cli")
	v.Set("server.default_tenant", "default")
	v.Set("cli.verbose", flags.Verbose)
	v.Set("store.type", "memory")
	v.Set("admin.enabled", false)
	v.Set("alerts.redis.enabled", false)

	// Scorer provider
	v.Set("scorer.provider", flags.Provider)
	v.Set("scorer.header_name", flags.HeaderName)

	switch flags.Provider {
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
		v.Set("bedrock.temperature", flags.Temperature)
		v.Set("bedrock.top_p", flags.TopP)
		v.Set("bedrock.max_body_size", flags.MaxBodySize)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
		v.Set("gemini.max_tokens", flags.MaxTokens)
		v.Set("gemini.temperature", flags.Temperature)
		v.Set("gemini.top_p", flags.TopP)
		v.Set("gemini.max_body_size", flags.MaxBodySize)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.model_name", flags.OpenAIModelName)
		v.Set("openai.max_tokens", flags.MaxTokens)
		v.Set("openai.temperature", flags.Temperature)
		v.Set("openai.top_p", flags.TopP)
		v.Set("openai.max_body_size", flags.MaxBodySize)
	}

	// Decision thresholds
	v.Set("triage.suspicious_margin", flags.SuspiciousMargin)
	v.Set("cli.block_threshold", flags.BlockThreshold)
	v.Set("cli.quarantine_threshold", flags.QuarantineThreshold)

	// Risk weight defaults
	v.Set("risk.spf_failure", 0.15)
	v.Set("risk.dkim_failure", 0.15)
	v.Set("risk.dmarc_failure", 0.20)
	v.Set("risk.block_match_floor", 0.9)
	v.Set("risk.macro_attachment", 0.20)
	v.Set("risk.phishing_keywords", 0.10)
	v.Set("risk.lookalike_domain", 0.25)
	v.Set("risk.new_domain_sender", 0.25)

	return config.NewFromViper(v)
}
