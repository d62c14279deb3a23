package config

import (
	"github.com/kestrelsec/mailgate/internal/core"
)

// ScorerConfig represents the configuration for the anomaly scorer
type ScorerConfig struct {
	Provider   string
	HeaderName string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GatewayConfig represents the configuration for the ingestion gateway
type GatewayConfig struct {
	Type              string
	ListenAddress     string
	Enforce           bool
	DispositionHeader string
	ScoreHeader       string
	ReasonHeader      string
	RelayAddress      string
	RelayPort         int
	RelayEnabled      bool
	DefaultTenant     string
}

// GetScorer returns the anomaly scorer configuration
func (c *Config) GetScorer() ScorerConfig {
	return ScorerConfig{
		Provider:   c.GetString("scorer.provider"),
		HeaderName: c.GetString("scorer.header_name"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetGateway returns the ingestion gateway configuration
func (c *Config) GetGateway() GatewayConfig {
	return GatewayConfig{
		Type:              c.GetString("server.gateway_type"),
		ListenAddress:     c.GetString("server.listen_address"),
		Enforce:           c.GetBool("server.enforce"),
		DispositionHeader: c.GetString("server.headers.disposition"),
		ScoreHeader:       c.GetString("server.headers.score"),
		ReasonHeader:      c.GetString("server.headers.reason"),
		RelayAddress:      c.GetString("server.relay.address"),
		RelayPort:         c.GetInt("server.relay.port"),
		RelayEnabled:      c.GetBool("server.relay.enabled"),
		DefaultTenant:     c.GetString("server.default_tenant"),
	}
}

// GetRiskWeights returns the tunable risk weighting constants
func (c *Config) GetRiskWeights() core.RiskWeights {
	return core.RiskWeights{
		SPFFailure:       c.GetFloat64("risk.spf_failure"),
		DKIMFailure:      c.GetFloat64("risk.dkim_failure"),
		DMARCFailure:     c.GetFloat64("risk.dmarc_failure"),
		BlockMatchFloor:  c.GetFloat64("risk.block_match_floor"),
		MacroAttachment:  c.GetFloat64("risk.macro_attachment"),
		PhishingKeywords: c.GetFloat64("risk.phishing_keywords"),
		LookalikeDomain:  c.GetFloat64("risk.lookalike_domain"),
		NewDomainSender:  c.GetFloat64("risk.new_domain_sender"),
	}
}
