package factory

import (
	"fmt"

	"github.com/kestrelsec/mailgate/internal/adapters/bedrock"
	"github.com/kestrelsec/mailgate/internal/adapters/gemini"
	"github.com/kestrelsec/mailgate/internal/adapters/openai"
	"github.com/kestrelsec/mailgate/internal/adapters/scorer"
	"github.com/kestrelsec/mailgate/internal/config"
	"github.com/kestrelsec/mailgate/internal/core"
	"github.com/kestrelsec/mailgate/internal/utils"
	"go.uber.org/zap"
)

// ScorerFactory creates anomaly scorers
type ScorerFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewScorerFactory creates a new scorer factory
func NewScorerFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ScorerFactory {
	return &ScorerFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateScorer creates an anomaly scorer based on the configuration
func (f *ScorerFactory) CreateScorer() (core.AnomalyScorer, error) {
	scorerCfg := f.cfg.GetScorer()

	switch scorerCfg.Provider {
	case "header":
		return scorer.NewHeaderScorer(scorerCfg.HeaderName, f.logger), nil
	case "bedrock":
		factory := bedrock.NewFactory(f.cfg, f.logger, f.textProcessor)
		return factory.CreateClient()
	case "gemini":
		factory := gemini.NewFactory(f.cfg, f.logger, f.textProcessor)
		return factory.CreateClient()
	case "openai":
		factory := openai.NewFactory(f.cfg, f.logger, f.textProcessor)
		return factory.CreateClient()
	default:
		return nil, fmt.Errorf("unsupported scorer provider: %s", scorerCfg.Provider)
	}
}
