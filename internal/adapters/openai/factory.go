package openai

import (
	"github.com/kestrelsec/mailgate/internal/config"
	"github.com/kestrelsec/mailgate/internal/utils"
	"go.uber.org/zap"
)

// Factory creates new instances of AnomalyClient
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new factory for AnomalyClient instances
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClient creates a new OpenAI anomaly client
func (f *Factory) CreateClient() (*AnomalyClient, error) {
	openaiCfg := f.cfg.GetOpenAI()

	return NewAnomalyClient(
		openaiCfg.APIKey,
		openaiCfg.ModelName,
		openaiCfg.MaxTokens,
		openaiCfg.Temperature,
		openaiCfg.TopP,
		openaiCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	), nil
}
