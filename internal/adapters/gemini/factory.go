package gemini

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

// CreateClient creates a new Gemini anomaly client
func (f *Factory) CreateClient() (*AnomalyClient, error) {
	geminiCfg := f.cfg.GetGemini()

	return NewAnomalyClient(
		geminiCfg.APIKey,
		geminiCfg.ModelName,
		geminiCfg.MaxTokens,
		geminiCfg.Temperature,
		geminiCfg.TopP,
		geminiCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	)
}
