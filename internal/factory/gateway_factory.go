package factory

import (
	"fmt"

	"github.com/kestrelsec/mailgate/internal/adapters/gateway"
	"github.com/kestrelsec/mailgate/internal/config"
	"github.com/kestrelsec/mailgate/internal/core"
	"github.com/kestrelsec/mailgate/internal/ports"
	"go.uber.org/zap"
)

// GatewayFactory creates ingestion gateways based on configuration
type GatewayFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.TriageService
}

// NewGatewayFactory creates a new gateway factory
func NewGatewayFactory(cfg *config.Config, logger *zap.Logger, service *core.TriageService) *GatewayFactory {
	return &GatewayFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateGateway creates an ingestion gateway based on the configuration
func (f *GatewayFactory) CreateGateway() (ports.MessageGateway, error) {
	gatewayCfg := f.cfg.GetGateway()

	switch gatewayCfg.Type {
	case "smtp":
		return gateway.NewSMTPGateway(f.service, f.logger, gatewayCfg), nil
	case "cli":
		return gateway.NewCliGateway(
			f.service,
			f.logger,
			gatewayCfg.DefaultTenant,
			f.cfg.GetBool("cli.verbose"),
		)
	default:
		return nil, fmt.Errorf("unsupported gateway type: %s", gatewayCfg.Type)
	}
}
