package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/kestrelsec/mailgate/internal/adapters/notify"
	"github.com/kestrelsec/mailgate/internal/api"
	"github.com/kestrelsec/mailgate/internal/config"
	"github.com/kestrelsec/mailgate/internal/core"
	"github.com/kestrelsec/mailgate/internal/factory"
	"github.com/kestrelsec/mailgate/internal/logging"
	"github.com/kestrelsec/mailgate/internal/ports"
	"github.com/kestrelsec/mailgate/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
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

	// Register store backend
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

	// Register alert publisher. Nil when Redis publishing is disabled;
	// the alert service treats publishing as optional.
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (core.AlertPublisher, error) {
		if !cfg.GetBool("alerts.redis.enabled") {
			return nil, nil
		}
		return notify.NewRedisPublisher(
			cfg.GetString("alerts.redis.address"),
			cfg.GetString("alerts.redis.list"),
			logger,
		)
	}); err != nil {
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

	// Register admin API server. Nil when disabled.
	if err := container.Provide(func(
		cfg *config.Config,
		st factory.Store,
		service *core.TriageService,
		logger *zap.Logger,
	) *api.Server {
		if !cfg.GetBool("admin.enabled") {
			return nil
		}
		return api.NewServer(
			cfg.GetString("admin.listen_address"),
			st,
			service,
			cfg.GetGateway().DefaultTenant,
			logger,
		)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
