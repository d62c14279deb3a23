package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kestrelsec/mailgate/internal/api"
	"github.com/kestrelsec/mailgate/internal/core"
	"github.com/kestrelsec/mailgate/internal/di"
	"github.com/kestrelsec/mailgate/internal/factory"
	"github.com/kestrelsec/mailgate/internal/ports"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	gateway ports.MessageGateway,
	adminAPI *api.Server,
	scorer core.AnomalyScorer,
	store factory.Store,
	publisher core.AlertPublisher,
) error {
	defer logger.Sync()

	// Start the ingestion gateway
	if err := gateway.Start(); err != nil {
		logger.Fatal("Failed to start gateway", zap.Error(err))
		return err
	}

	// Start the admin API when enabled
	if adminAPI != nil {
		if err := adminAPI.Start(); err != nil {
			logger.Fatal("Failed to start admin API", zap.Error(err))
			return err
		}
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if err := gateway.Stop(); err != nil {
		logger.Error("Failed to stop gateway", zap.Error(err))
	}

	if adminAPI != nil {
		if err := adminAPI.Stop(); err != nil {
			logger.Error("Failed to stop admin API", zap.Error(err))
		}
	}

	// Close any resources that need closing
	if closer, ok := scorer.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close scorer", zap.Error(err))
		}
	}
	if stopper, ok := publisher.(interface{ Stop() }); ok && publisher != nil {
		stopper.Stop()
	}
	store.Stop()

	logger.Info("Shutdown complete")
	return nil
}
