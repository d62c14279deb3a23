package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/kestrelsec/mailgate/internal/adapters/gateway"
	"github.com/kestrelsec/mailgate/internal/core"
	"github.com/kestrelsec/mailgate/internal/di"
	"github.com/kestrelsec/mailgate/internal/factory"
	"github.com/kestrelsec/mailgate/internal/ports"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	store factory.Store,
	msgGateway ports.MessageGateway,
	scorer core.AnomalyScorer,
) error {
	defer logger.Sync()

	ctx := context.Background()

	// Apply flag thresholds to the default policy before evaluating.
	policy, err := store.GetPolicy(ctx, "default")
	if err != nil {
		logger.Fatal("Failed to load policy", zap.Error(err))
	}
	policy.BlockThreshold = flags.BlockThreshold
	policy.QuarantineThreshold = flags.QuarantineThreshold
	if err := store.SavePolicy(ctx, policy); err != nil {
		logger.Fatal("Invalid thresholds", zap.Error(err))
	}

	// Read the message from file or stdin
	var messageReader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", flags.InputFile))
		}
		defer file.Close()
		messageReader = file
		logger.Info("Reading message from file", zap.String("file", flags.InputFile))
	} else {
		messageReader = os.Stdin
		logger.Info("Reading message from stdin")
	}

	raw, err := gateway.ParseMessage(bufio.NewReader(messageReader))
	if err != nil {
		logger.Fatal("Failed to parse message", zap.Error(err))
	}

	result, err := msgGateway.ProcessMessage(ctx, raw)
	if err != nil {
		logger.Fatal("Failed to evaluate message", zap.Error(err))
	}

	// Close any resources that need closing
	if closer, ok := scorer.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close scorer", zap.Error(err))
		}
	}

	// Exit nonzero for blocked messages so shell pipelines can react.
	if result.Disposition == core.DispositionBlocked {
		os.Exit(2)
	}
	return nil
}
