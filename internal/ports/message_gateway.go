package ports

import (
	"context"

	"github.com/kestrelsec/mailgate/internal/core"
)

// MessageGateway defines the interface for message ingestion
type MessageGateway interface {
	// ProcessMessage evaluates a single message and returns the verdict
	ProcessMessage(ctx context.Context, raw *core.RawMessage) (*core.EvaluationResult, error)

	// Start starts the gateway
	Start() error

	// Stop stops the gateway
	Stop() error
}
