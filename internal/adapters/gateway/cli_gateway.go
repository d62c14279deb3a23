package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrelsec/mailgate/internal/core"
	"go.uber.org/zap"
)

// CliGateway evaluates a single message from the command line and prints
// a human-readable triage report.
type CliGateway struct {
	service  *core.TriageService
	logger   *zap.Logger
	tenantID string
	verbose  bool
}

// NewCliGateway creates a new CLI gateway
func NewCliGateway(service *core.TriageService, logger *zap.Logger, tenantID string, verbose bool) (*CliGateway, error) {
	return &CliGateway{
		service:  service,
		logger:   logger,
		tenantID: tenantID,
		verbose:  verbose,
	}, nil
}

// ProcessMessage evaluates a message and displays the verdict
func (g *CliGateway) ProcessMessage(ctx context.Context, raw *core.RawMessage) (*core.EvaluationResult, error) {
	g.logger.Debug("Processing message", zap.String("sender", raw.FromAddress))

	fmt.Printf("\n=== Message Summary ===\n")
	fmt.Printf("From: %s\n", raw.FromAddress)
	fmt.Printf("To: %s\n", raw.ToAddress)
	fmt.Printf("Subject: %s\n", raw.Subject)
	fmt.Printf("Attachments: %d\n", len(raw.AttachmentNames))
	fmt.Printf("Body length: %d bytes\n", len(raw.BodyText))

	if g.verbose {
		preview := raw.BodyText
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Printf("\nBody preview:\n%s\n", preview)
	}

	fmt.Printf("\n=== Triage ===\n")
	startTime := time.Now()
	result, alert, err := g.service.Evaluate(ctx, g.tenantID, raw)
	if result == nil {
		g.logger.Error("Failed to evaluate message", zap.Error(err))
		fmt.Printf("Error: %v\n", err)
		return nil, err
	}
	duration := time.Since(startTime)

	fmt.Printf("\n=== Verdict ===\n")
	fmt.Printf("Disposition: %s\n", result.Disposition)
	fmt.Printf("Risk score: %.4f\n", result.RiskScore)
	if result.QuarantineReason != "" {
		fmt.Printf("Reason: %s\n", result.QuarantineReason)
	}

	if len(result.RiskFactors) > 0 {
		fmt.Printf("\nRisk factors:\n")
		for _, factor := range result.RiskFactors {
			fmt.Printf("  [%s] %s (%.2f): %s\n", factor.Severity, factor.Type, factor.Score, factor.Description)
		}
	}

	if g.verbose && len(result.Indicators) > 0 {
		fmt.Printf("\nIndicators:\n")
		for _, ind := range result.Indicators {
			fmt.Printf("  %s: %s (%s)\n", ind.Type, ind.Status, ind.Message)
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("\nRule warnings:\n")
		for _, w := range result.Warnings {
			fmt.Printf("  rule %s: %s\n", w.RuleID, w.Message)
		}
	}

	if alert != nil {
		fmt.Printf("\nAlert emitted: [%s] %s\n", alert.Severity, alert.Title)
	}
	fmt.Printf("\nProcessing time: %v\n", duration)

	return result, nil
}

// Start is a no-op for the CLI gateway
func (g *CliGateway) Start() error {
	return nil
}

// Stop is a no-op for the CLI gateway
func (g *CliGateway) Stop() error {
	return nil
}
