package core

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// TriageService is the engine's one logical call boundary: it takes a raw
// message plus the tenant's configuration snapshot and produces an
// evaluation result and, when due, an alert. Each call is an independent
// unit of work with no shared mutable state beyond the read-only snapshot,
// so any number of evaluations may run concurrently.
type TriageService struct {
	scorer     AnomalyScorer
	snapshots  *SnapshotProvider
	alerts     *AlertService
	aggregator *Aggregator
	engine     *DecisionEngine
	logger     *zap.Logger
}

func NewTriageService(
	scorer AnomalyScorer,
	snapshots *SnapshotProvider,
	alerts *AlertService,
	aggregator *Aggregator,
	engine *DecisionEngine,
	logger *zap.Logger,
) *TriageService {
	return &TriageService{
		scorer:     scorer,
		snapshots:  snapshots,
		alerts:     alerts,
		aggregator: aggregator,
		engine:     engine,
		logger:     logger,
	}
}

// Evaluate runs the full pipeline for one message under the tenant's
// current configuration snapshot.
//
// A configuration error (invalid policy) is fatal and returns no result.
// A signal error (message that cannot be normalized) is fail-closed: the
// returned result carries disposition suspicious so the caller quarantines
// the message for manual review instead of letting it through, and the
// error is returned alongside for surfacing.
func (s *TriageService) Evaluate(ctx context.Context, tenantID string, raw *RawMessage) (*EvaluationResult, *Alert, error) {
	snap, err := s.snapshots.Snapshot(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	return s.EvaluateWithSnapshot(ctx, tenantID, raw, snap)
}

// EvaluateWithSnapshot runs the pipeline against an explicit snapshot.
// Used by callers that already hold one, such as the rule-testing API.
func (s *TriageService) EvaluateWithSnapshot(ctx context.Context, tenantID string, raw *RawMessage, snap *ConfigSnapshot) (*EvaluationResult, *Alert, error) {
	if raw != nil && raw.MLScore == nil && s.scorer != nil {
		if ml, scoreErr := s.scorer.Score(ctx, raw); scoreErr != nil {
			s.logger.Warn("Anomaly scorer failed, continuing without external score",
				zap.String("tenant_id", tenantID),
				zap.Error(scoreErr))
		} else if ml != nil {
			v := ml.Score
			raw.MLScore = &v
		}
	}

	sig, err := Normalize(raw)
	if err != nil {
		var sigErr *SignalError
		if errors.As(err, &sigErr) {
			res := s.failClosedResult(tenantID, raw, err)
			alert, alertErr := s.recordAlert(ctx, res, snap.Policy)
			if alertErr != nil {
				s.logger.Error("Failed to record alert for unevaluable message", zap.Error(alertErr))
			}
			return res, alert, err
		}
		return nil, nil, err
	}

	matches := snap.RuleSet().Evaluate(sig)
	score, factors, indicators := s.aggregator.Aggregate(sig, matches, snap.Policy)

	res, err := s.engine.Decide(sig, score, factors, indicators, matches, snap.Policy)
	if err != nil {
		return nil, nil, err
	}
	res.TenantID = tenantID
	res.Warnings = snap.RuleSet().Warnings()

	alert, err := s.recordAlert(ctx, res, snap.Policy)
	if err != nil {
		s.logger.Error("Failed to record alert",
			zap.String("tenant_id", tenantID),
			zap.String("message_id", res.MessageID),
			zap.Error(err))
	}

	s.logger.Debug("Message evaluated",
		zap.String("tenant_id", tenantID),
		zap.String("message_id", res.MessageID),
		zap.String("disposition", string(res.Disposition)),
		zap.Float64("risk_score", res.RiskScore),
		zap.Int("matches", len(matches)))
	return res, alert, nil
}

// Reload rebuilds the tenant's configuration snapshot. Called after every
// policy or rule mutation.
func (s *TriageService) Reload(ctx context.Context, tenantID string) error {
	_, err := s.snapshots.Reload(ctx, tenantID)
	return err
}

// Alerts exposes the alert service for acknowledgement and listing.
func (s *TriageService) Alerts() *AlertService {
	return s.alerts
}

func (s *TriageService) recordAlert(ctx context.Context, res *EvaluationResult, policy *Policy) (*Alert, error) {
	if s.alerts == nil {
		return nil, nil
	}
	return s.alerts.Record(ctx, res, policy)
}

func (s *TriageService) failClosedResult(tenantID string, raw *RawMessage, cause error) *EvaluationResult {
	messageID := ""
	if raw != nil {
		messageID = raw.MessageID
	}
	return &EvaluationResult{
		MessageID:        messageID,
		TenantID:         tenantID,
		Disposition:      DispositionSuspicious,
		QuarantineReason: "message could not be normalized, held for manual review: " + cause.Error(),
		EvaluatedAt:      time.Now().UTC(),
	}
}
