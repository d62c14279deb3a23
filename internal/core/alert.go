package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertEmitter decides whether a verdict warrants an alert and at what
// severity. It is a pure function over the result and policy except for
// the generated id and timestamp.
type AlertEmitter struct{}

// Emit returns an alert for the given result, or nil when none is due.
// An alert is raised iff real-time alerts are enabled and the message was
// blocked or quarantined, or any risk factor is critical.
func (AlertEmitter) Emit(result *EvaluationResult, policy *Policy) *Alert {
	if policy == nil || !policy.EnableRealTimeAlerts {
		return nil
	}

	hasCriticalFactor := false
	for _, f := range result.RiskFactors {
		if f.Severity == SeverityCritical {
			hasCriticalFactor = true
			break
		}
	}

	actionable := result.Disposition == DispositionBlocked || result.Disposition == DispositionQuarantined
	if !actionable && !hasCriticalFactor {
		return nil
	}

	var severity AlertSeverity
	switch {
	case result.Disposition == DispositionBlocked && hasCriticalFactor:
		severity = AlertCritical
	case result.Disposition == DispositionBlocked:
		severity = AlertHigh
	case result.Disposition == DispositionQuarantined:
		severity = AlertWarning
	default:
		severity = AlertInfo
	}

	description := result.QuarantineReason
	if description == "" {
		description = fmt.Sprintf("message scored %.2f", result.RiskScore)
	}

	return &Alert{
		ID:          uuid.NewString(),
		TenantID:    result.TenantID,
		MessageID:   result.MessageID,
		Severity:    severity,
		Title:       fmt.Sprintf("Message %s", result.Disposition),
		Description: description,
		CreatedAt:   time.Now().UTC(),
		Category:    CategoryDetection,
	}
}

// AlertService serializes alert emission and acknowledgement against the
// repository. Evaluation itself needs no locking; only the alert store
// does, to avoid double-emission races.
type AlertService struct {
	emitter   AlertEmitter
	repo      AlertRepository
	publisher AlertPublisher
	logger    *zap.Logger
	mu        sync.Mutex
}

func NewAlertService(repo AlertRepository, publisher AlertPublisher, logger *zap.Logger) *AlertService {
	return &AlertService{repo: repo, publisher: publisher, logger: logger}
}

// Record emits an alert for the result, if one is due, and appends it to
// the repository. A repository failure is returned; a publisher failure is
// logged only, since notification is best effort.
func (s *AlertService) Record(ctx context.Context, result *EvaluationResult, policy *Policy) (*Alert, error) {
	alert := s.emitter.Emit(result, policy)
	if alert == nil {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.AppendAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to append alert: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishAlert(ctx, alert); err != nil {
			s.logger.Warn("Failed to publish alert",
				zap.String("alert_id", alert.ID),
				zap.Error(err))
		}
	}
	return alert, nil
}

// Acknowledge marks an alert acknowledged. Acknowledging an already
// acknowledged alert is a no-op, not an error.
func (s *AlertService) Acknowledge(ctx context.Context, alertID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.repo.AcknowledgeAlert(ctx, alertID)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert %s: %w", alertID, err)
	}
	if !changed {
		s.logger.Debug("Alert already acknowledged", zap.String("alert_id", alertID))
	}
	return nil
}

// List returns a tenant's alerts, optionally only unacknowledged ones.
func (s *AlertService) List(ctx context.Context, tenantID string, unacknowledgedOnly bool) ([]*Alert, error) {
	return s.repo.ListAlerts(ctx, tenantID, unacknowledgedOnly)
}
