package core

import (
	"context"
)

// AnomalyScorer supplies the opaque external ML score for a message. The
// engine never trains or runs a model itself.
type AnomalyScorer interface {
	Score(ctx context.Context, raw *RawMessage) (*AnomalyScore, error)
}

// ConfigStore is the versioned, read-mostly source of tenant policies and
// content filter rules. Rules are returned in creation order.
type ConfigStore interface {
	GetPolicy(ctx context.Context, tenantID string) (*Policy, error)
	SavePolicy(ctx context.Context, policy *Policy) error

	ListRules(ctx context.Context, tenantID string) ([]ContentFilterRule, error)
	GetRule(ctx context.Context, tenantID, ruleID string) (*ContentFilterRule, error)
	CreateRule(ctx context.Context, rule *ContentFilterRule) error
	UpdateRule(ctx context.Context, rule *ContentFilterRule) error
	DeleteRule(ctx context.Context, tenantID, ruleID string) error
	SetRuleEnabled(ctx context.Context, tenantID, ruleID string, enabled bool) error
}

// AlertRepository persists emitted alerts. Alerts are append-only;
// acknowledgement flips a flag and must be idempotent.
type AlertRepository interface {
	AppendAlert(ctx context.Context, alert *Alert) error
	GetAlert(ctx context.Context, alertID string) (*Alert, error)
	ListAlerts(ctx context.Context, tenantID string, unacknowledgedOnly bool) ([]*Alert, error)

	// AcknowledgeAlert marks an alert acknowledged and reports whether the
	// call changed anything (false when already acknowledged).
	AcknowledgeAlert(ctx context.Context, alertID string) (bool, error)
}

// AlertPublisher pushes emitted alerts to the downstream notification
// layer. Publishing is best effort and never blocks a verdict.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert *Alert) error
}
