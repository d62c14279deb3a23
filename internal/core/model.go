package core

import (
	"time"
)

// Disposition is the final classification of a message.
type Disposition string

const (
	DispositionAllowed     Disposition = "allowed"
	DispositionSuspicious  Disposition = "suspicious"
	DispositionQuarantined Disposition = "quarantined"
	DispositionBlocked     Disposition = "blocked"
)

// Severity grades a risk factor.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the ordering weight of a severity, higher is worse.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// RiskFactorType names a contributor to the aggregated risk score.
type RiskFactorType string

const (
	RiskDomainReputation RiskFactorType = "domain_reputation"
	RiskSenderHistory    RiskFactorType = "sender_history"
	RiskContentAnalysis  RiskFactorType = "content_analysis"
	RiskURLAnalysis      RiskFactorType = "url_analysis"
	RiskAttachment       RiskFactorType = "attachment_risk"
)

// RiskFactor is a named, scored contributor to a message's risk.
type RiskFactor struct {
	Type        RiskFactorType `json:"type"`
	Severity    Severity       `json:"severity"`
	Description string         `json:"description"`
	Score       float64        `json:"score"`
}

// IndicatorType names a security signal surfaced alongside a verdict.
type IndicatorType string

const (
	IndicatorSPF                  IndicatorType = "spf"
	IndicatorDKIM                 IndicatorType = "dkim"
	IndicatorDMARC                IndicatorType = "dmarc"
	IndicatorIPReputation         IndicatorType = "ip_reputation"
	IndicatorDomainAge            IndicatorType = "domain_age"
	IndicatorLookalikeDomain      IndicatorType = "lookalike_domain"
	IndicatorSuspiciousAttachment IndicatorType = "suspicious_attachment"
	IndicatorPhishingKeywords     IndicatorType = "phishing_keywords"
)

// IndicatorStatus is the outcome of a single indicator check.
type IndicatorStatus string

const (
	IndicatorPass    IndicatorStatus = "pass"
	IndicatorFail    IndicatorStatus = "fail"
	IndicatorWarning IndicatorStatus = "warning"
	IndicatorNeutral IndicatorStatus = "neutral"
)

// SecurityIndicator is a per-evaluation signal shown with the verdict.
type SecurityIndicator struct {
	Type    IndicatorType   `json:"type"`
	Status  IndicatorStatus `json:"status"`
	Message string          `json:"message"`
}

// RawMessage is the message descriptor handed in by an ingestion gateway.
// Authentication results and the anomaly score are pointers so that a
// missing value can be told apart from an explicit false/zero.
type RawMessage struct {
	MessageID       string
	FromAddress     string
	FromDisplay     string
	ToAddress       string
	Subject         string
	BodyText        string
	BodyHTML        string
	SourceIP        string
	Size            int64
	ReceivedAt      time.Time
	AttachmentNames []string
	Headers         map[string][]string
	SPFPass         *bool
	DKIMPass        *bool
	DMARCPass       *bool
	MLScore         *float64
}

// MessageSignals is the canonical per-message record the engine evaluates.
// It is built once by the normalizer and never mutated afterwards.
type MessageSignals struct {
	MessageID       string
	FromAddress     string
	FromDisplay     string
	SenderDomain    string
	ToAddress       string
	Subject         string
	BodyText        string
	HasTextBody     bool
	HasHTMLBody     bool
	SourceIP        string
	Size            int64
	ReceivedAt      time.Time
	AttachmentCount int
	AttachmentNames []string
	URLCount        int
	URLs            []string
	SPFPass         bool
	DKIMPass        bool
	DMARCPass       bool
	MLScore         float64
}

// FilterMatch is one content filter rule that matched a message.
type FilterMatch struct {
	RuleID   string     `json:"rule_id"`
	RuleName string     `json:"rule_name"`
	Action   RuleAction `json:"action"`
	Priority int        `json:"priority"`
}

// RuleWarning reports a rule that was skipped during compilation.
type RuleWarning struct {
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Message  string `json:"message"`
}

// EvaluationResult is the decision engine's output for one message.
type EvaluationResult struct {
	MessageID        string              `json:"message_id"`
	TenantID         string              `json:"tenant_id"`
	Disposition      Disposition         `json:"disposition"`
	RiskScore        float64             `json:"risk_score"`
	RiskFactors      []RiskFactor        `json:"risk_factors"`
	Indicators       []SecurityIndicator `json:"indicators"`
	QuarantineReason string              `json:"quarantine_reason,omitempty"`
	ForcingRuleID    string              `json:"forcing_rule_id,omitempty"`
	Matches          []FilterMatch       `json:"matches,omitempty"`
	Warnings         []RuleWarning       `json:"warnings,omitempty"`
	EvaluatedAt      time.Time           `json:"evaluated_at"`
}

// AlertSeverity grades an emitted alert.
type AlertSeverity string

const (
	AlertInfo     AlertSeverity = "info"
	AlertWarning  AlertSeverity = "warning"
	AlertHigh     AlertSeverity = "high"
	AlertCritical AlertSeverity = "critical"
)

// AlertCategory classifies the origin of an alert.
type AlertCategory string

const (
	CategoryDetection  AlertCategory = "detection"
	CategoryPolicy     AlertCategory = "policy"
	CategorySystem     AlertCategory = "system"
	CategoryUserAction AlertCategory = "user_action"
)

// Alert is an append-only notification raised for a disposition.
// Alerts are never deleted, only marked acknowledged.
type Alert struct {
	ID           string        `json:"id"`
	TenantID     string        `json:"tenant_id"`
	MessageID    string        `json:"message_id,omitempty"`
	Severity     AlertSeverity `json:"severity"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	CreatedAt    time.Time     `json:"created_at"`
	Acknowledged bool          `json:"acknowledged"`
	Category     AlertCategory `json:"category"`
}

// AnomalyScore is the opaque ML verdict supplied by an external scorer.
type AnomalyScore struct {
	Score     float64
	Rationale string
	Provider  string
}
