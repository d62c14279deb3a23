package core

import (
	"strings"
	"time"
)

// RuleType selects which message fields a content filter rule inspects.
type RuleType string

const (
	RuleTypeKeyword    RuleType = "keyword"
	RuleTypeDomain     RuleType = "domain"
	RuleTypeAttachment RuleType = "attachment"
	RuleTypeURL        RuleType = "url"
	RuleTypeHeader     RuleType = "header"
)

// RuleAction is what a matching rule asks the decision engine to do.
type RuleAction string

const (
	ActionAllow      RuleAction = "allow"
	ActionQuarantine RuleAction = "quarantine"
	ActionBlock      RuleAction = "block"
)

// ContentFilterRule is an administrator-authored pattern rule. The pattern
// is a case-insensitive regular expression searched against the fields the
// rule type selects. Lower priority evaluates first and wins on conflict.
type ContentFilterRule struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	Name        string     `json:"name"`
	Type        RuleType   `json:"type"`
	Pattern     string     `json:"pattern"`
	Action      RuleAction `json:"action"`
	Enabled     bool       `json:"enabled"`
	Priority    int        `json:"priority"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Validate checks the fields an administrator can get wrong.
func (r *ContentFilterRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ConfigurationError{Field: "name", Reason: "rule name is required"}
	}
	if strings.TrimSpace(r.Pattern) == "" {
		return &ConfigurationError{Field: "pattern", Reason: "rule pattern is required"}
	}
	switch r.Type {
	case RuleTypeKeyword, RuleTypeDomain, RuleTypeAttachment, RuleTypeURL, RuleTypeHeader:
	default:
		return &ConfigurationError{Field: "type", Reason: "unknown rule type: " + string(r.Type)}
	}
	switch r.Action {
	case ActionAllow, ActionQuarantine, ActionBlock:
	default:
		return &ConfigurationError{Field: "action", Reason: "unknown rule action: " + string(r.Action)}
	}
	return nil
}

// Policy is the tenant-scoped decision configuration. It is read-only to
// the engine; mutation goes through the config store.
type Policy struct {
	ID                   string    `json:"id"`
	TenantID             string    `json:"tenant_id"`
	BlockThreshold       float64   `json:"block_threshold"`
	QuarantineThreshold  float64   `json:"quarantine_threshold"`
	BlockNewDomains      bool      `json:"block_new_domains"`
	BlockMacros          bool      `json:"block_macros"`
	AllowExternalImages  bool      `json:"allow_external_images"`
	EnableRealTimeAlerts bool      `json:"enable_real_time_alerts"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Validate rejects a policy that would misclassify messages. An invalid
// policy is fatal for every evaluation under it, never defaulted silently.
func (p *Policy) Validate() error {
	if p == nil {
		return &ConfigurationError{Field: "policy", Reason: "policy is nil"}
	}
	if p.BlockThreshold < 0 || p.BlockThreshold > 1 {
		return &ConfigurationError{Field: "block_threshold", Reason: "must be within [0,1]"}
	}
	if p.QuarantineThreshold < 0 || p.QuarantineThreshold > 1 {
		return &ConfigurationError{Field: "quarantine_threshold", Reason: "must be within [0,1]"}
	}
	if p.QuarantineThreshold > p.BlockThreshold {
		return &ConfigurationError{
			Field:  "quarantine_threshold",
			Reason: "quarantine threshold must not exceed block threshold",
		}
	}
	return nil
}

// DefaultPolicy returns the policy a tenant starts with before an
// administrator has saved one.
func DefaultPolicy(tenantID string) *Policy {
	now := time.Now().UTC()
	return &Policy{
		ID:                   "policy-" + tenantID,
		TenantID:             tenantID,
		BlockThreshold:       0.9,
		QuarantineThreshold:  0.7,
		BlockMacros:          true,
		EnableRealTimeAlerts: true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}
