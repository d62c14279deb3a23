package store

import (
	"context"
	"sync"

	"github.com/kestrelsec/mailgate/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the ConfigStore and
// AlertRepository interfaces. It is the default backend for single-node
// deployments and tests. Rules are kept in creation order per tenant.
type MemoryStore struct {
	mu       sync.RWMutex
	policies map[string]*core.Policy
	rules    map[string][]core.ContentFilterRule
	alerts   []*core.Alert
	logger   *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		policies: make(map[string]*core.Policy),
		rules:    make(map[string][]core.ContentFilterRule),
		logger:   logger,
	}
}

// GetPolicy returns the tenant's policy, seeding the default policy the
// first time a tenant is seen.
func (s *MemoryStore) GetPolicy(ctx context.Context, tenantID string) (*core.Policy, error) {
	s.mu.RLock()
	p, ok := s.policies[tenantID]
	s.mu.RUnlock()
	if ok {
		cp := *p
		return &cp, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.policies[tenantID]; ok {
		cp := *p
		return &cp, nil
	}
	seeded := core.DefaultPolicy(tenantID)
	s.policies[tenantID] = seeded
	s.logger.Debug("Seeded default policy", zap.String("tenant_id", tenantID))
	cp := *seeded
	return &cp, nil
}

// SavePolicy stores a copy of the policy for its tenant.
func (s *MemoryStore) SavePolicy(ctx context.Context, policy *core.Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *policy
	s.policies[policy.TenantID] = &cp
	return nil
}

// ListRules returns the tenant's rules in creation order.
func (s *MemoryStore) ListRules(ctx context.Context, tenantID string) ([]core.ContentFilterRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rules := s.rules[tenantID]
	out := make([]core.ContentFilterRule, len(rules))
	copy(out, rules)
	return out, nil
}

// GetRule returns a single rule by ID.
func (s *MemoryStore) GetRule(ctx context.Context, tenantID, ruleID string) (*core.ContentFilterRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.rules[tenantID] {
		if s.rules[tenantID][i].ID == ruleID {
			cp := s.rules[tenantID][i]
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

// CreateRule appends a rule to the tenant's rule list.
func (s *MemoryStore) CreateRule(ctx context.Context, rule *core.ContentFilterRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rules[rule.TenantID] {
		if s.rules[rule.TenantID][i].ID == rule.ID {
			return &core.ConfigurationError{Field: "id", Reason: "rule ID already exists"}
		}
	}
	s.rules[rule.TenantID] = append(s.rules[rule.TenantID], *rule)
	return nil
}

// UpdateRule replaces an existing rule in place, preserving its position in
// the creation order.
func (s *MemoryStore) UpdateRule(ctx context.Context, rule *core.ContentFilterRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rules[rule.TenantID] {
		if s.rules[rule.TenantID][i].ID == rule.ID {
			s.rules[rule.TenantID][i] = *rule
			return nil
		}
	}
	return core.ErrNotFound
}

// DeleteRule removes a rule from the tenant's rule list.
func (s *MemoryStore) DeleteRule(ctx context.Context, tenantID, ruleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rules := s.rules[tenantID]
	for i := range rules {
		if rules[i].ID == ruleID {
			s.rules[tenantID] = append(rules[:i], rules[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

// SetRuleEnabled toggles a rule without touching its other fields.
func (s *MemoryStore) SetRuleEnabled(ctx context.Context, tenantID, ruleID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rules[tenantID] {
		if s.rules[tenantID][i].ID == ruleID {
			s.rules[tenantID][i].Enabled = enabled
			return nil
		}
	}
	return core.ErrNotFound
}

// AppendAlert stores a copy of the alert.
func (s *MemoryStore) AppendAlert(ctx context.Context, alert *core.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *alert
	s.alerts = append(s.alerts, &cp)
	return nil
}

// GetAlert returns a single alert by ID.
func (s *MemoryStore) GetAlert(ctx context.Context, alertID string) (*core.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.alerts {
		if a.ID == alertID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

// ListAlerts returns a tenant's alerts in emission order.
func (s *MemoryStore) ListAlerts(ctx context.Context, tenantID string, unacknowledgedOnly bool) ([]*core.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*core.Alert
	for _, a := range s.alerts {
		if a.TenantID != tenantID {
			continue
		}
		if unacknowledgedOnly && a.Acknowledged {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

// AcknowledgeAlert flips the acknowledged flag. Acknowledging twice is not
// an error and reports false the second time.
func (s *MemoryStore) AcknowledgeAlert(ctx context.Context, alertID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.alerts {
		if a.ID == alertID {
			if a.Acknowledged {
				return false, nil
			}
			a.Acknowledged = true
			return true, nil
		}
	}
	return false, core.ErrNotFound
}

// Stop is a no-op for the in-memory store.
func (s *MemoryStore) Stop() {}
