package core

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ConfigSnapshot is the immutable configuration one evaluation runs
// against: the tenant policy plus its rules with patterns already
// compiled. Configuration updates produce a new snapshot; evaluations in
// flight keep the one they started with and never observe a rule set
// mid-update.
type ConfigSnapshot struct {
	Policy  *Policy
	Rules   []ContentFilterRule
	ruleSet *RuleSet
}

// NewConfigSnapshot validates the policy and compiles the rules. An
// invalid policy fails the whole snapshot; a malformed rule only produces
// a warning inside the compiled set.
func NewConfigSnapshot(policy *Policy, rules []ContentFilterRule) (*ConfigSnapshot, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &ConfigSnapshot{
		Policy:  policy,
		Rules:   rules,
		ruleSet: CompileRules(rules),
	}, nil
}

// RuleSet returns the compiled rule set.
func (s *ConfigSnapshot) RuleSet() *RuleSet {
	return s.ruleSet
}

// SnapshotProvider caches one snapshot per tenant and swaps it wholesale
// on reload. Reads take a shared lock; an evaluation holds only the
// snapshot pointer, so a concurrent reload never affects it.
type SnapshotProvider struct {
	store  ConfigStore
	logger *zap.Logger

	mu      sync.RWMutex
	current map[string]*ConfigSnapshot
}

func NewSnapshotProvider(store ConfigStore, logger *zap.Logger) *SnapshotProvider {
	return &SnapshotProvider{
		store:   store,
		logger:  logger,
		current: make(map[string]*ConfigSnapshot),
	}
}

// Snapshot returns the tenant's current snapshot, building it on first
// use.
func (p *SnapshotProvider) Snapshot(ctx context.Context, tenantID string) (*ConfigSnapshot, error) {
	p.mu.RLock()
	snap, ok := p.current[tenantID]
	p.mu.RUnlock()
	if ok {
		return snap, nil
	}
	return p.Reload(ctx, tenantID)
}

// Reload rebuilds the tenant's snapshot from the store. Configuration
// updates take effect only for evaluations started after the reload.
func (p *SnapshotProvider) Reload(ctx context.Context, tenantID string) (*ConfigSnapshot, error) {
	policy, err := p.store.GetPolicy(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	rules, err := p.store.ListRules(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	snap, err := NewConfigSnapshot(policy, rules)
	if err != nil {
		return nil, err
	}
	for _, w := range snap.RuleSet().Warnings() {
		p.logger.Warn("Skipping malformed content filter rule",
			zap.String("tenant_id", tenantID),
			zap.String("rule_id", w.RuleID),
			zap.String("rule_name", w.RuleName),
			zap.String("reason", w.Message))
	}

	p.mu.Lock()
	p.current[tenantID] = snap
	p.mu.Unlock()
	return snap, nil
}

// Invalidate drops the cached snapshot so the next evaluation rebuilds it.
func (p *SnapshotProvider) Invalidate(tenantID string) {
	p.mu.Lock()
	delete(p.current, tenantID)
	p.mu.Unlock()
}
