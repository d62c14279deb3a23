package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kestrelsec/mailgate/internal/core"
	"go.uber.org/zap"
)

func testRule(id string, priority int) *core.ContentFilterRule {
	now := time.Now().UTC()
	return &core.ContentFilterRule{
		ID:        id,
		TenantID:  "acme",
		Name:      "rule " + id,
		Type:      core.RuleTypeKeyword,
		Pattern:   "invoice",
		Action:    core.ActionQuarantine,
		Enabled:   true,
		Priority:  priority,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMemoryStoreSeedsDefaultPolicy(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	policy, err := s.GetPolicy(ctx, "acme")
	if err != nil {
		t.Fatalf("GetPolicy: %v", err)
	}
	if policy.TenantID != "acme" {
		t.Errorf("tenant = %q, want acme", policy.TenantID)
	}
	if policy.BlockThreshold != 0.9 || policy.QuarantineThreshold != 0.7 {
		t.Errorf("thresholds = %v/%v, want 0.9/0.7", policy.BlockThreshold, policy.QuarantineThreshold)
	}

	// Second read returns the same seeded policy, not a fresh default.
	policy.BlockThreshold = 0.5
	again, err := s.GetPolicy(ctx, "acme")
	if err != nil {
		t.Fatalf("GetPolicy: %v", err)
	}
	if again.BlockThreshold != 0.9 {
		t.Errorf("caller mutation leaked into store: block threshold = %v", again.BlockThreshold)
	}
}

func TestMemoryStoreSavePolicyValidates(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	bad := core.DefaultPolicy("acme")
	bad.QuarantineThreshold = 0.95 // above block threshold

	err := s.SavePolicy(ctx, bad)
	var cfgErr *core.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("SavePolicy error = %v, want ConfigurationError", err)
	}
}

func TestMemoryStoreRulesKeepCreationOrder(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	// Priorities deliberately out of order; listing must not re-sort.
	for _, r := range []*core.ContentFilterRule{testRule("r1", 5), testRule("r2", 1), testRule("r3", 3)} {
		if err := s.CreateRule(ctx, r); err != nil {
			t.Fatalf("CreateRule(%s): %v", r.ID, err)
		}
	}

	rules, err := s.ListRules(ctx, "acme")
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	got := []string{rules[0].ID, rules[1].ID, rules[2].ID}
	want := []string{"r1", "r2", "r3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rule order = %v, want %v", got, want)
		}
	}
}

func TestMemoryStoreRuleLifecycle(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	rule := testRule("r1", 1)
	if err := s.CreateRule(ctx, rule); err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if err := s.CreateRule(ctx, rule); err == nil {
		t.Error("duplicate CreateRule succeeded, want error")
	}

	rule.Pattern = "wire transfer"
	if err := s.UpdateRule(ctx, rule); err != nil {
		t.Fatalf("UpdateRule: %v", err)
	}
	got, err := s.GetRule(ctx, "acme", "r1")
	if err != nil {
		t.Fatalf("GetRule: %v", err)
	}
	if got.Pattern != "wire transfer" {
		t.Errorf("pattern = %q after update", got.Pattern)
	}

	if err := s.SetRuleEnabled(ctx, "acme", "r1", false); err != nil {
		t.Fatalf("SetRuleEnabled: %v", err)
	}
	got, _ = s.GetRule(ctx, "acme", "r1")
	if got.Enabled {
		t.Error("rule still enabled after disable")
	}

	if err := s.DeleteRule(ctx, "acme", "r1"); err != nil {
		t.Fatalf("DeleteRule: %v", err)
	}
	if _, err := s.GetRule(ctx, "acme", "r1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetRule after delete = %v, want ErrNotFound", err)
	}
	if err := s.DeleteRule(ctx, "acme", "r1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second DeleteRule = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreRulesAreTenantScoped(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	rule := testRule("r1", 1)
	if err := s.CreateRule(ctx, rule); err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	if _, err := s.GetRule(ctx, "other", "r1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-tenant GetRule = %v, want ErrNotFound", err)
	}
	rules, err := s.ListRules(ctx, "other")
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("cross-tenant ListRules returned %d rules", len(rules))
	}
}

func TestMemoryStoreAlertAcknowledgement(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	alert := &core.Alert{
		ID:        "a1",
		TenantID:  "acme",
		Severity:  core.AlertHigh,
		Title:     "Message blocked",
		Category:  core.CategoryDetection,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.AppendAlert(ctx, alert); err != nil {
		t.Fatalf("AppendAlert: %v", err)
	}

	changed, err := s.AcknowledgeAlert(ctx, "a1")
	if err != nil || !changed {
		t.Fatalf("first acknowledge = (%v, %v), want (true, nil)", changed, err)
	}
	changed, err = s.AcknowledgeAlert(ctx, "a1")
	if err != nil || changed {
		t.Fatalf("second acknowledge = (%v, %v), want (false, nil)", changed, err)
	}
	if _, err := s.AcknowledgeAlert(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("acknowledge missing = %v, want ErrNotFound", err)
	}

	unacked, err := s.ListAlerts(ctx, "acme", true)
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(unacked) != 0 {
		t.Errorf("unacknowledged list has %d entries after acknowledge", len(unacked))
	}
	all, _ := s.ListAlerts(ctx, "acme", false)
	if len(all) != 1 {
		t.Errorf("full list has %d entries, want 1", len(all))
	}
}
