package core

import (
	"errors"
	"strings"
	"testing"
)

func dispositionTier(d Disposition) int {
	switch d {
	case DispositionAllowed:
		return 0
	case DispositionSuspicious:
		return 1
	case DispositionQuarantined:
		return 2
	case DispositionBlocked:
		return 3
	}
	return -1
}

func TestDecidePrecedence(t *testing.T) {
	engine := NewDecisionEngine(DefaultSuspiciousMargin)
	sig := &MessageSignals{MessageID: "m1"}

	tests := []struct {
		name        string
		score       float64
		matches     []FilterMatch
		want        Disposition
		wantForcing string
		wantReason  string
	}{
		{
			name:    "block match wins regardless of score",
			score:   0.01,
			matches: []FilterMatch{{RuleID: "r1", RuleName: "macros", Action: ActionBlock, Priority: 1}},
			want:    DispositionBlocked, wantForcing: "r1", wantReason: "block rule",
		},
		{
			name:  "block threshold",
			score: 0.95,
			want:  DispositionBlocked, wantReason: "block threshold",
		},
		{
			name:    "quarantine match named over threshold",
			score:   0.75,
			matches: []FilterMatch{{RuleID: "r2", RuleName: "shorteners", Action: ActionQuarantine, Priority: 1}},
			want:    DispositionQuarantined, wantForcing: "r2", wantReason: "shorteners",
		},
		{
			name:  "quarantine threshold alone",
			score: 0.75,
			want:  DispositionQuarantined, wantReason: "quarantine threshold",
		},
		{
			name:  "suspicious band below quarantine threshold",
			score: 0.55,
			want:  DispositionSuspicious,
		},
		{
			name:  "allowed",
			score: 0.05,
			want:  DispositionAllowed,
		},
		{
			name:    "allow match is advisory only",
			score:   0.95,
			matches: []FilterMatch{{RuleID: "r3", Action: ActionAllow, Priority: 1}},
			want:    DispositionBlocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.Decide(sig, tt.score, nil, nil, tt.matches, testPolicy())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Disposition != tt.want {
				t.Errorf("disposition = %s, want %s", res.Disposition, tt.want)
			}
			if res.ForcingRuleID != tt.wantForcing {
				t.Errorf("forcing rule = %q, want %q", res.ForcingRuleID, tt.wantForcing)
			}
			if tt.wantReason != "" && !strings.Contains(res.QuarantineReason, tt.wantReason) {
				t.Errorf("reason %q does not name %q", res.QuarantineReason, tt.wantReason)
			}
		})
	}
}

func TestDecideRejectsInvalidPolicy(t *testing.T) {
	engine := NewDecisionEngine(DefaultSuspiciousMargin)
	sig := &MessageSignals{MessageID: "m1"}

	tests := []struct {
		name   string
		policy *Policy
	}{
		{"quarantine above block", &Policy{TenantID: "t1", BlockThreshold: 0.5, QuarantineThreshold: 0.8}},
		{"block above one", &Policy{TenantID: "t1", BlockThreshold: 1.5, QuarantineThreshold: 0.5}},
		{"negative quarantine", &Policy{TenantID: "t1", BlockThreshold: 0.9, QuarantineThreshold: -0.1}},
		{"nil policy", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Decide(sig, 0.5, nil, nil, nil, tt.policy)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestDecideMonotonicTiers(t *testing.T) {
	engine := NewDecisionEngine(DefaultSuspiciousMargin)
	sig := &MessageSignals{MessageID: "m1"}

	prev := -1
	for score := 0.0; score <= 1.0; score += 0.01 {
		res, err := engine.Decide(sig, score, nil, nil, nil, testPolicy())
		if err != nil {
			t.Fatalf("unexpected error at %v: %v", score, err)
		}
		tier := dispositionTier(res.Disposition)
		if tier < prev {
			t.Fatalf("disposition tier dropped at score %v: %s", score, res.Disposition)
		}
		prev = tier
	}
}

func TestPolicyValidate(t *testing.T) {
	ok := DefaultPolicy("t1")
	if err := ok.Validate(); err != nil {
		t.Errorf("default policy should validate, got %v", err)
	}

	equal := &Policy{TenantID: "t1", BlockThreshold: 0.7, QuarantineThreshold: 0.7}
	if err := equal.Validate(); err != nil {
		t.Errorf("equal thresholds are allowed, got %v", err)
	}
}
