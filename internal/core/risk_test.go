package core

import (
	"math"
	"testing"
)

func testPolicy() *Policy {
	p := DefaultPolicy("t1")
	p.BlockThreshold = 0.9
	p.QuarantineThreshold = 0.7
	return p
}

func TestAggregateAuthFailures(t *testing.T) {
	agg := NewAggregator(DefaultRiskWeights())

	tests := []struct {
		name      string
		spf       bool
		dkim      bool
		dmarc     bool
		mlScore   float64
		wantScore float64
		wantSev   Severity
	}{
		{"all pass", true, true, true, 0.3, 0.3, ""},
		{"spf fail", false, true, true, 0.1, 0.25, SeverityMedium},
		{"spf and dkim fail", false, false, true, 0.1, 0.4, SeverityHigh},
		{"all fail", false, false, false, 0.2, 0.7, SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := &MessageSignals{
				SPFPass: tt.spf, DKIMPass: tt.dkim, DMARCPass: tt.dmarc,
				MLScore: tt.mlScore,
			}
			score, factors, indicators := agg.Aggregate(sig, nil, testPolicy())

			if math.Abs(score-tt.wantScore) > 1e-9 {
				t.Errorf("score = %v, want %v", score, tt.wantScore)
			}
			if len(indicators) != 3 {
				t.Fatalf("want 3 auth indicators, got %d", len(indicators))
			}
			var authFactor *RiskFactor
			for i := range factors {
				if factors[i].Type == RiskDomainReputation {
					authFactor = &factors[i]
				}
			}
			if tt.wantSev == "" {
				if authFactor != nil {
					t.Errorf("no auth factor expected when all checks pass, got %+v", authFactor)
				}
			} else if authFactor == nil || authFactor.Severity != tt.wantSev {
				t.Errorf("auth factor = %+v, want severity %s", authFactor, tt.wantSev)
			}
		})
	}
}

func TestAggregateBlockMatchRaisesFloor(t *testing.T) {
	agg := NewAggregator(DefaultRiskWeights())
	sig := &MessageSignals{SPFPass: true, DKIMPass: true, DMARCPass: true, MLScore: 0.01}
	matches := []FilterMatch{{RuleID: "r1", RuleName: "macros", Action: ActionBlock, Priority: 1}}

	score, _, _ := agg.Aggregate(sig, matches, testPolicy())
	if score < 0.9 {
		t.Errorf("block match must raise score to at least 0.9, got %v", score)
	}
}

func TestAggregateQuarantineMatchRaisesFloor(t *testing.T) {
	agg := NewAggregator(DefaultRiskWeights())
	sig := &MessageSignals{SPFPass: true, DKIMPass: true, DMARCPass: true, MLScore: 0.1}
	matches := []FilterMatch{{RuleID: "r1", Action: ActionQuarantine, Priority: 1}}

	score, _, _ := agg.Aggregate(sig, matches, testPolicy())
	if score < 0.7 {
		t.Errorf("quarantine match must raise score to the quarantine threshold, got %v", score)
	}
}

func TestAggregateAllowNeverLowersScore(t *testing.T) {
	agg := NewAggregator(DefaultRiskWeights())
	sig := &MessageSignals{MLScore: 0} // all auth failed
	matches := []FilterMatch{{RuleID: "r1", RuleName: "trusted", Action: ActionAllow, Priority: 1}}

	score, factors, _ := agg.Aggregate(sig, matches, testPolicy())
	if math.Abs(score-0.5) > 1e-9 {
		t.Errorf("allow match must not lower auth-failure score, got %v want 0.5", score)
	}

	found := false
	for _, f := range factors {
		if f.Type == RiskSenderHistory && f.Severity == SeverityLow {
			found = true
		}
	}
	if !found {
		t.Errorf("allow match must be recorded as a low-severity factor, factors: %+v", factors)
	}
}

func TestAggregateClampsToOne(t *testing.T) {
	agg := NewAggregator(DefaultRiskWeights())
	sig := &MessageSignals{MLScore: 0.95} // + 0.5 of auth failures
	score, _, _ := agg.Aggregate(sig, nil, testPolicy())
	if score != 1 {
		t.Errorf("score must clamp to 1, got %v", score)
	}
}

func TestAggregateMonotonicInMLScore(t *testing.T) {
	agg := NewAggregator(DefaultRiskWeights())
	prev := -1.0
	for ml := 0.0; ml <= 1.0; ml += 0.05 {
		sig := &MessageSignals{SPFPass: true, DKIMPass: false, DMARCPass: true, MLScore: ml}
		score, _, _ := agg.Aggregate(sig, nil, testPolicy())
		if score < prev {
			t.Fatalf("score decreased from %v to %v at ml=%v", prev, score, ml)
		}
		prev = score
	}
}

func TestAggregateMacroAttachment(t *testing.T) {
	agg := NewAggregator(DefaultRiskWeights())
	sig := &MessageSignals{
		SPFPass: true, DKIMPass: true, DMARCPass: true,
		AttachmentNames: []string{"report.pdf", "invoice.docm"},
		AttachmentCount: 2,
	}

	withMacros := testPolicy()
	withMacros.BlockMacros = true
	score, _, indicators := agg.Aggregate(sig, nil, withMacros)
	if math.Abs(score-0.2) > 1e-9 {
		t.Errorf("macro attachment should add 0.2, got %v", score)
	}
	hasIndicator := false
	for _, ind := range indicators {
		if ind.Type == IndicatorSuspiciousAttachment && ind.Status == IndicatorWarning {
			hasIndicator = true
		}
	}
	if !hasIndicator {
		t.Errorf("expected suspicious_attachment warning, got %+v", indicators)
	}

	noMacros := testPolicy()
	noMacros.BlockMacros = false
	score, _, _ = agg.Aggregate(sig, nil, noMacros)
	if score != 0 {
		t.Errorf("macro heuristic must be policy-gated, got %v", score)
	}
}

func TestAggregatePhishingKeywords(t *testing.T) {
	agg := NewAggregator(DefaultRiskWeights())
	sig := &MessageSignals{
		SPFPass: true, DKIMPass: true, DMARCPass: true,
		BodyText: "Please verify your account immediately.",
	}
	policy := testPolicy()
	policy.BlockMacros = false

	score, _, indicators := agg.Aggregate(sig, nil, policy)
	if math.Abs(score-0.1) > 1e-9 {
		t.Errorf("phishing keywords should add 0.1, got %v", score)
	}
	found := false
	for _, ind := range indicators {
		if ind.Type == IndicatorPhishingKeywords {
			found = true
		}
	}
	if !found {
		t.Errorf("expected phishing_keywords indicator, got %+v", indicators)
	}
}

func TestAggregateLookalikeDisplay(t *testing.T) {
	agg := NewAggregator(DefaultRiskWeights())
	policy := testPolicy()
	policy.BlockMacros = false

	tests := []struct {
		name    string
		display string
		domain  string
		want    bool
	}{
		{"display impersonates another domain", "Support <help@paypal.com>", "paypai-secure.net", true},
		{"bare domain in display", "paypal.com Billing", "evil.example", true},
		{"display shows own domain", "billing@corp.example", "corp.example", false},
		{"plain name", "Alice Jones", "corp.example", false},
		{"no sender domain", "paypal.com Billing", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := &MessageSignals{
				SPFPass: true, DKIMPass: true, DMARCPass: true,
				FromDisplay:  tt.display,
				SenderDomain: tt.domain,
			}
			score, _, indicators := agg.Aggregate(sig, nil, policy)

			found := false
			for _, ind := range indicators {
				if ind.Type == IndicatorLookalikeDomain {
					found = true
				}
			}
			if found != tt.want {
				t.Errorf("lookalike indicator = %v, want %v", found, tt.want)
			}
			wantScore := 0.0
			if tt.want {
				wantScore = 0.25
			}
			if math.Abs(score-wantScore) > 1e-9 {
				t.Errorf("score = %v, want %v", score, wantScore)
			}
		})
	}
}

func TestAggregateNewDomainSender(t *testing.T) {
	agg := NewAggregator(DefaultRiskWeights())
	sig := &MessageSignals{
		SPFPass: false, DKIMPass: false, DMARCPass: false,
		SenderDomain: "just-registered.example",
	}

	gated := testPolicy()
	gated.BlockNewDomains = false
	score, _, _ := agg.Aggregate(sig, nil, gated)
	if math.Abs(score-0.5) > 1e-9 {
		t.Errorf("without block_new_domains only auth weights apply, got %v", score)
	}

	enabled := testPolicy()
	enabled.BlockNewDomains = true
	score, _, indicators := agg.Aggregate(sig, nil, enabled)
	if math.Abs(score-0.75) > 1e-9 {
		t.Errorf("unverifiable sender should add 0.25, got %v", score)
	}
	found := false
	for _, ind := range indicators {
		if ind.Type == IndicatorDomainAge && ind.Status == IndicatorWarning {
			found = true
		}
	}
	if !found {
		t.Errorf("expected domain_age warning, got %+v", indicators)
	}

	verified := &MessageSignals{
		SPFPass: true, DKIMPass: false, DMARCPass: false,
		SenderDomain: "just-registered.example",
	}
	score, _, _ = agg.Aggregate(verified, nil, enabled)
	if math.Abs(score-0.35) > 1e-9 {
		t.Errorf("any passing auth check exempts the sender, got %v", score)
	}
}

func TestAggregateFactorOrdering(t *testing.T) {
	agg := NewAggregator(DefaultRiskWeights())
	sig := &MessageSignals{
		MLScore:  0.6, // content factor, score 0.6
		BodyText: "act now",
	}
	score, factors, _ := agg.Aggregate(sig, nil, testPolicy())
	if score <= 0 {
		t.Fatalf("expected positive score")
	}
	for i := 1; i < len(factors); i++ {
		if factors[i].Score > factors[i-1].Score {
			t.Errorf("factors not ordered by descending score: %+v", factors)
		}
	}
}
