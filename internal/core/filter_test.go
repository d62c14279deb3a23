package core

import (
	"testing"
	"time"
)

func makeRule(id, name string, typ RuleType, pattern string, action RuleAction, priority int, enabled bool) ContentFilterRule {
	return ContentFilterRule{
		ID:        id,
		TenantID:  "t1",
		Name:      name,
		Type:      typ,
		Pattern:   pattern,
		Action:    action,
		Enabled:   enabled,
		Priority:  priority,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestRuleSetEvaluate(t *testing.T) {
	sig := &MessageSignals{
		FromAddress:     "security@paypaI.com",
		SenderDomain:    "paypai.com",
		Subject:         "Urgent: Verify Your Account",
		BodyText:        "Your account has been limited. Visit https://bit.ly/x now.",
		AttachmentNames: []string{"invoice.docm"},
		URLs:            []string{"https://bit.ly/x"},
		URLCount:        1,
	}

	tests := []struct {
		name    string
		rule    ContentFilterRule
		matched bool
	}{
		{"keyword matches subject", makeRule("r1", "phish words", RuleTypeKeyword, "urgent|act now", ActionQuarantine, 1, true), true},
		{"keyword matches body", makeRule("r2", "limited", RuleTypeKeyword, "account has been limited", ActionQuarantine, 1, true), true},
		{"keyword no match", makeRule("r3", "wire fraud", RuleTypeKeyword, "wire transfer", ActionBlock, 1, true), false},
		{"domain matches sender", makeRule("r4", "lookalikes", RuleTypeDomain, `paypai\.com`, ActionBlock, 1, true), true},
		{"url matches shortener", makeRule("r5", "shorteners", RuleTypeURL, `bit\.ly|tinyurl\.com`, ActionQuarantine, 1, true), true},
		{"attachment macro", makeRule("r6", "macros", RuleTypeAttachment, `\.(docm|xlsm)$`, ActionBlock, 1, true), true},
		{"attachment no match", makeRule("r7", "exe", RuleTypeAttachment, `\.exe$`, ActionBlock, 1, true), false},
		{"header acts on subject and body", makeRule("r8", "header rule", RuleTypeHeader, "verify your", ActionQuarantine, 1, true), true},
		{"disabled rule invisible", makeRule("r9", "disabled", RuleTypeKeyword, "urgent", ActionBlock, 1, false), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := CompileRules([]ContentFilterRule{tt.rule})
			matches := rs.Evaluate(sig)
			if got := len(matches) == 1; got != tt.matched {
				t.Errorf("matched = %v, want %v", got, tt.matched)
			}
		})
	}
}

func TestRuleSetCaseInsensitive(t *testing.T) {
	rs := CompileRules([]ContentFilterRule{
		makeRule("r1", "caps", RuleTypeKeyword, "LOTTERY WINNER", ActionBlock, 1, true),
	})
	sig := &MessageSignals{Subject: "you are a lottery winner"}
	if len(rs.Evaluate(sig)) != 1 {
		t.Errorf("pattern matching should be case-insensitive")
	}
}

func TestRuleSetOrdering(t *testing.T) {
	rules := []ContentFilterRule{
		makeRule("r1", "third", RuleTypeKeyword, "prize", ActionAllow, 5, true),
		makeRule("r2", "first", RuleTypeKeyword, "prize", ActionBlock, 1, true),
		makeRule("r3", "second-a", RuleTypeKeyword, "prize", ActionQuarantine, 3, true),
		makeRule("r4", "second-b", RuleTypeKeyword, "prize", ActionQuarantine, 3, true),
	}
	rs := CompileRules(rules)
	matches := rs.Evaluate(&MessageSignals{BodyText: "claim your prize"})

	want := []string{"r2", "r3", "r4", "r1"}
	if len(matches) != len(want) {
		t.Fatalf("got %d matches, want %d", len(matches), len(want))
	}
	for i, id := range want {
		if matches[i].RuleID != id {
			t.Errorf("match[%d] = %s, want %s (priority asc, creation order ties)", i, matches[i].RuleID, id)
		}
	}
}

func TestCompileRulesMalformedPattern(t *testing.T) {
	rules := []ContentFilterRule{
		makeRule("bad", "broken", RuleTypeKeyword, "([unclosed", ActionBlock, 1, true),
		makeRule("good", "works", RuleTypeKeyword, "prize", ActionQuarantine, 2, true),
	}
	rs := CompileRules(rules)

	if len(rs.Warnings()) != 1 || rs.Warnings()[0].RuleID != "bad" {
		t.Fatalf("expected one warning for rule bad, got %+v", rs.Warnings())
	}
	matches := rs.Evaluate(&MessageSignals{BodyText: "claim your prize"})
	if len(matches) != 1 || matches[0].RuleID != "good" {
		t.Errorf("malformed rule must not abort evaluation of valid rules, got %+v", matches)
	}
}

func TestEmptyRuleSet(t *testing.T) {
	rs := CompileRules(nil)
	if got := rs.Evaluate(&MessageSignals{Subject: "anything"}); len(got) != 0 {
		t.Errorf("empty rule set must yield no matches, got %+v", got)
	}
}
