package core

import (
	"fmt"
	"time"
)

// DefaultSuspiciousMargin is how far below the quarantine threshold a
// score may sit and still be flagged suspicious rather than allowed.
const DefaultSuspiciousMargin = 0.2

// DecisionEngine is the pure classification function mapping an
// aggregated risk score, the filter matches, and a tenant policy to a
// final disposition. It holds no mutable state.
type DecisionEngine struct {
	suspiciousMargin float64
}

func NewDecisionEngine(suspiciousMargin float64) *DecisionEngine {
	if suspiciousMargin <= 0 {
		suspiciousMargin = DefaultSuspiciousMargin
	}
	return &DecisionEngine{suspiciousMargin: suspiciousMargin}
}

// Decide resolves the final disposition. Precedence, first match wins:
//
//  1. any block-action filter match          -> blocked
//  2. score >= policy block threshold        -> blocked
//  3. quarantine-action match, or
//     score >= policy quarantine threshold   -> quarantined
//  4. score within the suspicious margin
//     below the quarantine threshold         -> suspicious
//  5. otherwise                              -> allowed
//
// A filter match takes naming precedence over a threshold when both fire.
// An invalid policy is a fatal configuration error, never defaulted.
func (e *DecisionEngine) Decide(
	sig *MessageSignals,
	score float64,
	factors []RiskFactor,
	indicators []SecurityIndicator,
	matches []FilterMatch,
	policy *Policy,
) (*EvaluationResult, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	res := &EvaluationResult{
		MessageID:   sig.MessageID,
		TenantID:    policy.TenantID,
		RiskScore:   score,
		RiskFactors: factors,
		Indicators:  indicators,
		Matches:     matches,
		EvaluatedAt: time.Now().UTC(),
	}

	if m := firstMatchWithAction(matches, ActionBlock); m != nil {
		res.Disposition = DispositionBlocked
		res.QuarantineReason = "content filter: block rule " + describeMatch(m) + " matched"
		res.ForcingRuleID = m.RuleID
		return res, nil
	}

	if score >= policy.BlockThreshold {
		res.Disposition = DispositionBlocked
		res.QuarantineReason = fmt.Sprintf("risk score %.2f exceeded block threshold %.2f", score, policy.BlockThreshold)
		return res, nil
	}

	if m := firstMatchWithAction(matches, ActionQuarantine); m != nil {
		res.Disposition = DispositionQuarantined
		res.QuarantineReason = "content filter: quarantine rule " + describeMatch(m) + " matched"
		res.ForcingRuleID = m.RuleID
		return res, nil
	}

	if score >= policy.QuarantineThreshold {
		res.Disposition = DispositionQuarantined
		res.QuarantineReason = fmt.Sprintf("risk score %.2f exceeded quarantine threshold %.2f", score, policy.QuarantineThreshold)
		return res, nil
	}

	if score >= policy.QuarantineThreshold-e.suspiciousMargin {
		res.Disposition = DispositionSuspicious
		return res, nil
	}

	res.Disposition = DispositionAllowed
	return res, nil
}
