package core

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// RiskWeights are the tunable constants combining the anomaly score with
// authentication failures and content heuristics. They are configuration,
// not magic numbers: the factory reads them from the risk.* config keys.
type RiskWeights struct {
	SPFFailure       float64
	DKIMFailure      float64
	DMARCFailure     float64
	BlockMatchFloor  float64
	MacroAttachment  float64
	PhishingKeywords float64
	LookalikeDomain  float64
	NewDomainSender  float64
}

// DefaultRiskWeights returns the documented defaults. DMARC failure weighs
// more than SPF or DKIM alone because it implies alignment failed too.
func DefaultRiskWeights() RiskWeights {
	return RiskWeights{
		SPFFailure:       0.15,
		DKIMFailure:      0.15,
		DMARCFailure:     0.20,
		BlockMatchFloor:  0.9,
		MacroAttachment:  0.20,
		PhishingKeywords: 0.10,
		LookalikeDomain:  0.25,
		NewDomainSender:  0.25,
	}
}

var (
	macroAttachmentPattern = regexp.MustCompile(`(?i)\.(docm|xlsm|pptm|dotm)$`)
	phishingKeywordPattern = regexp.MustCompile(`(?i)urgent|verify your|suspend|click here|act now|confirm your (account|password|identity)`)
	displayDomainPattern   = regexp.MustCompile(`(?i)[a-z0-9][a-z0-9.-]*\.[a-z]{2,}`)
)

// Aggregator combines message signals and filter matches into a weighted
// risk score with its explaining factors and indicators. It holds no
// per-message state and is safe for concurrent use.
type Aggregator struct {
	weights RiskWeights
}

func NewAggregator(weights RiskWeights) *Aggregator {
	return &Aggregator{weights: weights}
}

// Aggregate starts from the externally supplied anomaly score, adds a
// weighted increment per failed authentication check and per content
// heuristic, then applies filter-match floors: a block match raises the
// score to at least the block floor, a quarantine match to at least the
// policy quarantine threshold. Allow matches are advisory; they are
// recorded as low-severity factors and never lower the score.
func (a *Aggregator) Aggregate(sig *MessageSignals, matches []FilterMatch, policy *Policy) (float64, []RiskFactor, []SecurityIndicator) {
	score := clamp01(sig.MLScore)
	var factors []RiskFactor
	var indicators []SecurityIndicator

	score, factors, indicators = a.applyAuthChecks(sig, score, factors, indicators)

	if sig.MLScore >= 0.5 {
		factors = append(factors, RiskFactor{
			Type:        RiskContentAnalysis,
			Severity:    severityForScore(sig.MLScore),
			Description: fmt.Sprintf("anomaly score %.2f from external classifier", sig.MLScore),
			Score:       sig.MLScore,
		})
	}

	if policy != nil && policy.BlockMacros {
		if name, ok := firstMacroAttachment(sig.AttachmentNames); ok {
			score += a.weights.MacroAttachment
			factors = append(factors, RiskFactor{
				Type:        RiskAttachment,
				Severity:    SeverityHigh,
				Description: fmt.Sprintf("macro-enabled attachment %q", name),
				Score:       0.75,
			})
			indicators = append(indicators, SecurityIndicator{
				Type:    IndicatorSuspiciousAttachment,
				Status:  IndicatorWarning,
				Message: fmt.Sprintf("attachment %q can carry macros", name),
			})
		}
	}

	if phishingKeywordPattern.MatchString(sig.Subject) || phishingKeywordPattern.MatchString(sig.BodyText) {
		score += a.weights.PhishingKeywords
		factors = append(factors, RiskFactor{
			Type:        RiskContentAnalysis,
			Severity:    SeverityMedium,
			Description: "subject or body contains common phishing language",
			Score:       0.55,
		})
		indicators = append(indicators, SecurityIndicator{
			Type:    IndicatorPhishingKeywords,
			Status:  IndicatorWarning,
			Message: "contains potential phishing keywords",
		})
	}

	if shown, ok := lookalikeDisplayDomain(sig); ok {
		score += a.weights.LookalikeDomain
		factors = append(factors, RiskFactor{
			Type:        RiskDomainReputation,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("display name shows domain %q but sender domain is %q", shown, sig.SenderDomain),
			Score:       0.65,
		})
		indicators = append(indicators, SecurityIndicator{
			Type:    IndicatorLookalikeDomain,
			Status:  IndicatorWarning,
			Message: fmt.Sprintf("display name impersonates %s", shown),
		})
	}

	if policy != nil && policy.BlockNewDomains && !sig.SPFPass && !sig.DKIMPass && !sig.DMARCPass {
		score += a.weights.NewDomainSender
		factors = append(factors, RiskFactor{
			Type:        RiskDomainReputation,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("sender domain %q has no verifiable mail infrastructure", sig.SenderDomain),
			Score:       0.65,
		})
		indicators = append(indicators, SecurityIndicator{
			Type:    IndicatorDomainAge,
			Status:  IndicatorWarning,
			Message: "sender domain cannot be tied to established infrastructure",
		})
	}

	if sig.URLCount >= 5 {
		factors = append(factors, RiskFactor{
			Type:        RiskURLAnalysis,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("message contains %d URLs", sig.URLCount),
			Score:       0.4,
		})
	}

	score = a.applyMatchFloors(score, matches, policy, &factors)
	score = clamp01(score)

	sort.SliceStable(factors, func(i, j int) bool {
		if factors[i].Score != factors[j].Score {
			return factors[i].Score > factors[j].Score
		}
		return factors[i].Severity.Rank() > factors[j].Severity.Rank()
	})
	return score, factors, indicators
}

func (a *Aggregator) applyAuthChecks(sig *MessageSignals, score float64, factors []RiskFactor, indicators []SecurityIndicator) (float64, []RiskFactor, []SecurityIndicator) {
	type authCheck struct {
		typ    IndicatorType
		passed bool
		weight float64
		fail   string
		pass   string
	}
	checks := []authCheck{
		{IndicatorSPF, sig.SPFPass, a.weights.SPFFailure,
			"SPF record does not authorize sending IP", "SPF record authorizes sending IP"},
		{IndicatorDKIM, sig.DKIMPass, a.weights.DKIMFailure,
			"DKIM signature validation failed", "DKIM signature valid"},
		{IndicatorDMARC, sig.DMARCPass, a.weights.DMARCFailure,
			"DMARC policy violation", "DMARC alignment passed"},
	}

	failed := 0
	failedWeight := 0.0
	for _, c := range checks {
		if c.passed {
			indicators = append(indicators, SecurityIndicator{Type: c.typ, Status: IndicatorPass, Message: c.pass})
			continue
		}
		indicators = append(indicators, SecurityIndicator{Type: c.typ, Status: IndicatorFail, Message: c.fail})
		score += c.weight
		failed++
		failedWeight += c.weight
	}

	if failed > 0 {
		sev := SeverityMedium
		switch failed {
		case 2:
			sev = SeverityHigh
		case 3:
			sev = SeverityCritical
		}
		factors = append(factors, RiskFactor{
			Type:        RiskDomainReputation,
			Severity:    sev,
			Description: fmt.Sprintf("%d of 3 sender authentication checks failed", failed),
			Score:       clamp01(failedWeight),
		})
	}
	return score, factors, indicators
}

func (a *Aggregator) applyMatchFloors(score float64, matches []FilterMatch, policy *Policy, factors *[]RiskFactor) float64 {
	for i := range matches {
		m := &matches[i]
		switch m.Action {
		case ActionBlock:
			if score < a.weights.BlockMatchFloor {
				score = a.weights.BlockMatchFloor
			}
			*factors = append(*factors, RiskFactor{
				Type:        RiskContentAnalysis,
				Severity:    SeverityCritical,
				Description: "block rule " + describeMatch(m) + " matched",
				Score:       a.weights.BlockMatchFloor,
			})
		case ActionQuarantine:
			if policy != nil && score < policy.QuarantineThreshold {
				score = policy.QuarantineThreshold
			}
			*factors = append(*factors, RiskFactor{
				Type:        RiskContentAnalysis,
				Severity:    SeverityHigh,
				Description: "quarantine rule " + describeMatch(m) + " matched",
				Score:       0.7,
			})
		case ActionAllow:
			*factors = append(*factors, RiskFactor{
				Type:        RiskSenderHistory,
				Severity:    SeverityLow,
				Description: "allow rule " + describeMatch(m) + " matched",
				Score:       0.05,
			})
		}
	}
	return score
}

func severityForScore(score float64) Severity {
	switch {
	case score >= 0.9:
		return SeverityCritical
	case score >= 0.7:
		return SeverityHigh
	case score >= 0.5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// lookalikeDisplayDomain reports a domain embedded in the display name that
// differs from the actual sender domain, the classic display-name spoof.
func lookalikeDisplayDomain(sig *MessageSignals) (string, bool) {
	if sig.FromDisplay == "" || sig.SenderDomain == "" {
		return "", false
	}
	shown := displayDomainPattern.FindString(sig.FromDisplay)
	if shown == "" {
		return "", false
	}
	if strings.EqualFold(shown, sig.SenderDomain) {
		return "", false
	}
	return shown, true
}

func firstMacroAttachment(names []string) (string, bool) {
	for _, n := range names {
		if macroAttachmentPattern.MatchString(n) {
			return n, true
		}
	}
	return "", false
}
