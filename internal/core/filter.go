package core

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// compiledRule pairs a rule with its compiled pattern. order remembers the
// position in the input slice so that equal priorities keep creation order.
type compiledRule struct {
	rule  ContentFilterRule
	re    *regexp.Regexp
	order int
}

// RuleSet is an immutable, pre-compiled set of enabled content filter
// rules. A rule set compiles once when configuration changes and is then
// shared read-only across any number of concurrent evaluations.
type RuleSet struct {
	rules    []compiledRule
	warnings []RuleWarning
}

// CompileRules filters the given rules down to the enabled ones and
// compiles each pattern as a case-insensitive regular expression. A rule
// whose pattern does not compile is skipped and reported as a warning; it
// never aborts compilation of the remaining rules.
func CompileRules(rules []ContentFilterRule) *RuleSet {
	rs := &RuleSet{}
	for i, r := range rules {
		if !r.Enabled {
			continue
		}
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			rs.warnings = append(rs.warnings, RuleWarning{
				RuleID:   r.ID,
				RuleName: r.Name,
				Message:  fmt.Sprintf("invalid pattern %q: %v", r.Pattern, err),
			})
			continue
		}
		rs.rules = append(rs.rules, compiledRule{rule: r, re: re, order: i})
	}
	return rs
}

// Warnings returns the rules that were skipped during compilation.
func (rs *RuleSet) Warnings() []RuleWarning {
	return rs.warnings
}

// Len reports how many rules compiled successfully.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// Evaluate tests every compiled rule against the signal fields its type
// selects and returns all matches sorted by ascending priority, creation
// order breaking ties. A message may match any number of rules; an empty
// rule set yields no matches.
func (rs *RuleSet) Evaluate(sig *MessageSignals) []FilterMatch {
	var matches []FilterMatch
	for _, cr := range rs.rules {
		if ruleMatches(cr.re, cr.rule.Type, sig) {
			matches = append(matches, FilterMatch{
				RuleID:   cr.rule.ID,
				RuleName: cr.rule.Name,
				Action:   cr.rule.Action,
				Priority: cr.rule.Priority,
			})
		}
	}
	// Input rules arrive in creation order, so a stable sort on priority
	// alone preserves the documented tie break.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Priority < matches[j].Priority
	})
	return matches
}

// ruleMatches runs the pattern as a substring search over the fields the
// rule type selects.
func ruleMatches(re *regexp.Regexp, typ RuleType, sig *MessageSignals) bool {
	switch typ {
	case RuleTypeKeyword, RuleTypeHeader:
		return re.MatchString(sig.Subject) || re.MatchString(sig.BodyText)
	case RuleTypeDomain, RuleTypeURL:
		if sig.SenderDomain != "" && re.MatchString(sig.SenderDomain) {
			return true
		}
		for _, u := range sig.URLs {
			if re.MatchString(u) {
				return true
			}
		}
		return false
	case RuleTypeAttachment:
		for _, name := range sig.AttachmentNames {
			if re.MatchString(name) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// firstMatchWithAction returns the highest-precedence match carrying the
// given action, or nil. Matches must already be sorted.
func firstMatchWithAction(matches []FilterMatch, action RuleAction) *FilterMatch {
	for i := range matches {
		if matches[i].Action == action {
			return &matches[i]
		}
	}
	return nil
}

// describeMatch renders a match for reasons and factor descriptions.
func describeMatch(m *FilterMatch) string {
	name := strings.TrimSpace(m.RuleName)
	if name == "" {
		name = m.RuleID
	}
	return fmt.Sprintf("%q (rule %s)", name, m.RuleID)
}
