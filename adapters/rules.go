package adapters

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/FrenchMajesty/adaptive-classifier/pkg/types"
)

// UnclassifiedLabel is returned when no rule (or cached vector) matches.
// Its zero confidence guarantees escalation to the next tier.
const UnclassifiedLabel = "unclassified"

// Rule maps trigger phrases or patterns to a label with a fixed confidence.
type Rule struct {
	// Label assigned when the rule matches.
	Label string

	// Confidence reported for a match, in [0,1].
	Confidence float64

	// Triggers are case-insensitive substrings. Any one of them matching
	// fires the rule.
	Triggers []string

	// Pattern is an optional regular expression tried alongside Triggers.
	Pattern string
}

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

// RuleClassifier is the deterministic tier: a fixed rule table checked in
// declaration order, first match wins. No I/O, so it is the cheapest tier
// in every configuration.
type RuleClassifier struct {
	rules []compiledRule
}

// NewRuleClassifier compiles the rule table.
func NewRuleClassifier(rules []Rule) (*RuleClassifier, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		if r.Label == "" {
			return nil, fmt.Errorf("rule %d has no label", i)
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			return nil, fmt.Errorf("rule %q confidence %v outside [0,1]", r.Label, r.Confidence)
		}
		compiled[i] = compiledRule{rule: r}
		if r.Pattern != "" {
			re, err := regexp.Compile("(?i)" + r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %q has invalid pattern: %w", r.Label, err)
			}
			compiled[i].re = re
		}
	}
	return &RuleClassifier{rules: compiled}, nil
}

// Classify matches text against the rule table. A miss is not an error: it
// returns UnclassifiedLabel with zero confidence so the router escalates.
func (c *RuleClassifier) Classify(ctx context.Context, text string) (*types.TierResult, error) {
	start := time.Now()
	lowered := strings.ToLower(text)

	for _, cr := range c.rules {
		if cr.matches(lowered, text) {
			return &types.TierResult{
				Label:      cr.rule.Label,
				Confidence: cr.rule.Confidence,
				Latency:    time.Since(start),
			}, nil
		}
	}

	return &types.TierResult{
		Label:      UnclassifiedLabel,
		Confidence: 0,
		Latency:    time.Since(start),
	}, nil
}

func (cr compiledRule) matches(lowered, original string) bool {
	for _, trigger := range cr.rule.Triggers {
		if strings.Contains(lowered, strings.ToLower(trigger)) {
			return true
		}
	}
	return cr.re != nil && cr.re.MatchString(original)
}

// DefaultRules returns the stock rule table for the deterministic tier.
func DefaultRules() []Rule {
	return []Rule{
		{
			Label:      "math_question",
			Confidence: 0.90,
			Pattern:    `what\s+is\s+\d+\s*[-+*/x]\s*\d+`,
		},
		{
			Label:      "greeting",
			Confidence: 0.88,
			Triggers:   []string{"hello", "good morning", "good evening"},
			Pattern:    `^\s*hi\b`,
		},
		{
			Label:      "expressing_gratitude",
			Confidence: 0.92,
			Triggers:   []string{"thank you", "thanks a lot", "much appreciated"},
		},
		{
			Label:      "account_issue",
			Confidence: 0.80,
			Triggers:   []string{"reset my password", "can't log in", "locked out"},
		},
	}
}
