// Package guardrail screens prompts against regex rules derived from
// observed attack corpora, and evaluates rule sets against labeled
// threat prompts.
package guardrail

import (
	"fmt"
	"regexp"

	"github.com/modelrelay/modelrelay/internal/domain"
)

// Severity levels, ordered. They follow the scanner's labels.
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// Rule is a single guardrail pattern.
type Rule struct {
	// Name identifies the rule in verdicts and reports.
	Name string `json:"name" koanf:"name"`
	// Category is the attack category the rule targets, e.g.
	// "Jailbreak Attempts" or "Prompt Injection".
	Category string `json:"category" koanf:"category"`
	// Severity is the severity assigned to matches.
	Severity string `json:"severity" koanf:"severity"`
	// Pattern is the regular expression; it is compiled
	// case-insensitively.
	Pattern string `json:"pattern" koanf:"pattern"`
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// Verdict is the result of screening one prompt.
type Verdict struct {
	Blocked  bool   `json:"blocked"`
	Rule     string `json:"rule,omitempty"`
	Category string `json:"category,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// Screener matches prompts against a compiled rule set. It is safe for
// concurrent use after construction.
type Screener struct {
	rules []compiledRule
}

// NewScreener compiles the rules. Patterns are case-insensitive.
func NewScreener(rules []Rule) (*Screener, error) {
	s := &Screener{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", r.Name, err)
		}
		s.rules = append(s.rules, compiledRule{Rule: r, re: re})
	}
	return s, nil
}

// Screen checks a prompt against all rules. The first matching rule in
// declaration order wins.
func (s *Screener) Screen(prompt string) Verdict {
	for _, r := range s.rules {
		if r.re.MatchString(prompt) {
			return Verdict{
				Blocked:  true,
				Rule:     r.Name,
				Category: r.Category,
				Severity: r.Severity,
			}
		}
	}
	return Verdict{}
}

// Check returns a blocked error when the prompt matches a rule, for use
// on the serving path.
func (s *Screener) Check(prompt string) error {
	if v := s.Screen(prompt); v.Blocked {
		return domain.ErrBlocked(fmt.Sprintf("prompt blocked by rule %q (%s)", v.Rule, v.Category))
	}
	return nil
}

// DefaultRules covers the attack categories most common in scan
// results: jailbreak scenarios, injection markers, and exfiltration of
// system prompts.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "ignore-previous-instructions",
			Category: "Prompt Injection",
			Severity: SeverityCritical,
			Pattern:  `ignore\s+(all\s+)?(your\s+|the\s+)?previous\s+instructions`,
		},
		{
			Name:     "developer-mode",
			Category: "Jailbreak Attempts",
			Severity: SeverityHigh,
			Pattern:  `you('| a)?re\s+in\s+developer\s+mode|enable\s+developer\s+mode`,
		},
		{
			Name:     "roleplay-unfiltered",
			Category: "Jailbreak Attempts",
			Severity: SeverityHigh,
			Pattern:  `roleplay\s+as\s+an?\s+ai\s+without\s+(content\s+)?filters`,
		},
		{
			Name:     "fictional-no-restrictions",
			Category: "Jailbreak Attempts",
			Severity: SeverityMedium,
			Pattern:  `fictional\s+world\s+where\s+(ai\s+)?restrictions\s+don'?t\s+apply`,
		},
		{
			Name:     "system-prompt-exfiltration",
			Category: "Prompt Injection",
			Severity: SeverityHigh,
			Pattern:  `(repeat|print|reveal|show)\s+(me\s+)?(your\s+)?(system\s+prompt|initial\s+instructions)`,
		},
	}
}
