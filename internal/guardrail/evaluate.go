package guardrail

import (
	"context"
	"log/slog"
)

// ThreatPrompt is one labeled prompt from a scan result corpus.
type ThreatPrompt struct {
	Prompt   string `json:"prompt"`
	Category string `json:"category"`
	Severity string `json:"severity"`
}

// PromptOutcome records how a single prompt fared during evaluation.
type PromptOutcome struct {
	ThreatPrompt
	Rule string `json:"rule,omitempty"`
}

// CategoryStats tallies blocked and allowed prompts for one category.
type CategoryStats struct {
	Blocked int `json:"blocked"`
	Allowed int `json:"allowed"`
}

// Results holds the full outcome of an evaluation run.
type Results struct {
	Blocked []PromptOutcome          `json:"blocked_prompts"`
	Allowed []PromptOutcome          `json:"allowed_prompts"`
	ByCat   map[string]CategoryStats `json:"category_stats"`
}

// Total returns the number of prompts tested.
func (r *Results) Total() int {
	return len(r.Blocked) + len(r.Allowed)
}

// BlockRate returns the percentage of tested prompts that were blocked.
func (r *Results) BlockRate() float64 {
	total := r.Total()
	if total == 0 {
		return 0
	}
	return float64(len(r.Blocked)) / float64(total) * 100
}

// Evaluate screens every threat prompt and buckets the outcomes. The
// context lets long corpus runs be cancelled between prompts.
func Evaluate(ctx context.Context, screener *Screener, prompts []ThreatPrompt, logger *slog.Logger) (*Results, error) {
	results := &Results{ByCat: make(map[string]CategoryStats)}

	for i, tp := range prompts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		v := screener.Screen(tp.Prompt)
		stats := results.ByCat[tp.Category]
		if v.Blocked {
			results.Blocked = append(results.Blocked, PromptOutcome{ThreatPrompt: tp, Rule: v.Rule})
			stats.Blocked++
		} else {
			results.Allowed = append(results.Allowed, PromptOutcome{ThreatPrompt: tp})
			stats.Allowed++
		}
		results.ByCat[tp.Category] = stats

		if (i+1)%100 == 0 {
			logger.Info("evaluation progress",
				slog.Int("tested", i+1),
				slog.Int("total", len(prompts)),
			)
		}
	}

	logger.Info("evaluation complete",
		slog.Int("total", results.Total()),
		slog.Int("blocked", len(results.Blocked)),
		slog.Int("allowed", len(results.Allowed)),
	)
	return results, nil
}
