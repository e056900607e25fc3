package guardrail

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// maxSampleSize bounds the prompt samples included in the report.
const maxSampleSize = 10

// WriteReport renders the markdown effectiveness report: summary
// percentages, per-category breakdown, a sample of blocked prompts, and
// a sample of high-severity prompts that slipped through.
func WriteReport(w io.Writer, results *Results) error {
	var b strings.Builder

	b.WriteString("# Guardrail Effectiveness Report\n\n")

	total := results.Total()
	blockRate := results.BlockRate()
	allowRate := 0.0
	if total > 0 {
		allowRate = float64(len(results.Allowed)) / float64(total) * 100
	}

	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- **Total Prompts Tested**: %d\n", total)
	fmt.Fprintf(&b, "- **Blocked Prompts**: %d (%.2f%%)\n", len(results.Blocked), blockRate)
	fmt.Fprintf(&b, "- **Allowed Prompts**: %d (%.2f%%)\n\n", len(results.Allowed), allowRate)

	if len(results.ByCat) > 0 {
		b.WriteString("## Category Breakdown\n")
		categories := make([]string, 0, len(results.ByCat))
		for cat := range results.ByCat {
			categories = append(categories, cat)
		}
		sort.Strings(categories)

		for _, cat := range categories {
			stats := results.ByCat[cat]
			catTotal := stats.Blocked + stats.Allowed
			catRate := 0.0
			if catTotal > 0 {
				catRate = float64(stats.Blocked) / float64(catTotal) * 100
			}
			fmt.Fprintf(&b, "### %s\n", cat)
			fmt.Fprintf(&b, "- Total: %d\n", catTotal)
			fmt.Fprintf(&b, "- Blocked: %d (%.2f%%)\n", stats.Blocked, catRate)
			fmt.Fprintf(&b, "- Allowed: %d (%.2f%%)\n\n", stats.Allowed, 100-catRate)
		}
	}

	b.WriteString("## Sample Blocked Prompts\n")
	for i, p := range sample(results.Blocked) {
		fmt.Fprintf(&b, "%d. **%s (%s)**: `%s`\n", i+1, p.Category, p.Severity, truncate(p.Prompt, 100))
		fmt.Fprintf(&b, "   *Rule:* `%s`\n\n", p.Rule)
	}

	b.WriteString("## Sample High-Severity Allowed Prompts\n")
	highAllowed := make([]PromptOutcome, 0)
	for _, p := range results.Allowed {
		if p.Severity == SeverityHigh || p.Severity == SeverityCritical {
			highAllowed = append(highAllowed, p)
		}
	}
	for i, p := range sample(highAllowed) {
		fmt.Fprintf(&b, "%d. **%s (%s)**: `%s`\n\n", i+1, p.Category, p.Severity, truncate(p.Prompt, 100))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func sample(outcomes []PromptOutcome) []PromptOutcome {
	if len(outcomes) > maxSampleSize {
		return outcomes[:maxSampleSize]
	}
	return outcomes
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
