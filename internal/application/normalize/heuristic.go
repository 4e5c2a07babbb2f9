package normalize

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
)

// DefaultSuspiciousTerms are the romance-scam keywords counted by Keywords.
var DefaultSuspiciousTerms = []string{"money", "wire", "transfer", "emergency", "sick", "accident", "travel", "military"}

// DefaultPenalty is subtracted from the score for every matched keyword.
const DefaultPenalty = 20

// CautionRecommendations are returned whenever a heuristic had to stand in for a provider.
var CautionRecommendations = []string{"Proceed with caution", "Verify identity through video call"}

// ConversationRecommendations are returned by the keyword heuristic.
var ConversationRecommendations = []string{"Verify identity", "Never send money", "Video call verification"}

// RiskWords scores prose by the strongest risk word it mentions.
func RiskWords(raw string) analysis.Report {
	lvl := RiskFromProse(raw)
	return analysis.NewReport(lvl.Score(), []string{"Analysis completed with AI"}, CautionRecommendations)
}

// RiskFromProse maps "high"/"medium" mentions to a category, defaulting to low.
func RiskFromProse(raw string) analysis.RiskLevel {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "high"):
		return analysis.RiskHigh
	case strings.Contains(lower, "medium"):
		return analysis.RiskMedium
	default:
		return analysis.RiskLow
	}
}

// Keywords is a keyword-count heuristic. The zero value uses the default terms and penalty.
type Keywords struct {
	Terms   []string
	Penalty int
}

// Matches returns the configured terms found in text, in configuration order.
func (k Keywords) Matches(text string) []string {
	terms := k.Terms
	if len(terms) == 0 {
		terms = DefaultSuspiciousTerms
	}
	lower := strings.ToLower(text)
	found := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && strings.Contains(lower, t) {
			found = append(found, t)
		}
	}
	return found
}

// Likelihood is the scam likelihood implied by the matches, clamped to 100.
func (k Keywords) Likelihood(text string) int {
	p := k.Penalty
	if p <= 0 {
		p = DefaultPenalty
	}
	return analysis.ClampScore(len(k.Matches(text)) * p)
}

// Score is 100 minus the likelihood, so zero matches score 100.
func (k Keywords) Score(text string) int {
	return 100 - k.Likelihood(text)
}

// Heuristic returns a Heuristic that always scores text, ignoring the provider output.
// Conversations are scored on the transcript, not on what the model said about it.
func (k Keywords) Heuristic(text string) Heuristic {
	return func(string) analysis.Report {
		return k.Report(text)
	}
}

// Report scores text directly.
func (k Keywords) Report(text string) analysis.Report {
	matches := k.Matches(text)
	flags := make([]string, 0, len(matches))
	for _, m := range matches {
		flags = append(flags, fmt.Sprintf("Mentions: %s", m))
	}
	return analysis.NewReport(k.Score(text), flags, ConversationRecommendations)
}

// RiskForCount buckets a keyword count the way the conversation view expects.
func RiskForCount(n int) analysis.RiskLevel {
	switch {
	case n > 2:
		return analysis.RiskHigh
	case n > 0:
		return analysis.RiskMedium
	default:
		return analysis.RiskLow
	}
}
