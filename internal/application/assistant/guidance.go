package assistant

import (
	"strings"

	domain "github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
)

type topic struct {
	words       []string
	message     string
	level       domain.RiskLevel
	confidence  int
	indicators  []string
	suggestions []string
}

var topics = []topic{
	{
		words: []string{"dating", "romance", "scam"},
		message: "Dating safety: watch for profile photos that look professional or do not match, " +
			"fast declarations of love, constant excuses to avoid video calls, and any request for money, " +
			"gifts or financial details. Verify identity over a video call, reverse-search the photos, " +
			"check their presence on other platforms, and meet in public places.",
		level:       domain.RiskMedium,
		confidence:  85,
		indicators:  []string{"Dating safety inquiry", "Potential scam awareness needed"},
		suggestions: []string{"Upload a profile photo for reverse image analysis", "Share conversation screenshots for analysis", "Learn about our blockchain verification tools"},
	},
	{
		words: []string{"blockchain", "crypto", "verification"},
		message: "Identity verification: a verified principal links a profile to an on-chain identity " +
			"with a trust score. Never send crypto to someone you have not verified, and treat " +
			"investment tips from new matches as a scam signal.",
		level:       domain.RiskLow,
		confidence:  95,
		indicators:  []string{"Blockchain verification inquiry", "Educational request"},
		suggestions: []string{"Start a new blockchain verification", "Check live network status", "View recent verification history"},
	},
	{
		words: []string{"threat", "malware", "phishing"},
		message: "Threat protection: enable two-factor authentication, verify senders through a second " +
			"channel before clicking links, scan suspicious URLs first, and keep your software updated. " +
			"Report suspicious activity to the platform and the relevant authorities.",
		level:       domain.RiskHigh,
		confidence:  92,
		indicators:  []string{"Threat intelligence inquiry", "Active threat awareness needed"},
		suggestions: []string{"Submit a URL for threat analysis", "Upload a suspicious file for scanning", "Check the latest threat intelligence feeds"},
	},
}

var welcome = topic{
	message: "I can help with dating profile verification, scam and phishing detection, identity " +
		"verification and general online safety. Ask about a suspicious profile, message or link.",
	level:       domain.RiskLow,
	confidence:  100,
	indicators:  []string{"General inquiry", "Information seeking"},
	suggestions: []string{"Ask about dating safety verification", "Learn about blockchain verification", "Explore threat intelligence features", "Get cybersecurity education resources"},
}

// Guidance is the canned answer for message's topic, used when no provider is configured.
func Guidance(message string) Reply {
	lower := strings.ToLower(message)
	t := welcome
	for _, candidate := range topics {
		if containsAny(lower, candidate.words...) {
			t = candidate
			break
		}
	}
	return Reply{
		Message:     t.message,
		Suggestions: append([]string(nil), t.suggestions...),
		Analysis: &Screening{
			ThreatLevel: t.level,
			Confidence:  t.confidence,
			Indicators:  append([]string(nil), t.indicators...),
		},
	}
}
