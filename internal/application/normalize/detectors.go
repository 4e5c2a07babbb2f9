package normalize

import (
	"regexp"
	"strings"
)

// Indicator is one scam pattern found in a conversation.
type Indicator struct {
	Title    string `json:"title"`
	Severity string `json:"severity"`
	Sample   string `json:"sample"`
}

type detector struct {
	re       *regexp.Regexp
	title    string
	severity string
}

var detectors = []detector{
	// Crypto payment rails
	{regexp.MustCompile(`\bbc1[a-z0-9]{25,59}\b`), "Bitcoin address shared", "high"},
	{regexp.MustCompile(`\b[13][a-km-zA-HJ-NP-Z1-9]{25,34}\b`), "Bitcoin address shared", "high"},
	{regexp.MustCompile(`\b0x[a-fA-F0-9]{40}\b`), "Ethereum address shared", "high"},
	{regexp.MustCompile(`(?i)\b(usdt|tether|crypto(currency)?|bitcoin|btc)\b.{0,40}\b(send|invest|deposit|transfer)`), "Crypto investment pitch", "high"},
	// Gift cards and wire services
	{regexp.MustCompile(`(?i)\b(gift ?cards?|itunes card|steam card|google play card)\b`), "Gift card request", "high"},
	{regexp.MustCompile(`(?i)\b(western union|moneygram|wire transfer|bank transfer)\b`), "Wire service mentioned", "high"},
	// Card numbers
	{regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`), "Card-like number shared", "medium"},
	// Moving off platform
	{regexp.MustCompile(`(?i)\b(whatsapp|telegram|signal|hangouts|kik)\b`), "Request to move off-platform", "medium"},
	// Link shorteners hide destinations
	{regexp.MustCompile(`(?i)\b(bit\.ly|tinyurl\.com|t\.co|goo\.gl|is\.gd)/\S+`), "Shortened link", "medium"},
	// Verification dodging
	{regexp.MustCompile(`(?i)(camera (is )?broken|can'?t (video|facetime)|no video call)`), "Avoids video calls", "medium"},
}

// Detect runs every scam-indicator detector over text. Each title is reported once.
func Detect(text string) []Indicator {
	seen := map[string]bool{}
	out := make([]Indicator, 0, 4)
	for _, d := range detectors {
		if seen[d.title] {
			continue
		}
		match := d.re.FindString(text)
		if match == "" {
			continue
		}
		seen[d.title] = true
		out = append(out, Indicator{Title: d.title, Severity: d.severity, Sample: trim(strings.TrimSpace(match), 64)})
	}
	return out
}

// Flags renders indicators as report flags.
func Flags(in []Indicator) []string {
	out := make([]string, 0, len(in))
	for _, i := range in {
		out = append(out, i.Title+" ("+i.Severity+"): "+i.Sample)
	}
	return out
}

func trim(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
