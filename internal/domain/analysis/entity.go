package analysis

import "strings"

// Capability names a logical analysis operation independent of who implements it.
type Capability string

const (
	CapTextRisk       Capability = "text-risk"
	CapImageRisk      Capability = "image-risk"
	CapIdentityVerify Capability = "identity-verify"
	CapWebIntel       Capability = "web-intel"
	CapURLReputation  Capability = "url-reputation"
	CapIPReputation   Capability = "ip-reputation"
	CapAssistant      Capability = "assistant"
)

// Capabilities lists every capability a chain can be registered for.
func Capabilities() []Capability {
	return []Capability{CapTextRisk, CapImageRisk, CapIdentityVerify, CapWebIntel, CapURLReputation, CapIPReputation, CapAssistant}
}

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool {
	for _, k := range Capabilities() {
		if k == c {
			return true
		}
	}
	return false
}

// Request is built once per user action and treated as read-only afterwards.
type Request struct {
	Capability Capability
	// System replaces the provider's default system instruction when set.
	System     string
	Text       string
	Image      []byte
	ImageMIME  string
	Token      string
	Context    map[string]string
}

// Result is the outcome of one provider call. Raw is only ever set when OK is true.
type Result struct {
	OK       bool      `json:"ok"`
	Provider string    `json:"provider"`
	Raw      string    `json:"raw,omitempty"`
	Reason   ErrorKind `json:"reason,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}

// Success builds an OK result carrying the provider payload.
func Success(provider, raw string) Result {
	return Result{OK: true, Provider: provider, Raw: raw}
}

// Failure builds a failed result. It never carries a payload.
func Failure(provider string, reason ErrorKind, detail string) Result {
	return Result{Provider: provider, Reason: reason, Detail: detail}
}

// Report is the UI-facing result shape. Build it with NewReport.
type Report struct {
	Score           int      `json:"score"`
	Flags           []string `json:"flags"`
	Recommendations []string `json:"recommendations"`
}

// NewReport clamps score into [0,100] and replaces nil slices with empty ones.
func NewReport(score int, flags, recommendations []string) Report {
	return Report{
		Score:           ClampScore(score),
		Flags:           nonNil(flags),
		Recommendations: nonNil(recommendations),
	}
}

// ClampScore bounds s into [0,100].
func ClampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// Degraded explains why a report was produced without a successful provider call.
type Degraded struct {
	Reason ErrorKind `json:"reason"`
	Detail string    `json:"detail"`
}

// Outcome pairs a report with an optional degradation marker so callers can tell a
// genuine result from a fallback default.
type Outcome[T any] struct {
	Report   T
	Degraded *Degraded
	Provider string
}

// IsDegraded reports whether the report came from a fallback path.
func (o Outcome[T]) IsDegraded() bool { return o.Degraded != nil }

// RiskLevel is the categorical risk used by most providers.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ParseRiskLevel accepts low/medium/high in any case.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskLow, true
	case "medium":
		return RiskMedium, true
	case "high":
		return RiskHigh, true
	}
	return "", false
}

// Score maps the category onto the fixed UI band (85/60/25).
func (l RiskLevel) Score() int {
	switch l {
	case RiskLow:
		return 85
	case RiskMedium:
		return 60
	default:
		return 25
	}
}
