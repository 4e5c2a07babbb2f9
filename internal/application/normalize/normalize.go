// Package normalize turns free-form provider output into analysis reports.
//
// Provider output is parsed in two stages: the first balanced JSON object embedded in
// the text is decoded when it carries the expected fields, otherwise a heuristic scores
// the raw text. Either way the caller gets a report that satisfies the report invariants.
package normalize

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
)

// Assessment is the union of fields the analysis prompts ask providers to return.
type Assessment struct {
	OverallRisk          string             `json:"overallRisk"`
	RiskLevel            string             `json:"riskLevel"`
	ConversationRisk     string             `json:"conversationRisk"`
	CanisterRisk         string             `json:"risk_level"`
	ScamLikelihood       *float64           `json:"scamLikelihood"`
	RiskFactors          []string           `json:"riskFactors"`
	RedFlags             []string           `json:"redFlags"`
	ManipulationTactics  []string           `json:"manipulationTactics"`
	Details              []string           `json:"details"`
	Recommendations      []string           `json:"recommendations"`
	VerificationStatus   string             `json:"verificationStatus"`
	IsAuthentic          *bool              `json:"isAuthentic"`
	FaceDetected         *bool              `json:"faceDetected"`
	MultiplePersons      *bool              `json:"multiplePersons"`
	ManipulationDetected *bool              `json:"manipulationDetected"`
	DetailedAnalysis     map[string]float64 `json:"detailedAnalysis"`
}

// Risk returns the first categorical risk field the provider filled in.
func (a Assessment) Risk() (analysis.RiskLevel, bool) {
	for _, s := range []string{a.OverallRisk, a.RiskLevel, a.ConversationRisk, a.CanisterRisk} {
		if lvl, ok := analysis.ParseRiskLevel(s); ok {
			return lvl, true
		}
	}
	return "", false
}

// HasExpectedFields reports whether the assessment can be scored without heuristics.
func (a Assessment) HasExpectedFields() bool {
	if _, ok := a.Risk(); ok {
		return true
	}
	return a.HasLikelihood()
}

// HasLikelihood reports whether scamLikelihood is present and finite.
func (a Assessment) HasLikelihood() bool {
	if a.ScamLikelihood == nil {
		return false
	}
	v := *a.ScamLikelihood
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Likelihood returns scamLikelihood clamped into [0,100].
func (a Assessment) Likelihood() int {
	if !a.HasLikelihood() {
		return 0
	}
	// clamp before converting: out-of-range float to int is undefined
	return int(math.Max(0, math.Min(100, math.Round(*a.ScamLikelihood))))
}

// Score derives the report score: categorical risk wins over likelihood.
func (a Assessment) Score() int {
	if lvl, ok := a.Risk(); ok {
		return lvl.Score()
	}
	return 100 - a.Likelihood()
}

// Report builds the UI report from the structured fields.
func (a Assessment) Report() analysis.Report {
	flags := make([]string, 0, len(a.RiskFactors)+len(a.RedFlags))
	flags = append(flags, a.RiskFactors...)
	flags = append(flags, a.RedFlags...)
	return analysis.NewReport(a.Score(), flags, a.Recommendations)
}

// Heuristic scores raw text when no structured payload could be decoded.
type Heuristic func(raw string) analysis.Report

// Decode extracts and parses the embedded JSON object from raw.
// ok is false when no object was found, it did not parse, or it lacks the expected fields.
func Decode(raw string) (Assessment, bool) {
	obj, found := ExtractJSON(raw)
	if !found {
		return Assessment{}, false
	}
	var a Assessment
	if err := json.Unmarshal([]byte(obj), &a); err != nil {
		return Assessment{}, false
	}
	return a, a.HasExpectedFields()
}

// Normalize returns a report from raw, using fallback when the structured path fails.
// A nil fallback means RiskWords.
func Normalize(raw string, fallback Heuristic) (analysis.Report, bool) {
	if a, ok := Decode(raw); ok {
		return a.Report(), true
	}
	if fallback == nil {
		fallback = RiskWords
	}
	r := fallback(raw)
	// re-clamp whatever the heuristic produced
	return analysis.NewReport(r.Score, r.Flags, r.Recommendations), false
}

// ExtractJSON returns the first balanced {...} substring of text. Braces inside JSON
// strings are ignored so prose like `"a {b"` does not unbalance the scan.
func ExtractJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
