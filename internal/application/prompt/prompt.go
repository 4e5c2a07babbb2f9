// Package prompt builds the provider prompts. Every analysis prompt asks for one JSON
// object whose fields normalize.Assessment understands; the assistant prompt is free text.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
)

// ConversationSeparator joins chat messages into one transcript.
const ConversationSeparator = "\n\n---\n\n"

const notProvided = "Not provided"

// Profile asks for a red-flag review of a dating profile.
func Profile(p analysis.Profile) string {
	age := notProvided
	if p.Age > 0 {
		age = strconv.Itoa(p.Age)
	}
	return fmt.Sprintf(`Analyze this dating profile for potential red flags and scam indicators:
Name: %s
Age: %s
Bio: %s
Location: %s
Occupation: %s
Photos: %d photos provided

Provide a JSON response with:
- overallRisk: "low", "medium", or "high"
- riskFactors: array of specific concerns
- recommendations: array of safety advice
- verificationStatus: "verified", "suspicious", or "high-risk"
- detailedAnalysis: object with scores 0-100 for profileCompleteness, photoAuthenticity, behaviorPatterns, webPresence`,
		orNotProvided(p.Name), age, orNotProvided(p.Bio), orNotProvided(p.Location),
		orNotProvided(p.Occupation), len(p.Photos))
}

// Transcript joins messages in order, skipping blank ones.
func Transcript(messages []string) string {
	kept := make([]string, 0, len(messages))
	for _, m := range messages {
		if strings.TrimSpace(m) != "" {
			kept = append(kept, m)
		}
	}
	return strings.Join(kept, ConversationSeparator)
}

// Conversation asks for romance-scam indicators in a transcript.
func Conversation(transcript string) string {
	return fmt.Sprintf(`Analyze this dating conversation for romance scam indicators and manipulation tactics:

CONVERSATION:
%s

Provide a JSON response with:
- scamLikelihood: number 0-100
- redFlags: array of specific warning signs found
- manipulationTactics: array of manipulation techniques detected
- recommendations: array of safety advice
- conversationRisk: "low", "medium", or "high"

Look for: love bombing, urgency tactics, financial requests, avoiding video calls, inconsistent stories, grammar patterns, emotional manipulation`, transcript)
}

// Image accompanies the picture sent to vision models.
func Image() string {
	return `Analyze this image for dating safety. Check for: face detection, authenticity, manipulation signs, and provide a risk assessment. ` +
		`Return JSON with: isAuthentic (boolean), faceDetected (boolean), multiplePersons (boolean), manipulationDetected (boolean), ` +
		`riskLevel ("low"/"medium"/"high"), details (array of findings).`
}

// AssistantSystem is the system instruction for the safety assistant chat.
const AssistantSystem = `You are OSINT Cafe's assistant, specializing in online safety, dating-scam detection, ` +
	`digital identity verification, crypto security and OSINT techniques. Give clear, actionable advice, ` +
	`state a threat level when one applies, and suggest practical next steps. Keep answers concise.`

// Turn is one earlier line of an assistant chat.
type Turn struct {
	Role    string
	Content string
}

// Assistant renders earlier turns and the new question as one transcript.
func Assistant(history []Turn, message string) string {
	var b strings.Builder
	for _, t := range history {
		role := "User"
		if t.Role == "assistant" {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n\n", role, strings.TrimSpace(t.Content))
	}
	fmt.Fprintf(&b, "User: %s", strings.TrimSpace(message))
	return b.String()
}

func orNotProvided(s string) string {
	if strings.TrimSpace(s) == "" {
		return notProvided
	}
	return s
}
