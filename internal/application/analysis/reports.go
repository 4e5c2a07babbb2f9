package analysis

import (
	domain "github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
)

// ConversationReport extends the UI report with the conversation-specific fields.
// Flags carries the red flags.
type ConversationReport struct {
	domain.Report
	ScamLikelihood      int              `json:"scamLikelihood"`
	ManipulationTactics []string         `json:"manipulationTactics"`
	ConversationRisk    domain.RiskLevel `json:"conversationRisk"`
}

// ImageReport is the image view. Flags mirrors Details.
type ImageReport struct {
	domain.Report
	IsAuthentic          bool             `json:"isAuthentic"`
	FaceDetected         bool             `json:"faceDetected"`
	MultiplePersons      bool             `json:"multiplePersons"`
	ManipulationDetected bool             `json:"manipulationDetected"`
	RiskLevel            domain.RiskLevel `json:"riskLevel"`
	Details              []string         `json:"details"`
	EvidenceURL          string           `json:"evidenceUrl,omitempty"`
}

// IdentityReport is the verification view. Flags carries the risk factors.
type IdentityReport struct {
	domain.Report
	IdentityVerified bool             `json:"identityVerified"`
	RiskLevel        domain.RiskLevel `json:"riskLevel"`
	TrustScore       int              `json:"trustScore"`
	IdentityAge      string           `json:"identityAge,omitempty"`
	VerifiedBy       string           `json:"verifiedBy"`
}

// SafetyTips is the static dating-safety guidance shown next to every analysis.
func SafetyTips() []string {
	return []string{
		"Verify identity through video calls",
		"Never send money or financial information",
		"Meet in public places for first dates",
		"Tell friends about your plans",
		"Use reverse image search on photos",
		"Trust your instincts if something feels wrong",
		"Keep personal information private initially",
		"Use this platform's AI verification tools",
	}
}
