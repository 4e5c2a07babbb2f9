// Package assistant answers free-form safety questions through the assistant chain.
// The server keeps no chat state: callers send the recent history with each question.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/osint-cafe/internal/application/audit"
	"github.com/bryanwahyu/osint-cafe/internal/application/chain"
	"github.com/bryanwahyu/osint-cafe/internal/application/prompt"
	domain "github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
	auditdomain "github.com/bryanwahyu/osint-cafe/internal/domain/audit"
)

const (
	// HistoryWindow is how many earlier turns are forwarded to the provider.
	HistoryWindow = 10
	// MaxMessageRunes bounds one question.
	MaxMessageRunes = 4000
)

// Apology is the answer when every configured provider failed.
const Apology = "I apologize, but I'm experiencing technical difficulties. " +
	"Please try again or contact support if the issue persists."

// FailureSuggestions accompany Apology.
var FailureSuggestions = []string{"Try rephrasing your question", "Check our FAQ section", "Contact support"}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Screening is a keyword read of the user's own question.
type Screening struct {
	ThreatLevel domain.RiskLevel `json:"threatLevel"`
	Confidence  int              `json:"confidence"`
	Indicators  []string         `json:"indicators"`
}

type Reply struct {
	Message     string     `json:"message"`
	Suggestions []string   `json:"suggestions"`
	Analysis    *Screening `json:"analysis,omitempty"`
}

type Service struct {
	Chain  *chain.Chain
	Audit  *audit.Recorder
	Logger *zap.Logger
}

func NewService(c *chain.Chain, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = chain.New(domain.CapAssistant, nil)
	}
	return &Service{Chain: c, Logger: logger}
}

// Ask sends message with the tail of history to the assistant chain. The reply is
// always usable: with no provider configured it is canned topic guidance, and with
// providers failing it is an apology with next steps.
func (s *Service) Ask(ctx context.Context, history []Message, message string) domain.Outcome[Reply] {
	start := time.Now()
	message = strings.TrimSpace(message)
	screening := Screen(message)

	if message == "" {
		out := domain.Outcome[Reply]{
			Report:   Guidance(""),
			Degraded: &domain.Degraded{Reason: domain.Rejected, Detail: "empty message"},
		}
		s.finish(ctx, out, screening, start, nil)
		return out
	}

	exec := s.Chain.Execute(ctx, domain.Request{
		Capability: domain.CapAssistant,
		System:     prompt.AssistantSystem,
		Text:       prompt.Assistant(window(history), message),
	})
	out := domain.Outcome[Reply]{Provider: exec.Result.Provider}
	switch {
	case exec.Result.OK:
		out.Report = Reply{
			Message:     strings.TrimSpace(exec.Result.Raw),
			Suggestions: Suggest(message),
			Analysis:    &screening,
		}
	case exec.Result.Reason == domain.Unconfigured:
		out.Report = Guidance(message)
		out.Degraded = &domain.Degraded{Reason: exec.Result.Reason, Detail: exec.Result.Detail}
	default:
		out.Report = Reply{Message: Apology, Suggestions: append([]string(nil), FailureSuggestions...)}
		out.Degraded = &domain.Degraded{Reason: exec.Result.Reason, Detail: exec.Result.Detail}
	}
	s.finish(ctx, out, screening, start, exec.Attempts)
	return out
}

func (s *Service) finish(ctx context.Context, out domain.Outcome[Reply], screening Screening, start time.Time, attempts []domain.Result) {
	elapsed := time.Since(start)
	if out.Degraded != nil {
		s.Logger.Warn("assistant degraded",
			zap.String("reason", string(out.Degraded.Reason)),
			zap.String("detail", out.Degraded.Detail),
			zap.Duration("duration", elapsed))
	} else {
		s.Logger.Info("assistant answered",
			zap.String("provider", out.Provider),
			zap.Duration("duration", elapsed))
	}
	s.Audit.Record(ctx, s.Audit.NewID(), audit.Entry{
		Feature:    auditdomain.FeatureAssistant,
		Capability: domain.CapAssistant,
		Score:      screening.ThreatLevel.Score(),
		Degraded:   out.Degraded,
		Provider:   out.Provider,
		Duration:   elapsed,
		Attempts:   attempts,
	})
}

func window(history []Message) []prompt.Turn {
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}
	turns := make([]prompt.Turn, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		turns = append(turns, prompt.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}

var threatKeywords = []string{"scam", "fraud", "suspicious", "help", "emergency", "hack", "steal", "money"}

// Screen flags threat keywords in the question: three or more is high, two medium.
func Screen(message string) Screening {
	lower := strings.ToLower(message)
	indicators := []string{}
	for _, k := range threatKeywords {
		if strings.Contains(lower, k) {
			indicators = append(indicators, fmt.Sprintf("Keyword detected: %s", k))
		}
	}
	s := Screening{ThreatLevel: domain.RiskLow, Confidence: 70, Indicators: indicators}
	switch {
	case len(indicators) >= 3:
		s.ThreatLevel, s.Confidence = domain.RiskHigh, 90
	case len(indicators) == 2:
		s.ThreatLevel, s.Confidence = domain.RiskMedium, 80
	}
	return s
}

// Suggest proposes up to three follow-up actions for the question's topic.
func Suggest(message string) []string {
	lower := strings.ToLower(message)
	var out []string
	if containsAny(lower, "dating", "profile") {
		out = append(out, "Upload profile image for reverse search", "Run dating safety verification")
	}
	if containsAny(lower, "email", "phone") {
		out = append(out, "Verify contact information", "Check social media presence")
	}
	if containsAny(lower, "url", "link") {
		out = append(out, "Analyze URL for threats", "Check domain reputation")
	}
	if len(out) == 0 {
		out = []string{"Ask about specific security concerns", "Explore our verification tools", "Learn about threat prevention"}
	}
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
