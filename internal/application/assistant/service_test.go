package assistant

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bryanwahyu/osint-cafe/internal/application/chain"
	domain "github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stub struct {
	name  string
	res   domain.Result
	calls int
	last  domain.Request
}

func (s *stub) Name() string { return s.name }

func (s *stub) Call(_ context.Context, req domain.Request) domain.Result {
	s.calls++
	s.last = req
	return s.res
}

func chainOf(ps ...*stub) *chain.Chain {
	providers := make([]domain.Provider, 0, len(ps))
	for _, p := range ps {
		providers = append(providers, p)
	}
	return chain.New(domain.CapAssistant, providers)
}

func TestAsk_FallsBackToSecondProvider(t *testing.T) {
	openai := &stub{name: "openai", res: domain.Failure("openai", domain.Unreachable, "timeout")}
	gemini := &stub{name: "gemini", res: domain.Success("gemini", "  Never send money to a match.  ")}
	svc := NewService(chainOf(openai, gemini), nil)

	out := svc.Ask(context.Background(), []Message{{Role: "user", Content: "hi"}}, "Is this dating profile a scam? they want money")

	assert.False(t, out.IsDegraded())
	assert.Equal(t, "gemini", out.Provider)
	assert.Equal(t, "Never send money to a match.", out.Report.Message)
	assert.Equal(t, []string{"Upload profile image for reverse search", "Run dating safety verification"}, out.Report.Suggestions)
	require.NotNil(t, out.Report.Analysis)
	assert.Equal(t, domain.RiskMedium, out.Report.Analysis.ThreatLevel)
	assert.Equal(t, 80, out.Report.Analysis.Confidence)

	assert.Equal(t, 1, openai.calls)
	assert.Equal(t, domain.CapAssistant, gemini.last.Capability)
	assert.NotEmpty(t, gemini.last.System)
	assert.True(t, strings.HasPrefix(gemini.last.Text, "User: hi\n\n"))
}

func TestAsk_FailureReturnsApology(t *testing.T) {
	svc := NewService(chainOf(
		&stub{name: "openai", res: domain.Failure("openai", domain.Rejected, "status 429")},
		&stub{name: "gemini", res: domain.Failure("gemini", domain.Unconfigured, "API key not configured")},
	), nil)

	out := svc.Ask(context.Background(), nil, "help")

	require.True(t, out.IsDegraded())
	assert.Equal(t, domain.Rejected, out.Degraded.Reason)
	assert.Equal(t, Apology, out.Report.Message)
	assert.Equal(t, FailureSuggestions, out.Report.Suggestions)
}

func TestAsk_UnconfiguredGivesTopicGuidance(t *testing.T) {
	svc := NewService(nil, nil)

	out := svc.Ask(context.Background(), nil, "How do I spot phishing links?")

	require.True(t, out.IsDegraded())
	assert.Equal(t, domain.Unconfigured, out.Degraded.Reason)
	assert.Contains(t, out.Report.Message, "Threat protection")
	require.NotNil(t, out.Report.Analysis)
	assert.Equal(t, domain.RiskHigh, out.Report.Analysis.ThreatLevel)
	assert.Len(t, out.Report.Suggestions, 3)
}

func TestAsk_EmptyMessageMakesNoCall(t *testing.T) {
	p := &stub{name: "openai", res: domain.Success("openai", "hello")}
	svc := NewService(chainOf(p), nil)

	out := svc.Ask(context.Background(), nil, "   ")

	require.True(t, out.IsDegraded())
	assert.Equal(t, domain.Rejected, out.Degraded.Reason)
	assert.Zero(t, p.calls)
	assert.NotEmpty(t, out.Report.Message)
}

func TestAsk_ForwardsOnlyRecentHistory(t *testing.T) {
	p := &stub{name: "openai", res: domain.Success("openai", "ok")}
	svc := NewService(chainOf(p), nil)
	var history []Message
	for i := range HistoryWindow + 5 {
		history = append(history, Message{Role: "user", Content: fmt.Sprintf("turn-%02d", i)})
	}

	svc.Ask(context.Background(), history, "latest")

	assert.NotContains(t, p.last.Text, "turn-04")
	assert.Contains(t, p.last.Text, "turn-05")
	assert.Contains(t, p.last.Text, "turn-14")
	assert.True(t, strings.HasSuffix(p.last.Text, "User: latest"))
}

func TestScreen(t *testing.T) {
	for name, tc := range map[string]struct {
		msg        string
		level      domain.RiskLevel
		confidence int
		indicators int
	}{
		"clean":  {"what is OSINT?", domain.RiskLow, 70, 0},
		"two":    {"is this a scam for money", domain.RiskMedium, 80, 2},
		"three+": {"HELP, a fraud scam wants to steal my money", domain.RiskHigh, 90, 5},
	} {
		t.Run(name, func(t *testing.T) {
			s := Screen(tc.msg)
			assert.Equal(t, tc.level, s.ThreatLevel)
			assert.Equal(t, tc.confidence, s.Confidence)
			assert.Len(t, s.Indicators, tc.indicators)
		})
	}
}

func TestSuggest_CapsAtThree(t *testing.T) {
	got := Suggest("dating profile sent an email with a link")

	assert.Equal(t, []string{"Upload profile image for reverse search", "Run dating safety verification", "Verify contact information"}, got)
	assert.Len(t, Suggest("anything else"), 3)
}
