package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/osint-cafe/internal/config"
	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
)

func defaults(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg, err := config.NewLoader().Load()
	require.NoError(t, err)
	return cfg
}

func names(ps []analysis.Provider) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name())
	}
	return out
}

func TestBuild_DefaultChains(t *testing.T) {
	r, err := Build(defaults(t), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"gemini", "cohere", "openai"}, names(r.Chain(analysis.CapTextRisk).Providers()))
	assert.Equal(t, []string{"pica", "deepseek", "gemini"}, names(r.Chain(analysis.CapImageRisk).Providers()))
	assert.Equal(t, []string{"dappier", "threatindex"}, names(r.Chain(analysis.CapWebIntel).Providers()))
	assert.Equal(t, []string{"canister"}, names(r.Chain(analysis.CapIdentityVerify).Providers()))
	assert.Equal(t, []string{"openai", "gemini"}, names(r.Chain(analysis.CapAssistant).Providers()))

	var checked []string
	for _, c := range r.Checkers() {
		checked = append(checked, c.Name())
	}
	assert.Equal(t, []string{"gemini", "openai", "deepseek", "cohere", "dappier", "threatindex",
		"pica", "virustotal", "abuseipdb", "canister", "algorand"}, checked)
}

func TestBuild_UnconfiguredChainFailsWithoutNetwork(t *testing.T) {
	r, err := Build(defaults(t), nil)
	require.NoError(t, err)

	exec := r.Chain(analysis.CapTextRisk).Execute(context.Background(), analysis.Request{Capability: analysis.CapTextRisk, Text: "hi"})

	assert.False(t, exec.Result.OK)
	assert.Equal(t, analysis.Unconfigured, exec.Result.Reason)
	assert.Len(t, exec.Attempts, 3)
}

func TestBuild_MissingChainIsEmpty(t *testing.T) {
	cfg := defaults(t)
	delete(cfg.Chains, "url-reputation")
	r, err := Build(cfg, nil)
	require.NoError(t, err)

	exec := r.Chain(analysis.CapURLReputation).Execute(context.Background(), analysis.Request{})
	assert.Equal(t, analysis.Unconfigured, exec.Result.Reason)
	assert.Empty(t, exec.Attempts)
}

func TestBuild_RejectsBadChains(t *testing.T) {
	for name, chains := range map[string]map[string][]string{
		"unknown provider":   {"text-risk": {"clippy"}},
		"wrong capability":   {"text-risk": {"pica"}},
		"assistant via scan": {"assistant": {"virustotal"}},
		"unknown capability": {"mind-reading": {"gemini"}},
	} {
		t.Run(name, func(t *testing.T) {
			cfg := defaults(t)
			cfg.Chains = chains
			_, err := Build(cfg, nil)
			assert.Error(t, err)
		})
	}
}
