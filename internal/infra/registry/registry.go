// Package registry constructs every provider from configuration and assembles the
// per-capability fallback chains once at start.
package registry

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/bryanwahyu/osint-cafe/internal/application/chain"
	"github.com/bryanwahyu/osint-cafe/internal/config"
	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
	"github.com/bryanwahyu/osint-cafe/internal/infra/ledger/algorand"
	"github.com/bryanwahyu/osint-cafe/internal/infra/ledger/canister"
	"github.com/bryanwahyu/osint-cafe/internal/infra/provider/abuseipdb"
	"github.com/bryanwahyu/osint-cafe/internal/infra/provider/cohere"
	"github.com/bryanwahyu/osint-cafe/internal/infra/provider/dappier"
	"github.com/bryanwahyu/osint-cafe/internal/infra/provider/gemini"
	"github.com/bryanwahyu/osint-cafe/internal/infra/provider/openai"
	"github.com/bryanwahyu/osint-cafe/internal/infra/provider/pica"
	"github.com/bryanwahyu/osint-cafe/internal/infra/provider/threatindex"
	"github.com/bryanwahyu/osint-cafe/internal/infra/provider/virustotal"
)

// Supports lists the capabilities each provider can serve.
var Supports = map[string][]analysis.Capability{
	"gemini":      {analysis.CapTextRisk, analysis.CapImageRisk, analysis.CapAssistant},
	"openai":      {analysis.CapTextRisk, analysis.CapImageRisk, analysis.CapAssistant},
	"deepseek":    {analysis.CapTextRisk, analysis.CapImageRisk, analysis.CapAssistant},
	"cohere":      {analysis.CapTextRisk},
	"dappier":     {analysis.CapWebIntel},
	"threatindex": {analysis.CapWebIntel},
	"pica":        {analysis.CapImageRisk},
	"virustotal":  {analysis.CapURLReputation},
	"abuseipdb":   {analysis.CapIPReputation},
	"canister":    {analysis.CapIdentityVerify},
}

// Registry owns the providers and chains built from one Config.
type Registry struct {
	providers   map[string]analysis.Provider
	chains      map[analysis.Capability]*chain.Chain
	checkers    []analysis.NamedChecker
	logger      *zap.Logger
	Canister    *canister.Client
	Algorand    *algorand.Client
	ThreatIndex *threatindex.Client
}

// Build constructs every provider and the chains named in cfg.Chains. A chain that
// names a provider unable to serve its capability is a configuration error.
func Build(cfg *config.Config, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := cfg.Providers
	r := &Registry{
		providers: map[string]analysis.Provider{},
		chains:    map[analysis.Capability]*chain.Chain{},
		logger:    logger,
	}

	r.Canister = canister.NewClient(canister.Config{
		GatewayURL:       cfg.Ledger.GatewayURL,
		IdentityCanister: cfg.Ledger.IdentityCanister,
		WalletCanister:   cfg.Ledger.WalletCanister,
		Timeout:          cfg.Ledger.Timeout,
	})
	r.Algorand = algorand.NewClient(algorand.Config{
		BaseURL: cfg.Ledger.AlgodURL,
		Token:   cfg.Ledger.AlgodToken,
		Timeout: cfg.Ledger.Timeout,
	})
	r.ThreatIndex = threatindex.NewClient(threatindex.Config{
		Addresses: p.ThreatIndex.Addresses,
		APIKey:    p.ThreatIndex.APIKey,
		Username:  p.ThreatIndex.Username,
		Password:  p.ThreatIndex.Password,
		Index:     p.ThreatIndex.Index,
		Timeout:   p.TimeoutFor(p.ThreatIndex.Timeout),
	})

	r.add(gemini.NewClient(gemini.Config{
		APIKey: p.Gemini.APIKey, BaseURL: p.Gemini.BaseURL, Model: p.Gemini.Model,
		Timeout: p.TimeoutFor(p.Gemini.Timeout),
	}))
	r.add(openai.NewClient(openai.Config{
		Name: "openai", APIKey: p.OpenAI.APIKey, BaseURL: p.OpenAI.BaseURL, Model: p.OpenAI.Model,
		Timeout: p.TimeoutFor(p.OpenAI.Timeout),
	}))
	r.add(openai.NewClient(openai.Config{
		Name: "deepseek", APIKey: p.DeepSeek.APIKey, BaseURL: p.DeepSeek.BaseURL, Model: p.DeepSeek.Model,
		Timeout: p.TimeoutFor(p.DeepSeek.Timeout),
	}))
	r.add(cohere.NewClient(cohere.Config{
		APIKey: p.Cohere.APIKey, BaseURL: p.Cohere.BaseURL, Model: p.Cohere.Model,
		Timeout: p.TimeoutFor(p.Cohere.Timeout),
	}))
	r.add(dappier.NewClient(dappier.Config{
		APIKey: p.Dappier.APIKey, BaseURL: p.Dappier.BaseURL, Model: p.Dappier.Model,
		Timeout: p.TimeoutFor(p.Dappier.Timeout),
	}))
	r.add(r.ThreatIndex)
	r.add(pica.NewClient(pica.Config{
		APIKey: p.Pica.APIKey, BaseURL: p.Pica.BaseURL, Timeout: p.TimeoutFor(p.Pica.Timeout),
	}))
	r.add(virustotal.NewClient(virustotal.Config{
		APIKey: p.VirusTotal.APIKey, BaseURL: p.VirusTotal.BaseURL, Timeout: p.TimeoutFor(p.VirusTotal.Timeout),
	}))
	r.add(abuseipdb.NewClient(abuseipdb.Config{
		APIKey: p.AbuseIPDB.APIKey, BaseURL: p.AbuseIPDB.BaseURL, Timeout: p.TimeoutFor(p.AbuseIPDB.Timeout),
	}))
	r.add(r.Canister)
	r.checkers = append(r.checkers, r.Algorand)

	opts := []chain.Option{chain.WithLogger(logger.Named("chain"))}
	if cfg.Retry.Attempts > 0 {
		opts = append(opts, chain.WithRetries(cfg.Retry.Attempts, cfg.Retry.Backoff))
	}
	for name, list := range cfg.Chains {
		capability := analysis.Capability(name)
		if !capability.Valid() {
			return nil, fmt.Errorf("chain %q: unknown capability", name)
		}
		providers := make([]analysis.Provider, 0, len(list))
		for _, pn := range list {
			prov, ok := r.providers[pn]
			if !ok {
				return nil, fmt.Errorf("chain %q: unknown provider %q", name, pn)
			}
			if !slices.Contains(Supports[pn], capability) {
				return nil, fmt.Errorf("chain %q: provider %q cannot serve it", name, pn)
			}
			providers = append(providers, prov)
		}
		r.chains[capability] = chain.New(capability, providers, opts...)
		logger.Debug("chain registered", zap.String("capability", name), zap.Strings("providers", list))
	}
	return r, nil
}

func (r *Registry) add(p analysis.Provider) {
	r.providers[p.Name()] = p
	if c, ok := p.(analysis.NamedChecker); ok {
		r.checkers = append(r.checkers, c)
	}
}

// Chain returns the chain for c. Capabilities with no configured chain get an empty
// one, which always fails as unconfigured.
func (r *Registry) Chain(c analysis.Capability) *chain.Chain {
	if ch, ok := r.chains[c]; ok {
		return ch
	}
	return chain.New(c, nil, chain.WithLogger(r.logger.Named("chain")))
}

// Provider looks a provider up by name.
func (r *Registry) Provider(name string) (analysis.Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Checkers returns every status-checkable dependency in registration order.
func (r *Registry) Checkers() []analysis.NamedChecker {
	return append([]analysis.NamedChecker(nil), r.checkers...)
}
