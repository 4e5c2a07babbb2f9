package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
)

// KnownProviders lists every provider name a chain may reference.
var KnownProviders = []string{
	"gemini", "openai", "deepseek", "cohere", "dappier", "threatindex",
	"pica", "virustotal", "abuseipdb", "canister",
}

// ValidationError is one bad setting.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every bad setting found.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

type Validator struct {
	errors ValidationErrors
}

func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

// Validate checks the whole configuration and returns ValidationErrors if any
// setting is bad.
func (v *Validator) Validate(cfg *Config) error {
	v.validateServer(&cfg.Server)
	v.validateLog(&cfg.Log)
	v.validateProviders(&cfg.Providers)
	v.validateChains(cfg.Chains)
	v.validateIdentity(&cfg.Identity)
	v.validateAudit(&cfg.Audit)
	if cfg.Probe.Pause < 0 {
		v.addError("probe.pause", cfg.Probe.Pause, "must not be negative")
	}

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *Validator) addError(field string, value any, msg string) {
	v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: msg})
}

func (v *Validator) validateServer(s *ServerConfig) {
	if s.Port < 1 || s.Port > 65535 {
		v.addError("server.port", s.Port, "must be between 1 and 65535")
	}
	if s.RateLimit < 0 {
		v.addError("server.rate_limit", s.RateLimit, "must not be negative")
	}
	if s.RateLimit > 0 && s.RateBurst < 1 {
		v.addError("server.rate_burst", s.RateBurst, "must be at least 1 when rate limiting")
	}
	if s.AnalysisTimeout <= 0 {
		v.addError("server.analysis_timeout", s.AnalysisTimeout, "must be positive")
	}
	if s.WriteTimeout > 0 && s.AnalysisTimeout >= s.WriteTimeout {
		v.addError("server.analysis_timeout", s.AnalysisTimeout, "must be below server.write_timeout")
	}
	if s.MaxImageBytes <= 0 {
		v.addError("server.max_image_bytes", s.MaxImageBytes, "must be positive")
	}
}

func (v *Validator) validateLog(l *LogConfig) {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(l.Level)) {
		v.addError("log.level", l.Level, "must be debug, info, warn or error")
	}
	if !slices.Contains([]string{"json", "console"}, strings.ToLower(l.Format)) {
		v.addError("log.format", l.Format, "must be json or console")
	}
}

func (v *Validator) validateProviders(p *ProvidersConfig) {
	if p.Timeout <= 0 {
		v.addError("providers.timeout", p.Timeout, "must be positive")
	}
	named := map[string]ProviderConfig{
		"gemini": p.Gemini, "openai": p.OpenAI, "deepseek": p.DeepSeek, "cohere": p.Cohere,
		"dappier": p.Dappier, "pica": p.Pica, "virustotal": p.VirusTotal, "abuseipdb": p.AbuseIPDB,
	}
	for name, pc := range named {
		if pc.Timeout < 0 {
			v.addError("providers."+name+".timeout", pc.Timeout, "must not be negative")
		}
	}
}

func (v *Validator) validateChains(chains map[string][]string) {
	for capName, providers := range chains {
		if !analysis.Capability(capName).Valid() {
			v.addError("chains."+capName, capName, "unknown capability")
			continue
		}
		seen := map[string]bool{}
		for _, p := range providers {
			if !slices.Contains(KnownProviders, p) {
				v.addError("chains."+capName, p, "unknown provider")
			}
			if seen[p] {
				v.addError("chains."+capName, p, "provider listed twice")
			}
			seen[p] = true
		}
	}
}

func (v *Validator) validateIdentity(i *IdentityConfig) {
	if i.SessionTTL <= 0 {
		v.addError("identity.session_ttl", i.SessionTTL, "must be positive")
	}
	switch i.Verifier {
	case "none", "static":
	case "okta":
		if i.OktaIssuer == "" {
			v.addError("identity.okta_issuer", i.OktaIssuer, "required when verifier is okta")
		}
	default:
		v.addError("identity.verifier", i.Verifier, "must be okta, static or none")
	}
}

func (v *Validator) validateAudit(a *AuditConfig) {
	switch a.Driver {
	case "none":
	case "sqlite":
		if a.Path == "" {
			v.addError("audit.path", a.Path, "required for sqlite")
		}
	case "mysql", "postgres":
		if a.Database.Host == "" || a.Database.Name == "" {
			v.addError("audit.database", a.Database.Host, "host and name are required")
		}
	default:
		v.addError("audit.driver", a.Driver, "must be none, sqlite, mysql or postgres")
	}
}
