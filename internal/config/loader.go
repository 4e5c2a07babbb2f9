package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. OSINT_PROVIDERS_GEMINI_API_KEY.
const EnvPrefix = "OSINT"

// Loader handles configuration loading from defaults, a YAML file and the environment.
type Loader struct {
	v          *viper.Viper
	configFile string
}

func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// NewLoaderWithViper uses an existing viper instance so CLI flags can be bound.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

func (l *Loader) Viper() *viper.Viper { return l.v }

// Load reads configuration. Precedence, highest first: environment (OSINT_*),
// config file (explicit path, else ./config.yaml), defaults.
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// DefaultChains is the provider preference order per capability.
func DefaultChains() map[string][]string {
	return map[string][]string{
		"text-risk":       {"gemini", "cohere", "openai"},
		"image-risk":      {"pica", "deepseek", "gemini"},
		"identity-verify": {"canister"},
		"web-intel":       {"dappier", "threatindex"},
		"url-reputation":  {"virustotal"},
		"ip-reputation":   {"abuseipdb"},
		"assistant":       {"openai", "gemini"},
	}
}

// setDefaults registers every key so AutomaticEnv can override it.
func (l *Loader) setDefaults() {
	v := l.v

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.client_keys", []string{})
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.max_image_bytes", 8<<20)
	v.SetDefault("server.analysis_timeout", "75s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("providers.timeout", "30s")
	for _, p := range []string{"gemini", "openai", "deepseek", "cohere", "dappier", "pica", "virustotal", "abuseipdb"} {
		v.SetDefault("providers."+p+".api_key", "")
		v.SetDefault("providers."+p+".base_url", "")
		v.SetDefault("providers."+p+".model", "")
		v.SetDefault("providers."+p+".timeout", "0s")
	}
	v.SetDefault("providers.gemini.model", "gemini-1.5-flash")
	v.SetDefault("providers.openai.model", "gpt-4o-mini")
	v.SetDefault("providers.deepseek.base_url", "https://api.deepseek.com/v1")
	v.SetDefault("providers.deepseek.model", "deepseek-chat")
	v.SetDefault("providers.cohere.model", "command")
	v.SetDefault("providers.threatindex.addresses", []string{})
	v.SetDefault("providers.threatindex.api_key", "")
	v.SetDefault("providers.threatindex.username", "")
	v.SetDefault("providers.threatindex.password", "")
	v.SetDefault("providers.threatindex.index", "scam-reports")
	v.SetDefault("providers.threatindex.timeout", "0s")

	v.SetDefault("ledger.gateway_url", "")
	v.SetDefault("ledger.identity_canister", "")
	v.SetDefault("ledger.wallet_canister", "uyd43-cqaaa-aaaac-a3e5q-cai")
	v.SetDefault("ledger.algod_url", "")
	v.SetDefault("ledger.algod_token", "")
	v.SetDefault("ledger.timeout", "20s")

	v.SetDefault("chains", DefaultChains())

	v.SetDefault("retry.attempts", 0)
	v.SetDefault("retry.backoff", "250ms")

	v.SetDefault("identity.verifier", "none")
	v.SetDefault("identity.okta_issuer", "")
	v.SetDefault("identity.okta_client_id", "")
	v.SetDefault("identity.okta_audience", "api://default")
	v.SetDefault("identity.static_tokens", map[string]string{})
	v.SetDefault("identity.session_ttl", "24h")

	v.SetDefault("audit.driver", "sqlite")
	v.SetDefault("audit.path", "osint-cafe.db")
	v.SetDefault("audit.database.host", "127.0.0.1")
	v.SetDefault("audit.database.port", 3306)
	v.SetDefault("audit.database.user", "")
	v.SetDefault("audit.database.password", "")
	v.SetDefault("audit.database.name", "osint_cafe")
	v.SetDefault("audit.database.sslmode", "disable")

	v.SetDefault("evidence.endpoint", "")
	v.SetDefault("evidence.access_key", "")
	v.SetDefault("evidence.secret_key", "")
	v.SetDefault("evidence.bucket", "osint-evidence")
	v.SetDefault("evidence.region", "us-east-1")
	v.SetDefault("evidence.use_ssl", false)

	v.SetDefault("probe.pause", "1s")
}
