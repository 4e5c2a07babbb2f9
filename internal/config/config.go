package config

import (
	"fmt"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. It is loaded once at start and
// treated as read-only afterwards.
type Config struct {
	Server    ServerConfig        `mapstructure:"server" yaml:"server"`
	Log       LogConfig           `mapstructure:"log" yaml:"log"`
	Providers ProvidersConfig     `mapstructure:"providers" yaml:"providers"`
	Ledger    LedgerConfig        `mapstructure:"ledger" yaml:"ledger"`
	Chains    map[string][]string `mapstructure:"chains" yaml:"chains"`
	Retry     RetryConfig         `mapstructure:"retry" yaml:"retry"`
	Identity  IdentityConfig      `mapstructure:"identity" yaml:"identity"`
	Audit     AuditConfig         `mapstructure:"audit" yaml:"audit"`
	Evidence  EvidenceConfig      `mapstructure:"evidence" yaml:"evidence"`
	Probe     ProbeConfig         `mapstructure:"probe" yaml:"probe"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	ClientKeys      []string      `mapstructure:"client_keys" yaml:"client_keys"`
	RateLimit       float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst" yaml:"rate_burst"`
	MaxImageBytes   int64         `mapstructure:"max_image_bytes" yaml:"max_image_bytes"`
	// AnalysisTimeout bounds one /v1 request and must stay below WriteTimeout.
	AnalysisTimeout time.Duration `mapstructure:"analysis_timeout" yaml:"analysis_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ProviderConfig is shared by every hosted provider. A zero Timeout inherits
// ProvidersConfig.Timeout.
type ProviderConfig struct {
	APIKey  string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Model   string        `mapstructure:"model" yaml:"model"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type ThreatIndexConfig struct {
	Addresses []string      `mapstructure:"addresses" yaml:"addresses"`
	APIKey    string        `mapstructure:"api_key" yaml:"api_key"`
	Username  string        `mapstructure:"username" yaml:"username"`
	Password  string        `mapstructure:"password" yaml:"password"`
	Index     string        `mapstructure:"index" yaml:"index"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type ProvidersConfig struct {
	Timeout     time.Duration     `mapstructure:"timeout" yaml:"timeout"`
	Gemini      ProviderConfig    `mapstructure:"gemini" yaml:"gemini"`
	OpenAI      ProviderConfig    `mapstructure:"openai" yaml:"openai"`
	DeepSeek    ProviderConfig    `mapstructure:"deepseek" yaml:"deepseek"`
	Cohere      ProviderConfig    `mapstructure:"cohere" yaml:"cohere"`
	Dappier     ProviderConfig    `mapstructure:"dappier" yaml:"dappier"`
	Pica        ProviderConfig    `mapstructure:"pica" yaml:"pica"`
	VirusTotal  ProviderConfig    `mapstructure:"virustotal" yaml:"virustotal"`
	AbuseIPDB   ProviderConfig    `mapstructure:"abuseipdb" yaml:"abuseipdb"`
	ThreatIndex ThreatIndexConfig `mapstructure:"threatindex" yaml:"threatindex"`
}

// TimeoutFor returns p's timeout or the shared default.
func (c ProvidersConfig) TimeoutFor(p time.Duration) time.Duration {
	if p > 0 {
		return p
	}
	return c.Timeout
}

type LedgerConfig struct {
	GatewayURL       string        `mapstructure:"gateway_url" yaml:"gateway_url"`
	IdentityCanister string        `mapstructure:"identity_canister" yaml:"identity_canister"`
	WalletCanister   string        `mapstructure:"wallet_canister" yaml:"wallet_canister"`
	AlgodURL         string        `mapstructure:"algod_url" yaml:"algod_url"`
	AlgodToken       string        `mapstructure:"algod_token" yaml:"algod_token"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type RetryConfig struct {
	Attempts uint64        `mapstructure:"attempts" yaml:"attempts"`
	Backoff  time.Duration `mapstructure:"backoff" yaml:"backoff"`
}

type IdentityConfig struct {
	// Verifier is okta, static or none.
	Verifier     string            `mapstructure:"verifier" yaml:"verifier"`
	OktaIssuer   string            `mapstructure:"okta_issuer" yaml:"okta_issuer"`
	OktaClientID string            `mapstructure:"okta_client_id" yaml:"okta_client_id"`
	OktaAudience string            `mapstructure:"okta_audience" yaml:"okta_audience"`
	StaticTokens map[string]string `mapstructure:"static_tokens" yaml:"static_tokens"`
	SessionTTL   time.Duration     `mapstructure:"session_ttl" yaml:"session_ttl"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Name     string `mapstructure:"name" yaml:"name"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

type AuditConfig struct {
	// Driver is none, sqlite, mysql or postgres.
	Driver   string         `mapstructure:"driver" yaml:"driver"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
}

type EvidenceConfig struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Region    string `mapstructure:"region" yaml:"region"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
}

// Enabled reports whether images should be archived.
func (e EvidenceConfig) Enabled() bool { return e.Endpoint != "" && e.Bucket != "" }

type ProbeConfig struct {
	Pause time.Duration `mapstructure:"pause" yaml:"pause"`
}

// MySQLDSN builds a go-sql-driver/mysql DSN.
func (c *Config) MySQLDSN() string {
	d := c.Audit.Database
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// PostgresDSN builds a lib/pq connection URL.
func (c *Config) PostgresDSN() string {
	d := c.Audit.Database
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

const redacted = "********"

func mask(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}

// Redacted returns a copy with every credential masked.
func (c Config) Redacted() Config {
	out := c
	p := &out.Providers
	for _, pc := range []*ProviderConfig{&p.Gemini, &p.OpenAI, &p.DeepSeek, &p.Cohere, &p.Dappier, &p.Pica, &p.VirusTotal, &p.AbuseIPDB} {
		pc.APIKey = mask(pc.APIKey)
	}
	p.ThreatIndex.APIKey = mask(p.ThreatIndex.APIKey)
	p.ThreatIndex.Password = mask(p.ThreatIndex.Password)
	out.Ledger.AlgodToken = mask(out.Ledger.AlgodToken)
	out.Audit.Database.Password = mask(out.Audit.Database.Password)
	out.Evidence.AccessKey = mask(out.Evidence.AccessKey)
	out.Evidence.SecretKey = mask(out.Evidence.SecretKey)

	if len(c.Server.ClientKeys) > 0 {
		out.Server.ClientKeys = make([]string, len(c.Server.ClientKeys))
		for i := range out.Server.ClientKeys {
			out.Server.ClientKeys[i] = redacted
		}
	}
	if len(c.Identity.StaticTokens) > 0 {
		out.Identity.StaticTokens = make(map[string]string, len(c.Identity.StaticTokens))
		i := 0
		for _, principal := range c.Identity.StaticTokens {
			i++
			out.Identity.StaticTokens[fmt.Sprintf("%s-%d", redacted, i)] = principal
		}
	}
	return out
}

// YAML renders the redacted configuration.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c.Redacted())
}
