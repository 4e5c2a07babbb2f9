// Package virustotal looks up URL reputation in VirusTotal's v3 API.
package virustotal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
	"github.com/bryanwahyu/osint-cafe/internal/infra/provider/httpjson"
)

const name = "virustotal"

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	cfg  Config
	http *httpjson.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.virustotal.com/api/v3"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpjson.New(cfg.Timeout)}
}

func (c *Client) Name() string { return name }

// Stats is the JSON payload handed to the threat service.
type Stats struct {
	Harmless   int      `json:"harmless"`
	Malicious  int      `json:"malicious"`
	Suspicious int      `json:"suspicious"`
	Undetected int      `json:"undetected"`
	Categories []string `json:"categories"`
	Phishing   bool     `json:"phishing"`
}

type urlReport struct {
	Data *struct {
		Attributes struct {
			LastAnalysisStats struct {
				Harmless   int `json:"harmless"`
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
				Undetected int `json:"undetected"`
			} `json:"last_analysis_stats"`
			Categories          map[string]string `json:"categories"`
			LastAnalysisResults map[string]struct {
				Category string `json:"category"`
			} `json:"last_analysis_results"`
		} `json:"attributes"`
	} `json:"data"`
}

// URLID is VirusTotal's identifier for a URL: unpadded URL-safe base64.
func URLID(u string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(u))
}

// Call expects req.Text to hold the URL. Unknown URLs are submitted for
// scanning and reported as rejected until a verdict exists.
func (c *Client) Call(ctx context.Context, req analysis.Request) analysis.Result {
	if c.cfg.APIKey == "" {
		return analysis.Failure(name, analysis.Unconfigured, analysis.ErrNotConfigured.Error())
	}

	var rep urlReport
	err := c.http.GetJSON(ctx, c.cfg.BaseURL+"/urls/"+URLID(req.Text), c.headers(), &rep)
	var he *httpjson.Error
	if errors.As(err, &he) && he.Status == http.StatusNotFound {
		c.submit(ctx, req.Text)
		return analysis.Failure(name, analysis.Rejected, "status 404: url unknown, submitted for analysis")
	}
	if err != nil {
		return httpjson.Failure(name, err)
	}
	if rep.Data == nil {
		return analysis.Failure(name, analysis.Unparseable, "response has no data")
	}

	a := rep.Data.Attributes
	s := Stats{
		Harmless:   a.LastAnalysisStats.Harmless,
		Malicious:  a.LastAnalysisStats.Malicious,
		Suspicious: a.LastAnalysisStats.Suspicious,
		Undetected: a.LastAnalysisStats.Undetected,
		Categories: make([]string, 0, len(a.Categories)),
	}
	seen := map[string]bool{}
	for _, cat := range a.Categories {
		if !seen[cat] {
			seen[cat] = true
			s.Categories = append(s.Categories, cat)
		}
	}
	sort.Strings(s.Categories)
	for _, r := range a.LastAnalysisResults {
		if r.Category == "phishing" {
			s.Phishing = true
			break
		}
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return analysis.Failure(name, analysis.Unparseable, err.Error())
	}
	return analysis.Success(name, string(raw))
}

func (c *Client) submit(ctx context.Context, target string) {
	form := url.Values{"url": {target}}
	req, err := http.NewRequest(http.MethodPost, c.cfg.BaseURL+"/urls", strings.NewReader(form.Encode()))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("x-apikey", c.cfg.APIKey)
	_, _ = c.http.Do(ctx, req)
}

// Check reads the reputation of a well-known resolver address.
func (c *Client) Check(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return analysis.ErrNotConfigured
	}
	return c.http.GetJSON(ctx, c.cfg.BaseURL+"/ip_addresses/8.8.8.8", c.headers(), nil)
}

func (c *Client) headers() map[string]string {
	return map[string]string{"x-apikey": c.cfg.APIKey}
}
