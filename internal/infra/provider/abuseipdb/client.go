// Package abuseipdb checks IP addresses against AbuseIPDB.
package abuseipdb

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
	"github.com/bryanwahyu/osint-cafe/internal/infra/provider/httpjson"
)

const name = "abuseipdb"

type Config struct {
	APIKey  string
	BaseURL string
	MaxAge  int
	Timeout time.Duration
}

type Client struct {
	cfg  Config
	http *httpjson.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.abuseipdb.com/api/v2"
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 90
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpjson.New(cfg.Timeout)}
}

func (c *Client) Name() string { return name }

// Report is the JSON payload handed to the threat service.
type Report struct {
	AbuseConfidence int    `json:"abuseConfidence"`
	CountryCode     string `json:"countryCode"`
	ISP             string `json:"isp"`
	TotalReports    int    `json:"totalReports"`
	Categories      []int  `json:"categories"`
}

type checkResponse struct {
	Data *struct {
		AbuseConfidenceScore int    `json:"abuseConfidenceScore"`
		CountryCode          string `json:"countryCode"`
		ISP                  string `json:"isp"`
		TotalReports         int    `json:"totalReports"`
		Reports              []struct {
			Categories []int `json:"categories"`
		} `json:"reports"`
	} `json:"data"`
}

// Call expects req.Text to hold the IP address.
func (c *Client) Call(ctx context.Context, req analysis.Request) analysis.Result {
	if c.cfg.APIKey == "" {
		return analysis.Failure(name, analysis.Unconfigured, analysis.ErrNotConfigured.Error())
	}
	out, err := c.check(ctx, req.Text, true)
	if err != nil {
		return httpjson.Failure(name, err)
	}
	if out.Data == nil {
		return analysis.Failure(name, analysis.Unparseable, "response has no data")
	}

	d := out.Data
	r := Report{
		AbuseConfidence: d.AbuseConfidenceScore,
		CountryCode:     d.CountryCode,
		ISP:             d.ISP,
		TotalReports:    d.TotalReports,
		Categories:      []int{},
	}
	seen := map[int]bool{}
	for _, rep := range d.Reports {
		for _, cat := range rep.Categories {
			if !seen[cat] {
				seen[cat] = true
				r.Categories = append(r.Categories, cat)
			}
		}
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return analysis.Failure(name, analysis.Unparseable, err.Error())
	}
	return analysis.Success(name, string(raw))
}

// Check looks up the loopback address.
func (c *Client) Check(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return analysis.ErrNotConfigured
	}
	_, err := c.check(ctx, "127.0.0.1", false)
	return err
}

func (c *Client) check(ctx context.Context, ip string, verbose bool) (checkResponse, error) {
	q := url.Values{}
	q.Set("ipAddress", ip)
	q.Set("maxAgeInDays", strconv.Itoa(c.cfg.MaxAge))
	if verbose {
		q.Set("verbose", "")
	}
	var out checkResponse
	err := c.http.GetJSON(ctx, c.cfg.BaseURL+"/check?"+q.Encode(), map[string]string{"Key": c.cfg.APIKey}, &out)
	return out, err
}
