// Package cohere calls Cohere's text generation endpoint.
package cohere

import (
	"context"
	"strings"
	"time"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
	"github.com/bryanwahyu/osint-cafe/internal/infra/provider/httpjson"
)

const name = "cohere"

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	cfg  Config
	http *httpjson.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cohere.ai"
	}
	if cfg.Model == "" {
		cfg.Model = "command"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpjson.New(cfg.Timeout)}
}

func (c *Client) Name() string { return name }

type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Generations []struct {
		Text string `json:"text"`
	} `json:"generations"`
}

func (c *Client) Call(ctx context.Context, req analysis.Request) analysis.Result {
	if c.cfg.APIKey == "" {
		return analysis.Failure(name, analysis.Unconfigured, analysis.ErrNotConfigured.Error())
	}
	var out generateResponse
	err := c.http.PostJSON(ctx, c.cfg.BaseURL+"/v1/generate", c.headers(), generateRequest{
		Model:       c.cfg.Model,
		Prompt:      req.Text,
		MaxTokens:   1000,
		Temperature: 0.7,
	}, &out)
	if err != nil {
		return httpjson.Failure(name, err)
	}
	if len(out.Generations) == 0 || strings.TrimSpace(out.Generations[0].Text) == "" {
		return analysis.Failure(name, analysis.Unparseable, "no generations in response")
	}
	return analysis.Success(name, out.Generations[0].Text)
}

// Check validates the key without spending tokens.
func (c *Client) Check(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return analysis.ErrNotConfigured
	}
	var out struct {
		Valid bool `json:"valid"`
	}
	if err := c.http.PostJSON(ctx, c.cfg.BaseURL+"/v1/check-api-key", c.headers(), struct{}{}, &out); err != nil {
		return err
	}
	if !out.Valid {
		return httpjson.Unparseable("cohere reports the key as invalid")
	}
	return nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
}
