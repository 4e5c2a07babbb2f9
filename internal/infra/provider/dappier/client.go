// Package dappier queries Dappier's real-time web data model for open-source
// intelligence about a name.
package dappier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
	"github.com/bryanwahyu/osint-cafe/internal/infra/provider/httpjson"
)

const name = "dappier"

const defaultModel = "dm_01hpsxyfm2fwdt2zet9cg6fdxt"

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
		cfg.BaseURL = "https://api.dappier.com"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpjson.New(cfg.Timeout)}
}

func (c *Client) Name() string { return name }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type conversationRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type conversationResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Query builds the search instruction for a subject name.
func Query(subject string) string {
	return fmt.Sprintf("Search for information about %q for dating safety verification. "+
		"Look for social media presence, news articles, or any red flags.", subject)
}

// Call expects req.Text to hold the subject name.
func (c *Client) Call(ctx context.Context, req analysis.Request) analysis.Result {
	if c.cfg.APIKey == "" {
		return analysis.Failure(name, analysis.Unconfigured, analysis.ErrNotConfigured.Error())
	}
	if strings.TrimSpace(req.Text) == "" {
		return analysis.Failure(name, analysis.Rejected, "empty subject")
	}
	out, err := c.converse(ctx, Query(req.Text))
	if err != nil {
		return httpjson.Failure(name, err)
	}
	return analysis.Success(name, out)
}

// Check sends a trivial question to the data model.
func (c *Client) Check(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return analysis.ErrNotConfigured
	}
	_, err := c.converse(ctx, "status check")
	return err
}

func (c *Client) converse(ctx context.Context, content string) (string, error) {
	var out conversationResponse
	err := c.http.PostJSON(ctx, c.cfg.BaseURL+"/app/datamodelconversation",
		map[string]string{"Authorization": "Bearer " + c.cfg.APIKey},
		conversationRequest{Model: c.cfg.Model, Messages: []message{{Role: "user", Content: content}}},
		&out)
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", httpjson.Unparseable("no choices in response")
	}
	return out.Choices[0].Message.Content, nil
}
