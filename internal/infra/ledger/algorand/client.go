// Package algorand estimates account age from an algod node.
package algorand

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
	"github.com/bryanwahyu/osint-cafe/internal/domain/identity"
	"github.com/bryanwahyu/osint-cafe/internal/infra/provider/httpjson"
)

// RoundTime is the average block interval on mainnet.
const RoundTime = 2800 * time.Millisecond

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type Client struct {
	cfg  Config
	http *httpjson.Client
}

var _ identity.AgeEstimator = (*Client)(nil)

func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpjson.New(cfg.Timeout)}
}

func (c *Client) Name() string { return "algorand" }

type account struct {
	CreatedAtRound *uint64 `json:"created-at-round"`
}

type status struct {
	LastRound uint64 `json:"last-round"`
}

// IdentityAge buckets the age of the account named by principal.
func (c *Client) IdentityAge(ctx context.Context, principal string) (string, error) {
	if c.cfg.BaseURL == "" {
		return "", analysis.ErrNotConfigured
	}
	var acct account
	if err := c.http.GetJSON(ctx, c.cfg.BaseURL+"/v2/accounts/"+url.PathEscape(principal), c.headers(), &acct); err != nil {
		return "", fmt.Errorf("algod account: %w", err)
	}
	if acct.CreatedAtRound == nil {
		return "", errors.New("algod account: no created-at-round")
	}
	var st status
	if err := c.http.GetJSON(ctx, c.cfg.BaseURL+"/v2/status", c.headers(), &st); err != nil {
		return "", fmt.Errorf("algod status: %w", err)
	}

	var rounds uint64
	if st.LastRound > *acct.CreatedAtRound {
		rounds = st.LastRound - *acct.CreatedAtRound
	}
	return identity.AgeBucket(time.Duration(rounds) * RoundTime), nil
}

func (c *Client) Check(ctx context.Context) error {
	if c.cfg.BaseURL == "" {
		return analysis.ErrNotConfigured
	}
	return c.http.GetJSON(ctx, c.cfg.BaseURL+"/v2/status", c.headers(), nil)
}

func (c *Client) headers() map[string]string {
	if c.cfg.Token == "" {
		return nil
	}
	return map[string]string{"X-Algo-API-Token": c.cfg.Token}
}
