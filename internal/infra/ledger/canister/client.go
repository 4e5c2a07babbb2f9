// Package canister talks to the identity and bitcoin wallet canisters through an
// HTTP JSON gateway. Each method is a POST to {gateway}/canisters/{id}/{method}
// whose response is a Candid-style variant: {"Ok": ...} or {"Err": "..."}.
package canister

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
	"github.com/bryanwahyu/osint-cafe/internal/domain/identity"
	"github.com/bryanwahyu/osint-cafe/internal/domain/wallet"
	"github.com/bryanwahyu/osint-cafe/internal/infra/provider/httpjson"
)

const name = "canister"

// CallerHeader carries the authenticated principal the gateway signs for.
const CallerHeader = "X-Caller-Principal"

type Config struct {
	GatewayURL       string
	IdentityCanister string
	WalletCanister   string
	Timeout          time.Duration
}

type Client struct {
	cfg  Config
	http *httpjson.Client
}

var (
	_ analysis.Provider = (*Client)(nil)
	_ identity.Canister = (*Client)(nil)
	_ wallet.Ledger     = (*Client)(nil)
)

func NewClient(cfg Config) *Client {
	cfg.GatewayURL = strings.TrimRight(cfg.GatewayURL, "/")
	return &Client{cfg: cfg, http: httpjson.New(cfg.Timeout)}
}

func (c *Client) Name() string { return name }

type variant struct {
	Ok  json.RawMessage `json:"Ok"`
	Err *string         `json:"Err"`
}

func (c *Client) invoke(ctx context.Context, canister, method, caller string, args []any, out any) error {
	if c.cfg.GatewayURL == "" || canister == "" {
		return &httpjson.Error{Kind: analysis.Unconfigured, Detail: "canister gateway not configured"}
	}
	if args == nil {
		args = []any{}
	}
	headers := map[string]string{}
	if caller != "" {
		headers[CallerHeader] = caller
	}

	endpoint := fmt.Sprintf("%s/canisters/%s/%s", c.cfg.GatewayURL, url.PathEscape(canister), method)
	var v variant
	if err := c.http.PostJSON(ctx, endpoint, headers, map[string]any{"args": args}, &v); err != nil {
		return err
	}
	if v.Err != nil {
		return &httpjson.Error{Kind: analysis.Rejected, Detail: *v.Err}
	}
	if len(v.Ok) == 0 {
		return httpjson.Unparseable("%s: response is neither Ok nor Err", method)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(v.Ok, out); err != nil {
		return httpjson.Unparseable("%s: decoding Ok: %v", method, err)
	}
	return nil
}

// Call runs verify_identity for the principal in req.Token.
func (c *Client) Call(ctx context.Context, req analysis.Request) analysis.Result {
	if req.Token == "" {
		return analysis.Failure(name, analysis.Rejected, "no principal supplied")
	}
	var rep identity.CanisterReport
	if err := c.invoke(ctx, c.cfg.IdentityCanister, "verify_identity", req.Token, nil, &rep); err != nil {
		return httpjson.Failure(name, err)
	}
	if rep.RiskLevel == "" {
		return analysis.Failure(name, analysis.Unparseable, "report has no risk_level")
	}
	raw, err := json.Marshal(rep)
	if err != nil {
		return analysis.Failure(name, analysis.Unparseable, err.Error())
	}
	return analysis.Success(name, string(raw))
}

// Check reads the gateway status endpoint.
func (c *Client) Check(ctx context.Context) error {
	if c.cfg.GatewayURL == "" {
		return analysis.ErrNotConfigured
	}
	return c.http.GetJSON(ctx, c.cfg.GatewayURL+"/api/v2/status", nil, nil)
}

func (c *Client) WhoAmI(ctx context.Context, principal string) (*identity.UserProfile, error) {
	var p *identity.UserProfile
	if err := c.invoke(ctx, c.cfg.IdentityCanister, "who_am_i", principal, nil, &p); err != nil {
		return nil, fmt.Errorf("who_am_i: %w", err)
	}
	return p, nil
}

func (c *Client) UpdateTrustScore(ctx context.Context, principal string, score int) (string, error) {
	var msg string
	if err := c.invoke(ctx, c.cfg.IdentityCanister, "update_trust_score", principal, []any{score}, &msg); err != nil {
		return "", fmt.Errorf("update_trust_score: %w", err)
	}
	return msg, nil
}

func (c *Client) SetNickname(ctx context.Context, principal, nickname string) (string, error) {
	var msg string
	if err := c.invoke(ctx, c.cfg.IdentityCanister, "set_nickname", principal, []any{nickname}, &msg); err != nil {
		return "", fmt.Errorf("set_nickname: %w", err)
	}
	return msg, nil
}

// Stats decodes get_stats, a vector of [name, count] pairs.
func (c *Client) Stats(ctx context.Context, principal string) (map[string]uint64, error) {
	var pairs [][2]json.RawMessage
	if err := c.invoke(ctx, c.cfg.IdentityCanister, "get_stats", principal, nil, &pairs); err != nil {
		return nil, fmt.Errorf("get_stats: %w", err)
	}
	out := make(map[string]uint64, len(pairs))
	for _, p := range pairs {
		var k string
		var v uint64
		if err := json.Unmarshal(p[0], &k); err != nil {
			return nil, fmt.Errorf("get_stats: key: %w", err)
		}
		if err := json.Unmarshal(p[1], &v); err != nil {
			return nil, fmt.Errorf("get_stats: %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// Address returns the wallet address of owner, or of the gateway's default
// identity when owner is empty.
func (c *Client) Address(ctx context.Context, owner string) (string, error) {
	var addr string
	if err := c.invoke(ctx, c.cfg.WalletCanister, "get_address", owner, []any{optional(owner)}, &addr); err != nil {
		return "", fmt.Errorf("get_address: %w", err)
	}
	return addr, nil
}

func (c *Client) Balance(ctx context.Context, owner string) (uint64, error) {
	var sats uint64
	if err := c.invoke(ctx, c.cfg.WalletCanister, "get_balance", owner, []any{optional(owner)}, &sats); err != nil {
		return 0, fmt.Errorf("get_balance: %w", err)
	}
	return sats, nil
}

func (c *Client) Send(ctx context.Context, caller, destination string, sats uint64) (string, error) {
	var txid string
	if err := c.invoke(ctx, c.cfg.WalletCanister, "send_btc", caller, []any{destination, sats}, &txid); err != nil {
		return "", fmt.Errorf("send_btc: %w", err)
	}
	return txid, nil
}

// optional renders a Candid opt as a zero- or one-element list.
func optional(s string) []string {
	if s == "" {
		return []string{}
	}
	return []string{s}
}
