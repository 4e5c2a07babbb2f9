// Package gemini calls Google's Gemini models through the genai SDK.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
	"github.com/bryanwahyu/osint-cafe/internal/infra/provider/httpjson"
)

const name = "gemini"

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client builds the SDK client lazily on the first call so that a missing key
// never triggers the SDK's own environment lookup. A failed build is retried on the
// next call.
type Client struct {
	cfg    Config
	newAPI func(context.Context, *genai.ClientConfig) (*genai.Client, error)

	mu  sync.Mutex
	api *genai.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	return &Client{cfg: cfg, newAPI: genai.NewClient}
}

func (c *Client) Name() string { return name }

func (c *Client) client(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api != nil {
		return c.api, nil
	}
	cc := &genai.ClientConfig{
		APIKey:     c.cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{},
	}
	if c.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.cfg.BaseURL}
	}
	api, err := c.newAPI(ctx, cc)
	if err != nil {
		return nil, err
	}
	c.api = api
	return api, nil
}

func (c *Client) Call(ctx context.Context, req analysis.Request) analysis.Result {
	if c.cfg.APIKey == "" {
		return analysis.Failure(name, analysis.Unconfigured, analysis.ErrNotConfigured.Error())
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	api, err := c.client(ctx)
	if err != nil {
		return analysis.Failure(name, analysis.Unconfigured, err.Error())
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Text)}
	if req.Capability == analysis.CapImageRisk {
		if len(req.Image) == 0 {
			return analysis.Failure(name, analysis.Rejected, "no image supplied")
		}
		mime := req.ImageMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, genai.NewPartFromBytes(req.Image, mime))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	gc := &genai.GenerateContentConfig{}
	if req.Capability == analysis.CapAssistant {
		temp := float32(0.7)
		gc.Temperature = &temp
	} else {
		gc.ResponseMIMEType = "application/json"
	}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	resp, err := api.Models.GenerateContent(ctx, c.cfg.Model, contents, gc)
	if err != nil {
		return analysis.Failure(name, httpjson.Classify(err), err.Error())
	}
	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return analysis.Failure(name, analysis.Unparseable, "no candidates in response")
	}
	return analysis.Success(name, text)
}

// Check fetches the configured model's metadata.
func (c *Client) Check(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return analysis.ErrNotConfigured
	}
	api, err := c.client(ctx)
	if err != nil {
		return fmt.Errorf("gemini client: %w", err)
	}
	if _, err := api.Models.Get(ctx, c.cfg.Model, nil); err != nil {
		return fmt.Errorf("gemini get model %s: %w", c.cfg.Model, err)
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
