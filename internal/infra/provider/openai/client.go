// Package openai calls OpenAI-compatible chat completion APIs (OpenAI, DeepSeek).
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
	"github.com/bryanwahyu/osint-cafe/internal/infra/provider/httpjson"
)

const maxTokens = 1000

const systemPrompt = "You are a dating-safety analyst. Reply with one JSON object only, no markdown."

type Config struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	api   *openai.Client
	name  string
	model string
	tmo   time.Duration
}

func NewClient(cfg Config) *Client {
	c := &Client{name: cfg.Name, model: cfg.Model, tmo: cfg.Timeout}
	if c.name == "" {
		c.name = "openai"
	}
	if c.model == "" {
		c.model = "gpt-4o-mini"
	}
	if cfg.APIKey == "" {
		return c
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	c.api = openai.NewClientWithConfig(oc)
	return c
}

func (c *Client) Name() string { return c.name }

func (c *Client) Call(ctx context.Context, req analysis.Request) analysis.Result {
	if c.api == nil {
		return analysis.Failure(c.name, analysis.Unconfigured, analysis.ErrNotConfigured.Error())
	}
	if c.tmo > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.tmo)
		defer cancel()
	}

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Text}
	if req.Capability == analysis.CapImageRisk {
		if len(req.Image) == 0 {
			return analysis.Failure(c.name, analysis.Rejected, "no image supplied")
		}
		mime := req.ImageMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		user = openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: req.Text},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(req.Image),
				}},
			},
		}
	}

	system := systemPrompt
	if req.System != "" {
		system = req.System
	}
	creq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			user,
		},
	}
	if req.Capability == analysis.CapAssistant {
		creq.Temperature = 0.7
	} else {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	// Reasoning models (o1/o3/o4/gpt-5*) take MaxCompletionTokens instead of MaxTokens
	if isReasoning(c.model) {
		creq.MaxCompletionTokens = maxTokens
	} else {
		creq.MaxTokens = maxTokens
	}

	resp, err := c.api.CreateChatCompletion(ctx, creq)
	if err != nil {
		return c.failure(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return analysis.Failure(c.name, analysis.Unparseable, "empty completion")
	}
	return analysis.Success(c.name, resp.Choices[0].Message.Content)
}

// Check lists models, which is free and needs a valid key.
func (c *Client) Check(ctx context.Context) error {
	if c.api == nil {
		return analysis.ErrNotConfigured
	}
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("%s list models: %w", c.name, err)
	}
	return nil
}

func (c *Client) failure(err error) analysis.Result {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return analysis.Failure(c.name, analysis.Rejected,
			fmt.Sprintf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return analysis.Failure(c.name, analysis.Rejected,
			fmt.Sprintf("status %d: %v", reqErr.HTTPStatusCode, reqErr.Err))
	}
	var synErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &synErr) || errors.As(err, &typeErr) {
		return analysis.Failure(c.name, analysis.Unparseable, err.Error())
	}
	return analysis.Failure(c.name, httpjson.Classify(err), err.Error())
}

func isReasoning(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}
