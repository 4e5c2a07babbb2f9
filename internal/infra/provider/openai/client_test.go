package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
)

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{Name: "deepseek", APIKey: "k", BaseURL: srv.URL + "/v1", Model: "deepseek-chat", Timeout: 2 * time.Second})
}

func TestCall_Unconfigured(t *testing.T) {
	c := NewClient(Config{})

	res := c.Call(context.Background(), analysis.Request{Capability: analysis.CapTextRisk, Text: "x"})

	assert.False(t, res.OK)
	assert.Equal(t, "openai", res.Provider)
	assert.Equal(t, analysis.Unconfigured, res.Reason)
	assert.ErrorIs(t, c.Check(context.Background()), analysis.ErrNotConfigured)
}

func TestCall_Success(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion(`{"overallRisk":"low"}`))
	})

	res := c.Call(context.Background(), analysis.Request{Capability: analysis.CapTextRisk, Text: "profile"})

	require.True(t, res.OK, res.Detail)
	assert.Equal(t, "deepseek", res.Provider)
	assert.Equal(t, `{"overallRisk":"low"}`, res.Raw)
	assert.Equal(t, "deepseek-chat", body["model"])
	assert.EqualValues(t, maxTokens, body["max_tokens"])
}

func TestCall_AssistantIsFreeTextWithCallerSystem(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("Use a video call."))
	})

	res := c.Call(context.Background(), analysis.Request{Capability: analysis.CapAssistant, System: "be brief", Text: "User: hi"})

	require.True(t, res.OK, res.Detail)
	assert.Equal(t, "Use a video call.", res.Raw)
	assert.NotContains(t, body, "response_format")
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "be brief", msgs[0].(map[string]any)["content"])
}

func TestCall_ImageIsSentAsDataURL(t *testing.T) {
	var raw string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		raw = string(b)
		_ = json.NewEncoder(w).Encode(completion(`{"riskLevel":"medium"}`))
	})

	res := c.Call(context.Background(), analysis.Request{
		Capability: analysis.CapImageRisk,
		Text:       "analyze",
		Image:      []byte{0xff, 0xd8, 0xff},
		ImageMIME:  "image/png",
	})

	require.True(t, res.OK, res.Detail)
	assert.Contains(t, raw, "data:image/png;base64,/9j/")
}

func TestCall_ImageWithoutBytesIsRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	res := c.Call(context.Background(), analysis.Request{Capability: analysis.CapImageRisk})

	assert.Equal(t, analysis.Rejected, res.Reason)
}

func TestCall_ServerErrorIsRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	})

	res := c.Call(context.Background(), analysis.Request{Capability: analysis.CapTextRisk, Text: "x"})

	assert.False(t, res.OK)
	assert.Equal(t, analysis.Rejected, res.Reason)
	assert.Contains(t, res.Detail, "401")
	assert.Empty(t, res.Raw)
}

func TestCall_EmptyChoicesIsUnparseable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	})

	res := c.Call(context.Background(), analysis.Request{Capability: analysis.CapTextRisk, Text: "x"})

	assert.Equal(t, analysis.Unparseable, res.Reason)
}

func TestCall_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := NewClient(Config{APIKey: "k", BaseURL: url + "/v1", Timeout: time.Second})

	res := c.Call(context.Background(), analysis.Request{Capability: analysis.CapTextRisk, Text: "x"})

	assert.Equal(t, analysis.Unreachable, res.Reason)
}

func TestIsReasoning(t *testing.T) {
	assert.True(t, isReasoning("o3-mini"))
	assert.True(t, isReasoning("gpt-5"))
	assert.False(t, isReasoning("gpt-4o-mini"))
	assert.False(t, isReasoning("deepseek-chat"))
}
