package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bryanwahyu/osint-cafe/internal/application/audit"
	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
)

var echoClient = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(ClientFromContext(r.Context())))
})

func TestClientKeyAuth(t *testing.T) {
	h := ClientKeyAuth([]string{"k1", "k2"})(echoClient)

	for name, tc := range map[string]struct {
		header string
		status int
		body   string
	}{
		"missing":    {"", http.StatusUnauthorized, ""},
		"wrong":      {"Bearer nope", http.StatusUnauthorized, ""},
		"bearer":     {"Bearer k2", http.StatusOK, "client-2"},
		"bare":       {"k1", http.StatusOK, "client-1"},
		"empty auth": {"Bearer ", http.StatusUnauthorized, ""},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/safety-tips", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestClientKeyAuth_NoKeysIsOpen(t *testing.T) {
	rec := httptest.NewRecorder()
	ClientKeyAuth(nil)(echoClient).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, 1)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "buckets are per key")

	now = now.Add(1500 * time.Millisecond)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.Allow("old")

	now = now.Add(idleBucket + time.Minute)
	rl.Allow("new")

	assert.Equal(t, 1, rl.Len())
}

func TestDeadline(t *testing.T) {
	var remaining time.Duration
	var hasDeadline bool
	h := Deadline(time.Minute)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		var dl time.Time
		dl, hasDeadline = r.Context().Deadline()
		remaining = time.Until(dl)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))

	require.True(t, hasDeadline)
	assert.LessOrEqual(t, remaining, time.Minute)
	assert.Greater(t, remaining, 50*time.Second)

	Deadline(0)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	assert.False(t, hasDeadline)
}

func TestRateLimit_Middleware(t *testing.T) {
	h := RateLimit(1, 0.01)(echoClient)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	first := httptest.NewRecorder()
	h.ServeHTTP(first, req)
	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	disabled := RateLimit(1, 0)(echoClient)
	for range 3 {
		rec := httptest.NewRecorder()
		disabled.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	m.Observe(audit.Entry{})
	m.Observe(audit.Entry{
		Degraded: &analysis.Degraded{Reason: analysis.Unreachable},
		Attempts: []analysis.Result{
			analysis.Failure("gemini", analysis.Unreachable, "timeout"),
			analysis.Failure("cohere", analysis.Rejected, "401"),
		},
	})

	rec := httptest.NewRecorder()
	m.Handler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.EqualValues(t, 2, got["requests_total"])
	assert.EqualValues(t, 1, got["requests_failed"])
	assert.EqualValues(t, 0, got["requests_in_progress"])
	assert.EqualValues(t, 2, got["analyses_total"])
	assert.EqualValues(t, 1, got["analyses_degraded"])
	assert.EqualValues(t, 2, got["provider_failures"])
}

type checkFunc func(context.Context) error

func (f checkFunc) Check(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	healthy := map[string]HealthChecker{
		"gemini": checkFunc(func(context.Context) error { return nil }),
		"pica":   checkFunc(func(context.Context) error { return fmt.Errorf("pica: %w", analysis.ErrNotConfigured) }),
	}
	rec := httptest.NewRecorder()
	HealthHandler(healthy)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unconfigured"`)

	healthy["database"] = checkFunc(func(context.Context) error { return errors.New("connection refused") })
	rec = httptest.NewRecorder()
	HealthHandler(healthy)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := AccessLog(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/missing", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "/v1/missing", fields["path"])
	assert.EqualValues(t, 404, fields["status"])
	assert.EqualValues(t, 4, fields["bytes"])
}

func TestValidateImage(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

	mime, err := ValidateImage(png, 1024)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	_, err = ValidateImage(png, 8)
	assert.ErrorContains(t, err, "limit")

	_, err = ValidateImage([]byte("just some text"), 1024)
	assert.ErrorContains(t, err, "unsupported image type")

	_, err = ValidateImage(nil, 1024)
	assert.Error(t, err)
}

func TestValidateMessages(t *testing.T) {
	out, err := ValidateMessages([]string{" hi\x00 ", "\x07bell"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hi", "bell"}, out)

	_, err = ValidateMessages(make([]string, MaxMessages+1))
	assert.Error(t, err)
}

func TestValidateNickname(t *testing.T) {
	assert.NoError(t, ValidateNickname("Jo"))
	assert.Error(t, ValidateNickname("  "))
	assert.Error(t, ValidateNickname(strings.Repeat("x", 33)))
}

func TestPaginationBounds(t *testing.T) {
	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 100, ValidateLimit(1000))
	assert.Equal(t, 7, ValidateDays(-1))
	assert.Equal(t, 365, ValidateDays(400))
	assert.Equal(t, 30, ValidateDays(30))
}
