// Package httpjson maps one HTTP JSON exchange onto the provider error taxonomy.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
)

// maxBody caps how much of a provider response is read.
const maxBody = 4 << 20

// Client is shared by the plain-HTTP providers.
type Client struct {
	HTTP    *http.Client
	Timeout time.Duration
}

// New returns a client with the given per-call timeout.
func New(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{}, Timeout: timeout}
}

// Error is a failed exchange already classified into the taxonomy.
type Error struct {
	Kind   analysis.ErrorKind
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Kind, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Failure converts err into a failed Result for provider.
func Failure(provider string, err error) analysis.Result {
	var he *Error
	if errors.As(err, &he) {
		detail := he.Detail
		if he.Status != 0 {
			detail = fmt.Sprintf("status %d: %s", he.Status, he.Detail)
		}
		return analysis.Failure(provider, he.Kind, detail)
	}
	return analysis.Failure(provider, Classify(err), err.Error())
}

// Classify maps an SDK or transport error onto the taxonomy. Anything that is
// not a timeout, cancellation or network error counts as a rejection.
func Classify(err error) analysis.ErrorKind {
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return analysis.Unreachable
	case errors.As(err, &ne):
		return analysis.Unreachable
	default:
		return analysis.Rejected
	}
}

// Do sends req with the client timeout and returns the body of a 2xx response.
func (c *Client) Do(ctx context.Context, req *http.Request) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}

	resp, err := hc.Do(req.WithContext(ctx))
	if err != nil {
		return nil, &Error{Kind: analysis.Unreachable, Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &Error{Kind: analysis.Unreachable, Detail: fmt.Sprintf("reading body: %v", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: analysis.Rejected, Status: resp.StatusCode, Detail: snippet(body)}
	}
	return body, nil
}

// PostJSON marshals payload, posts it and decodes a 2xx body into out.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, payload, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return &Error{Kind: analysis.Unparseable, Detail: fmt.Sprintf("encoding request: %v", err)}
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return &Error{Kind: analysis.Unconfigured, Detail: fmt.Sprintf("building request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(ctx, req, headers, out)
}

// GetJSON fetches url and decodes a 2xx body into out.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return &Error{Kind: analysis.Unconfigured, Detail: fmt.Sprintf("building request: %v", err)}
	}
	return c.send(ctx, req, headers, out)
}

func (c *Client) send(ctx context.Context, req *http.Request, headers map[string]string, out any) error {
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	body, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: analysis.Unparseable, Detail: fmt.Sprintf("decoding response: %v", err)}
	}
	return nil
}

// Unparseable builds the error for a 2xx body missing expected fields.
func Unparseable(format string, args ...any) error {
	return &Error{Kind: analysis.Unparseable, Detail: fmt.Sprintf(format, args...)}
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
