// Package threatindex searches a self-hosted Elasticsearch index of community
// scam reports for a subject name.
package threatindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
	"github.com/bryanwahyu/osint-cafe/internal/infra/provider/httpjson"
)

const name = "threatindex"

type Config struct {
	Addresses []string
	APIKey    string
	Username  string
	Password  string
	Index     string
	MaxHits   int
	Timeout   time.Duration
}

// ScamReport is one document in the index.
type ScamReport struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases,omitempty"`
	Description string   `json:"description"`
	Source      string   `json:"source,omitempty"`
	ReportedAt  string   `json:"reported_at,omitempty"`
}

type Client struct {
	cfg Config
	es  *elasticsearch.Client
	err error
}

func NewClient(cfg Config) *Client {
	if cfg.Index == "" {
		cfg.Index = "scam-reports"
	}
	if cfg.MaxHits <= 0 {
		cfg.MaxHits = 5
	}
	c := &Client{cfg: cfg}
	if len(cfg.Addresses) == 0 {
		return c
	}
	c.es, c.err = elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		APIKey:    cfg.APIKey,
		Username:  cfg.Username,
		Password:  cfg.Password,
		// the fallback chain owns retries
		DisableRetry: true,
		Transport:    &http.Transport{ResponseHeaderTimeout: cfg.Timeout},
	})
	return c
}

func (c *Client) Name() string { return name }

type searchResponse struct {
	Hits *struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source ScamReport `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func query(subject string, size int) map[string]any {
	return map[string]any{
		"size": size,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  subject,
				"fields": []string{"name^3", "aliases^2", "description"},
				"type":   "best_fields",
			},
		},
	}
}

// Call expects req.Text to hold the subject name. An empty hit list is still a
// successful lookup.
func (c *Client) Call(ctx context.Context, req analysis.Request) analysis.Result {
	if c.es == nil {
		if c.err != nil {
			return analysis.Failure(name, analysis.Unconfigured, c.err.Error())
		}
		return analysis.Failure(name, analysis.Unconfigured, "no elasticsearch addresses configured")
	}
	subject := strings.TrimSpace(req.Text)
	if subject == "" {
		return analysis.Failure(name, analysis.Rejected, "empty subject")
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(query(subject, c.cfg.MaxHits))
	if err != nil {
		return analysis.Failure(name, analysis.Unparseable, err.Error())
	}
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.cfg.Index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return analysis.Failure(name, httpjson.Classify(err), err.Error())
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return analysis.Failure(name, analysis.Unreachable, err.Error())
	}
	if res.IsError() {
		return analysis.Failure(name, analysis.Rejected, fmt.Sprintf("status %d: %s", res.StatusCode, strings.TrimSpace(string(raw))))
	}

	var sr searchResponse
	if err := json.Unmarshal(raw, &sr); err != nil || sr.Hits == nil {
		return analysis.Failure(name, analysis.Unparseable, "search response has no hits object")
	}
	return analysis.Success(name, summarize(subject, sr))
}

func summarize(subject string, sr searchResponse) string {
	if len(sr.Hits.Hits) == 0 {
		return fmt.Sprintf("No community scam reports match %q.", subject)
	}
	parts := make([]string, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		s := h.Source.Description
		if h.Source.Source != "" {
			s += " (" + h.Source.Source + ")"
		}
		parts = append(parts, s)
	}
	return fmt.Sprintf("%d community scam reports match %q: %s", sr.Hits.Total.Value, subject, strings.Join(parts, "; "))
}

// Check asks the cluster for its info.
func (c *Client) Check(ctx context.Context) error {
	if c.es == nil {
		if c.err != nil {
			return c.err
		}
		return analysis.ErrNotConfigured
	}
	res, err := c.es.Info(c.es.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch info: %s", res.Status())
	}
	return nil
}

// Index stores one report. Used by seeding tools and tests.
func (c *Client) Index(ctx context.Context, r ScamReport) error {
	if c.es == nil {
		return analysis.ErrNotConfigured
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	res, err := c.es.Index(c.cfg.Index, bytes.NewReader(b), c.es.Index.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch index: %s", res.Status())
	}
	return nil
}
