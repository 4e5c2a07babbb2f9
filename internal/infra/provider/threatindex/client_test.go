package threatindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
)

func cluster(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(Config{Addresses: []string{srv.URL}, Timeout: 2 * time.Second})
}

func TestCall_Hits(t *testing.T) {
	var q map[string]any
	c := cluster(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scam-reports/_search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":2},"hits":[
			{"_source":{"name":"Jane Doe","description":"Asked for gift cards after two weeks","source":"forum"}},
			{"_source":{"name":"J. Doe","description":"Claimed to be deployed overseas"}}]}}`))
	})

	res := c.Call(context.Background(), analysis.Request{Capability: analysis.CapWebIntel, Text: "Jane Doe"})

	require.True(t, res.OK, res.Detail)
	assert.Equal(t, `2 community scam reports match "Jane Doe": Asked for gift cards after two weeks (forum); Claimed to be deployed overseas`, res.Raw)
	assert.EqualValues(t, 5, q["size"])
}

func TestCall_NoHitsIsStillSuccess(t *testing.T) {
	c := cluster(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":0},"hits":[]}}`))
	})

	res := c.Call(context.Background(), analysis.Request{Text: "Nobody"})

	require.True(t, res.OK)
	assert.Contains(t, res.Raw, "No community scam reports")
}

func TestCall_Failures(t *testing.T) {
	c := cluster(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"index_not_found_exception"},"status":404}`))
	})
	res := c.Call(context.Background(), analysis.Request{Text: "x"})
	assert.Equal(t, analysis.Rejected, res.Reason)
	assert.Contains(t, res.Detail, "index_not_found_exception")

	assert.Equal(t, analysis.Rejected, c.Call(context.Background(), analysis.Request{Text: "  "}).Reason)
	assert.Equal(t, analysis.Unconfigured, NewClient(Config{}).Call(context.Background(), analysis.Request{Text: "x"}).Reason)
}

func TestIndex(t *testing.T) {
	var doc ScamReport
	c := cluster(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	require.NoError(t, c.Index(context.Background(), ScamReport{Name: "Jane Doe", Description: "fake profile"}))
	assert.Equal(t, "Jane Doe", doc.Name)
}
