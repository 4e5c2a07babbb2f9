package abuseipdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
)

func TestCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/check", r.URL.Path)
		assert.Equal(t, "203.0.113.9", r.URL.Query().Get("ipAddress"))
		assert.Equal(t, "90", r.URL.Query().Get("maxAgeInDays"))
		assert.Equal(t, "k", r.Header.Get("Key"))
		_, _ = w.Write([]byte(`{"data":{"abuseConfidenceScore":88,"countryCode":"NL","isp":"Hosting BV","totalReports":12,
			"reports":[{"categories":[18,22]},{"categories":[22,14]}]}}`))
	}))
	defer srv.Close()

	res := NewClient(Config{APIKey: "k", BaseURL: srv.URL}).Call(context.Background(), analysis.Request{Text: "203.0.113.9"})

	require.True(t, res.OK, res.Detail)
	var r Report
	require.NoError(t, json.Unmarshal([]byte(res.Raw), &r))
	assert.Equal(t, 88, r.AbuseConfidence)
	assert.Equal(t, "NL", r.CountryCode)
	assert.Equal(t, []int{18, 22, 14}, r.Categories)
}

func TestCall_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":[{"detail":"ipAddress must be valid"}]}`))
	}))
	defer srv.Close()

	res := NewClient(Config{APIKey: "k", BaseURL: srv.URL}).Call(context.Background(), analysis.Request{Text: "nope"})
	assert.Equal(t, analysis.Rejected, res.Reason)
	assert.Contains(t, res.Detail, "422")

	assert.Equal(t, analysis.Unconfigured, NewClient(Config{}).Call(context.Background(), analysis.Request{}).Reason)
}
