package algorand

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
	"github.com/bryanwahyu/osint-cafe/internal/domain/identity"
)

func node(t *testing.T, created, last string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("X-Algo-API-Token"))
		switch r.URL.Path {
		case "/v2/status":
			_, _ = w.Write([]byte(`{"last-round":` + last + `}`))
		case "/v2/accounts/ACCT":
			_, _ = w.Write([]byte(created))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Token: "tok", Timeout: time.Second})
}

func TestIdentityAge(t *testing.T) {
	// one day of rounds is roughly 30857
	c := node(t, `{"created-at-round":1000000}`, "1000100")
	age, err := c.IdentityAge(context.Background(), "ACCT")
	require.NoError(t, err)
	assert.Equal(t, identity.AgeUnderMonth, age)

	c = node(t, `{"created-at-round":1000000}`, "20000000")
	age, err = c.IdentityAge(context.Background(), "ACCT")
	require.NoError(t, err)
	assert.Equal(t, identity.AgeYearPlus, age)
}

func TestIdentityAge_Errors(t *testing.T) {
	_, err := NewClient(Config{}).IdentityAge(context.Background(), "ACCT")
	assert.ErrorIs(t, err, analysis.ErrNotConfigured)

	_, err = node(t, `{"amount":0}`, "1").IdentityAge(context.Background(), "ACCT")
	assert.Error(t, err)

	_, err = node(t, `{}`, "1").IdentityAge(context.Background(), "OTHER")
	assert.Error(t, err)
}
