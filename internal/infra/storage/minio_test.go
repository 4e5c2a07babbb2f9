package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Put(t *testing.T) {
	var uploaded []byte
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead || (r.Method == http.MethodGet && strings.Contains(r.URL.RawQuery, "location")):
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut:
			contentType = r.Header.Get("Content-Type")
			uploaded, _ = io.ReadAll(r.Body)
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(srv.Close)

	endpoint := strings.TrimPrefix(srv.URL, "http://")
	s, err := New(context.Background(), endpoint, "us-east-1", "evidence", "key", "secret", false)
	require.NoError(t, err)

	url, err := s.Put(context.Background(), "images/abc.png", []byte("png-bytes"), "image/png")
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/evidence/images/abc.png", url)
	assert.Equal(t, "image/png", contentType)
	assert.Contains(t, string(uploaded), "png-bytes")
}
