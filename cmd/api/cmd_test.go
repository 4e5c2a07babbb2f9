package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/osint-cafe/internal/application/probe"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConfigShow_Redacts(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OSINT_PROVIDERS_GEMINI_API_KEY", "AIza-super-secret")

	out, err := run(t, "config", "show")

	require.NoError(t, err)
	assert.NotContains(t, out, "AIza-super-secret")
	assert.Contains(t, out, "text-risk")
}

func TestConfigShow_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chains:\n  text-risk: [mystery]\n"), 0o600))

	_, err := run(t, "--config", path, "config", "show")

	assert.ErrorContains(t, err, "unknown provider")
}

func TestStatus_JSON(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OSINT_PROBE_PAUSE", "0s")

	out, err := run(t, "status", "--json")
	require.NoError(t, err)

	var results []probe.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.False(t, r.Success, r.Name)
		assert.Equal(t, "API key not configured", r.Message, r.Name)
	}
}

func TestStatus_Table(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := run(t, "status", "--name", "virustotal")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "PROVIDER"))
	assert.Contains(t, out, "virustotal")
	assert.Contains(t, out, "FAIL")
}

func TestReportsImport(t *testing.T) {
	var indexed atomic.Int32
	es := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		indexed.Add(1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	t.Cleanup(es.Close)

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("OSINT_PROVIDERS_THREATINDEX_ADDRESSES", es.URL)
	file := filepath.Join(dir, "reports.json")
	require.NoError(t, os.WriteFile(file, []byte(`[
		{"name":"Jane Doe","description":"asked for gift cards"},
		{"description":"no name, skipped"},
		{"name":"John Roe","description":"crypto investment pitch","source":"forum"}
	]`), 0o600))

	out, err := run(t, "reports", "import", file)

	require.NoError(t, err)
	assert.Contains(t, out, "indexed 2 of 3 reports")
	assert.EqualValues(t, 2, indexed.Load())
}

func TestReportsImport_BadFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := run(t, "reports", "import", "missing.json")
	assert.Error(t, err)
}
