package chain

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
)

type fakeProvider struct {
	name    string
	results []analysis.Result
	calls   atomic.Int32
	seen    []analysis.Request
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Call(_ context.Context, req analysis.Request) analysis.Result {
	n := int(f.calls.Add(1)) - 1
	f.seen = append(f.seen, req)
	if n >= len(f.results) {
		n = len(f.results) - 1
	}
	return f.results[n]
}

func ok(name, raw string) *fakeProvider {
	return &fakeProvider{name: name, results: []analysis.Result{analysis.Success(name, raw)}}
}

func fail(name string, kind analysis.ErrorKind, detail string) *fakeProvider {
	return &fakeProvider{name: name, results: []analysis.Result{analysis.Failure(name, kind, detail)}}
}

func TestExecute_ExpiredContextSkipsRemainingProviders(t *testing.T) {
	first := ok("gemini", `{"overallRisk":"low"}`)
	second := ok("cohere", `{"overallRisk":"low"}`)
	c := New(analysis.CapTextRisk, []analysis.Provider{first, second})
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	exec := c.Execute(ctx, analysis.Request{Text: "bio"})

	require.False(t, exec.Result.OK)
	assert.Equal(t, analysis.Unreachable, exec.Result.Reason)
	assert.Zero(t, first.calls.Load())
	assert.Zero(t, second.calls.Load())
	require.Len(t, exec.Attempts, 2)
	assert.Contains(t, exec.Attempts[0].Detail, "not attempted: context deadline exceeded")
}

func TestExecute_FirstSuccessStopsChain(t *testing.T) {
	first := ok("gemini", `{"overallRisk":"low"}`)
	second := ok("cohere", `{"overallRisk":"high"}`)
	c := New(analysis.CapTextRisk, []analysis.Provider{first, second})

	exec := c.Execute(context.Background(), analysis.Request{Text: "bio"})

	require.True(t, exec.Result.OK)
	assert.Equal(t, "gemini", exec.Result.Provider)
	assert.Equal(t, int32(1), first.calls.Load())
	assert.Equal(t, int32(0), second.calls.Load())
	assert.Len(t, exec.Attempts, 1)
}

func TestExecute_FallsThroughInOrder(t *testing.T) {
	a := fail("gemini", analysis.Unconfigured, "missing key")
	b := fail("openai", analysis.Rejected, "status 500")
	c3 := ok("cohere", "prose")
	c := New(analysis.CapTextRisk, []analysis.Provider{a, b, c3})

	exec := c.Execute(context.Background(), analysis.Request{Text: "bio"})

	require.True(t, exec.Result.OK)
	assert.Equal(t, "cohere", exec.Result.Provider)
	assert.Equal(t, "prose", exec.Result.Raw)
	require.Len(t, exec.Attempts, 3)
	assert.Equal(t, []string{"gemini", "openai", "cohere"},
		[]string{exec.Attempts[0].Provider, exec.Attempts[1].Provider, exec.Attempts[2].Provider})
}

func TestExecute_AllFailAggregatesDetailsInOrder(t *testing.T) {
	providers := []analysis.Provider{
		fail("gemini", analysis.Unreachable, "dial tcp: timeout"),
		fail("openai", analysis.Rejected, "status 401: bad key"),
		fail("cohere", analysis.Unparseable, "no generations"),
	}
	c := New(analysis.CapTextRisk, providers)

	exec := c.Execute(context.Background(), analysis.Request{})

	require.False(t, exec.Result.OK)
	assert.Equal(t, "chain:text-risk", exec.Result.Provider)
	assert.Empty(t, exec.Result.Raw)
	assert.Equal(t, analysis.Unparseable, exec.Result.Reason)

	d := exec.Result.Detail
	i1 := strings.Index(d, "dial tcp: timeout")
	i2 := strings.Index(d, "status 401: bad key")
	i3 := strings.Index(d, "no generations")
	require.True(t, i1 >= 0 && i2 >= 0 && i3 >= 0, d)
	assert.Less(t, i1, i2)
	assert.Less(t, i2, i3)
}

func TestExecute_AllUnconfigured(t *testing.T) {
	c := New(analysis.CapImageRisk, []analysis.Provider{
		fail("pica", analysis.Unconfigured, "API key not configured"),
		fail("openai", analysis.Unconfigured, "API key not configured"),
	})

	exec := c.Execute(context.Background(), analysis.Request{})

	assert.Equal(t, analysis.Unconfigured, exec.Result.Reason)
	assert.Contains(t, exec.Result.Detail, "pica: unconfigured")
	assert.Contains(t, exec.Result.Detail, "openai: unconfigured")
}

func TestExecute_EmptyChain(t *testing.T) {
	exec := New(analysis.CapWebIntel, nil).Execute(context.Background(), analysis.Request{})

	assert.False(t, exec.Result.OK)
	assert.Equal(t, analysis.Unconfigured, exec.Result.Reason)
	assert.Contains(t, exec.Result.Detail, "web-intel")
	assert.Empty(t, exec.Attempts)
}

func TestExecute_FailedAttemptNeverCarriesPayload(t *testing.T) {
	leaky := &fakeProvider{name: "leaky", results: []analysis.Result{{Provider: "leaky", Raw: "partial", Reason: analysis.Unparseable}}}
	c := New(analysis.CapTextRisk, []analysis.Provider{leaky, fail("next", analysis.Rejected, "nope")})

	exec := c.Execute(context.Background(), analysis.Request{})

	for _, a := range exec.Attempts {
		assert.Empty(t, a.Raw)
	}
	assert.Empty(t, exec.Result.Raw)
}

func TestExecute_StampsCapability(t *testing.T) {
	p := ok("p", "{}")
	New(analysis.CapIdentityVerify, []analysis.Provider{p}).Execute(context.Background(), analysis.Request{Capability: analysis.CapTextRisk})

	require.Len(t, p.seen, 1)
	assert.Equal(t, analysis.CapIdentityVerify, p.seen[0].Capability)
}

func TestExecute_RetriesOnlyUnreachable(t *testing.T) {
	flaky := &fakeProvider{name: "flaky", results: []analysis.Result{
		analysis.Failure("flaky", analysis.Unreachable, "reset"),
		analysis.Success("flaky", "done"),
	}}
	rejected := fail("strict", analysis.Rejected, "400")

	c := New(analysis.CapTextRisk, []analysis.Provider{rejected, flaky}, WithRetries(2, time.Millisecond))
	exec := c.Execute(context.Background(), analysis.Request{})

	require.True(t, exec.Result.OK)
	assert.Equal(t, int32(1), rejected.calls.Load())
	assert.Equal(t, int32(2), flaky.calls.Load())
}

func TestExecute_RetriesAreBounded(t *testing.T) {
	down := fail("down", analysis.Unreachable, "timeout")
	c := New(analysis.CapTextRisk, []analysis.Provider{down}, WithRetries(2, time.Millisecond))

	exec := c.Execute(context.Background(), analysis.Request{})

	assert.False(t, exec.Result.OK)
	assert.Equal(t, int32(3), down.calls.Load())
	assert.Equal(t, analysis.Unreachable, exec.Result.Reason)
}

func TestExecute_NoRetriesByDefault(t *testing.T) {
	down := fail("down", analysis.Unreachable, "timeout")
	New(analysis.CapTextRisk, []analysis.Provider{down}).Execute(context.Background(), analysis.Request{})

	assert.Equal(t, int32(1), down.calls.Load())
}
