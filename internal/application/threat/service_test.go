package threat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/osint-cafe/internal/application/chain"
	domain "github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
)

type stub struct {
	name  string
	res   domain.Result
	calls int
	text  string
}

func (s *stub) Name() string { return s.name }

func (s *stub) Call(_ context.Context, req domain.Request) domain.Result {
	s.calls++
	s.text = req.Text
	return s.res
}

func one(c domain.Capability, p *stub) *chain.Chain {
	return chain.New(c, []domain.Provider{p})
}

func TestURLReputation(t *testing.T) {
	for name, tc := range map[string]struct {
		st   URLStats
		want int
	}{
		"no verdicts":   {URLStats{}, 50},
		"all harmless":  {URLStats{Harmless: 70}, 100},
		"mostly clean":  {URLStats{Harmless: 60, Undetected: 30, Malicious: 10}, 50},
		"all malicious": {URLStats{Malicious: 5, Suspicious: 5}, 0},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, URLReputation(tc.st))
		})
	}
}

func TestAnalyzeURL(t *testing.T) {
	p := &stub{name: "virustotal", res: domain.Success("virustotal", `{"harmless":8,"malicious":2,"categories":["phishing site"],"phishing":true}`)}
	svc := NewService(one(domain.CapURLReputation, p), nil, nil)

	out, err := svc.AnalyzeURL(context.Background(), " https://bit.ly/x ")
	require.NoError(t, err)

	assert.False(t, out.IsDegraded())
	assert.Equal(t, "https://bit.ly/x", p.text)
	assert.Equal(t, 60, out.Report.Reputation)
	assert.Equal(t, 60, out.Report.Score)
	assert.False(t, out.Report.Safe)
	assert.True(t, out.Report.MalwareDetected)
	assert.True(t, out.Report.PhishingDetected)
	assert.Contains(t, out.Report.Flags, "Reported as phishing")
}

func TestAnalyzeURL_FailureIsNeutral(t *testing.T) {
	p := &stub{name: "virustotal", res: domain.Failure("virustotal", domain.Rejected, "status 404: url unknown, submitted for analysis")}
	svc := NewService(one(domain.CapURLReputation, p), nil, nil)

	out, err := svc.AnalyzeURL(context.Background(), "http://example.com")
	require.NoError(t, err)

	require.True(t, out.IsDegraded())
	assert.Equal(t, domain.Rejected, out.Degraded.Reason)
	assert.Equal(t, NeutralScore, out.Report.Score)
	assert.NotNil(t, out.Report.Categories)
}

func TestAnalyzeURL_Invalid(t *testing.T) {
	p := &stub{name: "virustotal"}
	svc := NewService(one(domain.CapURLReputation, p), nil, nil)

	for _, in := range []string{"", "example.com", "ftp://example.com/file", "http://"} {
		_, err := svc.AnalyzeURL(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidInput, in)
	}
	assert.Zero(t, p.calls)
}

func TestAnalyzeIP(t *testing.T) {
	p := &stub{name: "abuseipdb", res: domain.Success("abuseipdb", `{"abuseConfidence":90,"countryCode":"NG","isp":"Example ISP","totalReports":12,"categories":[7,18,99]}`)}
	svc := NewService(nil, one(domain.CapIPReputation, p), nil)

	out, err := svc.AnalyzeIP(context.Background(), "203.0.113.9")
	require.NoError(t, err)

	assert.Equal(t, 10, out.Report.Reputation)
	assert.True(t, out.Report.Blacklisted)
	assert.Equal(t, "NG", out.Report.Country)
	assert.Equal(t, []string{"Phishing", "Brute-Force", "Category 99"}, out.Report.ThreatTypes)
	assert.Len(t, out.Report.Flags, 2)
}

func TestAnalyzeIP_BlacklistBoundary(t *testing.T) {
	p := &stub{name: "abuseipdb", res: domain.Success("abuseipdb", `{"abuseConfidence":75}`)}
	svc := NewService(nil, one(domain.CapIPReputation, p), nil)

	out, err := svc.AnalyzeIP(context.Background(), "2001:db8::1")
	require.NoError(t, err)
	assert.False(t, out.Report.Blacklisted)
	assert.Equal(t, 25, out.Report.Reputation)
}

func TestAnalyzeIP_Invalid(t *testing.T) {
	svc := NewService(nil, nil, nil)
	_, err := svc.AnalyzeIP(context.Background(), "999.1.1.1")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAnalyzeIP_NoChainIsNeutral(t *testing.T) {
	svc := NewService(nil, nil, nil)
	out, err := svc.AnalyzeIP(context.Background(), "198.51.100.1")
	require.NoError(t, err)
	assert.Equal(t, domain.Unconfigured, out.Degraded.Reason)
	assert.Equal(t, NeutralScore, out.Report.Score)
}

func TestAnalyzeEmail(t *testing.T) {
	svc := NewService(nil, nil, nil)

	clean, err := svc.AnalyzeEmail("jane.doe@example.com")
	require.NoError(t, err)
	assert.True(t, clean.Safe)
	assert.Equal(t, 100, clean.Reputation)
	assert.Equal(t, "example.com", clean.Domain)
	assert.Empty(t, clean.Flags)

	burner, err := svc.AnalyzeEmail("someone@Mailinator.com")
	require.NoError(t, err)
	assert.True(t, burner.Disposable)
	assert.False(t, burner.Safe)
	assert.Equal(t, 70, burner.Score)

	sketchy, err := svc.AnalyzeEmail("noreply12345678@example.com")
	require.NoError(t, err)
	assert.False(t, sketchy.Safe)
	assert.Equal(t, 65, sketchy.Reputation)

	_, err = svc.AnalyzeEmail("not-an-email")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
