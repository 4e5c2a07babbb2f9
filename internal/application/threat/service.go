// Package threat scores URLs, IP addresses and email addresses a match has shared.
package threat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/osint-cafe/internal/application/audit"
	"github.com/bryanwahyu/osint-cafe/internal/application/chain"
	domain "github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
	auditdomain "github.com/bryanwahyu/osint-cafe/internal/domain/audit"
)

// ErrInvalidInput means the URL, IP or email could not be parsed at all.
var ErrInvalidInput = errors.New("invalid input")

// NeutralScore is reported when no reputation data could be fetched.
const NeutralScore = 50

// BlacklistThreshold is the abuse confidence above which an IP counts as blacklisted.
const BlacklistThreshold = 75

type URLReport struct {
	domain.Report
	URL              string   `json:"url"`
	Safe             bool     `json:"safe"`
	Categories       []string `json:"categories"`
	Reputation       int      `json:"reputation"`
	MalwareDetected  bool     `json:"malwareDetected"`
	PhishingDetected bool     `json:"phishingDetected"`
}

type IPReport struct {
	domain.Report
	IP          string   `json:"ip"`
	Reputation  int      `json:"reputation"`
	Country     string   `json:"country"`
	ISP         string   `json:"isp"`
	ThreatTypes []string `json:"threatTypes"`
	Blacklisted bool     `json:"blacklisted"`
}

type EmailReport struct {
	domain.Report
	Email      string `json:"email"`
	Safe       bool   `json:"safe"`
	Disposable bool   `json:"disposable"`
	Reputation int    `json:"reputation"`
	Domain     string `json:"domain"`
}

// URLStats is the url-reputation payload: engine verdict counts.
type URLStats struct {
	Harmless   int      `json:"harmless"`
	Malicious  int      `json:"malicious"`
	Suspicious int      `json:"suspicious"`
	Undetected int      `json:"undetected"`
	Categories []string `json:"categories"`
	Phishing   bool     `json:"phishing"`
}

// IPStats is the ip-reputation payload.
type IPStats struct {
	AbuseConfidence int    `json:"abuseConfidence"`
	CountryCode     string `json:"countryCode"`
	ISP             string `json:"isp"`
	TotalReports    int    `json:"totalReports"`
	Categories      []int  `json:"categories"`
}

type Service struct {
	URLReputation *chain.Chain
	IPReputation  *chain.Chain
	Audit         *audit.Recorder
	Logger        *zap.Logger
}

func NewService(urlChain, ipChain *chain.Chain, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if urlChain == nil {
		urlChain = chain.New(domain.CapURLReputation, nil)
	}
	if ipChain == nil {
		ipChain = chain.New(domain.CapIPReputation, nil)
	}
	return &Service{URLReputation: urlChain, IPReputation: ipChain, Audit: audit.NewRecorder(nil, nil, logger), Logger: logger}
}

// AnalyzeURL looks the URL up in the url-reputation chain.
func (s *Service) AnalyzeURL(ctx context.Context, raw string) (domain.Outcome[URLReport], error) {
	target := strings.TrimSpace(raw)
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.Outcome[URLReport]{}, fmt.Errorf("%w: %q is not an http(s) URL", ErrInvalidInput, raw)
	}
	start := time.Now()

	exec := s.URLReputation.Execute(ctx, domain.Request{Capability: domain.CapURLReputation, Text: target})
	out := domain.Outcome[URLReport]{Provider: exec.Result.Provider}
	var stats URLStats
	if exec.Result.OK {
		if err := json.Unmarshal([]byte(exec.Result.Raw), &stats); err != nil {
			out.Degraded = &domain.Degraded{Reason: domain.Unparseable, Detail: err.Error()}
		}
	} else {
		out.Degraded = &domain.Degraded{Reason: exec.Result.Reason, Detail: exec.Result.Detail}
	}

	if out.Degraded != nil {
		out.Report = URLReport{
			Report:     domain.NewReport(NeutralScore, []string{"URL reputation unavailable"}, []string{"Do not enter credentials on links received from matches"}),
			URL:        target,
			Categories: []string{},
			Reputation: NeutralScore,
		}
	} else {
		out.Report = urlReport(target, stats)
	}
	s.record(ctx, auditdomain.FeatureURL, domain.CapURLReputation, out.Report.Score, out.Degraded, out.Provider, start, exec.Attempts)
	return out, nil
}

func urlReport(target string, st URLStats) URLReport {
	rep := URLReputation(st)
	var flags []string
	if st.Malicious > 0 {
		flags = append(flags, fmt.Sprintf("Flagged malicious by %d engines", st.Malicious))
	}
	if st.Suspicious > 0 {
		flags = append(flags, fmt.Sprintf("Flagged suspicious by %d engines", st.Suspicious))
	}
	if st.Phishing {
		flags = append(flags, "Reported as phishing")
	}
	safe := st.Malicious == 0 && st.Suspicious == 0
	recs := []string{"Link looks clean, still avoid entering credentials"}
	if !safe {
		recs = []string{"Do not open this link", "Report the sender on the dating platform"}
	}
	cats := st.Categories
	if cats == nil {
		cats = []string{}
	}
	return URLReport{
		Report:           domain.NewReport(rep, flags, recs),
		URL:              target,
		Safe:             safe,
		Categories:       cats,
		Reputation:       rep,
		MalwareDetected:  st.Malicious > 0,
		PhishingDetected: st.Phishing,
	}
}

// URLReputation is (harmless - malicious - suspicious) / total as a percentage,
// clamped to [0,100]. No verdicts at all is neutral.
func URLReputation(st URLStats) int {
	total := st.Harmless + st.Malicious + st.Suspicious + st.Undetected
	if total == 0 {
		return NeutralScore
	}
	safeRatio := float64(st.Harmless) / float64(total)
	threatRatio := float64(st.Malicious+st.Suspicious) / float64(total)
	return domain.ClampScore(int(math.Round((safeRatio - threatRatio) * 100)))
}

// AnalyzeIP looks the address up in the ip-reputation chain.
func (s *Service) AnalyzeIP(ctx context.Context, raw string) (domain.Outcome[IPReport], error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return domain.Outcome[IPReport]{}, fmt.Errorf("%w: %q is not an IP address", ErrInvalidInput, raw)
	}
	start := time.Now()

	exec := s.IPReputation.Execute(ctx, domain.Request{Capability: domain.CapIPReputation, Text: addr.String()})
	out := domain.Outcome[IPReport]{Provider: exec.Result.Provider}
	var rep IPStats
	if exec.Result.OK {
		if err := json.Unmarshal([]byte(exec.Result.Raw), &rep); err != nil {
			out.Degraded = &domain.Degraded{Reason: domain.Unparseable, Detail: err.Error()}
		}
	} else {
		out.Degraded = &domain.Degraded{Reason: exec.Result.Reason, Detail: exec.Result.Detail}
	}

	if out.Degraded != nil {
		out.Report = IPReport{
			Report:      domain.NewReport(NeutralScore, []string{"IP reputation unavailable"}, nil),
			IP:          addr.String(),
			Reputation:  NeutralScore,
			ThreatTypes: []string{},
		}
	} else {
		out.Report = ipReport(addr.String(), rep)
	}
	s.record(ctx, auditdomain.FeatureIP, domain.CapIPReputation, out.Report.Score, out.Degraded, out.Provider, start, exec.Attempts)
	return out, nil
}

func ipReport(ip string, r IPStats) IPReport {
	reputation := domain.ClampScore(100 - r.AbuseConfidence)
	blacklisted := r.AbuseConfidence > BlacklistThreshold
	types := make([]string, 0, len(r.Categories))
	for _, c := range r.Categories {
		types = append(types, CategoryName(c))
	}
	var flags []string
	if blacklisted {
		flags = append(flags, fmt.Sprintf("Blacklisted: %d%% abuse confidence", r.AbuseConfidence))
	}
	if r.TotalReports > 0 {
		flags = append(flags, fmt.Sprintf("%d abuse reports", r.TotalReports))
	}
	return IPReport{
		Report:      domain.NewReport(reputation, flags, nil),
		IP:          ip,
		Reputation:  reputation,
		Country:     r.CountryCode,
		ISP:         r.ISP,
		ThreatTypes: types,
		Blacklisted: blacklisted,
	}
}

var abuseCategories = map[int]string{
	3: "Fraud Orders", 4: "DDoS Attack", 5: "FTP Brute-Force", 6: "Ping of Death",
	7: "Phishing", 8: "Fraud VoIP", 9: "Open Proxy", 10: "Web Spam", 11: "Email Spam",
	12: "Blog Spam", 13: "VPN IP", 14: "Port Scan", 15: "Hacking", 16: "SQL Injection",
	17: "Spoofing", 18: "Brute-Force", 19: "Bad Web Bot", 20: "Exploited Host",
	21: "Web App Attack", 22: "SSH", 23: "IoT Targeted",
}

// CategoryName names an AbuseIPDB report category.
func CategoryName(id int) string {
	if n, ok := abuseCategories[id]; ok {
		return n
	}
	return fmt.Sprintf("Category %d", id)
}

// DisposableDomains are throwaway mailbox providers.
var DisposableDomains = []string{
	"10minutemail.com", "tempmail.org", "guerrillamail.com",
	"mailinator.com", "throwaway.email", "temp-mail.org",
}

var (
	emailShape      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	longDigits      = regexp.MustCompile(`[0-9]{8,}`)
	longLetters     = regexp.MustCompile(`[a-z]{20,}`)
	specialRun      = regexp.MustCompile(`[.\-_]{3,}`)
	sixDigitsOrMore = regexp.MustCompile(`\d{6,}`)
)

// AnalyzeEmail runs locally; no provider is involved.
func (s *Service) AnalyzeEmail(raw string) (EmailReport, error) {
	email := strings.TrimSpace(raw)
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return EmailReport{}, fmt.Errorf("%w: %q is not an email address", ErrInvalidInput, raw)
	}
	host := strings.ToLower(email[at+1:])

	disposable := false
	for _, d := range DisposableDomains {
		if host == d {
			disposable = true
			break
		}
	}
	safe := EmailSafe(email)
	reputation := EmailReputation(email)

	var flags []string
	if disposable {
		flags = append(flags, "Disposable email provider")
	}
	if !safe {
		flags = append(flags, "Suspicious address pattern")
	}
	score := reputation
	if disposable {
		score -= 30
	}
	return EmailReport{
		Report:     domain.NewReport(score, flags, nil),
		Email:      email,
		Safe:       safe && !disposable,
		Disposable: disposable,
		Reputation: reputation,
		Domain:     host,
	}, nil
}

// EmailSafe is a syntax and pattern check.
func EmailSafe(email string) bool {
	if !emailShape.MatchString(email) {
		return false
	}
	for _, p := range []*regexp.Regexp{longDigits, longLetters, specialRun} {
		if p.MatchString(email) {
			return false
		}
	}
	return true
}

// EmailReputation starts at 100 and deducts for no-reply senders, long digit runs and
// very long local parts.
func EmailReputation(email string) int {
	score := 100
	if strings.Contains(email, "noreply") || strings.Contains(email, "donotreply") {
		score -= 20
	}
	if sixDigitsOrMore.MatchString(email) {
		score -= 15
	}
	if local, _, _ := strings.Cut(email, "@"); len(local) > 20 {
		score -= 10
	}
	return domain.ClampScore(score)
}

func (s *Service) record(ctx context.Context, feature auditdomain.Feature, capability domain.Capability, score int,
	degraded *domain.Degraded, provider string, start time.Time, attempts []domain.Result) {
	if degraded != nil {
		s.Logger.Warn("reputation lookup degraded", zap.String("feature", string(feature)),
			zap.String("reason", string(degraded.Reason)), zap.String("detail", degraded.Detail))
	}
	s.Audit.Record(ctx, s.Audit.NewID(), audit.Entry{
		Feature:    feature,
		Capability: capability,
		Score:      score,
		Degraded:   degraded,
		Provider:   provider,
		Duration:   time.Since(start),
		Attempts:   attempts,
	})
}
