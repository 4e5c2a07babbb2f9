// Package analysis orchestrates the per-feature analyses: it runs the fallback chains,
// normalizes what comes back and always answers with a report, marking the ones that
// had to fall back to local defaults as degraded.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/osint-cafe/internal/application/audit"
	"github.com/bryanwahyu/osint-cafe/internal/application/chain"
	"github.com/bryanwahyu/osint-cafe/internal/application/normalize"
	"github.com/bryanwahyu/osint-cafe/internal/application/prompt"
	domain "github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
	auditdomain "github.com/bryanwahyu/osint-cafe/internal/domain/audit"
	"github.com/bryanwahyu/osint-cafe/internal/domain/identity"
)

// Sessions is the part of the identity manager the orchestrators need.
type Sessions interface {
	Snapshot(id string) (identity.Session, bool)
	SetTrustScore(id string, score int)
}

// Chains are the fallback chains per capability.
type Chains struct {
	TextRisk       *chain.Chain
	ImageRisk      *chain.Chain
	WebIntel       *chain.Chain
	IdentityVerify *chain.Chain
}

// Service holds no per-request state; concurrent calls share nothing mutable.
type Service struct {
	Chains   Chains
	Sessions Sessions
	Ages     identity.AgeEstimator
	Evidence auditdomain.EvidenceStore
	Audit    *audit.Recorder
	Logger   *zap.Logger
}

func NewService(chains Chains, sessions Sessions, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, c := range []**chain.Chain{&chains.TextRisk, &chains.ImageRisk, &chains.WebIntel, &chains.IdentityVerify} {
		if *c == nil {
			*c = chain.New("", nil)
		}
	}
	return &Service{Chains: chains, Sessions: sessions, Logger: logger, Audit: audit.NewRecorder(nil, nil, logger)}
}

const webIntelPreview = 100

// AnalyzeProfile runs the text-risk chain and, when a name is given, the web-intel
// chain concurrently. Web intel is best effort; only a text-risk failure degrades.
func (s *Service) AnalyzeProfile(ctx context.Context, p domain.Profile) domain.Outcome[domain.Report] {
	start := time.Now()
	var text, web chain.Execution

	var g errgroup.Group
	g.Go(func() error {
		text = s.Chains.TextRisk.Execute(ctx, domain.Request{Capability: domain.CapTextRisk, Text: prompt.Profile(p)})
		return nil
	})
	name := strings.TrimSpace(p.Name)
	if name != "" {
		g.Go(func() error {
			web = s.Chains.WebIntel.Execute(ctx, domain.Request{Capability: domain.CapWebIntel, Text: name})
			return nil
		})
	}
	_ = g.Wait()

	out := domain.Outcome[domain.Report]{Provider: text.Result.Provider}
	if text.Result.OK {
		out.Report, _ = normalize.Normalize(text.Result.Raw, normalize.RiskWords)
	} else {
		out.Report = domain.NewReport(domain.RiskMedium.Score(),
			[]string{"Automated analysis unavailable: " + string(text.Result.Reason)},
			normalize.CautionRecommendations)
		out.Degraded = degradedFrom(text.Result)
	}

	if web.Result.OK && strings.TrimSpace(web.Result.Raw) != "" {
		finding := "Web search: " + preview(web.Result.Raw, webIntelPreview) + "..."
		out.Report.Flags = append([]string{finding}, out.Report.Flags...)
	} else if name != "" {
		s.Logger.Debug("web intel skipped",
			zap.String("reason", string(web.Result.Reason)), zap.String("detail", web.Result.Detail))
	}

	s.finish(ctx, auditdomain.FeatureProfile, domain.CapTextRisk, out.Report.Score, out.Degraded, out.Provider, "", start, text.Attempts)
	return out
}

// AnalyzeConversation scores a chat transcript. The keyword heuristic stands in when
// the provider output has no usable JSON or no provider answered.
func (s *Service) AnalyzeConversation(ctx context.Context, messages []string) domain.Outcome[ConversationReport] {
	start := time.Now()
	transcript := prompt.Transcript(messages)
	indicators := normalize.Flags(normalize.Detect(transcript))

	out := domain.Outcome[ConversationReport]{}
	if transcript == "" {
		out.Report = keywordConversation(transcript, nil)
		out.Degraded = &domain.Degraded{Reason: domain.Rejected, Detail: "no messages to analyze"}
		s.finish(ctx, auditdomain.FeatureConversation, domain.CapTextRisk, out.Report.Score, out.Degraded, "", "", start, nil)
		return out
	}

	exec := s.Chains.TextRisk.Execute(ctx, domain.Request{Capability: domain.CapTextRisk, Text: prompt.Conversation(transcript)})
	out.Provider = exec.Result.Provider
	switch {
	case !exec.Result.OK:
		out.Report = keywordConversation(transcript, indicators)
		out.Degraded = degradedFrom(exec.Result)
	default:
		if a, ok := normalize.Decode(exec.Result.Raw); ok {
			out.Report = structuredConversation(a, indicators)
		} else {
			out.Report = keywordConversation(transcript, indicators)
		}
	}

	s.finish(ctx, auditdomain.FeatureConversation, domain.CapTextRisk, out.Report.Score, out.Degraded, out.Provider, "", start, exec.Attempts)
	return out
}

func structuredConversation(a normalize.Assessment, indicators []string) ConversationReport {
	likelihood := a.Likelihood()
	score := 100 - likelihood
	if !a.HasLikelihood() {
		score = a.Score()
		likelihood = 100 - score
	}
	risk, ok := a.Risk()
	if !ok {
		risk = riskForScore(score)
	}
	flags := append(append([]string{}, a.RedFlags...), a.RiskFactors...)
	flags = append(flags, indicators...)
	return ConversationReport{
		Report:              domain.NewReport(score, flags, a.Recommendations),
		ScamLikelihood:      likelihood,
		ManipulationTactics: nonNil(a.ManipulationTactics),
		ConversationRisk:    risk,
	}
}

func keywordConversation(transcript string, indicators []string) ConversationReport {
	kw := normalize.Keywords{}
	r := kw.Report(transcript)
	return ConversationReport{
		Report:              domain.NewReport(r.Score, append(r.Flags, indicators...), r.Recommendations),
		ScamLikelihood:      kw.Likelihood(transcript),
		ManipulationTactics: []string{"Keyword analysis only"},
		ConversationRisk:    normalize.RiskForCount(len(kw.Matches(transcript))),
	}
}

// riskForScore buckets a 0-100 safety score when the provider gave no category.
func riskForScore(score int) domain.RiskLevel {
	switch {
	case score < 40:
		return domain.RiskHigh
	case score < 70:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// AnalyzeImage checks one picture. Any failure reports high risk so an unchecked
// image is never presented as safe.
func (s *Service) AnalyzeImage(ctx context.Context, img domain.Image) domain.Outcome[ImageReport] {
	start := time.Now()
	id := s.Audit.NewID()

	out := domain.Outcome[ImageReport]{}
	if len(img.Data) == 0 {
		out.Report = failedImage("no image provided for analysis")
		out.Degraded = &domain.Degraded{Reason: domain.Rejected, Detail: "empty image"}
		s.finishID(ctx, id, auditdomain.FeatureImage, domain.CapImageRisk, out.Report.Score, out.Degraded, "", "", start, nil)
		return out
	}

	exec := s.Chains.ImageRisk.Execute(ctx, domain.Request{
		Capability: domain.CapImageRisk,
		Text:       prompt.Image(),
		Image:      img.Data,
		ImageMIME:  img.MIME,
	})
	out.Provider = exec.Result.Provider
	if exec.Result.OK {
		out.Report = parseImage(exec.Result.Raw)
	} else {
		out.Report = failedImage(exec.Result.Detail)
		out.Degraded = degradedFrom(exec.Result)
	}

	if s.Evidence != nil {
		url, err := s.Evidence.Put(ctx, auditdomain.EvidenceKey(id, img.MIME), img.Data, img.MIME)
		if err != nil {
			s.Logger.Warn("evidence upload failed", zap.Error(err))
		} else {
			out.Report.EvidenceURL = url
		}
	}

	s.finishID(ctx, id, auditdomain.FeatureImage, domain.CapImageRisk, out.Report.Score, out.Degraded,
		out.Provider, out.Report.EvidenceURL, start, exec.Attempts)
	return out
}

func parseImage(raw string) ImageReport {
	var a normalize.Assessment
	obj, found := normalize.ExtractJSON(raw)
	if !found || json.Unmarshal([]byte(obj), &a) != nil {
		return proseImage(raw)
	}
	risk, ok := a.Risk()
	if !ok {
		risk = domain.RiskMedium
	}
	r := ImageReport{
		IsAuthentic:          deref(a.IsAuthentic),
		FaceDetected:         deref(a.FaceDetected),
		MultiplePersons:      deref(a.MultiplePersons),
		ManipulationDetected: deref(a.ManipulationDetected),
		RiskLevel:            risk,
		Details:              a.Details,
	}
	if len(r.Details) == 0 {
		r.Details = []string{
			"Image analysis complete",
			"Risk level: " + string(risk),
			"Face detected: " + yesNo(r.FaceDetected),
			"Authenticity: " + authenticity(r.IsAuthentic),
		}
	}
	return withReport(r)
}

// proseImage reads the answer of a model that ignored the JSON instruction.
func proseImage(raw string) ImageReport {
	lower := strings.ToLower(raw)
	risk := domain.RiskLow
	switch {
	case strings.Contains(lower, "high risk"):
		risk = domain.RiskHigh
	case strings.Contains(lower, "medium risk"):
		risk = domain.RiskMedium
	}
	return withReport(ImageReport{
		IsAuthentic:          !strings.Contains(lower, "fake"),
		FaceDetected:         strings.Contains(lower, "face"),
		MultiplePersons:      strings.Contains(lower, "multiple"),
		ManipulationDetected: strings.Contains(lower, "manipulated"),
		RiskLevel:            risk,
		Details:              []string{preview(raw, 200)},
	})
}

func failedImage(detail string) ImageReport {
	return withReport(ImageReport{
		RiskLevel: domain.RiskHigh,
		Details:   []string{"Error: " + detail, "Please check image provider configuration"},
	})
}

func withReport(r ImageReport) ImageReport {
	r.Details = nonNil(r.Details)
	r.Report = domain.NewReport(r.RiskLevel.Score(), r.Details, normalize.CautionRecommendations)
	return r
}

// VerifyIdentity reports on the logged-in identity. Without an authenticated session
// the fixed unverified report is returned and nothing goes over the network.
func (s *Service) VerifyIdentity(ctx context.Context, sessionID string, p domain.Profile) domain.Outcome[IdentityReport] {
	start := time.Now()
	sess, ok := identity.Session{}, false
	if s.Sessions != nil {
		sess, ok = s.Sessions.Snapshot(sessionID)
	}
	if !ok || !sess.Authenticated || sess.Principal == "" {
		out := domain.Outcome[IdentityReport]{
			Report: IdentityReport{
				Report:     domain.NewReport(domain.RiskHigh.Score(), nil, []string{"Verify identity with Internet Identity before proceeding"}),
				RiskLevel:  domain.RiskHigh,
				VerifiedBy: "anonymous",
			},
			Degraded: &domain.Degraded{Reason: domain.Unauthenticated, Detail: identity.ErrUnauthenticated.Error()},
		}
		s.finish(ctx, auditdomain.FeatureIdentity, domain.CapIdentityVerify, out.Report.Score, out.Degraded, "", "", start, nil)
		return out
	}

	principal := sess.Principal
	exec := s.Chains.IdentityVerify.Execute(ctx, domain.Request{
		Capability: domain.CapIdentityVerify,
		Text:       principal,
		Token:      principal,
	})

	out := domain.Outcome[IdentityReport]{Provider: exec.Result.Provider}
	var remote identity.CanisterReport
	if exec.Result.OK {
		if err := json.Unmarshal([]byte(exec.Result.Raw), &remote); err != nil {
			out.Degraded = &domain.Degraded{Reason: domain.Unparseable, Detail: err.Error()}
		}
	} else {
		out.Degraded = degradedFrom(exec.Result)
	}

	base := domain.RiskLow
	var trust int
	var age, verifiedBy string
	var extra []string
	if out.Degraded == nil {
		trust, age, verifiedBy, extra = remote.TrustScore, remote.IdentityAge, remote.VerifiedBy, remote.Recommendations
		if lvl, ok := domain.ParseRiskLevel(remote.RiskLevel); ok {
			base = lvl
		}
	} else {
		trust = identity.LocalTrustScore(principal)
		age = s.identityAge(ctx, principal)
	}
	if verifiedBy == "" {
		verifiedBy = shortPrincipal(principal)
	}

	risk, factors := identityRisk(base, trust, age, len(p.Photos))
	recs := []string{
		"Identity verified through Internet Computer Protocol",
		fmt.Sprintf("Trust score: %d/100", trust),
		"Identity age: " + age,
	}
	recs = append(recs, extra...)
	out.Report = IdentityReport{
		Report:           domain.NewReport(risk.Score(), factors, recs),
		IdentityVerified: true,
		RiskLevel:        risk,
		TrustScore:       domain.ClampScore(trust),
		IdentityAge:      age,
		VerifiedBy:       verifiedBy,
	}
	s.Sessions.SetTrustScore(sessionID, out.Report.TrustScore)

	s.finish(ctx, auditdomain.FeatureIdentity, domain.CapIdentityVerify, out.Report.Score, out.Degraded, out.Provider, "", start, exec.Attempts)
	return out
}

// identityRisk applies the profile risk factors on top of base.
func identityRisk(base domain.RiskLevel, trust int, age string, photos int) (domain.RiskLevel, []string) {
	risk := base
	var factors []string
	if trust < 60 {
		factors = append(factors, "Low trust score for verifying identity")
		if risk == domain.RiskLow {
			risk = domain.RiskMedium
		}
	}
	if age == identity.AgeUnderMonth {
		factors = append(factors, "New identity - proceed with caution")
		if risk == domain.RiskLow {
			risk = domain.RiskMedium
		} else {
			risk = domain.RiskHigh
		}
	}
	if photos == 0 {
		factors = append(factors, "No profile photos - potential fake profile")
		risk = domain.RiskHigh
	}
	return risk, factors
}

func (s *Service) identityAge(ctx context.Context, principal string) string {
	if s.Ages != nil {
		age, err := s.Ages.IdentityAge(ctx, principal)
		if err == nil && age != "" {
			return age
		}
		s.Logger.Debug("ledger age lookup failed, using hash estimate", zap.Error(err))
	}
	return identity.AgeFromHash(principal)
}

func (s *Service) finish(ctx context.Context, feature auditdomain.Feature, capability domain.Capability, score int,
	degraded *domain.Degraded, provider, evidence string, start time.Time, attempts []domain.Result) {
	s.finishID(ctx, s.Audit.NewID(), feature, capability, score, degraded, provider, evidence, start, attempts)
}

func (s *Service) finishID(ctx context.Context, id auditdomain.RecordID, feature auditdomain.Feature, capability domain.Capability,
	score int, degraded *domain.Degraded, provider, evidence string, start time.Time, attempts []domain.Result) {
	elapsed := time.Since(start)
	if degraded != nil {
		s.Logger.Warn("analysis degraded",
			zap.String("feature", string(feature)),
			zap.String("reason", string(degraded.Reason)),
			zap.String("detail", degraded.Detail),
			zap.Duration("duration", elapsed))
	} else {
		s.Logger.Info("analysis completed",
			zap.String("feature", string(feature)),
			zap.String("provider", provider),
			zap.Int("score", score),
			zap.Duration("duration", elapsed))
	}
	s.Audit.Record(ctx, id, audit.Entry{
		Feature:     feature,
		Capability:  capability,
		Score:       score,
		Degraded:    degraded,
		Provider:    provider,
		EvidenceURL: evidence,
		Duration:    elapsed,
		Attempts:    attempts,
	})
}

func degradedFrom(r domain.Result) *domain.Degraded {
	return &domain.Degraded{Reason: r.Reason, Detail: r.Detail}
}

// preview cuts s to at most n runes.
func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func shortPrincipal(p string) string {
	if len(p) <= 8 {
		return p
	}
	return p[:8] + "..."
}

func deref(b *bool) bool { return b != nil && *b }

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func authenticity(genuine bool) string {
	if genuine {
		return "appears real"
	}
	return "suspicious"
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
