package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appanalysis "github.com/bryanwahyu/osint-cafe/internal/application/analysis"
	"github.com/bryanwahyu/osint-cafe/internal/application/assistant"
	appaudit "github.com/bryanwahyu/osint-cafe/internal/application/audit"
	appidentity "github.com/bryanwahyu/osint-cafe/internal/application/identity"
	"github.com/bryanwahyu/osint-cafe/internal/application/probe"
	"github.com/bryanwahyu/osint-cafe/internal/application/threat"
	appwallet "github.com/bryanwahyu/osint-cafe/internal/application/wallet"
	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
	"github.com/bryanwahyu/osint-cafe/internal/domain/audit"
	"github.com/bryanwahyu/osint-cafe/internal/domain/identity"
	"github.com/bryanwahyu/osint-cafe/internal/domain/wallet"
	"github.com/bryanwahyu/osint-cafe/internal/middleware"
)

const (
	// SessionHeader carries the identity session id in both directions.
	SessionHeader = "X-Session-ID"
	// DegradedHeader names the failure kind when a report is a fallback default.
	DegradedHeader = "X-Analysis-Degraded"
	// ProviderHeader names the provider whose answer produced the report.
	ProviderHeader = "X-Analysis-Provider"
)

// Services are the use cases the router exposes. Any of them may be nil, in which
// case its routes answer 503.
type Services struct {
	Analysis  *appanalysis.Service
	Assistant *assistant.Service
	Threat    *threat.Service
	Identity  *appidentity.Manager
	Wallet    *appwallet.Service
	Probe     *probe.Service
	Audit     *appaudit.Recorder
}

type Options struct {
	Logger        *zap.Logger
	Metrics       *middleware.Metrics
	Health        map[string]middleware.HealthChecker
	CORSOrigins   []string
	ClientKeys    []string
	RateLimit     float64
	RateBurst     int
	MaxImageBytes int64

	// AnalysisTimeout bounds every /v1 request so degraded reports are written in time.
	AnalysisTimeout time.Duration
}

type Router struct {
	svc  Services
	opts Options
}

func NewRouter(svc Services, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = middleware.NewMetrics()
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = 8 << 20
	}
	r := &Router{svc: svc, opts: opts}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.AccessLog(opts.Logger.Named("http")))
	mux.Use(opts.Metrics.Middleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", SessionHeader},
		ExposedHeaders:   []string{SessionHeader, DegradedHeader, ProviderHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/healthz", middleware.LivenessHandler)
	mux.Get("/readyz", middleware.HealthHandler(opts.Health))
	mux.Get("/metrics", opts.Metrics.Handler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Use(middleware.ClientKeyAuth(opts.ClientKeys))
		rt.Use(middleware.RateLimit(opts.RateBurst, opts.RateLimit))
		rt.Use(middleware.Deadline(opts.AnalysisTimeout))

		rt.Get("/status", r.wrap(r.handleStatus))
		rt.Get("/safety-tips", r.wrap(r.handleSafetyTips))

		rt.Post("/analysis/profile", r.wrap(r.handleProfile))
		rt.Post("/analysis/conversation", r.wrap(r.handleConversation))
		rt.Post("/analysis/image", r.wrap(r.handleImage))

		rt.Post("/assistant", r.wrap(r.handleAssistant))

		rt.Post("/identity/login", r.wrap(r.handleLogin))
		rt.Post("/identity/logout", r.wrap(r.handleLogout))
		rt.Get("/identity/session", r.wrap(r.handleSession))
		rt.Post("/identity/verify", r.wrap(r.handleVerify))
		rt.Get("/identity/whoami", r.wrap(r.handleWhoAmI))
		rt.Post("/identity/trust-score", r.wrap(r.handleTrustScore))
		rt.Post("/identity/nickname", r.wrap(r.handleNickname))
		rt.Get("/identity/stats", r.wrap(r.handleStats))

		rt.Get("/wallet/address", r.wrap(r.handleWalletAddress))
		rt.Get("/wallet/balance", r.wrap(r.handleWalletBalance))
		rt.Post("/wallet/send", r.wrap(r.handleWalletSend))

		rt.Post("/threat/url", r.wrap(r.handleThreatURL))
		rt.Post("/threat/ip", r.wrap(r.handleThreatIP))
		rt.Post("/threat/email", r.wrap(r.handleThreatEmail))

		rt.Get("/audit", r.wrap(r.handleAuditList))
		rt.Get("/audit/summary", r.wrap(r.handleAuditSummary))
		rt.Get("/audit/{id}/failures", r.wrap(r.handleAuditFailures))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// requestError is a client mistake caught by the router itself.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

var errUnavailable = &requestError{status: http.StatusServiceUnavailable, msg: "service not configured"}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var re *requestError
		switch {
		case errors.As(err, &re):
			writeError(w, re.status, re.msg)
		case errors.Is(err, identity.ErrUnauthenticated), errors.Is(err, identity.ErrInvalidToken):
			writeError(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, wallet.ErrInvalidAddress), errors.Is(err, wallet.ErrInvalidAmount),
			errors.Is(err, threat.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, probe.ErrUnknownCheck):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			r.opts.Logger.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"error": msg})
}

// writeOutcome sends the report and surfaces degradation in headers only, so the
// body keeps the shape the UI expects.
func writeOutcome[T any](w http.ResponseWriter, o analysis.Outcome[T]) error {
	if o.Provider != "" {
		w.Header().Set(ProviderHeader, o.Provider)
	}
	if o.Degraded != nil {
		w.Header().Set(DegradedHeader, string(o.Degraded.Reason))
	}
	return writeJSON(w, http.StatusOK, o.Report)
}

func decode(req *http.Request, v any) error {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func sessionID(req *http.Request) string {
	return strings.TrimSpace(req.Header.Get(SessionHeader))
}

// GET /v1/status?name=
func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) error {
	if r.svc.Probe == nil {
		return errUnavailable
	}
	if name := req.URL.Query().Get("name"); name != "" {
		res, err := r.svc.Probe.RunOne(req.Context(), name)
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, res)
	}
	return writeJSON(w, http.StatusOK, r.svc.Probe.RunAll(req.Context()))
}

func (r *Router) handleSafetyTips(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, http.StatusOK, appanalysis.SafetyTips())
}

// POST /v1/analysis/profile
// Body: analysis.Profile
func (r *Router) handleProfile(w http.ResponseWriter, req *http.Request) error {
	if r.svc.Analysis == nil {
		return errUnavailable
	}
	var p analysis.Profile
	if err := decode(req, &p); err != nil {
		return err
	}
	p.Name = middleware.SanitizeString(p.Name)
	p.Bio = middleware.SanitizeString(p.Bio)
	return writeOutcome(w, r.svc.Analysis.AnalyzeProfile(req.Context(), p))
}

// POST /v1/analysis/conversation
// Body: {"messages": ["...", "..."]}
func (r *Router) handleConversation(w http.ResponseWriter, req *http.Request) error {
	if r.svc.Analysis == nil {
		return errUnavailable
	}
	var body struct {
		Messages []string `json:"messages"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	msgs, err := middleware.ValidateMessages(body.Messages)
	if err != nil {
		return badRequest("%v", err)
	}
	return writeOutcome(w, r.svc.Analysis.AnalyzeConversation(req.Context(), msgs))
}

// POST /v1/assistant
// Body: {"message": "...", "history": [{"role": "user", "content": "..."}]}
func (r *Router) handleAssistant(w http.ResponseWriter, req *http.Request) error {
	if r.svc.Assistant == nil {
		return errUnavailable
	}
	var body struct {
		Message string              `json:"message"`
		History []assistant.Message `json:"history"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	msg := middleware.SanitizeString(body.Message)
	if strings.TrimSpace(msg) == "" {
		return badRequest("message is required")
	}
	if utf8.RuneCountInString(msg) > assistant.MaxMessageRunes {
		return badRequest("message exceeds %d characters", assistant.MaxMessageRunes)
	}
	if len(body.History) > middleware.MaxMessages {
		return badRequest("history exceeds %d messages", middleware.MaxMessages)
	}
	return writeOutcome(w, r.svc.Assistant.Ask(req.Context(), body.History, msg))
}

// POST /v1/analysis/image
// Body: multipart form with an "image" file, or JSON {"image": "<base64 or data URL>"}.
func (r *Router) handleImage(w http.ResponseWriter, req *http.Request) error {
	if r.svc.Analysis == nil {
		return errUnavailable
	}
	data, err := r.readImage(w, req)
	if err != nil {
		return err
	}
	mime, err := middleware.ValidateImage(data, r.opts.MaxImageBytes)
	if err != nil {
		return badRequest("%v", err)
	}
	return writeOutcome(w, r.svc.Analysis.AnalyzeImage(req.Context(), analysis.Image{Data: data, MIME: mime}))
}

func (r *Router) readImage(w http.ResponseWriter, req *http.Request) ([]byte, error) {
	// base64 inflates by 4/3, plus multipart/JSON framing
	req.Body = http.MaxBytesReader(w, req.Body, r.opts.MaxImageBytes*4/3+64<<10)

	if strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data") {
		f, _, err := req.FormFile("image")
		if err != nil {
			return nil, badRequest("multipart field image: %v", err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, badRequest("reading image: %v", err)
		}
		return data, nil
	}

	var body struct {
		Image string `json:"image"`
	}
	if err := decode(req, &body); err != nil {
		return nil, err
	}
	encoded := body.Image
	if i := strings.Index(encoded, ";base64,"); strings.HasPrefix(encoded, "data:") && i > 0 {
		encoded = encoded[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, badRequest("image is not valid base64: %v", err)
	}
	return data, nil
}

// POST /v1/identity/login
// Body: {"token": "<id token from the identity provider>"}
func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) error {
	if r.svc.Identity == nil {
		return errUnavailable
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	s, err := r.svc.Identity.Login(req.Context(), body.Token)
	if err != nil {
		return err
	}
	w.Header().Set(SessionHeader, s.ID)
	return writeJSON(w, http.StatusOK, s)
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) error {
	if r.svc.Identity == nil {
		return errUnavailable
	}
	return writeJSON(w, http.StatusOK, map[string]bool{"logged_out": r.svc.Identity.Logout(sessionID(req))})
}

func (r *Router) handleSession(w http.ResponseWriter, req *http.Request) error {
	if r.svc.Identity == nil {
		return errUnavailable
	}
	s, ok := r.svc.Identity.Snapshot(sessionID(req))
	if !ok {
		return writeJSON(w, http.StatusOK, identity.Session{})
	}
	return writeJSON(w, http.StatusOK, s)
}

// POST /v1/identity/verify
// Body: analysis.Profile
func (r *Router) handleVerify(w http.ResponseWriter, req *http.Request) error {
	if r.svc.Analysis == nil {
		return errUnavailable
	}
	var p analysis.Profile
	if err := decode(req, &p); err != nil {
		return err
	}
	return writeOutcome(w, r.svc.Analysis.VerifyIdentity(req.Context(), sessionID(req), p))
}

func (r *Router) handleWhoAmI(w http.ResponseWriter, req *http.Request) error {
	if r.svc.Identity == nil {
		return errUnavailable
	}
	profile, err := r.svc.Identity.WhoAmI(req.Context(), sessionID(req))
	if err != nil {
		return err
	}
	// null means the principal is not registered yet
	return writeJSON(w, http.StatusOK, profile)
}

// POST /v1/identity/trust-score
// Body: {"score": 0-100}
func (r *Router) handleTrustScore(w http.ResponseWriter, req *http.Request) error {
	if r.svc.Identity == nil {
		return errUnavailable
	}
	var body struct {
		Score *int `json:"score"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	if body.Score == nil || *body.Score < 0 || *body.Score > 100 {
		return badRequest("score must be between 0 and 100")
	}
	msg, err := r.svc.Identity.UpdateTrustScore(req.Context(), sessionID(req), *body.Score)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// POST /v1/identity/nickname
// Body: {"nickname": "..."}
func (r *Router) handleNickname(w http.ResponseWriter, req *http.Request) error {
	if r.svc.Identity == nil {
		return errUnavailable
	}
	var body struct {
		Nickname string `json:"nickname"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	if err := middleware.ValidateNickname(body.Nickname); err != nil {
		return badRequest("%v", err)
	}
	msg, err := r.svc.Identity.SetNickname(req.Context(), sessionID(req), middleware.SanitizeString(body.Nickname))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (r *Router) handleStats(w http.ResponseWriter, req *http.Request) error {
	if r.svc.Identity == nil {
		return errUnavailable
	}
	stats, err := r.svc.Identity.Stats(req.Context(), sessionID(req))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, stats)
}

func (r *Router) handleWalletAddress(w http.ResponseWriter, req *http.Request) error {
	if r.svc.Wallet == nil {
		return errUnavailable
	}
	addr, err := r.svc.Wallet.Address(req.Context(), sessionID(req))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{"address": addr})
}

func (r *Router) handleWalletBalance(w http.ResponseWriter, req *http.Request) error {
	if r.svc.Wallet == nil {
		return errUnavailable
	}
	b, err := r.svc.Wallet.Balance(req.Context(), sessionID(req))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, b)
}

// POST /v1/wallet/send
// Body: {"destination": "bc1...", "satoshi": 1000} or {"destination": "...", "btc": 0.00001}
func (r *Router) handleWalletSend(w http.ResponseWriter, req *http.Request) error {
	if r.svc.Wallet == nil {
		return errUnavailable
	}
	var body struct {
		Destination string  `json:"destination"`
		Satoshi     uint64  `json:"satoshi"`
		BTC         float64 `json:"btc"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	sats := body.Satoshi
	if sats == 0 {
		sats = wallet.BTCToSatoshi(body.BTC)
	}
	tr, err := r.svc.Wallet.Send(req.Context(), sessionID(req), body.Destination, sats)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, tr)
}

func (r *Router) handleThreatURL(w http.ResponseWriter, req *http.Request) error {
	if r.svc.Threat == nil {
		return errUnavailable
	}
	var body struct {
		URL string `json:"url"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	out, err := r.svc.Threat.AnalyzeURL(req.Context(), body.URL)
	if err != nil {
		return err
	}
	return writeOutcome(w, out)
}

func (r *Router) handleThreatIP(w http.ResponseWriter, req *http.Request) error {
	if r.svc.Threat == nil {
		return errUnavailable
	}
	var body struct {
		IP string `json:"ip"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	out, err := r.svc.Threat.AnalyzeIP(req.Context(), body.IP)
	if err != nil {
		return err
	}
	return writeOutcome(w, out)
}

func (r *Router) handleThreatEmail(w http.ResponseWriter, req *http.Request) error {
	if r.svc.Threat == nil {
		return errUnavailable
	}
	var body struct {
		Email string `json:"email"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	rep, err := r.svc.Threat.AnalyzeEmail(body.Email)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rep)
}

// GET /v1/audit?page=&page_size=
func (r *Router) handleAuditList(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.svc.Audit.List(req.Context(), page, middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/audit/summary?days=
func (r *Router) handleAuditSummary(w http.ResponseWriter, req *http.Request) error {
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))

	sum, err := r.svc.Audit.Summary(req.Context(), middleware.ValidateDays(days))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, sum)
}

// GET /v1/audit/{id}/failures
func (r *Router) handleAuditFailures(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	failures, err := r.svc.Audit.Failures(req.Context(), audit.RecordID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, failures)
}
