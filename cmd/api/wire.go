package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/bryanwahyu/osint-cafe/internal/application"
	appanalysis "github.com/bryanwahyu/osint-cafe/internal/application/analysis"
	"github.com/bryanwahyu/osint-cafe/internal/application/assistant"
	appaudit "github.com/bryanwahyu/osint-cafe/internal/application/audit"
	appidentity "github.com/bryanwahyu/osint-cafe/internal/application/identity"
	"github.com/bryanwahyu/osint-cafe/internal/application/probe"
	"github.com/bryanwahyu/osint-cafe/internal/application/threat"
	appwallet "github.com/bryanwahyu/osint-cafe/internal/application/wallet"
	"github.com/bryanwahyu/osint-cafe/internal/config"
	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
	auditdomain "github.com/bryanwahyu/osint-cafe/internal/domain/audit"
	"github.com/bryanwahyu/osint-cafe/internal/domain/identity"
	"github.com/bryanwahyu/osint-cafe/internal/infra/auth"
	mysqlp "github.com/bryanwahyu/osint-cafe/internal/infra/db/mysql"
	"github.com/bryanwahyu/osint-cafe/internal/infra/db/postgres"
	"github.com/bryanwahyu/osint-cafe/internal/infra/db/sqlite"
	"github.com/bryanwahyu/osint-cafe/internal/infra/httpserver"
	"github.com/bryanwahyu/osint-cafe/internal/infra/registry"
	minioStore "github.com/bryanwahyu/osint-cafe/internal/infra/storage"
	"github.com/bryanwahyu/osint-cafe/internal/middleware"
)

// app is everything serve needs, built once from the configuration.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *registry.Registry
	db       *sql.DB
	metrics  *middleware.Metrics
	services httpserver.Services
	health   map[string]middleware.HealthChecker
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	reg, err := registry.Build(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("providers: %w", err)
	}

	db, repo, err := openAudit(ctx, cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("audit %s: %w", cfg.Audit.Driver, err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		db:       db,
		metrics:  middleware.NewMetrics(),
		health:   map[string]middleware.HealthChecker{},
	}

	recorder := appaudit.NewRecorder(repo, application.SystemClock{}, logger.Named("audit"))
	recorder.Observers = append(recorder.Observers, a.metrics)

	sessions := appidentity.NewManager(verifier(cfg.Identity), reg.Canister, application.SystemClock{}, logger.Named("identity"))
	sessions.SessionTTL = cfg.Identity.SessionTTL

	an := appanalysis.NewService(appanalysis.Chains{
		TextRisk:       reg.Chain(analysis.CapTextRisk),
		ImageRisk:      reg.Chain(analysis.CapImageRisk),
		WebIntel:       reg.Chain(analysis.CapWebIntel),
		IdentityVerify: reg.Chain(analysis.CapIdentityVerify),
	}, sessions, logger.Named("analysis"))
	an.Ages = reg.Algorand
	an.Audit = recorder
	if cfg.Evidence.Enabled() {
		e := cfg.Evidence
		store, err := minioStore.New(ctx, e.Endpoint, e.Region, e.Bucket, e.AccessKey, e.SecretKey, e.UseSSL)
		if err != nil {
			// analysis still works without an archive
			logger.Warn("evidence store disabled", zap.Error(err))
		} else {
			an.Evidence = store
		}
	}

	th := threat.NewService(reg.Chain(analysis.CapURLReputation), reg.Chain(analysis.CapIPReputation), logger.Named("threat"))
	th.Audit = recorder

	chat := assistant.NewService(reg.Chain(analysis.CapAssistant), logger.Named("assistant"))
	chat.Audit = recorder

	a.services = httpserver.Services{
		Analysis:  an,
		Assistant: chat,
		Threat:    th,
		Identity:  sessions,
		Wallet:    appwallet.NewService(reg.Canister, sessions, logger.Named("wallet")),
		Probe:     probe.NewService(reg.Checkers(), cfg.Probe.Pause, logger.Named("probe")),
		Audit:     recorder,
	}

	if db != nil {
		a.health["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}
	for _, c := range reg.Checkers() {
		a.health[c.Name()] = c
	}
	return a, nil
}

func (a *app) router() http.Handler {
	s := a.cfg.Server
	return httpserver.NewRouter(a.services, httpserver.Options{
		Logger:          a.logger,
		Metrics:         a.metrics,
		Health:          a.health,
		CORSOrigins:     s.CORSOrigins,
		ClientKeys:      s.ClientKeys,
		RateLimit:       s.RateLimit,
		RateBurst:       s.RateBurst,
		MaxImageBytes:   s.MaxImageBytes,
		AnalysisTimeout: s.AnalysisTimeout,
	})
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("closing audit database", zap.Error(err))
		}
	}
}

// openAudit connects the audit trail. Driver "none" yields a nil repository, which
// turns the recorder into a no-op.
func openAudit(ctx context.Context, cfg config.AuditConfig) (*sql.DB, auditdomain.Repository, error) {
	full := &config.Config{Audit: cfg}
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, sqlite.NewAuditRepository(db), nil
	case "mysql":
		db, err := mysqlp.Connect(ctx, full.MySQLDSN())
		if err != nil {
			return nil, nil, err
		}
		if err := mysqlp.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return db, mysqlp.NewAuditRepository(db), nil
	case "postgres":
		db, err := postgres.Connect(ctx, full.PostgresDSN())
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return db, postgres.NewAuditRepository(db), nil
	default:
		return nil, nil, nil
	}
}

// verifier returns nil for "none", which disables login.
func verifier(cfg config.IdentityConfig) identity.TokenVerifier {
	switch cfg.Verifier {
	case "okta":
		return auth.NewOkta(cfg.OktaIssuer, cfg.OktaClientID, cfg.OktaAudience)
	case "static":
		return auth.NewStatic(cfg.StaticTokens)
	default:
		return nil
	}
}
