// internal/app/bootstrap/routes.go
package bootstrap

import (
	"fmt"
	"net/http"
	"time"

	dashboardfeature "github.com/dalemusser/pharmausage/internal/app/features/dashboard"
	forgotpasswordfeature "github.com/dalemusser/pharmausage/internal/app/features/forgotpassword"
	healthfeature "github.com/dalemusser/pharmausage/internal/app/features/health"
	loginfeature "github.com/dalemusser/pharmausage/internal/app/features/login"
	logoutfeature "github.com/dalemusser/pharmausage/internal/app/features/logout"
	userinfofeature "github.com/dalemusser/pharmausage/internal/app/features/userinfo"
	"github.com/dalemusser/pharmausage/internal/app/store/audit"
	loginstore "github.com/dalemusser/pharmausage/internal/app/store/logins"
	"github.com/dalemusser/pharmausage/internal/app/store/passwordreset"
	"github.com/dalemusser/pharmausage/internal/app/store/queries/usagequeries"
	userstore "github.com/dalemusser/pharmausage/internal/app/store/users"
	"github.com/dalemusser/pharmausage/internal/app/system/auditlog"
	"github.com/dalemusser/pharmausage/internal/app/system/auth"
	"github.com/dalemusser/pharmausage/internal/app/system/mailer"
	"github.com/dalemusser/pharmausage/internal/app/system/metrics"
	"github.com/dalemusser/pharmausage/internal/app/system/ratelimit"
	"github.com/dalemusser/pharmausage/internal/app/system/session"
	"github.com/dalemusser/pharmausage/internal/app/system/signin"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Reset requests allowed per client IP per window.
const (
	resetRequestLimit  = 5
	resetRequestWindow = 15 * time.Minute
)

// NewAuditLogger builds the audit logger backed by the audit_events
// collection.
func NewAuditLogger(cfg AppConfig, deps DBDeps, logger *zap.Logger) *auditlog.Logger {
	return auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:  cfg.AuditLogAuth,
		Admin: cfg.AuditLogAdmin,
	})
}

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls it after Startup. The rate limiter cleanup goroutines are
// registered on deps so Shutdown stops them.
func BuildHandler(coreCfg *config.CoreConfig, cfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	sessionMgr, err := auth.NewSessionManager(
		cfg.SessionKey,
		cfg.SessionName,
		cfg.SessionDomain,
		cfg.SessionMaxAge,
		cfg.Env == "prod",
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}

	views, err := NewAssembler(cfg, deps, logger)
	if err != nil {
		return nil, err
	}

	users := userstore.New(db)
	auditLogger := NewAuditLogger(cfg, deps, logger)
	loginLimiter := ratelimit.NewLoginLimiter()
	resetLimiter := ratelimit.New(resetRequestLimit, resetRequestWindow)
	deps.OnStop(loginLimiter.Stop)
	deps.OnStop(resetLimiter.Stop)

	mail := mailer.New(mailer.Config{
		Host:     cfg.MailSMTPHost,
		Port:     cfg.MailSMTPPort,
		User:     cfg.MailSMTPUser,
		Password: cfg.MailSMTPPass,
		From:     cfg.MailFrom,
		FromName: cfg.MailFromName,
	}, logger)

	signinSvc := signin.New(users, loginstore.New(db), auditLogger, logger)
	resolver := session.NewResolver(userstore.NewFetcher(db), logger)

	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	loginHandler := loginfeature.NewHandler(sessionMgr, signinSvc, loginLimiter, auditLogger, logger)
	logoutHandler := logoutfeature.NewHandler(sessionMgr, auditLogger, logger)
	forgotHandler := forgotpasswordfeature.NewHandler(
		users,
		passwordreset.New(db, cfg.ResetExpiry),
		mail,
		auditLogger,
		resetLimiter,
		cfg.BaseURL,
		logger,
	)
	userinfoHandler := userinfofeature.NewHandler()
	dashboardHandler := dashboardfeature.NewHandler(views, usagequeries.NewMongoDirectory(db), logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(metrics.Middleware)

	// Probes sit outside the session group so they never touch cookies.
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(sr chi.Router) {
		sr.Use(sessionMgr.LoadSession(resolver))

		sr.Mount("/login", loginfeature.Routes(loginHandler))
		sr.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))
		sr.Mount("/forgot-password", forgotpasswordfeature.Routes(forgotHandler))
		sr.Mount("/session", userinfofeature.Routes(userinfoHandler))
		sr.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler))
		sr.Mount("/pharmacies", dashboardfeature.PharmacyRoutes(dashboardHandler))
		sr.Mount("/marketing", dashboardfeature.MarketingRoutes(dashboardHandler))
	})

	logger.Info("routes mounted", zap.Strings("cors_origins", cfg.CORSOrigins))
	return r, nil
}
