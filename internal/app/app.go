package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/labgate/internal/auth"
	"github.com/BradenHooton/labgate/internal/background"
	"github.com/BradenHooton/labgate/internal/config"
	"github.com/BradenHooton/labgate/internal/database"
	"github.com/BradenHooton/labgate/internal/handlers"
	"github.com/BradenHooton/labgate/internal/middleware"
	"github.com/BradenHooton/labgate/internal/repositories"
	"github.com/BradenHooton/labgate/internal/routes"
	"github.com/BradenHooton/labgate/internal/services"
	pkghttp "github.com/BradenHooton/labgate/pkg/http"
	pkglogger "github.com/BradenHooton/labgate/pkg/logger"
)

// Stores is the persistence backing every service
type Stores struct {
	Accounts services.AccountRepository
	Attempts services.LoginAttemptRepository
	Lockouts services.LockoutRepository
	Codes    services.VerificationCodeRepository
	Sessions services.SessionRepository
}

// PostgresStores returns pgx-backed repositories sharing one pool
func PostgresStores(db *database.DB) Stores {
	return Stores{
		Accounts: repositories.NewAccountRepository(db),
		Attempts: repositories.NewLoginAttemptRepository(db),
		Lockouts: repositories.NewLockoutRepository(db),
		Codes:    repositories.NewVerificationCodeRepository(db),
		Sessions: repositories.NewSessionRepository(db),
	}
}

// MemoryStores returns in-process repositories for development and tests
func MemoryStores(store *repositories.MemoryStore) Stores {
	return Stores{
		Accounts: store.Accounts(),
		Attempts: store.LoginAttempts(),
		Lockouts: store.Lockouts(),
		Codes:    store.Codes(),
		Sessions: store.Sessions(),
	}
}

// App holds the wired services of the authority
type App struct {
	Tokens      *auth.TokenManager
	Lockout     *services.LockoutService
	Credentials *services.CredentialService
	Codes       *services.CodeService
	Sessions    *services.SessionService
	Auth        *services.AuthService
	Admin       *services.AdminService

	cfg    *config.Config
	logger *slog.Logger
}

// New wires the services over the given stores. A nil clock means wall time.
func New(cfg *config.Config, stores Stores, notifier services.Notifier, clock services.Clock, logger *slog.Logger) (*App, error) {
	if clock == nil {
		clock = services.RealClock{}
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionExpiry)
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}
	tokens.SetClock(clock.Now)

	auditLogger := pkglogger.NewAuditLogger(logger)

	lockoutConfig := services.LockoutConfig{
		Threshold: cfg.Auth.LockoutThreshold,
		Window:    cfg.Auth.LockoutWindow,
		Duration:  cfg.Auth.LockoutDuration,
	}
	lockout := services.NewLockoutService(stores.Attempts, stores.Lockouts, lockoutConfig, clock, logger, auditLogger)

	var timing *auth.TimingDelay
	if cfg.Auth.TimingDelayBaseMs > 0 || cfg.Auth.TimingDelayRandomMs > 0 {
		timing = auth.NewTimingDelay(auth.TimingConfig{
			BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
			RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
		})
	}

	credentials := services.NewCredentialService(stores.Accounts, lockout, timing, logger, auditLogger)
	codes := services.NewCodeService(stores.Codes, cfg.Auth.CodeExpiry, clock, logger)
	sessions := services.NewSessionService(stores.Sessions, tokens, clock, logger, auditLogger)

	return &App{
		Tokens:      tokens,
		Lockout:     lockout,
		Credentials: credentials,
		Codes:       codes,
		Sessions:    sessions,
		Auth:        services.NewAuthService(stores.Accounts, credentials, codes, sessions, notifier, clock, logger, auditLogger),
		Admin:       services.NewAdminService(stores.Accounts, lockout, sessions, clock, logger, auditLogger),
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// SetPasswordCost overrides the bcrypt cost for every service that hashes
func (a *App) SetPasswordCost(cost int) {
	a.Auth.SetPasswordCost(cost)
	a.Admin.SetPasswordCost(cost)
}

// CleanupTasks lists the periodic sweeps run by the background manager
func (a *App) CleanupTasks() []background.Task {
	return []background.Task{
		{Name: "expired_sessions", Run: a.Sessions.CleanupExpired},
		{Name: "expired_codes", Run: a.Codes.CleanupExpired},
		{Name: "login_attempts", Run: a.Lockout.PruneAttempts},
	}
}

// Handler builds the HTTP surface. health may be nil when there is no
// backing database to probe.
func (a *App) Handler(health handlers.HealthChecker) http.Handler {
	ipConfig := &pkghttp.IPConfig{TrustedProxies: a.cfg.Server.TrustedProxies}

	router := routes.NewRouter(routes.RouterConfig{
		Env:            a.cfg.Server.Env,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		RequestTimeout: a.cfg.Server.WriteTimeout,
	}, a.logger)

	routes.RegisterRoutes(router, routes.Handlers{
		Auth:   handlers.NewAuthHandler(a.Auth, a.Sessions, ipConfig, a.cfg.Server.IsProduction(), a.cfg.Auth.SessionExpiry),
		Admin:  handlers.NewAdminHandler(a.Admin),
		Health: handlers.NewHealthHandler(health),
	}, a.Auth, middleware.RateLimitConfig{
		RequestsPerMinute: a.cfg.Auth.LoginRequestsPerMin,
		IPConfig:          ipConfig,
	})

	return router
}
