package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/labgate/internal/auth"
	"github.com/BradenHooton/labgate/internal/handlers"
	"github.com/BradenHooton/labgate/internal/middleware"
	"github.com/BradenHooton/labgate/internal/models"
	pkghttp "github.com/BradenHooton/labgate/pkg/http"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes
type Handlers struct {
	Auth   *handlers.AuthHandler
	Admin  *handlers.AdminHandler
	Health *handlers.HealthHandler
}

// RouterConfig holds the cross-cutting settings for NewRouter
type RouterConfig struct {
	Env            string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter builds the chi router with the global middleware stack
func NewRouter(config RouterConfig, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(middleware.SecureLogger(logger))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: config.Env}))
	router.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: config.AllowedOrigins}))
	if config.RequestTimeout > 0 {
		router.Use(chimw.Timeout(config.RequestTimeout))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteNotFound(w, "Not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	return router
}

// RegisterRoutes registers all application routes. Every authenticated route
// passes through RequireSession, which checks the session is still active.
func RegisterRoutes(router chi.Router, h Handlers, authorizer auth.Authorizer, rateLimit middleware.RateLimitConfig) {
	loginLimit := middleware.RateLimitByIP(rateLimit)

	router.Get("/health", h.Health.Health)

	// Public routes - no authentication required
	router.Route("/auth", func(r chi.Router) {
		r.Route("/super-admin", func(r chi.Router) {
			r.With(loginLimit).Post("/login", h.Auth.SuperAdminLogin)
			r.With(loginLimit).Post("/verify", h.Auth.SuperAdminVerify)
			r.With(loginLimit).Post("/resend-code", h.Auth.SuperAdminResendCode)
			r.Post("/logout", h.Auth.SuperAdminLogout)
		})
		r.Route("/admin", func(r chi.Router) {
			r.With(loginLimit).Post("/login", h.Auth.AdminLogin)
			r.Post("/logout", h.Auth.AdminLogout)
		})
	})

	// Admin console
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(authorizer, models.RoleAdmin, auth.AdminCookieName))
		r.Get("/admin/session", h.Auth.GetAdminSession)
		r.Delete("/admin/session", h.Auth.EndAdminSession)
	})

	// Super admin console
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(authorizer, models.RoleSuperAdmin, auth.SuperAdminCookieName))
		r.With(loginLimit).Put("/super-admin/settings/password", h.Auth.ChangeSuperAdminPassword)
		r.Post("/super-admin/admins/{id}/unlock", h.Admin.UnlockAdmin)
		r.Delete("/super-admin/admins/{id}/sessions", h.Admin.RevokeAdminSessions)
	})
}
