package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/BradenHooton/labgate/internal/models"
	pkghttp "github.com/BradenHooton/labgate/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// ClaimsContextKey is the key for storing token claims in context
	ClaimsContextKey contextKey = "claims"
)

// Authorizer answers whether a token may act with the given role right now:
// signature, expiry, session still active, and role match.
type Authorizer interface {
	Authorize(ctx context.Context, token string, role models.Role) (*models.TokenClaims, error)
}

// RequireSession authenticates requests for one console. The token is read
// from the console's cookie, falling back to an Authorization: Bearer header.
func RequireSession(authorizer Authorizer, role models.Role, cookieName string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r, cookieName)
			if token == "" {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			claims, err := authorizer.Authorize(r.Context(), token, role)
			if err != nil {
				switch {
				case errors.Is(err, models.ErrForbidden):
					pkghttp.WriteForbidden(w, "Insufficient permissions")
				case errors.Is(err, models.ErrUnavailable):
					// Revocation status unknown: deny rather than trust the signature alone
					pkghttp.WriteServiceUnavailable(w, "Unable to verify session")
				default:
					pkghttp.WriteUnauthorized(w, "Invalid or expired session")
				}
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractToken reads the session token from the cookie or a Bearer header
func ExtractToken(r *http.Request, cookieName string) string {
	if token, err := GetSessionCookie(r, cookieName); err == nil && token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// GetClaimsFromContext extracts token claims from request context
func GetClaimsFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(ClaimsContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// WithClaims stores claims in a context; used by tests exercising handlers directly
func WithClaims(ctx context.Context, claims *models.TokenClaims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey, claims)
}
