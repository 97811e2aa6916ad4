package auth

import (
	"net/http"
	"time"
)

// Session cookie names per console
const (
	SuperAdminCookieName = "super-admin-token"
	AdminCookieName      = "admin-token"
)

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Name     string
	Domain   string // Empty string = current host only
	Secure   bool   // HTTPS only
	SameSite http.SameSite
}

// SuperAdminCookie is lax so the console survives top-level navigation from mail links
func SuperAdminCookie(secure bool) CookieConfig {
	return CookieConfig{Name: SuperAdminCookieName, Secure: secure, SameSite: http.SameSiteLaxMode}
}

// AdminCookie is strict; admin pages are never entered cross-site
func AdminCookie(secure bool) CookieConfig {
	return CookieConfig{Name: AdminCookieName, Secure: secure, SameSite: http.SameSiteStrictMode}
}

// SetSessionCookie stores a session token in an httpOnly cookie
func SetSessionCookie(w http.ResponseWriter, token string, maxAge time.Duration, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     config.Name,
		Value:    token,
		Path:     "/",
		Domain:   config.Domain,
		Expires:  time.Now().Add(maxAge),
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true, // Critical: prevents JavaScript access (XSS protection)
		Secure:   config.Secure,
		SameSite: config.SameSite,
	})
}

// ClearSessionCookie expires the session cookie on the client
func ClearSessionCookie(w http.ResponseWriter, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     config.Name,
		Value:    "",
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   -1, // Negative MaxAge deletes the cookie
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: config.SameSite,
	})
}

// GetSessionCookie retrieves the session token from the named cookie
func GetSessionCookie(r *http.Request, name string) (string, error) {
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
