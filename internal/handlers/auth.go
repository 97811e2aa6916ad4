package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/BradenHooton/labgate/internal/auth"
	"github.com/BradenHooton/labgate/internal/models"
	"github.com/BradenHooton/labgate/internal/services"
	pkghttp "github.com/BradenHooton/labgate/pkg/http"
)

// AuthServiceInterface defines the interface for the login gateway
type AuthServiceInterface interface {
	SuperAdminLogin(ctx context.Context, email, password string, client services.ClientMeta) (*services.CodeChallenge, error)
	SuperAdminVerify(ctx context.Context, email, code string, client services.ClientMeta) (*services.LoginResult, error)
	SuperAdminResendCode(ctx context.Context, email string) (*services.CodeChallenge, error)
	AdminLogin(ctx context.Context, email, password string, client services.ClientMeta) (*services.LoginResult, error)
	Logout(ctx context.Context, token string, role models.Role) error
	LogoutAll(ctx context.Context, accountID string) (int64, error)
	ChangePassword(ctx context.Context, claims *models.TokenClaims, currentPassword, newPassword string, client services.ClientMeta) error
}

// SessionServiceInterface exposes the caller's own session
type SessionServiceInterface interface {
	ValidateSession(ctx context.Context, claims *models.TokenClaims) (*models.Session, error)
}

// AuthHandler handles login, logout and self-service session endpoints for both consoles
type AuthHandler struct {
	service     AuthServiceInterface
	sessions    SessionServiceInterface
	ipConfig    *pkghttp.IPConfig
	superCookie auth.CookieConfig
	adminCookie auth.CookieConfig
	cookieTTL   time.Duration
}

// NewAuthHandler creates a new AuthHandler. Cookies are marked Secure when secureCookies is set.
func NewAuthHandler(service AuthServiceInterface, sessions SessionServiceInterface, ipConfig *pkghttp.IPConfig, secureCookies bool, cookieTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		service:     service,
		sessions:    sessions,
		ipConfig:    ipConfig,
		superCookie: auth.SuperAdminCookie(secureCookies),
		adminCookie: auth.AdminCookie(secureCookies),
		cookieTTL:   cookieTTL,
	}
}

// decode reads and validates a JSON body, writing the 400 itself on failure
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return false
	}
	if err := ValidateRequest(dst); err != nil {
		writeServiceError(w, err)
		return false
	}
	return true
}

func (h *AuthHandler) clientMeta(r *http.Request, deviceInfo string) services.ClientMeta {
	info := pkghttp.ExtractClientInfo(r, h.ipConfig)
	deviceInfo = strings.TrimSpace(deviceInfo)
	if deviceInfo == "" {
		deviceInfo = info.UserAgent
	}
	return services.ClientMeta{
		IPAddress:  info.IPAddress,
		UserAgent:  info.UserAgent,
		DeviceInfo: deviceInfo,
	}
}

// SuperAdminLogin checks the password and emails a code
// @Router /auth/super-admin/login [post]
func (h *AuthHandler) SuperAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}

	challenge, err := h.service.SuperAdminLogin(r.Context(), req.Email, req.Password, h.clientMeta(r, req.DeviceInfo))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, CodeSentResponse{
		Email:     challenge.Email,
		ExpiresAt: challenge.ExpiresAt,
		Message:   "Verification code sent",
	})
}

// SuperAdminVerify consumes the code and sets the super admin cookie
// @Router /auth/super-admin/verify [post]
func (h *AuthHandler) SuperAdminVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.service.SuperAdminVerify(r.Context(), req.Email, req.Code, h.clientMeta(r, req.DeviceInfo))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.cookieTTL, h.superCookie)
	pkghttp.WriteJSON(w, http.StatusOK, SuperAdminVerifyResponse{
		User:      newAccountResponse(result.Account),
		ExpiresAt: result.ExpiresAt,
	})
}

// SuperAdminResendCode issues a replacement code
// @Router /auth/super-admin/resend-code [post]
func (h *AuthHandler) SuperAdminResendCode(w http.ResponseWriter, r *http.Request) {
	var req ResendCodeRequest
	if !decode(w, r, &req) {
		return
	}

	challenge, err := h.service.SuperAdminResendCode(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteError(w, http.StatusNotFound, pkghttp.CodeUserNotFound, "User not found")
			return
		}
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, CodeSentResponse{
		Email:     challenge.Email,
		ExpiresAt: challenge.ExpiresAt,
		Message:   "Verification code resent",
	})
}

// SuperAdminLogout ends the session and clears the cookie whatever the outcome
// @Router /auth/super-admin/logout [post]
func (h *AuthHandler) SuperAdminLogout(w http.ResponseWriter, r *http.Request) {
	h.logout(w, r, h.superCookie, models.RoleSuperAdmin)
}

// AdminLogin checks the password and claims the admin's single session
// @Router /auth/admin/login [post]
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.service.AdminLogin(r.Context(), req.Email, req.Password, h.clientMeta(r, req.DeviceInfo))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.cookieTTL, h.adminCookie)
	pkghttp.WriteJSON(w, http.StatusOK, AdminLoginResponse{
		Admin:   newAccountResponse(result.Account),
		Session: newSessionResponse(result.Session),
	})
}

// AdminLogout ends the session and clears the cookie whatever the outcome
// @Router /auth/admin/logout [post]
func (h *AuthHandler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	h.logout(w, r, h.adminCookie, models.RoleAdmin)
}

// logout only ends sessions belonging to the console the request came in on
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request, cookie auth.CookieConfig, role models.Role) {
	token := auth.ExtractToken(r, cookie.Name)
	_ = h.service.Logout(r.Context(), token, role)

	auth.ClearSessionCookie(w, cookie)
	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Logged out"})
}

// GetAdminSession returns the session the admin is using
// @Router /admin/session [get]
func (h *AuthHandler) GetAdminSession(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	session, err := h.sessions.ValidateSession(r.Context(), claims)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]SessionResponse{"session": newSessionResponse(session)})
}

// EndAdminSession signs the admin out everywhere and clears the cookie
// @Router /admin/session [delete]
func (h *AuthHandler) EndAdminSession(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	count, err := h.service.LogoutAll(r.Context(), claims.AccountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	auth.ClearSessionCookie(w, h.adminCookie)
	pkghttp.WriteJSON(w, http.StatusOK, TerminatedResponse{Terminated: count})
}

// ChangeSuperAdminPassword rotates the password and ends every session,
// including the one making the request
// @Router /super-admin/settings/password [put]
func (h *AuthHandler) ChangeSuperAdminPassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), claims, req.CurrentPassword, req.NewPassword, h.clientMeta(r, "")); err != nil {
		writeServiceError(w, err)
		return
	}

	auth.ClearSessionCookie(w, h.superCookie)
	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password changed. Please sign in again."})
}
