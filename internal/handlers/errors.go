package handlers

import (
	"errors"
	"net/http"

	"github.com/BradenHooton/labgate/internal/models"
	pkghttp "github.com/BradenHooton/labgate/pkg/http"
)

// writeServiceError maps service errors onto the error envelope. Anything
// unrecognised is a 500 with no detail.
func writeServiceError(w http.ResponseWriter, err error) {
	var locked *models.AccountLockedError
	var conflict *models.AlreadyLoggedInError
	var invalid *ValidationError

	switch {
	case errors.As(err, &invalid):
		pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, pkghttp.CodeBadRequest, invalid.Error(), invalid.Fields)
	case errors.As(err, &locked):
		pkghttp.WriteLocked(w, "Account is temporarily locked due to too many failed login attempts",
			map[string]interface{}{"lockout_until": locked.Until})
	case errors.Is(err, models.ErrAccountLocked):
		pkghttp.WriteLocked(w, "Account is temporarily locked due to too many failed login attempts", nil)
	case errors.As(err, &conflict):
		var details interface{}
		if conflict.Session != nil {
			details = map[string]interface{}{
				"existing_session": ExistingSessionResponse{
					DeviceInfo:   conflict.Session.DeviceInfo,
					IPAddress:    conflict.Session.IPAddress,
					LastActivity: conflict.Session.LastActivity,
				},
			}
		}
		pkghttp.WriteErrorWithDetails(w, http.StatusConflict, pkghttp.CodeAlreadyLoggedIn,
			"This account is already logged in on another device", details)
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteError(w, http.StatusUnauthorized, pkghttp.CodeInvalidCredentials, "Invalid email or password")
	case errors.Is(err, models.ErrAccountInactive):
		pkghttp.WriteError(w, http.StatusForbidden, pkghttp.CodeAccountInactive, "Account is inactive")
	case errors.Is(err, models.ErrInvalidCode):
		pkghttp.WriteError(w, http.StatusBadRequest, pkghttp.CodeInvalidCode, "Invalid verification code")
	case errors.Is(err, models.ErrExpiredCode):
		pkghttp.WriteError(w, http.StatusBadRequest, pkghttp.CodeExpiredCode, "Verification code has expired")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrSessionInactive):
		pkghttp.WriteUnauthorized(w, "Invalid or expired session")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Insufficient permissions")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Resource already exists")
	case errors.Is(err, models.ErrUnavailable):
		pkghttp.WriteServiceUnavailable(w, "Service temporarily unavailable")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
