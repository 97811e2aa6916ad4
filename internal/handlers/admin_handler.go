package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/BradenHooton/labgate/internal/models"
	pkghttp "github.com/BradenHooton/labgate/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AdminServiceInterface defines the operator actions a super admin may take on admins
type AdminServiceInterface interface {
	UnlockAccount(ctx context.Context, role models.Role, accountID string) error
	RevokeSessions(ctx context.Context, role models.Role, accountID string) (int64, error)
}

// AdminHandler serves the super admin console's account management endpoints
type AdminHandler struct {
	service AdminServiceInterface
}

func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// UnlockAdmin clears lockouts on an admin account
// @Router /super-admin/admins/{id}/unlock [post]
func (h *AdminHandler) UnlockAdmin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Admin ID is required")
		return
	}

	if err := h.service.UnlockAccount(r.Context(), models.RoleAdmin, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Admin not found")
			return
		}
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Account unlocked"})
}

// RevokeAdminSessions forces an admin out on every device
// @Router /super-admin/admins/{id}/sessions [delete]
func (h *AdminHandler) RevokeAdminSessions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Admin ID is required")
		return
	}

	count, err := h.service.RevokeSessions(r.Context(), models.RoleAdmin, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Admin not found")
			return
		}
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, TerminatedResponse{Terminated: count})
}
