package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/labgate/internal/handlers"
	"github.com/BradenHooton/labgate/internal/models"
	pkghttp "github.com/BradenHooton/labgate/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestUnlockAdmin(t *testing.T) {
	mock := &handlers.MockAdminService{
		UnlockAccountFunc: func(ctx context.Context, role models.Role, accountID string) error {
			assert.Equal(t, models.RoleAdmin, role)
			if accountID == "missing" {
				return models.ErrNotFound
			}
			return nil
		},
	}
	h := handlers.NewAdminHandler(mock)

	req := handlers.WithURLParam(httptest.NewRequest("POST", "/super-admin/admins/a1/unlock", nil), "id", "a1")
	w := httptest.NewRecorder()
	h.UnlockAdmin(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = handlers.WithURLParam(httptest.NewRequest("POST", "/super-admin/admins/missing/unlock", nil), "id", "missing")
	w = httptest.NewRecorder()
	h.UnlockAdmin(w, req)
	handlers.AssertErrorResponse(t, w, http.StatusNotFound, pkghttp.CodeNotFound)
}

func TestRevokeAdminSessions(t *testing.T) {
	mock := &handlers.MockAdminService{
		RevokeSessionsFunc: func(ctx context.Context, role models.Role, accountID string) (int64, error) {
			return 2, nil
		},
	}
	req := handlers.WithURLParam(httptest.NewRequest("DELETE", "/super-admin/admins/a1/sessions", nil), "id", "a1")
	w := httptest.NewRecorder()
	handlers.NewAdminHandler(mock).RevokeAdminSessions(w, req)

	var resp handlers.TerminatedResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, int64(2), resp.Terminated)
}
