package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/labgate/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSessionCookie(t *testing.T) {
	tests := []struct {
		name     string
		config   auth.CookieConfig
		sameSite http.SameSite
	}{
		{"super admin is lax", auth.SuperAdminCookie(true), http.SameSiteLaxMode},
		{"admin is strict", auth.AdminCookie(true), http.SameSiteStrictMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			auth.SetSessionCookie(w, "tok", 24*time.Hour, tt.config)

			cookies := w.Result().Cookies()
			require.Len(t, cookies, 1)
			c := cookies[0]
			assert.Equal(t, tt.config.Name, c.Name)
			assert.Equal(t, "tok", c.Value)
			assert.Equal(t, "/", c.Path)
			assert.Equal(t, 86400, c.MaxAge)
			assert.True(t, c.HttpOnly)
			assert.True(t, c.Secure)
			assert.Equal(t, tt.sameSite, c.SameSite)
		})
	}
}

func TestClearSessionCookie(t *testing.T) {
	w := httptest.NewRecorder()
	auth.ClearSessionCookie(w, auth.AdminCookie(false))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.AdminCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
	assert.False(t, cookies[0].Secure)
}
