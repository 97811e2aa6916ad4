package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/labgate/internal/auth"
	"github.com/BradenHooton/labgate/internal/models"
	"github.com/BradenHooton/labgate/internal/services"
	pkghttp "github.com/BradenHooton/labgate/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext attaches claims as RequireSession would
func WithAuthContext(req *http.Request, accountID string, role models.Role) *http.Request {
	claims := &models.TokenClaims{
		Type:      models.TokenTypeSession,
		AccountID: accountID,
		Role:      role,
		SessionID: "session-1",
	}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

// WithURLParam sets a chi route parameter on the request
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks the status and decodes the body into target
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, status int, target interface{}) {
	t.Helper()
	assert.Equal(t, status, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	if target != nil {
		require.NoError(t, json.NewDecoder(w.Body).Decode(target))
	}
}

// AssertErrorResponse checks the status and machine-readable code of an error envelope
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, status int, code string) pkghttp.ErrorResponse {
	t.Helper()
	var resp pkghttp.ErrorResponse
	AssertJSONResponse(t, w, status, &resp)
	assert.Equal(t, code, resp.Error)
	return resp
}

// FindCookie returns the named cookie set on the response, or nil
func FindCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	SuperAdminLoginFunc      func(ctx context.Context, email, password string, client services.ClientMeta) (*services.CodeChallenge, error)
	SuperAdminVerifyFunc     func(ctx context.Context, email, code string, client services.ClientMeta) (*services.LoginResult, error)
	SuperAdminResendCodeFunc func(ctx context.Context, email string) (*services.CodeChallenge, error)
	AdminLoginFunc           func(ctx context.Context, email, password string, client services.ClientMeta) (*services.LoginResult, error)
	LogoutFunc               func(ctx context.Context, token string, role models.Role) error
	LogoutAllFunc            func(ctx context.Context, accountID string) (int64, error)
	ChangePasswordFunc       func(ctx context.Context, claims *models.TokenClaims, currentPassword, newPassword string, client services.ClientMeta) error
}

func (m *MockAuthService) SuperAdminLogin(ctx context.Context, email, password string, client services.ClientMeta) (*services.CodeChallenge, error) {
	if m.SuperAdminLoginFunc != nil {
		return m.SuperAdminLoginFunc(ctx, email, password, client)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) SuperAdminVerify(ctx context.Context, email, code string, client services.ClientMeta) (*services.LoginResult, error) {
	if m.SuperAdminVerifyFunc != nil {
		return m.SuperAdminVerifyFunc(ctx, email, code, client)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) SuperAdminResendCode(ctx context.Context, email string) (*services.CodeChallenge, error) {
	if m.SuperAdminResendCodeFunc != nil {
		return m.SuperAdminResendCodeFunc(ctx, email)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) AdminLogin(ctx context.Context, email, password string, client services.ClientMeta) (*services.LoginResult, error) {
	if m.AdminLoginFunc != nil {
		return m.AdminLoginFunc(ctx, email, password, client)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) Logout(ctx context.Context, token string, role models.Role) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, token, role)
	}
	return nil
}

func (m *MockAuthService) LogoutAll(ctx context.Context, accountID string) (int64, error) {
	if m.LogoutAllFunc != nil {
		return m.LogoutAllFunc(ctx, accountID)
	}
	return 0, nil
}

func (m *MockAuthService) ChangePassword(ctx context.Context, claims *models.TokenClaims, currentPassword, newPassword string, client services.ClientMeta) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, claims, currentPassword, newPassword, client)
	}
	return nil
}

// MockSessionService implements SessionServiceInterface for testing
type MockSessionService struct {
	ValidateSessionFunc func(ctx context.Context, claims *models.TokenClaims) (*models.Session, error)
}

func (m *MockSessionService) ValidateSession(ctx context.Context, claims *models.TokenClaims) (*models.Session, error) {
	if m.ValidateSessionFunc != nil {
		return m.ValidateSessionFunc(ctx, claims)
	}
	return nil, models.ErrSessionInactive
}

// MockAdminService implements AdminServiceInterface for testing
type MockAdminService struct {
	UnlockAccountFunc  func(ctx context.Context, role models.Role, accountID string) error
	RevokeSessionsFunc func(ctx context.Context, role models.Role, accountID string) (int64, error)
}

func (m *MockAdminService) UnlockAccount(ctx context.Context, role models.Role, accountID string) error {
	if m.UnlockAccountFunc != nil {
		return m.UnlockAccountFunc(ctx, role, accountID)
	}
	return nil
}

func (m *MockAdminService) RevokeSessions(ctx context.Context, role models.Role, accountID string) (int64, error) {
	if m.RevokeSessionsFunc != nil {
		return m.RevokeSessionsFunc(ctx, role, accountID)
	}
	return 0, nil
}
