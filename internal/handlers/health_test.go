package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/labgate/internal/handlers"
	pkghttp "github.com/BradenHooton/labgate/pkg/http"
	"github.com/stretchr/testify/assert"
)

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck(ctx context.Context) error { return s.err }

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	handlers.NewHealthHandler(nil).Health(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handlers.NewHealthHandler(stubChecker{}).Health(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handlers.NewHealthHandler(stubChecker{err: errors.New("down")}).Health(w, httptest.NewRequest("GET", "/health", nil))
	handlers.AssertErrorResponse(t, w, http.StatusServiceUnavailable, pkghttp.CodeServiceUnavailable)
}
