package handlers

import (
	"context"
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/labgate/pkg/http"
)

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler answers liveness probes. A nil checker means there is no
// external store to probe.
type HealthHandler struct {
	checker HealthChecker
}

func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.checker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.checker.HealthCheck(ctx); err != nil {
			pkghttp.WriteServiceUnavailable(w, "Database unavailable")
			return
		}
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
