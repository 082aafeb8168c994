package handler

import (
	"context"
	"net/http"

	"github.com/contractsonly/api/internal/model"
)

// HealthChecker runs the health probes
type HealthChecker interface {
	HealthCheck(ctx context.Context) model.HealthReport
}

// HealthHandler serves the unauthenticated health endpoint
type HealthHandler struct {
	checker HealthChecker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// RegisterRoutes registers health routes
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
}

// Health reports probe results. Degraded still answers 200 so load balancers
// keep routing; only unhealthy answers 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.checker.HealthCheck(r.Context())

	status := http.StatusOK
	if report.Status == model.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, status, report)
}
