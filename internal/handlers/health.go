package handlers

import (
	"net/http"

	domain "github.com/cityprint/api/internal/domain"
	"github.com/cityprint/api/internal/platform/httpx"
	"github.com/cityprint/api/internal/repositories"
)

// HealthHandler serves the liveness and readiness endpoints.
type HealthHandler struct {
	health repositories.HealthRepository
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(health repositories.HealthRepository) *HealthHandler {
	return &HealthHandler{health: health}
}

// Live serves GET /healthz.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "status": "ok"})
}

// Ready serves GET /readyz and reflects dependency probe results.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.health.Collect(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "health collection failed", http.StatusServiceUnavailable))
		return
	}

	status := http.StatusOK
	if report.Status == domain.HealthStatusError {
		status = http.StatusServiceUnavailable
	}

	checks := make(map[string]any, len(report.Checks))
	for name, check := range report.Checks {
		entry := map[string]any{
			"status":    string(check.Status),
			"latencyMs": check.Latency.Milliseconds(),
		}
		if check.Detail != "" {
			entry["detail"] = check.Detail
		}
		if check.Error != "" {
			entry["error"] = check.Error
		}
		checks[name] = entry
	}

	httpx.WriteJSON(w, status, map[string]any{
		"ok":     report.Status != domain.HealthStatusError,
		"status": string(report.Status),
		"checks": checks,
	})
}
