package handler

import (
	"context"
	"net/http"
	"time"

	"healthsync-api/pkg/response"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Pinger
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health reports service liveness and dependency status
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := make(map[string]string, len(h.checks))
	healthy := true
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "up"
	}

	if !healthy {
		response.Error(w, http.StatusServiceUnavailable, "Service is degraded", status)
		return
	}
	response.Success(w, http.StatusOK, "Service is healthy", status)
}
