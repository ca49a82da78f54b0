package handler

import (
	"net/http"

	"github.com/zapdesk/support-console/internal/push"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	pushClient *push.Client
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(pushClient *push.Client) *HealthHandler {
	return &HealthHandler{
		pushClient: pushClient,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	// Check NATS connection
	if h.pushClient == nil || !h.pushClient.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
