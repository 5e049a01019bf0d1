package api

import (
	"net/http"
	"time"

	respond "github.com/charstore/charstore/internal/api/respond"
)

// HealthReporter is satisfied by health.ServiceHealthChecker.
type HealthReporter interface {
	IsHealthy() bool
	Components() map[string]bool
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	reporter HealthReporter
}

// NewHealthHandler creates a new health handler. A nil reporter always reads unhealthy.
func NewHealthHandler(reporter HealthReporter) *HealthHandler {
	return &HealthHandler{reporter: reporter}
}

// CheckHealth handles GET /api/health
// Always returns 200; body reports healthy/unhealthy. 500 indicates handler failure only.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := "unhealthy"
	var components map[string]bool
	if h.reporter != nil {
		if h.reporter.IsHealthy() {
			status = "healthy"
		}
		components = h.reporter.Components()
	}
	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if len(components) > 0 {
		response["components"] = components
	}
	respond.WriteJSON(w, http.StatusOK, response)
}
