package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/eshaffer321/ledgermatch/internal/api/dto"
)

// HealthHandler responds to health checks.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// ServeHTTP handles GET /health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(dto.HealthResponse{Status: "healthy"})
}
