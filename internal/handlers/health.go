package handlers

import (
	"log/slog"
	"net/http"

	"stridesync/internal/database"
)

// HealthHandler serves the liveness endpoint
type HealthHandler struct {
	db     *database.DB
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: slog.Default(),
	}
}

// HandleHealth handles GET /health. Unauthenticated so load balancers can
// probe it.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.db.Health(); err != nil {
		h.logger.Error("Health check failed", "error", err)
		writeJSON(w, h.logger, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}
