package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"stridesync/internal/config"
	"stridesync/internal/database"
)

// SyncHandler serves the on-demand sync endpoint
type SyncHandler struct {
	db     *database.DB
	config *config.Config
	logger *slog.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(db *database.DB, cfg *config.Config) *SyncHandler {
	return &SyncHandler{
		db:     db,
		config: cfg,
		logger: slog.Default(),
	}
}

// HandleSync handles POST /api/sync: it enqueues a sync job for the acting
// user and a date (today when omitted). The worker does the actual pull, so
// this endpoint returns as soon as the job is queued.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user := authenticate(w, r, h.config, h.db, h.logger)
	if user == nil {
		return
	}

	// An empty body is fine; the date defaults to today
	var req struct {
		Date string `json:"date"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	syncDate := req.Date
	if syncDate == "" {
		syncDate = time.Now().Format(database.DateFormat)
	} else if _, err := time.Parse(database.DateFormat, syncDate); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	// A user with no connected wearable gets a clear error instead of a
	// job that the worker would drop
	token, err := h.db.GetFitbitToken(user.UserID)
	if err != nil {
		h.logger.Error("Failed to check fitbit token", "user_id", user.UserID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to enqueue sync")
		return
	}
	if token == nil {
		writeError(w, h.logger, http.StatusConflict, "no fitbit account connected")
		return
	}

	id, err := h.db.EnqueueSyncJob(user.UserID, syncDate)
	if err != nil {
		h.logger.Error("Failed to enqueue sync job", "user_id", user.UserID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to enqueue sync")
		return
	}

	status := "queued"
	if id == 0 {
		status = "already_queued"
	}

	h.logger.Info("Sync requested", "user_id", user.UserID, "sync_date", syncDate, "status", status)

	writeJSON(w, h.logger, http.StatusAccepted, map[string]interface{}{
		"status":    status,
		"sync_date": syncDate,
	})
}
