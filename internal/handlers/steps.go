package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"stridesync/internal/config"
	"stridesync/internal/database"
	"stridesync/internal/engine"
)

// StepsHandler serves the manual step entry CRUD endpoints
type StepsHandler struct {
	db     *database.DB
	engine *engine.Engine
	config *config.Config
	logger *slog.Logger
}

// NewStepsHandler creates a new steps handler
func NewStepsHandler(db *database.DB, eng *engine.Engine, cfg *config.Config) *StepsHandler {
	return &StepsHandler{
		db:     db,
		engine: eng,
		config: cfg,
		logger: slog.Default(),
	}
}

type stepEntryRequest struct {
	StepCount *int64 `json:"step_count"`
	Timestamp int64  `json:"timestamp"`
}

// stepMutationResponse couples a ledger change with the recomputed state it
// produced, so clients see the effect of their entry in one round trip
type stepMutationResponse struct {
	Entry     *database.StepEntry   `json:"entry,omitempty"`
	Streak    *database.StreakState `json:"streak"`
	Points    *database.PointsState `json:"points"`
	NewBadges []*database.Badge     `json:"new_badges"`
}

// HandleSteps handles GET and POST /api/steps
func (h *StepsHandler) HandleSteps(w http.ResponseWriter, r *http.Request) {
	user := authenticate(w, r, h.config, h.db, h.logger)
	if user == nil {
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.listSteps(w, user)
	case http.MethodPost:
		h.createStep(w, r, user)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleStepEntry handles PUT and DELETE /api/steps/{id}
func (h *StepsHandler) HandleStepEntry(w http.ResponseWriter, r *http.Request) {
	user := authenticate(w, r, h.config, h.db, h.logger)
	if user == nil {
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/steps/")
	id, ok := parsePathID(idStr)
	if !ok {
		writeError(w, h.logger, http.StatusBadRequest, "invalid step entry id")
		return
	}

	switch r.Method {
	case http.MethodPut:
		h.updateStep(w, r, user, id)
	case http.MethodDelete:
		h.deleteStep(w, user, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// listSteps returns per-day summaries, newest first
func (h *StepsHandler) listSteps(w http.ResponseWriter, user *database.User) {
	summaries, err := h.db.DailySummaries(user.UserID, 90)
	if err != nil {
		h.logger.Error("Failed to list daily summaries", "user_id", user.UserID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to list steps")
		return
	}
	if summaries == nil {
		summaries = []*database.DailyStepSummary{}
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{"days": summaries})
}

// createStep records a manual step entry and recomputes derived state
func (h *StepsHandler) createStep(w http.ResponseWriter, r *http.Request, user *database.User) {
	var req stepEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.StepCount == nil || *req.StepCount < 0 {
		writeError(w, h.logger, http.StatusBadRequest, "step_count must be a non-negative integer")
		return
	}

	timestamp := req.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().Unix()
	}

	entry := &database.StepEntry{
		UserID:       user.UserID,
		StepCount:    *req.StepCount,
		Timestamp:    timestamp,
		IsAutoSynced: false,
	}
	if err := h.db.CreateStepEntry(entry); err != nil {
		h.logger.Error("Failed to create step entry", "user_id", user.UserID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to create step entry")
		return
	}

	result, err := h.engine.Recompute(user.UserID)
	if err != nil {
		h.logger.Error("Failed to recompute after step entry", "user_id", user.UserID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to recompute state")
		return
	}

	h.logger.Info("Created manual step entry",
		"user_id", user.UserID, "entry_id", entry.ID, "step_count", entry.StepCount)

	writeJSON(w, h.logger, http.StatusCreated, stepMutationResponse{
		Entry:     entry,
		Streak:    result.Streak,
		Points:    result.Points,
		NewBadges: nonNilBadges(result.NewBadges),
	})
}

// updateStep edits a manual entry. Auto-synced rows and other users'
// entries both surface as not found.
func (h *StepsHandler) updateStep(w http.ResponseWriter, r *http.Request, user *database.User, id int64) {
	var req stepEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.StepCount == nil || *req.StepCount < 0 {
		writeError(w, h.logger, http.StatusBadRequest, "step_count must be a non-negative integer")
		return
	}

	timestamp := req.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().Unix()
	}

	if err := h.db.UpdateManualEntry(id, user.UserID, *req.StepCount, timestamp); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, h.logger, http.StatusNotFound, "step entry not found")
			return
		}
		h.logger.Error("Failed to update step entry", "entry_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to update step entry")
		return
	}

	result, err := h.engine.Recompute(user.UserID)
	if err != nil {
		h.logger.Error("Failed to recompute after step update", "user_id", user.UserID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to recompute state")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, stepMutationResponse{
		Streak:    result.Streak,
		Points:    result.Points,
		NewBadges: nonNilBadges(result.NewBadges),
	})
}

// deleteStep removes a manual entry and recomputes
func (h *StepsHandler) deleteStep(w http.ResponseWriter, user *database.User, id int64) {
	if err := h.db.DeleteManualEntry(id, user.UserID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, h.logger, http.StatusNotFound, "step entry not found")
			return
		}
		h.logger.Error("Failed to delete step entry", "entry_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to delete step entry")
		return
	}

	result, err := h.engine.Recompute(user.UserID)
	if err != nil {
		h.logger.Error("Failed to recompute after step delete", "user_id", user.UserID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to recompute state")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, stepMutationResponse{
		Streak:    result.Streak,
		Points:    result.Points,
		NewBadges: nonNilBadges(result.NewBadges),
	})
}

func nonNilBadges(badges []*database.Badge) []*database.Badge {
	if badges == nil {
		return []*database.Badge{}
	}
	return badges
}
