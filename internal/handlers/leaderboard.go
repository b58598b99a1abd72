package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"stridesync/internal/config"
	"stridesync/internal/database"
	"stridesync/internal/engine"
)

// LeaderboardHandler serves the global and per-group leaderboards
type LeaderboardHandler struct {
	db     *database.DB
	engine *engine.Engine
	config *config.Config
	logger *slog.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(db *database.DB, eng *engine.Engine, cfg *config.Config) *LeaderboardHandler {
	return &LeaderboardHandler{
		db:     db,
		engine: eng,
		config: cfg,
		logger: slog.Default(),
	}
}

// HandleGlobal handles GET /api/leaderboard/global
func (h *LeaderboardHandler) HandleGlobal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if user := authenticate(w, r, h.config, h.db, h.logger); user == nil {
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"))

	entries, err := h.engine.RankGlobal(limit)
	if err != nil {
		h.logger.Error("Failed to rank global leaderboard", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to compute leaderboard")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{"leaderboard": entries})
}

// HandleGroup handles GET /api/leaderboard/group/{id}
func (h *LeaderboardHandler) HandleGroup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if user := authenticate(w, r, h.config, h.db, h.logger); user == nil {
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/leaderboard/group/")
	groupID, ok := parsePathID(idStr)
	if !ok {
		writeError(w, h.logger, http.StatusBadRequest, "invalid group id")
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"))

	entries, err := h.engine.RankGroup(groupID, limit)
	if err != nil {
		if errors.Is(err, engine.ErrGroupNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "group not found")
			return
		}
		h.logger.Error("Failed to rank group leaderboard", "group_id", groupID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to compute leaderboard")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"group_id":    groupID,
		"leaderboard": entries,
	})
}

// parseLimit reads a limit query value. Anything non-numeric or
// non-positive silently falls back to the default size.
func parseLimit(s string) int {
	if s == "" {
		return engine.DefaultLeaderboardLimit
	}
	limit, err := strconv.Atoi(s)
	if err != nil || limit <= 0 {
		return engine.DefaultLeaderboardLimit
	}
	return limit
}
