package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"stridesync/internal/config"
	"stridesync/internal/database"
	"stridesync/internal/engine"
)

// DashboardHandler serves the per-user gamification dashboard
type DashboardHandler struct {
	db     *database.DB
	engine *engine.Engine
	config *config.Config
	logger *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(db *database.DB, eng *engine.Engine, cfg *config.Config) *DashboardHandler {
	return &DashboardHandler{
		db:     db,
		engine: eng,
		config: cfg,
		logger: slog.Default(),
	}
}

// dashboardResponse is the full dashboard payload. NewBadges carries only
// the badges awarded by this request's recomputation; once returned they
// appear only in Badges on later requests.
type dashboardResponse struct {
	User       *database.User        `json:"user"`
	Streak     *database.StreakState `json:"streak"`
	Points     *database.PointsState `json:"points"`
	StepsToday int64                 `json:"steps_today"`
	StepsWeek  int64                 `json:"steps_week"`
	Badges     []*database.Badge     `json:"badges"`
	NewBadges  []*database.Badge     `json:"new_badges"`
}

// HandleDashboard handles GET /api/dashboard. Every request recomputes
// streak and points from the ledger, so a stale streak is corrected the
// moment the user looks at their dashboard.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user := authenticate(w, r, h.config, h.db, h.logger)
	if user == nil {
		return
	}

	result, err := h.engine.Recompute(user.UserID)
	if err != nil {
		h.logger.Error("Failed to recompute dashboard state", "user_id", user.UserID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to compute dashboard")
		return
	}

	today := time.Now().Format(database.DateFormat)
	weekStart := time.Now().AddDate(0, 0, -6).Format(database.DateFormat)

	stepsToday, err := h.db.SumStepsBetween(user.UserID, today, today)
	if err != nil {
		h.logger.Error("Failed to sum today's steps", "user_id", user.UserID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to compute dashboard")
		return
	}

	stepsWeek, err := h.db.SumStepsBetween(user.UserID, weekStart, today)
	if err != nil {
		h.logger.Error("Failed to sum week's steps", "user_id", user.UserID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to compute dashboard")
		return
	}

	badges, err := h.db.ListUserBadges(user.UserID)
	if err != nil {
		h.logger.Error("Failed to list user badges", "user_id", user.UserID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to compute dashboard")
		return
	}
	if badges == nil {
		badges = []*database.Badge{}
	}

	newBadges := result.NewBadges
	if newBadges == nil {
		newBadges = []*database.Badge{}
	}

	writeJSON(w, h.logger, http.StatusOK, dashboardResponse{
		User:       user,
		Streak:     result.Streak,
		Points:     result.Points,
		StepsToday: stepsToday,
		StepsWeek:  stepsWeek,
		Badges:     badges,
		NewBadges:  newBadges,
	})
}
