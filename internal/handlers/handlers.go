// Package handlers implements the HTTP surface. Authentication happens
// upstream: service callers present the internal API key, and the gateway
// forwards the acting user's ID in the X-User-ID header.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"stridesync/internal/config"
	"stridesync/internal/database"
)

// authenticate checks the internal API key and resolves the acting user.
// Writes the error response itself and returns nil when the caller should
// bail out.
func authenticate(w http.ResponseWriter, r *http.Request, cfg *config.Config, db *database.DB, logger *slog.Logger) *database.User {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "Bearer "+cfg.InternalAPIKey {
		logger.Warn("Unauthorized request", "path", r.URL.Path, "has_auth", authHeader != "")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil
	}

	userIDStr := r.Header.Get("X-User-ID")
	if userIDStr == "" {
		http.Error(w, "Missing X-User-ID header", http.StatusBadRequest)
		return nil
	}

	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		http.Error(w, "Invalid X-User-ID header", http.StatusBadRequest)
		return nil
	}

	user, err := db.GetUser(userID)
	if err != nil {
		logger.Error("Failed to look up user", "user_id", userID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return nil
	}
	if user == nil || !user.Active {
		http.Error(w, "Unknown user", http.StatusUnauthorized)
		return nil
	}

	return user
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError writes a JSON error body
func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, map[string]string{"error": msg})
}

// parsePathID extracts a numeric ID from a path suffix such as
// /api/groups/42 or /api/groups/42/join
func parsePathID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
