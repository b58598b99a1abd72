package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"stridesync/internal/config"
	"stridesync/internal/database"
	"stridesync/internal/oauth"
)

// OAuthHandler handles the Fitbit OAuth flow endpoints
type OAuthHandler struct {
	oauthManager *oauth.Manager
	db           *database.DB
	config       *config.Config
	logger       *slog.Logger
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(oauthManager *oauth.Manager, db *database.DB, cfg *config.Config) *OAuthHandler {
	return &OAuthHandler{
		oauthManager: oauthManager,
		db:           db,
		config:       cfg,
		logger:       slog.Default(),
	}
}

// HandleConnect handles GET /fitbit/connect: it starts the OAuth flow for
// the acting user by redirecting to Fitbit's authorization page
func (h *OAuthHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user := authenticate(w, r, h.config, h.db, h.logger)
	if user == nil {
		return
	}

	authURL, state, err := h.oauthManager.GenerateAuthURL(user.UserID)
	if err != nil {
		h.logger.Error("Failed to generate auth URL", "error", err)
		http.Error(w, "Failed to start OAuth flow", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Starting OAuth flow", "user_id", user.UserID, "state", state)

	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

// HandleCallback processes the OAuth callback from Fitbit. The browser
// arrives here without gateway headers, so identity comes from the state
// bound at connect time.
func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	errorParam := r.URL.Query().Get("error")

	if errorParam != "" {
		h.logger.Warn("OAuth authorization denied", "error", errorParam)
		http.Error(w, fmt.Sprintf("Authorization failed: %s", errorParam), http.StatusBadRequest)
		return
	}

	if code == "" || state == "" {
		h.logger.Warn("Missing OAuth parameters", "has_code", code != "", "has_state", state != "")
		http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
		return
	}

	userID, err := h.oauthManager.HandleCallback(r.Context(), code, state)
	if err != nil {
		h.logger.Error("Failed to handle OAuth callback", "error", err)

		errorMsg := "Failed to complete authorization"
		if err.Error() == "invalid or expired state" {
			errorMsg = "Invalid or expired authorization request. Please try again."
		}

		http.Error(w, errorMsg, http.StatusBadRequest)
		return
	}

	h.logger.Info("OAuth flow completed successfully", "user_id", userID)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>Fitbit Connected</title>
	<style>
		body {
			font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Helvetica, Arial, sans-serif;
			max-width: 600px;
			margin: 100px auto;
			padding: 20px;
			text-align: center;
		}
		h1 { color: #00B0B9; }
		p { color: #666; line-height: 1.6; }
	</style>
</head>
<body>
	<h1>&#10003; Fitbit Connected</h1>
	<p>Your Fitbit account has been linked and today's steps are syncing in the background.</p>
	<p>You can close this window and return to the app.</p>
</body>
</html>`)
}
