package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stridesync/internal/config"
	"stridesync/internal/database"
	"stridesync/internal/fitbit"
)

func setupOAuthTest(t *testing.T) (*Manager, *database.DB) {
	dbPath := t.TempDir() + "/test.db"
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Init(); err != nil {
		t.Fatalf("Failed to init database: %v", err)
	}

	cfg := &config.Config{
		FitbitClientID:     "test_client_id",
		FitbitClientSecret: "test_client_secret",
		FitbitRedirectURI:  "http://localhost:4201/fitbit/callback",
	}

	fitbitClient := fitbit.NewClient(cfg.FitbitClientID, cfg.FitbitClientSecret)
	manager := NewManager(cfg, db, fitbitClient)

	return manager, db
}

func testUser(t *testing.T, db *database.DB) *database.User {
	user := &database.User{Username: "testuser", StepGoal: 10000, Active: true}
	if err := db.CreateUser(user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

func TestGenerateAuthURL(t *testing.T) {
	manager, db := setupOAuthTest(t)
	defer db.Close()

	user := testUser(t, db)

	authURL, state, err := manager.GenerateAuthURL(user.UserID)
	if err != nil {
		t.Fatalf("Failed to generate auth URL: %v", err)
	}

	if state == "" {
		t.Error("Expected non-empty state")
	}

	if !strings.Contains(authURL, "client_id=test_client_id") {
		t.Error("Expected auth URL to contain client_id")
	}

	if !strings.Contains(authURL, "redirect_uri=") {
		t.Error("Expected auth URL to contain redirect_uri")
	}

	if !strings.Contains(authURL, "state=") {
		t.Error("Expected auth URL to contain state parameter")
	}

	// Verify the state is stored and bound to the user
	manager.states.mu.RLock()
	entry, exists := manager.states.states[state]
	manager.states.mu.RUnlock()

	if !exists {
		t.Fatal("Expected state to be stored")
	}
	if entry.userID != user.UserID {
		t.Errorf("Expected state bound to user %d, got %d", user.UserID, entry.userID)
	}
}

func TestConsumeState_Valid(t *testing.T) {
	manager, db := setupOAuthTest(t)
	defer db.Close()

	user := testUser(t, db)

	_, state, err := manager.GenerateAuthURL(user.UserID)
	if err != nil {
		t.Fatalf("Failed to generate auth URL: %v", err)
	}

	userID, ok := manager.consumeState(state)
	if !ok {
		t.Error("Expected state to be valid")
	}
	if userID != user.UserID {
		t.Errorf("Expected user ID %d, got %d", user.UserID, userID)
	}

	// State should be removed after first use
	if _, ok := manager.consumeState(state); ok {
		t.Error("Expected state to be invalid after first use")
	}
}

func TestConsumeState_Invalid(t *testing.T) {
	manager, db := setupOAuthTest(t)
	defer db.Close()

	if _, ok := manager.consumeState("invalid_state"); ok {
		t.Error("Expected invalid state to fail validation")
	}
}

func TestConsumeState_Expired(t *testing.T) {
	manager, db := setupOAuthTest(t)
	defer db.Close()

	// Manually insert an expired state
	state := "expired_state"
	manager.states.mu.Lock()
	manager.states.states[state] = stateEntry{userID: 1, expires: time.Now().Add(-1 * time.Minute)}
	manager.states.mu.Unlock()

	if _, ok := manager.consumeState(state); ok {
		t.Error("Expected expired state to fail validation")
	}

	// Should be removed
	manager.states.mu.RLock()
	_, exists := manager.states.states[state]
	manager.states.mu.RUnlock()

	if exists {
		t.Error("Expected expired state to be removed")
	}
}

func TestHandleCallback_Integration(t *testing.T) {
	manager, db := setupOAuthTest(t)
	defer db.Close()

	user := testUser(t, db)

	// Create mock token server
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Failed to parse form", http.StatusBadRequest)
			return
		}

		if r.FormValue("code") != "test_auth_code" {
			http.Error(w, "Invalid code", http.StatusBadRequest)
			return
		}

		response := fitbit.TokenResponse{
			AccessToken:  "test_access_token",
			RefreshToken: "test_refresh_token",
			ExpiresIn:    28800,
			Scope:        "activity",
			FitbitUserID: "ABC123",
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer tokenServer.Close()

	manager.fitbitClient.SetTokenURL(tokenServer.URL)

	_, state, err := manager.GenerateAuthURL(user.UserID)
	if err != nil {
		t.Fatalf("Failed to generate auth URL: %v", err)
	}

	userID, err := manager.HandleCallback(context.Background(), "test_auth_code", state)
	if err != nil {
		t.Fatalf("Failed to handle callback: %v", err)
	}

	if userID != user.UserID {
		t.Errorf("Expected user ID %d, got %d", user.UserID, userID)
	}

	// Verify tokens were stored
	token, err := db.GetFitbitToken(user.UserID)
	if err != nil {
		t.Fatalf("Failed to get fitbit token: %v", err)
	}
	if token == nil {
		t.Fatal("Expected fitbit token to be stored")
	}

	if token.AccessToken != "test_access_token" {
		t.Errorf("Expected access token 'test_access_token', got '%s'", token.AccessToken)
	}
	if token.RefreshToken != "test_refresh_token" {
		t.Errorf("Expected refresh token 'test_refresh_token', got '%s'", token.RefreshToken)
	}
	if token.ExpiresAt <= time.Now().Unix() {
		t.Errorf("Expected expiry in the future, got %d", token.ExpiresAt)
	}

	// Verify a sync job for today was enqueued
	syncJobQueueLength, err := db.GetSyncJobQueueLength()
	if err != nil {
		t.Fatalf("Failed to get sync job queue length: %v", err)
	}
	if syncJobQueueLength != 1 {
		t.Errorf("Expected 1 sync job in queue, got %d", syncJobQueueLength)
	}

	job, err := db.ClaimSyncJob()
	if err != nil {
		t.Fatalf("Failed to claim sync job: %v", err)
	}
	if job == nil {
		t.Fatal("Expected to claim a sync job, got nil")
	}
	if job.UserID != user.UserID {
		t.Errorf("Expected sync job for user %d, got %d", user.UserID, job.UserID)
	}
	if job.SyncDate != time.Now().Format(database.DateFormat) {
		t.Errorf("Expected sync date for today, got %s", job.SyncDate)
	}
}

func TestHandleCallback_BadState(t *testing.T) {
	manager, db := setupOAuthTest(t)
	defer db.Close()

	_, err := manager.HandleCallback(context.Background(), "test_auth_code", "forged_state")
	if err == nil {
		t.Fatal("Expected error for forged state")
	}
}

func TestAccessTokenFor_NotConnected(t *testing.T) {
	manager, db := setupOAuthTest(t)
	defer db.Close()

	user := testUser(t, db)

	_, err := manager.AccessTokenFor(context.Background(), user.UserID)
	if err != ErrNotConnected {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}

func TestAccessTokenFor_ValidToken(t *testing.T) {
	manager, db := setupOAuthTest(t)
	defer db.Close()

	user := testUser(t, db)

	token := &database.FitbitToken{
		UserID:       user.UserID,
		AccessToken:  "valid_token",
		RefreshToken: "refresh_token",
		ExpiresAt:    time.Now().Add(1 * time.Hour).Unix(),
	}
	if err := db.UpsertFitbitToken(token); err != nil {
		t.Fatalf("Failed to upsert token: %v", err)
	}

	accessToken, err := manager.AccessTokenFor(context.Background(), user.UserID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if accessToken != "valid_token" {
		t.Error("Token should not have been refreshed")
	}
}

func TestAccessTokenFor_RefreshesExpired(t *testing.T) {
	manager, db := setupOAuthTest(t)
	defer db.Close()

	user := testUser(t, db)

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Failed to parse form", http.StatusBadRequest)
			return
		}
		if r.FormValue("grant_type") != "refresh_token" {
			http.Error(w, "Invalid grant_type", http.StatusBadRequest)
			return
		}

		response := fitbit.TokenResponse{
			AccessToken:  "refreshed_access_token",
			RefreshToken: "rotated_refresh_token",
			ExpiresIn:    28800,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer tokenServer.Close()

	manager.fitbitClient.SetTokenURL(tokenServer.URL)

	token := &database.FitbitToken{
		UserID:       user.UserID,
		AccessToken:  "stale_token",
		RefreshToken: "old_refresh_token",
		ExpiresAt:    time.Now().Add(-1 * time.Hour).Unix(),
	}
	if err := db.UpsertFitbitToken(token); err != nil {
		t.Fatalf("Failed to upsert token: %v", err)
	}

	accessToken, err := manager.AccessTokenFor(context.Background(), user.UserID)
	if err != nil {
		t.Fatalf("Expected refresh to succeed, got %v", err)
	}
	if accessToken != "refreshed_access_token" {
		t.Errorf("Expected refreshed token, got '%s'", accessToken)
	}

	// The rotated refresh token must be persisted
	stored, err := db.GetFitbitToken(user.UserID)
	if err != nil {
		t.Fatalf("Failed to get token: %v", err)
	}
	if stored.RefreshToken != "rotated_refresh_token" {
		t.Errorf("Expected rotated refresh token persisted, got '%s'", stored.RefreshToken)
	}
}

func TestGenerateRandomState(t *testing.T) {
	state1, err := generateRandomState()
	if err != nil {
		t.Fatalf("Failed to generate state: %v", err)
	}

	state2, err := generateRandomState()
	if err != nil {
		t.Fatalf("Failed to generate second state: %v", err)
	}

	if state1 == state2 {
		t.Error("Expected different random states")
	}

	if len(state1) == 0 {
		t.Error("Expected non-empty state")
	}
}
