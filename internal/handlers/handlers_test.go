package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stridesync/internal/config"
	"stridesync/internal/database"
	"stridesync/internal/engine"
)

const testAPIKey = "test_api_key"

func setupHandlersTest(t *testing.T) (*database.DB, *config.Config, *engine.Engine) {
	dbPath := t.TempDir() + "/test.db"
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Init(); err != nil {
		t.Fatalf("Failed to init database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{InternalAPIKey: testAPIKey}
	eng := engine.New(db)

	return db, cfg, eng
}

func createTestUser(t *testing.T, db *database.DB, username string) *database.User {
	user := &database.User{Username: username, StepGoal: 10000, Active: true}
	if err := db.CreateUser(user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

// authedRequest builds a request carrying the internal API key and the
// gateway-forwarded user ID
func authedRequest(method, path string, body []byte, userID int64) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("X-User-ID", fmt.Sprintf("%d", userID))
	return req
}

func TestAuthenticate_MissingAPIKey(t *testing.T) {
	db, cfg, eng := setupHandlersTest(t)
	user := createTestUser(t, db, "alice")

	handler := NewDashboardHandler(db, eng, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("X-User-ID", fmt.Sprintf("%d", user.UserID))
	rec := httptest.NewRecorder()

	handler.HandleDashboard(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without API key, got %d", rec.Code)
	}
}

func TestAuthenticate_MissingUserHeader(t *testing.T) {
	db, cfg, eng := setupHandlersTest(t)

	handler := NewDashboardHandler(db, eng, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	rec := httptest.NewRecorder()

	handler.HandleDashboard(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without X-User-ID, got %d", rec.Code)
	}
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	db, cfg, eng := setupHandlersTest(t)

	handler := NewDashboardHandler(db, eng, cfg)

	req := authedRequest(http.MethodGet, "/api/dashboard", nil, 9999)
	rec := httptest.NewRecorder()

	handler.HandleDashboard(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for unknown user, got %d", rec.Code)
	}
}

func TestDashboard_FreshUser(t *testing.T) {
	db, cfg, eng := setupHandlersTest(t)
	user := createTestUser(t, db, "fresh")

	handler := NewDashboardHandler(db, eng, cfg)

	req := authedRequest(http.MethodGet, "/api/dashboard", nil, user.UserID)
	rec := httptest.NewRecorder()

	handler.HandleDashboard(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dashboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	// A user with no history gets zero-valued state, not an error
	if resp.Streak.CurrentStreak != 0 {
		t.Errorf("Expected streak 0 for fresh user, got %d", resp.Streak.CurrentStreak)
	}
	if resp.Points.CurrentPoints != 0 {
		t.Errorf("Expected points 0 for fresh user, got %d", resp.Points.CurrentPoints)
	}
	if resp.StepsToday != 0 {
		t.Errorf("Expected 0 steps today for fresh user, got %d", resp.StepsToday)
	}
	if len(resp.Badges) != 0 {
		t.Errorf("Expected no badges for fresh user, got %d", len(resp.Badges))
	}
	if resp.NewBadges == nil {
		t.Error("Expected new_badges to be an empty list, not null")
	}
}

func TestCreateStep_RecomputesState(t *testing.T) {
	db, cfg, eng := setupHandlersTest(t)
	user := createTestUser(t, db, "walker")

	handler := NewStepsHandler(db, eng, cfg)

	body, _ := json.Marshal(map[string]int64{"step_count": 7000})
	req := authedRequest(http.MethodPost, "/api/steps", body, user.UserID)
	rec := httptest.NewRecorder()

	handler.HandleSteps(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp stepMutationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Entry == nil || resp.Entry.StepCount != 7000 {
		t.Error("Expected created entry with 7000 steps in response")
	}

	// Logging today yields a streak of 1, and 7000/7 + 10 = 1010 points
	if resp.Streak.CurrentStreak != 1 {
		t.Errorf("Expected streak 1 after logging today, got %d", resp.Streak.CurrentStreak)
	}
	if resp.Points.CurrentPoints != 1010 {
		t.Errorf("Expected 1010 points, got %d", resp.Points.CurrentPoints)
	}
}

func TestCreateStep_NegativeRejected(t *testing.T) {
	db, cfg, eng := setupHandlersTest(t)
	user := createTestUser(t, db, "negative")

	handler := NewStepsHandler(db, eng, cfg)

	body, _ := json.Marshal(map[string]int64{"step_count": -5})
	req := authedRequest(http.MethodPost, "/api/steps", body, user.UserID)
	rec := httptest.NewRecorder()

	handler.HandleSteps(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for negative step_count, got %d", rec.Code)
	}
}

func TestCreateStep_MissingCountRejected(t *testing.T) {
	db, cfg, eng := setupHandlersTest(t)
	user := createTestUser(t, db, "empty")

	handler := NewStepsHandler(db, eng, cfg)

	req := authedRequest(http.MethodPost, "/api/steps", []byte(`{}`), user.UserID)
	rec := httptest.NewRecorder()

	handler.HandleSteps(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing step_count, got %d", rec.Code)
	}
}

func TestUpdateStep_SyncedEntryImmutable(t *testing.T) {
	db, cfg, eng := setupHandlersTest(t)
	user := createTestUser(t, db, "synced")

	today := time.Now().Format(database.DateFormat)
	if err := db.UpsertSyncedEntry(user.UserID, today, 5000, time.Now().Unix()); err != nil {
		t.Fatalf("Failed to upsert synced entry: %v", err)
	}

	// Find the synced entry's ID via the daily summary path
	var id int64
	entries, err := db.ListManualEntries(user.UserID)
	if err != nil {
		t.Fatalf("Failed to list manual entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatal("Synced entry should not appear among manual entries")
	}
	id = 1 // first row inserted in a fresh database

	handler := NewStepsHandler(db, eng, cfg)

	body, _ := json.Marshal(map[string]int64{"step_count": 1})
	req := authedRequest(http.MethodPut, fmt.Sprintf("/api/steps/%d", id), body, user.UserID)
	rec := httptest.NewRecorder()

	handler.HandleStepEntry(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 editing a synced entry, got %d", rec.Code)
	}
}

func TestDeleteStep_ForeignEntryNotFound(t *testing.T) {
	db, cfg, eng := setupHandlersTest(t)
	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")

	entry := &database.StepEntry{
		UserID:    owner.UserID,
		StepCount: 3000,
		Timestamp: time.Now().Unix(),
	}
	if err := db.CreateStepEntry(entry); err != nil {
		t.Fatalf("Failed to create step entry: %v", err)
	}

	handler := NewStepsHandler(db, eng, cfg)

	req := authedRequest(http.MethodDelete, fmt.Sprintf("/api/steps/%d", entry.ID), nil, other.UserID)
	rec := httptest.NewRecorder()

	handler.HandleStepEntry(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 deleting another user's entry, got %d", rec.Code)
	}
}

func TestLeaderboardGlobal_LimitParsing(t *testing.T) {
	db, cfg, eng := setupHandlersTest(t)
	user := createTestUser(t, db, "ranked")

	// Create more users than the default limit
	for i := 0; i < 15; i++ {
		createTestUser(t, db, fmt.Sprintf("user_%d", i))
	}

	handler := NewLeaderboardHandler(db, eng, cfg)

	// Non-numeric limit silently falls back to the default of 10
	req := authedRequest(http.MethodGet, "/api/leaderboard/global?limit=abc", nil, user.UserID)
	rec := httptest.NewRecorder()

	handler.HandleGlobal(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Leaderboard []engine.LeaderboardEntry `json:"leaderboard"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if len(resp.Leaderboard) != engine.DefaultLeaderboardLimit {
		t.Errorf("Expected %d rows with non-numeric limit, got %d",
			engine.DefaultLeaderboardLimit, len(resp.Leaderboard))
	}
}

func TestLeaderboardGroup_NotFound(t *testing.T) {
	db, cfg, eng := setupHandlersTest(t)
	user := createTestUser(t, db, "grouper")

	handler := NewLeaderboardHandler(db, eng, cfg)

	req := authedRequest(http.MethodGet, "/api/leaderboard/group/404", nil, user.UserID)
	rec := httptest.NewRecorder()

	handler.HandleGroup(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown group, got %d", rec.Code)
	}
}

func TestGroups_CreateJoinLeaveDelete(t *testing.T) {
	db, cfg, _ := setupHandlersTest(t)
	creator := createTestUser(t, db, "creator")
	member := createTestUser(t, db, "member")

	handler := NewGroupsHandler(db, cfg)

	// Create
	body, _ := json.Marshal(map[string]string{"name": "Morning Walkers"})
	req := authedRequest(http.MethodPost, "/api/groups", body, creator.UserID)
	rec := httptest.NewRecorder()
	handler.HandleGroups(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var group database.Group
	if err := json.Unmarshal(rec.Body.Bytes(), &group); err != nil {
		t.Fatalf("Failed to decode group: %v", err)
	}
	if group.GroupID == 0 {
		t.Fatal("Expected non-zero group ID")
	}

	// Creator is automatically a member
	isMember, err := db.IsGroupMember(creator.UserID, group.GroupID)
	if err != nil {
		t.Fatalf("Failed to check membership: %v", err)
	}
	if !isMember {
		t.Error("Expected creator to be a member")
	}

	// Join
	req = authedRequest(http.MethodPost, fmt.Sprintf("/api/groups/%d/join", group.GroupID), nil, member.UserID)
	rec = httptest.NewRecorder()
	handler.HandleGroupDetail(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 joining, got %d", rec.Code)
	}

	isMember, _ = db.IsGroupMember(member.UserID, group.GroupID)
	if !isMember {
		t.Error("Expected member to have joined")
	}

	// Leave
	req = authedRequest(http.MethodPost, fmt.Sprintf("/api/groups/%d/leave", group.GroupID), nil, member.UserID)
	rec = httptest.NewRecorder()
	handler.HandleGroupDetail(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 leaving, got %d", rec.Code)
	}

	isMember, _ = db.IsGroupMember(member.UserID, group.GroupID)
	if isMember {
		t.Error("Expected member to have left")
	}

	// Non-creator cannot delete
	req = authedRequest(http.MethodDelete, fmt.Sprintf("/api/groups/%d", group.GroupID), nil, member.UserID)
	rec = httptest.NewRecorder()
	handler.HandleGroupDetail(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for non-creator delete, got %d", rec.Code)
	}

	// Creator can delete
	req = authedRequest(http.MethodDelete, fmt.Sprintf("/api/groups/%d", group.GroupID), nil, creator.UserID)
	rec = httptest.NewRecorder()
	handler.HandleGroupDetail(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for creator delete, got %d", rec.Code)
	}

	deleted, err := db.GetGroup(group.GroupID)
	if err != nil {
		t.Fatalf("Failed to get group: %v", err)
	}
	if deleted != nil {
		t.Error("Expected group to be deleted")
	}
}

func TestGroups_AdminCanDelete(t *testing.T) {
	db, cfg, _ := setupHandlersTest(t)
	creator := createTestUser(t, db, "group_owner")

	admin := &database.User{Username: "admin", StepGoal: 10000, IsAdmin: true, Active: true}
	if err := db.CreateUser(admin); err != nil {
		t.Fatalf("Failed to create admin: %v", err)
	}

	group := &database.Group{Name: "Doomed", CreatedBy: creator.UserID}
	if err := db.CreateGroup(group); err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}

	handler := NewGroupsHandler(db, cfg)

	req := authedRequest(http.MethodDelete, fmt.Sprintf("/api/groups/%d", group.GroupID), nil, admin.UserID)
	rec := httptest.NewRecorder()
	handler.HandleGroupDetail(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for admin delete, got %d", rec.Code)
	}
}

func TestSync_RequiresConnectedFitbit(t *testing.T) {
	db, cfg, _ := setupHandlersTest(t)
	user := createTestUser(t, db, "unsynced")

	handler := NewSyncHandler(db, cfg)

	req := authedRequest(http.MethodPost, "/api/sync", nil, user.UserID)
	rec := httptest.NewRecorder()

	handler.HandleSync(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 without connected fitbit, got %d", rec.Code)
	}
}

func TestSync_EnqueuesAndDeduplicates(t *testing.T) {
	db, cfg, _ := setupHandlersTest(t)
	user := createTestUser(t, db, "syncer")

	token := &database.FitbitToken{
		UserID:       user.UserID,
		AccessToken:  "token",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(1 * time.Hour).Unix(),
	}
	if err := db.UpsertFitbitToken(token); err != nil {
		t.Fatalf("Failed to upsert token: %v", err)
	}

	handler := NewSyncHandler(db, cfg)

	req := authedRequest(http.MethodPost, "/api/sync", nil, user.UserID)
	rec := httptest.NewRecorder()
	handler.HandleSync(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != "queued" {
		t.Errorf("Expected status queued, got %v", resp["status"])
	}

	// A second request for the same day is deduplicated
	req = authedRequest(http.MethodPost, "/api/sync", nil, user.UserID)
	rec = httptest.NewRecorder()
	handler.HandleSync(rec, req)

	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != "already_queued" {
		t.Errorf("Expected status already_queued, got %v", resp["status"])
	}

	length, err := db.GetSyncJobQueueLength()
	if err != nil {
		t.Fatalf("Failed to get queue length: %v", err)
	}
	if length != 1 {
		t.Errorf("Expected 1 queued job after duplicate request, got %d", length)
	}
}

func TestSync_InvalidDateRejected(t *testing.T) {
	db, cfg, _ := setupHandlersTest(t)
	user := createTestUser(t, db, "baddate")

	token := &database.FitbitToken{
		UserID:       user.UserID,
		AccessToken:  "token",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(1 * time.Hour).Unix(),
	}
	if err := db.UpsertFitbitToken(token); err != nil {
		t.Fatalf("Failed to upsert token: %v", err)
	}

	handler := NewSyncHandler(db, cfg)

	body, _ := json.Marshal(map[string]string{"date": "not-a-date"})
	req := authedRequest(http.MethodPost, "/api/sync", body, user.UserID)
	rec := httptest.NewRecorder()
	handler.HandleSync(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad date, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	db, _, _ := setupHandlersTest(t)

	handler := NewHealthHandler(db)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.HandleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}
