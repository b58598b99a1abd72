package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"stridesync/internal/config"
	"stridesync/internal/database"
	"stridesync/internal/fitbit"
)

// ErrNotConnected is returned when a user has no stored Fitbit tokens
var ErrNotConnected = errors.New("user has not connected a fitbit account")

// Manager handles the OAuth 2.0 flow with Fitbit
type Manager struct {
	config       *config.Config
	db           *database.DB
	fitbitClient *fitbit.Client
	logger       *slog.Logger
	states       *stateStore // CSRF protection
}

// stateStore tracks valid OAuth states for CSRF protection. Each state is
// bound to the user who started the flow so the callback knows whose tokens
// to store.
type stateStore struct {
	mu     sync.RWMutex
	states map[string]stateEntry
}

type stateEntry struct {
	userID  int64
	expires time.Time
}

// NewManager creates a new OAuth manager
func NewManager(cfg *config.Config, db *database.DB, fitbitClient *fitbit.Client) *Manager {
	mgr := &Manager{
		config:       cfg,
		db:           db,
		fitbitClient: fitbitClient,
		logger:       slog.Default(),
		states: &stateStore{
			states: make(map[string]stateEntry),
		},
	}

	// Start background cleanup of expired states
	go mgr.cleanupStates()

	return mgr
}

// GenerateAuthURL generates a Fitbit authorization URL with CSRF protection.
// The state is bound to the given user and expires after 10 minutes.
func (m *Manager) GenerateAuthURL(userID int64) (string, string, error) {
	state, err := generateRandomState()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state: %w", err)
	}

	m.states.mu.Lock()
	m.states.states[state] = stateEntry{
		userID:  userID,
		expires: time.Now().Add(10 * time.Minute),
	}
	m.states.mu.Unlock()

	authURL := m.fitbitClient.AuthorizeURL(m.config.FitbitRedirectURI, state)

	m.logger.Info("Generated auth URL", "user_id", userID, "state", state)

	return authURL, state, nil
}

// HandleCallback processes the OAuth callback: it validates the state,
// exchanges the code for tokens, stores them, and enqueues a sync of today's
// steps for the newly connected user. Returns the user ID on success.
func (m *Manager) HandleCallback(ctx context.Context, code, state string) (int64, error) {
	userID, ok := m.consumeState(state)
	if !ok {
		return 0, fmt.Errorf("invalid or expired state")
	}

	m.logger.Info("Handling OAuth callback", "user_id", userID, "code_length", len(code))

	tokenResp, err := m.fitbitClient.ExchangeCode(ctx, code, m.config.FitbitRedirectURI)
	if err != nil {
		return 0, fmt.Errorf("failed to exchange code: %w", err)
	}

	token := &database.FitbitToken{
		UserID:       userID,
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresAt:    time.Now().Unix() + tokenResp.ExpiresIn,
	}

	if err := m.db.UpsertFitbitToken(token); err != nil {
		return 0, fmt.Errorf("failed to store fitbit tokens: %w", err)
	}

	m.logger.Info("Stored fitbit tokens", "user_id", userID, "fitbit_user_id", tokenResp.FitbitUserID)

	// Enqueue a sync of today's steps to seed the ledger
	today := time.Now().Format(database.DateFormat)
	if _, err := m.db.EnqueueSyncJob(userID, today); err != nil {
		m.logger.Error("Failed to enqueue sync job", "error", err, "user_id", userID)
		// Don't fail the OAuth flow if sync enqueueing fails
	} else {
		m.logger.Info("Enqueued sync job", "user_id", userID, "sync_date", today)
	}

	return userID, nil
}

// AccessTokenFor returns a valid access token for the user, refreshing and
// persisting it first if it is expired or about to expire.
func (m *Manager) AccessTokenFor(ctx context.Context, userID int64) (string, error) {
	token, err := m.db.GetFitbitToken(userID)
	if err != nil {
		return "", fmt.Errorf("failed to get fitbit token: %w", err)
	}
	if token == nil {
		return "", ErrNotConnected
	}

	if !fitbit.TokenNeedsRefresh(token.ExpiresAt) {
		return token.AccessToken, nil
	}

	m.logger.Info("Refreshing fitbit token", "user_id", userID)

	tokenResp, err := m.fitbitClient.RefreshToken(ctx, token.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}

	refreshed := &database.FitbitToken{
		UserID:       userID,
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresAt:    time.Now().Unix() + tokenResp.ExpiresIn,
	}
	if err := m.db.UpsertFitbitToken(refreshed); err != nil {
		return "", fmt.Errorf("failed to store refreshed tokens: %w", err)
	}

	return refreshed.AccessToken, nil
}

// consumeState checks a state, returning the bound user. States are one-time
// use and removed whether valid or expired.
func (m *Manager) consumeState(state string) (int64, bool) {
	m.states.mu.Lock()
	defer m.states.mu.Unlock()

	entry, exists := m.states.states[state]
	if !exists {
		return 0, false
	}

	delete(m.states.states, state)

	if time.Now().After(entry.expires) {
		return 0, false
	}

	return entry.userID, true
}

// cleanupStates removes expired states every minute
func (m *Manager) cleanupStates() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		m.states.mu.Lock()
		now := time.Now()
		for state, entry := range m.states.states {
			if now.After(entry.expires) {
				delete(m.states.states, state)
			}
		}
		m.states.mu.Unlock()
	}
}

// generateRandomState generates a cryptographically secure random state
func generateRandomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
