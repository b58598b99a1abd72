package database

import (
	"database/sql"
	"fmt"
	"time"
)

// FitbitToken holds a user's wearable OAuth tokens
type FitbitToken struct {
	UserID       int64
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
	UpdatedAt    int64
}

// UpsertFitbitToken stores or replaces a user's Fitbit tokens
func (db *DB) UpsertFitbitToken(t *FitbitToken) error {
	t.UpdatedAt = time.Now().Unix()

	_, err := db.conn.Exec(`
		INSERT INTO fitbit_tokens (user_id, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, t.UserID, t.AccessToken, t.RefreshToken, t.ExpiresAt, t.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert fitbit token: %w", err)
	}
	return nil
}

// GetFitbitToken retrieves a user's Fitbit tokens. Returns nil if the user
// never connected a wearable.
func (db *DB) GetFitbitToken(userID int64) (*FitbitToken, error) {
	var t FitbitToken
	err := db.conn.QueryRow(`
		SELECT user_id, access_token, refresh_token, expires_at, updated_at
		FROM fitbit_tokens WHERE user_id = ?
	`, userID).Scan(&t.UserID, &t.AccessToken, &t.RefreshToken, &t.ExpiresAt, &t.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fitbit token: %w", err)
	}
	return &t, nil
}

// DeleteFitbitToken disconnects a user's wearable
func (db *DB) DeleteFitbitToken(userID int64) error {
	_, err := db.conn.Exec(`DELETE FROM fitbit_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete fitbit token: %w", err)
	}
	return nil
}
