package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Badge rarity levels
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityLegendary = "legendary"
)

// Badge trigger types. TriggerLeaderboard is declared in the catalog schema
// but has no evaluation rule; the evaluator treats it as reserved.
const (
	TriggerSteps       = "steps"
	TriggerStreak      = "streak"
	TriggerLeaderboard = "leaderboard"
)

// Badge is one entry of the admin-managed badge catalog
type Badge struct {
	BadgeID      int64  `json:"badge_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ImageURL     string `json:"image_url"`
	Rarity       string `json:"rarity"`
	TriggerType  string `json:"trigger_type"`
	TriggerValue int64  `json:"trigger_value"`
	CreatedAt    int64  `json:"-"`
}

// UserBadge records one badge awarded to one user
type UserBadge struct {
	UserID    int64 `json:"user_id"`
	BadgeID   int64 `json:"badge_id"`
	AwardedOn int64 `json:"awarded_on"`
}

// CreateBadge inserts a badge into the catalog
func (db *DB) CreateBadge(b *Badge) error {
	b.CreatedAt = time.Now().Unix()

	result, err := db.conn.Exec(`
		INSERT INTO badges (name, description, image_url, rarity, trigger_type, trigger_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, b.Name, b.Description, b.ImageURL, b.Rarity, b.TriggerType, b.TriggerValue, b.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create badge: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get badge id: %w", err)
	}
	b.BadgeID = id
	return nil
}

// GetBadge retrieves a badge by ID. Returns nil if not found.
func (db *DB) GetBadge(badgeID int64) (*Badge, error) {
	var b Badge
	err := db.conn.QueryRow(`
		SELECT badge_id, name, description, image_url, rarity, trigger_type, trigger_value, created_at
		FROM badges WHERE badge_id = ?
	`, badgeID).Scan(&b.BadgeID, &b.Name, &b.Description, &b.ImageURL, &b.Rarity, &b.TriggerType, &b.TriggerValue, &b.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get badge: %w", err)
	}
	return &b, nil
}

// ListBadges returns the full badge catalog
func (db *DB) ListBadges() ([]*Badge, error) {
	rows, err := db.conn.Query(`
		SELECT badge_id, name, description, image_url, rarity, trigger_type, trigger_value, created_at
		FROM badges ORDER BY trigger_type, trigger_value
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer rows.Close()

	return scanBadges(rows)
}

// ListEligibleBadges returns catalog badges of the given trigger type whose
// threshold is at or below the supplied metric value
func (db *DB) ListEligibleBadges(triggerType string, value int64) ([]*Badge, error) {
	rows, err := db.conn.Query(`
		SELECT badge_id, name, description, image_url, rarity, trigger_type, trigger_value, created_at
		FROM badges
		WHERE trigger_type = ? AND trigger_value <= ?
		ORDER BY trigger_value
	`, triggerType, value)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible badges: %w", err)
	}
	defer rows.Close()

	return scanBadges(rows)
}

func scanBadges(rows *sql.Rows) ([]*Badge, error) {
	var badges []*Badge
	for rows.Next() {
		var b Badge
		err := rows.Scan(&b.BadgeID, &b.Name, &b.Description, &b.ImageURL, &b.Rarity, &b.TriggerType, &b.TriggerValue, &b.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating badges: %w", err)
	}
	return badges, nil
}

// AwardBadge records a badge award. Awards are at-most-once per
// (user, badge): a duplicate attempt is a no-op and returns false.
func (db *DB) AwardBadge(userID, badgeID int64) (bool, error) {
	result, err := db.conn.Exec(`
		INSERT OR IGNORE INTO user_badges (user_id, badge_id, awarded_on)
		VALUES (?, ?, ?)
	`, userID, badgeID, time.Now().Unix())

	if err != nil {
		return false, fmt.Errorf("failed to award badge: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// ListUserBadges returns the badges a user has earned, newest first
func (db *DB) ListUserBadges(userID int64) ([]*Badge, error) {
	rows, err := db.conn.Query(`
		SELECT b.badge_id, b.name, b.description, b.image_url, b.rarity, b.trigger_type, b.trigger_value, b.created_at
		FROM user_badges ub
		JOIN badges b ON b.badge_id = ub.badge_id
		WHERE ub.user_id = ?
		ORDER BY ub.awarded_on DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user badges: %w", err)
	}
	defer rows.Close()

	return scanBadges(rows)
}

// CountUserBadge returns how many rows exist for a (user, badge) pair.
// The primary key keeps this at most 1.
func (db *DB) CountUserBadge(userID, badgeID int64) (int, error) {
	var count int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM user_badges WHERE user_id = ? AND badge_id = ?
	`, userID, badgeID).Scan(&count)

	if err != nil {
		return 0, fmt.Errorf("failed to count user badge: %w", err)
	}
	return count, nil
}
