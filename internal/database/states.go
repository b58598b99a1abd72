package database

import (
	"database/sql"
	"fmt"
	"time"
)

// StreakState holds a user's consecutive-day streak, maintained by the
// engine. current_streak never exceeds max_streak.
type StreakState struct {
	UserID         int64  `json:"user_id"`
	CurrentStreak  int64  `json:"current_streak"`
	MaxStreak      int64  `json:"max_streak"`
	LastLoggedDate string `json:"last_logged_date"`
	UpdatedAt      int64  `json:"-"`
}

// PointsState holds a user's score. total_points is the historical maximum
// of current_points and never decreases.
type PointsState struct {
	UserID        int64 `json:"user_id"`
	CurrentPoints int64 `json:"current_points"`
	TotalPoints   int64 `json:"total_points"`
	UpdatedAt     int64 `json:"-"`
}

// GetOrCreateStreakState fetches a user's streak state, creating a
// zero-valued row on first access. Missing state is not an error.
func (db *DB) GetOrCreateStreakState(userID int64) (*StreakState, error) {
	return getOrCreateStreakState(db.conn, userID)
}

// GetOrCreateStreakStateTx is GetOrCreateStreakState inside a transaction
func (db *DB) GetOrCreateStreakStateTx(tx *sql.Tx, userID int64) (*StreakState, error) {
	return getOrCreateStreakState(tx, userID)
}

func getOrCreateStreakState(q dbtx, userID int64) (*StreakState, error) {
	var s StreakState
	var lastLogged sql.NullString

	err := q.QueryRow(`
		SELECT user_id, current_streak, max_streak, last_logged_date, updated_at
		FROM streak_state WHERE user_id = ?
	`, userID).Scan(&s.UserID, &s.CurrentStreak, &s.MaxStreak, &lastLogged, &s.UpdatedAt)

	if err == sql.ErrNoRows {
		now := time.Now().Unix()
		if _, err := q.Exec(`
			INSERT INTO streak_state (user_id, current_streak, max_streak, last_logged_date, updated_at)
			VALUES (?, 0, 0, NULL, ?)
		`, userID, now); err != nil {
			return nil, fmt.Errorf("failed to create streak state: %w", err)
		}
		return &StreakState{UserID: userID, UpdatedAt: now}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get streak state: %w", err)
	}

	if lastLogged.Valid {
		s.LastLoggedDate = lastLogged.String
	}
	return &s, nil
}

// UpdateStreakStateTx writes a recomputed streak inside a transaction so
// streak and points commit together
func (db *DB) UpdateStreakStateTx(tx *sql.Tx, s *StreakState) error {
	s.UpdatedAt = time.Now().Unix()

	result, err := tx.Exec(`
		UPDATE streak_state
		SET current_streak = ?, max_streak = ?, last_logged_date = ?, updated_at = ?
		WHERE user_id = ?
	`, s.CurrentStreak, s.MaxStreak, s.LastLoggedDate, s.UpdatedAt, s.UserID)

	if err != nil {
		return fmt.Errorf("failed to update streak state: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("streak state not found")
	}
	return nil
}

// GetOrCreatePointsState fetches a user's points state, creating a
// zero-valued row on first access
func (db *DB) GetOrCreatePointsState(userID int64) (*PointsState, error) {
	return getOrCreatePointsState(db.conn, userID)
}

// GetOrCreatePointsStateTx is GetOrCreatePointsState inside a transaction
func (db *DB) GetOrCreatePointsStateTx(tx *sql.Tx, userID int64) (*PointsState, error) {
	return getOrCreatePointsState(tx, userID)
}

func getOrCreatePointsState(q dbtx, userID int64) (*PointsState, error) {
	var p PointsState

	err := q.QueryRow(`
		SELECT user_id, current_points, total_points, updated_at
		FROM points_state WHERE user_id = ?
	`, userID).Scan(&p.UserID, &p.CurrentPoints, &p.TotalPoints, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		now := time.Now().Unix()
		if _, err := q.Exec(`
			INSERT INTO points_state (user_id, current_points, total_points, updated_at)
			VALUES (?, 0, 0, ?)
		`, userID, now); err != nil {
			return nil, fmt.Errorf("failed to create points state: %w", err)
		}
		return &PointsState{UserID: userID, UpdatedAt: now}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get points state: %w", err)
	}
	return &p, nil
}

// UpdatePointsStateTx writes recomputed points inside a transaction
func (db *DB) UpdatePointsStateTx(tx *sql.Tx, p *PointsState) error {
	p.UpdatedAt = time.Now().Unix()

	result, err := tx.Exec(`
		UPDATE points_state
		SET current_points = ?, total_points = ?, updated_at = ?
		WHERE user_id = ?
	`, p.CurrentPoints, p.TotalPoints, p.UpdatedAt, p.UserID)

	if err != nil {
		return fmt.Errorf("failed to update points state: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("points state not found")
	}
	return nil
}
