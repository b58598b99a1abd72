package database

import (
	"database/sql"
	"fmt"
	"time"
)

// User represents an account known to the service. Authentication happens
// upstream; this service only needs identity and a few profile fields.
type User struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	StepGoal  int64  `json:"step_goal"`
	IsAdmin   bool   `json:"is_admin"`
	Active    bool   `json:"active"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// CreateUser inserts a new user and fills in its assigned ID
func (db *DB) CreateUser(u *User) error {
	now := time.Now().Unix()
	u.CreatedAt = now
	u.UpdatedAt = now

	result, err := db.conn.Exec(`
		INSERT INTO users (username, step_goal, is_admin, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.Username, u.StepGoal, u.IsAdmin, u.Active, u.CreatedAt, u.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user id: %w", err)
	}
	u.UserID = id
	return nil
}

// GetUser retrieves a user by ID. Returns nil if not found.
func (db *DB) GetUser(userID int64) (*User, error) {
	var u User
	err := db.conn.QueryRow(`
		SELECT user_id, username, step_goal, is_admin, active, created_at, updated_at
		FROM users WHERE user_id = ?
	`, userID).Scan(&u.UserID, &u.Username, &u.StepGoal, &u.IsAdmin, &u.Active, &u.CreatedAt, &u.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// GetUserByUsername retrieves a user by username. Returns nil if not found.
func (db *DB) GetUserByUsername(username string) (*User, error) {
	var u User
	err := db.conn.QueryRow(`
		SELECT user_id, username, step_goal, is_admin, active, created_at, updated_at
		FROM users WHERE username = ?
	`, username).Scan(&u.UserID, &u.Username, &u.StepGoal, &u.IsAdmin, &u.Active, &u.CreatedAt, &u.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return &u, nil
}

// UpdateStepGoal updates a user's daily step goal
func (db *DB) UpdateStepGoal(userID, stepGoal int64) error {
	result, err := db.conn.Exec(`
		UPDATE users SET step_goal = ?, updated_at = ? WHERE user_id = ?
	`, stepGoal, time.Now().Unix(), userID)

	if err != nil {
		return fmt.Errorf("failed to update step goal: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

// ListUsers returns users with pagination, optionally filtered to active accounts
func (db *DB) ListUsers(activeOnly bool, offset, limit int) ([]*User, error) {
	query := `
		SELECT user_id, username, step_goal, is_admin, active, created_at, updated_at
		FROM users
	`
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	}

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		err := rows.Scan(&u.UserID, &u.Username, &u.StepGoal, &u.IsAdmin, &u.Active, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}
