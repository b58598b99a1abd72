package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Group is a user-created group for shared leaderboards
type Group struct {
	GroupID   int64  `json:"group_id"`
	Name      string `json:"name"`
	CreatedBy int64  `json:"created_by"`
	CreatedAt int64  `json:"created_at"`
}

// CreateGroup inserts a new group and fills in its assigned ID
func (db *DB) CreateGroup(g *Group) error {
	g.CreatedAt = time.Now().Unix()

	result, err := db.conn.Exec(`
		INSERT INTO groups (name, created_by, created_at) VALUES (?, ?, ?)
	`, g.Name, g.CreatedBy, g.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get group id: %w", err)
	}
	g.GroupID = id
	return nil
}

// GetGroup retrieves a group by ID. Returns nil if not found.
func (db *DB) GetGroup(groupID int64) (*Group, error) {
	var g Group
	var createdBy sql.NullInt64

	err := db.conn.QueryRow(`
		SELECT group_id, name, created_by, created_at FROM groups WHERE group_id = ?
	`, groupID).Scan(&g.GroupID, &g.Name, &createdBy, &g.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	if createdBy.Valid {
		g.CreatedBy = createdBy.Int64
	}
	return &g, nil
}

// ListGroups returns all groups, newest first
func (db *DB) ListGroups() ([]*Group, error) {
	rows, err := db.conn.Query(`
		SELECT group_id, name, created_by, created_at FROM groups ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		var g Group
		var createdBy sql.NullInt64
		if err := rows.Scan(&g.GroupID, &g.Name, &createdBy, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		if createdBy.Valid {
			g.CreatedBy = createdBy.Int64
		}
		groups = append(groups, &g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}
	return groups, nil
}

// DeleteGroup removes a group; memberships cascade
func (db *DB) DeleteGroup(groupID int64) error {
	result, err := db.conn.Exec(`DELETE FROM groups WHERE group_id = ?`, groupID)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("group not found")
	}
	return nil
}

// JoinGroup adds a user to a group. Joining twice is a no-op.
func (db *DB) JoinGroup(userID, groupID int64) error {
	_, err := db.conn.Exec(`
		INSERT OR IGNORE INTO group_memberships (user_id, group_id, joined_on)
		VALUES (?, ?, ?)
	`, userID, groupID, time.Now().Unix())

	if err != nil {
		return fmt.Errorf("failed to join group: %w", err)
	}
	return nil
}

// LeaveGroup removes a user from a group
func (db *DB) LeaveGroup(userID, groupID int64) error {
	_, err := db.conn.Exec(`
		DELETE FROM group_memberships WHERE user_id = ? AND group_id = ?
	`, userID, groupID)

	if err != nil {
		return fmt.Errorf("failed to leave group: %w", err)
	}
	return nil
}

// IsGroupMember reports whether a user belongs to a group
func (db *DB) IsGroupMember(userID, groupID int64) (bool, error) {
	var count int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM group_memberships WHERE user_id = ? AND group_id = ?
	`, userID, groupID).Scan(&count)

	if err != nil {
		return false, fmt.Errorf("failed to check group membership: %w", err)
	}
	return count > 0, nil
}
