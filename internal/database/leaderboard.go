package database

import (
	"fmt"
)

// LeaderboardRow is one user's standing before ranks are assigned: active
// users joined to their points and streak, absent states defaulting to zero.
type LeaderboardRow struct {
	UserID   int64
	Username string
	Points   int64
	Streak   int64
}

// LeaderboardRows returns active users ordered by points descending, streak
// descending, then username ascending. When groupID is non-nil the result is
// restricted to members of that group.
func (db *DB) LeaderboardRows(groupID *int64) ([]*LeaderboardRow, error) {
	query := `
		SELECT u.user_id, u.username,
		       COALESCE(p.current_points, 0),
		       COALESCE(s.current_streak, 0)
		FROM users u
		LEFT JOIN points_state p ON p.user_id = u.user_id
		LEFT JOIN streak_state s ON s.user_id = u.user_id
	`
	args := []any{}
	if groupID != nil {
		query += `
		JOIN group_memberships gm ON gm.user_id = u.user_id AND gm.group_id = ?
		`
		args = append(args, *groupID)
	}
	query += `
		WHERE u.active = 1
		ORDER BY COALESCE(p.current_points, 0) DESC,
		         COALESCE(s.current_streak, 0) DESC,
		         u.username ASC
	`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard rows: %w", err)
	}
	defer rows.Close()

	var result []*LeaderboardRow
	for rows.Next() {
		var r LeaderboardRow
		if err := rows.Scan(&r.UserID, &r.Username, &r.Points, &r.Streak); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard rows: %w", err)
	}
	return result, nil
}
