package engine

import (
	"errors"
	"fmt"

	"stridesync/internal/database"
	"stridesync/internal/metrics"
)

// DefaultLeaderboardLimit is the number of rows returned when the caller
// does not supply a usable limit
const DefaultLeaderboardLimit = 10

// ErrGroupNotFound is returned when ranking is requested for a group that
// does not exist
var ErrGroupNotFound = errors.New("group not found")

// LeaderboardEntry is one ranked row, computed on demand and never persisted
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Points   int64  `json:"points"`
	Streak   int64  `json:"streak"`
}

// RankGlobal ranks all active users by points
func (e *Engine) RankGlobal(limit int) ([]LeaderboardEntry, error) {
	rows, err := e.db.LeaderboardRows(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to rank global leaderboard: %w", err)
	}

	metrics.LeaderboardRequestsTotal.WithLabelValues(metrics.ScopeGlobal).Inc()

	return assignRanks(rows, limit), nil
}

// RankGroup ranks the members of one group by points. A nonexistent group
// is reported as ErrGroupNotFound rather than an empty board.
func (e *Engine) RankGroup(groupID int64, limit int) ([]LeaderboardEntry, error) {
	group, err := e.db.GetGroup(groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up group %d: %w", groupID, err)
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	rows, err := e.db.LeaderboardRows(&groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to rank group leaderboard: %w", err)
	}

	metrics.LeaderboardRequestsTotal.WithLabelValues(metrics.ScopeGroup).Inc()

	return assignRanks(rows, limit), nil
}

// assignRanks applies competition ranking over rows already sorted by
// (points DESC, streak DESC, username ASC): rows with equal points share a
// rank, and the next distinct points value takes its 1-based position in
// the list, so gaps appear after ties. Truncation to limit happens after
// ranks are assigned.
func assignRanks(rows []*database.LeaderboardRow, limit int) []LeaderboardEntry {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	rank := 0
	var prevPoints int64
	for i, row := range rows {
		if i == 0 || row.Points != prevPoints {
			rank = i + 1
		}
		prevPoints = row.Points

		entries = append(entries, LeaderboardEntry{
			Rank:     rank,
			UserID:   row.UserID,
			Username: row.Username,
			Points:   row.Points,
			Streak:   row.Streak,
		})
	}

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
