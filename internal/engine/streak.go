package engine

import (
	"time"

	"stridesync/internal/database"
)

// consecutiveStreak counts consecutive calendar days with at least one
// logged entry, walking backward from today. Today is checked first, so a
// user who has not logged today has a streak of zero no matter how long
// the prior run was.
func consecutiveStreak(logged map[string]bool, today time.Time) int {
	streak := 0
	for {
		day := today.AddDate(0, 0, -streak).Format(database.DateFormat)
		if !logged[day] {
			break
		}
		streak++
	}
	return streak
}
