package engine

// streakPointsFactor is the per-day bonus for an active streak
const streakPointsFactor = 10

// pointsFor computes a user's current score from the trailing 7-day step
// total and the current streak. The division is integer floor over a full
// 7-day window regardless of how many days were logged. Fractional points
// are intentionally dropped, and an empty week yields zero.
func pointsFor(weekTotal int64, streak int) int64 {
	weekAverage := weekTotal / 7
	return weekAverage + streakPointsFactor*int64(streak)
}
