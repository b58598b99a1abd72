// Package engine implements the gamification core: streak and points
// recomputation, badge awarding, and leaderboard ranking. Everything here is
// a pure function of the step ledger plus the caller's current date, so
// recomputation is idempotent and safe to run on every request.
package engine

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"stridesync/internal/database"
	"stridesync/internal/metrics"
)

// Engine recomputes derived gamification state from the step ledger
type Engine struct {
	db     *database.DB
	logger *slog.Logger

	// now is swappable in tests to pin "today"
	now func() time.Time
}

// New creates an engine over the given database
func New(db *database.DB) *Engine {
	return &Engine{
		db:     db,
		logger: slog.Default(),
		now:    time.Now,
	}
}

// Result is the outcome of one full recomputation. NewBadges carries the
// badges awarded by this call only; the caller surfaces them once and they
// are never stored as pending state.
type Result struct {
	Streak    *database.StreakState `json:"streak"`
	Points    *database.PointsState `json:"points"`
	NewBadges []*database.Badge     `json:"new_badges"`
}

// Recompute derives a user's streak and points from the ledger and then
// evaluates badge eligibility for both the streak and cumulative-steps
// metrics. Streak and points are written in a single transaction: a reader
// never observes a fresh streak next to stale points, and a failure leaves
// prior state untouched. Concurrent recomputations for the same user
// converge because each run is a pure function of the ledger and today.
func (e *Engine) Recompute(userID int64) (*Result, error) {
	today := e.now()
	todayStr := today.Format(database.DateFormat)

	var streakState *database.StreakState
	var pointsState *database.PointsState

	err := e.db.WithTx(func(tx *sql.Tx) error {
		dates, err := e.db.DistinctEntryDatesTx(tx, userID, todayStr)
		if err != nil {
			return err
		}

		streak := consecutiveStreak(dates, today)

		streakState, err = e.db.GetOrCreateStreakStateTx(tx, userID)
		if err != nil {
			return err
		}
		streakState.CurrentStreak = int64(streak)
		streakState.LastLoggedDate = todayStr
		if streakState.CurrentStreak > streakState.MaxStreak {
			streakState.MaxStreak = streakState.CurrentStreak
		}
		if err := e.db.UpdateStreakStateTx(tx, streakState); err != nil {
			return err
		}

		weekStart := today.AddDate(0, 0, -6).Format(database.DateFormat)
		weekTotal, err := e.db.SumStepsBetweenTx(tx, userID, weekStart, todayStr)
		if err != nil {
			return err
		}

		points := pointsFor(weekTotal, streak)

		pointsState, err = e.db.GetOrCreatePointsStateTx(tx, userID)
		if err != nil {
			return err
		}
		pointsState.CurrentPoints = points
		if points > pointsState.TotalPoints {
			pointsState.TotalPoints = points
		}
		return e.db.UpdatePointsStateTx(tx, pointsState)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to recompute user %d: %w", userID, err)
	}

	metrics.RecomputationsTotal.Inc()

	// Badge evaluation runs outside the state transaction: awards are
	// individually idempotent and a duplicate-key race is a no-op.
	newBadges, err := e.evaluateAfterRecompute(userID, streakState.CurrentStreak)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Recomputed user state",
		"user_id", userID,
		"streak", streakState.CurrentStreak,
		"points", pointsState.CurrentPoints,
		"new_badges", len(newBadges))

	return &Result{
		Streak:    streakState,
		Points:    pointsState,
		NewBadges: newBadges,
	}, nil
}

// evaluateAfterRecompute checks both badge categories a recomputation can
// satisfy: streak length and lifetime cumulative steps. A single ledger
// mutation can qualify a user for badges in both at once.
func (e *Engine) evaluateAfterRecompute(userID, currentStreak int64) ([]*database.Badge, error) {
	newBadges, err := e.EvaluateAndAward(userID, database.TriggerStreak, currentStreak)
	if err != nil {
		return nil, err
	}

	totalSteps, err := e.db.SumStepsTotal(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum total steps for user %d: %w", userID, err)
	}

	stepBadges, err := e.EvaluateAndAward(userID, database.TriggerSteps, totalSteps)
	if err != nil {
		return nil, err
	}

	return append(newBadges, stepBadges...), nil
}
