package engine

import (
	"fmt"

	"stridesync/internal/database"
	"stridesync/internal/metrics"
)

// EvaluateAndAward scans the badge catalog for badges of the given trigger
// type whose threshold the metric value meets, and awards each one the user
// does not already hold. Returns exactly the badges awarded by this call;
// previously earned badges are excluded even if still eligible. Awards are
// at-most-once per (user, badge): a metric that drops below a threshold
// and rises again never re-awards.
//
// The leaderboard trigger type is declared in the catalog but has no
// evaluation rule; it is reserved and always yields no awards.
func (e *Engine) EvaluateAndAward(userID int64, triggerType string, value int64) ([]*database.Badge, error) {
	if triggerType == database.TriggerLeaderboard {
		return nil, nil
	}

	eligible, err := e.db.ListEligibleBadges(triggerType, value)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible badges: %w", err)
	}

	var awarded []*database.Badge
	for _, badge := range eligible {
		// INSERT OR IGNORE under the (user, badge) primary key: a
		// concurrent duplicate award is a silent no-op
		isNew, err := e.db.AwardBadge(userID, badge.BadgeID)
		if err != nil {
			return nil, fmt.Errorf("failed to award badge %d: %w", badge.BadgeID, err)
		}
		if isNew {
			awarded = append(awarded, badge)
			metrics.BadgesAwardedTotal.WithLabelValues(triggerType).Inc()
			e.logger.Info("Awarded badge",
				"user_id", userID,
				"badge_id", badge.BadgeID,
				"badge", badge.Name,
				"trigger_type", triggerType,
				"value", value)
		}
	}

	return awarded, nil
}
