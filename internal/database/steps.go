package database

import (
	"database/sql"
	"fmt"
	"time"
)

// DateFormat is the local calendar date layout used throughout the ledger
const DateFormat = "2006-01-02"

// StepEntry is one row of the step ledger. Manual entries may repeat within
// a day and are summed; auto-synced entries are one row per day.
type StepEntry struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	StepCount    int64  `json:"step_count"`
	Timestamp    int64  `json:"timestamp"`
	EntryDate    string `json:"entry_date"`
	IsAutoSynced bool   `json:"is_auto_synced"`
	CreatedAt    int64  `json:"created_at"`
}

// DailyStepSummary is the per-day aggregate of a user's ledger
type DailyStepSummary struct {
	Date       string `json:"date"`
	StepCount  int64  `json:"step_count"`
	AutoSynced bool   `json:"auto_synced"`
}

// CreateStepEntry inserts a manual or synced step entry
func (db *DB) CreateStepEntry(e *StepEntry) error {
	e.CreatedAt = time.Now().Unix()
	if e.EntryDate == "" {
		e.EntryDate = time.Unix(e.Timestamp, 0).Format(DateFormat)
	}

	result, err := db.conn.Exec(`
		INSERT INTO step_entries (user_id, step_count, timestamp, entry_date, is_auto_synced, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.UserID, e.StepCount, e.Timestamp, e.EntryDate, e.IsAutoSynced, e.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create step entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get step entry id: %w", err)
	}
	e.ID = id
	return nil
}

// UpsertSyncedEntry writes the auto-synced total for a user's day, replacing
// any previous sync of the same day. Re-syncs are idempotent.
func (db *DB) UpsertSyncedEntry(userID int64, entryDate string, stepCount, timestamp int64) error {
	_, err := db.conn.Exec(`
		INSERT INTO step_entries (user_id, step_count, timestamp, entry_date, is_auto_synced, created_at)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT (user_id, entry_date) WHERE is_auto_synced = 1
		DO UPDATE SET step_count = excluded.step_count, timestamp = excluded.timestamp
	`, userID, stepCount, timestamp, entryDate, time.Now().Unix())

	if err != nil {
		return fmt.Errorf("failed to upsert synced entry: %w", err)
	}
	return nil
}

// GetStepEntry retrieves a step entry by ID. Returns nil if not found.
func (db *DB) GetStepEntry(id int64) (*StepEntry, error) {
	var e StepEntry
	err := db.conn.QueryRow(`
		SELECT id, user_id, step_count, timestamp, entry_date, is_auto_synced, created_at
		FROM step_entries WHERE id = ?
	`, id).Scan(&e.ID, &e.UserID, &e.StepCount, &e.Timestamp, &e.EntryDate, &e.IsAutoSynced, &e.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get step entry: %w", err)
	}
	return &e, nil
}

// UpdateManualEntry edits a manual step entry owned by the given user.
// Auto-synced rows are immutable through this path.
func (db *DB) UpdateManualEntry(id, userID, stepCount, timestamp int64) error {
	entryDate := time.Unix(timestamp, 0).Format(DateFormat)

	result, err := db.conn.Exec(`
		UPDATE step_entries
		SET step_count = ?, timestamp = ?, entry_date = ?
		WHERE id = ? AND user_id = ? AND is_auto_synced = 0
	`, stepCount, timestamp, entryDate, id, userID)

	if err != nil {
		return fmt.Errorf("failed to update step entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("step entry not found")
	}
	return nil
}

// DeleteManualEntry deletes a manual step entry owned by the given user
func (db *DB) DeleteManualEntry(id, userID int64) error {
	result, err := db.conn.Exec(`
		DELETE FROM step_entries WHERE id = ? AND user_id = ? AND is_auto_synced = 0
	`, id, userID)

	if err != nil {
		return fmt.Errorf("failed to delete step entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("step entry not found")
	}
	return nil
}

// ListManualEntries returns a user's manual entries, newest first
func (db *DB) ListManualEntries(userID int64) ([]*StepEntry, error) {
	rows, err := db.conn.Query(`
		SELECT id, user_id, step_count, timestamp, entry_date, is_auto_synced, created_at
		FROM step_entries
		WHERE user_id = ? AND is_auto_synced = 0
		ORDER BY timestamp DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list manual entries: %w", err)
	}
	defer rows.Close()

	var entries []*StepEntry
	for rows.Next() {
		var e StepEntry
		err := rows.Scan(&e.ID, &e.UserID, &e.StepCount, &e.Timestamp, &e.EntryDate, &e.IsAutoSynced, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating step entries: %w", err)
	}
	return entries, nil
}

// DailySummaries returns per-day step totals for a user, newest day first
func (db *DB) DailySummaries(userID int64, limit int) ([]*DailyStepSummary, error) {
	query := `
		SELECT entry_date, SUM(step_count), MAX(is_auto_synced)
		FROM step_entries
		WHERE user_id = ?
		GROUP BY entry_date
		ORDER BY entry_date DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.conn.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*DailyStepSummary
	for rows.Next() {
		var s DailyStepSummary
		if err := rows.Scan(&s.Date, &s.StepCount, &s.AutoSynced); err != nil {
			return nil, fmt.Errorf("failed to scan daily summary: %w", err)
		}
		summaries = append(summaries, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily summaries: %w", err)
	}
	return summaries, nil
}

// DistinctEntryDates returns the set of calendar dates with at least one
// entry for the user, up to and including upTo
func (db *DB) DistinctEntryDates(userID int64, upTo string) (map[string]bool, error) {
	return distinctEntryDates(db.conn, userID, upTo)
}

// DistinctEntryDatesTx is DistinctEntryDates inside a transaction
func (db *DB) DistinctEntryDatesTx(tx *sql.Tx, userID int64, upTo string) (map[string]bool, error) {
	return distinctEntryDates(tx, userID, upTo)
}

func distinctEntryDates(q dbtx, userID int64, upTo string) (map[string]bool, error) {
	rows, err := q.Query(`
		SELECT DISTINCT entry_date FROM step_entries
		WHERE user_id = ? AND entry_date <= ?
	`, userID, upTo)
	if err != nil {
		return nil, fmt.Errorf("failed to query entry dates: %w", err)
	}
	defer rows.Close()

	dates := make(map[string]bool)
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan entry date: %w", err)
		}
		dates[d] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry dates: %w", err)
	}
	return dates, nil
}

// SumStepsBetween returns the total steps logged in [from, to] inclusive.
// No rows coerces to zero.
func (db *DB) SumStepsBetween(userID int64, from, to string) (int64, error) {
	return sumStepsBetween(db.conn, userID, from, to)
}

// SumStepsBetweenTx is SumStepsBetween inside a transaction
func (db *DB) SumStepsBetweenTx(tx *sql.Tx, userID int64, from, to string) (int64, error) {
	return sumStepsBetween(tx, userID, from, to)
}

func sumStepsBetween(q dbtx, userID int64, from, to string) (int64, error) {
	var total int64
	err := q.QueryRow(`
		SELECT COALESCE(SUM(step_count), 0) FROM step_entries
		WHERE user_id = ? AND entry_date >= ? AND entry_date <= ?
	`, userID, from, to).Scan(&total)

	if err != nil {
		return 0, fmt.Errorf("failed to sum steps: %w", err)
	}
	return total, nil
}

// SumStepsTotal returns a user's lifetime cumulative step count
func (db *DB) SumStepsTotal(userID int64) (int64, error) {
	var total int64
	err := db.conn.QueryRow(`
		SELECT COALESCE(SUM(step_count), 0) FROM step_entries WHERE user_id = ?
	`, userID).Scan(&total)

	if err != nil {
		return 0, fmt.Errorf("failed to sum total steps: %w", err)
	}
	return total, nil
}
