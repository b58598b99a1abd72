package database

// Schema contains all SQL statements for creating tables and indexes
const Schema = `
-- Users table: Accounts known to the service (authentication happens upstream)
CREATE TABLE IF NOT EXISTS users (
    user_id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    step_goal INTEGER NOT NULL DEFAULT 10000,
    is_admin BOOLEAN NOT NULL DEFAULT 0,
    active BOOLEAN NOT NULL DEFAULT 1,

    -- Metadata
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Fitbit tokens table: OAuth tokens for users who connected a wearable
CREATE TABLE IF NOT EXISTS fitbit_tokens (
    user_id INTEGER PRIMARY KEY,
    access_token TEXT NOT NULL,
    refresh_token TEXT NOT NULL,
    expires_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,

    FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
);

-- Step entries table: The step ledger. Multiple entries per user per day
-- are allowed and summed; auto-synced entries are upserted per day.
CREATE TABLE IF NOT EXISTS step_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    step_count INTEGER NOT NULL CHECK (step_count >= 0),
    timestamp INTEGER NOT NULL,  -- Unix timestamp
    entry_date TEXT NOT NULL,    -- Extracted local date (YYYY-MM-DD) for querying
    is_auto_synced BOOLEAN NOT NULL DEFAULT 0,

    -- Metadata
    created_at INTEGER NOT NULL,

    FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
);

-- Streak state table: One row per user, maintained by the engine
CREATE TABLE IF NOT EXISTS streak_state (
    user_id INTEGER PRIMARY KEY,
    current_streak INTEGER NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
    max_streak INTEGER NOT NULL DEFAULT 0 CHECK (max_streak >= 0),
    last_logged_date TEXT,
    updated_at INTEGER NOT NULL,

    FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
);

-- Points state table: One row per user; total_points is a high-water mark
CREATE TABLE IF NOT EXISTS points_state (
    user_id INTEGER PRIMARY KEY,
    current_points INTEGER NOT NULL DEFAULT 0 CHECK (current_points >= 0),
    total_points INTEGER NOT NULL DEFAULT 0 CHECK (total_points >= 0),
    updated_at INTEGER NOT NULL,

    FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
);

-- Badges table: Static admin-managed catalog
CREATE TABLE IF NOT EXISTS badges (
    badge_id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    image_url TEXT NOT NULL DEFAULT '',
    rarity TEXT NOT NULL CHECK (rarity IN ('common', 'rare', 'legendary')),
    trigger_type TEXT NOT NULL CHECK (trigger_type IN ('steps', 'streak', 'leaderboard')),
    trigger_value INTEGER NOT NULL CHECK (trigger_value >= 0),
    created_at INTEGER NOT NULL
);

-- User badges table: Awards. The primary key enforces at-most-once per
-- (user, badge); duplicate awards become no-ops via INSERT OR IGNORE.
CREATE TABLE IF NOT EXISTS user_badges (
    user_id INTEGER NOT NULL,
    badge_id INTEGER NOT NULL,
    awarded_on INTEGER NOT NULL,

    PRIMARY KEY (user_id, badge_id),
    FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE,
    FOREIGN KEY (badge_id) REFERENCES badges(badge_id) ON DELETE CASCADE
);

-- Groups table
CREATE TABLE IF NOT EXISTS groups (
    group_id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    created_by INTEGER,
    created_at INTEGER NOT NULL,

    FOREIGN KEY (created_by) REFERENCES users(user_id) ON DELETE SET NULL
);

-- Group memberships table
CREATE TABLE IF NOT EXISTS group_memberships (
    user_id INTEGER NOT NULL,
    group_id INTEGER NOT NULL,
    joined_on INTEGER NOT NULL,

    PRIMARY KEY (user_id, group_id),
    FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE,
    FOREIGN KEY (group_id) REFERENCES groups(group_id) ON DELETE CASCADE
);

-- Sync jobs table: Queue of pending wearable syncs with retry state
CREATE TABLE IF NOT EXISTS sync_jobs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    sync_date TEXT NOT NULL,  -- Local date (YYYY-MM-DD) to fetch

    -- Retry state
    retry_count INTEGER NOT NULL DEFAULT 0,
    next_retry_at INTEGER,
    processing_started_at INTEGER,
    last_error TEXT,

    -- Metadata
    created_at INTEGER NOT NULL,

    FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
);

-- Indexes for step_entries
CREATE INDEX IF NOT EXISTS idx_step_entries_user_id ON step_entries(user_id);
CREATE INDEX IF NOT EXISTS idx_step_entries_user_date ON step_entries(user_id, entry_date);
CREATE INDEX IF NOT EXISTS idx_step_entries_timestamp ON step_entries(timestamp DESC);

-- A day's auto-synced total is a single row, upserted on re-sync
CREATE UNIQUE INDEX IF NOT EXISTS idx_step_entries_synced_day
    ON step_entries(user_id, entry_date) WHERE is_auto_synced = 1;

-- Indexes for badges
CREATE INDEX IF NOT EXISTS idx_badges_trigger ON badges(trigger_type, trigger_value);

-- Indexes for user_badges
CREATE INDEX IF NOT EXISTS idx_user_badges_badge_id ON user_badges(badge_id);

-- Indexes for group_memberships
CREATE INDEX IF NOT EXISTS idx_group_memberships_group_id ON group_memberships(group_id);

-- Indexes for sync_jobs
CREATE INDEX IF NOT EXISTS idx_sync_jobs_processing ON sync_jobs(processing_started_at);
CREATE INDEX IF NOT EXISTS idx_sync_jobs_user ON sync_jobs(user_id);

-- Prevent duplicate pending syncs for the same user and day
CREATE UNIQUE INDEX IF NOT EXISTS idx_sync_jobs_unique ON sync_jobs(user_id, sync_date);
`
