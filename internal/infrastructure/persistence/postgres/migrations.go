// Package postgres implements the PostgreSQL persistence layer for the
// achievement engine.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: ACHIEVEMENT CATALOG AND PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create achievement catalog and user progress
-- Version: 001

CREATE TABLE IF NOT EXISTS achievements (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(100) NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    tier VARCHAR(20) NOT NULL DEFAULT 'common',
    points INTEGER NOT NULL DEFAULT 0,
    requirement_threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
    metric VARCHAR(50) NOT NULL,
    metric_categories TEXT[] NOT NULL DEFAULT '{}',
    repeatable BOOLEAN NOT NULL DEFAULT FALSE,
    cooldown_days INTEGER NOT NULL DEFAULT 0,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_tier CHECK (tier IN ('common', 'uncommon', 'rare', 'epic', 'legendary', 'mythic')),
    CONSTRAINT valid_points CHECK (points >= 0),
    CONSTRAINT valid_cooldown CHECK (cooldown_days >= 0)
);

CREATE INDEX IF NOT EXISTS idx_achievements_active ON achievements(active) WHERE active;
CREATE INDEX IF NOT EXISTS idx_achievements_metric ON achievements(metric);
CREATE INDEX IF NOT EXISTS idx_achievements_categories ON achievements USING GIN (metric_categories);

-- User progress: one row per (user, achievement). The composite
-- primary key is what makes the conditional upsert atomic.
CREATE TABLE IF NOT EXISTS user_achievement_progress (
    user_id BIGINT NOT NULL,
    achievement_id BIGINT NOT NULL REFERENCES achievements(id) ON DELETE CASCADE,
    progress DOUBLE PRECISION NOT NULL DEFAULT 0,
    progress_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    completed_at TIMESTAMP WITH TIME ZONE,
    times_completed INTEGER NOT NULL DEFAULT 0,
    points_awarded INTEGER NOT NULL DEFAULT 0,
    last_update TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, achievement_id),

    CONSTRAINT valid_progress CHECK (progress >= 0),
    CONSTRAINT valid_percentage CHECK (progress_percentage >= 0 AND progress_percentage <= 100),
    CONSTRAINT valid_times CHECK (times_completed >= 0)
);

CREATE INDEX IF NOT EXISTS idx_uap_user ON user_achievement_progress(user_id);
CREATE INDEX IF NOT EXISTS idx_uap_completed ON user_achievement_progress(user_id, completed) WHERE completed;

-- Append-only progress change journal.
CREATE TABLE IF NOT EXISTS achievement_progress_history (
    id UUID PRIMARY KEY,
    user_id BIGINT NOT NULL,
    achievement_id BIGINT NOT NULL,
    previous_value DOUBLE PRECISION NOT NULL DEFAULT 0,
    new_value DOUBLE PRECISION NOT NULL DEFAULT 0,
    points_delta INTEGER NOT NULL DEFAULT 0,
    trigger_event VARCHAR(30) NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_aph_user_created ON achievement_progress_history(user_id, created_at DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS achievement_progress_history;
DROP TABLE IF EXISTS user_achievement_progress;
DROP TABLE IF EXISTS achievements;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: STREAKS AND NOTIFICATIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create streaks and notifications
-- Version: 002

CREATE TABLE IF NOT EXISTS streaks (
    user_id BIGINT NOT NULL,
    category VARCHAR(20) NOT NULL,
    current_count INTEGER NOT NULL DEFAULT 0,
    longest_count INTEGER NOT NULL DEFAULT 0,
    last_activity_date DATE,
    streak_start_date DATE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, category),

    CONSTRAINT valid_category CHECK (category IN ('cards', 'comments', 'login')),
    CONSTRAINT valid_counts CHECK (current_count >= 0 AND longest_count >= current_count)
);

CREATE TABLE IF NOT EXISTS notifications (
    id UUID PRIMARY KEY,
    user_id BIGINT NOT NULL,
    type VARCHAR(30) NOT NULL,
    achievement_id BIGINT NOT NULL DEFAULT 0,
    title VARCHAR(200) NOT NULL,
    message TEXT NOT NULL DEFAULT '',
    points_awarded INTEGER NOT NULL DEFAULT 0,
    sent BOOLEAN NOT NULL DEFAULT FALSE,
    read BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    sent_at TIMESTAMP WITH TIME ZONE
);

CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_notifications_unsent ON notifications(created_at) WHERE NOT sent;
CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(user_id) WHERE NOT read;
`

const migration002Down = `
DROP TABLE IF EXISTS notifications;
DROP TABLE IF EXISTS streaks;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: USER STATS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create aggregated user stats
-- Version: 003

CREATE TABLE IF NOT EXISTS user_stats (
    user_id BIGINT PRIMARY KEY,
    total_completed INTEGER NOT NULL DEFAULT 0,
    total_active INTEGER NOT NULL DEFAULT 0,
    completion_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
    total_points INTEGER NOT NULL DEFAULT 0,
    completed_by_tier JSONB NOT NULL DEFAULT '{}'::jsonb,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migration003Down = `
DROP TABLE IF EXISTS user_stats;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_achievements",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_streaks_notifications",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_user_stats",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}
