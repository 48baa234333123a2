package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/collectors-hub/collectors-hub/internal/domain/achievement"
	"github.com/collectors-hub/collectors-hub/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER STATS REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// StatsRepository implements stats.Repository and stats.Source for
// PostgreSQL. The Source queries read the progress and streak tables
// directly so the aggregator never loads per-achievement rows into
// memory.
type StatsRepository struct {
	conn *Connection
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(conn *Connection) *StatsRepository {
	return &StatsRepository{conn: conn}
}

// Get returns the stored summary for a user.
func (r *StatsRepository) Get(ctx context.Context, userID int64) (*stats.Summary, error) {
	query := `
		SELECT user_id, total_completed, total_active, completion_percentage,
		       total_points, completed_by_tier, longest_streak, updated_at
		FROM user_stats
		WHERE user_id = $1
	`

	var s stats.Summary
	var tierJSON []byte

	err := r.conn.QueryRow(ctx, query, userID).Scan(
		&s.UserID,
		&s.TotalCompleted,
		&s.TotalActive,
		&s.CompletionPercentage,
		&s.TotalPoints,
		&tierJSON,
		&s.LongestStreak,
		&s.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, stats.ErrStatsNotFound
		}
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	s.CompletedByTier = make(map[achievement.Tier]int)
	if len(tierJSON) > 0 {
		if err := json.Unmarshal(tierJSON, &s.CompletedByTier); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tier counts: %w", err)
		}
	}

	return &s, nil
}

// Save upserts the summary for a user.
func (r *StatsRepository) Save(ctx context.Context, s *stats.Summary) error {
	tierJSON, err := json.Marshal(s.CompletedByTier)
	if err != nil {
		return fmt.Errorf("failed to marshal tier counts: %w", err)
	}

	query := `
		INSERT INTO user_stats (
			user_id, total_completed, total_active, completion_percentage,
			total_points, completed_by_tier, longest_streak, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			total_completed = EXCLUDED.total_completed,
			total_active = EXCLUDED.total_active,
			completion_percentage = EXCLUDED.completion_percentage,
			total_points = EXCLUDED.total_points,
			completed_by_tier = EXCLUDED.completed_by_tier,
			longest_streak = EXCLUDED.longest_streak,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.conn.Exec(ctx, query,
		s.UserID,
		s.TotalCompleted,
		s.TotalActive,
		s.CompletionPercentage,
		s.TotalPoints,
		tierJSON,
		s.LongestStreak,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// stats.Source implementation
// ─────────────────────────────────────────────────────────────────────────────

// CompletedByTier returns completed achievement counts grouped by tier.
func (r *StatsRepository) CompletedByTier(ctx context.Context, userID int64) (map[achievement.Tier]int, error) {
	query := `
		SELECT a.tier, COUNT(*)
		FROM user_achievement_progress uap
		JOIN achievements a ON a.id = uap.achievement_id
		WHERE uap.user_id = $1 AND uap.completed
		GROUP BY a.tier
	`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed by tier: %w", err)
	}
	defer rows.Close()

	result := make(map[achievement.Tier]int)
	for rows.Next() {
		var tier string
		var count int
		if err := rows.Scan(&tier, &count); err != nil {
			return nil, fmt.Errorf("failed to scan tier count: %w", err)
		}
		result[achievement.Tier(tier)] = count
	}
	return result, rows.Err()
}

// TotalPoints returns the user's accumulated achievement points.
func (r *StatsRepository) TotalPoints(ctx context.Context, userID int64) (int, error) {
	var points int
	err := r.conn.QueryRow(ctx,
		`SELECT COALESCE(SUM(points_awarded), 0) FROM user_achievement_progress WHERE user_id = $1`,
		userID).Scan(&points)
	if err != nil {
		return 0, fmt.Errorf("failed to sum points: %w", err)
	}
	return points, nil
}

// LongestStreak returns the user's best streak across all categories.
func (r *StatsRepository) LongestStreak(ctx context.Context, userID int64) (int, error) {
	var longest int
	err := r.conn.QueryRow(ctx,
		`SELECT COALESCE(MAX(longest_count), 0) FROM streaks WHERE user_id = $1`,
		userID).Scan(&longest)
	if err != nil {
		return 0, fmt.Errorf("failed to get longest streak: %w", err)
	}
	return longest, nil
}

// RecentlyActiveUsers returns users with progress activity in the last
// given number of days. Used by the nightly reconcile job.
func (r *StatsRepository) RecentlyActiveUsers(ctx context.Context, days int, limit int) ([]int64, error) {
	if days <= 0 {
		days = 1
	}
	if limit <= 0 {
		limit = 1000
	}

	query := `
		SELECT DISTINCT user_id
		FROM achievement_progress_history
		WHERE created_at > NOW() - ($1 * INTERVAL '1 day')
		ORDER BY user_id
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, days, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query active users: %w", err)
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}
