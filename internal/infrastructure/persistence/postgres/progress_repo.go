package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/collectors-hub/collectors-hub/internal/domain/achievement"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER ACHIEVEMENT PROGRESS REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements achievement.ProgressRepository for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

const progressColumns = `
	user_id, achievement_id, progress, progress_percentage,
	completed, completed_at, times_completed, points_awarded, last_update
`

// Get returns the progress row for (userID, achievementID).
func (r *ProgressRepository) Get(ctx context.Context, userID, achievementID int64) (*achievement.UserAchievementProgress, error) {
	query := `SELECT ` + progressColumns + `
		FROM user_achievement_progress
		WHERE user_id = $1 AND achievement_id = $2`

	p, err := scanProgress(r.conn.QueryRow(ctx, query, userID, achievementID))
	if err != nil {
		if IsNoRows(err) {
			return nil, achievement.ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	return p, nil
}

// GetAllForUser returns all progress rows for a user.
func (r *ProgressRepository) GetAllForUser(ctx context.Context, userID int64) ([]*achievement.UserAchievementProgress, error) {
	query := `SELECT ` + progressColumns + `
		FROM user_achievement_progress
		WHERE user_id = $1
		ORDER BY achievement_id`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	var result []*achievement.UserAchievementProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// Apply performs the single atomic conditional write for a progress
// update. The composite primary key plus ON CONFLICT makes concurrent
// triggers for the same (user, achievement) safe: one row ever exists,
// and the CASE guards ensure a non-repeatable achievement is awarded
// at most once and a repeatable one at most once per cooldown window,
// even if two triggers race past the application level checks.
func (r *ProgressRepository) Apply(ctx context.Context, u achievement.ProgressUpdate) error {
	query := `
		INSERT INTO user_achievement_progress (
			user_id, achievement_id, progress, progress_percentage,
			completed, completed_at, times_completed, points_awarded, last_update
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, achievement_id) DO UPDATE SET
			progress = EXCLUDED.progress,
			progress_percentage = EXCLUDED.progress_percentage,
			completed = user_achievement_progress.completed OR EXCLUDED.completed,
			completed_at = CASE
				WHEN $10 > 0 AND (NOT user_achievement_progress.completed OR ($11 AND (
						user_achievement_progress.completed_at IS NULL
						OR user_achievement_progress.completed_at <= $9 - make_interval(days => $13))))
					THEN EXCLUDED.completed_at
				ELSE user_achievement_progress.completed_at
			END,
			times_completed = user_achievement_progress.times_completed + CASE
				WHEN $10 > 0 AND (NOT user_achievement_progress.completed OR ($11 AND (
						user_achievement_progress.completed_at IS NULL
						OR user_achievement_progress.completed_at <= $9 - make_interval(days => $13))))
					THEN $10
				ELSE 0
			END,
			points_awarded = user_achievement_progress.points_awarded + CASE
				WHEN $10 > 0 AND (NOT user_achievement_progress.completed OR ($11 AND (
						user_achievement_progress.completed_at IS NULL
						OR user_achievement_progress.completed_at <= $9 - make_interval(days => $13))))
					THEN $12
				ELSE 0
			END,
			last_update = EXCLUDED.last_update
	`

	_, err := r.conn.Exec(ctx, query,
		u.UserID,
		u.AchievementID,
		u.Progress,
		u.ProgressPercentage,
		u.Completed,
		u.CompletedAt,
		u.TimesDelta,
		u.PointsDelta,
		u.LastUpdate,
		u.TimesDelta,
		u.Repeatable,
		u.PointsDelta,
		u.CooldownDays,
	)
	if err != nil {
		return fmt.Errorf("failed to apply progress update: %w", err)
	}

	return nil
}

// scanProgress scans one progress row.
func scanProgress(row pgx.Row) (*achievement.UserAchievementProgress, error) {
	var p achievement.UserAchievementProgress

	err := row.Scan(
		&p.UserID,
		&p.AchievementID,
		&p.Progress,
		&p.ProgressPercentage,
		&p.Completed,
		&p.CompletedAt,
		&p.TimesCompleted,
		&p.PointsAwarded,
		&p.LastUpdate,
	)
	if err != nil {
		return nil, err
	}

	return &p, nil
}
