package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/collectors-hub/collectors-hub/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// StreakRepository implements streak.Repository for PostgreSQL.
type StreakRepository struct {
	conn *Connection
}

// NewStreakRepository creates a new StreakRepository.
func NewStreakRepository(conn *Connection) *StreakRepository {
	return &StreakRepository{conn: conn}
}

const streakColumns = `
	user_id, category, current_count, longest_count,
	last_activity_date, streak_start_date, updated_at
`

// Get returns the streak state for (userID, category).
func (r *StreakRepository) Get(ctx context.Context, userID int64, category streak.Category) (*streak.State, error) {
	query := `SELECT ` + streakColumns + ` FROM streaks WHERE user_id = $1 AND category = $2`

	s, err := scanStreak(r.conn.QueryRow(ctx, query, userID, string(category)))
	if err != nil {
		if IsNoRows(err) {
			return nil, streak.ErrStreakNotFound
		}
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}

	return s, nil
}

// GetAllForUser returns all streaks for a user.
func (r *StreakRepository) GetAllForUser(ctx context.Context, userID int64) ([]*streak.State, error) {
	query := `SELECT ` + streakColumns + ` FROM streaks WHERE user_id = $1 ORDER BY category`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query streaks: %w", err)
	}
	defer rows.Close()

	var result []*streak.State
	for rows.Next() {
		s, err := scanStreak(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan streak: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// Save upserts the streak state. GREATEST keeps longest_count monotone
// even if a stale writer carries a smaller value.
func (r *StreakRepository) Save(ctx context.Context, s *streak.State) error {
	query := `
		INSERT INTO streaks (
			user_id, category, current_count, longest_count,
			last_activity_date, streak_start_date, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, category) DO UPDATE SET
			current_count = EXCLUDED.current_count,
			longest_count = GREATEST(streaks.longest_count, EXCLUDED.longest_count),
			last_activity_date = EXCLUDED.last_activity_date,
			streak_start_date = EXCLUDED.streak_start_date,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Exec(ctx, query,
		s.UserID,
		string(s.Category),
		s.CurrentCount,
		s.LongestCount,
		nullableDate(s.LastActivityDate),
		nullableDate(s.StreakStartDate),
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save streak: %w", err)
	}

	return nil
}

// scanStreak scans one streak row.
func scanStreak(row pgx.Row) (*streak.State, error) {
	var s streak.State
	var category string
	var lastActivity, streakStart *time.Time

	err := row.Scan(
		&s.UserID,
		&category,
		&s.CurrentCount,
		&s.LongestCount,
		&lastActivity,
		&streakStart,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Category = streak.Category(category)
	if lastActivity != nil {
		s.LastActivityDate = lastActivity.UTC()
	}
	if streakStart != nil {
		s.StreakStartDate = streakStart.UTC()
	}

	return &s, nil
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
