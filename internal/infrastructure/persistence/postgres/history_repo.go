package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/collectors-hub/collectors-hub/internal/domain/achievement"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HISTORY REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// HistoryRepository implements achievement.HistoryRepository for PostgreSQL.
type HistoryRepository struct {
	conn *Connection
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(conn *Connection) *HistoryRepository {
	return &HistoryRepository{conn: conn}
}

const historyColumns = `
	id, user_id, achievement_id, previous_value, new_value,
	points_delta, trigger_event, created_at
`

// Append adds a journal entry. The journal is append-only.
func (r *HistoryRepository) Append(ctx context.Context, entry *achievement.HistoryEntry) error {
	query := `
		INSERT INTO achievement_progress_history (
			id, user_id, achievement_id, previous_value, new_value,
			points_delta, trigger_event, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.AchievementID,
		entry.PreviousProgress,
		entry.NewProgress,
		entry.PointsDelta,
		string(entry.TriggerEvent),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}

	return nil
}

// GetRecent returns the latest journal entries for a user.
func (r *HistoryRepository) GetRecent(ctx context.Context, userID int64, limit int) ([]*achievement.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + historyColumns + `
		FROM achievement_progress_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.conn.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	return collectHistory(rows)
}

// GetSince returns journal entries for a user after the given moment.
func (r *HistoryRepository) GetSince(ctx context.Context, userID int64, since time.Time) ([]*achievement.HistoryEntry, error) {
	query := `SELECT ` + historyColumns + `
		FROM achievement_progress_history
		WHERE user_id = $1 AND created_at > $2
		ORDER BY created_at`

	rows, err := r.conn.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	return collectHistory(rows)
}

func collectHistory(rows pgx.Rows) ([]*achievement.HistoryEntry, error) {
	var result []*achievement.HistoryEntry
	for rows.Next() {
		var e achievement.HistoryEntry
		var event string

		err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.AchievementID,
			&e.PreviousProgress,
			&e.NewProgress,
			&e.PointsDelta,
			&event,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		e.TriggerEvent = achievement.TriggerEvent(event)
		result = append(result, &e)
	}
	return result, rows.Err()
}
