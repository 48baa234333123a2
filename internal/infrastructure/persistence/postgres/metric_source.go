package postgres

import (
	"context"
	"fmt"
)

// ══════════════════════════════════════════════════════════════════════════════
// METRIC SOURCE
// Read-only queries against the collection tables owned by the main
// application (user_cards, card_comments, login_events). The engine
// never writes to them.
// ══════════════════════════════════════════════════════════════════════════════

// MetricSource implements achievement.MetricSource for PostgreSQL.
type MetricSource struct {
	conn *Connection
}

// NewMetricSource creates a new MetricSource.
func NewMetricSource(conn *Connection) *MetricSource {
	return &MetricSource{conn: conn}
}

// DistinctCardCount returns the number of distinct cards in the
// user's collection.
func (s *MetricSource) DistinctCardCount(ctx context.Context, userID int64) (int64, error) {
	return s.countQuery(ctx,
		`SELECT COUNT(DISTINCT card_id) FROM user_cards WHERE user_id = $1`,
		userID)
}

// DistinctPlayerCount returns the number of distinct players across
// the user's cards.
func (s *MetricSource) DistinctPlayerCount(ctx context.Context, userID int64) (int64, error) {
	return s.countQuery(ctx, `
		SELECT COUNT(DISTINCT c.player_id)
		FROM user_cards uc
		JOIN cards c ON c.id = uc.card_id
		WHERE uc.user_id = $1
	`, userID)
}

// DistinctTeamCount returns the number of distinct teams across the
// user's cards.
func (s *MetricSource) DistinctTeamCount(ctx context.Context, userID int64) (int64, error) {
	return s.countQuery(ctx, `
		SELECT COUNT(DISTINCT c.team_id)
		FROM user_cards uc
		JOIN cards c ON c.id = uc.card_id
		WHERE uc.user_id = $1
	`, userID)
}

// TotalEstimatedValue returns the summed estimated value of the
// user's collection.
func (s *MetricSource) TotalEstimatedValue(ctx context.Context, userID int64) (float64, error) {
	var value float64
	err := s.conn.QueryRow(ctx,
		`SELECT COALESCE(SUM(estimated_value), 0) FROM user_cards WHERE user_id = $1`,
		userID).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("failed to sum estimated value: %w", err)
	}
	return value, nil
}

// GradedCardCount returns the number of professionally graded cards.
func (s *MetricSource) GradedCardCount(ctx context.Context, userID int64) (int64, error) {
	return s.countQuery(ctx,
		`SELECT COUNT(*) FROM user_cards WHERE user_id = $1 AND grade IS NOT NULL`,
		userID)
}

// RookieCardCount returns the number of rookie cards in the collection.
func (s *MetricSource) RookieCardCount(ctx context.Context, userID int64) (int64, error) {
	return s.countQuery(ctx, `
		SELECT COUNT(*)
		FROM user_cards uc
		JOIN cards c ON c.id = uc.card_id
		WHERE uc.user_id = $1 AND c.rookie
	`, userID)
}

// CommentCount returns the number of comments the user has left.
func (s *MetricSource) CommentCount(ctx context.Context, userID int64) (int64, error) {
	return s.countQuery(ctx,
		`SELECT COUNT(*) FROM card_comments WHERE user_id = $1`,
		userID)
}

// LoginCount returns the number of recorded logins.
func (s *MetricSource) LoginCount(ctx context.Context, userID int64) (int64, error) {
	return s.countQuery(ctx,
		`SELECT COUNT(*) FROM login_events WHERE user_id = $1`,
		userID)
}

func (s *MetricSource) countQuery(ctx context.Context, query string, userID int64) (int64, error) {
	var count int64
	if err := s.conn.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to run metric query: %w", err)
	}
	return count, nil
}
