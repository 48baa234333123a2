package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/collectors-hub/collectors-hub/internal/domain/achievement"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT CATALOG REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// CatalogRepository implements achievement.CatalogRepository for PostgreSQL.
type CatalogRepository struct {
	conn *Connection
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(conn *Connection) *CatalogRepository {
	return &CatalogRepository{conn: conn}
}

const catalogColumns = `
	id, name, description, tier, points, requirement_threshold,
	metric, metric_categories, repeatable, cooldown_days, active,
	created_at, updated_at
`

// GetByID returns an achievement by ID.
func (r *CatalogRepository) GetByID(ctx context.Context, id int64) (*achievement.Achievement, error) {
	query := `SELECT ` + catalogColumns + ` FROM achievements WHERE id = $1`

	a, err := scanAchievement(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, achievement.ErrAchievementNotFound
		}
		return nil, fmt.Errorf("failed to get achievement: %w", err)
	}

	return a, nil
}

// GetActive returns all active achievements.
func (r *CatalogRepository) GetActive(ctx context.Context) ([]*achievement.Achievement, error) {
	query := `SELECT ` + catalogColumns + ` FROM achievements WHERE active ORDER BY id`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active achievements: %w", err)
	}
	defer rows.Close()

	return collectAchievements(rows)
}

// GetActiveByCategories returns active achievements whose metric
// categories overlap the given set. Uses the GIN index on the
// metric_categories array.
func (r *CatalogRepository) GetActiveByCategories(ctx context.Context, categories []achievement.MetricCategory) ([]*achievement.Achievement, error) {
	if len(categories) == 0 {
		return r.GetActive(ctx)
	}

	raw := make([]string, len(categories))
	for i, c := range categories {
		raw[i] = string(c)
	}

	query := `SELECT ` + catalogColumns + `
		FROM achievements
		WHERE active AND metric_categories && $1
		ORDER BY id`

	rows, err := r.conn.Query(ctx, query, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements by categories: %w", err)
	}
	defer rows.Close()

	return collectAchievements(rows)
}

// CountActive returns the number of active achievements.
func (r *CatalogRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM achievements WHERE active`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active achievements: %w", err)
	}
	return count, nil
}

// Create inserts an achievement definition. Used by seeding and tests;
// the catalog is normally managed by the admin service.
func (r *CatalogRepository) Create(ctx context.Context, a *achievement.Achievement) error {
	if err := a.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO achievements (
			name, description, tier, points, requirement_threshold,
			metric, metric_categories, repeatable, cooldown_days, active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	raw := make([]string, len(a.Metric.Categories))
	for i, c := range a.Metric.Categories {
		raw[i] = string(c)
	}

	err := r.conn.QueryRow(ctx, query,
		a.Name,
		a.Description,
		string(a.Tier),
		a.Points,
		a.RequirementThreshold,
		string(a.Metric.Metric),
		raw,
		a.Repeatable,
		a.CooldownDays,
		a.Active,
		a.CreatedAt,
		a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("achievement %q already exists: %w", a.Name, achievement.ErrInvalidAchievement)
		}
		return fmt.Errorf("failed to create achievement: %w", err)
	}

	return nil
}

// scanAchievement scans one achievement row.
func scanAchievement(row pgx.Row) (*achievement.Achievement, error) {
	var a achievement.Achievement
	var tier, metric string
	var categories []string

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Description,
		&tier,
		&a.Points,
		&a.RequirementThreshold,
		&metric,
		&categories,
		&a.Repeatable,
		&a.CooldownDays,
		&a.Active,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Tier = achievement.Tier(tier)
	a.Metric.Metric = achievement.MetricName(metric)
	a.Metric.Categories = make([]achievement.MetricCategory, len(categories))
	for i, c := range categories {
		a.Metric.Categories[i] = achievement.MetricCategory(c)
	}

	return &a, nil
}

func collectAchievements(rows pgx.Rows) ([]*achievement.Achievement, error) {
	var result []*achievement.Achievement
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
