package progress

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/undercity/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListActiveGoals returns active goal definitions, optionally filtered by
// metric name (empty string means all).
func (r *Repository) ListActiveGoals(ctx context.Context, metric string) ([]*models.Goal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, slug, title, metric, target, is_active, created_at
		FROM goals
		WHERE is_active AND ($1 = '' OR metric = $1)
		ORDER BY slug
	`, metric)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Goal
	for rows.Next() {
		var g models.Goal
		if err := rows.Scan(&g.ID, &g.Slug, &g.Title, &g.Metric, &g.Target, &g.IsActive, &g.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &g)
	}
	return list, rows.Err()
}

// UpsertGoal syncs a catalog entry into the goals table, keyed by slug.
func (r *Repository) UpsertGoal(ctx context.Context, g *models.Goal) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO goals (id, slug, title, metric, target, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (slug)
		DO UPDATE SET title = $3, metric = $4, target = $5, is_active = $6
		RETURNING id, created_at
	`, g.ID, g.Slug, g.Title, g.Metric, g.Target, g.IsActive).Scan(&g.ID, &g.CreatedAt)
}

// GetProgress returns the user's progress row for a goal, or a zero-valued
// one when it does not exist yet (rows are created lazily on first save).
func (r *Repository) GetProgress(ctx context.Context, userID, goalID uuid.UUID) (*models.GoalProgress, error) {
	var p models.GoalProgress
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, goal_id, progress, is_completed, updated_at
		FROM user_goal_progress WHERE user_id = $1 AND goal_id = $2
	`, userID, goalID).Scan(&p.UserID, &p.GoalID, &p.Progress, &p.IsCompleted, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.GoalProgress{UserID: userID, GoalID: goalID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProgress upserts a progress row. The guards keep progress monotonic and
// is_completed one-way at the store level, so a stale or replayed save can
// never move either backward.
func (r *Repository) SaveProgress(ctx context.Context, p *models.GoalProgress) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_goal_progress (user_id, goal_id, progress, is_completed)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, goal_id)
		DO UPDATE SET
			progress = GREATEST(user_goal_progress.progress, $3),
			is_completed = user_goal_progress.is_completed OR $4,
			updated_at = now()
	`, p.UserID, p.GoalID, p.Progress, p.IsCompleted)
	return err
}

// ListProgress returns all progress rows for a user.
func (r *Repository) ListProgress(ctx context.Context, userID uuid.UUID) ([]*models.GoalProgress, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, goal_id, progress, is_completed, updated_at
		FROM user_goal_progress WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.GoalProgress
	for rows.Next() {
		var p models.GoalProgress
		if err := rows.Scan(&p.UserID, &p.GoalID, &p.Progress, &p.IsCompleted, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}
