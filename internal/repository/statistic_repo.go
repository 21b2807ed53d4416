package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/undercity/backend/internal/models"
)

type StatisticRepo struct {
	pool *pgxpool.Pool
}

func NewStatisticRepo(pool *pgxpool.Pool) *StatisticRepo {
	return &StatisticRepo{pool: pool}
}

// GetByUserID returns the user's counters, or a zero-valued row when none
// exists yet (rows are created lazily on first increment).
func (r *StatisticRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Statistic, error) {
	var s models.Statistic
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, assassinations, wins, losses, fights, crimes, kills, updated_at
		FROM statistics WHERE user_id = $1
	`, userID).Scan(&s.UserID, &s.Assassinations, &s.Wins, &s.Losses, &s.Fights, &s.Crimes, &s.Kills, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.Statistic{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// IncrementTx adds n to one counter inside the given transaction, creating
// the row if absent. The upsert holds the row lock for the whole
// read-modify-write, so concurrent increments serialize.
func (r *StatisticRepo) IncrementTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, field models.StatField, n int) error {
	col := field.Column()
	if col == "" {
		return fmt.Errorf("unknown statistic field %d", field)
	}
	_, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO statistics (user_id, %[1]s) VALUES ($1, $2)
		ON CONFLICT (user_id)
		DO UPDATE SET %[1]s = statistics.%[1]s + $2, updated_at = now()
	`, col), userID, n)
	return err
}
