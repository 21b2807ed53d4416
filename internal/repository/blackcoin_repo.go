package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/undercity/backend/internal/models"
)

// BlackcoinRepo records the premium-currency audit trail.
type BlackcoinRepo struct {
	pool *pgxpool.Pool
}

func NewBlackcoinRepo(pool *pgxpool.Pool) *BlackcoinRepo {
	return &BlackcoinRepo{pool: pool}
}

// InsertTx writes an audit entry inside the given transaction.
func (r *BlackcoinRepo) InsertTx(ctx context.Context, tx pgx.Tx, t *models.BlackcoinTransaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO blackcoin_transactions (id, user_id, amount, type, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, t.ID, t.UserID, t.Amount, t.Type, t.Description).Scan(&t.CreatedAt)
}

func (r *BlackcoinRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.BlackcoinTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount, type, description, created_at
		FROM blackcoin_transactions WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.BlackcoinTransaction
	for rows.Next() {
		var t models.BlackcoinTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
