package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BankRepo reads the bank balance used by progress reconciliation. Deposits
// and withdrawals happen elsewhere in the game; the engine only needs the
// current balance as ground truth.
type BankRepo struct {
	pool *pgxpool.Pool
}

func NewBankRepo(pool *pgxpool.Pool) *BankRepo {
	return &BankRepo{pool: pool}
}

// Balance returns 0 when the user has no bank account yet.
func (r *BankRepo) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	var balance int
	err := r.pool.QueryRow(ctx, `
		SELECT balance FROM bank_accounts WHERE user_id = $1
	`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}
