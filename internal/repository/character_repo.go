package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/undercity/backend/internal/models"
)

// ErrInsufficientFunds is returned when a conditional debit would take a
// balance below zero.
var ErrInsufficientFunds = errors.New("insufficient funds")

type CharacterRepo struct {
	pool *pgxpool.Pool
}

func NewCharacterRepo(pool *pgxpool.Pool) *CharacterRepo {
	return &CharacterRepo{pool: pool}
}

const characterColumns = `id, user_id, name, level, money, blackcoins, created_at, updated_at`

func scanCharacter(row pgx.Row) (*models.Character, error) {
	var c models.Character
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Level, &c.Money, &c.Blackcoins, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CharacterRepo) Create(ctx context.Context, c *models.Character) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO characters (id, user_id, name, level, money, blackcoins)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, c.ID, c.UserID, c.Name, c.Level, c.Money, c.Blackcoins).Scan(&c.CreatedAt, &c.UpdatedAt)
}

// CreateTx inserts the character inside the given transaction (registration
// creates the user and character atomically).
func (r *CharacterRepo) CreateTx(ctx context.Context, tx pgx.Tx, c *models.Character) error {
	return tx.QueryRow(ctx, `
		INSERT INTO characters (id, user_id, name, level, money, blackcoins)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, c.ID, c.UserID, c.Name, c.Level, c.Money, c.Blackcoins).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *CharacterRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Character, error) {
	return scanCharacter(r.pool.QueryRow(ctx, `
		SELECT `+characterColumns+` FROM characters WHERE user_id = $1
	`, userID))
}

// GetByUserIDForUpdate locks the character row. Call within a transaction.
func (r *CharacterRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*models.Character, error) {
	return scanCharacter(tx.QueryRow(ctx, `
		SELECT `+characterColumns+` FROM characters WHERE user_id = $1 FOR UPDATE
	`, userID))
}

// Level reads just the character's level, for the combat resolver.
func (r *CharacterRepo) Level(ctx context.Context, userID uuid.UUID) (int, error) {
	var level int
	err := r.pool.QueryRow(ctx, `
		SELECT level FROM characters WHERE user_id = $1
	`, userID).Scan(&level)
	return level, err
}

// DebitMoney atomically deducts amount if money >= amount. Returns the new
// balance, or ErrInsufficientFunds without touching the row.
func (r *CharacterRepo) DebitMoney(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int) (int, error) {
	var newBalance int
	err := tx.QueryRow(ctx, `
		UPDATE characters SET money = money - $1, updated_at = now()
		WHERE user_id = $2 AND money >= $1
		RETURNING money
	`, amount, userID).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrInsufficientFunds
	}
	return newBalance, err
}

// CreditMoney adds amount and returns the new balance.
func (r *CharacterRepo) CreditMoney(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int) (int, error) {
	var newBalance int
	err := tx.QueryRow(ctx, `
		UPDATE characters SET money = money + $1, updated_at = now()
		WHERE user_id = $2
		RETURNING money
	`, amount, userID).Scan(&newBalance)
	return newBalance, err
}

// DebitBlackcoins atomically deducts premium currency if blackcoins >= amount.
func (r *CharacterRepo) DebitBlackcoins(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int) (int, error) {
	var newBalance int
	err := tx.QueryRow(ctx, `
		UPDATE characters SET blackcoins = blackcoins - $1, updated_at = now()
		WHERE user_id = $2 AND blackcoins >= $1
		RETURNING blackcoins
	`, amount, userID).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrInsufficientFunds
	}
	return newBalance, err
}
