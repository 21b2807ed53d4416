package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/undercity/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateWithCharacter inserts the user and their starting character
// atomically. A half-registered user with no character would break every
// settlement path, so both rows commit together.
func (r *Repository) CreateWithCharacter(ctx context.Context, username, passwordHash, characterName string) (*models.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	u := models.User{ID: uuid.New(), Username: username, PasswordHash: passwordHash}
	if err := tx.QueryRow(ctx, `
		INSERT INTO users (id, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, u.ID, u.Username, u.PasswordHash).Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO characters (id, user_id, name, level, money, blackcoins)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), u.ID, characterName, models.StartingLevel, models.StartingMoney, models.StartingBlackcoins); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at, updated_at
		FROM users WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
