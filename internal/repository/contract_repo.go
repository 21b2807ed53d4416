package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/undercity/backend/internal/models"
)

type ContractRepo struct {
	pool *pgxpool.Pool
}

func NewContractRepo(pool *pgxpool.Pool) *ContractRepo {
	return &ContractRepo{pool: pool}
}

func (r *ContractRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const contractColumns = `id, poster_id, target_id, price, status, assassin_id, fight_log, fight_result, fulfilled_at, expires_at, created_at, updated_at`

func scanContract(row pgx.Row) (*models.Contract, error) {
	var c models.Contract
	err := row.Scan(&c.ID, &c.PosterID, &c.TargetID, &c.Price, &c.Status, &c.AssassinID,
		&c.FightLog, &c.FightResult, &c.FulfilledAt, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertTx creates the contract row inside the creation transaction, after
// the poster's stake has been debited.
func (r *ContractRepo) InsertTx(ctx context.Context, tx pgx.Tx, c *models.Contract) error {
	return tx.QueryRow(ctx, `
		INSERT INTO contracts (id, poster_id, target_id, price, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, c.ID, c.PosterID, c.TargetID, c.Price, c.Status, c.ExpiresAt).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *ContractRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	return scanContract(r.pool.QueryRow(ctx, `
		SELECT `+contractColumns+` FROM contracts WHERE id = $1
	`, id))
}

// GetByIDForUpdate locks the contract row. Call within a transaction; every
// contract-resolving action re-validates status under this lock.
func (r *ContractRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Contract, error) {
	return scanContract(tx.QueryRow(ctx, `
		SELECT `+contractColumns+` FROM contracts WHERE id = $1 FOR UPDATE
	`, id))
}

// MarkExpiredTx transitions an open contract to expired. Expiry is a status
// change, never a delete, and is allowed to commit even when the surrounding
// fulfillment attempt fails.
func (r *ContractRepo) MarkExpiredTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE contracts SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
	`, id, models.ContractStatusExpired, models.ContractStatusOpen)
	return err
}

// SaveFightTx persists opaque combat output on the contract. Used for both
// won and lost attempts; a lost attempt changes nothing else.
func (r *ContractRepo) SaveFightTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, result, log json.RawMessage) error {
	_, err := tx.Exec(ctx, `
		UPDATE contracts SET fight_result = $2, fight_log = $3, updated_at = now()
		WHERE id = $1
	`, id, result, log)
	return err
}

// MarkFulfilledTx transitions the locked contract to fulfilled. The status
// guard makes a double fulfillment impossible even if the caller's checks
// were raced.
func (r *ContractRepo) MarkFulfilledTx(ctx context.Context, tx pgx.Tx, id, assassinID uuid.UUID, fulfilledAt time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE contracts SET status = $2, assassin_id = $3, fulfilled_at = $4, updated_at = now()
		WHERE id = $1 AND status = $5 AND assassin_id IS NULL
	`, id, models.ContractStatusFulfilled, assassinID, fulfilledAt, models.ContractStatusOpen)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ExpireDue is the bulk lazy-expiry sweep run before listings.
func (r *ContractRepo) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE contracts SET status = $1, updated_at = now()
		WHERE status = $2 AND expires_at <= $3
	`, models.ContractStatusExpired, models.ContractStatusOpen, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// OpenContractRow is a listing row joined with target identity and the
// counters fame derives from.
type OpenContractRow struct {
	Contract       models.Contract
	TargetUsername string
	TargetName     string
	TargetLevel    int
	TargetStats    models.Statistic
}

// ListOpen returns open, unexpired contracts newest-first with target info.
func (r *ContractRepo) ListOpen(ctx context.Context, now time.Time) ([]*OpenContractRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.poster_id, c.target_id, c.price, c.status, c.expires_at, c.created_at,
			u.username, ch.name, ch.level,
			COALESCE(s.assassinations, 0), COALESCE(s.wins, 0), COALESCE(s.losses, 0)
		FROM contracts c
		JOIN users u ON u.id = c.target_id
		JOIN characters ch ON ch.user_id = c.target_id
		LEFT JOIN statistics s ON s.user_id = c.target_id
		WHERE c.status = $1 AND c.expires_at > $2
		ORDER BY c.created_at DESC
	`, models.ContractStatusOpen, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*OpenContractRow
	for rows.Next() {
		var o OpenContractRow
		if err := rows.Scan(&o.Contract.ID, &o.Contract.PosterID, &o.Contract.TargetID, &o.Contract.Price,
			&o.Contract.Status, &o.Contract.ExpiresAt, &o.Contract.CreatedAt,
			&o.TargetUsername, &o.TargetName, &o.TargetLevel,
			&o.TargetStats.Assassinations, &o.TargetStats.Wins, &o.TargetStats.Losses); err != nil {
			return nil, err
		}
		list = append(list, &o)
	}
	return list, rows.Err()
}
