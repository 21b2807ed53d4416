package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/undercity/backend/internal/models"
)

// HospitalRepo stores incapacitation windows. Records are only ever appended;
// overlapping historical windows are allowed.
type HospitalRepo struct {
	pool *pgxpool.Pool
}

func NewHospitalRepo(pool *pgxpool.Pool) *HospitalRepo {
	return &HospitalRepo{pool: pool}
}

// InsertTx appends a hospitalization inside the given transaction.
func (r *HospitalRepo) InsertTx(ctx context.Context, tx pgx.Tx, h *models.Hospitalization) error {
	return tx.QueryRow(ctx, `
		INSERT INTO hospitalizations (id, user_id, minutes, hp_loss, started_at, released_at, contract_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, h.ID, h.UserID, h.Minutes, h.HPLoss, h.StartedAt, h.ReleasedAt, h.ContractID).Scan(&h.CreatedAt)
}

// ActiveForUser returns the most recent window still covering now, or nil.
func (r *HospitalRepo) ActiveForUser(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Hospitalization, error) {
	var h models.Hospitalization
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, minutes, hp_loss, started_at, released_at, contract_id, created_at
		FROM hospitalizations
		WHERE user_id = $1 AND released_at > $2
		ORDER BY started_at DESC
		LIMIT 1
	`, userID, now).Scan(&h.ID, &h.UserID, &h.Minutes, &h.HPLoss, &h.StartedAt, &h.ReleasedAt, &h.ContractID, &h.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *HospitalRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Hospitalization, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, minutes, hp_loss, started_at, released_at, contract_id, created_at
		FROM hospitalizations WHERE user_id = $1 ORDER BY started_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Hospitalization
	for rows.Next() {
		var h models.Hospitalization
		if err := rows.Scan(&h.ID, &h.UserID, &h.Minutes, &h.HPLoss, &h.StartedAt, &h.ReleasedAt, &h.ContractID, &h.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &h)
	}
	return list, rows.Err()
}
