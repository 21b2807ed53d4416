package contracts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/undercity/backend/internal/fight"
	"github.com/undercity/backend/internal/models"
	"github.com/undercity/backend/internal/progress"
	"github.com/undercity/backend/internal/repository"
)

// GhostAssassinNarrative is returned on a successful instant elimination.
const GhostAssassinNarrative = "In the dead of night, a shadowy figure known only as the Ghost Assassin silently crept through the city. With a single, swift strike, your target was found lifeless and rushed to the hospital. No one saw the killer—only the chilling aftermath remains."

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CharacterStore is the minimal ledger interface for settlements. Debits are
// conditional single statements so a balance can never go negative.
type CharacterStore interface {
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*models.Character, error)
	DebitMoney(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int) (int, error)
	CreditMoney(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int) (int, error)
	DebitBlackcoins(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int) (int, error)
}

// ContractStore owns contract rows and their transitions.
type ContractStore interface {
	InsertTx(ctx context.Context, tx pgx.Tx, c *models.Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Contract, error)
	MarkExpiredTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	SaveFightTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, result, log json.RawMessage) error
	MarkFulfilledTx(ctx context.Context, tx pgx.Tx, id, assassinID uuid.UUID, fulfilledAt time.Time) error
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	ListOpen(ctx context.Context, now time.Time) ([]*repository.OpenContractRow, error)
}

// UserStore resolves user existence and identity, read-only.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// HospitalStore appends incapacitation windows.
type HospitalStore interface {
	InsertTx(ctx context.Context, tx pgx.Tx, h *models.Hospitalization) error
}

// StatStore increments per-user counters under lock.
type StatStore interface {
	IncrementTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, field models.StatField, n int) error
}

// BlackcoinStore records premium-currency audit entries.
type BlackcoinStore interface {
	InsertTx(ctx context.Context, tx pgx.Tx, t *models.BlackcoinTransaction) error
}

// EnqueueReconcileTxFunc enqueues a progress reconciliation within the given
// transaction. Provided by main as a closure over river.Client.InsertTx, so
// the job commits or rolls back together with the settlement.
type EnqueueReconcileTxFunc func(ctx context.Context, tx pgx.Tx, args progress.ReconcileArgs) error

// Service is the contract state machine and atomic settlement engine. Every
// operation that moves currency or mutates shared player state runs as one
// pgx transaction; the only mutation allowed to outlive a failed operation is
// the expiry transition.
type Service struct {
	Pool       TxBeginner
	Characters CharacterStore
	Contracts  ContractStore
	Users      UserStore
	Hospital   HospitalStore
	Stats      StatStore
	Blackcoins BlackcoinStore
	Resolver   fight.Resolver
	Enqueue    EnqueueReconcileTxFunc
	Logger     *slog.Logger

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewService(
	pool TxBeginner,
	characters CharacterStore,
	contracts ContractStore,
	users UserStore,
	hospital HospitalStore,
	stats StatStore,
	blackcoins BlackcoinStore,
	resolver fight.Resolver,
	enqueue EnqueueReconcileTxFunc,
	logger *slog.Logger,
) *Service {
	return &Service{
		Pool:       pool,
		Characters: characters,
		Contracts:  contracts,
		Users:      users,
		Hospital:   hospital,
		Stats:      stats,
		Blackcoins: blackcoins,
		Resolver:   resolver,
		Enqueue:    enqueue,
		Logger:     logger,
		Now:        time.Now,
	}
}

// Create validates and opens a new contract. The price is debited from the
// poster immediately. That deduction is the escrow; expiry forfeits it.
func (s *Service) Create(ctx context.Context, posterID, targetID uuid.UUID, price int) (*models.Contract, error) {
	timer := prometheus.NewTimer(settlementDuration.WithLabelValues("create"))
	defer timer.ObserveDuration()

	if posterID == targetID {
		return nil, ErrSelfTarget
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	if _, err := s.Users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTargetNotFound
		}
		return nil, fmt.Errorf("lookup target: %w", err)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.Characters.GetByUserIDForUpdate(ctx, tx, posterID); err != nil {
		return nil, fmt.Errorf("lock poster: %w", err)
	}
	if _, err := s.Characters.DebitMoney(ctx, tx, posterID, price); err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("debit poster: %w", err)
	}

	now := s.Now()
	c := &models.Contract{
		ID:        uuid.New(),
		PosterID:  posterID,
		TargetID:  targetID,
		Price:     price,
		Status:    models.ContractStatusOpen,
		ExpiresAt: now.Add(models.ContractTTL),
	}
	if err := s.Contracts.InsertTx(ctx, tx, c); err != nil {
		return nil, fmt.Errorf("insert contract: %w", err)
	}
	if err := s.Enqueue(ctx, tx, progress.ReconcileArgs{UserID: posterID}); err != nil {
		return nil, fmt.Errorf("enqueue reconcile: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create: %w", err)
	}

	settlementsTotal.WithLabelValues("create", "ok").Inc()
	s.Logger.Info("contract created", "contract_id", c.ID, "poster_id", posterID, "target_id", targetID, "price", price)
	return c, nil
}

// ContractView is a listing entry with viewer-derived flags and the target's
// public identity. Fame derives from the target's statistics.
type ContractView struct {
	ID         uuid.UUID `json:"id"`
	Price      int       `json:"price"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	IsPoster   bool      `json:"is_poster"`
	IsTarget   bool      `json:"is_target"`
	CanFulfill bool      `json:"can_fulfill"`
	Target     struct {
		ID       uuid.UUID `json:"id"`
		Username string    `json:"username"`
		Name     string    `json:"name"`
		Level    int       `json:"level"`
		Fame     int       `json:"fame"`
	} `json:"target"`
}

// ListAvailable sweeps expired contracts, then returns the open ones
// newest-first. canFulfill is false for the poster and the target.
func (s *Service) ListAvailable(ctx context.Context, viewerID uuid.UUID) ([]*ContractView, error) {
	now := s.Now()
	expired, err := s.Contracts.ExpireDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("expiry sweep: %w", err)
	}
	if expired > 0 {
		contractsExpired.Add(float64(expired))
		s.Logger.Info("expired stale contracts", "count", expired)
	}

	rows, err := s.Contracts.ListOpen(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list open contracts: %w", err)
	}
	views := make([]*ContractView, 0, len(rows))
	for _, row := range rows {
		v := &ContractView{
			ID:        row.Contract.ID,
			Price:     row.Contract.Price,
			Status:    row.Contract.Status,
			CreatedAt: row.Contract.CreatedAt,
			ExpiresAt: row.Contract.ExpiresAt,
			IsPoster:  viewerID == row.Contract.PosterID,
			IsTarget:  viewerID == row.Contract.TargetID,
		}
		v.CanFulfill = !v.IsPoster && !v.IsTarget
		v.Target.ID = row.Contract.TargetID
		v.Target.Username = row.TargetUsername
		v.Target.Name = row.TargetName
		v.Target.Level = row.TargetLevel
		v.Target.Fame = row.TargetStats.Fame()
		views = append(views, v)
	}
	return views, nil
}

// FulfillResult reports the outcome of a fulfillment attempt. A lost fight is
// a successful call with Success=false, and the contract stays open.
type FulfillResult struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	ContractID  uuid.UUID       `json:"contract_id"`
	Status      string          `json:"status"`
	FightResult json.RawMessage `json:"fight_result"`
}

// Fulfill attempts to resolve a contract on behalf of callerID. The contract
// row is locked first and re-validated under that lock; character rows are
// locked after it, so the acquisition order is identical across every
// settlement path. An expiry discovered here commits alone before the error
// is surfaced; the contract is legitimately expired regardless of this
// attempt.
func (s *Service) Fulfill(ctx context.Context, callerID, contractID uuid.UUID) (*FulfillResult, error) {
	timer := prometheus.NewTimer(settlementDuration.WithLabelValues("fulfill"))
	defer timer.ObserveDuration()

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin fulfill tx: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := s.Contracts.GetByIDForUpdate(ctx, tx, contractID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("lock contract: %w", err)
	}
	if c.Status != models.ContractStatusOpen {
		return nil, ErrContractNotOpen
	}
	now := s.Now()
	if c.ExpiredBy(now) {
		if err := s.Contracts.MarkExpiredTx(ctx, tx, c.ID); err != nil {
			return nil, fmt.Errorf("expire contract: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit expiry: %w", err)
		}
		contractsExpired.Inc()
		settlementsTotal.WithLabelValues("fulfill", "expired").Inc()
		return nil, ErrContractExpired
	}
	if callerID == c.PosterID || callerID == c.TargetID {
		return nil, ErrForbiddenParty
	}
	if c.AssassinID != nil {
		return nil, ErrAlreadyFulfilled
	}

	outcome, err := s.Resolver.Resolve(ctx, callerID, c.TargetID)
	if err != nil {
		return nil, fmt.Errorf("resolve fight: %w", err)
	}
	resultJSON, err := json.Marshal(outcome)
	if err != nil {
		return nil, fmt.Errorf("marshal fight result: %w", err)
	}
	if err := s.Contracts.SaveFightTx(ctx, tx, c.ID, resultJSON, outcome.Log); err != nil {
		return nil, fmt.Errorf("save fight artifacts: %w", err)
	}

	if outcome.WinnerID != callerID {
		// Attack failed: artifacts persist for audit, everything else is
		// untouched and the contract can be attempted again.
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit failed attempt: %w", err)
		}
		settlementsTotal.WithLabelValues("fulfill", "lost").Inc()
		s.Logger.Info("contract attack failed", "contract_id", c.ID, "attacker_id", callerID)
		return &FulfillResult{
			Success:     false,
			Message:     "Attack failed. Try again later.",
			ContractID:  c.ID,
			Status:      models.ContractStatusOpen,
			FightResult: resultJSON,
		}, nil
	}

	if err := s.Contracts.MarkFulfilledTx(ctx, tx, c.ID, callerID, now); err != nil {
		return nil, fmt.Errorf("mark fulfilled: %w", err)
	}
	if _, err := s.Characters.GetByUserIDForUpdate(ctx, tx, callerID); err != nil {
		return nil, fmt.Errorf("lock assassin: %w", err)
	}
	if _, err := s.Characters.CreditMoney(ctx, tx, callerID, c.Price); err != nil {
		return nil, fmt.Errorf("pay reward: %w", err)
	}
	if err := s.Stats.IncrementTx(ctx, tx, c.TargetID, models.StatAssassinations, 1); err != nil {
		return nil, fmt.Errorf("increment target assassinations: %w", err)
	}
	for _, userID := range []uuid.UUID{callerID, c.TargetID} {
		if err := s.Enqueue(ctx, tx, progress.ReconcileArgs{UserID: userID}); err != nil {
			return nil, fmt.Errorf("enqueue reconcile: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit fulfillment: %w", err)
	}

	settlementsTotal.WithLabelValues("fulfill", "won").Inc()
	s.Logger.Info("contract fulfilled", "contract_id", c.ID, "assassin_id", callerID, "price", c.Price)
	return &FulfillResult{
		Success:     true,
		Message:     "Contract fulfilled!",
		ContractID:  c.ID,
		Status:      models.ContractStatusFulfilled,
		FightResult: resultJSON,
	}, nil
}

// GhostResult is the instant-elimination response.
type GhostResult struct {
	Narrative string    `json:"narrative"`
	TargetID  uuid.UUID `json:"target_id"`
}

// GhostAssassin instantly hospitalizes the target for a fixed blackcoin cost.
// Debit, audit entry, hospitalization, statistic upsert, and the reconcile
// job all commit together or not at all.
func (s *Service) GhostAssassin(ctx context.Context, callerID, targetID uuid.UUID) (*GhostResult, error) {
	timer := prometheus.NewTimer(settlementDuration.WithLabelValues("ghost_assassin"))
	defer timer.ObserveDuration()

	if callerID == targetID {
		return nil, ErrSelfTarget
	}
	if _, err := s.Users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTargetNotFound
		}
		return nil, fmt.Errorf("lookup target: %w", err)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin ghost tx: %w", err)
	}
	defer tx.Rollback(ctx)

	caller, err := s.Characters.GetByUserIDForUpdate(ctx, tx, callerID)
	if err != nil {
		return nil, fmt.Errorf("lock caller: %w", err)
	}
	if caller.Blackcoins < models.GhostAssassinCost {
		return nil, ErrInsufficientBlackcoins
	}
	if _, err := s.Characters.DebitBlackcoins(ctx, tx, callerID, models.GhostAssassinCost); err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return nil, ErrInsufficientBlackcoins
		}
		return nil, fmt.Errorf("debit blackcoins: %w", err)
	}
	if err := s.Blackcoins.InsertTx(ctx, tx, &models.BlackcoinTransaction{
		ID:          uuid.New(),
		UserID:      callerID,
		Amount:      -models.GhostAssassinCost,
		Type:        models.BlackcoinSpend,
		Description: "Hired Ghost Assassin",
	}); err != nil {
		return nil, fmt.Errorf("audit blackcoin spend: %w", err)
	}

	now := s.Now()
	if err := s.Hospital.InsertTx(ctx, tx, &models.Hospitalization{
		ID:         uuid.New(),
		UserID:     targetID,
		Minutes:    models.GhostAssassinMinutes,
		HPLoss:     models.GhostAssassinHPLoss,
		StartedAt:  now,
		ReleasedAt: now.Add(models.GhostAssassinMinutes * time.Minute),
	}); err != nil {
		return nil, fmt.Errorf("hospitalize target: %w", err)
	}
	if err := s.Stats.IncrementTx(ctx, tx, targetID, models.StatAssassinations, 1); err != nil {
		return nil, fmt.Errorf("increment target assassinations: %w", err)
	}
	for _, userID := range []uuid.UUID{callerID, targetID} {
		if err := s.Enqueue(ctx, tx, progress.ReconcileArgs{UserID: userID}); err != nil {
			return nil, fmt.Errorf("enqueue reconcile: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit ghost assassin: %w", err)
	}

	settlementsTotal.WithLabelValues("ghost_assassin", "ok").Inc()
	s.Logger.Info("ghost assassin hired", "caller_id", callerID, "target_id", targetID)
	return &GhostResult{Narrative: GhostAssassinNarrative, TargetID: targetID}, nil
}

// RewardInfo is visible only to the contract's resolved assassin.
type RewardInfo struct {
	Reward         int       `json:"reward"`
	PosterID       uuid.UUID `json:"poster_id"`
	PosterUsername string    `json:"poster_username"`
	FulfilledAt    time.Time `json:"fulfilled_at"`
}

// Reward returns payout details for a fulfilled contract, gated on the caller
// being the assassin.
func (s *Service) Reward(ctx context.Context, callerID, contractID uuid.UUID) (*RewardInfo, error) {
	c, err := s.Contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("get contract: %w", err)
	}
	if c.Status != models.ContractStatusFulfilled {
		return nil, ErrContractNotFulfilled
	}
	if c.AssassinID == nil || *c.AssassinID != callerID {
		return nil, ErrNotContractAssassin
	}
	poster, err := s.Users.GetByID(ctx, c.PosterID)
	if err != nil {
		return nil, fmt.Errorf("lookup poster: %w", err)
	}
	return &RewardInfo{
		Reward:         c.Price,
		PosterID:       poster.ID,
		PosterUsername: poster.Username,
		FulfilledAt:    *c.FulfilledAt,
	}, nil
}

// FightResult returns the opaque stored combat output for a contract.
func (s *Service) FightResult(ctx context.Context, contractID uuid.UUID) (json.RawMessage, error) {
	c, err := s.Contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("get contract: %w", err)
	}
	if len(c.FightResult) == 0 {
		return nil, ErrNoFightResult
	}
	return c.FightResult, nil
}
