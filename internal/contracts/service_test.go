package contracts

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/undercity/backend/internal/fight"
	"github.com/undercity/backend/internal/models"
	"github.com/undercity/backend/internal/progress"
	"github.com/undercity/backend/internal/repository"
)

// ---------------------------------------------------------------------------
// In-memory world implementing every store interface the engine needs. Lets
// us exercise the real settlement logic without a database.
// ---------------------------------------------------------------------------

type memWorld struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*models.User
	chars     map[uuid.UUID]*models.Character
	contracts map[uuid.UUID]*models.Contract
	hospital  []*models.Hospitalization
	stats     map[uuid.UUID]*models.Statistic
	coins     []*models.BlackcoinTransaction
	enqueued  []uuid.UUID
}

func newMemWorld() *memWorld {
	return &memWorld{
		users:     make(map[uuid.UUID]*models.User),
		chars:     make(map[uuid.UUID]*models.Character),
		contracts: make(map[uuid.UUID]*models.Contract),
		stats:     make(map[uuid.UUID]*models.Statistic),
	}
}

func (w *memWorld) addPlayer(username string, money, blackcoins int) uuid.UUID {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := uuid.New()
	w.users[id] = &models.User{ID: id, Username: username}
	w.chars[id] = &models.Character{ID: uuid.New(), UserID: id, Name: username, Level: 1, Money: money, Blackcoins: blackcoins}
	return id
}

// --- CharacterStore ---

func (w *memWorld) GetByUserIDForUpdate(_ context.Context, _ pgx.Tx, userID uuid.UUID) (*models.Character, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.chars[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (w *memWorld) DebitMoney(_ context.Context, _ pgx.Tx, userID uuid.UUID, amount int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.chars[userID]
	if c.Money < amount {
		return 0, repository.ErrInsufficientFunds
	}
	c.Money -= amount
	return c.Money, nil
}

func (w *memWorld) CreditMoney(_ context.Context, _ pgx.Tx, userID uuid.UUID, amount int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.chars[userID]
	c.Money += amount
	return c.Money, nil
}

func (w *memWorld) DebitBlackcoins(_ context.Context, _ pgx.Tx, userID uuid.UUID, amount int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.chars[userID]
	if c.Blackcoins < amount {
		return 0, repository.ErrInsufficientFunds
	}
	c.Blackcoins -= amount
	return c.Blackcoins, nil
}

// --- ContractStore ---

func (w *memWorld) InsertTx(_ context.Context, _ pgx.Tx, c *models.Contract) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	cp := *c
	cp.CreatedAt = time.Now()
	w.contracts[c.ID] = &cp
	return nil
}

func (w *memWorld) GetByID(_ context.Context, id uuid.UUID) (*models.Contract, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.contracts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (w *memWorld) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*models.Contract, error) {
	return w.GetByID(ctx, id)
}

func (w *memWorld) MarkExpiredTx(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if c := w.contracts[id]; c != nil && c.Status == models.ContractStatusOpen {
		c.Status = models.ContractStatusExpired
	}
	return nil
}

func (w *memWorld) SaveFightTx(_ context.Context, _ pgx.Tx, id uuid.UUID, result, log json.RawMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.contracts[id]
	c.FightResult = result
	c.FightLog = log
	return nil
}

func (w *memWorld) MarkFulfilledTx(_ context.Context, _ pgx.Tx, id, assassinID uuid.UUID, fulfilledAt time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.contracts[id]
	if c.Status != models.ContractStatusOpen || c.AssassinID != nil {
		return pgx.ErrNoRows
	}
	c.Status = models.ContractStatusFulfilled
	c.AssassinID = &assassinID
	at := fulfilledAt
	c.FulfilledAt = &at
	return nil
}

func (w *memWorld) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var n int64
	for _, c := range w.contracts {
		if c.Status == models.ContractStatusOpen && !now.Before(c.ExpiresAt) {
			c.Status = models.ContractStatusExpired
			n++
		}
	}
	return n, nil
}

func (w *memWorld) ListOpen(_ context.Context, now time.Time) ([]*repository.OpenContractRow, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var rows []*repository.OpenContractRow
	for _, c := range w.contracts {
		if c.Status != models.ContractStatusOpen || !now.Before(c.ExpiresAt) {
			continue
		}
		row := &repository.OpenContractRow{Contract: *c}
		row.TargetUsername = w.users[c.TargetID].Username
		row.TargetName = w.chars[c.TargetID].Name
		row.TargetLevel = w.chars[c.TargetID].Level
		if st := w.stats[c.TargetID]; st != nil {
			row.TargetStats = *st
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Contract.CreatedAt.After(rows[j].Contract.CreatedAt) })
	return rows, nil
}

// --- UserStore ---

func (w *memWorld) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, ok := w.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

// --- HospitalStore ---

func (w *memWorld) InsertHospitalizationTx(_ context.Context, _ pgx.Tx, h *models.Hospitalization) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	cp := *h
	w.hospital = append(w.hospital, &cp)
	return nil
}

// --- StatStore ---

func (w *memWorld) IncrementTx(_ context.Context, _ pgx.Tx, userID uuid.UUID, field models.StatField, n int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.stats[userID]
	if !ok {
		st = &models.Statistic{UserID: userID}
		w.stats[userID] = st
	}
	switch field {
	case models.StatAssassinations:
		st.Assassinations += n
	case models.StatWins:
		st.Wins += n
	case models.StatLosses:
		st.Losses += n
	case models.StatFights:
		st.Fights += n
	case models.StatCrimes:
		st.Crimes += n
	case models.StatKills:
		st.Kills += n
	}
	return nil
}

// --- BlackcoinStore ---

func (w *memWorld) InsertBlackcoinTx(_ context.Context, _ pgx.Tx, t *models.BlackcoinTransaction) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	cp := *t
	w.coins = append(w.coins, &cp)
	return nil
}

func (w *memWorld) enqueue(_ context.Context, _ pgx.Tx, args progress.ReconcileArgs) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enqueued = append(w.enqueued, args.UserID)
	return nil
}

func (w *memWorld) money(id uuid.UUID) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chars[id].Money
}

func (w *memWorld) blackcoins(id uuid.UUID) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chars[id].Blackcoins
}

func (w *memWorld) assassinations(id uuid.UUID) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if st := w.stats[id]; st != nil {
		return st.Assassinations
	}
	return 0
}

// Thin adapters so one memWorld can satisfy every interface despite the
// overlapping method names.

type userStore struct{ w *memWorld }

func (s userStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.w.GetUserByID(ctx, id)
}

type hospitalStore struct{ w *memWorld }

func (s hospitalStore) InsertTx(ctx context.Context, tx pgx.Tx, h *models.Hospitalization) error {
	return s.w.InsertHospitalizationTx(ctx, tx, h)
}

type blackcoinStore struct{ w *memWorld }

func (s blackcoinStore) InsertTx(ctx context.Context, tx pgx.Tx, t *models.BlackcoinTransaction) error {
	return s.w.InsertBlackcoinTx(ctx, tx, t)
}

// --- noopTx satisfies pgx.Tx for test use; only Commit/Rollback are called. ---

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

type mockPool struct{}

func (mockPool) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

// --- scripted combat resolver ---

type scriptedResolver struct {
	winner uuid.UUID
	calls  int
}

func (r *scriptedResolver) Resolve(_ context.Context, attackerID, defenderID uuid.UUID) (*fight.Outcome, error) {
	r.calls++
	loser := defenderID
	if r.winner == defenderID {
		loser = attackerID
	}
	return &fight.Outcome{WinnerID: r.winner, LoserID: loser, Log: json.RawMessage(`{"rounds":[]}`)}, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newTestService(w *memWorld, resolver fight.Resolver) *Service {
	svc := NewService(
		mockPool{}, w, w,
		userStore{w}, hospitalStore{w}, w, blackcoinStore{w},
		resolver, w.enqueue,
		slog.New(slog.DiscardHandler),
	)
	svc.Now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func mustCreate(t *testing.T, svc *Service, posterID, targetID uuid.UUID, price int) *models.Contract {
	t.Helper()
	c, err := svc.Create(context.Background(), posterID, targetID, price)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return c
}

// ---------------------------------------------------------------------------
// Creation
// ---------------------------------------------------------------------------

func TestCreate(t *testing.T) {
	w := newMemWorld()
	poster := w.addPlayer("poster", 1000, 0)
	target := w.addPlayer("target", 0, 0)
	svc := newTestService(w, &scriptedResolver{})

	c := mustCreate(t, svc, poster, target, 200)

	if got := w.money(poster); got != 800 {
		t.Errorf("poster money after create: got %d, want 800", got)
	}
	if c.Status != models.ContractStatusOpen {
		t.Errorf("status: got %s, want open", c.Status)
	}
	if want := svc.Now().Add(models.ContractTTL); !c.ExpiresAt.Equal(want) {
		t.Errorf("expiresAt: got %v, want %v", c.ExpiresAt, want)
	}
	if len(w.enqueued) != 1 || w.enqueued[0] != poster {
		t.Errorf("expected one reconcile job for poster, got %v", w.enqueued)
	}
}

func TestCreateValidation(t *testing.T) {
	w := newMemWorld()
	poster := w.addPlayer("poster", 100, 0)
	target := w.addPlayer("target", 0, 0)
	svc := newTestService(w, &scriptedResolver{})
	ctx := context.Background()

	if _, err := svc.Create(ctx, poster, poster, 50); !errors.Is(err, ErrSelfTarget) {
		t.Errorf("self target: got %v, want ErrSelfTarget", err)
	}
	if _, err := svc.Create(ctx, poster, target, 0); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("zero price: got %v, want ErrInvalidPrice", err)
	}
	if _, err := svc.Create(ctx, poster, target, -10); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("negative price: got %v, want ErrInvalidPrice", err)
	}
	if _, err := svc.Create(ctx, poster, uuid.New(), 50); !errors.Is(err, ErrTargetNotFound) {
		t.Errorf("missing target: got %v, want ErrTargetNotFound", err)
	}
	if _, err := svc.Create(ctx, poster, target, 101); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("over budget: got %v, want ErrInsufficientFunds", err)
	}
	if got := w.money(poster); got != 100 {
		t.Errorf("poster money should be untouched by failed creations: got %d", got)
	}
	if len(w.contracts) != 0 {
		t.Errorf("no contract should exist after failed creations, got %d", len(w.contracts))
	}
}

// ---------------------------------------------------------------------------
// Fulfillment
// ---------------------------------------------------------------------------

func TestFulfillWinPaysAssassin(t *testing.T) {
	w := newMemWorld()
	poster := w.addPlayer("poster", 1000, 0)
	target := w.addPlayer("target", 0, 0)
	attacker := w.addPlayer("attacker", 50, 0)
	resolver := &scriptedResolver{winner: attacker}
	svc := newTestService(w, resolver)

	c := mustCreate(t, svc, poster, target, 200)

	result, err := svc.Fulfill(context.Background(), attacker, c.ID)
	if err != nil {
		t.Fatalf("Fulfill: %v", err)
	}
	if !result.Success {
		t.Fatal("expected success")
	}
	if result.Status != models.ContractStatusFulfilled {
		t.Errorf("status: got %s, want fulfilled", result.Status)
	}
	if got := w.money(attacker); got != 250 {
		t.Errorf("attacker money: got %d, want 250", got)
	}
	// Payout, not a transfer: the poster already paid at creation.
	if got := w.money(poster); got != 800 {
		t.Errorf("poster money: got %d, want 800", got)
	}
	if got := w.assassinations(target); got != 1 {
		t.Errorf("target assassinations: got %d, want 1", got)
	}
	stored, _ := w.GetByID(context.Background(), c.ID)
	if stored.AssassinID == nil || *stored.AssassinID != attacker {
		t.Error("assassin id not recorded")
	}
	if len(stored.FightResult) == 0 || len(stored.FightLog) == 0 {
		t.Error("fight artifacts not persisted")
	}
}

func TestFulfillLossKeepsContractOpen(t *testing.T) {
	w := newMemWorld()
	poster := w.addPlayer("poster", 1000, 0)
	target := w.addPlayer("target", 0, 0)
	attacker := w.addPlayer("attacker", 50, 0)
	resolver := &scriptedResolver{winner: target}
	svc := newTestService(w, resolver)

	c := mustCreate(t, svc, poster, target, 200)

	result, err := svc.Fulfill(context.Background(), attacker, c.ID)
	if err != nil {
		t.Fatalf("Fulfill (loss) should not error: %v", err)
	}
	if result.Success {
		t.Fatal("expected success=false on a lost fight")
	}
	if result.Status != models.ContractStatusOpen {
		t.Errorf("status: got %s, want open", result.Status)
	}
	if got := w.money(attacker); got != 50 {
		t.Errorf("attacker money should be unchanged: got %d", got)
	}
	if got := w.assassinations(target); got != 0 {
		t.Errorf("target assassinations should be unchanged: got %d", got)
	}
	stored, _ := w.GetByID(context.Background(), c.ID)
	if len(stored.FightResult) == 0 {
		t.Error("fight artifacts should persist for audit even on a loss")
	}

	// A different attacker can try again and win.
	second := w.addPlayer("second", 0, 0)
	resolver.winner = second
	result, err = svc.Fulfill(context.Background(), second, c.ID)
	if err != nil || !result.Success {
		t.Fatalf("second attempt should succeed: result=%+v err=%v", result, err)
	}
}

func TestFulfillEligibility(t *testing.T) {
	w := newMemWorld()
	poster := w.addPlayer("poster", 1000, 0)
	target := w.addPlayer("target", 0, 0)
	resolver := &scriptedResolver{}
	svc := newTestService(w, resolver)
	ctx := context.Background()

	c := mustCreate(t, svc, poster, target, 100)

	if _, err := svc.Fulfill(ctx, uuid.New(), uuid.New()); !errors.Is(err, ErrContractNotFound) {
		t.Errorf("unknown contract: got %v, want ErrContractNotFound", err)
	}
	if _, err := svc.Fulfill(ctx, poster, c.ID); !errors.Is(err, ErrForbiddenParty) {
		t.Errorf("poster attacking: got %v, want ErrForbiddenParty", err)
	}
	if _, err := svc.Fulfill(ctx, target, c.ID); !errors.Is(err, ErrForbiddenParty) {
		t.Errorf("target attacking: got %v, want ErrForbiddenParty", err)
	}
	if resolver.calls != 0 {
		t.Errorf("no fight should have run, got %d calls", resolver.calls)
	}
}

func TestFulfillExpiredCommitsExpiry(t *testing.T) {
	w := newMemWorld()
	poster := w.addPlayer("poster", 1000, 0)
	target := w.addPlayer("target", 0, 0)
	attacker := w.addPlayer("attacker", 0, 0)
	resolver := &scriptedResolver{winner: attacker}
	svc := newTestService(w, resolver)

	c := mustCreate(t, svc, poster, target, 100)

	// Jump past the expiry window.
	svc.Now = func() time.Time { return c.ExpiresAt.Add(time.Minute) }

	if _, err := svc.Fulfill(context.Background(), attacker, c.ID); !errors.Is(err, ErrContractExpired) {
		t.Fatalf("got %v, want ErrContractExpired", err)
	}
	if resolver.calls != 0 {
		t.Error("combat must not run against an expired contract")
	}
	stored, _ := w.GetByID(context.Background(), c.ID)
	if stored.Status != models.ContractStatusExpired {
		t.Errorf("the expiry transition must commit: got %s", stored.Status)
	}
	// Escrow is forfeited, not refunded.
	if got := w.money(poster); got != 900 {
		t.Errorf("poster money: got %d, want 900", got)
	}

	// Once expired, further attempts see NotOpen.
	if _, err := svc.Fulfill(context.Background(), attacker, c.ID); !errors.Is(err, ErrContractNotOpen) {
		t.Errorf("got %v, want ErrContractNotOpen", err)
	}
}

func TestFulfillOnlyOnce(t *testing.T) {
	w := newMemWorld()
	poster := w.addPlayer("poster", 1000, 0)
	target := w.addPlayer("target", 0, 0)
	first := w.addPlayer("first", 0, 0)
	second := w.addPlayer("second", 0, 0)
	resolver := &scriptedResolver{winner: first}
	svc := newTestService(w, resolver)

	c := mustCreate(t, svc, poster, target, 100)

	if result, err := svc.Fulfill(context.Background(), first, c.ID); err != nil || !result.Success {
		t.Fatalf("first fulfillment: result=%+v err=%v", result, err)
	}
	resolver.winner = second
	if _, err := svc.Fulfill(context.Background(), second, c.ID); !errors.Is(err, ErrContractNotOpen) {
		t.Errorf("second fulfillment: got %v, want ErrContractNotOpen", err)
	}
	if got := w.assassinations(target); got != 1 {
		t.Errorf("target assassinations: got %d, want 1", got)
	}
}

// ---------------------------------------------------------------------------
// Ghost assassin
// ---------------------------------------------------------------------------

func TestGhostAssassin(t *testing.T) {
	w := newMemWorld()
	caller := w.addPlayer("caller", 0, 10)
	target := w.addPlayer("target", 0, 0)
	svc := newTestService(w, &scriptedResolver{})

	result, err := svc.GhostAssassin(context.Background(), caller, target)
	if err != nil {
		t.Fatalf("GhostAssassin: %v", err)
	}
	if result.TargetID != target {
		t.Error("wrong target in result")
	}
	if result.Narrative == "" {
		t.Error("narrative should not be empty")
	}
	if got := w.blackcoins(caller); got != 5 {
		t.Errorf("caller blackcoins: got %d, want 5", got)
	}
	if len(w.coins) != 1 || w.coins[0].Amount != -models.GhostAssassinCost || w.coins[0].Type != models.BlackcoinSpend {
		t.Errorf("expected one SPEND audit entry of -5, got %+v", w.coins)
	}
	if len(w.hospital) != 1 {
		t.Fatalf("expected one hospitalization, got %d", len(w.hospital))
	}
	h := w.hospital[0]
	if h.UserID != target || h.Minutes != models.GhostAssassinMinutes || h.HPLoss != models.GhostAssassinHPLoss {
		t.Errorf("hospitalization mismatch: %+v", h)
	}
	if want := h.StartedAt.Add(models.GhostAssassinMinutes * time.Minute); !h.ReleasedAt.Equal(want) {
		t.Errorf("releasedAt: got %v, want %v", h.ReleasedAt, want)
	}
	if got := w.assassinations(target); got != 1 {
		t.Errorf("target assassinations: got %d, want 1", got)
	}
}

func TestGhostAssassinInsufficientCoins(t *testing.T) {
	w := newMemWorld()
	caller := w.addPlayer("caller", 0, 4)
	target := w.addPlayer("target", 0, 0)
	svc := newTestService(w, &scriptedResolver{})

	_, err := svc.GhostAssassin(context.Background(), caller, target)
	if !errors.Is(err, ErrInsufficientBlackcoins) {
		t.Fatalf("got %v, want ErrInsufficientBlackcoins", err)
	}
	if got := w.blackcoins(caller); got != 4 {
		t.Errorf("caller blackcoins should be untouched: got %d", got)
	}
	if len(w.hospital) != 0 {
		t.Error("no hospitalization should be created")
	}
	if len(w.coins) != 0 {
		t.Error("no audit entry should be created")
	}
	if got := w.assassinations(target); got != 0 {
		t.Error("no statistic should change")
	}
}

func TestGhostAssassinValidation(t *testing.T) {
	w := newMemWorld()
	caller := w.addPlayer("caller", 0, 10)
	svc := newTestService(w, &scriptedResolver{})
	ctx := context.Background()

	if _, err := svc.GhostAssassin(ctx, caller, caller); !errors.Is(err, ErrSelfTarget) {
		t.Errorf("self target: got %v, want ErrSelfTarget", err)
	}
	if _, err := svc.GhostAssassin(ctx, caller, uuid.New()); !errors.Is(err, ErrTargetNotFound) {
		t.Errorf("missing target: got %v, want ErrTargetNotFound", err)
	}
}

// ---------------------------------------------------------------------------
// Listing
// ---------------------------------------------------------------------------

func TestListAvailableFlagsAndSweep(t *testing.T) {
	w := newMemWorld()
	poster := w.addPlayer("poster", 1000, 0)
	target := w.addPlayer("target", 0, 0)
	viewer := w.addPlayer("viewer", 0, 0)
	svc := newTestService(w, &scriptedResolver{})
	ctx := context.Background()

	c := mustCreate(t, svc, poster, target, 100)

	// Expired contract should be swept out of the listing.
	stale := mustCreate(t, svc, poster, target, 50)
	w.mu.Lock()
	w.contracts[stale.ID].ExpiresAt = svc.Now().Add(-time.Hour)
	w.mu.Unlock()

	views, err := svc.ListAvailable(ctx, viewer)
	if err != nil {
		t.Fatalf("ListAvailable: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 open contract, got %d", len(views))
	}
	if views[0].ID != c.ID {
		t.Error("wrong contract listed")
	}
	if !views[0].CanFulfill {
		t.Error("outside viewer should be able to fulfill")
	}

	swept, _ := w.GetByID(ctx, stale.ID)
	if swept.Status != models.ContractStatusExpired {
		t.Errorf("stale contract should be expired by sweep, got %s", swept.Status)
	}

	// Poster and target cannot fulfill.
	views, _ = svc.ListAvailable(ctx, poster)
	if views[0].CanFulfill || !views[0].IsPoster {
		t.Error("poster flags wrong")
	}
	views, _ = svc.ListAvailable(ctx, target)
	if views[0].CanFulfill || !views[0].IsTarget {
		t.Error("target flags wrong")
	}
}

// ---------------------------------------------------------------------------
// Reward and fight result lookups
// ---------------------------------------------------------------------------

func TestRewardGating(t *testing.T) {
	w := newMemWorld()
	poster := w.addPlayer("poster", 1000, 0)
	target := w.addPlayer("target", 0, 0)
	attacker := w.addPlayer("attacker", 0, 0)
	svc := newTestService(w, &scriptedResolver{winner: attacker})
	ctx := context.Background()

	c := mustCreate(t, svc, poster, target, 300)

	if _, err := svc.Reward(ctx, attacker, c.ID); !errors.Is(err, ErrContractNotFulfilled) {
		t.Errorf("open contract: got %v, want ErrContractNotFulfilled", err)
	}

	if _, err := svc.Fulfill(ctx, attacker, c.ID); err != nil {
		t.Fatalf("Fulfill: %v", err)
	}

	info, err := svc.Reward(ctx, attacker, c.ID)
	if err != nil {
		t.Fatalf("Reward: %v", err)
	}
	if info.Reward != 300 || info.PosterUsername != "poster" {
		t.Errorf("reward info mismatch: %+v", info)
	}

	if _, err := svc.Reward(ctx, poster, c.ID); !errors.Is(err, ErrNotContractAssassin) {
		t.Errorf("non-assassin: got %v, want ErrNotContractAssassin", err)
	}
	if _, err := svc.Reward(ctx, attacker, uuid.New()); !errors.Is(err, ErrContractNotFound) {
		t.Errorf("unknown contract: got %v, want ErrContractNotFound", err)
	}
}

func TestFightResultLookup(t *testing.T) {
	w := newMemWorld()
	poster := w.addPlayer("poster", 1000, 0)
	target := w.addPlayer("target", 0, 0)
	attacker := w.addPlayer("attacker", 0, 0)
	svc := newTestService(w, &scriptedResolver{winner: target})
	ctx := context.Background()

	c := mustCreate(t, svc, poster, target, 100)

	if _, err := svc.FightResult(ctx, c.ID); !errors.Is(err, ErrNoFightResult) {
		t.Errorf("before any attempt: got %v, want ErrNoFightResult", err)
	}
	if _, err := svc.Fulfill(ctx, attacker, c.ID); err != nil {
		t.Fatalf("Fulfill: %v", err)
	}
	raw, err := svc.FightResult(ctx, c.ID)
	if err != nil {
		t.Fatalf("FightResult: %v", err)
	}
	if len(raw) == 0 {
		t.Error("fight result should not be empty")
	}
	if _, err := svc.FightResult(ctx, uuid.New()); !errors.Is(err, ErrContractNotFound) {
		t.Errorf("unknown contract: got %v, want ErrContractNotFound", err)
	}
}
