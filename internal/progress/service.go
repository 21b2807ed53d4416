package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/undercity/backend/internal/models"
)

// ErrNegativeDelta is returned when a cumulative update carries a negative
// delta. Cumulative metrics only ever add; a negative delta is a caller bug
// and must be rejected rather than silently applied.
var ErrNegativeDelta = errors.New("negative delta for cumulative metric")

// GoalStore is the goal/progress persistence interface used by the service.
type GoalStore interface {
	ListActiveGoals(ctx context.Context, metric string) ([]*models.Goal, error)
	GetProgress(ctx context.Context, userID, goalID uuid.UUID) (*models.GoalProgress, error)
	SaveProgress(ctx context.Context, p *models.GoalProgress) error
}

// CharacterSource reads the character row as ground truth.
type CharacterSource interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Character, error)
}

// StatisticSource reads the authoritative running counters.
type StatisticSource interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Statistic, error)
}

// BankSource reads the user's bank balance.
type BankSource interface {
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
}

// Service propagates metric changes into goal progress. All of its writes are
// monotonic, so running any operation twice is harmless. That is what makes
// the post-commit propagation safe to deliver at-least-once.
type Service struct {
	Goals      GoalStore
	Characters CharacterSource
	Stats      StatisticSource
	Bank       BankSource
	Logger     *slog.Logger

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewService(goals GoalStore, characters CharacterSource, stats StatisticSource, bank BankSource, logger *slog.Logger) *Service {
	return &Service{
		Goals:      goals,
		Characters: characters,
		Stats:      stats,
		Bank:       bank,
		Logger:     logger,
		Now:        time.Now,
	}
}

// Update applies one observation to every active goal tracked against the
// metric. For cumulative metrics value is a non-negative delta; for snapshot
// metrics it is the current quantity and progress keeps the maximum observed.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, metric Metric, value int) error {
	if metric.Kind() == Cumulative && value < 0 {
		return ErrNegativeDelta
	}
	goals, err := s.Goals.ListActiveGoals(ctx, metric.String())
	if err != nil {
		return fmt.Errorf("list goals for %s: %w", metric, err)
	}
	for _, g := range goals {
		p, err := s.Goals.GetProgress(ctx, userID, g.ID)
		if err != nil {
			return fmt.Errorf("get progress %s: %w", g.Slug, err)
		}
		switch metric.Kind() {
		case Cumulative:
			p.Progress += value
		case Snapshot:
			if value > p.Progress {
				p.Progress = value
			}
		}
		s.complete(p, g)
		if err := s.Goals.SaveProgress(ctx, p); err != nil {
			return fmt.Errorf("save progress %s: %w", g.Slug, err)
		}
	}
	return nil
}

// RecomputeAll re-derives every active goal's progress for the user directly
// from the ground-truth stores and re-asserts it as a maximum. It corrects
// any drift from missed post-commit propagation and is safe to run at any
// time, any number of times.
func (s *Service) RecomputeAll(ctx context.Context, userID uuid.UUID) error {
	ch, err := s.Characters.GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load character: %w", err)
	}
	st, err := s.Stats.GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load statistics: %w", err)
	}
	bank, err := s.Bank.Balance(ctx, userID)
	if err != nil {
		return fmt.Errorf("load bank balance: %w", err)
	}

	goals, err := s.Goals.ListActiveGoals(ctx, "")
	if err != nil {
		return fmt.Errorf("list goals: %w", err)
	}
	for _, g := range goals {
		metric, err := ParseMetric(g.Metric)
		if err != nil {
			return fmt.Errorf("goal %s: %w", g.Slug, err)
		}
		current := s.metricValue(metric, ch, st, bank)
		p, err := s.Goals.GetProgress(ctx, userID, g.ID)
		if err != nil {
			return fmt.Errorf("get progress %s: %w", g.Slug, err)
		}
		if current > p.Progress {
			p.Progress = current
		}
		s.complete(p, g)
		if err := s.Goals.SaveProgress(ctx, p); err != nil {
			return fmt.Errorf("save progress %s: %w", g.Slug, err)
		}
	}
	return nil
}

// complete flags the goal when reached. Completion is one-way.
func (s *Service) complete(p *models.GoalProgress, g *models.Goal) {
	if !p.IsCompleted && p.Progress >= g.Target {
		p.IsCompleted = true
		if s.Logger != nil {
			s.Logger.Info("goal completed", "user_id", p.UserID, "goal", g.Slug, "progress", p.Progress)
		}
	}
}

// metricValue reads one metric's current value from ground truth. The switch
// is exhaustive over the Metric enum; adding a member without a source is a
// compile-visible omission, not a silent zero.
func (s *Service) metricValue(m Metric, ch *models.Character, st *models.Statistic, bank int) int {
	switch m {
	case MetricLevel:
		return ch.Level
	case MetricMoney:
		return ch.Money
	case MetricBlackcoins:
		return ch.Blackcoins
	case MetricBankBalance:
		return bank
	case MetricDaysInGame:
		return int(s.Now().Sub(ch.CreatedAt).Hours() / 24)
	case MetricFightsWon:
		return st.Wins
	case MetricFightsLost:
		return st.Losses
	case MetricTotalFights:
		return st.Fights
	case MetricCrimesCommitted:
		return st.Crimes
	case MetricTimesEliminated:
		return st.Assassinations
	}
	panic(fmt.Sprintf("metric %d has no ground-truth source", m))
}
