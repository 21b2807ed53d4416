package fight

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// Outcome is what the settlement engine consumes from a fight. Log is stored
// opaquely on the contract and never interpreted.
type Outcome struct {
	WinnerID uuid.UUID       `json:"winner_id"`
	LoserID  uuid.UUID       `json:"loser_id"`
	Log      json.RawMessage `json:"log"`
}

// Resolver decides a fight between two players. Implementations may be
// deterministic or randomized; the engine treats them as a black box.
type Resolver interface {
	Resolve(ctx context.Context, attackerID, defenderID uuid.UUID) (*Outcome, error)
}

// LevelLookup resolves a player's level, the only attribute the default
// resolver weighs.
type LevelLookup interface {
	Level(ctx context.Context, userID uuid.UUID) (int, error)
}

// SimResolver is the default combat simulation: a short exchange of blows
// with hit chance weighted by level difference.
type SimResolver struct {
	levels LevelLookup

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimResolver(levels LevelLookup, seed int64) *SimResolver {
	return &SimResolver{levels: levels, rng: rand.New(rand.NewSource(seed))}
}

type round struct {
	Round      int       `json:"round"`
	AttackerID uuid.UUID `json:"attacker_id"`
	Damage     int       `json:"damage"`
}

type fightLog struct {
	AttackerID uuid.UUID `json:"attacker_id"`
	DefenderID uuid.UUID `json:"defender_id"`
	Rounds     []round   `json:"rounds"`
}

const (
	startingHP    = 100
	baseDamageMax = 25
)

func (r *SimResolver) Resolve(ctx context.Context, attackerID, defenderID uuid.UUID) (*Outcome, error) {
	atkLevel, err := r.levels.Level(ctx, attackerID)
	if err != nil {
		return nil, fmt.Errorf("attacker level: %w", err)
	}
	defLevel, err := r.levels.Level(ctx, defenderID)
	if err != nil {
		return nil, fmt.Errorf("defender level: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	log := fightLog{AttackerID: attackerID, DefenderID: defenderID}
	hp := map[uuid.UUID]int{attackerID: startingHP, defenderID: startingHP}
	turn, other := attackerID, defenderID
	bonus := map[uuid.UUID]int{attackerID: atkLevel, defenderID: defLevel}

	for n := 1; hp[attackerID] > 0 && hp[defenderID] > 0; n++ {
		dmg := 1 + r.rng.Intn(baseDamageMax) + bonus[turn]
		hp[other] -= dmg
		log.Rounds = append(log.Rounds, round{Round: n, AttackerID: turn, Damage: dmg})
		turn, other = other, turn
	}

	winner, loser := attackerID, defenderID
	if hp[attackerID] <= 0 {
		winner, loser = defenderID, attackerID
	}
	raw, err := json.Marshal(log)
	if err != nil {
		return nil, fmt.Errorf("marshal fight log: %w", err)
	}
	return &Outcome{WinnerID: winner, LoserID: loser, Log: raw}, nil
}
