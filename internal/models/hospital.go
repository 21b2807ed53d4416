package models

import (
	"time"

	"github.com/google/uuid"
)

// Ghost assassin hospitalization terms.
const (
	GhostAssassinCost    = 5 // blackcoins
	GhostAssassinMinutes = 30
	GhostAssassinHPLoss  = 1000
)

// Hospitalization is a timed incapacitation window applied to a player.
// Records are append-only; only the most recent unexpired one is considered
// active for gameplay.
type Hospitalization struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Minutes    int        `json:"minutes"`
	HPLoss     int        `json:"hp_loss"`
	StartedAt  time.Time  `json:"started_at"`
	ReleasedAt time.Time  `json:"released_at"`
	ContractID *uuid.UUID `json:"contract_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Active reports whether the window still covers now.
func (h *Hospitalization) Active(now time.Time) bool {
	return now.Before(h.ReleasedAt)
}
