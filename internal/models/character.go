package models

import (
	"time"

	"github.com/google/uuid"
)

// Starting balances for a freshly registered character.
const (
	StartingMoney      = 500
	StartingBlackcoins = 0
	StartingLevel      = 1
)

// Character holds a player's in-game state. Money is the soft currency,
// blackcoins the premium one; both are non-negative and only mutated under a
// held row lock inside a settlement transaction.
type Character struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Name       string    `json:"name"`
	Level      int       `json:"level"`
	Money      int       `json:"money"`
	Blackcoins int       `json:"blackcoins"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
