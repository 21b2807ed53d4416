package models

import (
	"time"

	"github.com/google/uuid"
)

// Blackcoin transaction type enum.
const (
	BlackcoinSpend    = "SPEND"
	BlackcoinPurchase = "PURCHASE"
	BlackcoinReward   = "REWARD"
)

// BlackcoinTransaction is an audit entry for every premium-currency mutation.
// Amount is signed: spends are negative.
type BlackcoinTransaction struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Amount      int       `json:"amount"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
