package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Contract status enum. Transitions only move forward: open contracts become
// fulfilled or expired, never the other way around. Rows are never deleted.
const (
	ContractStatusOpen      = "open"
	ContractStatusFulfilled = "fulfilled"
	ContractStatusExpired   = "expired"
	ContractStatusCancelled = "cancelled"
)

// ContractTTL is how long a contract stays open after creation.
const ContractTTL = 24 * time.Hour

// Contract is a bounty record pairing a poster, a target, and a staked price.
// The price is deducted from the poster at creation and held implicitly until
// payout; expiry forfeits it.
type Contract struct {
	ID          uuid.UUID       `json:"id"`
	PosterID    uuid.UUID       `json:"poster_id"`
	TargetID    uuid.UUID       `json:"target_id"`
	Price       int             `json:"price"`
	Status      string          `json:"status"`
	AssassinID  *uuid.UUID      `json:"assassin_id,omitempty"`
	FightLog    json.RawMessage `json:"fight_log,omitempty"`
	FightResult json.RawMessage `json:"fight_result,omitempty"`
	FulfilledAt *time.Time      `json:"fulfilled_at,omitempty"`
	ExpiresAt   time.Time       `json:"expires_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ExpiredBy reports whether the contract's open window has closed at now.
func (c *Contract) ExpiredBy(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
