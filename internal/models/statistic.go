package models

import (
	"time"

	"github.com/google/uuid"
)

// StatField is the closed set of statistic counters. Each maps to a fixed
// column so increments never go through a caller-supplied column name.
type StatField int

const (
	StatAssassinations StatField = iota
	StatWins
	StatLosses
	StatFights
	StatCrimes
	StatKills
)

// Column returns the statistics table column for the field.
func (f StatField) Column() string {
	switch f {
	case StatAssassinations:
		return "assassinations"
	case StatWins:
		return "wins"
	case StatLosses:
		return "losses"
	case StatFights:
		return "fights"
	case StatCrimes:
		return "crimes"
	case StatKills:
		return "kills"
	}
	return ""
}

// Statistic holds per-user monotonically non-decreasing counters. The row is
// created lazily on first increment.
type Statistic struct {
	UserID         uuid.UUID `json:"user_id"`
	Assassinations int       `json:"assassinations"`
	Wins           int       `json:"wins"`
	Losses         int       `json:"losses"`
	Fights         int       `json:"fights"`
	Crimes         int       `json:"crimes"`
	Kills          int       `json:"kills"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Fame derives the reputation figure shown for contract targets.
func (s *Statistic) Fame() int {
	fame := s.Wins*3 + s.Assassinations*5 - s.Losses
	if fame < 0 {
		fame = 0
	}
	return fame
}
