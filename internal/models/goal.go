package models

import (
	"time"

	"github.com/google/uuid"
)

// Goal is a tracked achievement: reach Target on Metric. Definitions come
// from the goal catalog and are synced into the goals table at startup.
type Goal struct {
	ID        uuid.UUID `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Metric    string    `json:"metric"`
	Target    int       `json:"target"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// GoalProgress is the per-user progress row for a goal, created lazily.
// IsCompleted is one-way: once set it never resets, and Progress never
// decreases.
type GoalProgress struct {
	UserID      uuid.UUID `json:"user_id"`
	GoalID      uuid.UUID `json:"goal_id"`
	Progress    int       `json:"progress"`
	IsCompleted bool      `json:"is_completed"`
	UpdatedAt   time.Time `json:"updated_at"`
}
