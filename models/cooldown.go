package models

import "time"

// CooldownRecord хранит время последнего завершённого баунти пользователя.
type CooldownRecord struct {
	UserID              int        `json:"user_id" db:"user_id"`
	LastCompletedBounty *int       `json:"last_completed_bounty,omitempty" db:"last_completed_bounty_id"`
	LastCompletedAt     *time.Time `json:"last_completed_at,omitempty" db:"last_completed_at"`
}

type CompletedBounty struct {
	UserID      int       `json:"user_id" db:"user_id"`
	BountyID    int       `json:"bounty_id" db:"bounty_id"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}
