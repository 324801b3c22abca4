package models

import "time"

// Team is an immutable group formed from a bounty queue.
type Team struct {
	ID       string    `json:"id" db:"id"`
	BountyID int       `json:"bounty_id" db:"bounty_id"`
	Name     string    `json:"name" db:"name"`
	Members  []int     `json:"members" db:"-"`
	FormedAt time.Time `json:"formed_at" db:"formed_at"`
}
