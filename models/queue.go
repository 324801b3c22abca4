package models

import "time"

// QueueEntry — пользователь, ожидающий формирования команды для баунти.
type QueueEntry struct {
	ID       int64     `json:"id" db:"id"`
	BountyID int       `json:"bounty_id" db:"bounty_id"`
	UserID   int       `json:"user_id" db:"user_id"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}
