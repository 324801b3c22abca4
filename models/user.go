package models

import "time"

// User — запись внешнего каталога пользователей; сервис только читает её.
type User struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CollegeID *int      `json:"college_id,omitempty" db:"college_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
