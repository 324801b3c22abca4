package models

import "time"

// BountyDifficulty соответствует колонке difficulty.
type BountyDifficulty string

const (
	DifficultyBasic        BountyDifficulty = "Basic"
	DifficultyIntermediate BountyDifficulty = "Intermediate"
	DifficultyAdvance      BountyDifficulty = "Advance"
)

func (d BountyDifficulty) Valid() bool {
	switch d {
	case DifficultyBasic, DifficultyIntermediate, DifficultyAdvance:
		return true
	}
	return false
}

// Bounty представляет ограниченное по времени задание с вознаграждением.
type Bounty struct {
	ID                int              `json:"id" db:"id"`
	Title             string           `json:"title" db:"title"`
	Description       string           `json:"description" db:"description"`
	Tags              []string         `json:"tags" db:"tags"`
	Amount            int64            `json:"amount" db:"amount"`
	Deadline          time.Time        `json:"deadline" db:"deadline"`
	Difficulty        BountyDifficulty `json:"difficulty" db:"difficulty"`
	CreatedBy         int              `json:"created_by" db:"created_by"`
	EligibleCollegeID *int             `json:"eligible_college_id,omitempty" db:"eligible_college_id"`
	IsActive          bool             `json:"is_active" db:"is_active"`
	TeamSize          int              `json:"team_size" db:"team_size"`
	TeamAssignedCount int              `json:"team_assigned_count" db:"team_assigned_count"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
}

// Expired reports whether the deadline has passed at now.
func (b *Bounty) Expired(now time.Time) bool {
	return !now.Before(b.Deadline)
}

// OpenForEnrollment is false once the bounty is deactivated or its deadline passed,
// even if the expiry sweep has not run yet.
func (b *Bounty) OpenForEnrollment(now time.Time) bool {
	return b.IsActive && !b.Expired(now)
}

// ParticipantCount — производное значение, всегда пересчитывается из таблиц.
type ParticipantCount struct {
	Queued int `json:"queued"`
	Teamed int `json:"teamed"`
	Total  int `json:"total"`
}

// BountySummary is the list view shown to students of the eligible college.
type BountySummary struct {
	Bounty
	DaysLeft          int `json:"days_left"`
	TotalParticipants int `json:"total_participants"`
}
