package services

import (
	"errors"
	"fmt"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ошибки валидации
	ErrValidationFailed    = errors.New("validation failed")
	ErrBountyTitleRequired = errors.New("bounty title is required")
	ErrBountyFieldsMissing = errors.New("please fill all required fields")
	ErrDeadlineInPast      = errors.New("deadline must be in the future")
	ErrInvalidAmount       = errors.New("bounty amount must be positive")
	ErrInvalidDifficulty   = errors.New("invalid bounty difficulty")

	// Не найдено
	ErrBountyNotFound       = errors.New("bounty not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrCollegeNotFound      = errors.New("user's college not found")
	ErrNotificationNotFound = errors.New("notification not found")

	// Конфликты
	ErrAlreadyQueued   = errors.New("already enrolled in some bounty")
	ErrAlreadyTeamed   = errors.New("already on a team for this bounty")
	ErrBountyInactive  = errors.New("this bounty is no longer active")
	ErrCooldownActive  = errors.New("cooldown period is still active")
	ErrNotEligible     = errors.New("user's college is not eligible for this bounty")
	ErrBountyInUse     = errors.New("bounty already has teams and cannot be deleted")
	ErrNotEnoughQueued = errors.New("not enough users in queue to form a team")
	ErrQueueChanged    = errors.New("queue changed during team formation")

	// Доступ
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")
)

// CooldownError carries the remaining wait so the caller can render it.
type CooldownError struct {
	RemainingHours float64
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("you must wait %.1f more hours before enrolling in another bounty", e.RemainingHours)
}

func (e *CooldownError) Unwrap() error { return ErrCooldownActive }

// ShortQueueError reports how many more users a manual formation needs.
type ShortQueueError struct {
	Queued int
	Needed int
}

func (e *ShortQueueError) Error() string {
	return fmt.Sprintf("not enough users in queue: need %d more users", e.Needed)
}

func (e *ShortQueueError) Unwrap() error { return ErrNotEnoughQueued }
