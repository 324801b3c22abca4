package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Dosada05/bounty-system/models"
	"github.com/Dosada05/bounty-system/repositories"
	"github.com/jonboulle/clockwork"
)

// DefaultCooldownWindow is the wait after a completed bounty before the next enrollment.
const DefaultCooldownWindow = 24 * time.Hour

// CooldownService gates re-enrollment on the user's last completed bounty.
type CooldownService struct {
	repo   repositories.CooldownRepository
	tx     repositories.Transactor
	clock  clockwork.Clock
	window time.Duration
}

func NewCooldownService(repo repositories.CooldownRepository, tx repositories.Transactor, clock clockwork.Clock, window time.Duration) *CooldownService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CooldownService{repo: repo, tx: tx, clock: clock, window: window}
}

// CheckEligible returns a *CooldownError while the window since the last
// completion is still open. The record is created on the first check.
func (s *CooldownService) CheckEligible(ctx context.Context, userID int) error {
	rec, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrCooldownUserInvalid) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load cooldown record: %w", err)
	}
	if rec.LastCompletedAt == nil {
		return nil
	}

	elapsed := s.clock.Since(*rec.LastCompletedAt)
	if elapsed >= s.window {
		return nil
	}
	remaining := math.Round((s.window-elapsed).Hours()*10) / 10
	// последние минуты окна не должны выглядеть как "0.0 more hours"
	return &CooldownError{RemainingHours: math.Max(remaining, 0.1)}
}

// RecordCompletion is called by the completion workflow once a user finishes a bounty.
func (s *CooldownService) RecordCompletion(ctx context.Context, userID, bountyID int, completedAt time.Time) error {
	if userID <= 0 || bountyID <= 0 {
		return ErrValidationFailed
	}
	if completedAt.IsZero() {
		completedAt = s.clock.Now()
	}
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.repo.RecordCompletion(ctx, exec, userID, bountyID, completedAt)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrCooldownUserInvalid) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to record completion: %w", err)
	}
	return nil
}

func (s *CooldownService) History(ctx context.Context, userID int) ([]*models.CompletedBounty, error) {
	return s.repo.ListCompleted(ctx, userID)
}
