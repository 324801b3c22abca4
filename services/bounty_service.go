package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/Dosada05/bounty-system/models"
	"github.com/Dosada05/bounty-system/realtime"
	"github.com/Dosada05/bounty-system/repositories"
	"github.com/jonboulle/clockwork"
)

// CreateBountyInput — данные для создания баунти.
type CreateBountyInput struct {
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Tags        []string                `json:"tags"`
	Amount      int64                   `json:"amount"`
	Deadline    time.Time               `json:"deadline"`
	Difficulty  models.BountyDifficulty `json:"difficulty"`
}

// SweepReport summarises one expiry sweep.
type SweepReport struct {
	Expired        int   `json:"expired"`
	DroppedEntries int64 `json:"dropped_entries"`
}

// BountyService owns issuance and the Active → Expired lifecycle.
type BountyService struct {
	tx         repositories.Transactor
	bountyRepo repositories.BountyRepository
	queueRepo  repositories.QueueRepository
	teamRepo   repositories.TeamRepository
	userRepo   repositories.UserRepository
	cooldown   *CooldownService
	locker     *BountyLocker
	publisher  realtime.Publisher
	clock      clockwork.Clock
	teamSize   int
	logger     *slog.Logger
}

func NewBountyService(
	tx repositories.Transactor,
	bountyRepo repositories.BountyRepository,
	queueRepo repositories.QueueRepository,
	teamRepo repositories.TeamRepository,
	userRepo repositories.UserRepository,
	cooldown *CooldownService,
	locker *BountyLocker,
	publisher realtime.Publisher,
	clock clockwork.Clock,
	teamSize int,
	logger *slog.Logger,
) *BountyService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &BountyService{
		tx:         tx,
		bountyRepo: bountyRepo,
		queueRepo:  queueRepo,
		teamRepo:   teamRepo,
		userRepo:   userRepo,
		cooldown:   cooldown,
		locker:     locker,
		publisher:  publisher,
		clock:      clock,
		teamSize:   teamSize,
		logger:     logger.With(slog.String("component", "bounty_lifecycle")),
	}
}

// CreateBounty publishes a bounty for the issuer's college.
func (s *BountyService) CreateBounty(ctx context.Context, issuerID int, input CreateBountyInput) (*models.Bounty, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.Title == "" {
		return nil, ErrBountyTitleRequired
	}
	if input.Description == "" || len(input.Tags) == 0 || input.Deadline.IsZero() {
		return nil, ErrBountyFieldsMissing
	}
	if input.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if input.Difficulty == "" {
		input.Difficulty = models.DifficultyBasic
	}
	if !input.Difficulty.Valid() {
		return nil, ErrInvalidDifficulty
	}
	if !input.Deadline.After(s.clock.Now()) {
		return nil, ErrDeadlineInPast
	}

	issuer, err := s.userRepo.GetByID(ctx, issuerID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load issuer %d: %w", issuerID, err)
	}

	bounty := &models.Bounty{
		Title:             input.Title,
		Description:       input.Description,
		Tags:              input.Tags,
		Amount:            input.Amount,
		Deadline:          input.Deadline,
		Difficulty:        input.Difficulty,
		CreatedBy:         issuerID,
		EligibleCollegeID: issuer.CollegeID,
		IsActive:          true,
		TeamSize:          s.teamSize,
	}
	if err := s.bountyRepo.Create(ctx, bounty); err != nil {
		return nil, fmt.Errorf("failed to create bounty: %w", err)
	}
	s.logger.Info("bounty created", slog.Int("bounty_id", bounty.ID), slog.Int("issuer_id", issuerID))

	if bounty.EligibleCollegeID != nil {
		s.publisher.PublishToRoom(realtime.CollegeRoom(*bounty.EligibleCollegeID), models.EventNewBounty, bounty)
	}
	return bounty, nil
}

func (s *BountyService) GetBounty(ctx context.Context, id int) (*models.Bounty, error) {
	bounty, err := s.bountyRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrBountyNotFound) {
			return nil, ErrBountyNotFound
		}
		return nil, fmt.Errorf("failed to load bounty %d: %w", id, err)
	}
	return bounty, nil
}

// ListForUser returns the active bounties of the user's college with live participant totals.
func (s *BountyService) ListForUser(ctx context.Context, userID int) ([]*models.BountySummary, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	if user.CollegeID == nil {
		return nil, ErrCollegeNotFound
	}

	bounties, err := s.bountyRepo.ListActiveByCollege(ctx, *user.CollegeID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	summaries := make([]*models.BountySummary, 0, len(bounties))
	for _, b := range bounties {
		count, err := countParticipants(ctx, s.queueRepo, s.teamRepo, b.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count participants for bounty %d: %w", b.ID, err)
		}
		summaries = append(summaries, &models.BountySummary{
			Bounty:            *b,
			DaysLeft:          daysLeft(now, b.Deadline),
			TotalParticipants: count.Total,
		})
	}
	return summaries, nil
}

func daysLeft(now, deadline time.Time) int {
	days := int(math.Ceil(deadline.Sub(now).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

// DeleteBounty is owner-only and refused once teams reference the bounty.
func (s *BountyService) DeleteBounty(ctx context.Context, id, actorID int) error {
	bounty, err := s.GetBounty(ctx, id)
	if err != nil {
		return err
	}
	if bounty.CreatedBy != actorID {
		return ErrForbiddenOperation
	}
	if err := s.bountyRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repositories.ErrBountyInUse):
			return ErrBountyInUse
		case errors.Is(err, repositories.ErrBountyNotFound):
			return ErrBountyNotFound
		}
		return fmt.Errorf("failed to delete bounty %d: %w", id, err)
	}
	s.logger.Info("bounty deleted", slog.Int("bounty_id", id), slog.Int("actor_id", actorID))
	return nil
}

// MarkCompleted records that userID finished the bounty, which starts the
// user's cooldown window. Only the bounty owner may do this.
func (s *BountyService) MarkCompleted(ctx context.Context, bountyID, userID, actorID int) error {
	bounty, err := s.GetBounty(ctx, bountyID)
	if err != nil {
		return err
	}
	if bounty.CreatedBy != actorID {
		return ErrForbiddenOperation
	}
	return s.cooldown.RecordCompletion(ctx, userID, bountyID, s.clock.Now())
}

// SweepExpiredBounties deactivates every active bounty whose deadline has
// passed and drops its queue. Teams are left untouched. Re-running it on
// already expired bounties changes nothing.
func (s *BountyService) SweepExpiredBounties(ctx context.Context) (*SweepReport, error) {
	now := s.clock.Now()
	expired, err := s.bountyRepo.ListExpiredActive(ctx, nil, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired bounties: %w", err)
	}

	report := &SweepReport{}
	var errs []error
	for _, b := range expired {
		var deactivated bool
		var dropped int64
		err := s.locker.WithLock(b.ID, func() error {
			return s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
				ok, err := s.bountyRepo.Deactivate(ctx, exec, b.ID)
				if err != nil || !ok {
					return err
				}
				n, err := s.queueRepo.DeleteByBounty(ctx, exec, b.ID)
				if err != nil {
					return err
				}
				deactivated, dropped = true, n
				return nil
			})
		})
		if err != nil {
			s.logger.Error("failed to expire bounty", slog.Int("bounty_id", b.ID), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("bounty %d: %w", b.ID, err))
			continue
		}
		if !deactivated {
			continue
		}

		report.Expired++
		report.DroppedEntries += dropped
		s.logger.Info("marked bounty as inactive",
			slog.Int("bounty_id", b.ID),
			slog.String("title", b.Title),
			slog.Int64("dropped_queue_entries", dropped))

		if count, err := countParticipants(ctx, s.queueRepo, s.teamRepo, b.ID); err == nil {
			s.publisher.PublishParticipantCount(b.ID, count.Total)
		}
	}

	s.logger.Info("expiry sweep finished",
		slog.Int("expired", report.Expired),
		slog.Int64("dropped_queue_entries", report.DroppedEntries),
		slog.Time("at", now))
	return report, errors.Join(errs...)
}
