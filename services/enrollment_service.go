package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/bounty-system/models"
	"github.com/Dosada05/bounty-system/realtime"
	"github.com/Dosada05/bounty-system/repositories"
	"github.com/jonboulle/clockwork"
)

type EnrollStatus string

const (
	EnrollStatusQueued     EnrollStatus = "queued"
	EnrollStatusTeamFormed EnrollStatus = "team_formed"
)

type EnrollResult struct {
	Status           EnrollStatus `json:"status"`
	TeamsFormed      int          `json:"teams_formed,omitempty"`
	RemainingInQueue int          `json:"remaining_in_queue"`
}

// QueueStatus is a snapshot of a bounty's queue and formed teams.
type QueueStatus struct {
	BountyID int                     `json:"bounty_id"`
	Queue    []*models.QueueEntry    `json:"queue"`
	Teams    []*models.Team          `json:"teams"`
	Count    models.ParticipantCount `json:"count"`
}

type EnrollmentService interface {
	Enroll(ctx context.Context, bountyID, userID int) (*EnrollResult, error)
	GetParticipantCount(ctx context.Context, bountyID int) (models.ParticipantCount, error)
	TriggerFormation(ctx context.Context, bountyID, actorID int) (*FormationResult, error)
	QueueStatus(ctx context.Context, bountyID int) (*QueueStatus, error)
	ListUserTeams(ctx context.Context, userID int) ([]*models.Team, error)
}

type enrollmentService struct {
	bountyRepo repositories.BountyRepository
	queueRepo  repositories.QueueRepository
	teamRepo   repositories.TeamRepository
	userRepo   repositories.UserRepository
	cooldown   *CooldownService
	engine     *FormationEngine
	publisher  realtime.Publisher
	clock      clockwork.Clock
	logger     *slog.Logger
}

func NewEnrollmentService(
	bountyRepo repositories.BountyRepository,
	queueRepo repositories.QueueRepository,
	teamRepo repositories.TeamRepository,
	userRepo repositories.UserRepository,
	cooldown *CooldownService,
	engine *FormationEngine,
	publisher realtime.Publisher,
	clock clockwork.Clock,
	logger *slog.Logger,
) EnrollmentService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &enrollmentService{
		bountyRepo: bountyRepo,
		queueRepo:  queueRepo,
		teamRepo:   teamRepo,
		userRepo:   userRepo,
		cooldown:   cooldown,
		engine:     engine,
		publisher:  publisher,
		clock:      clock,
		logger:     logger.With(slog.String("component", "enrollment")),
	}
}

// Enroll queues userID for bountyID and runs a formation round.
func (s *enrollmentService) Enroll(ctx context.Context, bountyID, userID int) (*EnrollResult, error) {
	if bountyID <= 0 || userID <= 0 {
		return nil, fmt.Errorf("%w: bounty and user ids must be positive", ErrValidationFailed)
	}

	bounty, err := s.getBounty(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	if !bounty.OpenForEnrollment(s.clock.Now()) {
		return nil, ErrBountyInactive
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	if bounty.EligibleCollegeID != nil && (user.CollegeID == nil || *user.CollegeID != *bounty.EligibleCollegeID) {
		return nil, ErrNotEligible
	}

	if err := s.cooldown.CheckEligible(ctx, userID); err != nil {
		return nil, err
	}

	// Вставка сама перепроверяет активность баунти: свип мог пройти после проверки выше.
	if _, err := s.queueRepo.Enqueue(ctx, bountyID, userID, s.clock.Now()); err != nil {
		switch {
		case errors.Is(err, repositories.ErrAlreadyQueued):
			return nil, ErrAlreadyQueued
		case errors.Is(err, repositories.ErrAlreadyTeamed):
			return nil, ErrAlreadyTeamed
		case errors.Is(err, repositories.ErrQueueBountyClosed):
			return nil, ErrBountyInactive
		case errors.Is(err, repositories.ErrQueueBountyInvalid):
			return nil, ErrBountyNotFound
		case errors.Is(err, repositories.ErrQueueUserInvalid):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to enqueue user %d for bounty %d: %w", userID, bountyID, err)
	}
	s.logger.Info("user enrolled", slog.Int("bounty_id", bountyID), slog.Int("user_id", userID))

	if count, err := countParticipants(ctx, s.queueRepo, s.teamRepo, bountyID); err == nil {
		s.publisher.PublishParticipantCount(bountyID, count.Total)
	} else {
		s.logger.Warn("failed to count participants", slog.Int("bounty_id", bountyID), slog.Any("error", err))
	}

	formation, err := s.engine.Form(ctx, bounty)
	if err != nil {
		return nil, err
	}
	if formation.TeamsFormed == 0 {
		return &EnrollResult{Status: EnrollStatusQueued, RemainingInQueue: formation.RemainingInQueue}, nil
	}
	return &EnrollResult{
		Status:           EnrollStatusTeamFormed,
		TeamsFormed:      formation.TeamsFormed,
		RemainingInQueue: formation.RemainingInQueue,
	}, nil
}

// GetParticipantCount recomputes queued + teamed members from storage.
func (s *enrollmentService) GetParticipantCount(ctx context.Context, bountyID int) (models.ParticipantCount, error) {
	if _, err := s.getBounty(ctx, bountyID); err != nil {
		return models.ParticipantCount{}, err
	}
	count, err := countParticipants(ctx, s.queueRepo, s.teamRepo, bountyID)
	if err != nil {
		return models.ParticipantCount{}, fmt.Errorf("failed to count participants for bounty %d: %w", bountyID, err)
	}
	return count, nil
}

// TriggerFormation lets the bounty owner force a formation round.
func (s *enrollmentService) TriggerFormation(ctx context.Context, bountyID, actorID int) (*FormationResult, error) {
	bounty, err := s.getBounty(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	if bounty.CreatedBy != actorID {
		return nil, ErrForbiddenOperation
	}
	if !bounty.OpenForEnrollment(s.clock.Now()) {
		return nil, ErrBountyInactive
	}

	queued, err := s.queueRepo.Count(ctx, nil, bountyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count queue for bounty %d: %w", bountyID, err)
	}
	if queued < bounty.TeamSize {
		return nil, &ShortQueueError{Queued: queued, Needed: bounty.TeamSize - queued}
	}
	return s.engine.Form(ctx, bounty)
}

func (s *enrollmentService) QueueStatus(ctx context.Context, bountyID int) (*QueueStatus, error) {
	if _, err := s.getBounty(ctx, bountyID); err != nil {
		return nil, err
	}
	queue, err := s.queueRepo.ListByBounty(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	teams, err := s.teamRepo.ListByBounty(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	teamed := 0
	for _, t := range teams {
		teamed += len(t.Members)
	}
	return &QueueStatus{
		BountyID: bountyID,
		Queue:    queue,
		Teams:    teams,
		Count:    models.ParticipantCount{Queued: len(queue), Teamed: teamed, Total: len(queue) + teamed},
	}, nil
}

func (s *enrollmentService) ListUserTeams(ctx context.Context, userID int) ([]*models.Team, error) {
	return s.teamRepo.ListByUser(ctx, userID)
}

func (s *enrollmentService) getBounty(ctx context.Context, bountyID int) (*models.Bounty, error) {
	bounty, err := s.bountyRepo.GetByID(ctx, bountyID)
	if err != nil {
		if errors.Is(err, repositories.ErrBountyNotFound) {
			return nil, ErrBountyNotFound
		}
		return nil, fmt.Errorf("failed to load bounty %d: %w", bountyID, err)
	}
	return bounty, nil
}
