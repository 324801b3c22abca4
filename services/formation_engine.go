package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/Dosada05/bounty-system/models"
	"github.com/Dosada05/bounty-system/realtime"
	"github.com/Dosada05/bounty-system/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TeamNames is the pool team names are drawn from, with replacement.
var TeamNames = []string{"Code Avengers", "Bug Busters", "Pixel Ninjas", "Hackstreet Boys", "Code Crusaders"}

const notifyConcurrency = 8

// FormationResult describes one formation round.
type FormationResult struct {
	TeamsFormed      int            `json:"teams_formed"`
	Teams            []*models.Team `json:"teams"`
	RemainingInQueue int            `json:"remaining_in_queue"`
}

// FormationEngine groups queued users of a bounty into random fixed-size teams.
type FormationEngine struct {
	tx         repositories.Transactor
	bountyRepo repositories.BountyRepository
	queueRepo  repositories.QueueRepository
	teamRepo   repositories.TeamRepository
	locker     *BountyLocker
	publisher  realtime.Publisher
	notifier   Notifier
	logger     *slog.Logger

	// shuffle and pickName are replaced in tests for deterministic teams.
	shuffle  func(ids []int)
	pickName func() string
}

func NewFormationEngine(
	tx repositories.Transactor,
	bountyRepo repositories.BountyRepository,
	queueRepo repositories.QueueRepository,
	teamRepo repositories.TeamRepository,
	locker *BountyLocker,
	publisher realtime.Publisher,
	notifier Notifier,
	logger *slog.Logger,
) *FormationEngine {
	return &FormationEngine{
		tx:         tx,
		bountyRepo: bountyRepo,
		queueRepo:  queueRepo,
		teamRepo:   teamRepo,
		locker:     locker,
		publisher:  publisher,
		notifier:   notifier,
		logger:     logger.With(slog.String("component", "team_formation")),
		shuffle: func(ids []int) {
			rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		},
		pickName: func() string { return TeamNames[rand.Intn(len(TeamNames))] },
	}
}

// Form runs one formation round for bounty. Teams committed before a failing
// chunk are kept and announced; the chunk error is returned alongside them.
func (e *FormationEngine) Form(ctx context.Context, bounty *models.Bounty) (*FormationResult, error) {
	result := &FormationResult{Teams: make([]*models.Team, 0)}

	formErr := e.locker.WithLock(bounty.ID, func() error {
		members, err := e.queueRepo.ListMembers(ctx, nil, bounty.ID)
		if err != nil {
			return err
		}
		if len(members) < bounty.TeamSize {
			return nil
		}

		e.shuffle(members)
		e.logger.Info("forming teams",
			slog.Int("bounty_id", bounty.ID),
			slog.Int("queued", len(members)),
			slog.Int("teams", len(members)/bounty.TeamSize),
			slog.Int("left_in_queue", len(members)%bounty.TeamSize))

		for start := 0; start+bounty.TeamSize <= len(members); start += bounty.TeamSize {
			chunk := append([]int(nil), members[start:start+bounty.TeamSize]...)
			team, err := e.formTeam(ctx, bounty.ID, chunk)
			if err != nil {
				return err
			}
			result.Teams = append(result.Teams, team)
		}
		return nil
	})
	result.TeamsFormed = len(result.Teams)

	remaining, err := e.queueRepo.Count(ctx, nil, bounty.ID)
	if err != nil {
		e.logger.Warn("failed to count remaining queue", slog.Int("bounty_id", bounty.ID), slog.Any("error", err))
	}
	result.RemainingInQueue = remaining

	if result.TeamsFormed > 0 {
		e.announce(ctx, bounty, result.Teams)
	}

	if formErr != nil {
		if errors.Is(formErr, ErrQueueChanged) {
			e.logger.Warn("formation round stopped on stale queue snapshot",
				slog.Int("bounty_id", bounty.ID), slog.Int("teams_formed", result.TeamsFormed))
			return result, nil
		}
		return result, fmt.Errorf("team formation for bounty %d: %w", bounty.ID, formErr)
	}
	return result, nil
}

// formTeam persists one chunk atomically: the members leave the queue and the
// team appears in the same transaction, or nothing changes.
func (e *FormationEngine) formTeam(ctx context.Context, bountyID int, members []int) (*models.Team, error) {
	team := &models.Team{
		ID:       uuid.NewString(),
		BountyID: bountyID,
		Name:     e.pickName(),
		Members:  members,
	}

	err := e.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		locked, err := e.bountyRepo.LockForUpdate(ctx, exec, bountyID)
		if err != nil {
			return err
		}
		// свип мог закрыть баунти, пока мы ждали блокировку строки
		if !locked.IsActive {
			return ErrBountyInactive
		}
		removed, err := e.queueRepo.RemoveMembers(ctx, exec, bountyID, members)
		if err != nil {
			return err
		}
		if removed != int64(len(members)) {
			return ErrQueueChanged
		}
		if err := e.teamRepo.Create(ctx, exec, team); err != nil {
			return err
		}
		return e.bountyRepo.IncrementTeamAssigned(ctx, exec, bountyID, 1)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("team created",
		slog.Int("bounty_id", bountyID),
		slog.String("team_id", team.ID),
		slog.String("team_name", team.Name),
		slog.Any("members", team.Members))
	return team, nil
}

// announce runs after the lock is released so slow subscribers or a slow
// notification store cannot hold up other enrollments.
func (e *FormationEngine) announce(ctx context.Context, bounty *models.Bounty, teams []*models.Team) {
	if count, err := countParticipants(ctx, e.queueRepo, e.teamRepo, bounty.ID); err == nil {
		e.publisher.PublishParticipantCount(bounty.ID, count.Total)
	} else {
		e.logger.Warn("failed to count participants", slog.Int("bounty_id", bounty.ID), slog.Any("error", err))
	}

	for _, team := range teams {
		payload := models.TeamAssignmentPayload{
			TeamID:      team.ID,
			TeamName:    team.Name,
			BountyTitle: bounty.Title,
			Members:     team.Members,
		}
		for _, memberID := range team.Members {
			e.publisher.PublishTeamAssignment(memberID, payload)
		}
	}

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(notifyConcurrency)
	for _, team := range teams {
		msg := fmt.Sprintf("🎉 Team Assignment: You have been added to team %q for bounty %q. Check your Team tab for details!",
			team.Name, bounty.Title)
		for _, memberID := range team.Members {
			memberID := memberID
			g.Go(func() error {
				e.notifier.Notify(gctx, memberID, msg)
				return nil
			})
		}
	}
	_ = g.Wait()
}

func countParticipants(ctx context.Context, queueRepo repositories.QueueRepository, teamRepo repositories.TeamRepository, bountyID int) (models.ParticipantCount, error) {
	queued, err := queueRepo.Count(ctx, nil, bountyID)
	if err != nil {
		return models.ParticipantCount{}, err
	}
	teamed, err := teamRepo.CountMembers(ctx, nil, bountyID)
	if err != nil {
		return models.ParticipantCount{}, err
	}
	return models.ParticipantCount{Queued: queued, Teamed: teamed, Total: queued + teamed}, nil
}
