package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// Sweeper is the job body run by SweepScheduler.
type Sweeper interface {
	SweepExpiredBounties(ctx context.Context) (*SweepReport, error)
}

// SweepScheduler runs the expiry sweep on a cron schedule and once at start.
type SweepScheduler struct {
	sched  gocron.Scheduler
	logger *slog.Logger
}

func NewSweepScheduler(ctx context.Context, sweeper Sweeper, cronExpr string, clock clockwork.Clock, logger *slog.Logger) (*SweepScheduler, error) {
	logger = logger.With(slog.String("component", "scheduler"))
	opts := []gocron.SchedulerOption{gocron.WithLogger(logger)}
	if clock != nil {
		opts = append(opts, gocron.WithClock(clock))
	}
	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			if _, err := sweeper.SweepExpiredBounties(ctx); err != nil {
				logger.Error("expiry sweep failed", slog.Any("error", err))
			}
		}),
		gocron.WithName("bounty-expiry-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to schedule expiry sweep %q: %w", cronExpr, err)
	}
	return &SweepScheduler{sched: sched, logger: logger}, nil
}

func (s *SweepScheduler) Start() {
	s.sched.Start()
	s.logger.Info("expiry sweep scheduler started")
}

func (s *SweepScheduler) Shutdown() error {
	return s.sched.Shutdown()
}
