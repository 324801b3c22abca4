package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) SweepExpiredBounties(ctx context.Context) (*SweepReport, error) {
	s.calls.Add(1)
	return &SweepReport{}, s.err
}

func TestSweepScheduler_RunsOnStart(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("db down")}
	sched, err := NewSweepScheduler(context.Background(), sweeper, "0 0 * * *", nil, discardLogger())
	require.NoError(t, err)

	sched.Start()
	require.Eventually(t, func() bool { return sweeper.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, sched.Shutdown())
}

func TestSweepScheduler_InvalidCron(t *testing.T) {
	_, err := NewSweepScheduler(context.Background(), &countingSweeper{}, "every day please", nil, discardLogger())
	assert.Error(t, err)
}

func TestSweepScheduler_WithRealSweep(t *testing.T) {
	env := newTestEnv(t, 2)
	bounty := env.activeBounty("b")
	env.enqueueDirect(t, bounty.ID, env.students(1, 1))
	env.clock.Advance(100 * time.Hour)

	sched, err := NewSweepScheduler(context.Background(), env.bounties, "0 0 * * *", nil, discardLogger())
	require.NoError(t, err)
	sched.Start()
	defer func() { _ = sched.Shutdown() }()

	require.Eventually(t, func() bool {
		return !env.store.bounty(bounty.ID).IsActive
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, env.store.queueFor(bounty.ID))
}
