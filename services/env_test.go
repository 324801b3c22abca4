package services

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/bounty-system/models"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store      *memStore
	clock      *clockwork.FakeClock
	publisher  *recordingPublisher
	locker     *BountyLocker
	cooldown   *CooldownService
	notifier   *NotificationService
	engine     *FormationEngine
	enrollment EnrollmentService
	bounties   *BountyService
	teamSize   int
}

func newTestEnv(t *testing.T, teamSize int) *testEnv {
	t.Helper()
	store := newMemStore()
	clock := clockwork.NewFakeClockAt(t0)
	store.now = clock.Now
	logger := discardLogger()
	pub := newRecordingPublisher()
	locker := NewBountyLocker()

	bountyRepo := memBountyRepo{store}
	queueRepo := memQueueRepo{store}
	teamRepo := memTeamRepo{store}
	userRepo := memUserRepo{store}

	cooldown := NewCooldownService(memCooldownRepo{store}, store, clock, DefaultCooldownWindow)
	notifier := NewNotificationService(memNotificationRepo{store}, logger)
	engine := NewFormationEngine(store, bountyRepo, queueRepo, teamRepo, locker, pub, notifier, logger)
	// без перемешивания команды собираются в порядке очереди
	engine.shuffle = func([]int) {}
	engine.pickName = func() string { return TeamNames[0] }

	return &testEnv{
		store:      store,
		clock:      clock,
		publisher:  pub,
		locker:     locker,
		cooldown:   cooldown,
		notifier:   notifier,
		engine:     engine,
		enrollment: NewEnrollmentService(bountyRepo, queueRepo, teamRepo, userRepo, cooldown, engine, pub, clock, logger),
		bounties:   NewBountyService(store, bountyRepo, queueRepo, teamRepo, userRepo, cooldown, locker, pub, clock, teamSize, logger),
		teamSize:   teamSize,
	}
}

func intPtr(v int) *int { return &v }

// activeBounty stores an active bounty for college 1 owned by user 1000.
func (e *testEnv) activeBounty(title string) *models.Bounty {
	if _, ok := e.store.users[1000]; !ok {
		e.store.addUser(1000, intPtr(1))
	}
	return e.store.addBounty(models.Bounty{
		Title:             title,
		Description:       "desc",
		Tags:              []string{"go"},
		Amount:            500,
		Deadline:          t0.Add(72 * time.Hour),
		Difficulty:        models.DifficultyBasic,
		CreatedBy:         1000,
		EligibleCollegeID: intPtr(1),
		IsActive:          true,
		TeamSize:          e.teamSize,
	})
}

// students adds users from..to (inclusive) in college 1.
func (e *testEnv) students(from, to int) []int {
	ids := make([]int, 0, to-from+1)
	for id := from; id <= to; id++ {
		e.store.addUser(id, intPtr(1))
		ids = append(ids, id)
	}
	return ids
}

func (e *testEnv) enqueueDirect(t *testing.T, bountyID int, userIDs []int) {
	t.Helper()
	q := memQueueRepo{e.store}
	for _, id := range userIDs {
		_, err := q.Enqueue(context.Background(), bountyID, id, e.clock.Now())
		require.NoError(t, err)
	}
}
