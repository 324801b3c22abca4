package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/bounty-system/models"
	"github.com/Dosada05/bounty-system/repositories"
)

var errStorageFault = errors.New("storage fault")

// memStore is an in-memory stand-in for Postgres. It enforces the same
// uniqueness rules as the schema: one queue row per user and one team
// membership per (bounty, user).
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextBountyID int
	nextQueueID  int64
	nextNotifID  int64

	bounties      map[int]*models.Bounty
	queue         []models.QueueEntry
	teams         []*models.Team
	teamMembers   map[[2]int]bool
	users         map[int]*models.User
	cooldowns     map[int]*models.CooldownRecord
	completed     []*models.CompletedBounty
	notifications []*models.Notification

	teamCreates      int
	failTeamCreateAt int // 1-based; 0 disables
	failNotify       bool
	now              func() time.Time
}

func newMemStore() *memStore {
	return &memStore{
		bounties:    make(map[int]*models.Bounty),
		teamMembers: make(map[[2]int]bool),
		users:       make(map[int]*models.User),
		cooldowns:   make(map[int]*models.CooldownRecord),
		now:         time.Now,
	}
}

type memSnapshot struct {
	bounties    map[int]models.Bounty
	queue       []models.QueueEntry
	teams       []*models.Team
	teamMembers map[[2]int]bool
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := memSnapshot{
		bounties:    make(map[int]models.Bounty, len(m.bounties)),
		queue:       append([]models.QueueEntry(nil), m.queue...),
		teams:       append([]*models.Team(nil), m.teams...),
		teamMembers: make(map[[2]int]bool, len(m.teamMembers)),
	}
	for id, b := range m.bounties {
		s.bounties[id] = *b
	}
	for k, v := range m.teamMembers {
		s.teamMembers[k] = v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, b := range s.bounties {
		b := b
		m.bounties[id] = &b
	}
	m.queue = s.queue
	m.teams = s.teams
	m.teamMembers = s.teamMembers
}

// WithinTx serialises transactions and restores the previous state on error.
func (m *memStore) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	snap := m.snapshot()
	if err := fn(nil); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// --- fixtures ---

func (m *memStore) addUser(id int, collegeID *int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = &models.User{ID: id, Name: "user", CollegeID: collegeID}
}

func (m *memStore) addBounty(b models.Bounty) *models.Bounty {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextBountyID++
	b.ID = m.nextBountyID
	m.bounties[b.ID] = &b
	out := b
	return &out
}

func (m *memStore) bounty(id int) models.Bounty {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.bounties[id]
}

func (m *memStore) queueFor(bountyID int) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, 0)
	for _, e := range m.queue {
		if e.BountyID == bountyID {
			out = append(out, e.UserID)
		}
	}
	sort.Ints(out)
	return out
}

func (m *memStore) teamsFor(bountyID int) []*models.Team {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Team, 0)
	for _, t := range m.teams {
		if t.BountyID == bountyID {
			out = append(out, t)
		}
	}
	return out
}

func (m *memStore) setCompletedAt(userID int, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cooldowns[userID] = &models.CooldownRecord{UserID: userID, LastCompletedAt: &at}
}

// --- BountyRepository ---

type memBountyRepo struct{ m *memStore }

func (r memBountyRepo) Create(ctx context.Context, b *models.Bounty) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.nextBountyID++
	b.ID = r.m.nextBountyID
	b.CreatedAt = r.m.now()
	cp := *b
	r.m.bounties[b.ID] = &cp
	return nil
}

func (r memBountyRepo) GetByID(ctx context.Context, id int) (*models.Bounty, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bounties[id]
	if !ok {
		return nil, repositories.ErrBountyNotFound
	}
	cp := *b
	return &cp, nil
}

func (r memBountyRepo) ListActiveByCollege(ctx context.Context, collegeID int) ([]*models.Bounty, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]*models.Bounty, 0)
	for _, b := range r.m.bounties {
		if b.IsActive && b.EligibleCollegeID != nil && *b.EligibleCollegeID == collegeID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memBountyRepo) Delete(ctx context.Context, id int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.bounties[id]; !ok {
		return repositories.ErrBountyNotFound
	}
	for _, t := range r.m.teams {
		if t.BountyID == id {
			return repositories.ErrBountyInUse
		}
	}
	delete(r.m.bounties, id)
	return nil
}

func (r memBountyRepo) LockForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Bounty, error) {
	return r.GetByID(ctx, id)
}

func (r memBountyRepo) IncrementTeamAssigned(ctx context.Context, exec repositories.SQLExecutor, id int, delta int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bounties[id]
	if !ok {
		return repositories.ErrBountyNotFound
	}
	b.TeamAssignedCount += delta
	return nil
}

func (r memBountyRepo) ListExpiredActive(ctx context.Context, exec repositories.SQLExecutor, now time.Time) ([]*models.Bounty, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]*models.Bounty, 0)
	for _, b := range r.m.bounties {
		if b.IsActive && b.Deadline.Before(now) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memBountyRepo) Deactivate(ctx context.Context, exec repositories.SQLExecutor, id int) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bounties[id]
	if !ok || !b.IsActive {
		return false, nil
	}
	b.IsActive = false
	return true, nil
}

// --- QueueRepository ---

type memQueueRepo struct{ m *memStore }

func (r memQueueRepo) Enqueue(ctx context.Context, bountyID, userID int, now time.Time) (*models.QueueEntry, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, e := range r.m.queue {
		if e.UserID == userID {
			return nil, repositories.ErrAlreadyQueued
		}
	}
	b, ok := r.m.bounties[bountyID]
	if !ok {
		return nil, repositories.ErrQueueBountyInvalid
	}
	if r.m.teamMembers[[2]int{bountyID, userID}] {
		return nil, repositories.ErrAlreadyTeamed
	}
	if !b.IsActive || !b.Deadline.After(now) {
		return nil, repositories.ErrQueueBountyClosed
	}
	r.m.nextQueueID++
	e := models.QueueEntry{ID: r.m.nextQueueID, BountyID: bountyID, UserID: userID, JoinedAt: r.m.now()}
	r.m.queue = append(r.m.queue, e)
	return &e, nil
}

func (r memQueueRepo) Count(ctx context.Context, exec repositories.SQLExecutor, bountyID int) (int, error) {
	return len(r.m.queueFor(bountyID)), nil
}

func (r memQueueRepo) ListMembers(ctx context.Context, exec repositories.SQLExecutor, bountyID int) ([]int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]int, 0)
	for _, e := range r.m.queue {
		if e.BountyID == bountyID {
			out = append(out, e.UserID)
		}
	}
	return out, nil
}

func (r memQueueRepo) ListByBounty(ctx context.Context, bountyID int) ([]*models.QueueEntry, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]*models.QueueEntry, 0)
	for _, e := range r.m.queue {
		if e.BountyID == bountyID {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r memQueueRepo) RemoveMembers(ctx context.Context, exec repositories.SQLExecutor, bountyID int, userIDs []int) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	remove := make(map[int]bool, len(userIDs))
	for _, id := range userIDs {
		remove[id] = true
	}
	var n int64
	kept := r.m.queue[:0:0]
	for _, e := range r.m.queue {
		if e.BountyID == bountyID && remove[e.UserID] {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.m.queue = kept
	return n, nil
}

func (r memQueueRepo) DeleteByBounty(ctx context.Context, exec repositories.SQLExecutor, bountyID int) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	kept := r.m.queue[:0:0]
	for _, e := range r.m.queue {
		if e.BountyID == bountyID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.m.queue = kept
	return n, nil
}

// --- TeamRepository ---

type memTeamRepo struct{ m *memStore }

func (r memTeamRepo) Create(ctx context.Context, exec repositories.SQLExecutor, team *models.Team) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.teamCreates++
	if r.m.failTeamCreateAt > 0 && r.m.teamCreates == r.m.failTeamCreateAt {
		return errStorageFault
	}
	for _, u := range team.Members {
		if r.m.teamMembers[[2]int{team.BountyID, u}] {
			return repositories.ErrTeamMemberConflict
		}
	}
	for _, u := range team.Members {
		r.m.teamMembers[[2]int{team.BountyID, u}] = true
	}
	team.FormedAt = r.m.now()
	cp := *team
	cp.Members = append([]int(nil), team.Members...)
	r.m.teams = append(r.m.teams, &cp)
	return nil
}

func (r memTeamRepo) ListByBounty(ctx context.Context, bountyID int) ([]*models.Team, error) {
	return r.m.teamsFor(bountyID), nil
}

func (r memTeamRepo) ListByUser(ctx context.Context, userID int) ([]*models.Team, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]*models.Team, 0)
	for _, t := range r.m.teams {
		for _, u := range t.Members {
			if u == userID {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

func (r memTeamRepo) CountMembers(ctx context.Context, exec repositories.SQLExecutor, bountyID int) (int, error) {
	n := 0
	for _, t := range r.m.teamsFor(bountyID) {
		n += len(t.Members)
	}
	return n, nil
}

// --- UserRepository ---

type memUserRepo struct{ m *memStore }

func (r memUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// --- CooldownRepository ---

type memCooldownRepo struct{ m *memStore }

func (r memCooldownRepo) GetOrCreate(ctx context.Context, userID int) (*models.CooldownRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[userID]; !ok {
		return nil, repositories.ErrCooldownUserInvalid
	}
	rec, ok := r.m.cooldowns[userID]
	if !ok {
		rec = &models.CooldownRecord{UserID: userID}
		r.m.cooldowns[userID] = rec
	}
	cp := *rec
	return &cp, nil
}

func (r memCooldownRepo) RecordCompletion(ctx context.Context, exec repositories.SQLExecutor, userID, bountyID int, completedAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[userID]; !ok {
		return repositories.ErrCooldownUserInvalid
	}
	r.m.completed = append(r.m.completed, &models.CompletedBounty{UserID: userID, BountyID: bountyID, CompletedAt: completedAt})
	rec, ok := r.m.cooldowns[userID]
	if !ok {
		rec = &models.CooldownRecord{UserID: userID}
		r.m.cooldowns[userID] = rec
	}
	if rec.LastCompletedAt == nil || rec.LastCompletedAt.Before(completedAt) {
		id, at := bountyID, completedAt
		rec.LastCompletedBounty, rec.LastCompletedAt = &id, &at
	}
	return nil
}

func (r memCooldownRepo) ListCompleted(ctx context.Context, userID int) ([]*models.CompletedBounty, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]*models.CompletedBounty, 0)
	for _, c := range r.m.completed {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

// --- NotificationRepository ---

type memNotificationRepo struct{ m *memStore }

func (r memNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failNotify {
		return errStorageFault
	}
	r.m.nextNotifID++
	n.ID = r.m.nextNotifID
	n.CreatedAt = r.m.now()
	cp := *n
	r.m.notifications = append(r.m.notifications, &cp)
	return nil
}

func (r memNotificationRepo) ListByUser(ctx context.Context, userID int, limit int) ([]*models.Notification, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]*models.Notification, 0)
	for _, n := range r.m.notifications {
		if n.UserID == userID && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r memNotificationRepo) MarkRead(ctx context.Context, id int64, userID int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, n := range r.m.notifications {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return repositories.ErrNotificationNotFound
}

// --- publisher recorder ---

type countEvent struct {
	BountyID int
	Count    int
}

type roomEvent struct {
	Room    string
	Type    string
	Payload interface{}
}

type recordingPublisher struct {
	mu          sync.Mutex
	counts      []countEvent
	assignments map[int][]models.TeamAssignmentPayload
	rooms       []roomEvent
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{assignments: make(map[int][]models.TeamAssignmentPayload)}
}

func (p *recordingPublisher) PublishParticipantCount(bountyID, count int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts = append(p.counts, countEvent{BountyID: bountyID, Count: count})
}

func (p *recordingPublisher) PublishTeamAssignment(userID int, payload models.TeamAssignmentPayload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.assignments[userID] = append(p.assignments[userID], payload)
}

func (p *recordingPublisher) PublishToRoom(room, eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rooms = append(p.rooms, roomEvent{Room: room, Type: eventType, Payload: payload})
}

func (p *recordingPublisher) lastCount() countEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.counts) == 0 {
		return countEvent{}
	}
	return p.counts[len(p.counts)-1]
}

func (p *recordingPublisher) assignmentsFor(userID int) []models.TeamAssignmentPayload {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.TeamAssignmentPayload(nil), p.assignments[userID]...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
