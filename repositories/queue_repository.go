package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/bounty-system/models"
	"github.com/lib/pq"
)

var (
	ErrAlreadyQueued      = errors.New("user already holds a queue slot")
	ErrQueueBountyInvalid = errors.New("queue entry references a missing bounty")
	ErrQueueUserInvalid   = errors.New("queue entry references a missing user")
	ErrQueueBountyClosed  = errors.New("bounty is not open for enrollment")
	ErrAlreadyTeamed      = errors.New("user is already on a team for this bounty")
)

// QueueRepository is the queue half of the participant registry.
// At most one row per user is enforced by the bounty_queue_user_id_key constraint.
type QueueRepository interface {
	// Enqueue inserts only while the bounty is active with deadline after now and
	// the user has no team for it.
	Enqueue(ctx context.Context, bountyID, userID int, now time.Time) (*models.QueueEntry, error)
	Count(ctx context.Context, exec SQLExecutor, bountyID int) (int, error)
	ListMembers(ctx context.Context, exec SQLExecutor, bountyID int) ([]int, error)
	ListByBounty(ctx context.Context, bountyID int) ([]*models.QueueEntry, error)
	RemoveMembers(ctx context.Context, exec SQLExecutor, bountyID int, userIDs []int) (int64, error)
	DeleteByBounty(ctx context.Context, exec SQLExecutor, bountyID int) (int64, error)
}

type postgresQueueRepository struct {
	db *sql.DB
}

func NewPostgresQueueRepository(db *sql.DB) QueueRepository {
	return &postgresQueueRepository{db: db}
}

func (r *postgresQueueRepository) Enqueue(ctx context.Context, bountyID, userID int, now time.Time) (*models.QueueEntry, error) {
	// FOR SHARE ждёт транзакцию, деактивирующую баунти, и перечитывает строку после её коммита.
	query := `
		INSERT INTO bounty_queue (bounty_id, user_id)
		SELECT b.id, $2
		FROM bounties b
		WHERE b.id = $1
		  AND b.is_active
		  AND b.deadline > $3
		  AND NOT EXISTS (
			SELECT 1 FROM team_members tm WHERE tm.bounty_id = b.id AND tm.user_id = $2
		  )
		FOR SHARE OF b
		RETURNING id, bounty_id, user_id, joined_at`

	e := &models.QueueEntry{}
	err := r.db.QueryRowContext(ctx, query, bountyID, userID, now).Scan(&e.ID, &e.BountyID, &e.UserID, &e.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.rejectReason(ctx, bountyID, userID)
	}
	if err != nil {
		return nil, mapQueueError(err)
	}
	return e, nil
}

// rejectReason объясняет, почему условная вставка не добавила строку.
func (r *postgresQueueRepository) rejectReason(ctx context.Context, bountyID, userID int) error {
	query := `
		SELECT
			EXISTS (SELECT 1 FROM bounties WHERE id = $1),
			EXISTS (SELECT 1 FROM team_members WHERE bounty_id = $1 AND user_id = $2)`
	var bountyExists, teamed bool
	if err := r.db.QueryRowContext(ctx, query, bountyID, userID).Scan(&bountyExists, &teamed); err != nil {
		return fmt.Errorf("failed to check enqueue rejection: %w", err)
	}
	switch {
	case !bountyExists:
		return ErrQueueBountyInvalid
	case teamed:
		return ErrAlreadyTeamed
	default:
		return ErrQueueBountyClosed
	}
}

func mapQueueError(err error) error {
	if code, constraint, ok := constraintViolation(err); ok {
		switch code {
		case pqUniqueViolation:
			if constraint == "bounty_queue_user_id_key" {
				return ErrAlreadyQueued
			}
		case pqForeignKeyViolation:
			switch constraint {
			case "bounty_queue_bounty_id_fkey":
				return ErrQueueBountyInvalid
			case "bounty_queue_user_id_fkey":
				return ErrQueueUserInvalid
			}
		}
	}
	return fmt.Errorf("failed to enqueue user: %w", err)
}

func (r *postgresQueueRepository) Count(ctx context.Context, exec SQLExecutor, bountyID int) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM bounty_queue WHERE bounty_id = $1`
	if err := getExecutor(r.db, exec).QueryRowContext(ctx, query, bountyID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue for bounty %d: %w", bountyID, err)
	}
	return n, nil
}

func (r *postgresQueueRepository) ListMembers(ctx context.Context, exec SQLExecutor, bountyID int) ([]int, error) {
	query := `SELECT user_id FROM bounty_queue WHERE bounty_id = $1 ORDER BY joined_at ASC, id ASC`
	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query, bountyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue members for bounty %d: %w", bountyID, err)
	}
	defer rows.Close()

	members := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan queue member: %w", err)
		}
		members = append(members, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue rows: %w", err)
	}
	return members, nil
}

func (r *postgresQueueRepository) ListByBounty(ctx context.Context, bountyID int) ([]*models.QueueEntry, error) {
	query := `
		SELECT id, bounty_id, user_id, joined_at
		FROM bounty_queue
		WHERE bounty_id = $1
		ORDER BY joined_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, bountyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue for bounty %d: %w", bountyID, err)
	}
	defer rows.Close()

	entries := make([]*models.QueueEntry, 0)
	for rows.Next() {
		var e models.QueueEntry
		if err := rows.Scan(&e.ID, &e.BountyID, &e.UserID, &e.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue rows: %w", err)
	}
	return entries, nil
}

// RemoveMembers deletes the given users from the bounty queue. Absent ids are
// ignored; the caller compares the returned count to detect a stale snapshot.
func (r *postgresQueueRepository) RemoveMembers(ctx context.Context, exec SQLExecutor, bountyID int, userIDs []int) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	query := `DELETE FROM bounty_queue WHERE bounty_id = $1 AND user_id = ANY($2)`
	result, err := getExecutor(r.db, exec).ExecContext(ctx, query, bountyID, pq.Array(toInt64s(userIDs)))
	if err != nil {
		return 0, fmt.Errorf("failed to remove queue members for bounty %d: %w", bountyID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return n, nil
}

func (r *postgresQueueRepository) DeleteByBounty(ctx context.Context, exec SQLExecutor, bountyID int) (int64, error) {
	query := `DELETE FROM bounty_queue WHERE bounty_id = $1`
	result, err := getExecutor(r.db, exec).ExecContext(ctx, query, bountyID)
	if err != nil {
		return 0, fmt.Errorf("failed to purge queue for bounty %d: %w", bountyID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return n, nil
}
