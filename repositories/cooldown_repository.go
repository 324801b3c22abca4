package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/bounty-system/models"
)

var ErrCooldownUserInvalid = errors.New("cooldown record references a missing user")

type CooldownRepository interface {
	// GetOrCreate returns the user's record, inserting an empty one on first use.
	GetOrCreate(ctx context.Context, userID int) (*models.CooldownRecord, error)
	RecordCompletion(ctx context.Context, exec SQLExecutor, userID, bountyID int, completedAt time.Time) error
	ListCompleted(ctx context.Context, userID int) ([]*models.CompletedBounty, error)
}

type postgresCooldownRepository struct {
	db *sql.DB
}

func NewPostgresCooldownRepository(db *sql.DB) CooldownRepository {
	return &postgresCooldownRepository{db: db}
}

func (r *postgresCooldownRepository) GetOrCreate(ctx context.Context, userID int) (*models.CooldownRecord, error) {
	insert := `INSERT INTO user_bounties (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, userID); err != nil {
		if code, _, ok := constraintViolation(err); ok && code == pqForeignKeyViolation {
			return nil, ErrCooldownUserInvalid
		}
		return nil, fmt.Errorf("failed to create cooldown record for user %d: %w", userID, err)
	}

	rec := &models.CooldownRecord{}
	query := `SELECT user_id, last_completed_bounty_id, last_completed_at FROM user_bounties WHERE user_id = $1`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&rec.UserID, &rec.LastCompletedBounty, &rec.LastCompletedAt); err != nil {
		return nil, fmt.Errorf("failed to read cooldown record for user %d: %w", userID, err)
	}
	return rec, nil
}

// RecordCompletion keeps the latest completion in user_bounties and appends to
// the history table. An older completedAt never moves the gate backwards.
func (r *postgresCooldownRepository) RecordCompletion(ctx context.Context, exec SQLExecutor, userID, bountyID int, completedAt time.Time) error {
	executor := getExecutor(r.db, exec)

	history := `
		INSERT INTO completed_bounties (user_id, bounty_id, completed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, bounty_id) DO UPDATE SET completed_at = EXCLUDED.completed_at`
	if _, err := executor.ExecContext(ctx, history, userID, bountyID, completedAt); err != nil {
		return fmt.Errorf("failed to record completed bounty: %w", err)
	}

	upsert := `
		INSERT INTO user_bounties (user_id, last_completed_bounty_id, last_completed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET last_completed_bounty_id = EXCLUDED.last_completed_bounty_id,
			last_completed_at = EXCLUDED.last_completed_at
		WHERE user_bounties.last_completed_at IS NULL
			OR user_bounties.last_completed_at < EXCLUDED.last_completed_at`
	if _, err := executor.ExecContext(ctx, upsert, userID, bountyID, completedAt); err != nil {
		if code, _, ok := constraintViolation(err); ok && code == pqForeignKeyViolation {
			return ErrCooldownUserInvalid
		}
		return fmt.Errorf("failed to update cooldown record: %w", err)
	}
	return nil
}

func (r *postgresCooldownRepository) ListCompleted(ctx context.Context, userID int) ([]*models.CompletedBounty, error) {
	query := `
		SELECT user_id, bounty_id, completed_at
		FROM completed_bounties
		WHERE user_id = $1
		ORDER BY completed_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed bounties: %w", err)
	}
	defer rows.Close()

	out := make([]*models.CompletedBounty, 0)
	for rows.Next() {
		var c models.CompletedBounty
		if err := rows.Scan(&c.UserID, &c.BountyID, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan completed bounty: %w", err)
		}
		out = append(out, &c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating completed bounty rows: %w", err)
	}
	return out, nil
}
