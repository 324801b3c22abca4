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
	ErrBountyNotFound       = errors.New("bounty not found")
	ErrBountyInUse          = errors.New("bounty is in use (teams exist)")
	ErrBountyInvalidCreator = errors.New("invalid bounty creator reference")
	ErrBountyInvalidCollege = errors.New("invalid eligible college reference")
)

type BountyRepository interface {
	Create(ctx context.Context, bounty *models.Bounty) error
	GetByID(ctx context.Context, id int) (*models.Bounty, error)
	ListActiveByCollege(ctx context.Context, collegeID int) ([]*models.Bounty, error)
	Delete(ctx context.Context, id int) error
	LockForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Bounty, error)
	IncrementTeamAssigned(ctx context.Context, exec SQLExecutor, id int, delta int) error
	ListExpiredActive(ctx context.Context, exec SQLExecutor, now time.Time) ([]*models.Bounty, error)
	Deactivate(ctx context.Context, exec SQLExecutor, id int) (bool, error)
}

type postgresBountyRepository struct {
	db *sql.DB
}

func NewPostgresBountyRepository(db *sql.DB) BountyRepository {
	return &postgresBountyRepository{db: db}
}

const selectBountySQL = `
	SELECT
		id, title, description, tags, amount, deadline, difficulty, created_by,
		eligible_college_id, is_active, team_size, team_assigned_count, created_at
	FROM bounties`

func scanBounty(rowScanner interface {
	Scan(dest ...interface{}) error
}, b *models.Bounty) error {
	return rowScanner.Scan(
		&b.ID, &b.Title, &b.Description, pq.Array(&b.Tags), &b.Amount, &b.Deadline, &b.Difficulty, &b.CreatedBy,
		&b.EligibleCollegeID, &b.IsActive, &b.TeamSize, &b.TeamAssignedCount, &b.CreatedAt,
	)
}

func (r *postgresBountyRepository) Create(ctx context.Context, b *models.Bounty) error {
	query := `
		INSERT INTO bounties (
			title, description, tags, amount, deadline, difficulty, created_by,
			eligible_college_id, is_active, team_size
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, team_assigned_count, created_at`

	err := r.db.QueryRowContext(ctx, query,
		b.Title, b.Description, pq.Array(b.Tags), b.Amount, b.Deadline, b.Difficulty, b.CreatedBy,
		b.EligibleCollegeID, b.IsActive, b.TeamSize,
	).Scan(&b.ID, &b.TeamAssignedCount, &b.CreatedAt)

	return r.handleBountyError(err)
}

func (r *postgresBountyRepository) GetByID(ctx context.Context, id int) (*models.Bounty, error) {
	return r.getOne(ctx, r.db, selectBountySQL+` WHERE id = $1`, id)
}

// LockForUpdate reads the bounty row with SELECT ... FOR UPDATE. It must run
// inside a transaction; concurrent formation chunks for the same bounty queue
// behind the row lock.
func (r *postgresBountyRepository) LockForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Bounty, error) {
	if exec == nil {
		return nil, fmt.Errorf("lock bounty %d: transaction is required", id)
	}
	return r.getOne(ctx, exec, selectBountySQL+` WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresBountyRepository) getOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.Bounty, error) {
	b := &models.Bounty{}
	if err := scanBounty(exec.QueryRowContext(ctx, query, args...), b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBountyNotFound
		}
		return nil, fmt.Errorf("failed to get bounty: %w", err)
	}
	return b, nil
}

func (r *postgresBountyRepository) ListActiveByCollege(ctx context.Context, collegeID int) ([]*models.Bounty, error) {
	query := selectBountySQL + ` WHERE eligible_college_id = $1 AND is_active ORDER BY created_at DESC`
	return r.list(ctx, r.db, query, collegeID)
}

func (r *postgresBountyRepository) ListExpiredActive(ctx context.Context, exec SQLExecutor, now time.Time) ([]*models.Bounty, error) {
	query := selectBountySQL + ` WHERE is_active AND deadline < $1 ORDER BY deadline ASC`
	return r.list(ctx, getExecutor(r.db, exec), query, now)
}

func (r *postgresBountyRepository) list(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Bounty, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bounties: %w", err)
	}
	defer rows.Close()

	bounties := make([]*models.Bounty, 0)
	for rows.Next() {
		var b models.Bounty
		if err := scanBounty(rows, &b); err != nil {
			return nil, fmt.Errorf("failed to scan bounty row: %w", err)
		}
		bounties = append(bounties, &b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bounty rows: %w", err)
	}
	return bounties, nil
}

func (r *postgresBountyRepository) IncrementTeamAssigned(ctx context.Context, exec SQLExecutor, id int, delta int) error {
	query := `UPDATE bounties SET team_assigned_count = team_assigned_count + $1 WHERE id = $2`
	result, err := getExecutor(r.db, exec).ExecContext(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("failed to update team assigned count for bounty %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrBountyNotFound)
}

// Deactivate flips is_active only if it is still set. false means another
// sweep got there first.
func (r *postgresBountyRepository) Deactivate(ctx context.Context, exec SQLExecutor, id int) (bool, error) {
	query := `UPDATE bounties SET is_active = FALSE WHERE id = $1 AND is_active`
	result, err := getExecutor(r.db, exec).ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate bounty %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return n > 0, nil
}

func (r *postgresBountyRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bounties WHERE id = $1`, id)
	if err != nil {
		return r.handleBountyError(err)
	}
	return checkAffectedRows(result, ErrBountyNotFound)
}

func (r *postgresBountyRepository) handleBountyError(err error) error {
	if err == nil {
		return nil
	}
	if code, constraint, ok := constraintViolation(err); ok && code == pqForeignKeyViolation {
		switch constraint {
		case "bounties_created_by_fkey":
			return ErrBountyInvalidCreator
		case "bounties_eligible_college_id_fkey":
			return ErrBountyInvalidCollege
		default:
			// teams still reference the bounty
			return ErrBountyInUse
		}
	}
	return err
}
