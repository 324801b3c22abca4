package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/bounty-system/models"
	"github.com/lib/pq"
)

var (
	ErrTeamMemberConflict = errors.New("user is already a member of a team for this bounty")
	ErrTeamBountyInvalid  = errors.New("team references a missing bounty")
	ErrTeamEmpty          = errors.New("team must have members")
)

// TeamRepository is the participations half of the participant registry.
type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	ListByBounty(ctx context.Context, bountyID int) ([]*models.Team, error)
	ListByUser(ctx context.Context, userID int) ([]*models.Team, error)
	CountMembers(ctx context.Context, exec SQLExecutor, bountyID int) (int, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

// Create inserts the team row and one team_members row per member. The caller
// must pass a transaction so that the team is never persisted partially.
func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	if len(team.Members) == 0 {
		return ErrTeamEmpty
	}
	executor := getExecutor(r.db, exec)

	query := `
		INSERT INTO teams (id, bounty_id, name)
		VALUES ($1, $2, $3)
		RETURNING formed_at`
	if err := executor.QueryRowContext(ctx, query, team.ID, team.BountyID, team.Name).Scan(&team.FormedAt); err != nil {
		return r.handleTeamError(err)
	}

	membersQuery := `
		INSERT INTO team_members (team_id, bounty_id, user_id)
		SELECT $1, $2, unnest($3::int[])`
	if _, err := executor.ExecContext(ctx, membersQuery, team.ID, team.BountyID, pq.Array(toInt64s(team.Members))); err != nil {
		return r.handleTeamError(err)
	}
	return nil
}

func (r *postgresTeamRepository) handleTeamError(err error) error {
	if code, constraint, ok := constraintViolation(err); ok {
		switch code {
		case pqUniqueViolation:
			if constraint == "team_members_bounty_id_user_id_key" {
				return ErrTeamMemberConflict
			}
		case pqForeignKeyViolation:
			if constraint == "teams_bounty_id_fkey" {
				return ErrTeamBountyInvalid
			}
		}
	}
	return fmt.Errorf("failed to create team: %w", err)
}

const selectTeamsSQL = `
	SELECT t.id, t.bounty_id, t.name, t.formed_at,
		COALESCE(array_agg(m.user_id ORDER BY m.user_id) FILTER (WHERE m.user_id IS NOT NULL), '{}')
	FROM teams t
	LEFT JOIN team_members m ON m.team_id = t.id`

func (r *postgresTeamRepository) ListByBounty(ctx context.Context, bountyID int) ([]*models.Team, error) {
	query := selectTeamsSQL + `
	WHERE t.bounty_id = $1
	GROUP BY t.id
	ORDER BY t.formed_at ASC`
	return r.list(ctx, query, bountyID)
}

func (r *postgresTeamRepository) ListByUser(ctx context.Context, userID int) ([]*models.Team, error) {
	query := selectTeamsSQL + `
	WHERE t.id IN (SELECT team_id FROM team_members WHERE user_id = $1)
	GROUP BY t.id
	ORDER BY t.formed_at DESC`
	return r.list(ctx, query, userID)
}

func (r *postgresTeamRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Team, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		var t models.Team
		var members pq.Int64Array
		if err := rows.Scan(&t.ID, &t.BountyID, &t.Name, &t.FormedAt, &members); err != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", err)
		}
		t.Members = toInts(members)
		teams = append(teams, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team rows: %w", err)
	}
	return teams, nil
}

// CountMembers sums member-set sizes across all teams of the bounty.
func (r *postgresTeamRepository) CountMembers(ctx context.Context, exec SQLExecutor, bountyID int) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM team_members WHERE bounty_id = $1`
	if err := getExecutor(r.db, exec).QueryRowContext(ctx, query, bountyID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count team members for bounty %d: %w", bountyID, err)
	}
	return n, nil
}
