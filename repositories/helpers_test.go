package repositories

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapQueueError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "unique user slot",
			err:  &pq.Error{Code: pqUniqueViolation, Constraint: "bounty_queue_user_id_key"},
			want: ErrAlreadyQueued,
		},
		{
			name: "wrapped unique user slot",
			err:  fmt.Errorf("insert: %w", &pq.Error{Code: pqUniqueViolation, Constraint: "bounty_queue_user_id_key"}),
			want: ErrAlreadyQueued,
		},
		{
			name: "missing bounty",
			err:  &pq.Error{Code: pqForeignKeyViolation, Constraint: "bounty_queue_bounty_id_fkey"},
			want: ErrQueueBountyInvalid,
		},
		{
			name: "missing user",
			err:  &pq.Error{Code: pqForeignKeyViolation, Constraint: "bounty_queue_user_id_fkey"},
			want: ErrQueueUserInvalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapQueueError(tt.err), tt.want)
		})
	}

	t.Run("other errors are wrapped", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := mapQueueError(cause)
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, ErrAlreadyQueued)
	})
}

func TestTeamErrorMapping(t *testing.T) {
	r := &postgresTeamRepository{}
	assert.ErrorIs(t, r.handleTeamError(&pq.Error{Code: pqUniqueViolation, Constraint: "team_members_bounty_id_user_id_key"}), ErrTeamMemberConflict)
	assert.ErrorIs(t, r.handleTeamError(&pq.Error{Code: pqForeignKeyViolation, Constraint: "teams_bounty_id_fkey"}), ErrTeamBountyInvalid)
}

func TestBountyErrorMapping(t *testing.T) {
	r := &postgresBountyRepository{}
	assert.NoError(t, r.handleBountyError(nil))
	assert.ErrorIs(t, r.handleBountyError(&pq.Error{Code: pqForeignKeyViolation, Constraint: "teams_bounty_id_fkey"}), ErrBountyInUse)
	assert.ErrorIs(t, r.handleBountyError(&pq.Error{Code: pqForeignKeyViolation, Constraint: "bounties_created_by_fkey"}), ErrBountyInvalidCreator)
}

func TestIntConversions(t *testing.T) {
	assert.Equal(t, []int64{1, 2, 3}, toInt64s([]int{1, 2, 3}))
	assert.Equal(t, []int{4, 5}, toInts(pq.Int64Array{4, 5}))
}
