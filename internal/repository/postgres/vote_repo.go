package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/and161185/beatbattle/internal/errs"
	"github.com/and161185/beatbattle/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// VoteRepo implements VoteRepository using PostgreSQL.
type VoteRepo struct{ db *DB }

// NewVoteRepo constructs a vote repository.
func NewVoteRepo(db *DB) *VoteRepo { return &VoteRepo{db: db} }

const (
	voteLeftSQL = `
UPDATE battles SET left_votes = left_votes + 1
WHERE id = $1 AND status = 'matched' AND ends_at > $2`

	voteRightSQL = `
UPDATE battles SET right_votes = right_votes + 1
WHERE id = $1 AND status = 'matched' AND ends_at > $2`

	insertVoteSQL = `
INSERT INTO votes (battle_id, user_id, side, created_at)
VALUES ($1, $2, $3, $4)`
)

// Cast bumps the side counter and records the vote; the (battle_id, user_id)
// primary key rejects a second vote and rolls the counter back with it.
func (r *VoteRepo) Cast(ctx context.Context, v model.Vote, now time.Time) error {
	var bump string
	switch v.Side {
	case model.SideLeft:
		bump = voteLeftSQL
	case model.SideRight:
		bump = voteRightSQL
	default:
		return fmt.Errorf("%w: side must be left or right", errs.ErrValidation)
	}

	return r.db.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, bump, v.BattleID, now)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return classifyVote(ctx, tx, v.BattleID)
		}
		if _, err := tx.Exec(ctx, insertVoteSQL, v.BattleID, v.UserID, string(v.Side), now); err != nil {
			if isUniqueViolation(err) {
				return errs.ErrAlreadyVoted
			}
			return err
		}
		return nil
	})
}

func classifyVote(ctx context.Context, q querier, battleID uuid.UUID) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM battles WHERE id=$1)`, battleID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return errs.ErrNotFound
	}
	return errs.ErrNotOpenForVoting
}

// Get returns the user's vote on a battle.
func (r *VoteRepo) Get(ctx context.Context, battleID, userID uuid.UUID) (*model.Vote, error) {
	const q = `
SELECT battle_id, user_id, side, created_at
FROM votes WHERE battle_id=$1 AND user_id=$2`
	var (
		v    model.Vote
		side string
	)
	if err := r.db.Pool.QueryRow(ctx, q, battleID, userID).Scan(&v.BattleID, &v.UserID, &side, &v.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	v.Side = model.Side(side)
	return &v, nil
}
