package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/beatbattle/internal/errs"
	"github.com/and161185/beatbattle/internal/model"
	"github.com/and161185/beatbattle/internal/repository"
)

// VoteService records community votes.
type VoteService interface {
	// Cast records one vote per user per battle.
	Cast(ctx context.Context, battleID, userID uuid.UUID, side model.Side) error
	// Mine returns the caller's vote on a battle.
	Mine(ctx context.Context, battleID, userID uuid.UUID) (*model.Vote, error)
}

type VoteServiceImpl struct {
	votes repository.VoteRepository
	now   func() time.Time
}

// NewVoteService constructs VoteService.
func NewVoteService(votes repository.VoteRepository) *VoteServiceImpl {
	return &VoteServiceImpl{votes: votes, now: nowUTC}
}

func (s *VoteServiceImpl) Cast(ctx context.Context, battleID, userID uuid.UUID, side model.Side) error {
	if battleID == uuid.Nil || userID == uuid.Nil {
		return fmt.Errorf("%w: empty battle/user id", errs.ErrValidation)
	}
	if !side.Valid() {
		return fmt.Errorf("%w: side must be left or right", errs.ErrValidation)
	}
	now := s.now()
	return s.votes.Cast(ctx, model.Vote{BattleID: battleID, UserID: userID, Side: side, CreatedAt: now}, now)
}

func (s *VoteServiceImpl) Mine(ctx context.Context, battleID, userID uuid.UUID) (*model.Vote, error) {
	if battleID == uuid.Nil || userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty battle/user id", errs.ErrValidation)
	}
	return s.votes.Get(ctx, battleID, userID)
}
