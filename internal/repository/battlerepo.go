package repository

import (
	"context"
	"time"

	"github.com/and161185/beatbattle/internal/model"
	"github.com/gofrs/uuid/v5"
)

// BattleRepository owns battle rows and their state transitions.
type BattleRepository interface {
	// Create debits the creator's entry fee and inserts an open battle in one transaction.
	Create(ctx context.Context, b *model.Battle) error

	// Join claims the empty right side and debits the joiner's fee in one transaction.
	Join(ctx context.Context, battleID uuid.UUID, right model.Submission, fee int64, now time.Time) (*model.Battle, error)

	// Evaluate resolves a due battle and pays out; resolved reports whether this call did it.
	Evaluate(ctx context.Context, battleID uuid.UUID, now time.Time) (b *model.Battle, resolved bool, err error)

	// Get returns a single battle.
	Get(ctx context.Context, battleID uuid.UUID) (*model.Battle, error)

	// List returns battles matching the filter, newest first.
	List(ctx context.Context, f model.BattleFilter, page model.Page) ([]model.Battle, error)

	// ListDue returns ids of open/matched battles whose deadline is at or before now.
	ListDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// VoteRepository records votes and bumps side counters.
type VoteRepository interface {
	// Cast increments the side counter and stores the vote in one transaction.
	Cast(ctx context.Context, v model.Vote, now time.Time) error

	// Get returns the user's vote on a battle.
	Get(ctx context.Context, battleID, userID uuid.UUID) (*model.Vote, error)
}
