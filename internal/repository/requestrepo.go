package repository

import (
	"context"
	"time"

	"github.com/and161185/beatbattle/internal/model"
	"github.com/gofrs/uuid/v5"
)

// RequestRepository owns battle requests (challenges).
type RequestRepository interface {
	// Create inserts a pending request.
	Create(ctx context.Context, r *model.BattleRequest) error

	// Accept consumes a pending request and inserts the resulting matched battle atomically.
	Accept(ctx context.Context, requestID uuid.UUID, right model.Submission, terms model.BattleTerms, now time.Time) (*model.Battle, error)

	// Decline moves a pending request to declined.
	Decline(ctx context.Context, requestID, declinerID uuid.UUID, now time.Time) error

	// SweepExpired marks pending requests past their expiry as expired.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)

	// Get returns a single request.
	Get(ctx context.Context, requestID uuid.UUID) (*model.BattleRequest, error)

	// ListPending lists live pending requests for the user in the given direction.
	ListPending(ctx context.Context, userID uuid.UUID, dir model.Direction, now time.Time, page model.Page) ([]model.BattleRequest, error)
}
