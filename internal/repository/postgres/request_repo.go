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

// RequestRepo implements RequestRepository using PostgreSQL.
type RequestRepo struct{ db *DB }

// NewRequestRepo constructs a battle request repository.
func NewRequestRepo(db *DB) *RequestRepo { return &RequestRepo{db: db} }

const requestSelect = `
SELECT r.id, r.challenger_id, r.challenged_id, r.status, r.battle_type, r.genre,
       r.display_name, r.track_name, r.media_ref, r.message,
       b.id, r.created_at, r.expires_at, r.responded_at
FROM battle_requests r
LEFT JOIN battles b ON b.request_id = r.id`

const (
	insertRequestSQL = `
INSERT INTO battle_requests (id, challenger_id, challenged_id, status, battle_type, genre,
  display_name, track_name, media_ref, message, created_at, expires_at)
VALUES ($1, $2, $3, 'pending', $4, $5, $6, $7, $8, $9, $10, $11)`

	acceptRequestSQL = `
UPDATE battle_requests
SET status = 'accepted', responded_at = $3
WHERE id = $1 AND status = 'pending' AND challenged_id = $2 AND expires_at > $3
RETURNING challenger_id, battle_type, genre, display_name, track_name, media_ref`

	insertMatchedBattleSQL = `
INSERT INTO battles (id, battle_type, genre, status, entry_fee, reward,
  left_owner_id, left_display_name, left_track_name, left_media_ref,
  right_owner_id, right_display_name, right_track_name, right_media_ref,
  request_id, ends_at, created_at, matched_at)
VALUES ($1, $2, $3, 'matched', $16, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
RETURNING` + battleColumns

	declineRequestSQL = `
UPDATE battle_requests
SET status = 'declined', responded_at = $3
WHERE id = $1 AND status = 'pending' AND challenged_id = $2`

	sweepRequestsSQL = `
UPDATE battle_requests
SET status = 'expired', responded_at = $1
WHERE status = 'pending' AND expires_at <= $1`

	classifyRequestSQL = `
SELECT challenged_id, status, expires_at FROM battle_requests WHERE id=$1`

	listIncomingSQL = requestSelect + `
WHERE r.challenged_id = $1 AND r.status = 'pending' AND r.expires_at > $2
ORDER BY r.created_at DESC, r.id DESC
LIMIT $3 OFFSET $4`

	listOutgoingSQL = requestSelect + `
WHERE r.challenger_id = $1 AND r.status = 'pending' AND r.expires_at > $2
ORDER BY r.created_at DESC, r.id DESC
LIMIT $3 OFFSET $4`
)

// Create inserts a pending request.
func (r *RequestRepo) Create(ctx context.Context, req *model.BattleRequest) error {
	_, err := r.db.Pool.Exec(ctx, insertRequestSQL,
		req.ID, req.ChallengerID, req.ChallengedID, string(req.BattleType), req.Genre,
		req.Track.DisplayName, req.Track.TrackName, req.Track.MediaRef, req.Message,
		req.CreatedAt, req.ExpiresAt,
	)
	return err
}

// Accept consumes the request, inserts the matched battle and debits the
// entry fee from both parties. Any failure rolls back the whole transaction
// and the request stays pending.
func (r *RequestRepo) Accept(
	ctx context.Context, requestID uuid.UUID, right model.Submission, terms model.BattleTerms, now time.Time,
) (*model.Battle, error) {
	var out *model.Battle
	err := r.db.withTx(ctx, func(tx pgx.Tx) error {
		var (
			left       model.Submission
			typ, genre string
		)
		err := tx.QueryRow(ctx, acceptRequestSQL, requestID, right.OwnerID, now).
			Scan(&left.OwnerID, &typ, &genre, &left.DisplayName, &left.TrackName, &left.MediaRef)
		if errors.Is(err, pgx.ErrNoRows) {
			return classifyRequest(ctx, tx, requestID, right.OwnerID, now, true)
		}
		if err != nil {
			return err
		}

		b, err := scanBattle(tx.QueryRow(ctx, insertMatchedBattleSQL,
			terms.BattleID, typ, genre, terms.Reward,
			left.OwnerID, left.DisplayName, left.TrackName, left.MediaRef,
			right.OwnerID, right.DisplayName, right.TrackName, right.MediaRef,
			requestID, terms.EndsAt, now, terms.EntryFee,
		))
		if err != nil {
			return err
		}
		if terms.EntryFee > 0 {
			if _, err := debit(ctx, tx, left.OwnerID, terms.EntryFee, model.ReasonBattleEntry, b.ID); err != nil {
				return fmt.Errorf("challenger stake: %w", err)
			}
			if _, err := debit(ctx, tx, right.OwnerID, terms.EntryFee, model.ReasonBattleEntry, b.ID); err != nil {
				return fmt.Errorf("accepter stake: %w", err)
			}
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Decline moves a pending request to declined.
func (r *RequestRepo) Decline(ctx context.Context, requestID, declinerID uuid.UUID, now time.Time) error {
	tag, err := r.db.Pool.Exec(ctx, declineRequestSQL, requestID, declinerID, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return classifyRequest(ctx, r.db.Pool, requestID, declinerID, now, false)
	}
	return nil
}

// classifyRequest explains why a conditional request update matched no row.
// Expiry only matters for accept: a stale pending request may still be declined.
func classifyRequest(
	ctx context.Context, q querier, requestID, userID uuid.UUID, now time.Time, checkExpiry bool,
) error {
	var (
		challenged uuid.UUID
		status     string
		expiresAt  time.Time
	)
	if err := q.QueryRow(ctx, classifyRequestSQL, requestID).Scan(&challenged, &status, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}
	switch {
	case challenged != userID:
		return errs.ErrNotRecipient
	case model.RequestStatus(status) != model.RequestPending:
		return errs.ErrNotPending
	case checkExpiry && !now.Before(expiresAt):
		return errs.ErrExpired
	default:
		// lost a race with a concurrent transition
		return errs.ErrNotPending
	}
}

// SweepExpired marks every pending request past its expiry as expired.
func (r *RequestRepo) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, sweepRequestsSQL, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Get returns a single request by id.
func (r *RequestRepo) Get(ctx context.Context, requestID uuid.UUID) (*model.BattleRequest, error) {
	req, err := scanRequest(r.db.Pool.QueryRow(ctx, requestSelect+` WHERE r.id=$1`, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

// ListPending lists live pending requests addressed to (incoming) or sent by (outgoing) the user.
func (r *RequestRepo) ListPending(
	ctx context.Context, userID uuid.UUID, dir model.Direction, now time.Time, page model.Page,
) ([]model.BattleRequest, error) {
	q := listIncomingSQL
	if dir == model.DirectionOutgoing {
		q = listOutgoingSQL
	}
	page = page.Normalize()
	rows, err := r.db.Pool.Query(ctx, q, userID, now, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.BattleRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

func scanRequest(row pgx.Row) (*model.BattleRequest, error) {
	var (
		req         model.BattleRequest
		status, typ string
	)
	err := row.Scan(
		&req.ID, &req.ChallengerID, &req.ChallengedID, &status, &typ, &req.Genre,
		&req.Track.DisplayName, &req.Track.TrackName, &req.Track.MediaRef, &req.Message,
		&req.BattleID, &req.CreatedAt, &req.ExpiresAt, &req.RespondedAt,
	)
	if err != nil {
		return nil, err
	}
	req.Status = model.RequestStatus(status)
	req.BattleType = model.BattleType(typ)
	req.Track.OwnerID = req.ChallengerID
	return &req, nil
}
