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

// BattleRepo implements BattleRepository using PostgreSQL.
type BattleRepo struct{ db *DB }

// NewBattleRepo constructs a battle repository.
func NewBattleRepo(db *DB) *BattleRepo { return &BattleRepo{db: db} }

const battleColumns = `
id, battle_type, genre, status, entry_fee, reward,
left_owner_id, left_display_name, left_track_name, left_media_ref, left_votes,
right_owner_id, right_display_name, right_track_name, right_media_ref, right_votes,
winner_side, request_id, ends_at, created_at, matched_at, resolved_at`

const (
	insertBattleSQL = `
INSERT INTO battles (id, battle_type, genre, status, entry_fee, reward,
  left_owner_id, left_display_name, left_track_name, left_media_ref, ends_at, created_at)
VALUES ($1, $2, $3, 'open', $4, $5, $6, $7, $8, $9, $10, $11)`

	// The predicate is the whole race: concurrent joiners block on the row
	// lock and re-check right_owner_id IS NULL after the winner commits.
	joinBattleSQL = `
UPDATE battles
SET right_owner_id = $2, right_display_name = $3, right_track_name = $4, right_media_ref = $5,
    status = 'matched', matched_at = $6
WHERE id = $1 AND status = 'open' AND right_owner_id IS NULL
  AND left_owner_id <> $2 AND ends_at > $6 AND entry_fee = $7
RETURNING` + battleColumns

	resolveBattleSQL = `
UPDATE battles
SET status = 'resolved',
    winner_side = CASE
        WHEN right_owner_id IS NULL THEN 'none'
        WHEN left_votes > right_votes THEN 'left'
        WHEN right_votes > left_votes THEN 'right'
        ELSE 'none'
    END,
    resolved_at = $2
WHERE id = $1 AND status IN ('open', 'matched') AND ends_at <= $2
RETURNING` + battleColumns

	getBattleSQL = `SELECT` + battleColumns + `
FROM battles WHERE id=$1`

	listBattlesSQL = `SELECT` + battleColumns + `
FROM battles
WHERE ($1::text = '' OR status = $1)
  AND ($2::text = '' OR battle_type = $2)
  AND ($3::text = '' OR genre = $3)
  AND ($4::uuid IS NULL OR left_owner_id = $4 OR right_owner_id = $4)
ORDER BY created_at DESC, id DESC
LIMIT $5 OFFSET $6`

	listDueSQL = `
SELECT id FROM battles
WHERE status IN ('open', 'matched') AND ends_at <= $1
ORDER BY ends_at ASC
LIMIT $2`
)

// Create debits the creator's entry fee and inserts the open battle in one transaction.
func (r *BattleRepo) Create(ctx context.Context, b *model.Battle) error {
	return r.db.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := debit(ctx, tx, b.Left.OwnerID, b.EntryFee, model.ReasonBattleEntry, b.ID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, insertBattleSQL,
			b.ID, string(b.Type), b.Genre, b.EntryFee, b.Reward,
			b.Left.OwnerID, b.Left.DisplayName, b.Left.TrackName, b.Left.MediaRef,
			b.EndsAt, b.CreatedAt,
		)
		return err
	})
}

// Join claims the right side, then debits the joiner. Either failure rolls back both.
func (r *BattleRepo) Join(
	ctx context.Context, battleID uuid.UUID, right model.Submission, fee int64, now time.Time,
) (*model.Battle, error) {
	var out *model.Battle
	err := r.db.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, joinBattleSQL,
			battleID, right.OwnerID, right.DisplayName, right.TrackName, right.MediaRef, now, fee)
		b, err := scanBattle(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return classifyJoin(ctx, tx, battleID, right.OwnerID, fee, now)
		}
		if err != nil {
			return err
		}
		if _, err := debit(ctx, tx, right.OwnerID, fee, model.ReasonBattleEntry, battleID); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// classifyJoin explains why the conditional join matched no row.
func classifyJoin(ctx context.Context, q querier, battleID, joinerID uuid.UUID, fee int64, now time.Time) error {
	b, err := scanBattle(q.QueryRow(ctx, getBattleSQL, battleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}
	switch {
	case b.Left.OwnerID == joinerID:
		return errs.ErrSameUser
	case b.Right != nil:
		return errs.ErrAlreadyMatched
	case b.Status != model.BattleOpen || !now.Before(b.EndsAt):
		return errs.ErrExpired
	case b.EntryFee != fee:
		return fmt.Errorf("%w: entry fee is %d", errs.ErrValidation, b.EntryFee)
	default:
		return errs.ErrAlreadyMatched
	}
}

// Evaluate resolves a due battle and credits the payouts in the same transaction.
// The status predicate makes repeated or concurrent calls no-ops.
func (r *BattleRepo) Evaluate(ctx context.Context, battleID uuid.UUID, now time.Time) (*model.Battle, bool, error) {
	var (
		out      *model.Battle
		resolved bool
	)
	err := r.db.withTx(ctx, func(tx pgx.Tx) error {
		b, err := scanBattle(tx.QueryRow(ctx, resolveBattleSQL, battleID, now))
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			cur, err := scanBattle(tx.QueryRow(ctx, getBattleSQL, battleID))
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrNotFound
			}
			out = cur
			return err
		case err != nil:
			return err
		}
		for _, p := range model.Payouts(b) {
			if _, err := credit(ctx, tx, p.UserID, p.Amount, p.Reason, b.ID); err != nil {
				return err
			}
		}
		out, resolved = b, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, resolved, nil
}

// Get returns a single battle by id.
func (r *BattleRepo) Get(ctx context.Context, battleID uuid.UUID) (*model.Battle, error) {
	b, err := scanBattle(r.db.Pool.QueryRow(ctx, getBattleSQL, battleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// List returns battles matching the filter, newest first.
func (r *BattleRepo) List(ctx context.Context, f model.BattleFilter, page model.Page) ([]model.Battle, error) {
	page = page.Normalize()
	rows, err := r.db.Pool.Query(ctx, listBattlesSQL,
		string(f.Status), string(f.Type), f.Genre, nullableID(f.UserID), page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Battle{}
	for rows.Next() {
		b, err := scanBattle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// ListDue returns ids of battles whose deadline passed, oldest deadline first.
func (r *BattleRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Pool.Query(ctx, listDueSQL, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// scanBattle reads one row laid out as battleColumns.
func scanBattle(row pgx.Row) (*model.Battle, error) {
	var (
		b                               model.Battle
		typ, status                     string
		rightOwner                      *uuid.UUID
		rightName, rightTrack, rightRef *string
		rightVotes                      int64
		winner                          *string
	)
	err := row.Scan(
		&b.ID, &typ, &b.Genre, &status, &b.EntryFee, &b.Reward,
		&b.Left.OwnerID, &b.Left.DisplayName, &b.Left.TrackName, &b.Left.MediaRef, &b.Left.Votes,
		&rightOwner, &rightName, &rightTrack, &rightRef, &rightVotes,
		&winner, &b.RequestID, &b.EndsAt, &b.CreatedAt, &b.MatchedAt, &b.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Type = model.BattleType(typ)
	b.Status = model.BattleStatus(status)
	if winner != nil {
		b.Winner = model.Side(*winner)
	}
	if rightOwner != nil {
		b.Right = &model.BattleSide{
			Submission: model.Submission{
				OwnerID:     *rightOwner,
				DisplayName: deref(rightName),
				TrackName:   deref(rightTrack),
				MediaRef:    deref(rightRef),
			},
			Votes: rightVotes,
		}
	}
	return &b, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
