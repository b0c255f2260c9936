package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/beatbattle/internal/errs"
	"github.com/and161185/beatbattle/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements WalletRepository using PostgreSQL.
// debit and credit below are the only statements that touch wallets.coins;
// battle transactions call them with their own pgx.Tx.
type WalletRepo struct{ db *DB }

// NewWalletRepo constructs a wallet repository.
func NewWalletRepo(db *DB) *WalletRepo { return &WalletRepo{db: db} }

const (
	debitSQL = `
UPDATE wallets
SET coins = coins - $2, updated_at = now()
WHERE user_id = $1 AND coins >= $2
RETURNING coins`

	creditSQL = `
INSERT INTO wallets (user_id, coins) VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET coins = wallets.coins + EXCLUDED.coins, updated_at = now()
RETURNING coins`

	insertEntrySQL = `
INSERT INTO ledger_entries (id, user_id, amount, reason, ref_id)
VALUES ($1, $2, $3, $4, $5)`
)

// debit subtracts amount in one conditional update; a missing wallet reads as a zero balance.
func debit(ctx context.Context, q querier, userID uuid.UUID, amount int64, reason model.EntryReason, refID uuid.UUID) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: negative amount", errs.ErrValidation)
	}
	var bal int64
	if err := q.QueryRow(ctx, debitSQL, userID, amount).Scan(&bal); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.ErrInsufficientFunds
		}
		return 0, err
	}
	if err := insertEntry(ctx, q, userID, -amount, reason, refID); err != nil {
		return 0, err
	}
	return bal, nil
}

// credit adds amount, creating the wallet on first credit.
func credit(ctx context.Context, q querier, userID uuid.UUID, amount int64, reason model.EntryReason, refID uuid.UUID) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: negative amount", errs.ErrValidation)
	}
	var bal int64
	if err := q.QueryRow(ctx, creditSQL, userID, amount).Scan(&bal); err != nil {
		return 0, err
	}
	if err := insertEntry(ctx, q, userID, amount, reason, refID); err != nil {
		return 0, err
	}
	return bal, nil
}

func insertEntry(ctx context.Context, q querier, userID uuid.UUID, amount int64, reason model.EntryReason, refID uuid.UUID) error {
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, insertEntrySQL, id, userID, amount, string(reason), nullableID(refID))
	return err
}

// Debit subtracts amount if the balance covers it and returns the new balance.
func (r *WalletRepo) Debit(
	ctx context.Context, userID uuid.UUID, amount int64, reason model.EntryReason, refID uuid.UUID,
) (bal int64, err error) {
	err = r.db.withTx(ctx, func(tx pgx.Tx) error {
		bal, err = debit(ctx, tx, userID, amount, reason, refID)
		return err
	})
	return bal, err
}

// Credit adds amount and returns the new balance.
func (r *WalletRepo) Credit(
	ctx context.Context, userID uuid.UUID, amount int64, reason model.EntryReason, refID uuid.UUID,
) (bal int64, err error) {
	err = r.db.withTx(ctx, func(tx pgx.Tx) error {
		bal, err = credit(ctx, tx, userID, amount, reason, refID)
		return err
	})
	return bal, err
}

// Ensure creates the wallet with the initial grant unless it already exists.
func (r *WalletRepo) Ensure(ctx context.Context, userID uuid.UUID, initial int64) (*model.Wallet, error) {
	const ins = `
INSERT INTO wallets (user_id, coins) VALUES ($1, $2)
ON CONFLICT (user_id) DO NOTHING
RETURNING coins`
	const sel = `SELECT user_id, coins, updated_at FROM wallets WHERE user_id=$1`

	var w model.Wallet
	err := r.db.withTx(ctx, func(tx pgx.Tx) error {
		var coins int64
		switch err := tx.QueryRow(ctx, ins, userID, initial).Scan(&coins); {
		case err == nil:
			if initial > 0 {
				if err := insertEntry(ctx, tx, userID, initial, model.ReasonStartingGrant, uuid.Nil); err != nil {
					return err
				}
			}
		case errors.Is(err, pgx.ErrNoRows):
			// already there
		default:
			return err
		}
		return tx.QueryRow(ctx, sel, userID).Scan(&w.UserID, &w.Coins, &w.UpdatedAt)
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// History lists ledger entries for a user, newest first.
func (r *WalletRepo) History(ctx context.Context, userID uuid.UUID, page model.Page) ([]model.LedgerEntry, error) {
	const q = `
SELECT id, user_id, amount, reason, ref_id, created_at
FROM ledger_entries
WHERE user_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	page = page.Normalize()
	rows, err := r.db.Pool.Query(ctx, q, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.LedgerEntry{}
	for rows.Next() {
		var (
			e      model.LedgerEntry
			reason string
			ref    *uuid.UUID
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &reason, &ref, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Reason = model.EntryReason(reason)
		if ref != nil {
			e.RefID = *ref
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
