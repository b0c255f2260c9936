// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/beatbattle/internal/model"
	"github.com/gofrs/uuid/v5"
)

// WalletRepository is the only writer of wallet balances.
type WalletRepository interface {
	// Debit atomically subtracts amount if the balance covers it.
	Debit(ctx context.Context, userID uuid.UUID, amount int64, reason model.EntryReason, refID uuid.UUID) (int64, error)
	// Credit adds amount, creating the wallet if needed.
	Credit(ctx context.Context, userID uuid.UUID, amount int64, reason model.EntryReason, refID uuid.UUID) (int64, error)
	// Ensure creates the wallet with the initial balance unless it exists, and returns it.
	Ensure(ctx context.Context, userID uuid.UUID, initial int64) (*model.Wallet, error)
	// History lists ledger entries newest first.
	History(ctx context.Context, userID uuid.UUID, page model.Page) ([]model.LedgerEntry, error)
}
