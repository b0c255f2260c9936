package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/beatbattle/internal/errs"
	"github.com/and161185/beatbattle/internal/model"
	"github.com/and161185/beatbattle/internal/repository"
)

// LedgerService exposes wallet balances to users and the payment hook to admins.
type LedgerService interface {
	// Balance returns the wallet, creating it with the starting grant on first access.
	Balance(ctx context.Context, userID uuid.UUID) (*model.Wallet, error)
	// History lists ledger entries newest first.
	History(ctx context.Context, userID uuid.UUID, page model.Page) ([]model.LedgerEntry, error)
	// Credit adds coins bought through the external payment system.
	Credit(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)
}

type LedgerServiceImpl struct {
	wallets       repository.WalletRepository
	startingCoins int64
}

// NewLedgerService constructs LedgerService.
func NewLedgerService(wallets repository.WalletRepository, startingCoins int64) *LedgerServiceImpl {
	if startingCoins < 0 {
		startingCoins = 0
	}
	return &LedgerServiceImpl{wallets: wallets, startingCoins: startingCoins}
}

func (s *LedgerServiceImpl) Balance(ctx context.Context, userID uuid.UUID) (*model.Wallet, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	return s.wallets.Ensure(ctx, userID, s.startingCoins)
}

func (s *LedgerServiceImpl) History(ctx context.Context, userID uuid.UUID, page model.Page) ([]model.LedgerEntry, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	return s.wallets.History(ctx, userID, page.Normalize())
}

// Credit requires a positive amount; the wallet is created if the user never had one.
func (s *LedgerServiceImpl) Credit(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	if userID == uuid.Nil {
		return 0, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", errs.ErrValidation)
	}
	if _, err := s.wallets.Ensure(ctx, userID, s.startingCoins); err != nil {
		return 0, err
	}
	return s.wallets.Credit(ctx, userID, amount, model.ReasonAdminCredit, uuid.Nil)
}
