package service

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/beatbattle/internal/errs"
	"github.com/and161185/beatbattle/internal/model"
	"github.com/and161185/beatbattle/internal/repository"
)

var fixedNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fakeWallets struct {
	coins   map[uuid.UUID]int64
	entries []model.LedgerEntry

	ensureCalls int
	ensureErr   error
	creditErr   error
}

var _ repository.WalletRepository = (*fakeWallets)(nil)

func newFakeWallets() *fakeWallets { return &fakeWallets{coins: map[uuid.UUID]int64{}} }

func (f *fakeWallets) Debit(_ context.Context, userID uuid.UUID, amount int64, reason model.EntryReason, refID uuid.UUID) (int64, error) {
	if f.coins[userID] < amount {
		return 0, errs.ErrInsufficientFunds
	}
	f.coins[userID] -= amount
	f.entries = append(f.entries, model.LedgerEntry{UserID: userID, Amount: -amount, Reason: reason, RefID: refID})
	return f.coins[userID], nil
}

func (f *fakeWallets) Credit(_ context.Context, userID uuid.UUID, amount int64, reason model.EntryReason, refID uuid.UUID) (int64, error) {
	if f.creditErr != nil {
		return 0, f.creditErr
	}
	f.coins[userID] += amount
	f.entries = append(f.entries, model.LedgerEntry{UserID: userID, Amount: amount, Reason: reason, RefID: refID})
	return f.coins[userID], nil
}

func (f *fakeWallets) Ensure(_ context.Context, userID uuid.UUID, initial int64) (*model.Wallet, error) {
	f.ensureCalls++
	if f.ensureErr != nil {
		return nil, f.ensureErr
	}
	if _, ok := f.coins[userID]; !ok {
		f.coins[userID] = initial
	}
	return &model.Wallet{UserID: userID, Coins: f.coins[userID]}, nil
}

func (f *fakeWallets) History(_ context.Context, userID uuid.UUID, page model.Page) ([]model.LedgerEntry, error) {
	var out []model.LedgerEntry
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].UserID == userID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

// fakeBattles keeps battles in memory and applies the same rules as the SQL.
type fakeBattles struct {
	wallets *fakeWallets
	byID    map[uuid.UUID]*model.Battle

	evalCalls int
	evalErr   map[uuid.UUID]error
	listDue   []uuid.UUID
	lastPage  model.Page
}

var _ repository.BattleRepository = (*fakeBattles)(nil)

func newFakeBattles(w *fakeWallets) *fakeBattles {
	return &fakeBattles{wallets: w, byID: map[uuid.UUID]*model.Battle{}, evalErr: map[uuid.UUID]error{}}
}

func (f *fakeBattles) Create(ctx context.Context, b *model.Battle) error {
	if _, err := f.wallets.Debit(ctx, b.Left.OwnerID, b.EntryFee, model.ReasonBattleEntry, b.ID); err != nil {
		return err
	}
	c := *b
	f.byID[b.ID] = &c
	return nil
}

func (f *fakeBattles) Join(ctx context.Context, battleID uuid.UUID, right model.Submission, fee int64, now time.Time) (*model.Battle, error) {
	b, ok := f.byID[battleID]
	switch {
	case !ok:
		return nil, errs.ErrNotFound
	case b.Left.OwnerID == right.OwnerID:
		return nil, errs.ErrSameUser
	case b.Right != nil:
		return nil, errs.ErrAlreadyMatched
	case b.Status != model.BattleOpen || !now.Before(b.EndsAt):
		return nil, errs.ErrExpired
	case b.EntryFee != fee:
		return nil, errs.ErrValidation
	}
	if _, err := f.wallets.Debit(ctx, right.OwnerID, fee, model.ReasonBattleEntry, battleID); err != nil {
		return nil, err
	}
	b.Right = &model.BattleSide{Submission: right}
	b.Status = model.BattleMatched
	b.MatchedAt = &now
	c := *b
	return &c, nil
}

func (f *fakeBattles) Evaluate(ctx context.Context, battleID uuid.UUID, now time.Time) (*model.Battle, bool, error) {
	f.evalCalls++
	if err := f.evalErr[battleID]; err != nil {
		return nil, false, err
	}
	b, ok := f.byID[battleID]
	if !ok {
		return nil, false, errs.ErrNotFound
	}
	if !b.Due(now) {
		c := *b
		return &c, false, nil
	}
	b.Status = model.BattleResolved
	b.Winner = decide(b)
	b.ResolvedAt = &now
	for _, p := range model.Payouts(b) {
		if _, err := f.wallets.Credit(ctx, p.UserID, p.Amount, p.Reason, b.ID); err != nil {
			return nil, false, err
		}
	}
	c := *b
	return &c, true, nil
}

func (f *fakeBattles) Get(_ context.Context, battleID uuid.UUID) (*model.Battle, error) {
	b, ok := f.byID[battleID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *b
	return &c, nil
}

func (f *fakeBattles) List(_ context.Context, _ model.BattleFilter, page model.Page) ([]model.Battle, error) {
	f.lastPage = page
	out := []model.Battle{}
	for _, b := range f.byID {
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeBattles) ListDue(_ context.Context, _ time.Time, _ int) ([]uuid.UUID, error) {
	return f.listDue, nil
}

// decide mirrors the winner CASE in resolveBattleSQL: strictly more votes
// wins, ties and unopposed battles have no winner.
func decide(b *model.Battle) model.Side {
	switch {
	case b.Right == nil:
		return model.SideNone
	case b.Left.Votes > b.Right.Votes:
		return model.SideLeft
	case b.Right.Votes > b.Left.Votes:
		return model.SideRight
	default:
		return model.SideNone
	}
}

type fakeVotes struct {
	cast   []model.Vote
	castAt time.Time
	err    error
	get    *model.Vote
}

var _ repository.VoteRepository = (*fakeVotes)(nil)

func (f *fakeVotes) Cast(_ context.Context, v model.Vote, now time.Time) error {
	if f.err != nil {
		return f.err
	}
	for _, c := range f.cast {
		if c.BattleID == v.BattleID && c.UserID == v.UserID {
			return errs.ErrAlreadyVoted
		}
	}
	f.cast = append(f.cast, v)
	f.castAt = now
	return nil
}

func (f *fakeVotes) Get(_ context.Context, battleID, userID uuid.UUID) (*model.Vote, error) {
	if f.get == nil {
		return nil, errs.ErrNotFound
	}
	return f.get, nil
}

type fakeRequests struct {
	wallets  *fakeWallets
	created  *model.BattleRequest
	byID     map[uuid.UUID]*model.BattleRequest
	accepted struct {
		id    uuid.UUID
		right model.Submission
		terms model.BattleTerms
		now   time.Time
	}
	declined  uuid.UUID
	sweptAt   time.Time
	listDir   model.Direction
	listPage  model.Page
	acceptErr error
}

var _ repository.RequestRepository = (*fakeRequests)(nil)

func newFakeRequests(w *fakeWallets) *fakeRequests {
	return &fakeRequests{wallets: w, byID: map[uuid.UUID]*model.BattleRequest{}}
}

func (f *fakeRequests) Create(_ context.Context, r *model.BattleRequest) error {
	f.created = r
	f.byID[r.ID] = r
	return nil
}

func (f *fakeRequests) Accept(ctx context.Context, requestID uuid.UUID, right model.Submission, terms model.BattleTerms, now time.Time) (*model.Battle, error) {
	if f.acceptErr != nil {
		return nil, f.acceptErr
	}
	var left model.Submission
	if r, ok := f.byID[requestID]; ok {
		left = r.Track
	}
	// both balances are checked before either debit, like the rolled back tx
	if f.wallets.coins[left.OwnerID] < terms.EntryFee || f.wallets.coins[right.OwnerID] < terms.EntryFee {
		return nil, errs.ErrInsufficientFunds
	}
	if terms.EntryFee > 0 {
		_, _ = f.wallets.Debit(ctx, left.OwnerID, terms.EntryFee, model.ReasonBattleEntry, terms.BattleID)
		_, _ = f.wallets.Debit(ctx, right.OwnerID, terms.EntryFee, model.ReasonBattleEntry, terms.BattleID)
	}
	f.accepted.id, f.accepted.right, f.accepted.terms, f.accepted.now = requestID, right, terms, now
	return &model.Battle{
		ID:        terms.BattleID,
		Status:    model.BattleMatched,
		EntryFee:  terms.EntryFee,
		Reward:    terms.Reward,
		EndsAt:    terms.EndsAt,
		Left:      model.BattleSide{Submission: left},
		Right:     &model.BattleSide{Submission: right},
		RequestID: &requestID,
	}, nil
}

func (f *fakeRequests) Decline(_ context.Context, requestID, _ uuid.UUID, _ time.Time) error {
	f.declined = requestID
	return nil
}

func (f *fakeRequests) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	f.sweptAt = now
	return 2, nil
}

func (f *fakeRequests) Get(_ context.Context, requestID uuid.UUID) (*model.BattleRequest, error) {
	r, ok := f.byID[requestID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return r, nil
}

func (f *fakeRequests) ListPending(_ context.Context, _ uuid.UUID, dir model.Direction, _ time.Time, page model.Page) ([]model.BattleRequest, error) {
	f.listDir, f.listPage = dir, page
	return []model.BattleRequest{}, nil
}
