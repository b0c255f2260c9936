package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/beatbattle/internal/errs"
	"github.com/and161185/beatbattle/internal/model"
	"github.com/and161185/beatbattle/internal/repository"
)

// BattleService owns the battle lifecycle: create, join, read and resolve.
type BattleService interface {
	// Create debits the entry fee and opens a battle.
	Create(ctx context.Context, in CreateBattle) (*model.Battle, error)
	// Join fills the empty side and debits the joiner.
	Join(ctx context.Context, in JoinBattle) (*model.Battle, error)
	// Get returns a battle, resolving it first if its deadline passed.
	Get(ctx context.Context, id uuid.UUID) (*model.Battle, error)
	// List returns battles, resolving any that are due.
	List(ctx context.Context, f model.BattleFilter, page model.Page) ([]model.Battle, error)
	// Evaluate resolves a due battle; it is a no-op otherwise.
	Evaluate(ctx context.Context, id uuid.UUID) (*model.Battle, error)
	// ResolveDue evaluates up to limit due battles and reports how many this call resolved.
	ResolveDue(ctx context.Context, limit int) (int, error)
}

// CreateBattle is the input of BattleService.Create. Zero EntryFee and
// Duration fall back to the configured defaults.
type CreateBattle struct {
	CreatorID uuid.UUID
	Type      model.BattleType
	Genre     string
	Track     Track
	EntryFee  int64
	Duration  time.Duration
}

// JoinBattle is the input of BattleService.Join. A zero EntryFee means
// "whatever the battle asks"; any other value must match it exactly.
type JoinBattle struct {
	BattleID uuid.UUID
	JoinerID uuid.UUID
	Track    Track
	EntryFee int64
}

type BattleServiceImpl struct {
	battles repository.BattleRepository
	wallets repository.WalletRepository
	rules   Rules
	now     func() time.Time
}

// NewBattleService constructs BattleService.
func NewBattleService(battles repository.BattleRepository, wallets repository.WalletRepository, rules Rules) *BattleServiceImpl {
	return &BattleServiceImpl{battles: battles, wallets: wallets, rules: rules, now: nowUTC}
}

// Create validates input, makes sure the creator has a wallet and delegates
// the debit+insert transaction to the repository.
func (s *BattleServiceImpl) Create(ctx context.Context, in CreateBattle) (*model.Battle, error) {
	if in.CreatorID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty creator", errs.ErrValidation)
	}
	if err := validateKind(in.Type, in.Genre); err != nil {
		return nil, err
	}
	if err := validateTrack(in.Track); err != nil {
		return nil, err
	}
	fee := in.EntryFee
	if fee == 0 {
		fee = s.rules.DefaultEntryFee
	}
	if fee <= 0 {
		return nil, fmt.Errorf("%w: entry fee must be positive", errs.ErrValidation)
	}
	dur := in.Duration
	if dur == 0 {
		dur = s.rules.BattleDuration
	}
	if dur < s.rules.MinDuration || dur > s.rules.MaxDuration {
		return nil, fmt.Errorf("%w: duration must be between %s and %s", errs.ErrValidation, s.rules.MinDuration, s.rules.MaxDuration)
	}

	if _, err := s.wallets.Ensure(ctx, in.CreatorID, s.rules.StartingCoins); err != nil {
		return nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := s.now()
	b := &model.Battle{
		ID:        id,
		Type:      in.Type,
		Genre:     in.Genre,
		Status:    model.BattleOpen,
		EntryFee:  fee,
		Reward:    s.rules.rewardFor(fee),
		Left:      model.BattleSide{Submission: in.Track.ownedBy(in.CreatorID)},
		EndsAt:    now.Add(dur),
		CreatedAt: now,
	}
	if err := s.battles.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BattleServiceImpl) Join(ctx context.Context, in JoinBattle) (*model.Battle, error) {
	if in.BattleID == uuid.Nil || in.JoinerID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty battle/joiner id", errs.ErrValidation)
	}
	if err := validateTrack(in.Track); err != nil {
		return nil, err
	}
	if in.EntryFee < 0 {
		return nil, fmt.Errorf("%w: negative entry fee", errs.ErrValidation)
	}
	fee := in.EntryFee
	if fee == 0 {
		cur, err := s.battles.Get(ctx, in.BattleID)
		if err != nil {
			return nil, err
		}
		fee = cur.EntryFee
	}

	if _, err := s.wallets.Ensure(ctx, in.JoinerID, s.rules.StartingCoins); err != nil {
		return nil, err
	}
	return s.battles.Join(ctx, in.BattleID, in.Track.ownedBy(in.JoinerID), fee, s.now())
}

func (s *BattleServiceImpl) Get(ctx context.Context, id uuid.UUID) (*model.Battle, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: empty battle id", errs.ErrValidation)
	}
	b, err := s.battles.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if now := s.now(); b.Due(now) {
		b, _, err = s.battles.Evaluate(ctx, id, now)
	}
	return b, err
}

func (s *BattleServiceImpl) List(ctx context.Context, f model.BattleFilter, page model.Page) ([]model.Battle, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", errs.ErrValidation, f.Status)
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown battle type %q", errs.ErrValidation, f.Type)
	}
	out, err := s.battles.List(ctx, f, page.Normalize())
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range out {
		if !out[i].Due(now) {
			continue
		}
		b, _, err := s.battles.Evaluate(ctx, out[i].ID, now)
		if err != nil {
			return nil, err
		}
		out[i] = *b
	}
	return out, nil
}

func (s *BattleServiceImpl) Evaluate(ctx context.Context, id uuid.UUID) (*model.Battle, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: empty battle id", errs.ErrValidation)
	}
	b, _, err := s.battles.Evaluate(ctx, id, s.now())
	return b, err
}

// ResolveDue keeps going past individual failures and returns them joined.
func (s *BattleServiceImpl) ResolveDue(ctx context.Context, limit int) (int, error) {
	now := s.now()
	ids, err := s.battles.ListDue(ctx, now, limit)
	if err != nil {
		return 0, err
	}
	var (
		resolved int
		failed   []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			failed = append(failed, err)
			break
		}
		_, ok, err := s.battles.Evaluate(ctx, id, now)
		if err != nil {
			failed = append(failed, fmt.Errorf("battle %s: %w", id, err))
			continue
		}
		if ok {
			resolved++
		}
	}
	return resolved, errors.Join(failed...)
}
